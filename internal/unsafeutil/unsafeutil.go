package unsafeutil

import "unsafe"

// Uint32Bytes views a slice of 32-bit words as its raw bytes without
// copying. The result aliases the input and must not outlive it.
func Uint32Bytes(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), 4*len(s))
}
