package sizeof

import "unsafe"

const (
	UInt32Map   = int(unsafe.Sizeof(map[uint32]uint32{}))
	UInt32Slice = int(unsafe.Sizeof([]uint32{}))
	Byte        = 1
	Int         = int(unsafe.Sizeof(int(0)))
	UInt32      = int(unsafe.Sizeof(uint32(0)))
	UInt64      = int(unsafe.Sizeof(uint64(0)))
)
