package chronicle

import "unsafe"

const (
	sizeofSlot            = int(unsafe.Sizeof(Slot{}))
	sizeofChronicleStruct = int(unsafe.Sizeof(Chronicle{}))
)
