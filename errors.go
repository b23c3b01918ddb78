package chronicle

import "errors"

var (
	errNilStorage = errors.New("chronicle: nil pattern storage")
	errCapacity   = errors.New("chronicle: capacity below minimum")
)
