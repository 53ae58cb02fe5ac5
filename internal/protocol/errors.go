package protocol

import "errors"

var (
	ErrShortRead      = errors.New("protocol: short read")
	ErrBadMagic       = errors.New("protocol: invalid magic")
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrTooLarge       = errors.New("protocol: element count exceeds limit")
)
