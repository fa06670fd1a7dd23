package scene

import "errors"

var (
	// ErrInvalidArgument is returned for rejected inputs such as a zero up vector
	// or mismatched bone and inverse-bind counts.
	ErrInvalidArgument = errors.New("scene: invalid argument")

	// ErrIndexOutOfRange is returned by index-based skeleton accessors.
	ErrIndexOutOfRange = errors.New("scene: index out of range")
)
