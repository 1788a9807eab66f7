package effectchain

import "errors"

var (
	// ErrUnknownModule is returned for a module type with no registered factory.
	ErrUnknownModule = errors.New("effectchain: unknown module type")
	// ErrUnknownParameter is returned for a parameter ID the rack does not define.
	ErrUnknownParameter = errors.New("effectchain: unknown parameter")
	// ErrChainFull is returned by AddModule when every slot of the chain holds a module.
	ErrChainFull = errors.New("effectchain: chain is full")
	// ErrEmptySlot is returned when removing or changing a slot without a module.
	ErrEmptySlot = errors.New("effectchain: slot is empty")
	// ErrMovePending is returned when a slot move is requested while another
	// is still waiting for the audio goroutine.
	ErrMovePending = errors.New("effectchain: slot move already pending")
	// ErrInvalidIndex is returned for chain or slot indices out of range.
	ErrInvalidIndex = errors.New("effectchain: index out of range")
)
