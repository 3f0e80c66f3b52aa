package channel

import "errors"

// Sentinel errors for channel operations.
var (
	// ErrNoChannel indicates the outbound message targets a channel that is
	// not registered in the dispatcher.
	ErrNoChannel = errors.New("channel: unknown channel")

	// ErrDuplicateChannel indicates a channel with the same name is already
	// registered in the dispatcher.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")

	// ErrInvalidTarget indicates an outbound target the channel cannot parse.
	ErrInvalidTarget = errors.New("channel: invalid target")

	// ErrNotBound indicates a channel was started without its collaborators.
	ErrNotBound = errors.New("channel: not bound")
)
