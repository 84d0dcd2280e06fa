package preview

import "errors"

// Domain errors for previewing.
var (
	// ErrUnsupportedCommand is returned for bank MIDI commands other than
	// ControlChange and ProgramChange.
	ErrUnsupportedCommand = errors.New("preview: unsupported MIDI command")

	// ErrInvalidCommand is returned when a bank MIDI command has missing or
	// out of range attributes.
	ErrInvalidCommand = errors.New("preview: invalid MIDI command")

	// ErrPublishFailed is returned when the publisher rejects a message.
	ErrPublishFailed = errors.New("preview: publish failed")
)
