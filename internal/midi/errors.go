package midi

import "errors"

// Domain errors for MIDI message encoding.
var (
	// ErrInvalidChannel is returned for channels outside 1-16.
	ErrInvalidChannel = errors.New("midi: channel must be between 1 and 16")

	// ErrInvalidData is returned for data bytes outside 0-127.
	ErrInvalidData = errors.New("midi: data byte must be between 0 and 127")

	// ErrInvalidMessage is returned when bytes do not form a channel voice message.
	ErrInvalidMessage = errors.New("midi: invalid channel voice message")
)
