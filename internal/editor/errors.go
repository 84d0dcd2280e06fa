package editor

import "errors"

// Domain errors for the editor.
var (
	// ErrDeviceNotFound is returned when neither the local store nor the
	// remote API has the requested device.
	ErrDeviceNotFound = errors.New("editor: device not found")

	// ErrInvalidRef is returned when a device reference names neither a
	// path nor a key.
	ErrInvalidRef = errors.New("editor: device reference needs a path or key")

	// ErrPathExists is returned when creating a device over an existing record.
	ErrPathExists = errors.New("editor: a record already exists at this path")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("editor: session not found")

	// ErrNoDevice is returned by session operations before a device is selected.
	ErrNoDevice = errors.New("editor: session has no device selected")

	// ErrPatchOutOfRange is returned when a patch list or patch index does
	// not exist in the selected device.
	ErrPatchOutOfRange = errors.New("editor: patch list or patch index out of range")

	// ErrPreviewDisabled is returned by preview operations without a player.
	ErrPreviewDisabled = errors.New("editor: preview is not configured")
)
