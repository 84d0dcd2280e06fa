package midnam

import "errors"

// Domain errors for the midnam package.
var (
	// ErrMalformedDocument is returned when a document is not well-formed XML
	// or its root element is not MIDINameDocument.
	ErrMalformedDocument = errors.New("midnam: malformed document")

	// ErrNoDeviceInfo is returned when a well-formed document names no
	// manufacturer and model.
	ErrNoDeviceInfo = errors.New("midnam: no device info")
)

// Warning codes for entries the normalizer skipped or could not resolve.
const (
	WarnNoteSkipped       = "NOTE_SKIPPED"
	WarnControlSkipped    = "CONTROL_SKIPPED"
	WarnListUnnamed       = "LIST_UNNAMED"
	WarnChannelSkipped    = "CHANNEL_SKIPPED"
	WarnAssignmentSkipped = "ASSIGNMENT_SKIPPED"
	WarnPatchListMissing  = "PATCH_LIST_MISSING"
)

// Warning is a non-fatal problem found while normalizing.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
