// Package preview turns patch selections and note auditions into MIDI
// messages and publishes them for a MIDI bridge to play.
//
// Selecting a patch sends the bank's MIDI commands (usually bank select
// control changes) followed by the patch's program change, as one payload:
//
//	{"channel":1,"messages":["B00000","B02003","C005"]}
//
// Auditioning a note sends a note-on, waits, then a note-off in two payloads.
package preview
