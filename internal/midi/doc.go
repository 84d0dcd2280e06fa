// Package midi encodes the MIDI channel voice messages used to preview
// patches and notes: control change, program change, note-on and note-off.
//
// Encoding is delegated to gitlab.com/gomidi/midi/v2; this package adds
// range validation, since gomidi silently masks out-of-range values.
// Channels are 1-16 as shown to users. Messages render as upper-case hex
// for transport over MQTT:
//
//	msg, _ := midi.ProgramChange(1, 5)
//	msg.Hex() // "C005"
package midi
