package midi

import (
	"encoding/hex"
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Status nibbles of the channel voice messages used for previewing.
const (
	StatusNoteOff       byte = 0x80
	StatusNoteOn        byte = 0x90
	StatusControlChange byte = 0xB0
	StatusProgramChange byte = 0xC0
)

// Channel limits as shown to users. The wire channel is one less.
const (
	MinChannel = 1
	MaxChannel = 16
)

// maxData is the largest 7-bit data byte.
const maxData = 0x7F

// Message is one encoded channel voice message.
type Message []byte

// ControlChange encodes a controller change, for example a bank select.
//
// Parameters:
//   - channel: MIDI channel 1-16
//   - controller: Controller number 0-127 (0 and 32 are bank select)
//   - value: Controller value 0-127
//
// Returns:
//   - Message: Three bytes, status 0xBn
//   - error: ErrInvalidChannel or ErrInvalidData
func ControlChange(channel, controller, value int) (Message, error) {
	ch, err := wireChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := checkData(controller, value); err != nil {
		return nil, err
	}
	return Message(gomidi.ControlChange(ch, uint8(controller), uint8(value))), nil
}

// ProgramChange encodes a program change. It is two bytes long.
func ProgramChange(channel, program int) (Message, error) {
	ch, err := wireChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := checkData(program); err != nil {
		return nil, err
	}
	return Message(gomidi.ProgramChange(ch, uint8(program))), nil
}

// NoteOn encodes a note-on. A velocity of zero is rejected because
// receivers treat it as a note-off.
func NoteOn(channel, note, velocity int) (Message, error) {
	if velocity == 0 {
		return nil, fmt.Errorf("%w: note-on velocity 0", ErrInvalidData)
	}
	ch, err := wireChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := checkData(note, velocity); err != nil {
		return nil, err
	}
	return Message(gomidi.NoteOn(ch, uint8(note), uint8(velocity))), nil
}

// NoteOff encodes a note-off with release velocity zero.
func NoteOff(channel, note int) (Message, error) {
	ch, err := wireChannel(channel)
	if err != nil {
		return nil, err
	}
	if err := checkData(note); err != nil {
		return nil, err
	}
	return Message(gomidi.NoteOff(ch, uint8(note))), nil
}

// wireChannel converts a 1-16 channel to the 0-15 wire channel.
func wireChannel(channel int) (uint8, error) {
	if channel < MinChannel || channel > MaxChannel {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidChannel, channel)
	}
	return uint8(channel - 1), nil
}

// checkData rejects values gomidi would otherwise truncate to 7 bits.
func checkData(data ...int) error {
	for _, d := range data {
		if d < 0 || d > maxData {
			return fmt.Errorf("%w: got %d", ErrInvalidData, d)
		}
	}
	return nil
}

// Status returns the status nibble without the channel.
func (m Message) Status() byte {
	if len(m) == 0 {
		return 0
	}
	return m[0] & 0xF0
}

// Channel returns the channel in the range 1-16.
func (m Message) Channel() int {
	if len(m) == 0 {
		return 0
	}
	return int(m[0]&0x0F) + 1
}

// Hex returns the message as upper-case hex, such as "B00000".
func (m Message) Hex() string {
	return strings.ToUpper(hex.EncodeToString(gomidi.Message(m).Bytes()))
}

// String returns a human-readable form of the message. Anything that is not
// a complete preview message renders as hex.
func (m Message) String() string {
	var ch, a, b uint8
	gm := gomidi.Message(m)
	switch {
	case len(m) == 3 && m.Status() == StatusNoteOff && gm.GetNoteOff(&ch, &a, &b):
		return fmt.Sprintf("NoteOff ch=%d note=%d", ch+1, a)
	case len(m) == 3 && m.Status() == StatusNoteOn && gm.GetNoteOn(&ch, &a, &b):
		return fmt.Sprintf("NoteOn ch=%d note=%d vel=%d", ch+1, a, b)
	case len(m) == 3 && gm.GetControlChange(&ch, &a, &b):
		return fmt.Sprintf("ControlChange ch=%d cc=%d value=%d", ch+1, a, b)
	case len(m) == 2 && gm.GetProgramChange(&ch, &a):
		return fmt.Sprintf("ProgramChange ch=%d program=%d", ch+1, a)
	default:
		return m.Hex()
	}
}

// ParseHex decodes a message produced by Hex and checks its length
// against its status.
func ParseHex(s string) (Message, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	msg := Message(b)

	var want int
	switch msg.Status() {
	case StatusNoteOff, StatusNoteOn, StatusControlChange:
		want = 3
	case StatusProgramChange:
		want = 2
	default:
		return nil, fmt.Errorf("%w: status %q", ErrInvalidMessage, s)
	}
	if len(msg) != want {
		return nil, fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidMessage, s, len(msg), want)
	}
	for _, d := range msg[1:] {
		if d > maxData {
			return nil, fmt.Errorf("%w: data byte %#x", ErrInvalidMessage, d)
		}
	}
	return msg, nil
}
