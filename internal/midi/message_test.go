package midi

import (
	"bytes"
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Message, error)
		wantHex string
	}{
		{"bank select msb", func() (Message, error) { return ControlChange(1, 0, 0) }, "B00000"},
		{"bank select lsb ch16", func() (Message, error) { return ControlChange(16, 32, 3) }, "BF2003"},
		{"program change", func() (Message, error) { return ProgramChange(1, 5) }, "C005"},
		{"program change max", func() (Message, error) { return ProgramChange(10, 127) }, "C97F"},
		{"note on", func() (Message, error) { return NoteOn(10, 36, 100) }, "992464"},
		{"note off", func() (Message, error) { return NoteOff(10, 36) }, "892400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build()
			if err != nil {
				t.Fatalf("encode error = %v", err)
			}
			if got := msg.Hex(); got != tt.wantHex {
				t.Errorf("Hex() = %q, want %q", got, tt.wantHex)
			}
		})
	}
}

func TestEncode_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Message, error)
		wantErr error
	}{
		{"channel zero", func() (Message, error) { return ProgramChange(0, 1) }, ErrInvalidChannel},
		{"channel 17", func() (Message, error) { return ControlChange(17, 0, 0) }, ErrInvalidChannel},
		{"program 128", func() (Message, error) { return ProgramChange(1, 128) }, ErrInvalidData},
		{"negative controller", func() (Message, error) { return ControlChange(1, -1, 0) }, ErrInvalidData},
		{"value 200", func() (Message, error) { return ControlChange(1, 7, 200) }, ErrInvalidData},
		{"note 128", func() (Message, error) { return NoteOn(1, 128, 1) }, ErrInvalidData},
		{"velocity zero", func() (Message, error) { return NoteOn(1, 60, 0) }, ErrInvalidData},
		{"note off bad note", func() (Message, error) { return NoteOff(1, -5) }, ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if msg != nil {
				t.Errorf("message = %v, want nil", msg)
			}
		})
	}
}

func TestMessageAccessors(t *testing.T) {
	msg, _ := NoteOn(3, 60, 90)
	if msg.Status() != StatusNoteOn {
		t.Errorf("Status() = %#x, want %#x", msg.Status(), StatusNoteOn)
	}
	if msg.Channel() != 3 {
		t.Errorf("Channel() = %d, want 3", msg.Channel())
	}
	if got := msg.String(); got != "NoteOn ch=3 note=60 vel=90" {
		t.Errorf("String() = %q", got)
	}

	var empty Message
	if empty.Status() != 0 || empty.Channel() != 0 || empty.String() != "" {
		t.Error("empty message accessors should be zero")
	}
	if got := (Message{0x90}).String(); got != "90" {
		t.Errorf("truncated String() = %q, want %q", got, "90")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"B00000", false},
		{"c005", false},
		{"892400", false},
		{"C0", true},
		{"B000", true},
		{"F8", true},
		{"B080FF", true},
		{"zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			msg, err := ParseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidMessage) {
					t.Errorf("ParseHex(%q) error = %v, want ErrInvalidMessage", tt.in, err)
				}
				return
			}
			if _, err := ParseHex(msg.Hex()); err != nil {
				t.Errorf("ParseHex(Hex()) error = %v", err)
			}
		})
	}
}

func TestEncodeMatchesGomidi(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Message, error)
		want  gomidi.Message
	}{
		{"control change", func() (Message, error) { return ControlChange(2, 0, 81) }, gomidi.ControlChange(1, 0, 81)},
		{"program change", func() (Message, error) { return ProgramChange(16, 7) }, gomidi.ProgramChange(15, 7)},
		{"note on", func() (Message, error) { return NoteOn(1, 60, 90) }, gomidi.NoteOn(0, 60, 90)},
		{"note off", func() (Message, error) { return NoteOff(10, 36) }, gomidi.NoteOff(9, 36)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.build()
			if err != nil {
				t.Fatalf("encode error = %v", err)
			}
			if !bytes.Equal(msg, tt.want.Bytes()) {
				t.Errorf("bytes = % X, want % X", []byte(msg), tt.want.Bytes())
			}
		})
	}
}
