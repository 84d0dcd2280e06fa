package preview

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/midnam-core/internal/midi"
	"github.com/nerrad567/midnam-core/internal/midnam"
)

// Defaults applied when options are not given.
const (
	DefaultVelocity     = 100
	DefaultNoteDuration = 500 * time.Millisecond

	// noteOffTimeout bounds the note-off publish after the caller's
	// context has ended.
	noteOffTimeout = 2 * time.Second
)

// Preview kinds reported to the Recorder.
const (
	KindPatch = "patch"
	KindNote  = "note"
)

// Publisher sends one JSON payload to a topic. mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, topic string, v any) error
}

// Topics names the preview topic of a device. mqtt.Topics satisfies it.
type Topics interface {
	PreviewMIDI(deviceSlug string) string
}

// Recorder receives one call per published preview. influxdb.Client satisfies it.
type Recorder interface {
	RecordPreview(device, kind string, channel, messages int)
}

// Logger defines the logging interface used by the Player.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

type noopRecorder struct{}

func (noopRecorder) RecordPreview(string, string, int, int) {}

// Payload is the JSON body published for every preview.
type Payload struct {
	Channel  int      `json:"channel"`
	Messages []string `json:"messages"`
}

// Player publishes preview MIDI for patches and notes.
// It is safe for concurrent use.
type Player struct {
	pub          Publisher
	topics       Topics
	recorder     Recorder
	logger       Logger
	velocity     int
	noteDuration time.Duration
}

// Option configures a Player.
type Option func(*Player)

// WithVelocity sets the note-on velocity used by AuditionNote.
func WithVelocity(v int) Option {
	return func(p *Player) { p.velocity = v }
}

// WithNoteDuration sets how long AuditionNote holds a note.
func WithNoteDuration(d time.Duration) Option {
	return func(p *Player) { p.noteDuration = d }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Player) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPlayer creates a Player publishing through pub.
func NewPlayer(pub Publisher, topics Topics, opts ...Option) *Player {
	p := &Player{
		pub:          pub,
		topics:       topics,
		recorder:     noopRecorder{},
		logger:       noopLogger{},
		velocity:     DefaultVelocity,
		noteDuration: DefaultNoteDuration,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PatchMessages returns the messages that select patch on channel: the
// bank's MIDI commands in document order followed by the program change.
// Unsupported commands are skipped with ErrUnsupportedCommand reported in
// skipped; a malformed supported command fails the whole call.
func PatchMessages(channel int, pl midnam.PatchList, patch midnam.Patch) (msgs []midi.Message, skipped []error, err error) {
	msgs = make([]midi.Message, 0, len(pl.MIDICommands)+1)
	for _, cmd := range pl.MIDICommands {
		m, err := CommandMessage(channel, cmd)
		if errors.Is(err, ErrUnsupportedCommand) {
			skipped = append(skipped, err)
			continue
		}
		if err != nil {
			return nil, skipped, err
		}
		msgs = append(msgs, m)
	}

	pc, err := midi.ProgramChange(channel, patch.ProgramChange)
	if err != nil {
		return nil, skipped, fmt.Errorf("patch %q: %w", patch.Name, err)
	}
	return append(msgs, pc), skipped, nil
}

// CommandMessage encodes one bank MIDI command. Attribute names are the
// lower-cased ones kept by midnam.Normalize.
func CommandMessage(channel int, cmd midnam.MIDICommand) (midi.Message, error) {
	switch cmd.Type {
	case "ControlChange":
		control, err := intAttr(cmd, "control")
		if err != nil {
			return nil, err
		}
		value, err := intAttr(cmd, "value")
		if err != nil {
			return nil, err
		}
		m, err := midi.ControlChange(channel, control, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return m, nil
	case "ProgramChange":
		number, err := intAttr(cmd, "number")
		if err != nil {
			return nil, err
		}
		m, err := midi.ProgramChange(channel, number)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Type)
	}
}

func intAttr(cmd midnam.MIDICommand, name string) (int, error) {
	raw, ok := cmd.Attributes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s lacks %s", ErrInvalidCommand, cmd.Type, name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s=%q", ErrInvalidCommand, cmd.Type, name, raw)
	}
	return v, nil
}

// PlayPatch publishes the messages that select patch on channel as one
// payload to the preview topic of device.
//
// Parameters:
//   - ctx: Context for cancellation of the publish
//   - device: Device name; its slug names the preview topic
//   - channel: MIDI channel 1-16
//   - pl: Patch list holding the bank's MIDI commands
//   - patch: Patch whose program change is sent last
//
// Returns:
//   - Payload: The hex messages that were published
//   - error: ErrInvalidCommand, a midi range error or ErrPublishFailed
func (p *Player) PlayPatch(ctx context.Context, device string, channel int, pl midnam.PatchList, patch midnam.Patch) (Payload, error) {
	msgs, skipped, err := PatchMessages(channel, pl, patch)
	if err != nil {
		return Payload{}, err
	}
	for _, s := range skipped {
		p.logger.Warn("preview command skipped", "device", device, "bank", pl.Name, "error", s)
	}

	payload := newPayload(channel, msgs...)
	if err := p.publish(ctx, device, payload); err != nil {
		return Payload{}, err
	}
	p.recorder.RecordPreview(device, KindPatch, channel, len(msgs))
	p.logger.Debug("patch previewed", "device", device, "patch", patch.Name, "messages", payload.Messages)
	return payload, nil
}

// AuditionNote publishes a note-on, holds it for the note duration, then
// publishes the note-off. Once the note-on is out the note-off is always
// sent, even if ctx ends while the note is held; in that case the context
// error is returned after the note-off.
func (p *Player) AuditionNote(ctx context.Context, device string, channel, note int) error {
	on, err := midi.NoteOn(channel, note, p.velocity)
	if err != nil {
		return err
	}
	off, err := midi.NoteOff(channel, note)
	if err != nil {
		return err
	}

	if err := p.publish(ctx, device, newPayload(channel, on)); err != nil {
		return err
	}

	var held error
	timer := time.NewTimer(p.noteDuration)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		held = ctx.Err()
	}

	offCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), noteOffTimeout)
	defer cancel()
	if err := p.publish(offCtx, device, newPayload(channel, off)); err != nil {
		return err
	}

	p.recorder.RecordPreview(device, KindNote, channel, 2)
	return held
}

func (p *Player) publish(ctx context.Context, device string, payload Payload) error {
	topic := p.topics.PreviewMIDI(midnam.Slug(device))
	if err := p.pub.PublishJSON(ctx, topic, payload); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func newPayload(channel int, msgs ...midi.Message) Payload {
	hexes := make([]string, len(msgs))
	for i, m := range msgs {
		hexes[i] = m.Hex()
	}
	return Payload{Channel: channel, Messages: hexes}
}
