package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/midnam-core/internal/catalog"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midnam"
	"github.com/nerrad567/midnam-core/internal/preview"
	"github.com/nerrad567/midnam-core/internal/remote"
)

// Store is the part of localstore.Store used by the Service.
type Store interface {
	Save(ctx context.Context, in localstore.SaveInput) (localstore.SaveResult, error)
	Get(ctx context.Context, path string) (*localstore.Record, error)
	GetAll(ctx context.Context) ([]localstore.Record, error)
	Delete(ctx context.Context, path string) (bool, error)
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (localstore.Stats, error)
}

// Remote is the part of remote.Client used by the Service.
type Remote interface {
	Device(ctx context.Context, key, file string) (*remote.Device, error)
	Catalog(ctx context.Context) (catalog.Catalog, error)
}

// Player sends preview MIDI. preview.Player satisfies it.
type Player interface {
	PlayPatch(ctx context.Context, device string, channel int, pl midnam.PatchList, patch midnam.Patch) (preview.Payload, error)
	AuditionNote(ctx context.Context, device string, channel, note int) error
}

// Logger defines the logging interface used by the editor.
// logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

type noopRecorder struct{}

func (noopRecorder) RecordActivity(string, string, string, int, bool) {}

// Source says where a selected document came from.
type Source string

// Document sources.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Ref identifies a device to select. Path names a local record. Key
// ("Manufacturer|Model") and File name a remote catalog entry; File is also
// tried as a local path when Path is empty.
type Ref struct {
	Path string `json:"path,omitempty"`
	Key  string `json:"key,omitempty"`
	File string `json:"file,omitempty"`
}

// Selection is a device document together with its view model.
type Selection struct {
	Source   Source             `json:"source"`
	Path     string             `json:"path,omitempty"`
	Key      string             `json:"key"`
	Document string             `json:"document"`
	View     *midnam.ViewModel  `json:"view"`
	Record   *localstore.Record `json:"record,omitempty"`
}

// NewDeviceRequest describes a device created offline.
// An empty Path defaults to midnam.DefaultPath(Manufacturer, Model).
type NewDeviceRequest struct {
	midnam.NewDevice
	Path string `json:"path,omitempty"`
}

// Service coordinates the local store, the remote API, the normalizer and
// event fan-out for the editor. It is safe for concurrent use.
type Service struct {
	store     Store
	remote    Remote
	player    Player
	sessions  *SessionRegistry
	notifiers []Notifier
	recorder  ActivityRecorder
	logger    Logger
	now       func() time.Time
	author    string

	sessionTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithRemote sets the remote API client. Without one, selection and catalog
// use the local store only.
func WithRemote(r Remote) Option {
	return func(s *Service) { s.remote = r }
}

// WithPlayer enables patch and note preview.
func WithPlayer(p Player) Option {
	return func(s *Service) { s.player = p }
}

// WithSessionTTL sets how long an idle session lives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// WithNotifier adds a store event receiver. It may be given more than once.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithActivityRecorder sets the activity recorder.
func WithActivityRecorder(r ActivityRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithDefaultAuthor sets the Author of created devices that name none.
func WithDefaultAuthor(author string) Option {
	return func(s *Service) { s.author = author }
}

// NewService creates a Service over store.
//
// Parameters:
//   - store: Local device store, normally a *localstore.Store
//   - opts: Remote, player, notifiers, recorder, logger and session options
//
// Returns:
//   - *Service: Service with an empty session registry
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		recorder:   noopRecorder{},
		logger:     noopLogger{},
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = NewSessionRegistry(s.sessionTTL, s.now)
	return s
}

// SelectDevice loads a device, local store first, then the remote API, and
// normalizes it.
//
// Any remote failure (missing device, server error, unreachable host, bad
// payload) is treated as "not found". A local store failure does not stop
// the remote lookup; it is returned only when the remote cannot supply the
// device either. A document that does not parse returns an error wrapping
// midnam.ErrMalformedDocument.
//
// Parameters:
//   - ctx: Context for cancellation
//   - ref: Local path, catalog key and optional remote file
//
// Returns:
//   - *Selection: The normalized device and where it came from
//   - error: ErrInvalidRef, ErrDeviceNotFound, the store error, or a
//     normalization error
func (s *Service) SelectDevice(ctx context.Context, ref Ref) (*Selection, error) {
	localPath := ref.Path
	if localPath == "" {
		localPath = ref.File
	}
	if localPath == "" && ref.Key == "" {
		return nil, ErrInvalidRef
	}

	var storeErr error
	if localPath != "" {
		rec, err := s.store.Get(ctx, localPath)
		switch {
		case err != nil:
			storeErr = err
			s.logger.Warn("local lookup failed, trying remote", "path", localPath, "error", err)
		case rec != nil:
			return s.selection(SourceLocal, rec.Path, recordKey(rec, ref.Key), rec.Document, rec)
		}
	}

	if ref.Key != "" && s.remote != nil {
		dev, err := s.remote.Device(ctx, ref.Key, ref.File)
		switch {
		case err == nil:
			return s.selection(SourceRemote, ref.File, ref.Key, dev.Document, nil)
		case errors.Is(err, remote.ErrNotFound), errors.Is(err, remote.ErrDisabled):
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			// Server errors and transport failures count as not found.
			s.logger.Warn("remote lookup failed", "key", ref.Key, "error", err)
		}
	}

	if storeErr != nil {
		return nil, storeErr
	}
	return nil, fmt.Errorf("%w: path=%q key=%q", ErrDeviceNotFound, localPath, ref.Key)
}

func (s *Service) selection(src Source, path, key, document string, rec *localstore.Record) (*Selection, error) {
	view, err := midnam.Normalize(document)
	if err != nil {
		return nil, fmt.Errorf("selecting %s device %q: %w", src, path, err)
	}
	if key == "" || key == "|" {
		key = midnam.DeviceKey(view.Manufacturer, view.Model)
	}
	if missing := view.MissingNoteLists(); len(missing) > 0 {
		s.logger.Debug("patches reference undeclared note lists", "path", path, "lists", missing)
	}
	return &Selection{
		Source:   src,
		Path:     path,
		Key:      key,
		Document: document,
		View:     view,
		Record:   rec,
	}, nil
}

func recordKey(rec *localstore.Record, fallback string) string {
	if rec.Manufacturer == "" && rec.Model == "" {
		return fallback
	}
	return midnam.DeviceKey(rec.Manufacturer, rec.Model)
}

// SaveLocal stores document at path and emits a saved event.
//
// Manufacturer and model are read from the document when it parses;
// otherwise the record is saved without them. Malformed documents are
// still saved so work in progress is never lost.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - path: Record path
//   - document: Document text, well-formed or not
//
// Returns:
//   - localstore.SaveResult: Record ID and whether an existing record was updated
//   - error: Any localstore error, unchanged
func (s *Service) SaveLocal(ctx context.Context, path, document string) (localstore.SaveResult, error) {
	in := localstore.SaveInput{Path: path, Document: document}
	if info, err := midnam.ExtractDeviceInfo(document); err == nil {
		in.Manufacturer = info.Manufacturer
		in.Model = info.Model
	} else {
		s.logger.Debug("saving without device info", "path", path, "error", err)
	}

	res, err := s.store.Save(ctx, in)
	if err != nil {
		return localstore.SaveResult{}, err
	}

	s.emit(Event{
		Type:         EventSaved,
		Path:         path,
		ID:           res.ID,
		IsUpdate:     res.IsUpdate,
		Manufacturer: in.Manufacturer,
		Model:        in.Model,
	}, len(document))
	return res, nil
}

// CreateDevice builds a minimal document for a new device, saves it and
// returns it selected.
//
// It performs the following steps:
//  1. Defaults the path and author
//  2. Refuses to overwrite an existing record
//  3. Builds the document with midnam.NewDeviceDocument
//  4. Saves it through SaveLocal and reads it back as a local selection
//
// Returns:
//   - *Selection: The new device, Source local
//   - error: ErrPathExists when the path is taken, or a store error
func (s *Service) CreateDevice(ctx context.Context, req NewDeviceRequest) (*Selection, error) {
	path := req.Path
	if path == "" {
		path = midnam.DefaultPath(req.Manufacturer, req.Model)
	}
	if req.Author == "" {
		req.Author = s.author
	}

	existing, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathExists, path)
	}

	document, err := midnam.NewDeviceDocument(req.NewDevice)
	if err != nil {
		return nil, fmt.Errorf("creating device document: %w", err)
	}
	if _, err := s.SaveLocal(ctx, path, document); err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s vanished after save", ErrDeviceNotFound, path)
	}
	return s.selection(SourceLocal, path, recordKey(rec, ""), rec.Document, rec)
}

// DeleteLocal removes the record at path and reports whether one existed.
func (s *Service) DeleteLocal(ctx context.Context, path string) (bool, error) {
	removed, err := s.store.Delete(ctx, path)
	if err != nil {
		return false, err
	}
	if removed {
		s.emit(Event{Type: EventDeleted, Path: path}, 0)
	}
	return removed, nil
}

// ClearLocal removes every record.
func (s *Service) ClearLocal(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	s.emit(Event{Type: EventCleared}, 0)
	return nil
}

// Records returns every local record, most recently saved first.
func (s *Service) Records(ctx context.Context) ([]localstore.Record, error) {
	return s.store.GetAll(ctx)
}

// Record returns the local record at path, or ErrDeviceNotFound.
func (s *Service) Record(ctx context.Context, path string) (*localstore.Record, error) {
	rec, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
	}
	return rec, nil
}

// Stats returns local store totals.
func (s *Service) Stats(ctx context.Context) (localstore.Stats, error) {
	return s.store.Stats(ctx)
}

// Catalog returns the remote catalog merged with local records.
//
// Note: If one side fails the other is returned alone; an error is
// returned only when both fail.
func (s *Service) Catalog(ctx context.Context) (catalog.Catalog, error) {
	var (
		remoteCat catalog.Catalog
		remoteErr error
	)
	if s.remote != nil {
		remoteCat, remoteErr = s.remote.Catalog(ctx)
		if remoteErr != nil && !errors.Is(remoteErr, remote.ErrDisabled) {
			s.logger.Warn("remote catalog unavailable, using local records only", "error", remoteErr)
		}
	}

	records, err := s.store.GetAll(ctx)
	if err != nil {
		if remoteErr == nil && remoteCat != nil {
			s.logger.Warn("local store unavailable, using remote catalog only", "error", err)
			return catalog.Merge(remoteCat, nil), nil
		}
		return nil, err
	}
	return catalog.Merge(remoteCat, records), nil
}

func (s *Service) emit(ev Event, sizeBytes int) {
	ev.At = s.now().UTC()
	for _, n := range s.notifiers {
		n.Broadcast(ev.Type, ev)
	}
	s.recorder.RecordActivity(ev.action(), ev.Path, ev.Manufacturer, sizeBytes, ev.IsUpdate)
	s.logger.Info("local store changed", "event", ev.Type, "path", ev.Path, "is_update", ev.IsUpdate)
}
