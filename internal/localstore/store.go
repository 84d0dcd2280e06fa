package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// timeFormat is fixed width so text ordering in SQL matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Opener opens the engine behind a Store. It is called at most once.
type Opener func(ctx context.Context) (*sql.DB, error)

// Logger defines the logging interface used by the Store.
// logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var errClosed = errors.New("store closed")

// Store persists device records keyed by path.
//
// The engine is opened lazily by the first operation. Concurrent first
// callers wait for the same open; the outcome, handle or error, is kept for
// the lifetime of the Store.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Each operation is its own
//     transaction; there are no multi-operation transactions.
type Store struct {
	open       Opener
	now        func() time.Time
	newID      func() string
	quotaBytes int64
	logger     Logger

	initOnce sync.Once
	ready    chan struct{}
	db       *sql.DB
	initErr  error

	mu     sync.Mutex
	closed bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Tests use it to freeze time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithQuota caps the summed document size in bytes. Zero or less disables it.
func WithQuota(bytes int64) Option {
	return func(s *Store) { s.quotaBytes = bytes }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store over the given opener.
//
// Nothing is opened until the first operation, so midnamd can start and
// serve health checks even when the database file is unusable.
//
// Parameters:
//   - open: Opens the engine; usually database.Opener(cfg.Database)
//   - opts: WithQuota, WithLogger or WithClock
//
// Returns:
//   - *Store: Store ready for use; never nil
func New(open Opener, opts ...Option) *Store {
	s := &Store{
		open:   open,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: noopLogger{},
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// conn returns the engine handle, opening it on first use.
func (s *Store) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, errClosed)
	}

	s.initOnce.Do(func() {
		// Detached from the caller: a cancelled first request must not
		// poison the shared outcome for everyone else.
		openCtx := context.WithoutCancel(ctx)
		go func() {
			defer close(s.ready)
			if s.open == nil {
				s.initErr = errors.New("no opener configured")
				return
			}
			s.db, s.initErr = s.open(openCtx)
			if s.initErr != nil {
				s.logger.Error("local store unavailable", "error", s.initErr)
				return
			}
			s.logger.Debug("local store opened")
		}()
	})

	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if s.initErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, s.initErr)
	}
	return s.db, nil
}

// HealthCheck opens the store if needed and verifies the engine responds.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: ErrStoreUnavailable if the engine cannot be opened or pinged
func (s *Store) HealthCheck(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Save inserts the record, or updates the record with the same path in place.
//
// It performs the following steps in one transaction:
//  1. Checks the quota, not counting the record being replaced
//  2. Upserts by path, keeping ID and CreatedAt on update
//  3. Reports whether the path already existed
//
// An update replaces Document, Manufacturer, Model and SavedAt. The
// existence check and the write are one statement, so two concurrent saves
// to a new path cannot create two records.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - in: Path and document plus the header fields shown in listings
//
// Returns:
//   - SaveResult: Record ID and whether an existing record was updated
//   - error: ErrInvalidPath, ErrQuotaExceeded, ErrStoreUnavailable or ErrWriteFailed
func (s *Store) Save(ctx context.Context, in SaveInput) (SaveResult, error) {
	if strings.TrimSpace(in.Path) == "" {
		return SaveResult{}, ErrInvalidPath
	}

	db, err := s.conn(ctx)
	if err != nil {
		return SaveResult{}, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, s.writeError("starting transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if s.quotaBytes > 0 {
		if err := s.checkQuota(ctx, tx, in); err != nil {
			return SaveResult{}, err
		}
	}

	now := s.now().UTC().Format(timeFormat)
	candidateID := s.newID()

	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO device_records (id, path, document, manufacturer, model, saved_at, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM device_records))
		ON CONFLICT(path) DO UPDATE SET
			document = excluded.document,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			saved_at = excluded.saved_at,
			seq = excluded.seq
		RETURNING id`,
		candidateID, in.Path, in.Document, in.Manufacturer, in.Model, now, now,
	).Scan(&id)
	if err != nil {
		return SaveResult{}, s.writeError("saving record", err)
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, s.writeError("committing record", err)
	}

	result := SaveResult{ID: id, IsUpdate: id != candidateID}
	s.logger.Debug("record saved",
		"path", in.Path,
		"id", id,
		"is_update", result.IsUpdate,
		"size_bytes", len(in.Document),
	)
	return result, nil
}

// checkQuota fails with ErrQuotaExceeded when saving in would push the total
// document size past the quota. The record being replaced is not counted.
func (s *Store) checkQuota(ctx context.Context, tx *sql.Tx, in SaveInput) error {
	var others int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(CAST(document AS BLOB))), 0) FROM device_records WHERE path <> ?`,
		in.Path,
	).Scan(&others)
	if err != nil {
		return fmt.Errorf("measuring store size: %w", err)
	}
	if others+int64(len(in.Document)) > s.quotaBytes {
		s.logger.Warn("local store quota exceeded",
			"path", in.Path,
			"used_bytes", others,
			"document_bytes", len(in.Document),
			"quota_bytes", s.quotaBytes,
		)
		return ErrQuotaExceeded
	}
	return nil
}

// writeError maps engine write failures onto the package errors.
func (s *Store) writeError(op string, err error) error {
	if isFullError(err) {
		return fmt.Errorf("%w: %s: %w", ErrQuotaExceeded, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isFullError reports whether SQLite refused the write because the database
// or disk is full.
func isFullError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrFull
}

const selectColumns = `SELECT id, path, document, manufacturer, model, saved_at, created_at FROM device_records`

// Get returns the record stored at path.
//
// Returns:
//   - *Record: The stored record, or nil when there is none
//   - error: ErrStoreUnavailable or a read failure; never for a missing path
func (s *Store) Get(ctx context.Context, path string) (*Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := scanRecord(db.QueryRowContext(ctx, selectColumns+` WHERE path = ?`, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil //nolint:nilnil // Absent is a normal result
		}
		return nil, fmt.Errorf("querying record by path: %w", err)
	}
	return rec, nil
}

// GetAll returns every record, most recently saved first. Records saved at the
// same instant are ordered by write sequence, latest first.
func (s *Store) GetAll(ctx context.Context) ([]Record, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectColumns+` ORDER BY saved_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

// Delete removes the record at path.
//
// Returns:
//   - bool: true if a record was removed, false when nothing was there
//   - error: ErrStoreUnavailable or ErrWriteFailed
func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM device_records WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("deleting record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Debug("record deleted", "path", path)
	}
	return n > 0, nil
}

// ClearAll removes every record.
func (s *Store) ClearAll(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM device_records`)
	if err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // Count is only logged
	s.logger.Info("local store cleared", "records", n)
	return nil
}

// Stats returns the record count, summed document size and number of
// distinct manufacturers, read in a single query.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(LENGTH(CAST(document AS BLOB))), 0),
			COUNT(DISTINCT manufacturer)
		FROM device_records`,
	).Scan(&st.Count, &st.TotalSizeBytes, &st.DistinctManufacturers)
	if err != nil {
		return Stats{}, fmt.Errorf("querying stats: %w", err)
	}
	return st, nil
}

// Close releases the engine handle.
//
// Operations after Close fail with ErrStoreUnavailable.
//
// Note: Close on a never-opened Store opens nothing.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.initOnce.Do(func() {
		s.initErr = errClosed
		close(s.ready)
	})
	<-s.ready

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing local store: %w", err)
	}
	return nil
}

// rowScanner is implemented by both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var savedAt, createdAt string
	if err := row.Scan(&r.ID, &r.Path, &r.Document, &r.Manufacturer, &r.Model, &savedAt, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if r.SavedAt, err = time.Parse(timeFormat, savedAt); err != nil {
		return nil, fmt.Errorf("parsing saved_at: %w", err)
	}
	if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &r, nil
}
