package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nerrad567/midnam-core/internal/midnam"
	"github.com/nerrad567/midnam-core/internal/preview"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// DefaultChannel is the MIDI channel of a new session.
const DefaultChannel = 1

// Session is the editing state of one client: the selected device, patch
// list, patch and MIDI channel.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`

	Device         *Selection `json:"device,omitempty"`
	PatchListIndex int        `json:"patchListIndex"`
	PatchIndex     int        `json:"patchIndex"`
	Channel        int        `json:"channel"`
}

// PatchList returns the selected patch list, or nil.
func (s *Session) PatchList() *midnam.PatchList {
	if s.Device == nil || s.Device.View == nil {
		return nil
	}
	lists := s.Device.View.PatchLists
	if s.PatchListIndex < 0 || s.PatchListIndex >= len(lists) {
		return nil
	}
	return &lists[s.PatchListIndex]
}

// SessionRegistry holds sessions in memory. Sessions idle for longer than
// the TTL are dropped on access and by Sweep.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionRegistry creates a registry. A non-positive ttl uses
// DefaultSessionTTL and a nil clock uses time.Now.
func NewSessionRegistry(ttl time.Duration, now func() time.Time) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      now,
	}
}

// Create adds a session with no device selected.
func (r *SessionRegistry) Create() Session {
	now := r.now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		LastSeen:  now,
		Channel:   DefaultChannel,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return *s
}

// Get returns a copy of the session and marks it as seen.
func (r *SessionRegistry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.LastSeen = r.now().UTC()
	return *s, nil
}

// Update applies fn to the session under the registry lock. The session is
// left unchanged when fn returns an error.
func (r *SessionRegistry) Update(id string, fn func(*Session) error) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}
	next := *s
	if err := fn(&next); err != nil {
		return Session{}, err
	}
	next.ID = s.ID
	next.CreatedAt = s.CreatedAt
	next.LastSeen = r.now().UTC()
	*s = next
	return next, nil
}

// Delete removes a session and reports whether it existed.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Sweep removes expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, s := range r.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of sessions, expired ones included until swept.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// lookup must be called with r.mu held.
func (r *SessionRegistry) lookup(id string) (*Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if r.now().Sub(s.LastSeen) > r.ttl {
		delete(r.sessions, id)
		return nil, fmt.Errorf("%w: %s expired", ErrSessionNotFound, id)
	}
	return s, nil
}

// Sessions returns the registry backing the Service's session operations.
func (s *Service) Sessions() *SessionRegistry {
	return s.sessions
}

// OpenSession creates a session. When ref names a device it is selected
// straight away; a failed selection creates no session.
func (s *Service) OpenSession(ctx context.Context, ref *Ref) (Session, error) {
	var sel *Selection
	if ref != nil {
		var err error
		if sel, err = s.SelectDevice(ctx, *ref); err != nil {
			return Session{}, err
		}
	}

	sess := s.sessions.Create()
	if sel == nil {
		return sess, nil
	}
	return s.sessions.Update(sess.ID, func(ss *Session) error {
		ss.Device = sel
		return nil
	})
}

// Session returns a session by ID.
func (s *Service) Session(id string) (Session, error) {
	return s.sessions.Get(id)
}

// CloseSession removes a session and reports whether it existed.
func (s *Service) CloseSession(id string) bool {
	return s.sessions.Delete(id)
}

// SelectSessionDevice selects a device in an existing session and resets
// the patch selection.
func (s *Service) SelectSessionDevice(ctx context.Context, id string, ref Ref) (Session, error) {
	if _, err := s.sessions.Get(id); err != nil {
		return Session{}, err
	}
	sel, err := s.SelectDevice(ctx, ref)
	if err != nil {
		return Session{}, err
	}
	return s.sessions.Update(id, func(ss *Session) error {
		ss.Device = sel
		ss.PatchListIndex = 0
		ss.PatchIndex = 0
		return nil
	})
}

// PatchSelection picks a patch in a session. A zero Channel keeps the
// session's channel.
type PatchSelection struct {
	PatchListIndex int `json:"patchListIndex"`
	PatchIndex     int `json:"patchIndex"`
	Channel        int `json:"channel,omitempty"`
}

// SelectPatch records the patch selection and, when preview is configured,
// sends the bank select and program change for it. The returned payload is
// nil without a player.
func (s *Service) SelectPatch(ctx context.Context, id string, ps PatchSelection) (Session, *preview.Payload, error) {
	sess, err := s.sessions.Update(id, func(ss *Session) error {
		if ss.Device == nil || ss.Device.View == nil {
			return ErrNoDevice
		}
		lists := ss.Device.View.PatchLists
		if ps.PatchListIndex < 0 || ps.PatchListIndex >= len(lists) {
			return fmt.Errorf("%w: patch list %d of %d", ErrPatchOutOfRange, ps.PatchListIndex, len(lists))
		}
		patches := lists[ps.PatchListIndex].Patches
		if ps.PatchIndex < 0 || ps.PatchIndex >= len(patches) {
			return fmt.Errorf("%w: patch %d of %d", ErrPatchOutOfRange, ps.PatchIndex, len(patches))
		}
		ss.PatchListIndex = ps.PatchListIndex
		ss.PatchIndex = ps.PatchIndex
		if ps.Channel != 0 {
			ss.Channel = ps.Channel
		}
		return nil
	})
	if err != nil {
		return Session{}, nil, err
	}
	if s.player == nil {
		return sess, nil, nil
	}

	pl := sess.PatchList()
	payload, err := s.player.PlayPatch(ctx, sess.Device.Key, sess.Channel, *pl, pl.Patches[sess.PatchIndex])
	if err != nil {
		return sess, nil, err
	}
	return sess, &payload, nil
}

// AuditionNote plays one note of the session's device on its channel.
func (s *Service) AuditionNote(ctx context.Context, id string, note int) error {
	if s.player == nil {
		return ErrPreviewDisabled
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return err
	}
	if sess.Device == nil {
		return ErrNoDevice
	}
	return s.player.AuditionNote(ctx, sess.Device.Key, sess.Channel, note)
}

// SweepSessions drops expired sessions.
func (s *Service) SweepSessions() int {
	n := s.sessions.Sweep()
	if n > 0 {
		s.logger.Debug("expired sessions removed", "count", n)
	}
	return n
}
