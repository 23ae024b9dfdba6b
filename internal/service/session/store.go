package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"visiondash/internal/model"
)

// CookieName holds the browser session id.
const CookieName = "vd_session"

// State is what the dashboard remembers for one browser between requests.
type State struct {
	Upload   *model.Upload
	Result   *model.RunResult
	Error    string // last failure shown as a banner
	LastSeen time.Time
}

// Store keeps per-session state in memory. Upload and Result are each
// replaced as a whole, never patched.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store that forgets sessions idle for longer than ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*State),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Get returns a copy of the state for id. The zero State is returned for
// unknown ids.
func (s *Store) Get(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		return State{}
	}
	st.LastSeen = s.now()
	return *st
}

// SetUpload stores a new pending upload and clears the last error. The
// previous RunResult stays visible until the next run replaces it.
func (s *Store) SetUpload(id string, upload *model.Upload) {
	s.update(id, func(st *State) {
		st.Upload = upload
		st.Error = ""
	})
}

// SetResult replaces the last RunResult.
func (s *Store) SetResult(id string, result *model.RunResult) {
	s.update(id, func(st *State) {
		st.Result = result
		st.Error = ""
	})
}

// SetError records a failure message without touching Upload or Result.
func (s *Store) SetError(id, msg string) {
	s.update(id, func(st *State) {
		st.Error = msg
	})
}

// Delete forgets a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) update(id string, fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[id]
	if !ok {
		st = &State{}
		s.sessions[id] = st
	}
	fn(st)
	st.LastSeen = s.now()
}

// Evict drops sessions idle for longer than the ttl and returns how many
// were removed.
func (s *Store) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, st := range s.sessions {
		if st.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run evicts idle sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-ctx.Done():
			return
		}
	}
}
