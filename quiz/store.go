package quiz

import "sync"

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Store owns every Session, keyed by user id. Events for one user are
// serialised by a per-user mutex; different users never wait on each other
// beyond the map lookup.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*entry
	init     func(userID int64) *Session
}

// NewStore creates a store that builds fresh sessions with init.
func NewStore(init func(userID int64) *Session) *Store {
	return &Store{
		sessions: make(map[int64]*entry),
		init:     init,
	}
}

func (st *Store) entry(userID int64) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[userID]
	if !ok {
		e = &entry{session: st.init(userID)}
		st.sessions[userID] = e
	}
	return e
}

// Update runs fn with exclusive access to the user's session, creating the
// session first if needed. fn must not keep the pointer.
func (st *Store) Update(userID int64, fn func(*Session) error) error {
	e := st.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// GetOrCreate returns a snapshot of the user's session.
func (st *Store) GetOrCreate(userID int64) Session {
	var snap Session
	_ = st.Update(userID, func(s *Session) error {
		snap = s.Clone()
		return nil
	})
	return snap
}

// Reset replaces the user's session with a fresh one. The generation keeps
// increasing across resets so pending continuations notice.
func (st *Store) Reset(userID int64) Session {
	var snap Session
	_ = st.Update(userID, func(s *Session) error {
		fresh := st.init(userID)
		fresh.Generation = s.Generation + 1
		*s = *fresh
		snap = s.Clone()
		return nil
	})
	return snap
}

// Len returns the number of known sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
