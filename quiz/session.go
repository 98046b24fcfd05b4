// Package quiz holds per-user quiz progression: sessions, the store that
// owns them, the engine that moves them through a cycle, and the scheduler
// for delayed auto-advance.
package quiz

import "errors"

var (
	// ErrNoQuestions is returned when the question bank is empty.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoActiveQuestion is returned for answers with no matching
	// question awaiting one (stale button, double tap, reset in between).
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrMalformedEvent is returned for payloads that cannot be interpreted.
	ErrMalformedEvent = errors.New("malformed event")
)

// State is the derived position of a session in its cycle.
type State int

const (
	Idle State = iota
	AwaitingAnswer
	InProgress
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAnswer:
		return "awaiting_answer"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	}
	return "unknown"
}

const noQuestion = -1

// Session is the mutable quiz progress of one user.
// Indexes in Pool, Presented and Current refer to the question bank.
type Session struct {
	UserID   int64
	Correct  int
	Answered int

	Pool      []int // not yet asked, front is next
	Presented []int // asked this cycle, in order
	History   []int // question numbers answered this cycle
	Current   int   // awaiting an answer, noQuestion when none

	// Generation changes on every transition that makes a pending
	// auto-advance stale.
	Generation uint64
	Cycle      int
}

func newSession(userID int64, pool []int) *Session {
	return &Session{
		UserID:  userID,
		Pool:    pool,
		Current: noQuestion,
	}
}

// HasCurrent reports whether a question is awaiting an answer.
func (s Session) HasCurrent() bool {
	return s.Current != noQuestion
}

// State derives the session state from its fields.
func (s Session) State() State {
	switch {
	case s.HasCurrent():
		return AwaitingAnswer
	case len(s.Presented) == 0:
		return Idle
	case len(s.Pool) == 0:
		return Complete
	default:
		return InProgress
	}
}

// Clone returns a deep copy safe to read without the session lock.
func (s *Session) Clone() Session {
	c := *s
	c.Pool = append([]int(nil), s.Pool...)
	c.Presented = append([]int(nil), s.Presented...)
	c.History = append([]int(nil), s.History...)
	return c
}
