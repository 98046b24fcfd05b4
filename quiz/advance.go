package quiz

import (
	"sync"
	"time"
)

// Advancer runs at most one delayed continuation per user. Scheduling a new
// one for the same user replaces the pending one.
type Advancer struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	stopped bool
}

func NewAdvancer() *Advancer {
	return &Advancer{timers: make(map[int64]*time.Timer)}
}

// Schedule runs fn after delay unless it is cancelled or superseded first.
// fn runs on its own goroutine.
func (a *Advancer) Schedule(userID int64, delay time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	if old, ok := a.timers[userID]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		a.mu.Lock()
		if a.timers[userID] != t {
			a.mu.Unlock()
			return
		}
		delete(a.timers, userID)
		a.mu.Unlock()
		fn()
	})
	a.timers[userID] = t
}

// Cancel stops the user's pending continuation, if any.
func (a *Advancer) Cancel(userID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.timers[userID]
	if !ok {
		return false
	}
	delete(a.timers, userID)
	return t.Stop()
}

// Pending returns the number of armed continuations.
func (a *Advancer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

// Stop cancels everything and refuses further scheduling.
func (a *Advancer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
}
