package tracker

import (
	"sync"
	"time"
)

// ActiveSessions is the process-wide table of open sessions, at most one per
// user. A single mutex guards the whole table; start and stop are
// indivisible with respect to each other, which is what upholds the
// one-open-session-per-user invariant under concurrent commands.
type ActiveSessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	order    []int64
}

func NewActiveSessions() *ActiveSessions {
	return &ActiveSessions{
		sessions: make(map[int64]Session),
	}
}

// Start inserts an open session for userID, or returns ErrAlreadyActive if
// one exists. The check-and-insert happens under the lock, so two concurrent
// starts for the same user yield exactly one success.
func (a *ActiveSessions) Start(userID int64, displayName, task string, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sessions[userID]; ok {
		return ErrAlreadyActive
	}

	a.sessions[userID] = Session{
		UserID:      userID,
		DisplayName: displayName,
		Task:        task,
		StartedAt:   now,
	}
	a.order = append(a.order, userID)
	return nil
}

// Stop removes the open session for userID and converts it into a Record
// ending at now. Returns ErrNotActive if the user has no open session.
func (a *ActiveSessions) Stop(userID int64, now time.Time) (Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sess, ok := a.sessions[userID]
	if !ok {
		return Record{}, ErrNotActive
	}

	rec, err := NewRecord(sess.UserID, sess.DisplayName, sess.Task, sess.StartedAt, now)
	if err != nil {
		// Clock moved backwards past the session start. Keep the session
		// open rather than fabricating a negative duration.
		return Record{}, err
	}

	delete(a.sessions, userID)
	for i, id := range a.order {
		if id == userID {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}

	return rec, nil
}

// Snapshot returns a point-in-time copy of the open sessions in insertion
// order. The slice is independent of later mutations.
func (a *ActiveSessions) Snapshot() []Session {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Session, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.sessions[id])
	}
	return out
}

// Len returns the number of open sessions.
func (a *ActiveSessions) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}
