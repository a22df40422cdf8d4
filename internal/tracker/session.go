package tracker

import (
	"errors"
	"strings"
	"time"
)

// Warning errors are user-correctable and reported back verbatim. Anything
// else returned by the service is a system failure.
var (
	ErrAlreadyActive = errors.New("session already active")
	ErrNotActive     = errors.New("no active session")
	ErrInvalidRange  = errors.New("end time is before start time")
	ErrEmptyTask     = errors.New("task must not be empty")
)

// IsWarning reports whether err belongs to the user-warning class.
func IsWarning(err error) bool {
	return errors.Is(err, ErrAlreadyActive) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrEmptyTask)
}

// Session is an open work session. It lives only in ActiveSessions between
// start and stop and is never mutated after creation.
type Session struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Task        string    `json:"task"`
	StartedAt   time.Time `json:"started_at"`
}

// Record is a completed work session, the durable unit in the session log.
// The display name is snapshotted at completion time and may go stale if the
// user later renames.
type Record struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	DisplayName     string    `json:"display_name"`
	Task            string    `json:"task"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// NewRecord builds a validated Record. It rejects an empty task and a range
// where end precedes start, so a negative duration can never reach the log.
func NewRecord(userID int64, displayName, task string, start, end time.Time) (Record, error) {
	if strings.TrimSpace(task) == "" {
		return Record{}, ErrEmptyTask
	}
	if end.Before(start) {
		return Record{}, ErrInvalidRange
	}
	return Record{
		UserID:          userID,
		DisplayName:     displayName,
		Task:            task,
		StartedAt:       start,
		EndedAt:         end,
		DurationMinutes: end.Sub(start).Minutes(),
	}, nil
}

// Clock supplies the current time. Injectable so session durations are
// testable without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
