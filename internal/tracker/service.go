package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultLogTimeout = 5 * time.Second

// Notifier receives best-effort side-channel notifications about session
// transitions (e.g. toggling a "currently working" role). Implementations
// must not block and must swallow their own failures.
type Notifier interface {
	OnStarted(userID int64)
	OnStopped(userID int64)
}

// Service is the facade a front end calls. It composes the active-session
// table, the durable log and the aggregator, and translates their typed
// results into the warning/failure classes the front end renders.
type Service struct {
	active     *ActiveSessions
	log        Log
	agg        *Aggregator
	notifier   Notifier
	clock      Clock
	logTimeout time.Duration
}

// NewService wires a Service. notifier may be nil; clock defaults to the
// system clock when nil.
func NewService(log Log, notifier Notifier, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		active:     NewActiveSessions(),
		log:        log,
		agg:        NewAggregator(log),
		notifier:   notifier,
		clock:      clock,
		logTimeout: defaultLogTimeout,
	}
}

// StartWork opens a session for the user. Returns ErrAlreadyActive if one is
// open and ErrEmptyTask for a blank task. The notifier fires only after the
// transition succeeded and cannot fail it.
func (s *Service) StartWork(userID int64, displayName, task string) (Session, error) {
	if strings.TrimSpace(task) == "" {
		return Session{}, ErrEmptyTask
	}

	now := s.clock.Now()
	if err := s.active.Start(userID, displayName, task, now); err != nil {
		return Session{}, err
	}

	if s.notifier != nil {
		s.notifier.OnStarted(userID)
	}
	return Session{UserID: userID, DisplayName: displayName, Task: task, StartedAt: now}, nil
}

// StopWork closes the user's open session and appends it to the durable log.
// On a log failure the session has already left the active table; the error
// is surfaced to the caller rather than swallowed, an accepted at-most-once
// persistence risk.
func (s *Service) StopWork(ctx context.Context, userID int64) (Record, error) {
	rec, err := s.active.Stop(userID, s.clock.Now())
	if err != nil {
		return Record{}, err
	}

	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	if err := s.log.Append(lctx, &rec); err != nil {
		slog.Error("completed session not persisted", "user_id", userID, "task", rec.Task, "minutes", rec.DurationMinutes, "error", err)
		return rec, fmt.Errorf("persist session: %w", err)
	}

	if s.notifier != nil {
		s.notifier.OnStopped(userID)
	}
	return rec, nil
}

// ManualEntry appends a completed session directly, bypassing the active
// table. Validation rejects an empty task and end < start.
func (s *Service) ManualEntry(ctx context.Context, userID int64, displayName, task string, start, end time.Time) (Record, error) {
	rec, err := NewRecord(userID, displayName, task, start, end)
	if err != nil {
		return Record{}, err
	}

	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	if err := s.log.Append(lctx, &rec); err != nil {
		return Record{}, fmt.Errorf("persist manual entry: %w", err)
	}
	return rec, nil
}

// Status returns a point-in-time view of all open sessions.
func (s *Service) Status() []Session {
	return s.active.Snapshot()
}

// History returns the user's last n completed sessions, newest first.
func (s *Service) History(ctx context.Context, userID int64, n int) ([]Record, error) {
	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	return s.agg.History(lctx, userID, n)
}

// Stats returns the user's total logged minutes, zero when nothing is logged.
func (s *Service) Stats(ctx context.Context, userID int64) (float64, error) {
	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	return s.agg.Stats(lctx, userID)
}

// Leaderboard returns the top n users by total logged minutes.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]RankedUser, error) {
	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	return s.agg.Leaderboard(lctx, n)
}

// ExportAll returns every completed session for export.
func (s *Service) ExportAll(ctx context.Context) ([]Record, error) {
	lctx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()
	return s.log.All(lctx)
}
