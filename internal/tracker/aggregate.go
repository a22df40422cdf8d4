package tracker

import (
	"context"
	"fmt"
	"sort"
)

// Log is the contract the tracker requires of the durable session store.
// Implementations must make Append durable before returning.
type Log interface {
	Append(ctx context.Context, rec *Record) error
	All(ctx context.Context) ([]Record, error)
	ByUser(ctx context.Context, userID int64, limit int) ([]Record, error)
	Totals(ctx context.Context) (map[string]float64, error)
}

// RankedUser is one leaderboard row.
type RankedUser struct {
	DisplayName  string  `json:"display_name"`
	TotalMinutes float64 `json:"total_minutes"`
}

// Aggregator computes read-side reports from the durable log. Open sessions
// never count; only completed, persisted work does.
type Aggregator struct {
	log Log
}

func NewAggregator(log Log) *Aggregator {
	return &Aggregator{log: log}
}

// Stats returns the total minutes the user has logged across all records.
// A user with no records has zero minutes, not an error.
func (a *Aggregator) Stats(ctx context.Context, userID int64) (float64, error) {
	recs, err := a.log.ByUser(ctx, userID, 0)
	if err != nil {
		return 0, fmt.Errorf("query user records: %w", err)
	}

	var total float64
	for _, r := range recs {
		total += r.DurationMinutes
	}
	return total, nil
}

// Leaderboard returns the top n users by total logged minutes, descending,
// with ties broken by display name ascending.
func (a *Aggregator) Leaderboard(ctx context.Context, n int) ([]RankedUser, error) {
	totals, err := a.log.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}

	ranked := make([]RankedUser, 0, len(totals))
	for name, minutes := range totals {
		ranked = append(ranked, RankedUser{DisplayName: name, TotalMinutes: minutes})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalMinutes != ranked[j].TotalMinutes {
			return ranked[i].TotalMinutes > ranked[j].TotalMinutes
		}
		return ranked[i].DisplayName < ranked[j].DisplayName
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// History returns the user's last n completed sessions, most recent start
// first.
func (a *Aggregator) History(ctx context.Context, userID int64, n int) ([]Record, error) {
	recs, err := a.log.ByUser(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return recs, nil
}
