package summary

import (
	"strings"
	"testing"
	"time"

	"punchclock/internal/config"
	"punchclock/internal/tracker"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, nil, config.SummaryConfig{Cron: "", ChatID: 1}); err == nil {
		t.Error("expected error for empty cron")
	}
	if _, err := New(nil, nil, config.SummaryConfig{Cron: "not a cron", ChatID: 1}); err == nil {
		t.Error("expected error for invalid cron")
	}
	if _, err := New(nil, nil, config.SummaryConfig{Cron: "0 18 * * *", ChatID: 0}); err == nil {
		t.Error("expected error for missing chat id")
	}

	s, err := New(nil, nil, config.SummaryConfig{Cron: "0 18 * * 1-5", ChatID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cfg.TopN != 5 {
		t.Errorf("expected top_n default 5, got %d", s.cfg.TopN)
	}
}

func TestSchedulerDue(t *testing.T) {
	s, err := New(nil, nil, config.SummaryConfig{Cron: "0 18 * * *", ChatID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	at := time.Date(2024, 6, 3, 18, 0, 30, 0, time.UTC)
	if !s.due(at) {
		t.Errorf("expected %v to be due for %q", at, s.cfg.Cron)
	}
	if s.due(at.Add(time.Minute)) {
		t.Errorf("expected %v not to be due for %q", at.Add(time.Minute), s.cfg.Cron)
	}
}

func TestFormat(t *testing.T) {
	got := Format([]tracker.RankedUser{
		{DisplayName: "Bob", TotalMinutes: 50},
		{DisplayName: "Carol", TotalMinutes: 50},
		{DisplayName: "Alice", TotalMinutes: 30},
	})

	lines := strings.Split(got, "\n")
	if lines[0] != "🏆 Work Leaderboard" {
		t.Errorf("unexpected title: %q", lines[0])
	}
	if lines[2] != "1. Bob - 50 min" {
		t.Errorf("unexpected first rank: %q", lines[2])
	}
	if lines[4] != "3. Alice - 30 min" {
		t.Errorf("unexpected third rank: %q", lines[4])
	}
}

func TestFormatEmpty(t *testing.T) {
	got := Format(nil)
	if !strings.Contains(got, "No completed sessions yet") {
		t.Errorf("unexpected empty digest: %q", got)
	}
}
