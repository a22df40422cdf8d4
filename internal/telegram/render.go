package telegram

import (
	"fmt"
	"strings"

	"punchclock/internal/tracker"
)

const sessionTimeLayout = "2006-01-02 15:04"

func formatStatus(sessions []tracker.Session) string {
	if len(sessions) == 0 {
		return "No active work sessions."
	}

	var sb strings.Builder
	sb.WriteString("Active work sessions:\n")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "🔹 %s - %s (since %s)\n", s.DisplayName, s.Task, s.StartedAt.Format("15:04:05"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatHistory(name string, recs []tracker.Record) string {
	if len(recs) == 0 {
		return fmt.Sprintf("No completed sessions for %s yet.", name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂 Last sessions for %s:\n", name)
	for _, r := range recs {
		fmt.Fprintf(&sb, "• %s - %s (%.2f min)\n", r.StartedAt.Format(sessionTimeLayout), r.Task, r.DurationMinutes)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaderboard(top []tracker.RankedUser) string {
	if len(top) == 0 {
		return "No completed sessions yet."
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top workers:\n")
	for i, u := range top {
		fmt.Fprintf(&sb, "%d. %s - %.0f min\n", i+1, u.DisplayName, u.TotalMinutes)
	}
	return strings.TrimRight(sb.String(), "\n")
}
