// Package summary posts a periodic leaderboard digest to a chat, driven by
// a cron expression.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"punchclock/internal/config"
	"punchclock/internal/tracker"

	"github.com/adhocore/gronx"
)

// Sender delivers the digest; implemented by the Telegram bot.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type Scheduler struct {
	svc  *tracker.Service
	send Sender
	cfg  config.SummaryConfig
	gron *gronx.Gronx
}

func New(svc *tracker.Service, send Sender, cfg config.SummaryConfig) (*Scheduler, error) {
	g := gronx.New()
	if cfg.Cron == "" {
		return nil, fmt.Errorf("summary cron expression not set")
	}
	if !g.IsValid(cfg.Cron) {
		return nil, fmt.Errorf("invalid summary cron expression: %s", cfg.Cron)
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("summary chat id not set")
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	return &Scheduler{svc: svc, send: send, cfg: cfg, gron: g}, nil
}

// Start polls once a minute and posts the digest whenever the cron
// expression is due. Blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	slog.Info("summary scheduler started", "cron", s.cfg.Cron, "chat_id", s.cfg.ChatID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("summary scheduler stopped")
			return
		case now := <-ticker.C:
			if s.due(now) {
				s.post(ctx)
			}
		}
	}
}

func (s *Scheduler) due(now time.Time) bool {
	due, err := s.gron.IsDue(s.cfg.Cron, now)
	return err == nil && due
}

func (s *Scheduler) post(ctx context.Context) {
	top, err := s.svc.Leaderboard(ctx, s.cfg.TopN)
	if err != nil {
		slog.Error("summary leaderboard query failed", "error", err)
		return
	}

	if err := s.send.SendMessage(ctx, s.cfg.ChatID, Format(top)); err != nil {
		slog.Error("summary post failed", "chat_id", s.cfg.ChatID, "error", err)
	}
}

// Format renders the digest message.
func Format(top []tracker.RankedUser) string {
	if len(top) == 0 {
		return "🏆 Work Leaderboard\n\nNo completed sessions yet."
	}

	var sb strings.Builder
	sb.WriteString("🏆 Work Leaderboard\n\n")
	for i, u := range top {
		fmt.Fprintf(&sb, "%d. %s - %.0f min\n", i+1, u.DisplayName, u.TotalMinutes)
	}
	return strings.TrimRight(sb.String(), "\n")
}
