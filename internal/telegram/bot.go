package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"punchclock/internal/config"
	"punchclock/internal/export"
	"punchclock/internal/tracker"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
)

const (
	defaultHistoryN = 5
	defaultTopN     = 5
	entryLayout     = "2006-01-02T15:04"
	genericFailure  = "Something went wrong, please try again."
)

type Bot struct {
	bot     *telego.Bot
	handler *th.BotHandler
	svc     *tracker.Service
	cfg     config.TelegramConfig
	cancel  context.CancelFunc
}

func NewBot(cfg config.TelegramConfig, svc *tracker.Service) (*Bot, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Bot{
		bot: bot,
		svc: svc,
		cfg: cfg,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	updates, err := b.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.bot, updates)
	if err != nil {
		cancel()
		return fmt.Errorf("create handler: %w", err)
	}
	b.handler = handler

	handler.HandleMessage(func(hctx *th.Context, message telego.Message) error {
		b.handleMessage(ctx, message)
		return nil
	})

	go handler.Start()

	<-ctx.Done()
	_ = handler.Stop()
	return nil
}

func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.handler != nil {
		_ = b.handler.Stop()
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg telego.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	// Check allow list
	if len(b.cfg.AllowFrom) > 0 {
		allowed := false
		for _, id := range b.cfg.AllowFrom {
			if id == userID {
				allowed = true
				break
			}
		}
		if !allowed {
			slog.Warn("unauthorized telegram user", "user_id", userID, "chat_id", chatID)
			return
		}
	}

	cmd, args := parseCommand(msg.Text)
	if cmd == "" {
		return
	}

	name := displayName(msg.From)

	switch cmd {
	case "startwork":
		b.handleStartWork(ctx, chatID, userID, name, args)
	case "stopwork":
		b.handleStopWork(ctx, chatID, userID, name)
	case "status":
		b.handleStatus(ctx, chatID)
	case "history":
		b.handleHistory(ctx, chatID, userID, name, args)
	case "stats":
		b.handleStats(ctx, chatID, userID, name)
	case "top":
		b.handleTop(ctx, chatID, args)
	case "log":
		b.handleLog(ctx, chatID, userID, name, args)
	case "export":
		b.handleExport(ctx, chatID)
	case "help", "start":
		b.reply(ctx, chatID, usageText)
	}
}

func (b *Bot) handleStartWork(ctx context.Context, chatID, userID int64, name, task string) {
	sess, err := b.svc.StartWork(userID, name, task)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("⏳ %s started working on %s at %s.",
		sess.DisplayName, sess.Task, sess.StartedAt.Format("15:04:05")))
}

func (b *Bot) handleStopWork(ctx context.Context, chatID, userID int64, name string) {
	rec, err := b.svc.StopWork(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ %s stopped working on %s. Duration: %.2f minutes.",
		name, rec.Task, rec.DurationMinutes))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, formatStatus(b.svc.Status()))
}

func (b *Bot) handleHistory(ctx context.Context, chatID, userID int64, name, args string) {
	n := parseCount(args, defaultHistoryN)
	recs, err := b.svc.History(ctx, userID, n)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatHistory(name, recs))
}

func (b *Bot) handleStats(ctx context.Context, chatID, userID int64, name string) {
	total, err := b.svc.Stats(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("📊 %s has logged %.2f minutes in total.", name, total))
}

func (b *Bot) handleTop(ctx context.Context, chatID int64, args string) {
	n := parseCount(args, defaultTopN)
	top, err := b.svc.Leaderboard(ctx, n)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, formatLeaderboard(top))
}

func (b *Bot) handleLog(ctx context.Context, chatID, userID int64, name, args string) {
	start, end, task, perr := parseManualEntry(args)
	if perr != nil {
		b.reply(ctx, chatID, perr.Error())
		return
	}

	rec, err := b.svc.ManualEntry(ctx, userID, name, task, start, end)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Logged %s for %s: %.2f minutes.",
		rec.Task, name, rec.DurationMinutes))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) {
	records, err := b.svc.ExportAll(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(records) == 0 {
		b.reply(ctx, chatID, "No logs available to export.")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, records); err != nil {
		slog.Error("csv export failed", "error", err)
		b.reply(ctx, chatID, genericFailure)
		return
	}

	doc := tu.Document(tu.ID(chatID), tu.File(tu.NameReader(&buf, "work_sessions.csv")))
	if _, err := b.bot.SendDocument(ctx, doc); err != nil {
		slog.Error("send export document failed", "chat", chatID, "error", err)
		b.reply(ctx, chatID, genericFailure)
	}
}

// replyError renders warnings verbatim; anything else is a system failure
// that gets logged with a generic message to the user.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	if tracker.IsWarning(err) {
		b.reply(ctx, chatID, warningText(err))
		return
	}
	slog.Error("command failed", "chat", chatID, "error", err)
	b.reply(ctx, chatID, genericFailure)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("failed to send telegram message", "chat", chatID, "error", err)
	}
}

func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	chunks := chunkMessage(text, 4096)
	for _, chunk := range chunks {
		msg := tu.Message(tu.ID(chatID), chunk)
		_, err := b.bot.SendMessage(ctx, msg)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func warningText(err error) string {
	switch {
	case errors.Is(err, tracker.ErrAlreadyActive):
		return "You're already tracking a session! Stop it first with /stopwork."
	case errors.Is(err, tracker.ErrNotActive):
		return "You haven't started tracking yet! Start with /startwork <task>."
	case errors.Is(err, tracker.ErrEmptyTask):
		return "Tell me what you're working on: /startwork <task>."
	case errors.Is(err, tracker.ErrInvalidRange):
		return "The end time must not be before the start time."
	}
	return err.Error()
}

// parseCommand extracts the command name and its argument string from a
// message. The @botname suffix used in group chats is stripped.
func parseCommand(text string) (cmd, args string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	rest := strings.TrimPrefix(text, "/")
	parts := strings.SplitN(rest, " ", 2)
	cmd = parts[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return strings.ToLower(cmd), args
}

func parseCount(args string, def int) int {
	if args == "" {
		return def
	}
	n, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// parseManualEntry parses "/log <start> <end> <task...>" arguments with
// times in the 2006-01-02T15:04 layout, local time.
func parseManualEntry(args string) (start, end time.Time, task string, err error) {
	usage := errors.New("Usage: /log <start> <end> <task>, times as 2006-01-02T15:04.")

	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 3 {
		return time.Time{}, time.Time{}, "", usage
	}

	start, perr := time.ParseInLocation(entryLayout, fields[0], time.Local)
	if perr != nil {
		return time.Time{}, time.Time{}, "", usage
	}
	end, perr = time.ParseInLocation(entryLayout, fields[1], time.Local)
	if perr != nil {
		return time.Time{}, time.Time{}, "", usage
	}

	task = strings.TrimSpace(fields[2])
	return start, end, task, nil
}

func displayName(u *telego.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	return name
}

const usageText = `Track your work sessions:
/startwork <task> - start tracking
/stopwork - stop tracking
/status - who is working right now
/history [n] - your last sessions
/stats - your total minutes
/top [n] - leaderboard
/log <start> <end> <task> - add a past session (2006-01-02T15:04)
/export - download all sessions as CSV`
