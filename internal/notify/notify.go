// Package notify publishes session lifecycle events to the bus as a
// best-effort side channel. A failed publish is logged and never propagates
// into the start/stop transition that triggered it.
package notify

import (
	"log/slog"
	"time"

	"punchclock/internal/natsbus"

	"github.com/google/uuid"
)

// Publisher is the slice of the bus client the notifier needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Event is the payload published on session transitions.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"` // "started" or "stopped"
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

type Notifier struct {
	pub Publisher
}

func New(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) OnStarted(userID int64) {
	n.publish(natsbus.TopicSessionStarted(userID), "started", userID)
}

func (n *Notifier) OnStopped(userID int64) {
	n.publish(natsbus.TopicSessionStopped(userID), "stopped", userID)
}

func (n *Notifier) publish(topic, typ string, userID int64) {
	event := Event{
		ID:     uuid.NewString(),
		Type:   typ,
		UserID: userID,
		At:     time.Now(),
	}
	go func() {
		if err := n.pub.PublishJSON(topic, event); err != nil {
			slog.Warn("session event publish failed", "topic", topic, "user_id", userID, "error", err)
		}
	}()
}
