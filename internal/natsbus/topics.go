package natsbus

import "fmt"

// Topic patterns for session lifecycle events.

func TopicSessionStarted(userID int64) string {
	return fmt.Sprintf("session.%d.started", userID)
}

func TopicSessionStopped(userID int64) string {
	return fmt.Sprintf("session.%d.stopped", userID)
}

const TopicSessionsAll = "session.>"
