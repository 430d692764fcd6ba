package entities

import "time"

// ChatEvent is a normalized inbound chat message
type ChatEvent struct {
	MessageID string
	UserID    string
	UserLogin string
	UserRole  Role
	Channel   string
	Text      string
	Timestamp time.Time
}
