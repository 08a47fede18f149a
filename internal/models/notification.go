package models

import "time"

// Notification types delivered by the service.
const (
	NotificationWatchPartyInvite = "WATCH_PARTY_INVITE"
)

// Notification is a stored user notification.
type Notification struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	ActionURL *string   `db:"action_url" json:"action_url,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationInput is the payload handed to bulk delivery.
type NotificationInput struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"action_url"`
}
