package models

import "time"

// PartyMessage is a chat message sent in a party. Flagged messages are kept
// for audit review but never broadcast to the room.
type PartyMessage struct {
	ID            int       `db:"id" json:"id"`
	PartyID       int       `db:"party_id" json:"party_id"`
	UserID        int       `db:"user_id" json:"user_id"`
	Message       string    `db:"message" json:"message"`
	IsFlagged     bool      `db:"is_flagged" json:"is_flagged"`
	ToxicityScore float64   `db:"toxicity_score" json:"toxicity_score"`
	FlagReason    *string   `db:"flag_reason" json:"flag_reason,omitempty"`
	IsDeleted     bool      `db:"is_deleted" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ChatMessageView is the client-facing shape of a chat message.
type ChatMessageView struct {
	ID     int       `db:"id" json:"id"`
	Text   string    `db:"text" json:"text"`
	UserID int       `db:"user_id" json:"user_id"`
	User   string    `db:"user" json:"user"`
	Avatar string    `db:"avatar" json:"avatar"`
	Time   time.Time `db:"time" json:"time"`
	IsHost bool      `db:"is_host" json:"is_host"`
}
