package models

import "time"

// Member roles.
const (
	RoleHost        = "host"
	RoleParticipant = "participant"
)

// PartyMember is a (party, user) pairing carrying role/online/ban state.
// Rows are upserted on first join and never deleted, so role and ban history
// survive across sessions.
type PartyMember struct {
	PartyID   int       `db:"party_id" json:"party_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	IsOnline  bool      `db:"is_online" json:"is_online"`
	IsBanned  bool      `db:"is_banned" json:"is_banned"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MemberView is a roster entry enriched with user identity for broadcasts.
type MemberView struct {
	UserID      int    `db:"user_id" json:"user_id"`
	Username    string `db:"username" json:"username"`
	DisplayName string `db:"display_name" json:"display_name"`
	AvatarURL   string `db:"avatar_url" json:"avatar_url"`
	Role        string `db:"role" json:"role"`
	IsOnline    bool   `db:"is_online" json:"is_online"`
	IsBanned    bool   `db:"is_banned" json:"is_banned"`
}
