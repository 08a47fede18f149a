package models

import "database/sql"

// User is the identity record resolved during authentication.
type User struct {
	ID          int            `db:"id" json:"id"`
	Username    string         `db:"username" json:"username"`
	DisplayName sql.NullString `db:"display_name" json:"display_name"`
	AvatarURL   sql.NullString `db:"avatar_url" json:"avatar_url"`
}

// Name prefers the display name and falls back to the username.
func (u User) Name() string {
	if u.DisplayName.Valid && u.DisplayName.String != "" {
		return u.DisplayName.String
	}
	return u.Username
}

// Avatar returns the avatar URL or an empty string.
func (u User) Avatar() string {
	if u.AvatarURL.Valid {
		return u.AvatarURL.String
	}
	return ""
}
