package models

import (
	"database/sql"
	"time"
)

// Party phase filters used by the lobby listing.
const (
	FilterLive      = "live"
	FilterScheduled = "scheduled"
	FilterEnded     = "ended"
)

// Party represents a watch-party room.
type Party struct {
	ID              int        `db:"id" json:"id"`
	HostUserID      int        `db:"host_user_id" json:"host_user_id"`
	Title           string     `db:"title" json:"title"`
	MovieID         int        `db:"movie_id" json:"movie_id"`
	EpisodeID       int        `db:"episode_id" json:"episode_id"`
	IsPrivate       bool       `db:"is_private" json:"is_private"`
	JoinCode        *string    `db:"join_code" json:"join_code,omitempty"`
	ScheduledAt     *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	Is30mNotified   bool       `db:"is_30m_notified" json:"-"`
	IsStartNotified bool       `db:"is_start_notified" json:"-"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// PartyListing is the lobby view of a party, joined with movie, host and
// online viewer count.
type PartyListing struct {
	ID            int            `db:"id" json:"id"`
	HostID        int            `db:"host_user_id" json:"host_id"`
	Title         string         `db:"title" json:"title"`
	MovieTitle    string         `db:"movie_title" json:"movie_title"`
	MediaType     string         `db:"media_type" json:"-"`
	PosterURL     sql.NullString `db:"poster_url" json:"-"`
	BackdropURL   sql.NullString `db:"backdrop_url" json:"-"`
	Image         string         `db:"-" json:"image,omitempty"`
	Host          string         `db:"host_name" json:"host"`
	HostAvatar    sql.NullString `db:"host_avatar" json:"host_avatar"`
	Viewers       int            `db:"viewers" json:"viewers"`
	IsPrivate     bool           `db:"is_private" json:"is_private"`
	Status        string         `db:"-" json:"status"`
	ScheduledAt   *time.Time     `db:"scheduled_at" json:"scheduled_at,omitempty"`
	EndedAt       time.Time      `db:"updated_at" json:"ended_at"`
	SeasonNumber  sql.NullInt64  `db:"season_number" json:"-"`
	EpisodeNumber sql.NullInt64  `db:"episode_number" json:"-"`
	EpisodeTitle  sql.NullString `db:"episode_title" json:"-"`
	EpisodeInfo   *EpisodeInfo   `db:"-" json:"episode_info,omitempty"`
}

// EpisodeInfo is the season/episode pair attached to TV listings.
type EpisodeInfo struct {
	Season  int `json:"season"`
	Episode int `json:"episode"`
}

// PartyReminder subscribes a user to start notifications for a scheduled party.
type PartyReminder struct {
	PartyID   int       `db:"party_id" json:"party_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Movie is the catalog entry a party points at.
type Movie struct {
	ID          int            `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	MediaType   string         `db:"media_type" json:"media_type"`
	PosterURL   sql.NullString `db:"poster_url" json:"poster_url"`
	BackdropURL sql.NullString `db:"backdrop_url" json:"backdrop_url"`
}

// Episode is the concrete playable unit of a party.
type Episode struct {
	ID            int            `db:"id" json:"id"`
	SeasonID      int            `db:"season_id" json:"season_id"`
	EpisodeNumber int            `db:"episode_number" json:"episode_number"`
	Title         sql.NullString `db:"title" json:"title"`
	VideoURL      sql.NullString `db:"video_url" json:"video_url"`
	SeasonNumber  int            `db:"season_number" json:"season_number"`
}
