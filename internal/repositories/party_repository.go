package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"watch-party-service/internal/models"
)

// CreateParty carries everything needed to open a room.
type CreateParty struct {
	HostUserID  int
	Title       string
	MovieID     int
	EpisodeID   int
	IsPrivate   bool
	JoinCode    *string
	ScheduledAt *time.Time
}

// PartyRepository abstracts watch-party persistence.
type PartyRepository interface {
	Create(ctx context.Context, input CreateParty) (models.Party, error)
	GetParty(ctx context.Context, partyID int) (models.Party, error)
	HasActiveParty(ctx context.Context, hostID int) (bool, error)
	List(ctx context.Context, filter string, search string) ([]models.PartyListing, error)
	GetByJoinCode(ctx context.Context, code string) (models.Party, error)
	Delete(ctx context.Context, partyID int) error
	End(ctx context.Context, partyID int) error
	TransferHost(ctx context.Context, partyID, fromUserID, toUserID int) error
	ListDueImminent(ctx context.Context, now time.Time, lead time.Duration) ([]models.Party, error)
	ListDueStart(ctx context.Context, now time.Time) ([]models.Party, error)
	MarkImminentNotified(ctx context.Context, partyID int) error
	MarkStarted(ctx context.Context, partyID int, startedAt time.Time) error
}

// PartyRepo is a sqlx implementation of PartyRepository.
type PartyRepo struct {
	db *sqlx.DB
}

// NewPartyRepo constructs a PartyRepo.
func NewPartyRepo(db *sqlx.DB) *PartyRepo {
	return &PartyRepo{db: db}
}

const partyColumns = `id, host_user_id, title, movie_id, episode_id, is_private, join_code,
    scheduled_at, started_at, is_active, is_30m_notified, is_start_notified, created_at, updated_at`

// Create inserts the party, its host member row and, when scheduled, the
// host's reminder subscription in one transaction.
func (r *PartyRepo) Create(ctx context.Context, input CreateParty) (models.Party, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Party{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// A nil scheduled_at means the room goes live immediately.
	var startedAt *time.Time
	if input.ScheduledAt == nil {
		now := time.Now()
		startedAt = &now
	}

	var party models.Party
	err = tx.GetContext(ctx, &party, `INSERT INTO watch_parties
        (host_user_id, title, movie_id, episode_id, is_private, join_code, scheduled_at, started_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+partyColumns,
		input.HostUserID, input.Title, input.MovieID, input.EpisodeID,
		input.IsPrivate, input.JoinCode, input.ScheduledAt, startedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "watch_parties_join_code_key" {
			err = ErrJoinCodeTaken
		}
		return models.Party{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO party_members (party_id, user_id, role, is_online)
        VALUES ($1, $2, $3, TRUE)`, party.ID, input.HostUserID, models.RoleHost); err != nil {
		return models.Party{}, err
	}

	if input.ScheduledAt != nil {
		if _, err = tx.ExecContext(ctx, `INSERT INTO party_reminders (party_id, user_id)
            VALUES ($1, $2)`, party.ID, input.HostUserID); err != nil {
			return models.Party{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Party{}, err
	}
	return party, nil
}

// GetParty fetches a single party.
func (r *PartyRepo) GetParty(ctx context.Context, partyID int) (models.Party, error) {
	var party models.Party
	err := r.db.GetContext(ctx, &party, `SELECT `+partyColumns+` FROM watch_parties WHERE id=$1`, partyID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Party{}, ErrPartyNotFound
	}
	return party, err
}

// HasActiveParty reports whether the user already hosts an active room.
func (r *PartyRepo) HasActiveParty(ctx context.Context, hostID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM watch_parties WHERE host_user_id=$1 AND is_active = TRUE)`, hostID)
	return exists, err
}

// List returns the lobby view for a phase filter with optional search across
// party title, movie title and host name.
func (r *PartyRepo) List(ctx context.Context, filter string, search string) ([]models.PartyListing, error) {
	where := `wp.is_active = TRUE AND wp.started_at IS NOT NULL`
	order := `wp.created_at DESC`
	switch filter {
	case models.FilterScheduled:
		where = `wp.is_active = TRUE AND wp.started_at IS NULL AND wp.scheduled_at IS NOT NULL`
		order = `wp.scheduled_at ASC`
	case models.FilterEnded:
		where = `wp.is_active = FALSE`
	}

	query := `SELECT wp.id, wp.host_user_id, wp.title,
            m.title AS movie_title, m.media_type, m.poster_url, m.backdrop_url,
            COALESCE(u.display_name, u.username) AS host_name, u.avatar_url AS host_avatar,
            (SELECT COUNT(*) FROM party_members pm WHERE pm.party_id = wp.id AND pm.is_online = TRUE) AS viewers,
            wp.is_private, wp.scheduled_at, wp.updated_at,
            s.season_number, e.episode_number, e.title AS episode_title
        FROM watch_parties wp
        INNER JOIN movies m ON m.id = wp.movie_id
        INNER JOIN users u ON u.id = wp.host_user_id
        INNER JOIN episodes e ON e.id = wp.episode_id
        INNER JOIN seasons s ON s.id = e.season_id
        WHERE ` + where

	args := []interface{}{}
	if search != "" {
		query += ` AND (wp.title ILIKE $1 OR m.title ILIKE $1 OR u.display_name ILIKE $1 OR u.username ILIKE $1)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY ` + order

	var listings []models.PartyListing
	err := r.db.SelectContext(ctx, &listings, query, args...)
	return listings, err
}

// GetByJoinCode resolves a private room by its code, case-insensitively.
func (r *PartyRepo) GetByJoinCode(ctx context.Context, code string) (models.Party, error) {
	var party models.Party
	err := r.db.GetContext(ctx, &party,
		`SELECT `+partyColumns+` FROM watch_parties WHERE join_code = UPPER(TRIM($1))`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Party{}, ErrInvalidCode
	}
	return party, err
}

// Delete hard-removes a party. Only legal pre-start; the caller checks.
func (r *PartyRepo) Delete(ctx context.Context, partyID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM watch_parties WHERE id=$1`, partyID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrPartyNotFound
	}
	return nil
}

// End marks a party inactive. The row is preserved for the ended listing.
func (r *PartyRepo) End(ctx context.Context, partyID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE watch_parties SET is_active = FALSE, updated_at = NOW() WHERE id=$1`, partyID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrPartyNotFound
	}
	return nil
}

// TransferHost atomically moves the host reference and flips both member
// roles. The room never ends up with zero or two hosts.
func (r *PartyRepo) TransferHost(ctx context.Context, partyID, fromUserID, toUserID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE watch_parties SET host_user_id=$1, updated_at = NOW() WHERE id=$2 AND host_user_id=$3 AND is_active = TRUE`,
		toUserID, partyID, fromUserID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrNotHost
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE party_members SET role=$1, updated_at = NOW() WHERE party_id=$2 AND user_id=$3`,
		models.RoleParticipant, partyID, fromUserID); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE party_members SET role=$1, updated_at = NOW() WHERE party_id=$2 AND user_id=$3`,
		models.RoleHost, partyID, toUserID)
	if err != nil {
		return err
	}
	count, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		err = ErrMemberNotFound
		return err
	}

	return tx.Commit()
}

// ListDueImminent returns active scheduled parties starting within the lead
// window that have not been announced yet.
func (r *PartyRepo) ListDueImminent(ctx context.Context, now time.Time, lead time.Duration) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.SelectContext(ctx, &parties, `SELECT `+partyColumns+` FROM watch_parties
        WHERE is_active = TRUE
          AND scheduled_at IS NOT NULL AND scheduled_at > $1 AND scheduled_at <= $2
          AND is_30m_notified = FALSE`, now, now.Add(lead))
	return parties, err
}

// ListDueStart returns active scheduled parties whose start time has passed
// and that have not been promoted to live yet.
func (r *PartyRepo) ListDueStart(ctx context.Context, now time.Time) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.SelectContext(ctx, &parties, `SELECT `+partyColumns+` FROM watch_parties
        WHERE is_active = TRUE
          AND scheduled_at IS NOT NULL AND scheduled_at <= $1
          AND is_start_notified = FALSE`, now)
	return parties, err
}

// MarkImminentNotified sets the 30-minute idempotency flag. Conditioned on the
// room still being active so a concurrent cancel cannot be resurrected.
func (r *PartyRepo) MarkImminentNotified(ctx context.Context, partyID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE watch_parties SET is_30m_notified = TRUE, updated_at = NOW() WHERE id=$1 AND is_active = TRUE`, partyID)
	return err
}

// MarkStarted promotes a scheduled room to live and sets the start flag.
func (r *PartyRepo) MarkStarted(ctx context.Context, partyID int, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE watch_parties SET is_start_notified = TRUE, started_at=$1, updated_at = NOW() WHERE id=$2 AND is_active = TRUE`,
		startedAt, partyID)
	return err
}
