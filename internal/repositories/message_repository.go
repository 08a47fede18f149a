package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"watch-party-service/internal/models"
)

// PartyMessageRepository abstracts chat message persistence.
type PartyMessageRepository interface {
	Create(ctx context.Context, partyID, userID int, text string, flagged bool, score float64, flagReason *string) (models.PartyMessage, error)
	Get(ctx context.Context, messageID int) (models.PartyMessage, error)
	Flag(ctx context.Context, messageID int, reason string) error
	ListRecent(ctx context.Context, partyID int, includeFlagged bool, limit int) ([]models.ChatMessageView, error)
}

// PartyMessageRepo is a sqlx implementation of PartyMessageRepository.
type PartyMessageRepo struct {
	db *sqlx.DB
}

// NewPartyMessageRepo constructs a PartyMessageRepo.
func NewPartyMessageRepo(db *sqlx.DB) *PartyMessageRepo {
	return &PartyMessageRepo{db: db}
}

// Create stores a message together with its moderation verdict. Every send
// attempt is persisted; the flag only decides visibility.
func (r *PartyMessageRepo) Create(ctx context.Context, partyID, userID int, text string, flagged bool, score float64, flagReason *string) (models.PartyMessage, error) {
	var msg models.PartyMessage
	err := r.db.GetContext(ctx, &msg, `INSERT INTO party_messages
        (party_id, user_id, message, is_flagged, toxicity_score, flag_reason)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, party_id, user_id, message, is_flagged, toxicity_score, flag_reason, is_deleted, created_at`,
		partyID, userID, text, flagged, score, flagReason)
	return msg, err
}

// Get fetches a single message.
func (r *PartyMessageRepo) Get(ctx context.Context, messageID int) (models.PartyMessage, error) {
	var msg models.PartyMessage
	err := r.db.GetContext(ctx, &msg,
		`SELECT id, party_id, user_id, message, is_flagged, toxicity_score, flag_reason, is_deleted, created_at
         FROM party_messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PartyMessage{}, ErrMessageNotFound
	}
	return msg, err
}

// Flag marks an already-sent message as flagged after the fact.
func (r *PartyMessageRepo) Flag(ctx context.Context, messageID int, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE party_messages SET is_flagged = TRUE, flag_reason=$1 WHERE id=$2`, reason, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListRecent returns the newest messages in ascending order, joined with the
// author's identity. Flagged messages are included only for host viewers.
func (r *PartyMessageRepo) ListRecent(ctx context.Context, partyID int, includeFlagged bool, limit int) ([]models.ChatMessageView, error) {
	query := `SELECT * FROM (
            SELECT pm.id, pm.message AS text, pm.user_id,
                   COALESCE(u.display_name, u.username) AS "user",
                   COALESCE(u.avatar_url, '') AS avatar,
                   pm.created_at AS time,
                   (pm.user_id = wp.host_user_id) AS is_host
            FROM party_messages pm
            INNER JOIN users u ON u.id = pm.user_id
            INNER JOIN watch_parties wp ON wp.id = pm.party_id
            WHERE pm.party_id=$1 AND pm.is_deleted = FALSE`
	if !includeFlagged {
		query += ` AND pm.is_flagged = FALSE`
	}
	query += ` ORDER BY pm.created_at DESC LIMIT $2
        ) recent ORDER BY time ASC`

	var msgs []models.ChatMessageView
	err := r.db.SelectContext(ctx, &msgs, query, partyID, limit)
	return msgs, err
}
