package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ReminderRepository abstracts start-notification subscriptions.
type ReminderRepository interface {
	Toggle(ctx context.Context, partyID, userID int) (bool, error)
	ListSubscribers(ctx context.Context, partyID int) ([]int, error)
}

// ReminderRepo is a sqlx implementation of ReminderRepository.
type ReminderRepo struct {
	db *sqlx.DB
}

// NewReminderRepo constructs a ReminderRepo.
func NewReminderRepo(db *sqlx.DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

// Toggle creates the subscription if absent, deletes it if present, and
// reports the resulting state.
func (r *ReminderRepo) Toggle(ctx context.Context, partyID, userID int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM party_reminders WHERE party_id=$1 AND user_id=$2`, partyID, userID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO party_reminders (party_id, user_id) VALUES ($1, $2)
         ON CONFLICT (party_id, user_id) DO NOTHING`, partyID, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListSubscribers returns the user ids subscribed to a party's reminders.
func (r *ReminderRepo) ListSubscribers(ctx context.Context, partyID int) ([]int, error) {
	var userIDs []int
	err := r.db.SelectContext(ctx, &userIDs,
		`SELECT user_id FROM party_reminders WHERE party_id=$1 ORDER BY user_id`, partyID)
	return userIDs, err
}
