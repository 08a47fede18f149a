package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"watch-party-service/internal/models"
)

// NotificationRepository stores user notifications.
type NotificationRepository interface {
	CreateBulk(ctx context.Context, userIDs []int, input models.NotificationInput) ([]models.Notification, error)
}

// NotificationRepo is a sqlx implementation of NotificationRepository.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// CreateBulk inserts one notification row per recipient in a transaction.
func (r *NotificationRepo) CreateBulk(ctx context.Context, userIDs []int, input models.NotificationInput) ([]models.Notification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	notifications := make([]models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		var n models.Notification
		err = tx.GetContext(ctx, &n, `INSERT INTO notifications (user_id, type, title, message, action_url)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id, user_id, type, title, message, action_url, is_read, created_at`,
			userID, input.Type, input.Title, input.Message, input.ActionURL)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return notifications, nil
}
