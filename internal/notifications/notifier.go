package notifications

import (
	"context"
	"encoding/json"
	"log"

	"watch-party-service/internal/models"
	"watch-party-service/internal/rabbitmq"
	"watch-party-service/internal/repositories"
)

// Notifier delivers notifications in bulk. Delivery is best-effort and must
// never block a room operation; callers fire it and move on.
type Notifier interface {
	DeliverBulk(ctx context.Context, userIDs []int, input models.NotificationInput) error
}

// Pusher delivers a realtime frame to all of a user's live connections.
type Pusher interface {
	SendToUser(userID int, event models.ServerEvent)
}

// Service stores notification rows, publishes them to the broker and pushes
// them to any live connections.
type Service struct {
	repo       repositories.NotificationRepository
	publisher  rabbitmq.Publisher
	routingKey string
	pusher     Pusher
}

// NewService constructs a notification Service.
func NewService(repo repositories.NotificationRepository, publisher rabbitmq.Publisher, routingKey string, pusher Pusher) *Service {
	return &Service{repo: repo, publisher: publisher, routingKey: routingKey, pusher: pusher}
}

// DeliverBulk persists one notification per recipient, then fans out over the
// broker and any live connections. Fan-out failures are logged, not returned;
// only the storage write can fail the call.
func (s *Service) DeliverBulk(ctx context.Context, userIDs []int, input models.NotificationInput) error {
	if len(userIDs) == 0 {
		return nil
	}

	rows, err := s.repo.CreateBulk(ctx, userIDs, input)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, s.routingKey, rows); err != nil {
			log.Printf("notifications: broker publish failed: %v", err)
		}
	}

	if s.pusher != nil {
		for _, row := range rows {
			payload, err := json.Marshal(row)
			if err != nil {
				log.Printf("notifications: marshal push payload: %v", err)
				continue
			}
			s.pusher.SendToUser(row.UserID, models.ServerEvent{
				Type:    models.EventNotification,
				Payload: payload,
			})
		}
	}
	return nil
}
