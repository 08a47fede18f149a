package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"watch-party-service/internal/models"
	"watch-party-service/internal/notifications"
	"watch-party-service/internal/observability"
	"watch-party-service/internal/repositories"
)

// Scheduler promotes scheduled rooms and fires reminder notifications on a
// fixed interval. Both sweeps are idempotent through the notified flags, and
// flag writes are conditioned on the room still being active, so a concurrent
// cancel or end is never resurrected.
type Scheduler struct {
	parties   repositories.PartyRepository
	reminders repositories.ReminderRepository
	notifier  notifications.Notifier
	interval  time.Duration
	lead      time.Duration
}

// New constructs a Scheduler.
func New(parties repositories.PartyRepository, reminders repositories.ReminderRepository,
	notifier notifications.Notifier, interval, lead time.Duration) *Scheduler {
	return &Scheduler{
		parties:   parties,
		reminders: reminders,
		notifier:  notifier,
		interval:  interval,
		lead:      lead,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("scheduler started interval=%s lead=%s", s.interval, s.lead)
	s.RunOnce(ctx, time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler stopped")
			return
		case now := <-ticker.C:
			s.RunOnce(ctx, now)
		}
	}
}

// RunOnce performs both sweeps for a given instant.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	if err := s.sweepImminent(ctx, now); err != nil {
		log.Printf("scheduler: imminent sweep: %v", err)
	}
	if err := s.sweepStart(ctx, now); err != nil {
		log.Printf("scheduler: start sweep: %v", err)
	}
}

func (s *Scheduler) sweepImminent(ctx context.Context, now time.Time) error {
	observability.IncSchedulerSweep("imminent")
	parties, err := s.parties.ListDueImminent(ctx, now, s.lead)
	if err != nil {
		return err
	}

	for _, party := range parties {
		s.notifySubscribers(ctx, party, models.NotificationInput{
			Type:      models.NotificationWatchPartyInvite,
			Title:     "Starting soon",
			Message:   fmt.Sprintf("%q starts at %s.", party.Title, party.ScheduledAt.Format("15:04")),
			ActionURL: fmt.Sprintf("/watch-party/%d", party.ID),
		})

		if err := s.parties.MarkImminentNotified(ctx, party.ID); err != nil {
			log.Printf("scheduler: mark imminent party=%d: %v", party.ID, err)
		}
	}
	return nil
}

func (s *Scheduler) sweepStart(ctx context.Context, now time.Time) error {
	observability.IncSchedulerSweep("start")
	parties, err := s.parties.ListDueStart(ctx, now)
	if err != nil {
		return err
	}

	for _, party := range parties {
		s.notifySubscribers(ctx, party, models.NotificationInput{
			Type:      models.NotificationWatchPartyInvite,
			Title:     "Now playing",
			Message:   fmt.Sprintf("%q has started. Join now!", party.Title),
			ActionURL: fmt.Sprintf("/watch-party/%d", party.ID),
		})

		if err := s.parties.MarkStarted(ctx, party.ID, now); err != nil {
			log.Printf("scheduler: mark started party=%d: %v", party.ID, err)
		}
	}
	return nil
}

// notifySubscribers is best-effort; a delivery failure never stops the sweep
// or the flag write.
func (s *Scheduler) notifySubscribers(ctx context.Context, party models.Party, input models.NotificationInput) {
	userIDs, err := s.reminders.ListSubscribers(ctx, party.ID)
	if err != nil {
		log.Printf("scheduler: list subscribers party=%d: %v", party.ID, err)
		return
	}
	if len(userIDs) == 0 {
		log.Printf("scheduler: party=%d due with no reminder subscribers", party.ID)
		return
	}

	if err := s.notifier.DeliverBulk(ctx, userIDs, input); err != nil {
		log.Printf("scheduler: deliver party=%d: %v", party.ID, err)
	}
}
