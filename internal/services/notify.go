package services

import (
	"context"
	"sync"
	"time"

	"dayly-backend/internal/push"

	"github.com/rs/zerolog/log"
)

const notifyTimeout = 10 * time.Second

// NotificationService decides whether a committed photo triggers a
// group-wide push and performs the fan-out. Everything here is a side
// effect layered on committed state: failures are logged, never
// propagated, and in-flight work is cancellable on shutdown.
type NotificationService struct {
	photos  PhotoStore
	groups  GroupStore
	devices DeviceStore
	sender  push.Sender

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationService creates a new notification service
func NewNotificationService(photos PhotoStore, groups GroupStore, devices DeviceStore, sender push.Sender) *NotificationService {
	root, cancel := context.WithCancel(context.Background())
	return &NotificationService{
		photos:  photos,
		groups:  groups,
		devices: devices,
		sender:  sender,
		root:    root,
		cancel:  cancel,
	}
}

// PhotoCommitted evaluates the first-photo-of-the-day rule asynchronously.
// It returns immediately; the trigger never blocks or fails a submission.
func (s *NotificationService) PhotoCommitted(groupID, senderID string, submittedAt time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.root, notifyTimeout)
		defer cancel()
		s.run(ctx, groupID, senderID, submittedAt)
	}()
}

// run fires the fan-out iff the just-committed photo is the group's first
// of its calendar day. The count is evaluated after commit and must equal
// exactly 1.
func (s *NotificationService) run(ctx context.Context, groupID, senderID string, submittedAt time.Time) {
	count, err := s.photos.CountOnDate(ctx, groupID, Day(submittedAt))
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to count photos for notification trigger")
		return
	}
	if count != 1 {
		log.Debug().
			Str("group_id", groupID).
			Int("count", count).
			Msg("Not the first photo of the day, skipping notification")
		return
	}

	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to load group for notification")
		return
	}

	devices, err := s.devices.ListForGroupExcluding(ctx, groupID, senderID)
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to resolve notification recipients")
		return
	}
	if len(devices) == 0 {
		return
	}

	n := push.Notification{
		Title:   "Dayly",
		Body:    group.Name + " has new photos",
		GroupID: groupID,
		Type:    "new_photos",
	}

	sent := 0
	for _, d := range devices {
		if err := s.sender.Send(ctx, d.DeviceToken, d.Platform, n); err != nil {
			// One bad token must not starve the rest of the fan-out
			log.Error().
				Err(err).
				Str("group_id", groupID).
				Str("platform", d.Platform).
				Msg("Failed to deliver push notification")
			continue
		}
		sent++
	}
	log.Info().
		Str("group_id", groupID).
		Int("sent", sent).
		Int("recipients", len(devices)).
		Msg("First photo of the day, notifications dispatched")
}

// Drain cancels nothing but waits for in-flight fan-outs, bounded by ctx
func (s *NotificationService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight fan-outs
func (s *NotificationService) Close() {
	s.cancel()
}
