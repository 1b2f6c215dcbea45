package notifications

import (
	"context"
	"errors"
	"fmt"

	"camp-companion/internal/cache"
	"camp-companion/internal/models"
	"camp-companion/internal/remote"
	syncctl "camp-companion/internal/sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Service maintains the local copy of camp-wide notifications and tracks
// read state. The remote store is source of truth; mark-read is applied
// optimistically and reconciled by the next refresh. The collection rides
// the same controller as teams and nominations so backgrounding suspends
// its polling too.
type Service struct {
	store remote.Store
	ctrl  *syncctl.Controller[models.Notification]
}

// NewService creates a notification service
func NewService(store remote.Store, c *cache.Cache, clock clockwork.Clock) *Service {
	s := &Service{store: store}
	s.ctrl = syncctl.NewController(
		"notifications",
		func(ctx context.Context, _ remote.Filter) ([]models.Notification, error) {
			return store.ListNotifications(ctx)
		},
		nil, // notifications are always fetched as a whole list
		clock,
	)
	s.ctrl.OnChange(func(notifications []models.Notification) {
		if err := c.Put(cache.StoreNotifications, notifications); err != nil {
			log.Error().Err(err).Msg("failed to persist notifications")
		}
	})
	return s
}

// Rehydrate pre-populates the notification list from the local cache
func (s *Service) Rehydrate(c *cache.Cache) error {
	var notifications []models.Notification
	if err := c.Get(cache.StoreNotifications, &notifications); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		return fmt.Errorf("failed to rehydrate notifications: %w", err)
	}
	s.ctrl.SetItems(notifications)
	return nil
}

// Sync exposes the collection controller for polling and lifecycle wiring
func (s *Service) Sync() *syncctl.Controller[models.Notification] {
	return s.ctrl
}

// Notifications returns a snapshot of the local list, newest first as the
// remote store orders them.
func (s *Service) Notifications() []models.Notification {
	return s.ctrl.Items()
}

// UnreadCount returns how many notifications are unread
func (s *Service) UnreadCount() int {
	count := 0
	for _, n := range s.ctrl.Items() {
		if !n.Read {
			count++
		}
	}
	return count
}

// Refresh refetches the notification list from the remote store
func (s *Service) Refresh(ctx context.Context) ([]models.Notification, error) {
	return s.ctrl.Refresh(ctx, remote.Filter{})
}

// MarkRead flags a notification as read, locally first, then remotely
func (s *Service) MarkRead(ctx context.Context, id string) error {
	s.ctrl.Mutate(func(notifications []models.Notification) []models.Notification {
		for i := range notifications {
			if notifications[i].ID == id {
				notifications[i].Read = true
			}
		}
		return notifications
	})

	if err := s.store.MarkNotificationRead(ctx, id); err != nil {
		log.Error().Err(err).Str("notification_id", id).Msg("remote mark-read failed")
		return err
	}
	return nil
}
