package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Page is one window of a recipient's live notifications.
type Page struct {
	Notifications []model.Notification
	Total         int
	Limit         int
	Offset        int
}

// Service is the notification read path. Expiry is enforced here, at read
// time; expired rows stay in storage.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService constructs the read service. now defaults to time.Now.
func NewService(s store.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: s, now: now}
}

// ClampPage applies the pagination bounds: limit within 1..MaxLimit with 0
// meaning DefaultLimit, and a non-negative offset.
func ClampPage(limit, offset int) (int, int) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns user's non-expired notifications, newest first.
func (s *Service) List(ctx context.Context, user string, limit, offset int) (Page, error) {
	limit, offset = ClampPage(limit, offset)
	now := s.now().UTC()

	items, err := s.store.ListNotifications(ctx, user, now, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list notifications: %w", err)
	}
	total, err := s.store.CountNotifications(ctx, user, now)
	if err != nil {
		return Page{}, fmt.Errorf("count notifications: %w", err)
	}
	return Page{Notifications: items, Total: total, Limit: limit, Offset: offset}, nil
}
