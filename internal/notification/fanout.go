// Package notification creates, lists and delivers match notifications.
package notification

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

const (
	day            = 24 * time.Hour
	minExpiryDays  = 1
	expirySpanDays = 6
)

// Fanout writes the pair of notifications produced by a match.
type Fanout struct {
	random func() float64
}

// NewFanout creates a Fanout. random must return values in [0, 1); nil uses
// math/rand/v2.
func NewFanout(random func() float64) *Fanout {
	if random == nil {
		random = rand.Float64
	}
	return &Fanout{random: random}
}

// NotifyBoth inserts (to=a, context=b) and (to=b, context=a) as one batch in
// tx. Both share createdAt and an expiry drawn once from [1, 7) days ahead.
func (f *Fanout) NotifyBoth(ctx context.Context, tx store.Tx, a, b string, now time.Time) ([]model.Notification, error) {
	now = now.UTC()
	offset := time.Duration((minExpiryDays + expirySpanDays*f.random()) * float64(day))
	expiresAt := now.Add(offset)

	batch := []model.Notification{
		{ID: uuid.NewString(), To: a, Context: b, CreatedAt: now, ExpiresAt: expiresAt},
		{ID: uuid.NewString(), To: b, Context: a, CreatedAt: now, ExpiresAt: expiresAt},
	}
	if err := tx.InsertNotifications(ctx, batch...); err != nil {
		return nil, fmt.Errorf("insert notifications: %w", err)
	}
	return batch, nil
}
