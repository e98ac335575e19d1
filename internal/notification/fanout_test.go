package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

var now = time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)

func TestNotifyBothWritesSymmetricPair(t *testing.T) {
	s := store.NewMemory(store.Options{})
	f := NewFanout(func() float64 { return 0 })

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		notes, err := f.NotifyBoth(ctx, tx, "a", "b", now)
		require.Len(t, notes, 2)
		return err
	})
	require.NoError(t, err)

	stored := s.Notifications()
	require.Len(t, stored, 2)
	assert.Equal(t, "a", stored[0].To)
	assert.Equal(t, "b", stored[0].Context)
	assert.Equal(t, "b", stored[1].To)
	assert.Equal(t, "a", stored[1].Context)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	for _, n := range stored {
		assert.Equal(t, now, n.CreatedAt)
		assert.Equal(t, now.Add(24*time.Hour), n.ExpiresAt)
	}
}

func TestNotifyBothExpiryRange(t *testing.T) {
	for _, r := range []float64{0, 0.25, 0.999999} {
		f := NewFanout(func() float64 { return r })
		s := store.NewMemory(store.Options{})
		require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := f.NotifyBoth(ctx, tx, "a", "b", now)
			return err
		}))

		for _, n := range s.Notifications() {
			offset := n.ExpiresAt.Sub(now)
			assert.GreaterOrEqual(t, offset, 24*time.Hour)
			assert.Less(t, offset, 7*24*time.Hour)
		}
	}
}

func TestNotifyBothDefaultRandomStaysInRange(t *testing.T) {
	f := NewFanout(nil)
	s := store.NewMemory(store.Options{})
	for i := 0; i < 20; i++ {
		require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
			_, err := f.NotifyBoth(ctx, tx, "a", "b", now)
			return err
		}))
	}
	for _, n := range s.Notifications() {
		offset := n.ExpiresAt.Sub(now)
		assert.GreaterOrEqual(t, offset, 24*time.Hour)
		assert.Less(t, offset, 7*24*time.Hour)
	}
}
