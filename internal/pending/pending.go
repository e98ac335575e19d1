// Package pending tracks feedback relationships awaiting a reciprocal signal.
package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

// DefaultTTL is the validity window of a pending match.
const DefaultTTL = 14 * 24 * time.Hour

// Matches operates on pending-match rows inside a caller's transaction.
type Matches struct {
	ttl time.Duration
}

// New creates a pending match store with the given validity window.
func New(ttl time.Duration) *Matches {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Matches{ttl: ttl}
}

// Find returns the most recent pending match for pairHash, if any. Stale rows
// are returned as well; expiry is swept outside of the core.
func (m *Matches) Find(ctx context.Context, tx store.Tx, pairHash string) (model.PendingMatch, bool, error) {
	pm, found, err := tx.FindPending(ctx, pairHash)
	if err != nil {
		return model.PendingMatch{}, false, fmt.Errorf("find pending match: %w", err)
	}
	return pm, found, nil
}

// Create opens a pending match for pairHash that expires after the TTL.
func (m *Matches) Create(ctx context.Context, tx store.Tx, pairHash string, now time.Time) (model.PendingMatch, error) {
	now = now.UTC()
	pm := model.PendingMatch{
		ID:        uuid.NewString(),
		PairHash:  pairHash,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := tx.InsertPending(ctx, pm); err != nil {
		return model.PendingMatch{}, fmt.Errorf("create pending match: %w", err)
	}
	return pm, nil
}

// ConfirmMutual flags the pair's pending rows as reciprocated.
func (m *Matches) ConfirmMutual(ctx context.Context, tx store.Tx, pairHash string) error {
	n, err := tx.ConfirmPending(ctx, pairHash)
	if err != nil {
		return fmt.Errorf("confirm pending match: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("confirm pending match %s: no rows", pairHash)
	}
	return nil
}

// DeleteAllForPair removes every pending row for pairHash.
func (m *Matches) DeleteAllForPair(ctx context.Context, tx store.Tx, pairHash string) (int64, error) {
	n, err := tx.DeletePendingForPair(ctx, pairHash)
	if err != nil {
		return 0, fmt.Errorf("delete pending matches: %w", err)
	}
	return n, nil
}
