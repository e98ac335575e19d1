// Package ledger implements the credit ledger: a rolling-window rate limiter
// keyed by sender identity. A credit entry is written whenever a user sends a
// first-time signal and is removed when that pair matches.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

// DefaultCooldown is how long a spent credit blocks new initiations.
const DefaultCooldown = 7 * 24 * time.Hour

// Decision is the outcome of a cooldown check.
type Decision struct {
	Allowed bool
	// RetryAt is when the blocking entry leaves the window. Zero when allowed.
	RetryAt time.Time
}

// Ledger enforces the cooldown over credit entries. It holds no state of its
// own; every call operates on the caller's transaction.
type Ledger struct {
	cooldown time.Duration
}

// New creates a ledger with the given cooldown, or DefaultCooldown if zero.
func New(cooldown time.Duration) *Ledger {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Ledger{cooldown: cooldown}
}

// Cooldown returns the configured window.
func (l *Ledger) Cooldown() time.Duration { return l.cooldown }

// MayInitiate reports whether user may start a new pair at now. Only entries
// strictly newer than now-cooldown block, and entries for any pair count.
func (l *Ledger) MayInitiate(ctx context.Context, tx store.Tx, user string, now time.Time) (Decision, error) {
	latest, found, err := tx.LatestCreditSince(ctx, user, now.Add(-l.cooldown))
	if err != nil {
		return Decision{}, fmt.Errorf("load credits: %w", err)
	}
	if !found {
		return Decision{Allowed: true}, nil
	}
	return Decision{RetryAt: latest.IssuedAt.Add(l.cooldown)}, nil
}

// Record spends user's credit on pairHash.
func (l *Ledger) Record(ctx context.Context, tx store.Tx, user, pairHash string, now time.Time) (model.CreditEntry, error) {
	entry := model.CreditEntry{
		ID:       uuid.NewString(),
		User:     user,
		IssuedAt: now.UTC(),
		PairHash: pairHash,
	}
	if err := tx.InsertCredit(ctx, entry); err != nil {
		return model.CreditEntry{}, fmt.Errorf("record credit: %w", err)
	}
	return entry, nil
}

// OriginatedBy reports whether user holds the credit entry for pairHash, i.e.
// whether user was the one who opened the pair.
func (l *Ledger) OriginatedBy(ctx context.Context, tx store.Tx, pairHash, user string) (bool, error) {
	_, found, err := tx.CreditForPairBy(ctx, pairHash, user)
	if err != nil {
		return false, fmt.Errorf("load pair credit: %w", err)
	}
	return found, nil
}

// DeleteAllForPair removes every credit entry written for pairHash.
func (l *Ledger) DeleteAllForPair(ctx context.Context, tx store.Tx, pairHash string) (int64, error) {
	n, err := tx.DeleteCreditsForPair(ctx, pairHash)
	if err != nil {
		return 0, fmt.Errorf("delete pair credits: %w", err)
	}
	return n, nil
}
