// Package store is the transactional persistence layer behind the matching
// engine. All coordination between concurrent callers happens here: a Tx is
// isolated from other transactions touching the same keys and commits all of
// its writes or none of them.
package store

import (
	"context"
	"time"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
)

// Tx is the set of reads and writes available inside one transaction.
type Tx interface {
	// Lock serializes this transaction against every other transaction that
	// locks any of the same keys. Locks are released at commit or rollback.
	Lock(ctx context.Context, keys ...string) error

	LatestCreditSince(ctx context.Context, user string, cutoff time.Time) (model.CreditEntry, bool, error)
	CreditForPairBy(ctx context.Context, pairHash, user string) (model.CreditEntry, bool, error)
	InsertCredit(ctx context.Context, entry model.CreditEntry) error
	DeleteCreditsForPair(ctx context.Context, pairHash string) (int64, error)

	FindPending(ctx context.Context, pairHash string) (model.PendingMatch, bool, error)
	InsertPending(ctx context.Context, pm model.PendingMatch) error
	ConfirmPending(ctx context.Context, pairHash string) (int64, error)
	DeletePendingForPair(ctx context.Context, pairHash string) (int64, error)

	InsertNotifications(ctx context.Context, batch ...model.Notification) error
}

// Store runs transactions and serves the notification read path.
type Store interface {
	// WithinTx runs fn in a single transaction and commits if fn returns nil.
	// Conflicting transactions are retried; fn must therefore be safe to run
	// more than once and must not have effects outside the Tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	ListNotifications(ctx context.Context, to string, now time.Time, limit, offset int) ([]model.Notification, error)
	CountNotifications(ctx context.Context, to string, now time.Time) (int, error)

	Ping(ctx context.Context) error
}

// Lock key helpers keep the user and pair scopes from colliding.
func UserKey(user string) string     { return "user:" + user }
func PairKey(pairHash string) string { return "pair:" + pairHash }
