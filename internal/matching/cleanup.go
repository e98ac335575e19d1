package matching

import (
	"context"

	"github.com/mutual-feedback/mutual_feedback/internal/ledger"
	"github.com/mutual-feedback/mutual_feedback/internal/pending"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

// Purged counts the rows removed for a matched pair.
type Purged struct {
	Pending int64
	Credits int64
}

// Cleanup removes every ledger and pending row tied to a matched pair. It
// writes through the caller's transaction so the purge commits together with
// the notification fan-out.
type Cleanup struct {
	ledger  *ledger.Ledger
	pending *pending.Matches
}

// NewCleanup builds a Cleanup over the given ledger and pending store.
func NewCleanup(l *ledger.Ledger, p *pending.Matches) *Cleanup {
	return &Cleanup{ledger: l, pending: p}
}

// Purge deletes all pending matches and credit entries for pairHash.
func (c *Cleanup) Purge(ctx context.Context, tx store.Tx, pairHash string) (Purged, error) {
	pendingRows, err := c.pending.DeleteAllForPair(ctx, tx, pairHash)
	if err != nil {
		return Purged{}, err
	}
	credits, err := c.ledger.DeleteAllForPair(ctx, tx, pairHash)
	if err != nil {
		return Purged{}, err
	}
	return Purged{Pending: pendingRows, Credits: credits}, nil
}
