package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
)

type tables struct {
	credits       []model.CreditEntry
	pending       []model.PendingMatch
	notifications []model.Notification
}

func (t tables) clone() tables {
	return tables{
		credits:       append([]model.CreditEntry(nil), t.credits...),
		pending:       append([]model.PendingMatch(nil), t.pending...),
		notifications: append([]model.Notification(nil), t.notifications...),
	}
}

// Memory is a single-process Store. Transactions run one at a time against a
// private copy of the tables which replaces the shared copy on commit, so
// every transaction is serializable and all-or-nothing.
type Memory struct {
	mu        sync.Mutex
	data      tables
	opts      Options
	conflicts int
}

// NewMemory creates an empty in-memory store for tests and development.
func NewMemory(opts Options) *Memory {
	return &Memory{opts: opts}
}

// InjectConflicts makes the next n commits fail with ErrConflict.
func (m *Memory) InjectConflicts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = n
}

func (m *Memory) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return runWithRetry(ctx, m.opts, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		tx := &memoryTx{t: m.data.clone()}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if m.conflicts > 0 {
			m.conflicts--
			return ErrConflict
		}
		m.data = tx.t
		return nil
	})
}

func (m *Memory) ListNotifications(_ context.Context, to string, now time.Time, limit, offset int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.liveNotifications(to, now)
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID > live[j].ID
		}
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	if offset >= len(live) {
		return []model.Notification{}, nil
	}
	end := offset + limit
	if end > len(live) {
		end = len(live)
	}
	return live[offset:end], nil
}

func (m *Memory) CountNotifications(_ context.Context, to string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.liveNotifications(to, now)), nil
}

func (m *Memory) liveNotifications(to string, now time.Time) []model.Notification {
	var out []model.Notification
	for _, n := range m.data.notifications {
		if n.To == to && !n.Expired(now) {
			out = append(out, n)
		}
	}
	return out
}

func (m *Memory) Ping(context.Context) error { return nil }

// Credits returns a copy of every stored credit entry.
func (m *Memory) Credits() []model.CreditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CreditEntry(nil), m.data.credits...)
}

// Pending returns a copy of every stored pending match.
func (m *Memory) Pending() []model.PendingMatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PendingMatch(nil), m.data.pending...)
}

// Notifications returns a copy of every stored notification, expired or not.
func (m *Memory) Notifications() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Notification(nil), m.data.notifications...)
}

type memoryTx struct {
	t tables
}

// Lock is a no-op: the Memory store already runs one transaction at a time.
func (tx *memoryTx) Lock(context.Context, ...string) error { return nil }

func (tx *memoryTx) LatestCreditSince(_ context.Context, user string, cutoff time.Time) (model.CreditEntry, bool, error) {
	var (
		latest model.CreditEntry
		found  bool
	)
	for _, c := range tx.t.credits {
		if c.User != user || !c.IssuedAt.After(cutoff) {
			continue
		}
		if !found || c.IssuedAt.After(latest.IssuedAt) {
			latest, found = c, true
		}
	}
	return latest, found, nil
}

func (tx *memoryTx) CreditForPairBy(_ context.Context, pairHash, user string) (model.CreditEntry, bool, error) {
	for _, c := range tx.t.credits {
		if c.PairHash == pairHash && c.User == user {
			return c, true, nil
		}
	}
	return model.CreditEntry{}, false, nil
}

func (tx *memoryTx) InsertCredit(_ context.Context, entry model.CreditEntry) error {
	tx.t.credits = append(tx.t.credits, entry)
	return nil
}

func (tx *memoryTx) DeleteCreditsForPair(_ context.Context, pairHash string) (int64, error) {
	kept := tx.t.credits[:0]
	var removed int64
	for _, c := range tx.t.credits {
		if c.PairHash == pairHash {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	tx.t.credits = kept
	return removed, nil
}

func (tx *memoryTx) FindPending(_ context.Context, pairHash string) (model.PendingMatch, bool, error) {
	var (
		latest model.PendingMatch
		found  bool
	)
	for _, p := range tx.t.pending {
		if p.PairHash != pairHash {
			continue
		}
		if !found || p.CreatedAt.After(latest.CreatedAt) {
			latest, found = p, true
		}
	}
	return latest, found, nil
}

func (tx *memoryTx) InsertPending(_ context.Context, pm model.PendingMatch) error {
	tx.t.pending = append(tx.t.pending, pm)
	return nil
}

func (tx *memoryTx) ConfirmPending(_ context.Context, pairHash string) (int64, error) {
	var updated int64
	for i := range tx.t.pending {
		if tx.t.pending[i].PairHash == pairHash {
			tx.t.pending[i].MutualConfirmed = true
			updated++
		}
	}
	return updated, nil
}

func (tx *memoryTx) DeletePendingForPair(_ context.Context, pairHash string) (int64, error) {
	kept := tx.t.pending[:0]
	var removed int64
	for _, p := range tx.t.pending {
		if p.PairHash == pairHash {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	tx.t.pending = kept
	return removed, nil
}

func (tx *memoryTx) InsertNotifications(_ context.Context, batch ...model.Notification) error {
	tx.t.notifications = append(tx.t.notifications, batch...)
	return nil
}
