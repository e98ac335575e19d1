package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mutual-feedback/mutual_feedback/internal/model"
)

var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
)

// Pool is the subset of *pgxpool.Pool used by Postgres.
type Pool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Postgres persists credit, pending-match and notification rows in
// PostgreSQL. Transactions run at READ COMMITTED and serialize on
// transaction-scoped advisory locks for the keys passed to Tx.Lock. Each
// statement after the lock sees everything committed by the previous holder.
type Postgres struct {
	db   Pool
	opts Options
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db Pool, opts Options) *Postgres {
	return &Postgres{db: db, opts: opts}
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return runWithRetry(ctx, p.opts, func(ctx context.Context) error {
		tx, err := p.db.BeginTx(ctx, txOptions)
		if err != nil {
			return classify(fmt.Errorf("begin: %w", err))
		}
		defer tx.Rollback(ctx) // nolint:errcheck

		if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
			return classify(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return classify(fmt.Errorf("commit: %w", err))
		}
		return nil
	})
}

func (p *Postgres) ListNotifications(ctx context.Context, to string, now time.Time, limit, offset int) ([]model.Notification, error) {
	const query = `
        SELECT id, recipient, context, created_at, expires_at
        FROM notifications
        WHERE recipient = $1 AND expires_at > $2
        ORDER BY created_at DESC, id DESC
        LIMIT $3 OFFSET $4`
	rows, err := p.db.Query(ctx, query, to, now.UTC(), limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNotification)
}

func (p *Postgres) CountNotifications(ctx context.Context, to string, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND expires_at > $2`
	var total int
	if err := p.db.QueryRow(ctx, query, to, now.UTC()).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// classify tags serialization failures and deadlocks as ErrConflict so that
// WithinTx retries them.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
	}
	return err
}

type postgresTx struct {
	tx pgx.Tx
}

// Lock takes the advisory locks in sorted order so that two transactions
// locking overlapping key sets cannot deadlock on each other.
func (t *postgresTx) Lock(ctx context.Context, keys ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for _, key := range sorted {
		if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

func (t *postgresTx) LatestCreditSince(ctx context.Context, user string, cutoff time.Time) (model.CreditEntry, bool, error) {
	const query = `
        SELECT id, user_hash, issued_at, pair_hash
        FROM credit_entries
        WHERE user_hash = $1 AND issued_at > $2
        ORDER BY issued_at DESC
        LIMIT 1`
	return t.oneCredit(ctx, query, user, cutoff.UTC())
}

func (t *postgresTx) CreditForPairBy(ctx context.Context, pairHash, user string) (model.CreditEntry, bool, error) {
	const query = `
        SELECT id, user_hash, issued_at, pair_hash
        FROM credit_entries
        WHERE pair_hash = $1 AND user_hash = $2
        ORDER BY issued_at DESC
        LIMIT 1`
	return t.oneCredit(ctx, query, pairHash, user)
}

func (t *postgresTx) oneCredit(ctx context.Context, query string, args ...any) (model.CreditEntry, bool, error) {
	var entry model.CreditEntry
	err := t.tx.QueryRow(ctx, query, args...).Scan(&entry.ID, &entry.User, &entry.IssuedAt, &entry.PairHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CreditEntry{}, false, nil
		}
		return model.CreditEntry{}, false, err
	}
	entry.IssuedAt = entry.IssuedAt.UTC()
	return entry, true, nil
}

func (t *postgresTx) InsertCredit(ctx context.Context, entry model.CreditEntry) error {
	id, err := uuid.Parse(entry.ID)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO credit_entries (id, user_hash, issued_at, pair_hash)
        VALUES ($1, $2, $3, $4)`, id, entry.User, entry.IssuedAt.UTC(), entry.PairHash)
	return err
}

func (t *postgresTx) DeleteCreditsForPair(ctx context.Context, pairHash string) (int64, error) {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM credit_entries WHERE pair_hash = $1`, pairHash)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (t *postgresTx) FindPending(ctx context.Context, pairHash string) (model.PendingMatch, bool, error) {
	const query = `
        SELECT id, pair_hash, created_at, expires_at, mutual_confirmed
        FROM pending_matches
        WHERE pair_hash = $1
        ORDER BY created_at DESC
        LIMIT 1`
	var pm model.PendingMatch
	err := t.tx.QueryRow(ctx, query, pairHash).Scan(&pm.ID, &pm.PairHash, &pm.CreatedAt, &pm.ExpiresAt, &pm.MutualConfirmed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PendingMatch{}, false, nil
		}
		return model.PendingMatch{}, false, err
	}
	pm.CreatedAt = pm.CreatedAt.UTC()
	pm.ExpiresAt = pm.ExpiresAt.UTC()
	return pm, true, nil
}

func (t *postgresTx) InsertPending(ctx context.Context, pm model.PendingMatch) error {
	id, err := uuid.Parse(pm.ID)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO pending_matches (id, pair_hash, created_at, expires_at, mutual_confirmed)
        VALUES ($1, $2, $3, $4, $5)`, id, pm.PairHash, pm.CreatedAt.UTC(), pm.ExpiresAt.UTC(), pm.MutualConfirmed)
	return err
}

func (t *postgresTx) ConfirmPending(ctx context.Context, pairHash string) (int64, error) {
	cmd, err := t.tx.Exec(ctx, `UPDATE pending_matches SET mutual_confirmed = TRUE WHERE pair_hash = $1`, pairHash)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (t *postgresTx) DeletePendingForPair(ctx context.Context, pairHash string) (int64, error) {
	cmd, err := t.tx.Exec(ctx, `DELETE FROM pending_matches WHERE pair_hash = $1`, pairHash)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// InsertNotifications writes the batch with a single multi-row INSERT.
func (t *postgresTx) InsertNotifications(ctx context.Context, batch ...model.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	var (
		query strings.Builder
		args  = make([]any, 0, len(batch)*5)
	)
	query.WriteString(`INSERT INTO notifications (id, recipient, context, created_at, expires_at) VALUES `)
	for i, n := range batch {
		id, err := uuid.Parse(n.ID)
		if err != nil {
			return err
		}
		if i > 0 {
			query.WriteString(", ")
		}
		p := i * 5
		fmt.Fprintf(&query, "($%d, $%d, $%d, $%d, $%d)", p+1, p+2, p+3, p+4, p+5)
		args = append(args, id, n.To, n.Context, n.CreatedAt.UTC(), n.ExpiresAt.UTC())
	}
	if _, err := t.tx.Exec(ctx, query.String(), args...); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (model.Notification, error) {
	var n model.Notification
	if err := row.Scan(&n.ID, &n.To, &n.Context, &n.CreatedAt, &n.ExpiresAt); err != nil {
		return model.Notification{}, err
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.ExpiresAt = n.ExpiresAt.UTC()
	return n, nil
}
