// Package matching turns one-sided feedback signals into mutual matches.
//
// Per pair the engine moves NONE -> PENDING on a first signal and
// PENDING -> MATCHED on the reciprocal one, after which every row for the pair
// is purged so the pair is back at NONE. Stale PENDING rows are left for an
// external expiry sweep.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mutual-feedback/mutual_feedback/internal/ledger"
	"github.com/mutual-feedback/mutual_feedback/internal/logging"
	"github.com/mutual-feedback/mutual_feedback/internal/metrics"
	"github.com/mutual-feedback/mutual_feedback/internal/model"
	"github.com/mutual-feedback/mutual_feedback/internal/notification"
	"github.com/mutual-feedback/mutual_feedback/internal/pairhash"
	"github.com/mutual-feedback/mutual_feedback/internal/pending"
	"github.com/mutual-feedback/mutual_feedback/internal/store"
)

// Outcome is the caller-visible result of SendFeedback.
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeMatched     Outcome = "matched"
	OutcomeRateLimited Outcome = "rate_limited"
)

// Result describes what SendFeedback did.
type Result struct {
	Outcome  Outcome
	PairHash string
	// RetryAt is set for OutcomeRateLimited.
	RetryAt time.Time
	// Notifications holds the committed pair for OutcomeMatched.
	Notifications []model.Notification
}

// Deps are the collaborators of an Engine. Store is required; zero values
// elsewhere fall back to defaults.
type Deps struct {
	Store    store.Store
	Ledger   *ledger.Ledger
	Pending  *pending.Matches
	Fanout   *notification.Fanout
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine orchestrates the cooldown check, the reciprocal lookup and the
// match commit. It keeps no per-request state.
type Engine struct {
	store    store.Store
	ledger   *ledger.Ledger
	pending  *pending.Matches
	fanout   *notification.Fanout
	cleanup  *Cleanup
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine wires an Engine.
func NewEngine(d Deps) (*Engine, error) {
	if d.Store == nil {
		return nil, errors.New("matching: store is required")
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(ledger.DefaultCooldown)
	}
	if d.Pending == nil {
		d.Pending = pending.New(pending.DefaultTTL)
	}
	if d.Fanout == nil {
		d.Fanout = notification.NewFanout(nil)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{
		store:    d.Store,
		ledger:   d.Ledger,
		pending:  d.Pending,
		fanout:   d.Fanout,
		cleanup:  NewCleanup(d.Ledger, d.Pending),
		notifier: d.Notifier,
		metrics:  d.Metrics,
		logger:   d.Logger,
		now:      d.Now,
	}, nil
}

// SendFeedback records that from signaled interest in to. Validation failures
// return a *ValidationError and leave the store untouched. A cooldown hit is
// reported as OutcomeRateLimited, not as an error.
func (e *Engine) SendFeedback(ctx context.Context, from, to string) (Result, error) {
	from, to = pairhash.Normalize(from), pairhash.Normalize(to)
	if err := validatePair(from, to); err != nil {
		return Result{}, err
	}
	h := pairhash.Sum(from, to)

	var res Result
	err := e.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		res, err = e.decide(ctx, tx, from, to, h)
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("send feedback: %w", err)
	}

	e.afterCommit(ctx, from, to, res)
	return res, nil
}

// decide runs inside one transaction holding the sender and pair locks, so
// the cooldown check-then-record and the lookup-then-match sequences cannot
// interleave with another caller touching the same user or pair.
func (e *Engine) decide(ctx context.Context, tx store.Tx, from, to, h string) (Result, error) {
	res := Result{PairHash: h}
	now := e.now().UTC()

	if err := tx.Lock(ctx, store.UserKey(from), store.PairKey(h)); err != nil {
		return res, err
	}

	decision, err := e.ledger.MayInitiate(ctx, tx, from, now)
	if err != nil {
		return res, err
	}
	if !decision.Allowed {
		res.Outcome = OutcomeRateLimited
		res.RetryAt = decision.RetryAt
		return res, nil
	}

	mutual, err := e.reciprocated(ctx, tx, h, to, now)
	if err != nil {
		return res, err
	}

	if mutual {
		if err := e.pending.ConfirmMutual(ctx, tx, h); err != nil {
			return res, err
		}
		notes, err := e.fanout.NotifyBoth(ctx, tx, to, from, now)
		if err != nil {
			return res, err
		}
		if _, err := e.cleanup.Purge(ctx, tx, h); err != nil {
			return res, err
		}
		res.Outcome = OutcomeMatched
		res.Notifications = notes
		return res, nil
	}

	if _, err := e.pending.Create(ctx, tx, h, now); err != nil {
		return res, err
	}
	if _, err := e.ledger.Record(ctx, tx, from, h, now); err != nil {
		return res, err
	}
	res.Outcome = OutcomeSent
	return res, nil
}

// reciprocated reports whether to already signaled from: a live pending row
// must exist for the pair and the ledger must name to as its originator. The
// pending row alone does not say who opened the pair.
func (e *Engine) reciprocated(ctx context.Context, tx store.Tx, h, to string, now time.Time) (bool, error) {
	pm, found, err := e.pending.Find(ctx, tx, h)
	if err != nil || !found || pm.Expired(now) {
		return false, err
	}
	return e.ledger.OriginatedBy(ctx, tx, h, to)
}

func (e *Engine) afterCommit(ctx context.Context, from, to string, res Result) {
	e.metrics.ObserveOutcome(string(res.Outcome))
	e.logger.Info("feedback processed",
		slog.String("outcome", string(res.Outcome)),
		slog.String("pair_hash", res.PairHash),
	)
	if res.Outcome != OutcomeMatched {
		return
	}

	e.metrics.ObserveNotifications(len(res.Notifications))
	if e.notifier == nil {
		return
	}
	for _, n := range res.Notifications {
		err := e.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindMutualMatch,
			ID:          n.ID,
			Destination: n.To,
			Context:     n.Context,
		})
		if err != nil {
			e.logger.Warn("notification delivery failed",
				slog.String("notification_id", n.ID),
				slog.Any("error", err),
			)
		}
	}
}

func validatePair(from, to string) error {
	if err := pairhash.Validate(from); err != nil {
		return invalid(CodeSenderInvalid, "Sender identity is invalid.")
	}
	if to == "" {
		return invalid(CodeTargetRequired, "targetUserHash is required.")
	}
	if err := pairhash.Validate(to); err != nil {
		return invalid(CodeInvalidFormat, "Invalid targetUserHash format.")
	}
	if from == to {
		return invalid(CodeSelfFeedback, "Cannot send feedback to yourself.")
	}
	return nil
}
