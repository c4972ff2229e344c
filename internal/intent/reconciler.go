package intent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"paybot/internal/domain"
	"paybot/internal/metrics"
)

// Reconciler applies settlement confirmations reported by the external
// settlement process to stored intents.
type Reconciler struct {
	store     domain.IntentStore
	notifier  domain.Notifier
	operators map[string]struct{}
	logger    *slog.Logger
}

func NewReconciler(store domain.IntentStore, notifier domain.Notifier, operators []string, logger *slog.Logger) *Reconciler {
	ops := make(map[string]struct{}, len(operators))
	for _, o := range operators {
		ops[o] = struct{}{}
	}
	return &Reconciler{
		store:     store,
		notifier:  notifier,
		operators: ops,
		logger:    logger,
	}
}

// ConfirmOutcome reports what a confirmation did.
type ConfirmOutcome struct {
	Intent *domain.PaymentIntent

	// Replayed is true when the intent was already completed; the record
	// is returned unchanged and nobody is re-notified.
	Replayed bool

	// DeliveryErr carries a notification failure. The state transition
	// stands regardless; the caller can surface the receipt manually.
	DeliveryErr error
}

// Confirm transitions an intent to completed and records the settlement
// reference. Only configured operator identities may call it. The
// transition is made durable before any notification is attempted, and a
// second confirmation of the same intent is a no-op, never an error.
func (r *Reconciler) Confirm(ctx context.Context, caller, id, settlementRef string) (*ConfirmOutcome, error) {
	if _, ok := r.operators[caller]; !ok {
		r.logger.Warn("confirm rejected, caller is not an operator", "caller", caller, "id", id)
		return nil, domain.ErrNotOperator
	}

	replayed := false
	updated, err := r.store.Update(ctx, id, func(p *domain.PaymentIntent) error {
		if p.Status == domain.StatusCompleted {
			replayed = true
			return nil
		}
		now := time.Now().UTC()
		p.Status = domain.StatusCompleted
		p.SettlementReference = settlementRef
		p.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile intent %s: %w", id, err)
	}

	if replayed {
		metrics.ConfirmReplays.Inc()
		r.logger.Info("confirmation replayed, no state change", "id", id, "reference", updated.SettlementReference)
		return &ConfirmOutcome{Intent: updated, Replayed: true}, nil
	}

	metrics.IntentsComplete.Inc()
	metrics.PendingIntents.Dec()
	r.logger.Info("intent completed",
		"id", id,
		"reference", settlementRef,
		"recipient", updated.RecipientIdentity,
	)

	outcome := &ConfirmOutcome{Intent: updated}
	outcome.DeliveryErr = r.announce(ctx, updated)
	return outcome, nil
}

// announce notifies both parties. Failures are collected, logged, and
// reported as a non-fatal delivery error; they never roll back the
// completed transition.
func (r *Reconciler) announce(ctx context.Context, intent *domain.PaymentIntent) error {
	var firstErr error
	for _, target := range []struct {
		identity string
		text     string
	}{
		{intent.RecipientIdentity, RecipientReceipt(intent)},
		{intent.SenderIdentity, SenderReceipt(intent)},
	} {
		if err := r.notifier.Notify(ctx, target.identity, target.text); err != nil {
			metrics.NotifyFailures.Inc()
			r.logger.Warn("receipt delivery failed",
				"id", intent.ID,
				"identity", target.identity,
				"err", err,
			)
			if firstErr == nil {
				firstErr = domain.WrapError(domain.KindDelivery,
					fmt.Sprintf("notify %s", target.identity), err)
			}
		}
	}
	return firstErr
}
