// Package intent holds the payment-intent lifecycle: creation,
// authorized lookup, and reconciliation of settlement confirmations.
package intent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paybot/internal/domain"
	"paybot/internal/metrics"
	"paybot/internal/wallet"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// CreateRequest carries the inputs of the create entry point.
type CreateRequest struct {
	SenderIdentity    string          `json:"sender_identity" validate:"required"`
	RecipientIdentity string          `json:"recipient_identity" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	CurrencyCode      string          `json:"currency_code" validate:"required"`
	OriginContext     string          `json:"origin_context,omitempty"`
}

// Coordinator orchestrates intent creation and authorized reads. It owns
// no state of its own; the store is the single source of truth.
type Coordinator struct {
	store    domain.IntentStore
	resolver domain.IdentityResolver
	policy   wallet.Policy
	chains   *wallet.Registry
	logger   *slog.Logger
}

func NewCoordinator(store domain.IntentStore, resolver domain.IdentityResolver, policy wallet.Policy, chains *wallet.Registry, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		resolver: resolver,
		policy:   policy,
		chains:   chains,
		logger:   logger,
	}
}

// CreateIntent validates the request, resolves both parties, freezes the
// wallet snapshots, and persists a pending intent. Validation failures
// are rejected before any external call.
func (c *Coordinator) CreateIntent(ctx context.Context, req CreateRequest) (*domain.PaymentIntent, error) {
	if err := validate.Struct(req); err != nil {
		return nil, domain.WrapError(domain.KindValidation, "invalid create request", err)
	}
	if req.SenderIdentity == req.RecipientIdentity {
		return nil, domain.ErrSelfPayment
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	sender, err := c.resolveParty(ctx, req.SenderIdentity, domain.ErrSenderNotLinked, domain.ErrSenderNoWallet)
	if err != nil {
		return nil, err
	}
	recipient, err := c.resolveParty(ctx, req.RecipientIdentity, domain.ErrRecipientNotLinked, domain.ErrRecipientNoWallet)
	if err != nil {
		return nil, err
	}

	senderWallet := c.policy.Select(sender.Wallets)
	recipientWallet := c.policy.Select(recipient.Wallets)
	if senderWallet == nil || recipientWallet == nil {
		// Should not happen after resolveParty, defensive check only.
		return nil, domain.ErrNoCompatibleWallet
	}

	created := &domain.PaymentIntent{
		ID:                     uuid.NewString(),
		SenderIdentity:         req.SenderIdentity,
		RecipientIdentity:      req.RecipientIdentity,
		SenderDisplayName:      sender.DisplayName,
		RecipientDisplayName:   recipient.DisplayName,
		Amount:                 req.Amount,
		CurrencyCode:           req.CurrencyCode,
		SenderWalletAddress:    senderWallet.Address,
		RecipientWalletAddress: recipientWallet.Address,
		SenderChainLabel:       c.chains.Label(*senderWallet),
		RecipientChainLabel:    c.chains.Label(*recipientWallet),
		Status:                 domain.StatusPending,
		CreatedAt:              time.Now().UTC(),
		OriginContext:          req.OriginContext,
	}

	if err := c.store.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("persist intent: %w", err)
	}

	metrics.IntentsCreated.Inc()
	metrics.PendingIntents.Inc()
	c.logger.Info("intent created",
		"id", created.ID,
		"sender", created.SenderIdentity,
		"recipient", created.RecipientIdentity,
		"amount", created.Amount.String(),
		"currency", created.CurrencyCode,
	)
	return created, nil
}

func (c *Coordinator) resolveParty(ctx context.Context, identity string, notLinked, noWallet *domain.Error) (*domain.LinkedUser, error) {
	user, err := c.resolver.Resolve(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrNotLinked) {
			return nil, notLinked
		}
		return nil, fmt.Errorf("resolve %s: %w", identity, err)
	}
	if len(user.Wallets) == 0 {
		return nil, noWallet
	}
	return user, nil
}

// GetIntentFor fetches an intent on behalf of an end user. The requester
// must be a party to the intent; an intent id alone is never sufficient
// to read the record.
func (c *Coordinator) GetIntentFor(ctx context.Context, identity, id string) (*domain.PaymentIntent, error) {
	intent, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !intent.IsParty(identity) {
		return nil, domain.ErrUnauthorized
	}
	return intent, nil
}

// ListIntentsFor returns the requester's own intents, most recent first.
func (c *Coordinator) ListIntentsFor(ctx context.Context, identity string) ([]domain.PaymentIntent, error) {
	if identity == "" {
		return nil, domain.ErrUnauthorized
	}
	return c.store.ListByParty(ctx, identity)
}
