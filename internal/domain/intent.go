package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a payment intent.
// The only legal transition is pending -> completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// PaymentIntent is a recorded request to transfer value between two chat
// identities, prior to and independent of actual settlement.
//
// Display names and wallet/chain fields are snapshots captured at creation
// and never refreshed, so historical records stay readable even if a party
// later renames or re-links wallets. Reconciliation only ever sets Status,
// SettlementReference, and ConfirmedAt.
type PaymentIntent struct {
	ID                     string          `json:"id"`
	SenderIdentity         string          `json:"sender_identity"`
	RecipientIdentity      string          `json:"recipient_identity"`
	SenderDisplayName      string          `json:"sender_display_name"`
	RecipientDisplayName   string          `json:"recipient_display_name"`
	Amount                 decimal.Decimal `json:"amount"`
	CurrencyCode           string          `json:"currency_code"`
	SenderWalletAddress    string          `json:"sender_wallet_address"`
	RecipientWalletAddress string          `json:"recipient_wallet_address"`
	SenderChainLabel       string          `json:"sender_chain_label"`
	RecipientChainLabel    string          `json:"recipient_chain_label"`
	Status                 Status          `json:"status"`
	CreatedAt              time.Time       `json:"created_at"`
	ConfirmedAt            *time.Time      `json:"confirmed_at,omitempty"`
	SettlementReference    string          `json:"settlement_reference,omitempty"`
	OriginContext          string          `json:"origin_context,omitempty"`
}

// IsParty reports whether identity is the sender or the recipient.
func (p *PaymentIntent) IsParty(identity string) bool {
	return identity != "" && (identity == p.SenderIdentity || identity == p.RecipientIdentity)
}

// Clone returns a deep copy so stores never hand out aliased records.
func (p *PaymentIntent) Clone() *PaymentIntent {
	clone := *p
	if p.ConfirmedAt != nil {
		ts := *p.ConfirmedAt
		clone.ConfirmedAt = &ts
	}
	return &clone
}
