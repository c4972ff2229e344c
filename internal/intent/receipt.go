package intent

import (
	"fmt"

	"paybot/internal/domain"
)

// RecipientReceipt is the settlement announcement sent to the recipient.
func RecipientReceipt(p *domain.PaymentIntent) string {
	return fmt.Sprintf(
		"You received %s %s from %s.\nWallet: %s (%s)\nSettlement reference: %s",
		p.Amount.String(), p.CurrencyCode, displayName(p.SenderDisplayName, p.SenderIdentity),
		p.RecipientWalletAddress, p.RecipientChainLabel, p.SettlementReference,
	)
}

// SenderReceipt confirms to the sender that their transfer settled.
func SenderReceipt(p *domain.PaymentIntent) string {
	return fmt.Sprintf(
		"Your payment of %s %s to %s is complete.\nSettlement reference: %s",
		p.Amount.String(), p.CurrencyCode, displayName(p.RecipientDisplayName, p.RecipientIdentity),
		p.SettlementReference,
	)
}

// PendingNotice asks the recipient to expect an incoming transfer.
func PendingNotice(p *domain.PaymentIntent) string {
	return fmt.Sprintf(
		"%s wants to send you %s %s.\nIt will arrive at %s (%s). Intent id: %s",
		displayName(p.SenderDisplayName, p.SenderIdentity), p.Amount.String(), p.CurrencyCode,
		p.RecipientWalletAddress, p.RecipientChainLabel, p.ID,
	)
}

func displayName(name, identity string) string {
	if name != "" {
		return name
	}
	return identity
}
