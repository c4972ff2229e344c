package domain

import "context"

// IntentStore is durable storage for payment intents. Implementations must
// guarantee read-your-writes: a successful Update is visible to every
// subsequent Get and ListByParty.
//
// Update applies mutate to the stored record under a per-id critical
// section and persists the result atomically; concurrent updates to
// different ids must not block each other. If mutate returns an error the
// stored record is left untouched.
type IntentStore interface {
	Create(ctx context.Context, intent *PaymentIntent) error
	Get(ctx context.Context, id string) (*PaymentIntent, error)
	Update(ctx context.Context, id string, mutate func(*PaymentIntent) error) (*PaymentIntent, error)

	// ListByParty returns every intent where identity is sender or
	// recipient, most recent first.
	ListByParty(ctx context.Context, identity string) ([]PaymentIntent, error)

	Close() error
}
