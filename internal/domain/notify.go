package domain

import "context"

// Notifier delivers a message to a user addressed by chat identity.
// Delivery is best-effort: failures are reported as KindDelivery errors
// and never affect intent state.
type Notifier interface {
	Notify(ctx context.Context, chatIdentity string, text string) error
}
