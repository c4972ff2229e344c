package domain

import "context"

// WalletAccount is one custodial wallet attached to a linked user.
type WalletAccount struct {
	Address     string `json:"address"`
	ChainFamily string `json:"chain_family"` // e.g. "ethereum", "solana"
	ChainID     string `json:"chain_id"`     // e.g. "eip155:11155111"
	WalletKind  string `json:"wallet_kind"`  // e.g. "privy", "metamask"
}

// LinkedUser is the custodial-identity record resolved from a chat identity.
// Wallets preserves the order returned by the identity provider.
type LinkedUser struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name"`
	Wallets     []WalletAccount `json:"wallets"`
}

// IdentityResolver maps a platform-prefixed chat identity (e.g.
// "discord:80351110224678912") to its linked custodial user.
//
// A chat identity with no linked user yields ErrNotLinked. Transient
// provider failures yield a KindResolution error, so the caller can tell
// "link an account first" from "try again later".
type IdentityResolver interface {
	Resolve(ctx context.Context, chatIdentity string) (*LinkedUser, error)
}

// SplitIdentity separates a platform-prefixed chat identity into platform
// and platform-local subject. Identities without a prefix report an empty
// platform.
func SplitIdentity(chatIdentity string) (platform, subject string) {
	for i := 0; i < len(chatIdentity); i++ {
		if chatIdentity[i] == ':' {
			return chatIdentity[:i], chatIdentity[i+1:]
		}
	}
	return "", chatIdentity
}
