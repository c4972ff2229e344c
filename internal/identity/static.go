package identity

import (
	"context"

	"paybot/internal/config"
	"paybot/internal/domain"
)

// StaticResolver serves linked users from a fixed in-memory table. It
// backs the "static" identity provider for development and tests.
type StaticResolver struct {
	users map[string]*domain.LinkedUser
}

func NewStatic(users map[string]*domain.LinkedUser) *StaticResolver {
	if users == nil {
		users = make(map[string]*domain.LinkedUser)
	}
	return &StaticResolver{users: users}
}

// NewStaticFromConfig builds a StaticResolver from config fixtures.
func NewStaticFromConfig(fixtures map[string]config.StaticUser) *StaticResolver {
	users := make(map[string]*domain.LinkedUser, len(fixtures))
	for identity, fixture := range fixtures {
		user := &domain.LinkedUser{
			UserID:      "static:" + identity,
			DisplayName: fixture.DisplayName,
		}
		for _, w := range fixture.Wallets {
			user.Wallets = append(user.Wallets, domain.WalletAccount{
				Address:     w.Address,
				ChainFamily: w.ChainFamily,
				ChainID:     w.ChainID,
				WalletKind:  w.WalletKind,
			})
		}
		users[identity] = user
	}
	return &StaticResolver{users: users}
}

func (s *StaticResolver) Resolve(_ context.Context, chatIdentity string) (*domain.LinkedUser, error) {
	user, ok := s.users[chatIdentity]
	if !ok {
		return nil, domain.ErrNotLinked
	}
	clone := *user
	clone.Wallets = append([]domain.WalletAccount(nil), user.Wallets...)
	return &clone, nil
}
