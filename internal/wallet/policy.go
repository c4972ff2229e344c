// Package wallet decides which of a user's custodial wallet accounts an
// intent settles against, and how chains are labelled for humans.
package wallet

import "paybot/internal/domain"

// Policy deterministically picks the settlement account from the ordered
// wallet set an identity resolver returns. Preference order: the first
// account on the preferred chain, else the first account of the default
// chain family, else the first account. The ordering is a deliberate
// policy so intent creation is reproducible given the same wallet set.
type Policy struct {
	PreferredChainID   string
	DefaultChainFamily string
}

// Select returns the settlement account, or nil if accounts is empty.
func (p Policy) Select(accounts []domain.WalletAccount) *domain.WalletAccount {
	if len(accounts) == 0 {
		return nil
	}
	if p.PreferredChainID != "" {
		for i := range accounts {
			if accounts[i].ChainID == p.PreferredChainID {
				picked := accounts[i]
				return &picked
			}
		}
	}
	if p.DefaultChainFamily != "" {
		for i := range accounts {
			if accounts[i].ChainFamily == p.DefaultChainFamily {
				picked := accounts[i]
				return &picked
			}
		}
	}
	picked := accounts[0]
	return &picked
}
