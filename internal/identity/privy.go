// Package identity resolves chat identities to linked custodial users.
package identity

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"paybot/internal/domain"
)

// platformAccountTypes maps a chat platform prefix to the linked-account
// type the identity provider records for it.
var platformAccountTypes = map[string]string{
	"discord":  "discord_oauth",
	"telegram": "telegram",
	"slack":    "slack_oauth",
}

// PrivyResolver implements domain.IdentityResolver against a Privy-style
// user directory: list users, scan linked accounts for a platform subject
// match, and extract wallet accounts in directory order.
type PrivyResolver struct {
	baseURL   string
	appID     string
	authBasic string
	httpc     *http.Client
	logger    *slog.Logger
}

// PrivyConfig configures the Privy resolver.
type PrivyConfig struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewPrivy(cfg PrivyConfig) *PrivyResolver {
	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.AppID + ":" + cfg.AppSecret))
	return &PrivyResolver{
		baseURL:   cfg.BaseURL,
		appID:     cfg.AppID,
		authBasic: "Basic " + credentials,
		httpc:     sharedHTTPClient(cfg.Timeout),
		logger:    cfg.Logger,
	}
}

// privyUser mirrors the provider's user payload; only the fields the
// resolver reads are declared.
type privyUser struct {
	ID             string               `json:"id"`
	LinkedAccounts []privyLinkedAccount `json:"linked_accounts"`
}

type privyLinkedAccount struct {
	Type             string `json:"type"`
	Subject          string `json:"subject,omitempty"`
	Username         string `json:"username,omitempty"`
	Address          string `json:"address,omitempty"`
	ChainType        string `json:"chain_type,omitempty"`
	ChainID          string `json:"chain_id,omitempty"`
	WalletClientType string `json:"wallet_client_type,omitempty"`
}

type privyUserList struct {
	Data []privyUser `json:"data"`
}

// Resolve finds the custodial user whose linked platform account matches
// chatIdentity. No match yields domain.ErrNotLinked; provider failures
// yield a retryable resolution error.
func (r *PrivyResolver) Resolve(ctx context.Context, chatIdentity string) (*domain.LinkedUser, error) {
	platform, subject := domain.SplitIdentity(chatIdentity)
	accountType, ok := platformAccountTypes[platform]
	if !ok {
		return nil, domain.WrapError(domain.KindValidation, fmt.Sprintf("unknown chat platform %q", platform), nil)
	}

	users, err := r.listUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		if !hasPlatformAccount(user, accountType, subject) {
			continue
		}
		linked := &domain.LinkedUser{UserID: user.ID}
		for _, acct := range user.LinkedAccounts {
			switch acct.Type {
			case accountType:
				linked.DisplayName = acct.Username
			case "wallet":
				linked.Wallets = append(linked.Wallets, domain.WalletAccount{
					Address:     acct.Address,
					ChainFamily: valueOr(acct.ChainType, "ethereum"),
					ChainID:     valueOr(acct.ChainID, "eip155:1"),
					WalletKind:  valueOr(acct.WalletClientType, "privy"),
				})
			}
		}
		return linked, nil
	}

	return nil, domain.ErrNotLinked
}

func (r *PrivyResolver) listUsers(ctx context.Context) ([]privyUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/v1/users", nil)
	if err != nil {
		return nil, domain.WrapError(domain.KindResolution, "build user directory request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", r.authBasic)
	req.Header.Set("privy-app-id", r.appID)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.KindResolution, "user directory unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Warn("user directory returned non-200", "status", resp.StatusCode, "body", string(body))
		return nil, domain.WrapError(domain.KindResolution,
			fmt.Sprintf("user directory returned status %d", resp.StatusCode), nil)
	}

	var list privyUserList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, domain.WrapError(domain.KindResolution, "decode user directory response", err)
	}
	return list.Data, nil
}

func hasPlatformAccount(user privyUser, accountType, subject string) bool {
	for _, acct := range user.LinkedAccounts {
		if acct.Type == accountType && acct.Subject == subject {
			return true
		}
	}
	return false
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// sharedHTTPClient returns an HTTP client with connection pooling.
func sharedHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
