package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"paybot/internal/domain"
)

const directoryFixture = `{
  "data": [
    {
      "id": "did:privy:alice",
      "linked_accounts": [
        {"type": "discord_oauth", "subject": "111", "username": "alice#0"},
        {"type": "wallet", "address": "0xaaa", "chain_type": "ethereum", "chain_id": "eip155:11155111", "wallet_client_type": "privy"},
        {"type": "wallet", "address": "sol1", "chain_type": "solana", "chain_id": "solana:mainnet"}
      ]
    },
    {
      "id": "did:privy:bob",
      "linked_accounts": [
        {"type": "discord_oauth", "subject": "222", "username": "bob#0"}
      ]
    }
  ]
}`

func newDirectoryServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("privy-app-id") != "app-1" {
			t.Errorf("missing privy-app-id header")
		}
		if r.Header.Get("Authorization") == "" {
			t.Errorf("missing Authorization header")
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

func newResolver(baseURL string) *PrivyResolver {
	return NewPrivy(PrivyConfig{
		BaseURL:   baseURL,
		AppID:     "app-1",
		AppSecret: "secret",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestResolve_LinkedWithWallets(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusOK, directoryFixture)
	defer srv.Close()

	user, err := newResolver(srv.URL).Resolve(context.Background(), "discord:111")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user.UserID != "did:privy:alice" || user.DisplayName != "alice#0" {
		t.Fatalf("wrong user: %+v", user)
	}
	if len(user.Wallets) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(user.Wallets))
	}
	// Directory order must be preserved for the selection policy.
	if user.Wallets[0].Address != "0xaaa" || user.Wallets[1].Address != "sol1" {
		t.Fatalf("wallet order not preserved: %+v", user.Wallets)
	}
	if user.Wallets[1].WalletKind != "privy" {
		t.Fatalf("expected default wallet kind, got %q", user.Wallets[1].WalletKind)
	}
}

func TestResolve_LinkedWithoutWallets(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusOK, directoryFixture)
	defer srv.Close()

	user, err := newResolver(srv.URL).Resolve(context.Background(), "discord:222")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(user.Wallets) != 0 {
		t.Fatalf("expected no wallets, got %+v", user.Wallets)
	}
}

func TestResolve_NotLinked(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusOK, directoryFixture)
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "discord:999")
	if !errors.Is(err, domain.ErrNotLinked) {
		t.Fatalf("expected ErrNotLinked, got %v", err)
	}
}

func TestResolve_UpstreamErrorIsRetryable(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusBadGateway, `{"error":"upstream"}`)
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "discord:111")
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := domain.KindOf(err); kind != domain.KindResolution {
		t.Fatalf("expected resolution kind, got %q", kind)
	}
	if !domain.KindOf(err).Retryable() {
		t.Fatal("resolution failures must be retryable")
	}
}

func TestResolve_UnknownPlatform(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusOK, directoryFixture)
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "matrix:111")
	if kind := domain.KindOf(err); kind != domain.KindValidation {
		t.Fatalf("expected validation kind, got %v", err)
	}
}

func TestResolve_MalformedBody(t *testing.T) {
	srv := newDirectoryServer(t, http.StatusOK, `{"data": [`)
	defer srv.Close()

	_, err := newResolver(srv.URL).Resolve(context.Background(), "discord:111")
	if kind := domain.KindOf(err); kind != domain.KindResolution {
		t.Fatalf("expected resolution kind, got %v", err)
	}
}
