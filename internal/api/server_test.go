package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paybot/internal/domain"
	"paybot/internal/identity"
	"paybot/internal/intent"
	"paybot/internal/notify"
	"paybot/internal/store"
	"paybot/internal/wallet"
)

const operatorIdentity = "discord:ops"

func newTestServer(t *testing.T, fold bool) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := map[string]*domain.LinkedUser{
		"discord:sender": {
			UserID: "u-s", DisplayName: "sender#0",
			Wallets: []domain.WalletAccount{{Address: "0xsend", ChainFamily: "ethereum", ChainID: "eip155:1"}},
		},
		"discord:recipient": {
			UserID: "u-r", DisplayName: "recipient#0",
			Wallets: []domain.WalletAccount{{Address: "0xrecv", ChainFamily: "ethereum", ChainID: "eip155:11155111"}},
		},
	}

	st := store.NewMemoryStore()
	coord := intent.NewCoordinator(st, identity.NewStatic(users),
		wallet.Policy{PreferredChainID: "eip155:11155111", DefaultChainFamily: "ethereum"},
		wallet.DefaultRegistry(), logger)
	rec := intent.NewReconciler(st, notify.NewMux(logger), []string{operatorIdentity}, logger)

	return New(Config{
		Host:             "127.0.0.1",
		Port:             0,
		Coordinator:      coord,
		Reconciler:       rec,
		FoldUnauthorized: fold,
		Logger:           logger,
	})
}

func doRequest(t *testing.T, srv *Server, method, path, caller, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set(identityHeader, caller)
	}
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	return rr
}

func createViaAPI(t *testing.T, srv *Server) domain.PaymentIntent {
	t.Helper()
	rr := doRequest(t, srv, http.MethodPost, "/api/payments", "discord:sender",
		`{"recipient_identity": "discord:recipient", "amount": "0.1", "currency_code": "ETH"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.PaymentIntent
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created intent: %v", err)
	}
	return created
}

func TestCreateEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	created := createViaAPI(t, srv)

	if created.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %q", created.Status)
	}
	if created.SenderIdentity != "discord:sender" {
		t.Fatalf("sender must come from the caller header, got %q", created.SenderIdentity)
	}
	if created.RecipientChainLabel != "Sepolia Testnet" {
		t.Fatalf("chain label not resolved: %q", created.RecipientChainLabel)
	}
}

func TestCreateEndpoint_SenderHeaderWinsOverBody(t *testing.T) {
	srv := newTestServer(t, true)
	rr := doRequest(t, srv, http.MethodPost, "/api/payments", "discord:sender",
		`{"sender_identity": "discord:spoofed", "recipient_identity": "discord:recipient", "amount": "1", "currency_code": "ETH"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
	var created domain.PaymentIntent
	json.Unmarshal(rr.Body.Bytes(), &created)
	if created.SenderIdentity != "discord:sender" {
		t.Fatalf("body sender identity was honored: %q", created.SenderIdentity)
	}
}

func TestCreateEndpoint_Failures(t *testing.T) {
	srv := newTestServer(t, true)
	cases := []struct {
		name       string
		caller     string
		body       string
		wantStatus int
	}{
		{"missing identity", "", `{"recipient_identity": "discord:recipient", "amount": "1", "currency_code": "ETH"}`, http.StatusUnauthorized},
		{"malformed body", "discord:sender", `{`, http.StatusBadRequest},
		{"self payment", "discord:sender", `{"recipient_identity": "discord:sender", "amount": "1", "currency_code": "ETH"}`, http.StatusBadRequest},
		{"zero amount", "discord:sender", `{"recipient_identity": "discord:recipient", "amount": "0", "currency_code": "ETH"}`, http.StatusBadRequest},
		{"unlinked recipient", "discord:sender", `{"recipient_identity": "discord:ghost", "amount": "1", "currency_code": "ETH"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, srv, http.MethodPost, "/api/payments", tc.caller, tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestQueryEndpoint_Authorization(t *testing.T) {
	srv := newTestServer(t, true)
	created := createViaAPI(t, srv)

	for _, party := range []string{"discord:sender", "discord:recipient"} {
		rr := doRequest(t, srv, http.MethodGet, "/api/payments/"+created.ID, party, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("party %s denied: %d", party, rr.Code)
		}
	}

	// With folding on, a stranger sees the same 404 as a bogus id.
	stranger := doRequest(t, srv, http.MethodGet, "/api/payments/"+created.ID, "discord:stranger", "")
	bogus := doRequest(t, srv, http.MethodGet, "/api/payments/bogus-id", "discord:sender", "")
	if stranger.Code != http.StatusNotFound || bogus.Code != http.StatusNotFound {
		t.Fatalf("expected 404/404, got %d/%d", stranger.Code, bogus.Code)
	}
	if stranger.Body.String() != bogus.Body.String() {
		t.Fatalf("unauthorized and not-found responses are distinguishable:\n%s\n%s",
			stranger.Body.String(), bogus.Body.String())
	}
}

func TestQueryEndpoint_UnfoldedUnauthorized(t *testing.T) {
	srv := newTestServer(t, false)
	created := createViaAPI(t, srv)

	rr := doRequest(t, srv, http.MethodGet, "/api/payments/"+created.ID, "discord:stranger", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without folding, got %d", rr.Code)
	}
}

func TestListEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	createViaAPI(t, srv)

	rr := doRequest(t, srv, http.MethodGet, "/api/payments", "discord:recipient", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list returned %d", rr.Code)
	}
	var intents []domain.PaymentIntent
	if err := json.Unmarshal(rr.Body.Bytes(), &intents); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(intents))
	}

	empty := doRequest(t, srv, http.MethodGet, "/api/payments", "discord:stranger", "")
	if empty.Code != http.StatusOK || strings.TrimSpace(empty.Body.String()) != "[]" {
		t.Fatalf("stranger list should be empty 200, got %d %s", empty.Code, empty.Body.String())
	}
}

func TestConfirmEndpoint(t *testing.T) {
	srv := newTestServer(t, true)
	created := createViaAPI(t, srv)

	rr := doRequest(t, srv, http.MethodPost, "/api/payments/"+created.ID+"/confirm",
		operatorIdentity, `{"settlement_reference": "0xabc123"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("confirm returned %d: %s", rr.Code, rr.Body.String())
	}
	var resp confirmResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode confirm response: %v", err)
	}
	if resp.Intent.Status != domain.StatusCompleted || resp.Replayed {
		t.Fatalf("unexpected outcome: %+v", resp)
	}

	// Replay is 200 with replayed=true, never a conflict.
	rr = doRequest(t, srv, http.MethodPost, "/api/payments/"+created.ID+"/confirm",
		operatorIdentity, `{"settlement_reference": "0xabc123"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("replayed confirm returned %d", rr.Code)
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.Replayed {
		t.Fatal("expected replayed outcome")
	}
}

func TestConfirmEndpoint_RequiresOperator(t *testing.T) {
	srv := newTestServer(t, true)
	created := createViaAPI(t, srv)

	rr := doRequest(t, srv, http.MethodPost, "/api/payments/"+created.ID+"/confirm",
		"discord:sender", `{"settlement_reference": "0xabc123"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-operator, got %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodPost, "/api/payments/"+created.ID+"/confirm",
		operatorIdentity, `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing reference, got %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, true)

	rr := doRequest(t, srv, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("health returned %d", rr.Code)
	}

	rr = doRequest(t, srv, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "paybot_uptime_seconds") {
		t.Fatalf("metrics exposition missing uptime:\n%s", rr.Body.String())
	}
}

func TestShutdown(t *testing.T) {
	srv := newTestServer(t, true)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
