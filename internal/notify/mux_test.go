package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"paybot/internal/domain"
)

type recordingSender struct {
	subject string
	text    string
	err     error
}

func (r *recordingSender) Send(_ context.Context, subject, text string) error {
	if r.err != nil {
		return r.err
	}
	r.subject = subject
	r.text = text
	return nil
}

func newTestMux() (*Mux, *recordingSender) {
	mux := NewMux(slog.New(slog.NewTextHandler(io.Discard, nil)))
	sender := &recordingSender{}
	mux.Register("discord", sender)
	return mux, sender
}

func TestMux_RoutesByPlatformPrefix(t *testing.T) {
	mux, sender := newTestMux()

	if err := mux.Notify(context.Background(), "discord:12345", "hello"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sender.subject != "12345" {
		t.Fatalf("sender got subject %q, want platform-local id", sender.subject)
	}
	if sender.text != "hello" {
		t.Fatalf("text not forwarded: %q", sender.text)
	}
}

func TestMux_UnknownPlatform(t *testing.T) {
	mux, _ := newTestMux()

	err := mux.Notify(context.Background(), "matrix:12345", "hello")
	if kind := domain.KindOf(err); kind != domain.KindDelivery {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestMux_SenderFailureIsDeliveryKind(t *testing.T) {
	mux := NewMux(slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux.Register("discord", &recordingSender{err: errors.New("rate limited")})

	err := mux.Notify(context.Background(), "discord:12345", "hello")
	if !errors.Is(err, domain.ErrUndeliverable) && domain.KindOf(err) != domain.KindDelivery {
		t.Fatalf("expected delivery error, got %v", err)
	}
}
