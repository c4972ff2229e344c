package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelMatchesWrappedError(t *testing.T) {
	inner := WrapError(KindNotFound, "intent not found", errors.New("sql: no rows"))
	wrapped := fmt.Errorf("get intent abc: %w", inner)

	if !errors.Is(wrapped, ErrIntentNotFound) {
		t.Fatalf("errors.Is(wrapped, ErrIntentNotFound) = false, want true")
	}
	if errors.Is(wrapped, ErrDuplicateID) {
		t.Fatalf("not-found error matched the conflict sentinel")
	}
}

func TestKindOfWalksWrapChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", WrapError(KindStorage, "write intent", errors.New("disk full")))
	if got := KindOf(err); got != KindStorage {
		t.Fatalf("KindOf = %q, want %q", got, KindStorage)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q, want empty", got)
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := map[Kind]bool{
		KindValidation:   false,
		KindLinkage:      false,
		KindResolution:   true,
		KindNotFound:     false,
		KindUnauthorized: false,
		KindConflict:     false,
		KindStorage:      true,
		KindDelivery:     false,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Fatalf("%s.Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestSplitIdentity(t *testing.T) {
	tests := []struct {
		in       string
		platform string
		subject  string
	}{
		{"discord:80351110224678912", "discord", "80351110224678912"},
		{"telegram:12345", "telegram", "12345"},
		{"slack:U024BE7LH", "slack", "U024BE7LH"},
		{"noprefix", "", "noprefix"},
		{"discord:", "discord", ""},
		{"a:b:c", "a", "b:c"},
		{"", "", ""},
	}
	for _, tt := range tests {
		platform, subject := SplitIdentity(tt.in)
		if platform != tt.platform || subject != tt.subject {
			t.Fatalf("SplitIdentity(%q) = (%q, %q), want (%q, %q)",
				tt.in, platform, subject, tt.platform, tt.subject)
		}
	}
}
