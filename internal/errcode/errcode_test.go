package errcode

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOfWrappedError(t *testing.T) {
	base := New(QuotaExceeded, "upgrade required")
	wrapped := fmt.Errorf("save portfolio: %w", base)

	if got := KindOf(wrapped); got != QuotaExceeded {
		t.Fatalf("expected QuotaExceeded, got %s", got)
	}
	if got := KindOf(fmt.Errorf("handler: %w", wrapped)); got != QuotaExceeded {
		t.Fatalf("expected doubly wrapped QuotaExceeded, got %s", got)
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Fatalf("expected Internal, got %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "count portfolios")

	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
	if err.Error() != "count portfolios: connection refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLimitedCarriesRetryHint(t *testing.T) {
	err := Limited("too many uploads", 12*time.Second)
	if err.Kind != RateLimited || err.RetryAfter != 12*time.Second {
		t.Fatalf("unexpected error %+v", err)
	}
}
