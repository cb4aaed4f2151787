package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassification(t *testing.T) {
	t.Parallel()
	cases := []struct {
		status int
		want   Category
	}{
		{http.StatusBadRequest, Irrecoverable},
		{http.StatusUnauthorized, Irrecoverable},
		{http.StatusNotFound, Irrecoverable},
		{http.StatusRequestTimeout, Recoverable},
		{http.StatusTooManyRequests, Recoverable},
		{http.StatusInternalServerError, Recoverable},
		{http.StatusBadGateway, Recoverable},
	}
	for _, c := range cases {
		e := NewHTTPError(c.status, errors.New("get conversation"))
		if e.Category != c.want {
			t.Fatalf("status %d: expected %v, got %v", c.status, c.want, e.Category)
		}
	}
}

func TestIsIrrecoverable(t *testing.T) {
	t.Parallel()
	if !IsIrrecoverable(NewHTTPError(http.StatusForbidden, errors.New("op"))) {
		t.Fatal("403 should be irrecoverable")
	}
	if IsIrrecoverable(NewNetworkError(errors.New("conn reset"))) {
		t.Fatal("network errors should be recoverable")
	}
	if IsIrrecoverable(errors.New("plain")) {
		t.Fatal("unclassified errors should not be irrecoverable")
	}
	// classification survives wrapping
	wrapped := fmt.Errorf("fetch space: %w", NewHTTPError(http.StatusNotFound, errors.New("op")))
	if !IsIrrecoverable(wrapped) {
		t.Fatal("wrapped classified error lost its category")
	}
}

func TestErrorCode(t *testing.T) {
	t.Parallel()
	if got := ErrorCode(NewHTTPError(http.StatusNotFound, errors.New("op"))); got != "not-found" {
		t.Fatalf("expected not-found, got %q", got)
	}
	if got := ErrorCode(NewHTTPError(599, errors.New("op"))); got != "http-599" {
		t.Fatalf("expected http-599, got %q", got)
	}
	if got := ErrorCode(errors.New("plain")); got != "unknown-error" {
		t.Fatalf("expected unknown-error, got %q", got)
	}
}
