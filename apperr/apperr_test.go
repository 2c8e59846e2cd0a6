package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := NotFoundf("ActivityRepo.Get", "activity %d", 7)
	wrapped := fmt.Errorf("load: %w", base)

	if got := KindOf(wrapped); got != NotFound {
		t.Fatalf("KindOf = %q, want %q", got, NotFound)
	}
	if !Is(wrapped, NotFound) {
		t.Fatalf("Is(NotFound) = false")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain error should have no kind")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("op", "x"), http.StatusNotFound},
		{Validationf("op", "x"), http.StatusBadRequest},
		{Unavailable("op", errors.New("db down")), http.StatusServiceUnavailable},
		{Conflictf("op", "x"), http.StatusConflict},
		{Forbiddenf("op", "x"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	err := New(Conflict, "Ledger.Apply", errors.New("slot taken"))
	if got := err.Error(); got != "Ledger.Apply: conflict: slot taken" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("Unwrap should expose the cause")
	}
}
