package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", NotFound("Athlete", 7), http.StatusNotFound, "NOT_FOUND"},
		{"validation", Validation("email: must be an email", nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"bad request", BadRequest(errors.New("unknown column")), http.StatusBadRequest, "BAD_REQUEST"},
		{"conflict", Conflict("duplicate", errors.New("23505")), http.StatusConflict, "CONFLICT"},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"upstream", Upstream("ai service", errors.New("timeout")), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"store", Store(errors.New("conn reset")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.err); got != tc.want {
				t.Fatalf("Status = %d, want %d", got, tc.want)
			}
			if got := Code(tc.err); got != tc.code {
				t.Fatalf("Code = %q, want %q", got, tc.code)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reorder item 2: %w", NotFound("Athlete", 99))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrapped not-found lost its kind: %v", err)
	}
	if Status(err) != http.StatusNotFound {
		t.Fatalf("unexpected status %d", Status(err))
	}
}

func TestPublicHidesStoreErrors(t *testing.T) {
	msg, details := Public(Store(errors.New("password authentication failed for user app")))
	if msg != "Internal server error" || details != nil {
		t.Fatalf("store error leaked: %q %v", msg, details)
	}

	msg, details = Public(NotFound("Athlete", 1))
	if msg != "Resource not found" || details == nil {
		t.Fatalf("unexpected public not-found: %q %v", msg, details)
	}
}
