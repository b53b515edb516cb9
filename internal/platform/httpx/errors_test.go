package httpx_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hemam-center/hemam/internal/platform/httpx"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", httpx.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("%w: user u-1", httpx.ErrNotFound), http.StatusNotFound},
		{"duplicate", httpx.ErrDuplicate, http.StatusConflict},
		{"validation", httpx.ErrValidation, http.StatusBadRequest},
		{"forbidden", httpx.ErrForbidden, http.StatusForbidden},
		{"unauthorized", httpx.ErrUnauthorized, http.StatusUnauthorized},
		{"too many requests", httpx.ErrTooManyRequests, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			httpx.RespondError(res, tc.err)
			if res.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, res.Code)
			}
			if ct := res.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("unexpected content type %q", ct)
			}
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	res := httptest.NewRecorder()
	httpx.RespondError(res, errors.New("pq: connection refused to 10.0.0.5"))
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "10.0.0.5") {
		t.Fatalf("internal error detail must not leak: %s", res.Body.String())
	}
}
