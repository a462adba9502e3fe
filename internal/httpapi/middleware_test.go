package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Noble200/nose-sub001/internal/service"
	"github.com/Noble200/nose-sub001/internal/store"
	"github.com/Noble200/nose-sub001/internal/store/memory"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options nosniff, got %q", got)
	}
	if got := res.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("expected X-Frame-Options DENY, got %q", got)
	}
	if got := res.Header().Get("Referrer-Policy"); got == "" {
		t.Fatalf("expected Referrer-Policy to be set")
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected configured origin, got %q", got)
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/purchases", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	svc := service.New(memory.NewSeeded(store.DefaultMaxAttempts), service.Options{Logger: zerolog.Nop()})
	api := New(svc, Config{AllowedOrigin: "*", RateLimitPerMinute: 3, Logger: zerolog.Nop()})
	h := api.Handler()

	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "127.0.0.1:5000"
		res := httptest.NewRecorder()

		h.ServeHTTP(res, req)

		if i < 3 && res.Code != http.StatusOK {
			t.Fatalf("attempt %d expected 200 before limit, got %d", i+1, res.Code)
		}
		if i == 3 {
			expectCode(t, res, http.StatusTooManyRequests, "rate_limited")
		}
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	veryLong := strings.Repeat("a", maxBodyBytes+1024)
	body := fmt.Sprintf(`{"supplier":"%s","lineItems":[]}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	expectCode(t, res, http.StatusBadRequest, "invalid_json")
}

func TestUnknownRouteAndMethod(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()

	expectCode(t, doJSON(t, h, http.MethodGet, "/api/v1/reports", nil), http.StatusNotFound, "not_found")
	expectCode(t, doJSON(t, h, http.MethodPut, "/api/v1/products", nil), http.StatusMethodNotAllowed, "method_not_allowed")
}
