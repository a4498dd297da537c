package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bimakw/chain-analytics/internal/testutil"
)

type ledgerState int

const (
	ledgerUp ledgerState = iota
	ledgerDown
	ledgerEstimated
)

func newLedger(state ledgerState) *testutil.MockHealthChecker {
	ledger := testutil.NewMockHealthChecker(state != ledgerDown)
	if state == ledgerEstimated {
		ledger.SetEstimatedHead(0x10, 21576000)
	}
	return ledger
}

func getHealth(t *testing.T, handler *HealthHandler) (int, HealthResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec.Code, response
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name         string
		ledger       ledgerState
		cache        *testutil.MockHealthChecker
		code         int
		status       string
		ledgerPrefix string
		cacheStatus  string
	}{
		{"all healthy", ledgerUp, testutil.NewMockHealthChecker(true), http.StatusOK, "healthy", "healthy", "healthy"},
		{"memory-only cache", ledgerUp, nil, http.StatusOK, "healthy", "healthy", ""},
		{"cache down", ledgerUp, testutil.NewMockHealthChecker(false), http.StatusOK, "degraded", "healthy", "unhealthy: health check failed"},
		{"ledger down", ledgerDown, testutil.NewMockHealthChecker(true), http.StatusServiceUnavailable, "unhealthy", "unhealthy:", "healthy"},
		{"ledger and cache down", ledgerDown, testutil.NewMockHealthChecker(false), http.StatusServiceUnavailable, "unhealthy", "unhealthy:", "unhealthy: health check failed"},
		{"estimated head", ledgerEstimated, nil, http.StatusOK, "degraded", "degraded: implausible block 16, using estimate 21576000", ""},
		{"estimated head and cache down", ledgerEstimated, testutil.NewMockHealthChecker(false), http.StatusOK, "degraded", "degraded:", "unhealthy: health check failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var handler *HealthHandler
			if tt.cache == nil {
				handler = NewHealthHandler(newLedger(tt.ledger), nil)
			} else {
				handler = NewHealthHandler(newLedger(tt.ledger), tt.cache)
			}

			code, response := getHealth(t, handler)

			if code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, code)
			}
			if response.Status != tt.status {
				t.Errorf("expected %s, got %s", tt.status, response.Status)
			}
			if !strings.HasPrefix(response.Services["ledger"], tt.ledgerPrefix) {
				t.Errorf("expected ledger %q, got %q", tt.ledgerPrefix, response.Services["ledger"])
			}
			cacheStatus, reported := response.Services["cache"]
			if tt.cacheStatus == "" && reported {
				t.Errorf("memory-only deployments report no cache, got %q", cacheStatus)
			}
			if tt.cacheStatus != "" && cacheStatus != tt.cacheStatus {
				t.Errorf("expected cache %q, got %q", tt.cacheStatus, cacheStatus)
			}
			if response.Timestamp == "" {
				t.Error("expected a timestamp")
			}
		})
	}
}

func TestHealthHandler_Health_ChainHead(t *testing.T) {
	_, response := getHealth(t, NewHealthHandler(newLedger(ledgerUp), nil))
	if response.Chain == nil || response.Chain.Block != testutil.MockHeadBlock || response.Chain.Estimated {
		t.Errorf("expected the reported head, got %+v", response.Chain)
	}

	_, response = getHealth(t, NewHealthHandler(newLedger(ledgerEstimated), nil))
	if response.Chain == nil || !response.Chain.Estimated || response.Chain.Reported != 0x10 || response.Chain.Block != 21576000 {
		t.Errorf("expected the estimated head, got %+v", response.Chain)
	}

	_, response = getHealth(t, NewHealthHandler(newLedger(ledgerDown), nil))
	if response.Chain != nil {
		t.Errorf("an unreachable ledger has no head, got %+v", response.Chain)
	}
}

func TestHealthHandler_ReadyAndLive(t *testing.T) {
	tests := []struct {
		name   string
		ledger ledgerState
		handle func(*HealthHandler) http.HandlerFunc
		code   int
		body   string
	}{
		{"ready", ledgerUp, func(h *HealthHandler) http.HandlerFunc { return h.Ready }, http.StatusOK, "ready"},
		{"ready on an estimated head", ledgerEstimated, func(h *HealthHandler) http.HandlerFunc { return h.Ready }, http.StatusOK, "ready"},
		{"not ready", ledgerDown, func(h *HealthHandler) http.HandlerFunc { return h.Ready }, http.StatusServiceUnavailable, "not ready\n"},
		{"alive", ledgerUp, func(h *HealthHandler) http.HandlerFunc { return h.Live }, http.StatusOK, "alive"},
		{"alive without a ledger", ledgerDown, func(h *HealthHandler) http.HandlerFunc { return h.Live }, http.StatusOK, "alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := newLedger(tt.ledger)
			handler := NewHealthHandler(ledger, testutil.NewMockHealthChecker(false))

			rec := httptest.NewRecorder()
			tt.handle(handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, rec.Code)
			}
			if rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}
