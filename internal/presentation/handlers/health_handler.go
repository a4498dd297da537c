package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ChainHeadSource reports the ledger's latest block
type ChainHeadSource interface {
	ChainHead(ctx context.Context) (entities.ChainHead, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	ledger ChainHeadSource
	cache  HealthChecker
}

// NewHealthHandler creates a new health handler. cache may be nil when running memory-only.
func NewHealthHandler(ledger ChainHeadSource, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		ledger: ledger,
		cache:  cache,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string              `json:"status"`
	Timestamp string              `json:"timestamp"`
	Services  map[string]string   `json:"services"`
	Chain     *entities.ChainHead `json:"chain,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	// Searches cannot run without the ledger
	head, err := h.ledger.ChainHead(ctx)
	switch {
	case err != nil:
		response.Status = "unhealthy"
		response.Services["ledger"] = "unhealthy: " + err.Error()
	case head.Estimated:
		response.Status = "degraded"
		response.Services["ledger"] = fmt.Sprintf("degraded: implausible block %d, using estimate %d", head.Reported, head.Block)
		response.Chain = &head
	default:
		response.Services["ledger"] = "healthy"
		response.Chain = &head
	}

	// Shared cache tier
	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			if response.Status == "healthy" {
				response.Status = "degraded"
			}
			response.Services["cache"] = "unhealthy: " + err.Error()
		} else {
			response.Services["cache"] = "healthy"
		}
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, response)
}

// Ready handles GET /ready (Kubernetes readiness probe)
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.ledger.ChainHead(ctx); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Live handles GET /live (Kubernetes liveness probe)
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
