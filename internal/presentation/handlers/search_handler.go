package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

const maxSearchBodyBytes = 1 << 16

// Searcher runs one wallet search
type Searcher interface {
	Search(ctx context.Context, params entities.SearchParams) (*entities.SearchResult, error)
}

// SearchHandler exposes the search engine over HTTP
type SearchHandler struct {
	searcher Searcher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSearchHandler creates a new search handler. A zero timeout leaves searches bounded only by the request.
func NewSearchHandler(searcher Searcher, timeout time.Duration, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		timeout:  timeout,
		logger:   logger,
	}
}

// RegisterRoutes registers the search routes
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Post("/search", h.Search)
	r.Get("/wallets/{address}/{queryType}", h.GetWalletView)
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSearchBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var params entities.SearchParams
	if err := sonic.Unmarshal(body, &params); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if params.QueryType == "" {
		params.QueryType = entities.QueryComprehensive
	}

	h.run(w, r, params)
}

// GetWalletView handles GET /api/v1/wallets/{address}/{queryType}
func (h *SearchHandler) GetWalletView(w http.ResponseWriter, r *http.Request) {
	params := entities.SearchParams{
		Address:   chi.URLParam(r, "address"),
		QueryType: entities.QueryType(strings.ToLower(chi.URLParam(r, "queryType"))),
	}

	query := r.URL.Query()
	if v := query.Get("timeframe_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			respondError(w, http.StatusBadRequest, "timeframe_days must be a positive integer")
			return
		}
		params.TimeframeDays = days
	}
	if v := query.Get("whale_threshold_usd"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "whale_threshold_usd must be a number")
			return
		}
		params.WhaleThresholdUSD = &threshold
	}
	if v := query.Get("chain_id"); v != "" {
		chainID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "chain_id must be an integer")
			return
		}
		params.ChainID = chainID
	}
	if v := query.Get("self"); v != "" {
		self, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "self must be a boolean")
			return
		}
		params.Self = self
	}

	h.run(w, r, params)
}

func (h *SearchHandler) run(w http.ResponseWriter, r *http.Request, params entities.SearchParams) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.searcher.Search(ctx, params)
	if err != nil {
		status := searchErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Search failed",
				zap.String("address", params.Address),
				zap.String("query_type", string(params.QueryType)),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		respondError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// searchErrorStatus maps search errors onto HTTP statuses
func searchErrorStatus(err error) int {
	switch {
	case services.IsBadRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case clients.IsAPIError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
