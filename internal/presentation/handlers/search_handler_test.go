package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/services"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
	"github.com/bimakw/chain-analytics/internal/testutil"
)

// stubSearcher records the params it was called with
type stubSearcher struct {
	params []entities.SearchParams
	err    error
}

func (s *stubSearcher) Search(ctx context.Context, params entities.SearchParams) (*entities.SearchResult, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return &entities.SearchResult{QueryType: params.QueryType, Address: params.Address}, nil
}

func setupSearchRouter(searcher Searcher) *chi.Mux {
	handler := NewSearchHandler(searcher, time.Minute, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/api/v1", handler.RegisterRoutes)
	return r
}

func newEngine() Searcher {
	client := testutil.NewMockBlockchainClient()
	client.AddTransactions(testutil.CreateTestTransaction(
		testutil.WithHash("0xwhale"),
		testutil.WithTimestamp(time.Now().Add(-24*time.Hour)),
		testutil.WithValue(testutil.Units("30", 18)),
	))
	return services.NewSearchService(client, labels.Default(), config.SearchConfig{
		DefaultTimeframeDays:     180,
		SelfWhaleThresholdUSD:    10000,
		DefaultWhaleThresholdUSD: 50000,
		TopCounterparties:        10,
		CounterpartyRatio:        2,
	}, zap.NewNop())
}

func TestSearchHandler_PostSearch(t *testing.T) {
	router := setupSearchRouter(newEngine())

	body := fmt.Sprintf(`{"address":%q,"queryType":"whale","whaleThresholdUSD":50000}`, testutil.AliceAddress)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var result entities.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.QueryType != entities.QueryWhale || result.Data.Type != entities.QueryWhale || result.Data.Whale == nil {
		t.Fatalf("expected a whale result, got %+v", result)
	}
	if result.Data.Whale.NumWhaleTransactions != 1 || result.Data.Whale.TotalWhaleValueUSD != 60000 {
		t.Errorf("unexpected whale view %+v", result.Data.Whale)
	}
	if result.Metadata.SearchID == "" || result.Metadata.DataSource != "Ethereum (mock)" {
		t.Errorf("unexpected metadata %+v", result.Metadata)
	}
}

func TestSearchHandler_PostSearch_DefaultsToComprehensive(t *testing.T) {
	searcher := &stubSearcher{}
	router := setupSearchRouter(searcher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"address":"0xabc"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if len(searcher.params) != 1 || searcher.params[0].QueryType != entities.QueryComprehensive {
		t.Errorf("expected a comprehensive search, got %+v", searcher.params)
	}
}

func TestSearchHandler_PostSearch_InvalidJSON(t *testing.T) {
	searcher := &stubSearcher{}
	router := setupSearchRouter(searcher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"address":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if len(searcher.params) != 0 {
		t.Error("search should not run on a bad body")
	}
}

func TestSearchHandler_GetWalletView(t *testing.T) {
	searcher := &stubSearcher{}
	router := setupSearchRouter(searcher)

	url := "/api/v1/wallets/" + testutil.AliceAddress + "/PORTFOLIO?timeframe_days=30&whale_threshold_usd=2500.5&chain_id=1&self=true"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(searcher.params) != 1 {
		t.Fatalf("expected one search, got %d", len(searcher.params))
	}

	params := searcher.params[0]
	if params.Address != testutil.AliceAddress || params.QueryType != entities.QueryPortfolio {
		t.Errorf("unexpected params %+v", params)
	}
	if params.TimeframeDays != 30 || params.ChainID != 1 || !params.Self {
		t.Errorf("unexpected params %+v", params)
	}
	if params.WhaleThresholdUSD == nil || *params.WhaleThresholdUSD != 2500.5 {
		t.Errorf("unexpected whale threshold %v", params.WhaleThresholdUSD)
	}
}

func TestSearchHandler_GetWalletView_BadQuery(t *testing.T) {
	tests := []string{
		"timeframe_days=-1",
		"timeframe_days=abc",
		"whale_threshold_usd=lots",
		"chain_id=mainnet",
		"self=maybe",
	}

	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			searcher := &stubSearcher{}
			router := setupSearchRouter(searcher)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+testutil.AliceAddress+"/whale?"+query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
			if len(searcher.params) != 0 {
				t.Error("search should not run on bad query parameters")
			}
		})
	}
}

func TestSearchHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid address", &clients.InvalidAddressError{Chain: "Ethereum", Address: "0x1"}, http.StatusBadRequest},
		{"invalid query type", fmt.Errorf("%w: %q", services.ErrInvalidQueryType, "nft"), http.StatusBadRequest},
		{"chain mismatch", services.ErrChainMismatch, http.StatusBadRequest},
		{"timeframe too long", services.ErrInvalidTimeframe, http.StatusBadRequest},
		{"ledger rejected", fmt.Errorf("failed to fetch transactions: %w", &clients.APIError{Chain: "Ethereum", Message: "Invalid API Key"}), http.StatusBadGateway},
		{"timeout", fmt.Errorf("failed to fetch transactions: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupSearchRouter(&stubSearcher{err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+testutil.AliceAddress+"/whale", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rec.Code)
			}

			var response ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestSearchHandler_NonFiniteParamsEndToEnd(t *testing.T) {
	tests := []string{
		"whale_threshold_usd=NaN",
		"whale_threshold_usd=Inf",
		"whale_threshold_usd=-Inf",
		"timeframe_days=200000000000000",
	}

	for _, query := range tests {
		t.Run(query, func(t *testing.T) {
			router := setupSearchRouter(newEngine())

			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/"+testutil.AliceAddress+"/whale?"+query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}

			var response ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestSearchHandler_InvalidAddressEndToEnd(t *testing.T) {
	router := setupSearchRouter(newEngine())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/0xnot-an-address/portfolio", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}
