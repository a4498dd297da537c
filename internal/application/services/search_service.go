package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/application/aggregators"
	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

var (
	// ErrInvalidQueryType is returned for a query type outside the known set
	ErrInvalidQueryType = errors.New("invalid query type")

	// ErrChainMismatch is returned when a search names a chain this service does not serve
	ErrChainMismatch = errors.New("chain not supported")

	// ErrInvalidWhaleThreshold is returned for a negative or non-finite whale threshold
	ErrInvalidWhaleThreshold = errors.New("whale threshold must be a finite, non-negative number")

	// ErrInvalidTimeframe is returned for a timeframe longer than MaxTimeframeDays
	ErrInvalidTimeframe = errors.New("timeframe too long")
)

// MaxTimeframeDays bounds SearchParams.TimeframeDays
const MaxTimeframeDays = 36500

// IsBadRequest reports whether err was caused by the search parameters rather than an upstream
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidQueryType) ||
		errors.Is(err, ErrChainMismatch) ||
		errors.Is(err, ErrInvalidWhaleThreshold) ||
		errors.Is(err, ErrInvalidTimeframe) ||
		clients.IsInvalidAddress(err)
}

// SearchService runs wallet searches: one history fetch, then one or all five analyses
type SearchService struct {
	client clients.BlockchainClient
	labels *labels.Registry
	config config.SearchConfig
	logger *zap.Logger
	now    func() time.Time

	tokenActivity *aggregators.TokenActivityAggregator
	portfolio     *aggregators.PortfolioAggregator
	counterparty  *aggregators.CounterpartyAggregator
	stats         *aggregators.TransactionStatsAggregator
}

// SearchOption customises a SearchService
type SearchOption func(*SearchService)

// WithSearchClock replaces time.Now
func WithSearchClock(now func() time.Time) SearchOption {
	return func(s *SearchService) {
		s.now = now
	}
}

// NewSearchService creates a new search service
func NewSearchService(
	client clients.BlockchainClient,
	registry *labels.Registry,
	cfg config.SearchConfig,
	logger *zap.Logger,
	opts ...SearchOption,
) *SearchService {
	if registry == nil {
		registry = labels.Default()
	}
	if cfg.DefaultTimeframeDays <= 0 {
		cfg.DefaultTimeframeDays = 180
	}
	if cfg.DefaultTimeframeDays > MaxTimeframeDays {
		cfg.DefaultTimeframeDays = MaxTimeframeDays
	}

	s := &SearchService{
		client: client,
		labels: registry,
		config: cfg,
		logger: logger,
		now:    time.Now,

		tokenActivity: aggregators.NewTokenActivityAggregator(client, logger),
		portfolio:     aggregators.NewPortfolioAggregator(client, logger),
		counterparty: aggregators.NewCounterpartyAggregator(client, registry, aggregators.CounterpartyConfig{
			TopN:  cfg.TopCounterparties,
			Ratio: cfg.CounterpartyRatio,
		}, logger),
		stats: aggregators.NewTransactionStatsAggregator(client, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// searchPlan is a validated search
type searchPlan struct {
	address   string
	queryType entities.QueryType
	days      int
	timeframe entities.Timeframe
	threshold float64
}

// Search validates params, fetches the address's history once and runs the requested analysis.
// Comprehensive searches run all five analyses concurrently and report the ones that failed in
// data.errors instead of failing the whole search.
func (s *SearchService) Search(ctx context.Context, params entities.SearchParams) (*entities.SearchResult, error) {
	start := time.Now()
	searchID := uuid.NewString()
	logger := s.logger.With(
		zap.String("search_id", searchID),
		zap.String("query_type", string(params.QueryType)),
	)

	result, err := s.search(ctx, params, searchID, logger)
	metrics.ObserveSearch(string(params.QueryType), err, time.Since(start))
	if err != nil {
		logger.Warn("Search failed", zap.String("address", params.Address), zap.Error(err))
		return nil, err
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	logger.Info("Search completed",
		zap.String("address", result.Address),
		zap.Int("transactions", result.TransactionsAnalyzed),
		zap.Int64("api_calls", result.Metadata.APICallsMade),
		zap.Int("warnings", len(result.Metadata.Warnings)),
		zap.Int64("duration_ms", result.ProcessingTimeMs),
	)
	return result, nil
}

func (s *SearchService) search(ctx context.Context, params entities.SearchParams, searchID string, logger *zap.Logger) (*entities.SearchResult, error) {
	plan, err := s.plan(params)
	if err != nil {
		return nil, err
	}

	recorder := diagnostics.New()
	ctx = diagnostics.WithRecorder(ctx, recorder)

	var opts clients.TransactionOptions
	if !needsFullHistory(plan.queryType) {
		// one day of slack covers drift in the block time estimate
		opts.StartBlock = s.client.EstimateBlockAt(ctx, plan.timeframe.Start-86400)
	}

	txs, err := s.client.GetTransactions(ctx, plan.address, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	metrics.ObserveTransactionsFetched(len(txs))

	filtered := entities.FilterTimeframe(txs, plan.timeframe)
	switch {
	case len(txs) == 0:
		recorder.Warn(fmt.Sprintf("no transactions found for %s on %s", plan.address, s.client.ChainName()))
	case len(filtered) == 0 && plan.queryType != entities.QueryPortfolio:
		recorder.Warn(fmt.Sprintf("no transactions in the last %d days", plan.days))
	}

	logger.Debug("Transactions fetched",
		zap.String("address", plan.address),
		zap.Int("fetched", len(txs)),
		zap.Int("in_timeframe", len(filtered)),
		zap.Int64("start_block", opts.StartBlock),
	)

	full := aggregators.NewInput(plan.address, txs, plan.timeframe)
	window := aggregators.NewInput(plan.address, filtered, plan.timeframe)

	var data entities.SearchResultData
	if plan.queryType == entities.QueryComprehensive {
		data = s.comprehensive(ctx, plan, full, window, logger)
	} else if err := s.runView(ctx, plan, plan.queryType, full, window, &data, logger); err != nil {
		return nil, fmt.Errorf("%s analysis failed: %w", plan.queryType, err)
	}
	data.Type = plan.queryType

	snapshot := recorder.Snapshot()
	return &entities.SearchResult{
		QueryType:            plan.queryType,
		Address:              plan.address,
		Chain:                s.client.ChainName(),
		Timestamp:            plan.timeframe.End,
		TransactionsAnalyzed: len(txs),
		Data:                 data,
		Metadata: entities.SearchMetadata{
			SearchID:      searchID,
			DataSource:    s.client.DataSource(),
			APICallsMade:  snapshot.APICalls,
			CacheHitRate:  snapshot.CacheHitRate(),
			Warnings:      snapshot.Warnings,
			BlockTime:     s.client.BlockTimeSeconds(),
			NativeToken:   s.client.NativeSymbol(),
			TimeframeDays: plan.days,
		},
	}, nil
}

// plan validates params before any I/O and resolves the defaults
func (s *SearchService) plan(params entities.SearchParams) (searchPlan, error) {
	if !params.QueryType.Valid() {
		return searchPlan{}, fmt.Errorf("%w: %q", ErrInvalidQueryType, params.QueryType)
	}
	if params.ChainID != 0 && params.ChainID != s.client.ChainID() {
		return searchPlan{}, fmt.Errorf("%w: chain id %d, serving %s (%d)", ErrChainMismatch, params.ChainID, s.client.ChainName(), s.client.ChainID())
	}
	if err := s.client.ValidateAddress(params.Address); err != nil {
		return searchPlan{}, err
	}
	if params.TimeframeDays > MaxTimeframeDays {
		return searchPlan{}, fmt.Errorf("%w: %d days, at most %d", ErrInvalidTimeframe, params.TimeframeDays, MaxTimeframeDays)
	}

	plan := searchPlan{
		address:   strings.ToLower(params.Address),
		queryType: params.QueryType,
		days:      params.TimeframeDays,
		threshold: s.config.DefaultWhaleThresholdUSD,
	}
	if plan.days <= 0 {
		plan.days = s.config.DefaultTimeframeDays
	}
	if params.Self {
		plan.threshold = s.config.SelfWhaleThresholdUSD
	}
	if params.WhaleThresholdUSD != nil {
		if v := *params.WhaleThresholdUSD; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return searchPlan{}, fmt.Errorf("%w: %v", ErrInvalidWhaleThreshold, *params.WhaleThresholdUSD)
		}
		plan.threshold = *params.WhaleThresholdUSD
	}

	now := s.now().Unix()
	plan.timeframe = entities.Timeframe{Start: now - int64(plan.days)*86400, End: now}
	return plan, nil
}

// needsFullHistory is true for the views that derive current balances
func needsFullHistory(q entities.QueryType) bool {
	return q == entities.QueryPortfolio || q == entities.QueryComprehensive
}

// runView runs one analysis and stores it in data. Portfolio reads the full history, the rest the window.
func (s *SearchService) runView(ctx context.Context, plan searchPlan, q entities.QueryType, full, window aggregators.Input, data *entities.SearchResultData, logger *zap.Logger) error {
	switch q {
	case entities.QueryTokenActivity:
		analysis, err := s.tokenActivity.Analyze(ctx, window)
		if err != nil {
			return err
		}
		data.TokenActivity = analysis
	case entities.QueryPortfolio:
		analysis, err := s.portfolio.Analyze(ctx, full)
		if err != nil {
			return err
		}
		data.Portfolio = analysis
	case entities.QueryCounterparty:
		analysis, err := s.counterparty.Analyze(ctx, window)
		if err != nil {
			return err
		}
		data.Counterparty = analysis
	case entities.QueryWhale:
		analysis, err := aggregators.NewWhaleAggregator(s.client, s.labels, plan.threshold, logger).Analyze(ctx, window)
		if err != nil {
			return err
		}
		data.Whale = analysis
	case entities.QueryTransactionStats:
		analysis, err := s.stats.Analyze(ctx, window)
		if err != nil {
			return err
		}
		data.TransactionStats = analysis
	default:
		return fmt.Errorf("%w: %q", ErrInvalidQueryType, q)
	}
	return nil
}

// comprehensive runs the five views concurrently over the same inputs. A view that errors or
// panics is left out and named in data.Errors.
func (s *SearchService) comprehensive(ctx context.Context, plan searchPlan, full, window aggregators.Input, logger *zap.Logger) entities.SearchResultData {
	var (
		mu   sync.Mutex
		data entities.SearchResultData
	)

	p := pool.New().WithMaxGoroutines(len(entities.SingleQueryTypes))
	for _, q := range entities.SingleQueryTypes {
		p.Go(func() {
			var (
				part entities.SearchResultData
				err  error
				pc   panics.Catcher
			)
			pc.Try(func() {
				err = s.runView(ctx, plan, q, full, window, &part, logger)
			})
			if recovered := pc.Recovered(); recovered != nil {
				err = recovered.AsError()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Comprehensive section failed", zap.String("section", string(q)), zap.Error(err))
				if data.Errors == nil {
					data.Errors = make(map[string]string)
				}
				data.Errors[string(q)] = err.Error()
				diagnostics.Warn(ctx, fmt.Sprintf("%s analysis unavailable", q))
				return
			}
			mergeSection(&data, part)
		})
	}
	p.Wait()

	return data
}

func mergeSection(dst *entities.SearchResultData, part entities.SearchResultData) {
	if part.TokenActivity != nil {
		dst.TokenActivity = part.TokenActivity
	}
	if part.Portfolio != nil {
		dst.Portfolio = part.Portfolio
	}
	if part.Counterparty != nil {
		dst.Counterparty = part.Counterparty
	}
	if part.Whale != nil {
		dst.Whale = part.Whale
	}
	if part.TransactionStats != nil {
		dst.TransactionStats = part.TransactionStats
	}
}
