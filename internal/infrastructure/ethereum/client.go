package ethereum

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/config"
	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/infrastructure/cache"
	"github.com/bimakw/chain-analytics/internal/infrastructure/httpclient"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// Upstream provider names used in logs and metrics
const (
	providerEtherscan     = "etherscan"
	providerMoralis       = "moralis"
	providerDefiLlama     = "defillama"
	providerCryptoCompare = "cryptocompare"
	providerCoinGecko     = "coingecko"
)

var _ clients.BlockchainClient = (*Client)(nil)

// Client reads Ethereum history from an Etherscan-compatible ledger API and prices it
// through a waterfall of price providers backed by the shared cache stores.
type Client struct {
	config config.EthereumConfig
	prices config.PricesConfig
	ledger *httpclient.Client
	http   *httpclient.Client
	stores *cache.Stores
	tokens *TokenRegistry
	logger *zap.Logger
	now    func() time.Time

	metadataResolvers []metadataResolver
	historical        []priceResolver
	nativeHistorical  []priceResolver
	current           []priceResolver
	nativeCurrent     []priceResolver
}

// Option customises a Client
type Option func(*Client)

// WithTokens replaces the known-token table
func WithTokens(tokens *TokenRegistry) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Ethereum client
func NewClient(cfg config.EthereumConfig, prices config.PricesConfig, stores *cache.Stores, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		config: cfg,
		prices: prices,
		ledger: httpclient.New(httpclient.Config{
			Timeout:   cfg.RequestTimeout,
			RateLimit: cfg.RateLimit,
		}, logger.Named("etherscan")),
		http: httpclient.New(httpclient.Config{
			Timeout:   prices.RequestTimeout,
			RateLimit: prices.RateLimit,
		}, logger.Named("prices")),
		stores: stores,
		tokens: MainnetTokens(),
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	llama := &defiLlamaResolver{client: c}
	compare := &cryptoCompareResolver{client: c}
	gecko := &coinGeckoResolver{client: c}

	if prices.MoralisKey != "" {
		c.metadataResolvers = append(c.metadataResolvers, &moralisResolver{client: c})
	}
	if prices.OnChainMetadata {
		c.metadataResolvers = append(c.metadataResolvers, &onChainResolver{client: c})
	}

	c.historical = []priceResolver{llama, compare}
	c.nativeHistorical = []priceResolver{compare, llama}
	c.current = []priceResolver{llama}
	c.nativeCurrent = []priceResolver{gecko, llama}

	logger.Info("Ethereum client configured",
		zap.String("ledger_url", cfg.APIURL),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Int("metadata_resolvers", len(c.metadataResolvers)),
	)

	return c
}

// Close releases idle upstream connections
func (c *Client) Close() {
	_ = c.ledger.Close()
	_ = c.http.Close()
}

func (c *Client) ChainName() string         { return c.config.ChainName }
func (c *Client) ChainID() int64            { return c.config.ChainID }
func (c *Client) NativeSymbol() string      { return c.config.NativeSymbol }
func (c *Client) BlockTimeSeconds() float64 { return c.config.BlockTimeSeconds }

// DataSource names the ledger the client reads from
func (c *Client) DataSource() string {
	return fmt.Sprintf("%s (%s)", c.config.ChainName, c.config.APIURL)
}

// ValidateAddress checks for 0x followed by 40 hex characters
func (c *Client) ValidateAddress(address string) error {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return &clients.InvalidAddressError{Chain: c.config.ChainName, Address: address}
	}
	return nil
}

// ledgerParams returns the common query parameters for a ledger call
func (c *Client) ledgerParams(module, action string) map[string]string {
	params := map[string]string{
		"chainid": strconv.FormatInt(c.config.ChainID, 10),
		"module":  module,
		"action":  action,
	}
	if c.config.APIKey != "" {
		params["apikey"] = c.config.APIKey
	}
	return params
}

// track counts an upstream request in the request diagnostics and in prometheus
func (c *Client) track(ctx context.Context, provider, outcome string) {
	diagnostics.FromContext(ctx).APICall()
	metrics.UpstreamRequest(provider, outcome)
}
