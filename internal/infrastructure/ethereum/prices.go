package ethereum

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// batchChunkSize bounds how many coins go into one batch price request
const batchChunkSize = 100

// monthStart returns the first second of ts's UTC month
func monthStart(ts int64) int64 {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Unix()
}

// monthKey formats ts's UTC month as YYYY-MM
func monthKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01")
}

// priceQuery is what a resolver prices. An empty Token.Address means the native token.
type priceQuery struct {
	Token     entities.TokenInfo
	Timestamp int64 // zero for current prices
}

func (q priceQuery) isNative() bool {
	return q.Token.Address == ""
}

// priceResolver is one step of a price waterfall; ok=false means "try the next one"
type priceResolver interface {
	Name() string
	ResolveUSD(ctx context.Context, q priceQuery) (float64, bool)
}

// resolvePrice tries resolvers in order and returns the first positive price
func (c *Client) resolvePrice(ctx context.Context, resolvers []priceResolver, q priceQuery) (float64, string, bool) {
	for _, r := range resolvers {
		if price, ok := r.ResolveUSD(ctx, q); ok && price > 0 {
			return price, r.Name(), true
		}
	}
	return 0, "", false
}

func (c *Client) nativeQuery(ts int64) priceQuery {
	return priceQuery{
		Token:     entities.TokenInfo{Symbol: c.config.NativeSymbol, Decimals: entities.NativeDecimals},
		Timestamp: ts,
	}
}

// GetHistoricalPrice returns the token's USD price for ts's month. Stablecoins are 1 USD and the
// wrapped native token is priced as the native token. A month that no provider can price is
// remembered in the failed store and reported as zero until that entry expires.
func (c *Client) GetHistoricalPrice(ctx context.Context, tokenAddress string, timestamp int64) entities.TokenPrice {
	address := strings.ToLower(tokenAddress)

	if c.tokens.IsStablecoin(address) {
		return c.stablecoinPrice(c.GetNativeTokenPrice(ctx, timestamp), timestamp)
	}
	if c.tokens.IsWrappedNative(address) {
		return entities.TokenPrice{PriceUSD: c.GetNativeTokenPrice(ctx, timestamp), PriceNative: 1, Timestamp: timestamp}
	}

	month := monthKey(timestamp)
	failKey := "failed:" + address + ":" + month
	if _, failed := c.stores.Failed.Get(ctx, failKey); failed {
		return entities.TokenPrice{Timestamp: timestamp}
	}

	key := "price:" + address + ":" + month
	if cached, ok := c.stores.Prices.Get(ctx, key); ok {
		cached.Timestamp = timestamp
		return cached
	}

	info := c.GetTokenMetadata(ctx, address)
	bucket := monthStart(timestamp)
	usd, provider, ok := c.resolvePrice(ctx, c.historical, priceQuery{Token: info, Timestamp: bucket})
	if !ok {
		c.logger.Debug("Historical price unresolved",
			zap.String("token", address),
			zap.String("month", month),
		)
		diagnostics.Warn(ctx, fmt.Sprintf("no historical price for %s (%s); valued at $0", info.Symbol, address))
		c.stores.Failed.Set(ctx, failKey, true, c.stores.FailedTTL)
		return entities.TokenPrice{Timestamp: timestamp}
	}

	price := entities.TokenPrice{PriceUSD: usd, Timestamp: bucket}
	if native := c.GetNativeTokenPrice(ctx, timestamp); native > 0 {
		price.PriceNative = usd / native
	}
	c.stores.Prices.Set(ctx, key, price, c.stores.HistoricalPriceTTL)

	c.logger.Debug("Resolved historical price",
		zap.String("token", address),
		zap.String("month", month),
		zap.String("provider", provider),
		zap.Float64("usd", usd),
	)

	price.Timestamp = timestamp
	return price
}

func (c *Client) stablecoinPrice(nativeUSD float64, ts int64) entities.TokenPrice {
	price := entities.TokenPrice{PriceUSD: 1, Timestamp: ts}
	if nativeUSD > 0 {
		price.PriceNative = 1 / nativeUSD
	}
	return price
}

// GetNativeTokenPrice returns the native token's USD price for ts's month
func (c *Client) GetNativeTokenPrice(ctx context.Context, timestamp int64) float64 {
	month := monthKey(timestamp)
	key := "price:native:" + month
	if cached, ok := c.stores.Prices.Get(ctx, key); ok {
		return cached.PriceUSD
	}

	failKey := "failed:native:" + month
	if _, failed := c.stores.Failed.Get(ctx, failKey); failed {
		return 0
	}

	bucket := monthStart(timestamp)
	usd, _, ok := c.resolvePrice(ctx, c.nativeHistorical, c.nativeQuery(bucket))
	if !ok {
		diagnostics.Warn(ctx, fmt.Sprintf("no %s price for %s; native values for that month are $0", c.config.NativeSymbol, month))
		c.stores.Failed.Set(ctx, failKey, true, c.stores.FailedTTL)
		return 0
	}

	c.stores.Prices.Set(ctx, key, entities.TokenPrice{PriceUSD: usd, PriceNative: 1, Timestamp: bucket}, c.stores.HistoricalPriceTTL)
	return usd
}

// GetCurrentTokenPrice returns the token's current USD price. Failures are never negative-cached.
func (c *Client) GetCurrentTokenPrice(ctx context.Context, tokenAddress string) entities.TokenPrice {
	address := strings.ToLower(tokenAddress)
	now := c.now().Unix()

	if c.tokens.IsStablecoin(address) {
		return c.stablecoinPrice(c.GetCurrentNativeTokenPrice(ctx), now)
	}
	if c.tokens.IsWrappedNative(address) {
		return entities.TokenPrice{PriceUSD: c.GetCurrentNativeTokenPrice(ctx), PriceNative: 1, Timestamp: now}
	}

	key := "current:" + address
	if cached, ok := c.stores.Prices.Get(ctx, key); ok {
		return cached
	}

	usd, _, ok := c.resolvePrice(ctx, c.current, priceQuery{Token: entities.TokenInfo{Address: address}})
	if !ok {
		return entities.TokenPrice{Timestamp: now}
	}

	price := entities.TokenPrice{PriceUSD: usd, Timestamp: now}
	if native := c.GetCurrentNativeTokenPrice(ctx); native > 0 {
		price.PriceNative = usd / native
	}
	c.stores.Prices.Set(ctx, key, price, c.stores.CurrentPriceTTL)
	return price
}

// GetCurrentNativeTokenPrice returns the current native USD price, falling back to this month's price
func (c *Client) GetCurrentNativeTokenPrice(ctx context.Context) float64 {
	key := "current:native"
	if cached, ok := c.stores.Prices.Get(ctx, key); ok {
		return cached.PriceUSD
	}

	now := c.now().Unix()
	if usd, _, ok := c.resolvePrice(ctx, c.nativeCurrent, c.nativeQuery(0)); ok {
		c.stores.Prices.Set(ctx, key, entities.TokenPrice{PriceUSD: usd, PriceNative: 1, Timestamp: now}, c.stores.CurrentPriceTTL)
		return usd
	}

	c.logger.Warn("Current native price unavailable, using monthly price")
	return c.GetNativeTokenPrice(ctx, now)
}

// BatchGetTokenPrices prices many tokens at current prices with one provider request per chunk
// of uncached tokens. Tokens no provider could price are absent from the result.
func (c *Client) BatchGetTokenPrices(ctx context.Context, tokenAddresses []string) map[string]entities.TokenPrice {
	result := make(map[string]entities.TokenPrice, len(tokenAddresses))
	now := c.now().Unix()

	unique := make(map[string]struct{}, len(tokenAddresses))
	var pending []string
	for _, a := range tokenAddresses {
		address := strings.ToLower(a)
		if _, dup := unique[address]; dup {
			continue
		}
		unique[address] = struct{}{}

		switch {
		case c.tokens.IsStablecoin(address):
			result[address] = c.stablecoinPrice(c.GetCurrentNativeTokenPrice(ctx), now)
		case c.tokens.IsWrappedNative(address):
			result[address] = entities.TokenPrice{PriceUSD: c.GetCurrentNativeTokenPrice(ctx), PriceNative: 1, Timestamp: now}
		default:
			if cached, ok := c.stores.Prices.Get(ctx, "current:"+address); ok {
				result[address] = cached
			} else {
				pending = append(pending, address)
			}
		}
	}

	if len(pending) == 0 {
		return result
	}
	sort.Strings(pending)

	native := 0.0
	llama := &defiLlamaResolver{client: c}
	for start := 0; start < len(pending); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(pending) {
			end = len(pending)
		}
		prices, err := llama.currentBatch(ctx, pending[start:end])
		if err != nil {
			c.logger.Warn("Batch price request failed",
				zap.Int("tokens", end-start),
				zap.Error(err),
			)
			continue
		}
		for address, usd := range prices {
			if usd <= 0 {
				continue
			}
			if native == 0 {
				native = c.GetCurrentNativeTokenPrice(ctx)
			}
			price := entities.TokenPrice{PriceUSD: usd, Timestamp: now}
			if native > 0 {
				price.PriceNative = usd / native
			}
			c.stores.Prices.Set(ctx, "current:"+address, price, c.stores.CurrentPriceTTL)
			result[address] = price
		}
	}

	c.logger.Debug("Batch priced tokens",
		zap.Int("requested", len(unique)),
		zap.Int("priced", len(result)),
	)
	return result
}

// defiLlamaResponse is shared by the current and historical endpoints
type defiLlamaResponse struct {
	Coins map[string]struct {
		Price     float64 `json:"price"`
		Symbol    string  `json:"symbol"`
		Timestamp int64   `json:"timestamp"`
	} `json:"coins"`
}

// defiLlamaResolver prices by chain-qualified contract address, the native token by its CoinGecko id
type defiLlamaResolver struct {
	client *Client
}

func (r *defiLlamaResolver) Name() string { return providerDefiLlama }

func (r *defiLlamaResolver) coinKey(q priceQuery) string {
	if q.isNative() {
		return "coingecko:" + r.client.prices.CoinGeckoID
	}
	return r.client.prices.DefiLlamaChain + ":" + strings.ToLower(q.Token.Address)
}

func (r *defiLlamaResolver) ResolveUSD(ctx context.Context, q priceQuery) (float64, bool) {
	coin := r.coinKey(q)
	base := strings.TrimRight(r.client.prices.DefiLlamaURL, "/")
	url := base + "/prices/current/" + coin
	if q.Timestamp > 0 {
		url = base + "/prices/historical/" + strconv.FormatInt(q.Timestamp, 10) + "/" + coin
	}

	var resp defiLlamaResponse
	if err := r.client.http.GetJSON(ctx, url, nil, nil, &resp); err != nil {
		r.client.track(ctx, providerDefiLlama, metrics.OutcomeError)
		return 0, false
	}

	data, ok := resp.Coins[coin]
	if !ok || data.Price <= 0 {
		r.client.track(ctx, providerDefiLlama, metrics.OutcomeEmpty)
		return 0, false
	}
	r.client.track(ctx, providerDefiLlama, metrics.OutcomeSuccess)
	return data.Price, true
}

// currentBatch prices several contracts in one request, keyed by lower-cased address
func (r *defiLlamaResolver) currentBatch(ctx context.Context, addresses []string) (map[string]float64, error) {
	coins := make([]string, len(addresses))
	for i, a := range addresses {
		coins[i] = r.coinKey(priceQuery{Token: entities.TokenInfo{Address: a}})
	}
	url := strings.TrimRight(r.client.prices.DefiLlamaURL, "/") + "/prices/current/" + strings.Join(coins, ",")

	var resp defiLlamaResponse
	if err := r.client.http.GetJSON(ctx, url, nil, nil, &resp); err != nil {
		r.client.track(ctx, providerDefiLlama, metrics.OutcomeError)
		return nil, err
	}
	r.client.track(ctx, providerDefiLlama, metrics.OutcomeSuccess)

	prefix := r.client.prices.DefiLlamaChain + ":"
	prices := make(map[string]float64, len(resp.Coins))
	for key, data := range resp.Coins {
		prices[strings.ToLower(strings.TrimPrefix(key, prefix))] = data.Price
	}
	return prices, nil
}

// cryptoCompareResolver prices by symbol; tokens with an unresolved symbol are skipped
type cryptoCompareResolver struct {
	client *Client
}

func (r *cryptoCompareResolver) Name() string { return providerCryptoCompare }

func (r *cryptoCompareResolver) ResolveUSD(ctx context.Context, q priceQuery) (float64, bool) {
	symbol := strings.ToUpper(q.Token.Symbol)
	if symbol == "" || symbol == entities.UnknownSymbol || q.Timestamp <= 0 {
		return 0, false
	}

	params := map[string]string{
		"fsym":  symbol,
		"tsyms": "USD",
		"ts":    strconv.FormatInt(q.Timestamp, 10),
	}
	if r.client.prices.CryptoCompareKey != "" {
		params["api_key"] = r.client.prices.CryptoCompareKey
	}

	var resp map[string]map[string]float64
	url := strings.TrimRight(r.client.prices.CryptoCompareURL, "/") + "/data/pricehistorical"
	if err := r.client.http.GetJSON(ctx, url, params, nil, &resp); err != nil {
		r.client.track(ctx, providerCryptoCompare, metrics.OutcomeError)
		return 0, false
	}

	price := resp[symbol]["USD"]
	if price <= 0 {
		r.client.track(ctx, providerCryptoCompare, metrics.OutcomeEmpty)
		return 0, false
	}
	r.client.track(ctx, providerCryptoCompare, metrics.OutcomeSuccess)
	return price, true
}

// coinGeckoResolver only knows the current native price
type coinGeckoResolver struct {
	client *Client
}

func (r *coinGeckoResolver) Name() string { return providerCoinGecko }

func (r *coinGeckoResolver) ResolveUSD(ctx context.Context, q priceQuery) (float64, bool) {
	if !q.isNative() || q.Timestamp > 0 {
		return 0, false
	}

	id := r.client.prices.CoinGeckoID
	var resp map[string]map[string]float64
	url := strings.TrimRight(r.client.prices.CoinGeckoURL, "/") + "/api/v3/simple/price"
	err := r.client.http.GetJSON(ctx, url, map[string]string{
		"ids":           id,
		"vs_currencies": "usd",
	}, nil, &resp)
	if err != nil {
		r.client.track(ctx, providerCoinGecko, metrics.OutcomeError)
		return 0, false
	}

	price := resp[id]["usd"]
	if price <= 0 {
		r.client.track(ctx, providerCoinGecko, metrics.OutcomeEmpty)
		return 0, false
	}
	r.client.track(ctx, providerCoinGecko, metrics.OutcomeSuccess)
	return price, true
}
