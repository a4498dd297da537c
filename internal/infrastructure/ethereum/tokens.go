package ethereum

import (
	"strings"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// KnownToken is a statically known token contract
type KnownToken struct {
	Info          entities.TokenInfo
	Stablecoin    bool // pegged to 1 USD
	WrappedNative bool // priced as the native token
}

// TokenRegistry is an immutable address -> token table
type TokenRegistry struct {
	tokens map[string]KnownToken
}

// NewTokenRegistry copies tokens into a registry keyed by lower-cased address
func NewTokenRegistry(tokens []KnownToken) *TokenRegistry {
	r := &TokenRegistry{tokens: make(map[string]KnownToken, len(tokens))}
	for _, t := range tokens {
		t.Info.Address = strings.ToLower(t.Info.Address)
		r.tokens[t.Info.Address] = t
	}
	return r
}

// MainnetTokens returns the Ethereum mainnet table
func MainnetTokens() *TokenRegistry {
	return NewTokenRegistry([]KnownToken{
		{Info: entities.TokenInfo{Address: "0xdac17f958d2ee523a2206206994597c13d831ec7", Symbol: "USDT", Decimals: 6, Name: "Tether USD"}, Stablecoin: true},
		{Info: entities.TokenInfo{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Decimals: 6, Name: "USD Coin"}, Stablecoin: true},
		{Info: entities.TokenInfo{Address: "0x6b175474e89094c44da98b954eedeac495271d0f", Symbol: "DAI", Decimals: 18, Name: "Dai Stablecoin"}, Stablecoin: true},
		{Info: entities.TokenInfo{Address: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", Symbol: "WETH", Decimals: 18, Name: "Wrapped Ether"}, WrappedNative: true},
		{Info: entities.TokenInfo{Address: "0x2260fac5e5542a773aa44fbcfedf7c193bc2c599", Symbol: "WBTC", Decimals: 8, Name: "Wrapped BTC"}},
	})
}

// Lookup returns the known token at address
func (r *TokenRegistry) Lookup(address string) (KnownToken, bool) {
	if r == nil {
		return KnownToken{}, false
	}
	t, ok := r.tokens[strings.ToLower(address)]
	return t, ok
}

// IsStablecoin reports whether address is a known USD stablecoin
func (r *TokenRegistry) IsStablecoin(address string) bool {
	t, ok := r.Lookup(address)
	return ok && t.Stablecoin
}

// IsWrappedNative reports whether address is the wrapped native token
func (r *TokenRegistry) IsWrappedNative(address string) bool {
	t, ok := r.Lookup(address)
	return ok && t.WrappedNative
}
