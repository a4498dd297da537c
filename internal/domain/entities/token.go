package entities

// UnknownSymbol is the terminal metadata fallback symbol
const UnknownSymbol = "UNKNOWN"

// DefaultTokenDecimals is assumed when a token's decimals cannot be resolved
const DefaultTokenDecimals = 18

// TokenInfo is the resolved identity of a token contract
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Name     string `json:"name,omitempty"`
}

// IsUnknown reports whether the token fell through to the fallback identity
func (t TokenInfo) IsUnknown() bool {
	return t.Symbol == UnknownSymbol
}

// FallbackTokenInfo returns the UNKNOWN/18 identity for a token
func FallbackTokenInfo(address string) TokenInfo {
	return TokenInfo{
		Address:  address,
		Symbol:   UnknownSymbol,
		Decimals: DefaultTokenDecimals,
	}
}

// TokenPrice is a USD and native-denominated price at a point in time
type TokenPrice struct {
	PriceUSD    float64 `json:"priceUSD"`
	PriceNative float64 `json:"priceNative"`
	Timestamp   int64   `json:"timestamp"`
}
