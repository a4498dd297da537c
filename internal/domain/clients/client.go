package clients

import (
	"context"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// TransactionOptions bounds a history fetch by block range.
// Zero values mean "from genesis" and "to latest".
type TransactionOptions struct {
	StartBlock int64
	EndBlock   int64
}

// ChainInfo describes the chain a client is bound to
type ChainInfo interface {
	ChainName() string
	ChainID() int64
	NativeSymbol() string
	DataSource() string
	BlockTimeSeconds() float64
}

// TransactionSource reads and normalises ledger history
type TransactionSource interface {
	ValidateAddress(address string) error
	GetTransactions(ctx context.Context, address string, opts TransactionOptions) ([]entities.Transaction, error)
	GetCurrentBlockNumber(ctx context.Context) (int64, error)
	EstimateBlockAt(ctx context.Context, timestamp int64) int64
	GetNativeBalance(ctx context.Context, address string) (float64, error)
}

// MetadataSource resolves token identity. It never fails: unresolvable tokens come back as UNKNOWN/18.
type MetadataSource interface {
	GetTokenMetadata(ctx context.Context, tokenAddress string) entities.TokenInfo
}

// PriceSource resolves USD prices. Unresolvable prices come back as zero.
type PriceSource interface {
	GetHistoricalPrice(ctx context.Context, tokenAddress string, timestamp int64) entities.TokenPrice
	GetNativeTokenPrice(ctx context.Context, timestamp int64) float64
	GetCurrentTokenPrice(ctx context.Context, tokenAddress string) entities.TokenPrice
	GetCurrentNativeTokenPrice(ctx context.Context) float64
	BatchGetTokenPrices(ctx context.Context, tokenAddresses []string) map[string]entities.TokenPrice
}

// BlockchainClient is the full per-chain capability set used by the search engine
type BlockchainClient interface {
	ChainInfo
	TransactionSource
	MetadataSource
	PriceSource
	ChainHead(ctx context.Context) (entities.ChainHead, error)
}
