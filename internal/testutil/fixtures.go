package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// Common test addresses
const (
	USDTAddress  = "0xdac17f958d2ee523a2206206994597c13d831ec7"
	USDCAddress  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	PepeAddress  = "0x6982508145454ce325ddbe47a25d4ec3d2311933"
	AliceAddress = "0x1111111111111111111111111111111111111111"
	BobAddress   = "0x2222222222222222222222222222222222222222"
	CharlieAddr  = "0x3333333333333333333333333333333333333333"

	// Labelled in the default label registry
	BinanceAddress   = "0x28c6c06298d514db089934071355e5743bf21d60"
	UniswapV2Address = "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
)

// BaseTime is the default fixture timestamp
var BaseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// Units converts a human amount into base units, e.g. Units("1.5", 18)
func Units(amount string, decimals int) string {
	return decimal.RequireFromString(amount).Shift(int32(decimals)).String()
}

// CreateTestTransaction creates a native 1 ETH transfer from Bob to Alice
func CreateTestTransaction(opts ...TransactionOption) entities.Transaction {
	tx := entities.Transaction{
		Hash:        "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		From:        BobAddress,
		To:          AliceAddress,
		Value:       Units("1", 18),
		Timestamp:   BaseTime.Unix(),
		BlockNumber: 20000000,
		Gas:         "21000",
		GasUsed:     "21000",
		GasPrice:    "10000000000", // 10 gwei
		TxType:      entities.TxTypeNative,
	}

	for _, opt := range opts {
		opt(&tx)
	}

	return tx
}

type TransactionOption func(*entities.Transaction)

func WithHash(hash string) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.Hash = hash
	}
}

func WithFrom(addr string) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.From = addr
	}
}

func WithTo(addr string) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.To = addr
	}
}

// WithValue sets the raw base-unit value
func WithValue(value string) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.Value = value
	}
}

func WithTimestamp(ts time.Time) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.Timestamp = ts.Unix()
	}
}

func WithBlockNumber(num int64) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.BlockNumber = num
	}
}

func WithGas(used, price string) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.GasUsed = used
		tx.GasPrice = price
	}
}

func WithFailed() TransactionOption {
	return func(tx *entities.Transaction) {
		tx.IsError = true
	}
}

// WithToken turns the transaction into a token transfer of the given contract
func WithToken(address, symbol string, decimals int) TransactionOption {
	return func(tx *entities.Transaction) {
		tx.TxType = entities.TxTypeToken
		tx.TokenAddress = address
		tx.TokenSymbol = symbol
		tx.TokenDecimals = decimals
	}
}
