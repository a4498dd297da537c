package entities

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TxType distinguishes native value transfers from token transfers
type TxType string

const (
	TxTypeNative TxType = "ETH"
	TxTypeToken  TxType = "ERC20"
)

// NativeDecimals is the number of decimals of the chain's native unit (wei -> ETH)
const NativeDecimals = 18

// Transaction is one ledger entry touching the analyzed address.
// Amounts and gas values are kept as raw base-unit strings exactly as the ledger returns them.
type Transaction struct {
	Hash          string `json:"hash"`
	From          string `json:"from"`
	To            string `json:"to"`
	Value         string `json:"value"`
	Timestamp     int64  `json:"timestamp"`
	BlockNumber   int64  `json:"blockNumber"`
	Gas           string `json:"gas,omitempty"`
	GasUsed       string `json:"gasUsed,omitempty"`
	GasPrice      string `json:"gasPrice,omitempty"`
	TxType        TxType `json:"txType"`
	IsError       bool   `json:"isError,omitempty"`
	TokenAddress  string `json:"tokenAddress,omitempty"`
	TokenSymbol   string `json:"tokenSymbol,omitempty"`
	TokenName     string `json:"tokenName,omitempty"`
	TokenDecimals int    `json:"tokenDecimals,omitempty"`
}

// Key identifies a transaction within a fetched set.
// Native entries are unique per hash; token entries are unique per transfer leg,
// so the legs of a multi-token swap sharing one hash are all kept.
func (t Transaction) Key() string {
	if t.TxType == TxTypeToken {
		return strings.Join([]string{t.Hash, string(t.TxType), t.TokenAddress, t.From, t.To, t.Value}, "|")
	}
	return t.Hash + "|" + string(t.TxType)
}

// IsNative reports whether this is a native value transfer
func (t Transaction) IsNative() bool {
	return t.TxType != TxTypeToken
}

// IsSentBy reports whether address initiated the transfer (case-insensitive)
func (t Transaction) IsSentBy(address string) bool {
	return strings.EqualFold(t.From, address)
}

// IsReceivedBy reports whether address received the transfer (case-insensitive)
func (t Transaction) IsReceivedBy(address string) bool {
	return strings.EqualFold(t.To, address)
}

// Counterparty returns the address on the other side of the transfer, lower-cased.
// Empty when there is none (self-transfer or contract creation).
func (t Transaction) Counterparty(address string) string {
	var other string
	if t.IsSentBy(address) {
		other = t.To
	} else {
		other = t.From
	}
	other = strings.ToLower(other)
	if other == "" || strings.EqualFold(other, address) {
		return ""
	}
	return other
}

// Amount converts the raw value into whole units using the given decimals
func (t Transaction) Amount(decimals int) decimal.Decimal {
	v, err := decimal.NewFromString(t.Value)
	if err != nil {
		return decimal.Zero
	}
	return v.Shift(-int32(decimals))
}

// GasFeeWei returns gasUsed * gasPrice in wei, zero when either is missing
func (t Transaction) GasFeeWei() decimal.Decimal {
	used, err := decimal.NewFromString(t.GasUsed)
	if err != nil {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(t.GasPrice)
	if err != nil {
		return decimal.Zero
	}
	return used.Mul(price)
}

// Timeframe is an inclusive unix-seconds window
type Timeframe struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Contains reports whether ts falls inside the window
func (tf Timeframe) Contains(ts int64) bool {
	return ts >= tf.Start && ts <= tf.End
}

// FilterTimeframe returns the transactions whose timestamp falls inside tf, preserving order
func FilterTimeframe(txs []Transaction, tf Timeframe) []Transaction {
	filtered := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tf.Contains(tx.Timestamp) {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
