package ethereum

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// ledgerRow is one row of an Etherscan txlist/tokentx result. Every field is a string on the wire.
type ledgerRow struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// parseLedgerRow converts a raw ledger row into a Transaction
func parseLedgerRow(row ledgerRow, txType entities.TxType) (*entities.Transaction, error) {
	if row.Hash == "" {
		return nil, fmt.Errorf("missing hash")
	}

	timestamp, err := strconv.ParseInt(row.TimeStamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", row.TimeStamp, err)
	}

	blockNumber, err := strconv.ParseInt(row.BlockNumber, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid block number %q: %w", row.BlockNumber, err)
	}

	value := row.Value
	if value == "" {
		value = "0"
	}

	tx := &entities.Transaction{
		Hash:        strings.ToLower(row.Hash),
		From:        strings.ToLower(row.From),
		To:          strings.ToLower(row.To),
		Value:       value,
		Timestamp:   timestamp,
		BlockNumber: blockNumber,
		Gas:         row.Gas,
		GasUsed:     row.GasUsed,
		GasPrice:    row.GasPrice,
		TxType:      txType,
		IsError:     row.IsError == "1",
	}

	if txType == entities.TxTypeToken {
		if row.ContractAddress == "" {
			return nil, fmt.Errorf("token transfer without contract address")
		}
		tx.TokenAddress = strings.ToLower(row.ContractAddress)
		tx.TokenSymbol = row.TokenSymbol
		tx.TokenName = row.TokenName
		tx.TokenDecimals = entities.DefaultTokenDecimals
		if row.TokenDecimal != "" {
			if d, err := strconv.Atoi(row.TokenDecimal); err == nil && d >= 0 && d <= 77 {
				tx.TokenDecimals = d
			}
		}
	}

	return tx, nil
}

// parseLedgerRows parses rows into transactions.
// Returns parsed transactions and a list of failed row indices.
func parseLedgerRows(rows []ledgerRow, txType entities.TxType) ([]entities.Transaction, []int) {
	txs := make([]entities.Transaction, 0, len(rows))
	failedIndices := make([]int, 0)

	for i, row := range rows {
		tx, err := parseLedgerRow(row, txType)
		if err != nil {
			failedIndices = append(failedIndices, i)
			continue
		}
		txs = append(txs, *tx)
	}

	return txs, failedIndices
}

// mergeTransactions combines native and token histories into one deduplicated, time-ordered list.
// Token transfers inherit gas fields from the native transaction with the same hash.
func mergeTransactions(native, tokens []entities.Transaction) []entities.Transaction {
	parents := make(map[string]entities.Transaction, len(native))
	seen := make(map[string]struct{}, len(native)+len(tokens))
	merged := make([]entities.Transaction, 0, len(native)+len(tokens))

	for _, tx := range native {
		key := tx.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		parents[tx.Hash] = tx
		merged = append(merged, tx)
	}

	for _, tx := range tokens {
		if parent, ok := parents[tx.Hash]; ok {
			tx.Gas = parent.Gas
			tx.GasUsed = parent.GasUsed
			tx.GasPrice = parent.GasPrice
		}
		key := tx.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, tx)
	}

	sortTransactions(merged)
	return merged
}

// sortTransactions orders by timestamp with a total tie-break so repeated fetches produce identical lists
func sortTransactions(txs []entities.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		if a.Hash != b.Hash {
			return a.Hash < b.Hash
		}
		if a.TxType != b.TxType {
			return a.TxType == entities.TxTypeNative
		}
		return a.Key() < b.Key()
	})
}
