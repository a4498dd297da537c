package ethereum

import (
	"testing"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

func TestParseLedgerRow_Native(t *testing.T) {
	row := ledgerRow{
		BlockNumber: "19000000",
		TimeStamp:   "1705312200",
		Hash:        "0xABC",
		From:        "0x1234567890123456789012345678901234567890",
		To:          "0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD",
		Value:       "1000000000000000000",
		Gas:         "21000",
		GasPrice:    "30000000000",
		GasUsed:     "21000",
		IsError:     "0",
	}

	tx, err := parseLedgerRow(row, entities.TxTypeNative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Hash != "0xabc" {
		t.Errorf("Hash should be lowercase, got %s", tx.Hash)
	}
	if tx.To != "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd" {
		t.Errorf("To should be lowercase, got %s", tx.To)
	}
	if tx.BlockNumber != 19000000 || tx.Timestamp != 1705312200 {
		t.Errorf("unexpected block/timestamp: %d/%d", tx.BlockNumber, tx.Timestamp)
	}
	if tx.TxType != entities.TxTypeNative || tx.TokenAddress != "" {
		t.Errorf("unexpected native fields: %+v", tx)
	}
	if tx.IsError {
		t.Error("IsError should be false")
	}
}

func TestParseLedgerRow_Token(t *testing.T) {
	row := ledgerRow{
		BlockNumber:     "19000000",
		TimeStamp:       "1705312200",
		Hash:            "0xdef",
		From:            "0x1111111111111111111111111111111111111111",
		To:              "0x2222222222222222222222222222222222222222",
		Value:           "1000000",
		ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		TokenName:       "Tether USD",
		TokenSymbol:     "USDT",
		TokenDecimal:    "6",
	}

	tx, err := parseLedgerRow(row, entities.TxTypeToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.TokenAddress != "0xdac17f958d2ee523a2206206994597c13d831ec7" {
		t.Errorf("TokenAddress should be lowercase, got %s", tx.TokenAddress)
	}
	if tx.TokenDecimals != 6 || tx.TokenSymbol != "USDT" {
		t.Errorf("unexpected token fields: %+v", tx)
	}
	if got := tx.Amount(tx.TokenDecimals).String(); got != "1" {
		t.Errorf("expected amount 1, got %s", got)
	}
}

func TestParseLedgerRow_Errors(t *testing.T) {
	valid := ledgerRow{BlockNumber: "1", TimeStamp: "1", Hash: "0x1", ContractAddress: "0xc"}

	tests := []struct {
		name   string
		mutate func(r *ledgerRow)
		txType entities.TxType
	}{
		{name: "missing hash", mutate: func(r *ledgerRow) { r.Hash = "" }, txType: entities.TxTypeNative},
		{name: "bad timestamp", mutate: func(r *ledgerRow) { r.TimeStamp = "soon" }, txType: entities.TxTypeNative},
		{name: "bad block", mutate: func(r *ledgerRow) { r.BlockNumber = "" }, txType: entities.TxTypeNative},
		{name: "token without contract", mutate: func(r *ledgerRow) { r.ContractAddress = "" }, txType: entities.TxTypeToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := valid
			tt.mutate(&row)
			if _, err := parseLedgerRow(row, tt.txType); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseLedgerRow_DefaultsDecimalsAndValue(t *testing.T) {
	row := ledgerRow{BlockNumber: "1", TimeStamp: "1", Hash: "0x1", ContractAddress: "0xc", TokenDecimal: "garbage"}

	tx, err := parseLedgerRow(row, entities.TxTypeToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.TokenDecimals != entities.DefaultTokenDecimals {
		t.Errorf("expected default decimals, got %d", tx.TokenDecimals)
	}
	if tx.Value != "0" {
		t.Errorf("expected empty value to become 0, got %q", tx.Value)
	}
}

func TestParseLedgerRows_PartialFailure(t *testing.T) {
	rows := []ledgerRow{
		{BlockNumber: "1", TimeStamp: "1", Hash: "0x1"},
		{BlockNumber: "x", TimeStamp: "2", Hash: "0x2"},
		{BlockNumber: "3", TimeStamp: "3", Hash: "0x3"},
	}

	txs, failed := parseLedgerRows(rows, entities.TxTypeNative)

	if len(txs) != 2 {
		t.Errorf("expected 2 parsed transactions, got %d", len(txs))
	}
	if len(failed) != 1 || failed[0] != 1 {
		t.Errorf("expected failed index [1], got %v", failed)
	}
}

func TestMergeTransactions(t *testing.T) {
	native := []entities.Transaction{
		{Hash: "0xb", Timestamp: 200, BlockNumber: 20, TxType: entities.TxTypeNative, GasUsed: "21000", GasPrice: "10"},
		{Hash: "0xb", Timestamp: 200, BlockNumber: 20, TxType: entities.TxTypeNative, GasUsed: "21000", GasPrice: "10"},
		{Hash: "0xa", Timestamp: 100, BlockNumber: 10, TxType: entities.TxTypeNative},
	}
	tokens := []entities.Transaction{
		{Hash: "0xb", Timestamp: 200, BlockNumber: 20, TxType: entities.TxTypeToken, TokenAddress: "0xt1", From: "0x1", To: "0x2", Value: "5"},
		{Hash: "0xb", Timestamp: 200, BlockNumber: 20, TxType: entities.TxTypeToken, TokenAddress: "0xt2", From: "0x2", To: "0x1", Value: "7"},
		{Hash: "0xb", Timestamp: 200, BlockNumber: 20, TxType: entities.TxTypeToken, TokenAddress: "0xt1", From: "0x1", To: "0x2", Value: "5"},
		{Hash: "0xc", Timestamp: 150, BlockNumber: 15, TxType: entities.TxTypeToken, TokenAddress: "0xt1", GasUsed: "50000"},
	}

	merged := mergeTransactions(native, tokens)

	if len(merged) != 5 {
		t.Fatalf("expected 5 unique transactions, got %d", len(merged))
	}

	order := []string{"0xa", "0xc", "0xb", "0xb", "0xb"}
	for i, hash := range order {
		if merged[i].Hash != hash {
			t.Errorf("position %d: expected %s, got %s", i, hash, merged[i].Hash)
		}
	}
	if merged[2].TxType != entities.TxTypeNative {
		t.Errorf("native entry should sort before its token legs")
	}

	for _, tx := range merged[3:] {
		if tx.GasUsed != "21000" || tx.GasPrice != "10" {
			t.Errorf("token leg %s should inherit gas, got %q/%q", tx.TokenAddress, tx.GasUsed, tx.GasPrice)
		}
	}
	if merged[1].GasUsed != "50000" {
		t.Errorf("token without a native parent keeps its own gas, got %q", merged[1].GasUsed)
	}
}

func TestMergeTransactions_Deterministic(t *testing.T) {
	a := []entities.Transaction{
		{Hash: "0x2", Timestamp: 100, TxType: entities.TxTypeNative},
		{Hash: "0x1", Timestamp: 100, TxType: entities.TxTypeNative},
	}
	b := []entities.Transaction{
		{Hash: "0x1", Timestamp: 100, TxType: entities.TxTypeNative},
		{Hash: "0x2", Timestamp: 100, TxType: entities.TxTypeNative},
	}

	first := mergeTransactions(a, nil)
	second := mergeTransactions(b, nil)

	for i := range first {
		if first[i].Hash != second[i].Hash {
			t.Fatalf("input order changed output at %d: %s vs %s", i, first[i].Hash, second[i].Hash)
		}
	}
}
