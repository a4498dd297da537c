package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

func TestMockBlockchainClient_GetTransactions(t *testing.T) {
	client := NewMockBlockchainClient()
	client.AddTransactions(
		CreateTestTransaction(WithHash("0x1"), WithBlockNumber(100)),
		CreateTestTransaction(WithHash("0x2"), WithBlockNumber(200)),
		CreateTestTransaction(WithHash("0x3"), WithBlockNumber(300)),
	)
	ctx := context.Background()

	txs, err := client.GetTransactions(ctx, AliceAddress, clients.TransactionOptions{StartBlock: 150})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 || txs[0].Hash != "0x2" {
		t.Errorf("expected blocks from 150, got %+v", txs)
	}

	txs, _ = client.GetTransactions(ctx, AliceAddress, clients.TransactionOptions{EndBlock: 200})
	if len(txs) != 2 || txs[1].Hash != "0x2" {
		t.Errorf("expected blocks up to 200, got %+v", txs)
	}

	if _, err := client.GetTransactions(ctx, "0xnope", clients.TransactionOptions{}); !clients.IsInvalidAddress(err) {
		t.Errorf("expected an invalid address error, got %v", err)
	}

	// Test call tracking
	if client.CallCount("GetTransactions") != 3 {
		t.Errorf("expected 3 calls, got %d", client.CallCount("GetTransactions"))
	}
	client.ResetCalls()
	if len(client.Calls) != 0 {
		t.Error("expected calls to be cleared")
	}
}

func TestMockBlockchainClient_Prices(t *testing.T) {
	client := NewMockBlockchainClient()
	client.AddToken(entities.TokenInfo{Address: PepeAddress, Symbol: "PEPE", Decimals: 18}, 2, 3)
	ctx := context.Background()

	if info := client.GetTokenMetadata(ctx, PepeAddress); info.Symbol != "PEPE" {
		t.Errorf("expected PEPE, got %+v", info)
	}
	if info := client.GetTokenMetadata(ctx, USDTAddress); !info.IsUnknown() {
		t.Errorf("expected the fallback for an unregistered token, got %+v", info)
	}

	price := client.GetHistoricalPrice(ctx, PepeAddress, BaseTime.Unix())
	if price.PriceUSD != 2 || price.PriceNative != 0.001 {
		t.Errorf("unexpected historical price %+v", price)
	}
	if current := client.GetCurrentTokenPrice(ctx, PepeAddress); current.PriceUSD != 3 {
		t.Errorf("unexpected current price %+v", current)
	}

	batch := client.BatchGetTokenPrices(ctx, []string{PepeAddress, USDTAddress})
	if len(batch) != 1 || batch[PepeAddress].PriceUSD != 3 {
		t.Errorf("expected only priced tokens in the batch, got %+v", batch)
	}
}

func TestMockBlockchainClient_Hooks(t *testing.T) {
	client := NewMockBlockchainClient()
	client.GetNativeBalanceFunc = func(ctx context.Context, address string) (float64, error) {
		return 0, ErrMockUnavailable
	}

	if _, err := client.GetNativeBalance(context.Background(), AliceAddress); !errors.Is(err, ErrMockUnavailable) {
		t.Errorf("expected the hook error, got %v", err)
	}
	if client.CallCount("GetNativeBalance") != 1 {
		t.Error("expected hooked calls to be tracked")
	}
}

func TestMockHealthChecker(t *testing.T) {
	checker := NewMockHealthChecker(true)
	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	checker.SetHealthy(false)
	if err := checker.HealthCheck(context.Background()); err == nil {
		t.Error("expected an error when unhealthy")
	}
	if _, err := checker.ChainHead(context.Background()); err == nil {
		t.Error("expected an unhealthy ledger to have no head")
	}
	if len(checker.Calls) != 3 {
		t.Errorf("expected 3 calls, got %d", len(checker.Calls))
	}

	checker.SetHealthy(true)
	checker.SetEstimatedHead(16, 21576000)
	head, err := checker.ChainHead(context.Background())
	if err != nil || !head.Estimated || head.Block != 21576000 {
		t.Errorf("expected the estimated head, got %+v (%v)", head, err)
	}
}

func TestCreateTestTransaction(t *testing.T) {
	tx := CreateTestTransaction(WithToken(USDCAddress, "USDC", 6), WithValue(Units("12.5", 6)), WithFailed())

	if tx.IsNative() || tx.TokenAddress != USDCAddress || !tx.IsError {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if tx.Value != "12500000" {
		t.Errorf("expected 12500000 base units, got %s", tx.Value)
	}
	if !tx.IsSentBy(BobAddress) || !tx.IsReceivedBy(AliceAddress) {
		t.Error("expected the default Bob to Alice direction")
	}
}
