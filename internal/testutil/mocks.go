package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

var _ clients.BlockchainClient = (*MockBlockchainClient)(nil)

// MockBlockchainClient is a mock implementation of clients.BlockchainClient.
// Without hooks it serves Transactions and prices from its tables.
type MockBlockchainClient struct {
	mu sync.Mutex

	Transactions   []entities.Transaction
	Tokens         map[string]entities.TokenInfo
	TokenPrices    map[string]float64 // historical USD price by token address
	CurrentPrices  map[string]float64 // current USD price by token address
	NativePriceUSD float64            // historical and current native price
	NativeBalance  float64
	CurrentBlock   int64

	// Function hooks for custom behavior
	GetTransactionsFunc            func(ctx context.Context, address string, opts clients.TransactionOptions) ([]entities.Transaction, error)
	GetNativeBalanceFunc           func(ctx context.Context, address string) (float64, error)
	EstimateBlockAtFunc            func(ctx context.Context, timestamp int64) int64
	GetTokenMetadataFunc           func(ctx context.Context, tokenAddress string) entities.TokenInfo
	GetHistoricalPriceFunc         func(ctx context.Context, tokenAddress string, timestamp int64) entities.TokenPrice
	GetNativeTokenPriceFunc        func(ctx context.Context, timestamp int64) float64
	GetCurrentTokenPriceFunc       func(ctx context.Context, tokenAddress string) entities.TokenPrice
	GetCurrentNativeTokenPriceFunc func(ctx context.Context) float64
	BatchGetTokenPricesFunc        func(ctx context.Context, tokenAddresses []string) map[string]entities.TokenPrice
	ChainHeadFunc                  func(ctx context.Context) (entities.ChainHead, error)

	// Call tracking
	Calls []MockCall
}

type MockCall struct {
	Method string
	Args   []interface{}
}

func NewMockBlockchainClient() *MockBlockchainClient {
	return &MockBlockchainClient{
		Tokens:         make(map[string]entities.TokenInfo),
		TokenPrices:    make(map[string]float64),
		CurrentPrices:  make(map[string]float64),
		NativePriceUSD: 2000,
		CurrentBlock:   20000000,
		Calls:          make([]MockCall, 0),
	}
}

func (m *MockBlockchainClient) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// CallCount returns how many times method was called
func (m *MockBlockchainClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log
func (m *MockBlockchainClient) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]MockCall, 0)
}

// AddTransactions appends transactions to the served history
func (m *MockBlockchainClient) AddTransactions(txs ...entities.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions = append(m.Transactions, txs...)
}

// AddToken registers token metadata and its historical and current price
func (m *MockBlockchainClient) AddToken(info entities.TokenInfo, historicalUSD, currentUSD float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	address := strings.ToLower(info.Address)
	info.Address = address
	m.Tokens[address] = info
	m.TokenPrices[address] = historicalUSD
	m.CurrentPrices[address] = currentUSD
}

func (m *MockBlockchainClient) ChainName() string         { return "Ethereum" }
func (m *MockBlockchainClient) ChainID() int64            { return 1 }
func (m *MockBlockchainClient) NativeSymbol() string      { return "ETH" }
func (m *MockBlockchainClient) DataSource() string        { return "Ethereum (mock)" }
func (m *MockBlockchainClient) BlockTimeSeconds() float64 { return 12 }

func (m *MockBlockchainClient) ValidateAddress(address string) error {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return &clients.InvalidAddressError{Chain: "Ethereum", Address: address}
	}
	return nil
}

func (m *MockBlockchainClient) GetTransactions(ctx context.Context, address string, opts clients.TransactionOptions) ([]entities.Transaction, error) {
	m.record("GetTransactions", address, opts)

	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, address, opts)
	}
	if err := m.ValidateAddress(address); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]entities.Transaction, 0, len(m.Transactions))
	for _, tx := range m.Transactions {
		if tx.BlockNumber < opts.StartBlock {
			continue
		}
		if opts.EndBlock > 0 && tx.BlockNumber > opts.EndBlock {
			continue
		}
		result = append(result, tx)
	}
	return result, nil
}

func (m *MockBlockchainClient) GetCurrentBlockNumber(ctx context.Context) (int64, error) {
	m.record("GetCurrentBlockNumber")
	return m.CurrentBlock, nil
}

func (m *MockBlockchainClient) EstimateBlockAt(ctx context.Context, timestamp int64) int64 {
	m.record("EstimateBlockAt", timestamp)
	if m.EstimateBlockAtFunc != nil {
		return m.EstimateBlockAtFunc(ctx, timestamp)
	}
	return 0
}

func (m *MockBlockchainClient) GetNativeBalance(ctx context.Context, address string) (float64, error) {
	m.record("GetNativeBalance", address)
	if m.GetNativeBalanceFunc != nil {
		return m.GetNativeBalanceFunc(ctx, address)
	}
	return m.NativeBalance, nil
}

func (m *MockBlockchainClient) GetTokenMetadata(ctx context.Context, tokenAddress string) entities.TokenInfo {
	m.record("GetTokenMetadata", tokenAddress)
	if m.GetTokenMetadataFunc != nil {
		return m.GetTokenMetadataFunc(ctx, tokenAddress)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	address := strings.ToLower(tokenAddress)
	if info, ok := m.Tokens[address]; ok {
		return info
	}
	return entities.FallbackTokenInfo(address)
}

func (m *MockBlockchainClient) GetHistoricalPrice(ctx context.Context, tokenAddress string, timestamp int64) entities.TokenPrice {
	m.record("GetHistoricalPrice", tokenAddress, timestamp)
	if m.GetHistoricalPriceFunc != nil {
		return m.GetHistoricalPriceFunc(ctx, tokenAddress, timestamp)
	}
	return m.price(m.TokenPrices, tokenAddress, timestamp)
}

func (m *MockBlockchainClient) GetNativeTokenPrice(ctx context.Context, timestamp int64) float64 {
	m.record("GetNativeTokenPrice", timestamp)
	if m.GetNativeTokenPriceFunc != nil {
		return m.GetNativeTokenPriceFunc(ctx, timestamp)
	}
	return m.NativePriceUSD
}

func (m *MockBlockchainClient) GetCurrentTokenPrice(ctx context.Context, tokenAddress string) entities.TokenPrice {
	m.record("GetCurrentTokenPrice", tokenAddress)
	if m.GetCurrentTokenPriceFunc != nil {
		return m.GetCurrentTokenPriceFunc(ctx, tokenAddress)
	}
	return m.price(m.CurrentPrices, tokenAddress, 0)
}

func (m *MockBlockchainClient) GetCurrentNativeTokenPrice(ctx context.Context) float64 {
	m.record("GetCurrentNativeTokenPrice")
	if m.GetCurrentNativeTokenPriceFunc != nil {
		return m.GetCurrentNativeTokenPriceFunc(ctx)
	}
	return m.NativePriceUSD
}

func (m *MockBlockchainClient) BatchGetTokenPrices(ctx context.Context, tokenAddresses []string) map[string]entities.TokenPrice {
	m.record("BatchGetTokenPrices", tokenAddresses)
	if m.BatchGetTokenPricesFunc != nil {
		return m.BatchGetTokenPricesFunc(ctx, tokenAddresses)
	}

	result := make(map[string]entities.TokenPrice, len(tokenAddresses))
	for _, a := range tokenAddresses {
		if p := m.price(m.CurrentPrices, a, 0); p.PriceUSD > 0 {
			result[strings.ToLower(a)] = p
		}
	}
	return result
}

func (m *MockBlockchainClient) ChainHead(ctx context.Context) (entities.ChainHead, error) {
	m.record("ChainHead")
	if m.ChainHeadFunc != nil {
		return m.ChainHeadFunc(ctx)
	}
	return entities.ChainHead{Block: MockHeadBlock, Reported: MockHeadBlock}, nil
}

func (m *MockBlockchainClient) price(table map[string]float64, tokenAddress string, timestamp int64) entities.TokenPrice {
	m.mu.Lock()
	defer m.mu.Unlock()
	usd := table[strings.ToLower(tokenAddress)]
	price := entities.TokenPrice{PriceUSD: usd, Timestamp: timestamp}
	if m.NativePriceUSD > 0 {
		price.PriceNative = usd / m.NativePriceUSD
	}
	return price
}

// ErrMockUnavailable is a generic upstream failure for tests
var ErrMockUnavailable = errors.New("mock upstream unavailable")

// MockHeadBlock is the chain head mocks report by default
const MockHeadBlock = 21000000

// MockHealthChecker is a mock implementation of handlers.HealthChecker and handlers.ChainHeadSource
type MockHealthChecker struct {
	mu sync.RWMutex

	Healthy bool
	Error   error
	Head    entities.ChainHead
	Calls   []MockCall
}

func NewMockHealthChecker(healthy bool) *MockHealthChecker {
	m := &MockHealthChecker{
		Head:  entities.ChainHead{Block: MockHeadBlock, Reported: MockHeadBlock},
		Calls: make([]MockCall, 0),
	}
	m.SetHealthy(healthy)
	return m
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "HealthCheck"})
	return m.Error
}

func (m *MockHealthChecker) ChainHead(ctx context.Context) (entities.ChainHead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: "ChainHead"})
	if m.Error != nil {
		return entities.ChainHead{}, m.Error
	}
	return m.Head, nil
}

func (m *MockHealthChecker) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Healthy = healthy
	if healthy {
		m.Error = nil
	} else {
		m.Error = errors.New("health check failed")
	}
}

// SetEstimatedHead makes ChainHead report an implausible block replaced by an estimate
func (m *MockHealthChecker) SetEstimatedHead(reported, estimate int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Head = entities.ChainHead{Block: estimate, Reported: reported, Estimated: true}
}
