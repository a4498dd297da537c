package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
)

// proxyResponse is a JSON-RPC answer relayed by the ledger's proxy module.
// Ledger-level failures come back in the Etherscan envelope instead.
type proxyResponse struct {
	Result  json.RawMessage `json:"result"`
	Error   *proxyError     `json:"error"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}

type proxyError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// callProxy runs a JSON-RPC method through the ledger proxy and returns the hex result
func (c *Client) callProxy(ctx context.Context, action string, extra map[string]string) (string, error) {
	params := c.ledgerParams("proxy", action)
	for k, v := range extra {
		params[k] = v
	}

	var resp proxyResponse
	if err := c.ledger.GetJSON(ctx, c.config.APIURL, params, nil, &resp); err != nil {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return "", fmt.Errorf("failed to call %s: %w", action, err)
	}
	if resp.Error != nil {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return "", fmt.Errorf("%s failed: %s (code %d)", action, resp.Error.Message, resp.Error.Code)
	}

	var result string
	if err := sonic.Unmarshal(resp.Result, &result); err != nil {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return "", fmt.Errorf("%s returned an unexpected result: %w", action, err)
	}
	if resp.Status == "0" || !strings.HasPrefix(result, "0x") {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return "", fmt.Errorf("%s rejected: %s %s", action, resp.Message, result)
	}

	c.track(ctx, providerEtherscan, metrics.OutcomeSuccess)
	return result, nil
}

// fetchBlockNumber asks the ledger for the latest block
func (c *Client) fetchBlockNumber(ctx context.Context) (int64, error) {
	result, err := c.callProxy(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	n, err := hexutil.DecodeUint64(result)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", result, err)
	}
	return int64(n), nil
}

// plausibleBlock reports whether block lies inside the configured window
func (c *Client) plausibleBlock(block int64) bool {
	return block > c.config.MinPlausibleBlock && block < c.config.MaxPlausibleBlock
}

// GetCurrentBlockNumber returns the latest block, or a deterministic estimate from the reference
// block when the ledger answer is missing or outside the plausible window.
func (c *Client) GetCurrentBlockNumber(ctx context.Context) (int64, error) {
	block, err := c.fetchBlockNumber(ctx)
	if err == nil && c.plausibleBlock(block) {
		return block, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	estimate := c.estimateBlockFromReference(c.now().Unix())
	c.logger.Warn("Using estimated block number",
		zap.Int64("reported", block),
		zap.Int64("estimate", estimate),
		zap.Error(err),
	)
	return estimate, nil
}

// ChainHead reports the ledger's latest block. Unlike GetCurrentBlockNumber an unreachable
// ledger is an error, and an implausible answer is flagged as Estimated.
func (c *Client) ChainHead(ctx context.Context) (entities.ChainHead, error) {
	block, err := c.fetchBlockNumber(ctx)
	if err != nil {
		return entities.ChainHead{}, fmt.Errorf("ledger unreachable: %w", err)
	}
	if c.plausibleBlock(block) {
		return entities.ChainHead{Block: block, Reported: block}, nil
	}
	return entities.ChainHead{
		Block:     c.estimateBlockFromReference(c.now().Unix()),
		Reported:  block,
		Estimated: true,
	}, nil
}

// estimateBlockFromReference extrapolates from the configured reference block
func (c *Client) estimateBlockFromReference(unix int64) int64 {
	elapsed := float64(unix - c.config.ReferenceTimestamp)
	return c.config.ReferenceBlock + int64(elapsed/c.config.BlockTimeSeconds)
}

// EstimateBlockAt estimates the block produced at timestamp by walking back from the current block
func (c *Client) EstimateBlockAt(ctx context.Context, timestamp int64) int64 {
	current, err := c.GetCurrentBlockNumber(ctx)
	if err != nil {
		return 0
	}
	back := int64(float64(c.now().Unix()-timestamp) / c.config.BlockTimeSeconds)
	if back < 0 {
		back = 0
	}
	block := current - back
	if block < 0 {
		return 0
	}
	return block
}

// GetNativeBalance returns the address balance in whole native units
func (c *Client) GetNativeBalance(ctx context.Context, address string) (float64, error) {
	if err := c.ValidateAddress(address); err != nil {
		return 0, err
	}

	params := c.ledgerParams("account", "balance")
	params["address"] = strings.ToLower(address)
	params["tag"] = "latest"

	var resp ledgerResponse
	if err := c.ledger.GetJSON(ctx, c.config.APIURL, params, nil, &resp); err != nil {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return 0, fmt.Errorf("failed to fetch balance: %w", err)
	}
	if resp.Status != "1" {
		c.track(ctx, providerEtherscan, metrics.OutcomeError)
		return 0, fmt.Errorf("balance request rejected: %s %s", resp.Message, resp.resultString())
	}
	c.track(ctx, providerEtherscan, metrics.OutcomeSuccess)

	wei, err := decimal.NewFromString(resp.resultString())
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", resp.resultString(), err)
	}
	return wei.Shift(-entities.NativeDecimals).InexactFloat64(), nil
}

// ethCall runs a read-only contract call and returns the raw return data
func (c *Client) ethCall(ctx context.Context, to string, data []byte) ([]byte, error) {
	result, err := c.callProxy(ctx, "eth_call", map[string]string{
		"to":   to,
		"data": hexutil.Encode(data),
		"tag":  "latest",
	})
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(result)
}
