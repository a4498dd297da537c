package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/infrastructure/httpclient"
	"github.com/bimakw/chain-analytics/internal/infrastructure/metrics"
	"github.com/bimakw/chain-analytics/internal/infrastructure/retry"
)

const (
	actionNativeTransfers = "txlist"
	actionTokenTransfers  = "tokentx"

	// upper bound accepted by the ledger for endblock
	latestBlockSentinel = 99999999
)

// ledgerResponse is the Etherscan envelope; result is an array on success and a string on failure
type ledgerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// resultString returns the result when the ledger sent a string
func (r ledgerResponse) resultString() string {
	var s string
	if err := sonic.Unmarshal(r.Result, &s); err != nil {
		return ""
	}
	return s
}

// transientError is a page failure worth retrying
type transientError struct {
	reason string
	err    error
}

func (e *transientError) Error() string {
	if e.err != nil {
		return e.reason + ": " + e.err.Error()
	}
	return e.reason
}

func (e *transientError) Unwrap() error { return e.err }

const (
	reasonSuspiciousEmpty = "empty page from an active block range"
	reasonNotOK           = "NOTOK response"
	reasonRateLimited     = "rate limited"
	reasonNetwork         = "network error"
	reasonTimeout         = "timeout"
)

// pageOutcome tells a confirmed page apart from one that was given up on
type pageOutcome int

const (
	pageConfirmed pageOutcome = iota
	pageDegraded
)

// GetTransactions fetches native and token transfers concurrently and merges them into one
// timestamp-ordered list, truncated to the configured maximum.
func (c *Client) GetTransactions(ctx context.Context, address string, opts clients.TransactionOptions) ([]entities.Transaction, error) {
	if err := c.ValidateAddress(address); err != nil {
		return nil, err
	}
	address = strings.ToLower(address)

	var native, tokens []entities.Transaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := c.fetchAllPages(gctx, actionNativeTransfers, address, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch native transfers: %w", err)
		}
		native = txs
		return nil
	})
	g.Go(func() error {
		txs, err := c.fetchAllPages(gctx, actionTokenTransfers, address, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch token transfers: %w", err)
		}
		tokens = txs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.seedTokenMetadata(ctx, tokens)

	merged := mergeTransactions(native, tokens)

	c.logger.Info("Fetched transactions",
		zap.String("address", address),
		zap.Int("native", len(native)),
		zap.Int("token", len(tokens)),
		zap.Int("merged", len(merged)),
	)

	if limit := c.config.MaxTransactions; limit > 0 && len(merged) > limit {
		c.logger.Warn("Truncating transaction history",
			zap.String("address", address),
			zap.Int("found", len(merged)),
			zap.Int("limit", limit),
		)
		diagnostics.Warn(ctx, fmt.Sprintf("history truncated to the oldest %d of %d transactions", limit, len(merged)))
		merged = merged[:limit]
	}

	return merged, nil
}

// fetchAllPages walks one transfer list by block range. Pages are strictly sequential:
// each page starts one block after the last block of the previous full page.
func (c *Client) fetchAllPages(ctx context.Context, action, address string, opts clients.TransactionOptions) ([]entities.Transaction, error) {
	txType := entities.TxTypeNative
	if action == actionTokenTransfers {
		txType = entities.TxTypeToken
	}

	startBlock := opts.StartBlock
	if startBlock < 0 {
		startBlock = 0
	}
	endBlock := opts.EndBlock
	if endBlock <= 0 {
		endBlock = latestBlockSentinel
	}

	all := make([]entities.Transaction, 0)
	pages, degraded := 0, 0
	defer func() {
		c.logger.Debug("Pagination finished",
			zap.String("action", action),
			zap.Int("pages", pages),
			zap.Int("degraded_pages", degraded),
			zap.Int("transactions", len(all)),
		)
	}()

	for {
		rows, outcome, err := c.fetchPage(ctx, action, address, startBlock, endBlock)
		if err != nil {
			return nil, err
		}
		pages++
		if outcome == pageDegraded {
			degraded++
		}

		txs, failed := parseLedgerRows(rows, txType)
		if len(failed) > 0 {
			c.logger.Warn("Skipped unparseable ledger rows",
				zap.String("action", action),
				zap.Int("count", len(failed)),
			)
		}
		all = append(all, txs...)

		if len(rows) < c.config.PageSize {
			break
		}
		if c.config.MaxTransactions > 0 && len(all) >= c.config.MaxTransactions {
			break
		}

		lastBlock, err := strconv.ParseInt(rows[len(rows)-1].BlockNumber, 10, 64)
		if err != nil {
			c.logger.Warn("Cannot continue pagination, last row has no block number",
				zap.String("action", action),
				zap.Error(err),
			)
			break
		}
		startBlock = lastBlock + 1
		if startBlock > endBlock {
			break
		}

		if err := sleepCtx(ctx, c.config.PageDelay); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// fetchPage requests one page under the retry policy. Transient failures that outlive the
// retries yield an empty, degraded page; only unambiguous ledger errors are returned.
func (c *Client) fetchPage(ctx context.Context, action, address string, startBlock, endBlock int64) ([]ledgerRow, pageOutcome, error) {
	params := c.ledgerParams("account", action)
	params["address"] = address
	params["startblock"] = strconv.FormatInt(startBlock, 10)
	params["endblock"] = strconv.FormatInt(endBlock, 10)
	params["sort"] = "asc"

	var rows []ledgerRow
	policy := c.pagePolicy(action, startBlock)

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var resp ledgerResponse
		if err := c.ledger.GetJSON(ctx, c.config.APIURL, params, nil, &resp); err != nil {
			c.track(ctx, providerEtherscan, metrics.OutcomeRetry)
			if httpclient.IsTimeout(err) && ctx.Err() == nil {
				return &transientError{reason: reasonTimeout, err: err}
			}
			return &transientError{reason: reasonNetwork, err: err}
		}

		page, err := c.classifyPage(resp, startBlock)
		if err != nil {
			var transient *transientError
			if errors.As(err, &transient) {
				c.track(ctx, providerEtherscan, metrics.OutcomeRetry)
			} else {
				c.track(ctx, providerEtherscan, metrics.OutcomeError)
			}
			return err
		}

		if len(page) == 0 {
			c.track(ctx, providerEtherscan, metrics.OutcomeEmpty)
		} else {
			c.track(ctx, providerEtherscan, metrics.OutcomeSuccess)
		}
		rows = page
		return nil
	})

	if err == nil {
		c.logger.Debug("Fetched ledger page",
			zap.String("action", action),
			zap.Int64("start_block", startBlock),
			zap.Int("rows", len(rows)),
		)
		return rows, pageConfirmed, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, pageDegraded, ctxErr
	}

	var apiErr *clients.APIError
	if errors.As(err, &apiErr) {
		return nil, pageDegraded, err
	}

	var transient *transientError
	if errors.As(err, &transient) && transient.reason == reasonSuspiciousEmpty {
		c.logger.Info("Empty page confirmed after retries",
			zap.String("action", action),
			zap.Int64("start_block", startBlock),
		)
		return nil, pageConfirmed, nil
	}

	c.logger.Warn("Giving up on ledger page, continuing with an empty page",
		zap.String("action", action),
		zap.Int64("start_block", startBlock),
		zap.Int("retries", policy.MaxRetries),
		zap.Error(err),
	)
	reason := "retries exhausted"
	if transient != nil {
		reason = transient.reason
	}
	diagnostics.Warn(ctx, fmt.Sprintf("%s page from block %d skipped after %d retries (%s); history may be incomplete",
		action, startBlock, policy.MaxRetries, reason))
	return nil, pageDegraded, nil
}

// classifyPage maps a ledger envelope onto rows, a transient error, or an APIError
func (c *Client) classifyPage(resp ledgerResponse, startBlock int64) ([]ledgerRow, error) {
	if resp.Status == "1" {
		var rows []ledgerRow
		if len(resp.Result) > 0 && string(resp.Result) != "null" {
			if err := sonic.Unmarshal(resp.Result, &rows); err != nil {
				return nil, &transientError{reason: reasonNetwork, err: fmt.Errorf("failed to decode ledger rows: %w", err)}
			}
		}
		if len(rows) == 0 && c.isSuspiciousEmpty(startBlock) {
			return nil, &transientError{reason: reasonSuspiciousEmpty}
		}
		return rows, nil
	}

	detail := resp.resultString()
	lowerMessage := strings.ToLower(resp.Message + " " + detail)

	switch {
	case strings.Contains(lowerMessage, "no transactions found"):
		return nil, nil
	case strings.Contains(lowerMessage, "invalid api key"):
		return nil, &clients.APIError{Chain: c.config.ChainName, Message: strings.TrimSpace(resp.Message + ": " + detail)}
	case strings.Contains(lowerMessage, "rate limit"):
		return nil, &transientError{reason: reasonRateLimited, err: errors.New(detail)}
	case resp.Message == "NOTOK":
		return nil, &transientError{reason: reasonNotOK, err: errors.New(detail)}
	default:
		return nil, &clients.APIError{Chain: c.config.ChainName, Message: strings.TrimSpace(resp.Message + " " + detail)}
	}
}

// isSuspiciousEmpty reports whether an empty page at startBlock may be throttling in disguise
func (c *Client) isSuspiciousEmpty(startBlock int64) bool {
	threshold := c.config.SuspiciousEmptyBelowBlock
	return threshold > 0 && startBlock < threshold
}

func (c *Client) pagePolicy(action string, startBlock int64) retry.Policy {
	return retry.Policy{
		MaxRetries: c.config.MaxRetries,
		BaseDelay:  c.config.RetryDelay,
		MaxDelay:   c.config.RetryMaxDelay,
		Classify: func(err error) retry.Class {
			var transient *transientError
			if errors.As(err, &transient) {
				return retry.Retryable
			}
			return retry.Fatal
		},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			c.logger.Warn("Retrying ledger page",
				zap.String("action", action),
				zap.Int64("start_block", startBlock),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.config.MaxRetries),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	}
}

// seedTokenMetadata stores the token identity carried by transfer rows so most tokens never need a metadata call
func (c *Client) seedTokenMetadata(ctx context.Context, tokens []entities.Transaction) {
	seen := make(map[string]struct{})
	for _, tx := range tokens {
		if tx.TokenAddress == "" || tx.TokenSymbol == "" {
			continue
		}
		if _, ok := seen[tx.TokenAddress]; ok {
			continue
		}
		seen[tx.TokenAddress] = struct{}{}
		if _, known := c.tokens.Lookup(tx.TokenAddress); known {
			continue
		}
		c.stores.TokenInfo.Set(ctx, tokenInfoKey(tx.TokenAddress), entities.TokenInfo{
			Address:  tx.TokenAddress,
			Symbol:   strings.ToUpper(tx.TokenSymbol),
			Decimals: tx.TokenDecimals,
			Name:     tx.TokenName,
		}, c.stores.TokenInfoTTL)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
