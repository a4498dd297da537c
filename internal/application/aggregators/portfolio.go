package aggregators

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/diagnostics"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// PortfolioClient adds the live native balance to the pricing capabilities
type PortfolioClient interface {
	PricingClient
	GetNativeBalance(ctx context.Context, address string) (float64, error)
}

// PortfolioAggregator derives current holdings from the full transfer history and values them
type PortfolioAggregator struct {
	client PortfolioClient
	valuer valuer
	logger *zap.Logger
}

// NewPortfolioAggregator creates a new portfolio aggregator
func NewPortfolioAggregator(client PortfolioClient, logger *zap.Logger) *PortfolioAggregator {
	return &PortfolioAggregator{
		client: client,
		valuer: valuer{client: client},
		logger: logger,
	}
}

type netPosition struct {
	token string
	raw   decimal.Decimal
	first entities.Transaction
}

// Analyze nets every token transfer per contract into a balance. Input must be the unfiltered history.
func (a *PortfolioAggregator) Analyze(ctx context.Context, in Input) (*entities.PortfolioAnalysis, error) {
	positions := make(map[string]*netPosition)
	order := make([]string, 0)

	for _, tx := range in.Transactions {
		if tx.IsNative() || tx.IsError {
			continue
		}
		sent, received := tx.IsSentBy(in.Address), tx.IsReceivedBy(in.Address)
		if sent == received {
			continue
		}
		value, err := decimal.NewFromString(tx.Value)
		if err != nil {
			continue
		}

		p, ok := positions[tx.TokenAddress]
		if !ok {
			p = &netPosition{token: tx.TokenAddress, raw: decimal.Zero, first: tx}
			positions[tx.TokenAddress] = p
			order = append(order, tx.TokenAddress)
		}
		if received {
			p.raw = p.raw.Add(value)
		} else {
			p.raw = p.raw.Sub(value)
		}
	}

	type holdingDraft struct {
		token   string
		info    entities.TokenInfo
		balance float64
	}
	drafts := make([]holdingDraft, 0, len(order))
	for _, token := range order {
		p := positions[token]
		info := a.valuer.tokenInfo(ctx, p.first)
		if p.raw.IsNegative() {
			a.logger.Warn("Negative token balance, clamping to zero",
				zap.String("address", in.Address),
				zap.String("token", token),
				zap.String("raw_balance", p.raw.String()),
			)
			diagnostics.Warn(ctx, fmt.Sprintf("negative %s balance derived from history; clamped to 0", info.Symbol))
			continue
		}
		if p.raw.IsZero() {
			continue
		}
		drafts = append(drafts, holdingDraft{
			token:   token,
			info:    info,
			balance: p.raw.Shift(-int32(info.Decimals)).InexactFloat64(),
		})
	}

	// cost basis of what is still held comes from purchases across the whole history
	costs := make(map[string][2]float64) // token -> {amount, usd}
	if len(drafts) > 0 {
		for _, p := range a.valuer.pairPurchases(ctx, in.Address, in.Transactions) {
			c := costs[p.Tx.TokenAddress]
			c[0] += p.Amount
			c[1] += p.CostUSD
			costs[p.Tx.TokenAddress] = c
		}
	}

	addresses := make([]string, len(drafts))
	for i, d := range drafts {
		addresses[i] = d.token
	}
	var prices map[string]entities.TokenPrice
	if len(addresses) > 0 {
		prices = a.client.BatchGetTokenPrices(ctx, addresses)
	}

	holdings := make([]entities.PortfolioHolding, 0, len(drafts))
	for _, d := range drafts {
		h := entities.PortfolioHolding{
			TokenAddress:    d.token,
			TokenSymbol:     d.info.Symbol,
			TokenName:       d.info.Name,
			Balance:         d.balance,
			CurrentPriceUSD: prices[d.token].PriceUSD,
		}
		h.CurrentValueUSD = h.Balance * h.CurrentPriceUSD
		if c, ok := costs[d.token]; ok && c[0] > 0 {
			h.AverageBuyPriceUSD = c[1] / c[0]
			h.TotalInvestedUSD = h.AverageBuyPriceUSD * h.Balance
		}
		h.PnL = h.CurrentValueUSD - h.TotalInvestedUSD
		h.PnLPercentage = percentage(h.PnL, h.TotalInvestedUSD)
		holdings = append(holdings, h)
	}

	sort.SliceStable(holdings, func(i, j int) bool {
		if holdings[i].CurrentValueUSD != holdings[j].CurrentValueUSD {
			return holdings[i].CurrentValueUSD > holdings[j].CurrentValueUSD
		}
		return holdings[i].TokenAddress < holdings[j].TokenAddress
	})

	analysis := &entities.PortfolioAnalysis{
		Address:        in.Address,
		Chain:          a.client.ChainName(),
		NativeBalance:  a.nativeBalance(ctx, in),
		NativePriceUSD: a.client.GetCurrentNativeTokenPrice(ctx),
		TokenHoldings:  holdings,
		NumTokens:      len(holdings),
	}
	analysis.NativeValueUSD = analysis.NativeBalance * analysis.NativePriceUSD

	analysis.TotalPortfolioValueUSD = analysis.NativeValueUSD
	for _, h := range holdings {
		analysis.TotalPortfolioValueUSD += h.CurrentValueUSD
		analysis.TotalInvestedUSD += h.TotalInvestedUSD
		analysis.TotalPnL += h.PnL
	}
	analysis.TotalPnLPercentage = percentage(analysis.TotalPnL, analysis.TotalInvestedUSD)
	analysis.NativePercentOfPortfolio = percentage(analysis.NativeValueUSD, analysis.TotalPortfolioValueUSD)

	var best *entities.PortfolioHolding
	for i := range holdings {
		h := &holdings[i]
		h.PercentOfPortfolio = percentage(h.CurrentValueUSD, analysis.TotalPortfolioValueUSD)
		if h.TotalInvestedUSD <= 0 {
			continue
		}
		if best == nil || betterPnL(h.PnLPercentage, h.PnL, h.TokenAddress, best.PnLPercentage, best.PnL, best.TokenAddress) {
			best = h
		}
	}
	if len(holdings) > 0 {
		top := holdings[0]
		analysis.TopHoldingByValue = &top
	}
	if best != nil {
		mostProfitable := *best
		analysis.MostProfitableHolding = &mostProfitable
	}

	a.logger.Debug("Portfolio analyzed",
		zap.String("address", in.Address),
		zap.Int("holdings", len(holdings)),
		zap.Float64("total_value_usd", analysis.TotalPortfolioValueUSD),
	)

	return analysis, nil
}

// nativeBalance asks the chain for the live balance and falls back to the history-derived one
func (a *PortfolioAggregator) nativeBalance(ctx context.Context, in Input) float64 {
	balance, err := a.client.GetNativeBalance(ctx, in.Address)
	if err == nil {
		return balance
	}

	derived := deriveNativeBalance(in.Address, in.Transactions)
	a.logger.Warn("Native balance unavailable, deriving it from history",
		zap.String("address", in.Address),
		zap.Float64("derived", derived),
		zap.Error(err),
	)
	diagnostics.Warn(ctx, fmt.Sprintf("live %s balance unavailable; derived from transaction history", a.client.NativeSymbol()))
	return derived
}

// deriveNativeBalance nets native transfers and subtracts gas paid, clamped at zero
func deriveNativeBalance(address string, txs []entities.Transaction) float64 {
	net := decimal.Zero
	paidGas := make(map[string]struct{})

	for _, tx := range txs {
		if tx.IsSentBy(address) {
			if _, ok := paidGas[tx.Hash]; !ok {
				paidGas[tx.Hash] = struct{}{}
				net = net.Sub(tx.GasFeeWei())
			}
		}
		if !tx.IsNative() || tx.IsError {
			continue
		}
		value, err := decimal.NewFromString(tx.Value)
		if err != nil {
			continue
		}
		if tx.IsReceivedBy(address) {
			net = net.Add(value)
		}
		if tx.IsSentBy(address) {
			net = net.Sub(value)
		}
	}

	if net.IsNegative() {
		return 0
	}
	return net.Shift(-entities.NativeDecimals).InexactFloat64()
}
