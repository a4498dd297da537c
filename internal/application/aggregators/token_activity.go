package aggregators

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// TokenActivityAggregator reconstructs token purchases and sales and their P&L
type TokenActivityAggregator struct {
	valuer valuer
	logger *zap.Logger
}

// NewTokenActivityAggregator creates a new token activity aggregator
func NewTokenActivityAggregator(client PricingClient, logger *zap.Logger) *TokenActivityAggregator {
	return &TokenActivityAggregator{
		valuer: valuer{client: client},
		logger: logger,
	}
}

type saleTotals struct {
	info      entities.TokenInfo
	amount    float64
	proceeds  float64
	count     int
	firstSeen int64
	lastSeen  int64
}

// Analyze classifies token transfers: an incoming leg paid for by an outflow in the same
// transaction is a purchase, every outgoing token transfer is a sale.
func (a *TokenActivityAggregator) Analyze(ctx context.Context, in Input) (*entities.TokenActivityAnalysis, error) {
	bought := make(map[string]*entities.TokenPurchaseSummary)
	boughtOrder := make([]string, 0)

	for _, p := range a.valuer.pairPurchases(ctx, in.Address, in.Transactions) {
		token := p.Tx.TokenAddress
		s, ok := bought[token]
		if !ok {
			s = &entities.TokenPurchaseSummary{
				TokenAddress:           token,
				TokenSymbol:            p.Info.Symbol,
				TokenName:              p.Info.Name,
				FirstPurchaseTimestamp: p.Tx.Timestamp,
			}
			bought[token] = s
			boughtOrder = append(boughtOrder, token)
		}
		s.TotalAmount += p.Amount
		s.TotalSpentUSD += p.CostUSD
		s.NumPurchases++
		s.LastPurchaseTimestamp = p.Tx.Timestamp
	}

	sold := make(map[string]*saleTotals)
	soldOrder := make([]string, 0)

	for _, tx := range in.Transactions {
		if tx.IsNative() || !tx.IsSentBy(in.Address) || tx.IsReceivedBy(in.Address) {
			continue
		}
		value := a.valuer.historical(ctx, tx)
		if value.Amount <= 0 {
			continue
		}
		s, ok := sold[tx.TokenAddress]
		if !ok {
			s = &saleTotals{info: a.valuer.tokenInfo(ctx, tx), firstSeen: tx.Timestamp}
			sold[tx.TokenAddress] = s
			soldOrder = append(soldOrder, tx.TokenAddress)
		}
		s.amount += value.Amount
		s.proceeds += value.USD
		s.count++
		s.lastSeen = tx.Timestamp
	}

	held := make([]string, 0, len(boughtOrder))
	for _, token := range boughtOrder {
		s := bought[token]
		s.HeldAmount = s.TotalAmount
		if sale, ok := sold[token]; ok {
			s.HeldAmount = math.Max(0, s.TotalAmount-sale.amount)
		}
		if s.HeldAmount > 0 {
			held = append(held, token)
		}
	}

	var current map[string]entities.TokenPrice
	if len(held) > 0 {
		current = a.valuer.client.BatchGetTokenPrices(ctx, held)
	}

	tokensBought := make([]entities.TokenPurchaseSummary, 0, len(boughtOrder))
	for _, token := range boughtOrder {
		s := bought[token]
		if s.TotalAmount > 0 {
			s.AveragePriceUSD = s.TotalSpentUSD / s.TotalAmount
		}
		if s.HeldAmount > 0 {
			s.CurrentPriceUSD = current[token].PriceUSD
			s.CurrentValueUSD = s.HeldAmount * s.CurrentPriceUSD
		}
		// only the part of the sales covered by purchases in this window is realized against them
		if sale, ok := sold[token]; ok && sale.amount > 0 {
			s.RealizedUSD = sale.proceeds * math.Min(1, s.TotalAmount/sale.amount)
		}
		s.PnL = s.CurrentValueUSD + s.RealizedUSD - s.TotalSpentUSD
		s.PnLPercentage = percentage(s.PnL, s.TotalSpentUSD)
		tokensBought = append(tokensBought, *s)
	}

	tokensSold := make([]entities.TokenSaleSummary, 0, len(soldOrder))
	for _, token := range soldOrder {
		s := sold[token]
		summary := entities.TokenSaleSummary{
			TokenAddress:       token,
			TokenSymbol:        s.info.Symbol,
			TokenName:          s.info.Name,
			TotalAmount:        s.amount,
			TotalReceivedUSD:   s.proceeds,
			NumSales:           s.count,
			FirstSaleTimestamp: s.firstSeen,
			LastSaleTimestamp:  s.lastSeen,
		}
		if s.amount > 0 {
			summary.AveragePriceUSD = s.proceeds / s.amount
		}
		tokensSold = append(tokensSold, summary)
	}

	sort.SliceStable(tokensBought, func(i, j int) bool {
		if tokensBought[i].TotalSpentUSD != tokensBought[j].TotalSpentUSD {
			return tokensBought[i].TotalSpentUSD > tokensBought[j].TotalSpentUSD
		}
		return tokensBought[i].TokenAddress < tokensBought[j].TokenAddress
	})
	sort.SliceStable(tokensSold, func(i, j int) bool {
		if tokensSold[i].TotalReceivedUSD != tokensSold[j].TotalReceivedUSD {
			return tokensSold[i].TotalReceivedUSD > tokensSold[j].TotalReceivedUSD
		}
		return tokensSold[i].TokenAddress < tokensSold[j].TokenAddress
	})

	analysis := &entities.TokenActivityAnalysis{
		Address:        in.Address,
		Chain:          a.valuer.client.ChainName(),
		TimeframeStart: in.Timeframe.Start,
		TimeframeEnd:   in.Timeframe.End,
		TokensBought:   tokensBought,
		TokensSold:     tokensSold,
		Summary:        summarizeActivity(tokensBought, tokensSold),
	}

	a.logger.Debug("Token activity analyzed",
		zap.String("address", in.Address),
		zap.Int("tokens_bought", len(tokensBought)),
		zap.Int("tokens_sold", len(tokensSold)),
	)

	return analysis, nil
}

func summarizeActivity(bought []entities.TokenPurchaseSummary, sold []entities.TokenSaleSummary) entities.TokenActivitySummary {
	summary := entities.TokenActivitySummary{
		NumTokensBought: len(bought),
		NumTokensSold:   len(sold),
	}

	unique := make(map[string]struct{}, len(bought)+len(sold))
	for _, s := range sold {
		unique[s.TokenAddress] = struct{}{}
	}

	var best, worst *entities.TokenPurchaseSummary
	for i := range bought {
		b := &bought[i]
		unique[b.TokenAddress] = struct{}{}
		summary.TotalInvestedUSD += b.TotalSpentUSD
		summary.CurrentPortfolioValueUSD += b.CurrentValueUSD
		summary.TotalPnL += b.PnL

		if best == nil || betterPnL(b.PnLPercentage, b.PnL, b.TokenAddress, best.PnLPercentage, best.PnL, best.TokenAddress) {
			best = b
		}
		if worst == nil || worsePnL(b, worst) {
			worst = b
		}
	}

	summary.NumUniqueTokens = len(unique)
	summary.TotalPnLPercentage = percentage(summary.TotalPnL, summary.TotalInvestedUSD)
	if best != nil {
		top := *best
		summary.MostProfitableToken = &top
	}
	if worst != nil {
		bottom := *worst
		summary.BiggestLoserToken = &bottom
	}
	return summary
}

// worsePnL orders by the lower pnl percentage, then by the larger absolute pnl, then by address
func worsePnL(a, b *entities.TokenPurchaseSummary) bool {
	if a.PnLPercentage != b.PnLPercentage {
		return a.PnLPercentage < b.PnLPercentage
	}
	if math.Abs(a.PnL) != math.Abs(b.PnL) {
		return math.Abs(a.PnL) > math.Abs(b.PnL)
	}
	return a.TokenAddress < b.TokenAddress
}
