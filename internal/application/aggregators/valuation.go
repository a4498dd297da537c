package aggregators

import (
	"context"
	"math"
	"strings"

	"github.com/bimakw/chain-analytics/internal/domain/clients"
	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// PricingClient is the part of a chain client the aggregators read from
type PricingClient interface {
	clients.ChainInfo
	clients.MetadataSource
	clients.PriceSource
}

// Input is the transaction slice an aggregator analyzes, already sorted ascending by timestamp
type Input struct {
	Address      string
	Transactions []entities.Transaction
	Timeframe    entities.Timeframe
}

// NewInput lower-cases the address
func NewInput(address string, txs []entities.Transaction, tf entities.Timeframe) Input {
	return Input{Address: strings.ToLower(address), Transactions: txs, Timeframe: tf}
}

// transferValue is a transfer's amount and its worth at transfer time
type transferValue struct {
	Amount float64
	USD    float64
	Native float64
	Symbol string
}

// valuer prices transfers through the client, which owns all caching
type valuer struct {
	client PricingClient
}

// tokenInfo resolves a token's identity, preferring the ledger's own fields over the fallback
func (v valuer) tokenInfo(ctx context.Context, tx entities.Transaction) entities.TokenInfo {
	info := v.client.GetTokenMetadata(ctx, tx.TokenAddress)
	if info.IsUnknown() && tx.TokenSymbol != "" {
		return entities.TokenInfo{
			Address:  tx.TokenAddress,
			Symbol:   strings.ToUpper(tx.TokenSymbol),
			Decimals: tx.TokenDecimals,
			Name:     tx.TokenName,
		}
	}
	return info
}

// historical values a transfer at its own timestamp. Failed transactions moved nothing.
func (v valuer) historical(ctx context.Context, tx entities.Transaction) transferValue {
	if tx.IsNative() {
		out := transferValue{Symbol: v.client.NativeSymbol()}
		if tx.IsError {
			return out
		}
		out.Amount = tx.Amount(entities.NativeDecimals).InexactFloat64()
		out.Native = out.Amount
		if out.Amount > 0 {
			out.USD = out.Amount * v.client.GetNativeTokenPrice(ctx, tx.Timestamp)
		}
		return out
	}

	info := v.tokenInfo(ctx, tx)
	out := transferValue{Symbol: info.Symbol}
	if tx.IsError {
		return out
	}
	out.Amount = tx.Amount(info.Decimals).InexactFloat64()
	if out.Amount > 0 {
		price := v.client.GetHistoricalPrice(ctx, tx.TokenAddress, tx.Timestamp)
		out.USD = out.Amount * price.PriceUSD
		out.Native = out.Amount * price.PriceNative
	}
	return out
}

// purchase is an incoming token leg paid for by an outflow in the same transaction
type purchase struct {
	Tx      entities.Transaction
	Info    entities.TokenInfo
	Amount  float64
	CostUSD float64
}

// pairPurchases finds every incoming token leg whose transaction also carries an outflow from
// address. The USD value of the transaction's outflows is split evenly across its incoming legs.
// Purchases come back in transaction order.
func (v valuer) pairPurchases(ctx context.Context, address string, txs []entities.Transaction) []purchase {
	type group struct {
		outflows int
		outUSD   float64
		incoming []int
	}

	groups := make(map[string]*group)
	order := make([]string, 0)

	for i, tx := range txs {
		g, ok := groups[tx.Hash]
		if !ok {
			g = &group{}
			groups[tx.Hash] = g
			order = append(order, tx.Hash)
		}

		sent, received := tx.IsSentBy(address), tx.IsReceivedBy(address)
		switch {
		case sent && !received:
			value := v.historical(ctx, tx)
			if value.Amount > 0 {
				g.outflows++
				g.outUSD += value.USD
			}
		case received && !sent && !tx.IsNative() && !tx.IsError:
			g.incoming = append(g.incoming, i)
		}
	}

	purchases := make([]purchase, 0)
	for _, hash := range order {
		g := groups[hash]
		if g.outflows == 0 || len(g.incoming) == 0 {
			continue
		}
		share := g.outUSD / float64(len(g.incoming))
		for _, i := range g.incoming {
			tx := txs[i]
			info := v.tokenInfo(ctx, tx)
			purchases = append(purchases, purchase{
				Tx:      tx,
				Info:    info,
				Amount:  tx.Amount(info.Decimals).InexactFloat64(),
				CostUSD: share,
			})
		}
	}
	return purchases
}

// percentage returns part/whole*100, or 0 when whole is not positive
func percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// betterPnL orders by pnl percentage, then by the larger absolute pnl, then by address
func betterPnL(aPct, aPnL float64, aAddr string, bPct, bPnL float64, bAddr string) bool {
	if aPct != bPct {
		return aPct > bPct
	}
	if math.Abs(aPnL) != math.Abs(bPnL) {
		return math.Abs(aPnL) > math.Abs(bPnL)
	}
	return aAddr < bAddr
}
