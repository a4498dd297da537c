package aggregators

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
)

// WhaleAggregator picks out transfers worth at least the threshold at transfer time
type WhaleAggregator struct {
	valuer    valuer
	labels    *labels.Registry
	threshold float64
	logger    *zap.Logger
}

// NewWhaleAggregator creates a whale aggregator for one threshold in USD
func NewWhaleAggregator(client PricingClient, registry *labels.Registry, thresholdUSD float64, logger *zap.Logger) *WhaleAggregator {
	return &WhaleAggregator{
		valuer:    valuer{client: client},
		labels:    registry,
		threshold: thresholdUSD,
		logger:    logger,
	}
}

// Threshold returns the USD threshold the aggregator applies
func (a *WhaleAggregator) Threshold() float64 {
	return a.threshold
}

// Analyze lists whale transfers and sums the whale value moving to and from exchanges.
// A positive net exchange flow means more whale value went to exchanges than came back.
func (a *WhaleAggregator) Analyze(ctx context.Context, in Input) (*entities.WhaleAnalysis, error) {
	whales := make([]entities.WhaleTransaction, 0)
	var flows entities.ExchangeFlows

	for _, tx := range in.Transactions {
		if tx.IsError {
			continue
		}
		sent, received := tx.IsSentBy(in.Address), tx.IsReceivedBy(in.Address)
		if !sent && !received {
			continue
		}

		value := a.valuer.historical(ctx, tx)
		if value.USD <= 0 || value.USD < a.threshold {
			continue
		}

		whale := entities.WhaleTransaction{
			Hash:        tx.Hash,
			Timestamp:   tx.Timestamp,
			From:        tx.From,
			To:          tx.To,
			TxType:      tx.TxType,
			TokenSymbol: value.Symbol,
			ValueUSD:    value.USD,
			ValueNative: value.Native,
			Direction:   entities.DirectionReceived,
		}
		if sent {
			whale.Direction = entities.DirectionSent
		}

		if counterparty := tx.Counterparty(in.Address); counterparty != "" {
			if label, ok := a.labels.Lookup(counterparty); ok && label.Category == labels.CategoryExchange {
				whale.DestinationLabel = label.Name
				if sent {
					flows.SentToExchanges += value.USD
				} else {
					flows.ReceivedFromExchanges += value.USD
				}
			}
		}

		whales = append(whales, whale)
	}
	flows.NetExchangeFlow = flows.SentToExchanges - flows.ReceivedFromExchanges

	sort.SliceStable(whales, func(i, j int) bool {
		if whales[i].ValueUSD != whales[j].ValueUSD {
			return whales[i].ValueUSD > whales[j].ValueUSD
		}
		if whales[i].Timestamp != whales[j].Timestamp {
			return whales[i].Timestamp > whales[j].Timestamp
		}
		return whales[i].Hash < whales[j].Hash
	})

	analysis := &entities.WhaleAnalysis{
		Address:              in.Address,
		Chain:                a.valuer.client.ChainName(),
		TimeframeStart:       in.Timeframe.Start,
		TimeframeEnd:         in.Timeframe.End,
		WhaleThresholdUSD:    a.threshold,
		WhaleTransactions:    whales,
		NumWhaleTransactions: len(whales),
		ExchangeFlows:        flows,
	}
	for _, w := range whales {
		analysis.TotalWhaleValueUSD += w.ValueUSD
	}
	if len(whales) > 0 {
		analysis.AverageWhaleTransactionUSD = analysis.TotalWhaleValueUSD / float64(len(whales))
		largest := whales[0]
		analysis.LargestTransaction = &largest
	}

	a.logger.Debug("Whale transactions analyzed",
		zap.String("address", in.Address),
		zap.Float64("threshold_usd", a.threshold),
		zap.Int("whales", len(whales)),
	)

	return analysis, nil
}
