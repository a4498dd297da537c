package aggregators

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
	"github.com/bimakw/chain-analytics/internal/domain/labels"
)

const (
	// DefaultInteractionRatio is how many times one direction must exceed the other
	// before a relationship stops being balanced
	DefaultInteractionRatio = 2.0

	// DefaultTopCounterparties bounds topCounterparties
	DefaultTopCounterparties = 10
)

// CounterpartyConfig tunes the counterparty view
type CounterpartyConfig struct {
	TopN  int
	Ratio float64
}

// CounterpartyAggregator groups transfers by the address on the other side
type CounterpartyAggregator struct {
	valuer valuer
	labels *labels.Registry
	config CounterpartyConfig
	logger *zap.Logger
}

// NewCounterpartyAggregator creates a new counterparty aggregator
func NewCounterpartyAggregator(client PricingClient, registry *labels.Registry, cfg CounterpartyConfig, logger *zap.Logger) *CounterpartyAggregator {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopCounterparties
	}
	if cfg.Ratio <= 1 {
		cfg.Ratio = DefaultInteractionRatio
	}
	return &CounterpartyAggregator{
		valuer: valuer{client: client},
		labels: registry,
		config: cfg,
		logger: logger,
	}
}

// Analyze builds one interaction record per counterparty and partitions them by label category
func (a *CounterpartyAggregator) Analyze(ctx context.Context, in Input) (*entities.CounterpartyAnalysis, error) {
	interactions := make(map[string]*entities.CounterpartyInteraction)
	order := make([]string, 0)

	for _, tx := range in.Transactions {
		counterparty := tx.Counterparty(in.Address)
		if counterparty == "" {
			continue
		}

		c, ok := interactions[counterparty]
		if !ok {
			c = &entities.CounterpartyInteraction{
				Address:                   counterparty,
				FirstInteractionTimestamp: tx.Timestamp,
			}
			if label, found := a.labels.Lookup(counterparty); found {
				c.Label = label.Name
			}
			interactions[counterparty] = c
			order = append(order, counterparty)
		}

		value := a.valuer.historical(ctx, tx)
		c.NumTransactions++
		if tx.IsSentBy(in.Address) {
			c.NumSent++
			c.TotalValueSentUSD += value.USD
		} else {
			c.NumReceived++
			c.TotalValueReceivedUSD += value.USD
		}
		if tx.Timestamp < c.FirstInteractionTimestamp {
			c.FirstInteractionTimestamp = tx.Timestamp
		}
		if tx.Timestamp > c.LastInteractionTimestamp {
			c.LastInteractionTimestamp = tx.Timestamp
		}
	}

	all := make([]entities.CounterpartyInteraction, 0, len(order))
	for _, addr := range order {
		c := interactions[addr]
		c.InteractionType = a.classify(c)
		all = append(all, *c)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].NumTransactions != all[j].NumTransactions {
			return all[i].NumTransactions > all[j].NumTransactions
		}
		vi := all[i].TotalValueSentUSD + all[i].TotalValueReceivedUSD
		vj := all[j].TotalValueSentUSD + all[j].TotalValueReceivedUSD
		if vi != vj {
			return vi > vj
		}
		return all[i].Address < all[j].Address
	})

	analysis := &entities.CounterpartyAnalysis{
		Address:                   in.Address,
		Chain:                     a.valuer.client.ChainName(),
		TimeframeStart:            in.Timeframe.Start,
		TimeframeEnd:              in.Timeframe.End,
		TopCounterparties:         make([]entities.CounterpartyInteraction, 0, a.config.TopN),
		TotalUniqueCounterparties: len(all),
		KnownExchanges:            make([]entities.CounterpartyInteraction, 0),
		KnownDeFiProtocols:        make([]entities.CounterpartyInteraction, 0),
		UnknownAddresses:          make([]entities.CounterpartyInteraction, 0),
	}

	for i, c := range all {
		if i < a.config.TopN {
			analysis.TopCounterparties = append(analysis.TopCounterparties, c)
		}
		label, _ := a.labels.Lookup(c.Address)
		switch label.Category {
		case labels.CategoryExchange:
			analysis.KnownExchanges = append(analysis.KnownExchanges, c)
		case labels.CategoryDeFi:
			analysis.KnownDeFiProtocols = append(analysis.KnownDeFiProtocols, c)
		default:
			analysis.UnknownAddresses = append(analysis.UnknownAddresses, c)
		}
	}

	a.logger.Debug("Counterparties analyzed",
		zap.String("address", in.Address),
		zap.Int("unique", analysis.TotalUniqueCounterparties),
		zap.Int("exchanges", len(analysis.KnownExchanges)),
		zap.Int("defi", len(analysis.KnownDeFiProtocols)),
	)

	return analysis, nil
}

// classify compares USD flows, or transfer counts when nothing could be priced
func (a *CounterpartyAggregator) classify(c *entities.CounterpartyInteraction) entities.InteractionType {
	sent, received := c.TotalValueSentUSD, c.TotalValueReceivedUSD
	if sent == 0 && received == 0 {
		sent, received = float64(c.NumSent), float64(c.NumReceived)
	}
	switch {
	case sent > a.config.Ratio*received:
		return entities.InteractionMostlySent
	case received > a.config.Ratio*sent:
		return entities.InteractionMostlyReceived
	default:
		return entities.InteractionBalanced
	}
}
