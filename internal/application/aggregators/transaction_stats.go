package aggregators

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/chain-analytics/internal/domain/entities"
)

// Activity buckets in transactions per day
const (
	VeryActiveTxPerDay = 10.0
	ActiveTxPerDay     = 1.0
	ModerateTxPerDay   = 0.1
)

const secondsPerDay = 86400

// TransactionStatsAggregator counts transfers, gas and account age
type TransactionStatsAggregator struct {
	valuer valuer
	logger *zap.Logger
}

// NewTransactionStatsAggregator creates a new transaction stats aggregator
func NewTransactionStatsAggregator(client PricingClient, logger *zap.Logger) *TransactionStatsAggregator {
	return &TransactionStatsAggregator{
		valuer: valuer{client: client},
		logger: logger,
	}
}

// Analyze splits the transfers by type and direction. Gas is charged once per transaction
// hash the address sent, failed ones included, at the native price of that transaction's month.
func (a *TransactionStatsAggregator) Analyze(ctx context.Context, in Input) (*entities.TransactionStats, error) {
	stats := &entities.TransactionStats{
		Address:           in.Address,
		Chain:             a.valuer.client.ChainName(),
		TimeframeStart:    in.Timeframe.Start,
		TimeframeEnd:      in.Timeframe.End,
		TotalTransactions: len(in.Transactions),
		ActivityFrequency: entities.ActivityLow,
	}
	if len(in.Transactions) == 0 {
		return stats, nil
	}

	first, last := in.Transactions[0], in.Transactions[0]
	gasNative := decimal.Zero
	paid := make(map[string]struct{})

	for _, tx := range in.Transactions {
		if tx.IsNative() {
			stats.EthTransactions++
		} else {
			stats.Erc20Transactions++
		}

		if tx.Timestamp < first.Timestamp {
			first = tx
		}
		if tx.Timestamp > last.Timestamp {
			last = tx
		}

		if !tx.IsSentBy(in.Address) {
			stats.TransactionsReceived++
			continue
		}
		stats.TransactionsSent++

		if _, ok := paid[tx.Hash]; ok {
			continue
		}
		paid[tx.Hash] = struct{}{}

		fee := tx.GasFeeWei().Shift(-entities.NativeDecimals)
		if fee.IsZero() {
			continue
		}
		gasNative = gasNative.Add(fee)
		stats.TotalGasSpentUSD += fee.InexactFloat64() * a.valuer.client.GetNativeTokenPrice(ctx, tx.Timestamp)
	}

	stats.TotalGasSpentNative = gasNative.InexactFloat64()
	if len(paid) > 0 {
		stats.AverageGasPerTxUSD = stats.TotalGasSpentUSD / float64(len(paid))
	}

	stats.FirstTransactionTimestamp = first.Timestamp
	stats.LastTransactionTimestamp = last.Timestamp
	stats.AccountAgeBlocks = last.BlockNumber - first.BlockNumber
	if stats.AccountAgeBlocks < 0 {
		stats.AccountAgeBlocks = 0
	}
	stats.AccountAgeDays = int((last.Timestamp - first.Timestamp) / secondsPerDay)
	stats.ActivityFrequency = activityFrequency(stats.TotalTransactions, stats.AccountAgeDays)

	a.logger.Debug("Transaction stats analyzed",
		zap.String("address", in.Address),
		zap.Int("total", stats.TotalTransactions),
		zap.Int("sent", stats.TransactionsSent),
		zap.Int("account_age_days", stats.AccountAgeDays),
	)

	return stats, nil
}

// activityFrequency buckets transactions per day, counting a history shorter than a day as one day
func activityFrequency(total, ageDays int) entities.ActivityFrequency {
	if total == 0 {
		return entities.ActivityLow
	}
	days := ageDays
	if days < 1 {
		days = 1
	}
	perDay := float64(total) / float64(days)
	switch {
	case perDay >= VeryActiveTxPerDay:
		return entities.ActivityVeryActive
	case perDay >= ActiveTxPerDay:
		return entities.ActivityActive
	case perDay >= ModerateTxPerDay:
		return entities.ActivityModerate
	default:
		return entities.ActivityLow
	}
}
