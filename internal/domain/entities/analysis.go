package entities

// TokenPurchaseSummary aggregates the purchases of one token
type TokenPurchaseSummary struct {
	TokenAddress           string  `json:"tokenAddress"`
	TokenSymbol            string  `json:"tokenSymbol"`
	TokenName              string  `json:"tokenName,omitempty"`
	TotalAmount            float64 `json:"totalAmount"`
	TotalSpentUSD          float64 `json:"totalSpentUSD"`
	AveragePriceUSD        float64 `json:"averagePriceUSD"`
	HeldAmount             float64 `json:"heldAmount"`
	CurrentPriceUSD        float64 `json:"currentPriceUSD"`
	CurrentValueUSD        float64 `json:"currentValueUSD"`
	RealizedUSD            float64 `json:"realizedUSD"`
	PnL                    float64 `json:"pnl"`
	PnLPercentage          float64 `json:"pnlPercentage"`
	NumPurchases           int     `json:"numPurchases"`
	FirstPurchaseTimestamp int64   `json:"firstPurchaseTimestamp"`
	LastPurchaseTimestamp  int64   `json:"lastPurchaseTimestamp"`
}

// TokenSaleSummary aggregates the sales of one token
type TokenSaleSummary struct {
	TokenAddress       string  `json:"tokenAddress"`
	TokenSymbol        string  `json:"tokenSymbol"`
	TokenName          string  `json:"tokenName,omitempty"`
	TotalAmount        float64 `json:"totalAmount"`
	TotalReceivedUSD   float64 `json:"totalReceivedUSD"`
	AveragePriceUSD    float64 `json:"averagePriceUSD"`
	NumSales           int     `json:"numSales"`
	FirstSaleTimestamp int64   `json:"firstSaleTimestamp"`
	LastSaleTimestamp  int64   `json:"lastSaleTimestamp"`
}

// TokenActivitySummary rolls up the per-token trading figures
type TokenActivitySummary struct {
	TotalInvestedUSD         float64               `json:"totalInvestedUSD"`
	CurrentPortfolioValueUSD float64               `json:"currentPortfolioValueUSD"`
	TotalPnL                 float64               `json:"totalPnL"`
	TotalPnLPercentage       float64               `json:"totalPnLPercentage"`
	NumTokensBought          int                   `json:"numTokensBought"`
	NumTokensSold            int                   `json:"numTokensSold"`
	NumUniqueTokens          int                   `json:"numUniqueTokens"`
	MostProfitableToken      *TokenPurchaseSummary `json:"mostProfitableToken,omitempty"`
	BiggestLoserToken        *TokenPurchaseSummary `json:"biggestLoserToken,omitempty"`
}

// TokenActivityAnalysis is the trading P&L view over a timeframe
type TokenActivityAnalysis struct {
	Address        string                 `json:"address"`
	Chain          string                 `json:"chain"`
	TimeframeStart int64                  `json:"timeframeStart"`
	TimeframeEnd   int64                  `json:"timeframeEnd"`
	TokensBought   []TokenPurchaseSummary `json:"tokensBought"`
	TokensSold     []TokenSaleSummary     `json:"tokensSold"`
	Summary        TokenActivitySummary   `json:"summary"`
}

// InteractionType classifies the balance of value flow with a counterparty
type InteractionType string

const (
	InteractionMostlySent     InteractionType = "mostly_sent"
	InteractionMostlyReceived InteractionType = "mostly_received"
	InteractionBalanced       InteractionType = "balanced"
)

// CounterpartyInteraction is the accumulated relationship with one address
type CounterpartyInteraction struct {
	Address                   string          `json:"address"`
	Label                     string          `json:"label,omitempty"`
	NumTransactions           int             `json:"numTransactions"`
	NumSent                   int             `json:"numSent"`
	NumReceived               int             `json:"numReceived"`
	TotalValueSentUSD         float64         `json:"totalValueSentUSD"`
	TotalValueReceivedUSD     float64         `json:"totalValueReceivedUSD"`
	FirstInteractionTimestamp int64           `json:"firstInteractionTimestamp"`
	LastInteractionTimestamp  int64           `json:"lastInteractionTimestamp"`
	InteractionType           InteractionType `json:"interactionType"`
}

// CounterpartyAnalysis partitions every counterparty into exactly one of
// KnownExchanges, KnownDeFiProtocols and UnknownAddresses.
type CounterpartyAnalysis struct {
	Address                   string                    `json:"address"`
	Chain                     string                    `json:"chain"`
	TimeframeStart            int64                     `json:"timeframeStart"`
	TimeframeEnd              int64                     `json:"timeframeEnd"`
	TopCounterparties         []CounterpartyInteraction `json:"topCounterparties"`
	TotalUniqueCounterparties int                       `json:"totalUniqueCounterparties"`
	KnownExchanges            []CounterpartyInteraction `json:"knownExchanges"`
	KnownDeFiProtocols        []CounterpartyInteraction `json:"knownDeFiProtocols"`
	UnknownAddresses          []CounterpartyInteraction `json:"unknownAddresses"`
}

// Direction of a transfer relative to the analyzed address
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// WhaleTransaction is a transfer at or above the whale threshold
type WhaleTransaction struct {
	Hash             string    `json:"hash"`
	Timestamp        int64     `json:"timestamp"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	TxType           TxType    `json:"txType"`
	TokenSymbol      string    `json:"tokenSymbol"`
	ValueUSD         float64   `json:"valueUSD"`
	ValueNative      float64   `json:"valueNative"`
	Direction        Direction `json:"direction"`
	DestinationLabel string    `json:"destinationLabel,omitempty"`
}

// ExchangeFlows sums whale value moving to and from exchange-labelled addresses.
// NetExchangeFlow = SentToExchanges - ReceivedFromExchanges; positive is a net outflow to exchanges.
type ExchangeFlows struct {
	SentToExchanges       float64 `json:"sentToExchanges"`
	ReceivedFromExchanges float64 `json:"receivedFromExchanges"`
	NetExchangeFlow       float64 `json:"netExchangeFlow"`
}

// WhaleAnalysis lists the large transfers of a wallet
type WhaleAnalysis struct {
	Address                    string             `json:"address"`
	Chain                      string             `json:"chain"`
	TimeframeStart             int64              `json:"timeframeStart"`
	TimeframeEnd               int64              `json:"timeframeEnd"`
	WhaleThresholdUSD          float64            `json:"whaleThresholdUSD"`
	WhaleTransactions          []WhaleTransaction `json:"whaleTransactions"`
	TotalWhaleValueUSD         float64            `json:"totalWhaleValueUSD"`
	NumWhaleTransactions       int                `json:"numWhaleTransactions"`
	AverageWhaleTransactionUSD float64            `json:"averageWhaleTransactionUSD"`
	LargestTransaction         *WhaleTransaction  `json:"largestTransaction"`
	ExchangeFlows              ExchangeFlows      `json:"exchangeFlows"`
}

// ActivityFrequency buckets transactions per day
type ActivityFrequency string

const (
	ActivityVeryActive ActivityFrequency = "very_active"
	ActivityActive     ActivityFrequency = "active"
	ActivityModerate   ActivityFrequency = "moderate"
	ActivityLow        ActivityFrequency = "low"
)

// TransactionStats summarises counts, gas and account age.
// TotalTransactions = EthTransactions + Erc20Transactions = TransactionsSent + TransactionsReceived.
type TransactionStats struct {
	Address                   string            `json:"address"`
	Chain                     string            `json:"chain"`
	TimeframeStart            int64             `json:"timeframeStart"`
	TimeframeEnd              int64             `json:"timeframeEnd"`
	TotalTransactions         int               `json:"totalTransactions"`
	EthTransactions           int               `json:"ethTransactions"`
	Erc20Transactions         int               `json:"erc20Transactions"`
	TransactionsSent          int               `json:"transactionsSent"`
	TransactionsReceived      int               `json:"transactionsReceived"`
	TotalGasSpentNative       float64           `json:"totalGasSpentNative"`
	TotalGasSpentUSD          float64           `json:"totalGasSpentUSD"`
	AverageGasPerTxUSD        float64           `json:"averageGasPerTxUSD"`
	FirstTransactionTimestamp int64             `json:"firstTransactionTimestamp"`
	LastTransactionTimestamp  int64             `json:"lastTransactionTimestamp"`
	AccountAgeBlocks          int64             `json:"accountAgeBlocks"`
	AccountAgeDays            int               `json:"accountAgeDays"`
	ActivityFrequency         ActivityFrequency `json:"activityFrequency"`
}
