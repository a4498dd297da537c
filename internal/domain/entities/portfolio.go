package entities

// PortfolioHolding is one token currently held, valued at current prices
type PortfolioHolding struct {
	TokenAddress       string  `json:"tokenAddress"`
	TokenSymbol        string  `json:"tokenSymbol"`
	TokenName          string  `json:"tokenName,omitempty"`
	Balance            float64 `json:"balance"`
	CurrentPriceUSD    float64 `json:"currentPriceUSD"`
	CurrentValueUSD    float64 `json:"currentValueUSD"`
	AverageBuyPriceUSD float64 `json:"averageBuyPriceUSD"`
	TotalInvestedUSD   float64 `json:"totalInvestedUSD"`
	PnL                float64 `json:"pnl"`
	PnLPercentage      float64 `json:"pnlPercentage"`
	PercentOfPortfolio float64 `json:"percentOfPortfolio"`
}

// PortfolioAnalysis is the current-holdings view of a wallet.
// TotalPortfolioValueUSD = NativeValueUSD + sum(TokenHoldings[i].CurrentValueUSD).
type PortfolioAnalysis struct {
	Address                  string             `json:"address"`
	Chain                    string             `json:"chain"`
	NativeBalance            float64            `json:"nativeBalance"`
	NativePriceUSD           float64            `json:"nativePriceUSD"`
	NativeValueUSD           float64            `json:"nativeValueUSD"`
	NativePercentOfPortfolio float64            `json:"nativePercentOfPortfolio"`
	TokenHoldings            []PortfolioHolding `json:"tokenHoldings"`
	TotalPortfolioValueUSD   float64            `json:"totalPortfolioValueUSD"`
	TotalInvestedUSD         float64            `json:"totalInvestedUSD"`
	TotalPnL                 float64            `json:"totalPnL"`
	TotalPnLPercentage       float64            `json:"totalPnLPercentage"`
	NumTokens                int                `json:"numTokens"`
	TopHoldingByValue        *PortfolioHolding  `json:"topHoldingByValue,omitempty"`
	MostProfitableHolding    *PortfolioHolding  `json:"mostProfitableHolding,omitempty"`
}
