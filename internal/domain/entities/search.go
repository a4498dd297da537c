package entities

// QueryType selects the analysis a search runs
type QueryType string

const (
	QueryTokenActivity    QueryType = "token_activity"
	QueryPortfolio        QueryType = "portfolio"
	QueryCounterparty     QueryType = "counterparty"
	QueryWhale            QueryType = "whale"
	QueryTransactionStats QueryType = "transaction_stats"
	QueryComprehensive    QueryType = "comprehensive"
)

// SingleQueryTypes are the five independent views, in the order comprehensive mode reports them
var SingleQueryTypes = []QueryType{
	QueryTokenActivity,
	QueryPortfolio,
	QueryCounterparty,
	QueryWhale,
	QueryTransactionStats,
}

// Valid reports whether q is a known query type
func (q QueryType) Valid() bool {
	if q == QueryComprehensive {
		return true
	}
	for _, s := range SingleQueryTypes {
		if q == s {
			return true
		}
	}
	return false
}

// SearchParams is the engine call contract
type SearchParams struct {
	Address           string    `json:"address"`
	ChainID           int64     `json:"chainId,omitempty"`
	QueryType         QueryType `json:"queryType"`
	TimeframeDays     int       `json:"timeframeDays,omitempty"`
	WhaleThresholdUSD *float64  `json:"whaleThresholdUSD,omitempty"`
	// Self marks a search of the caller's own wallet, which uses the lower default whale threshold
	Self bool `json:"self,omitempty"`
}

// SearchResultData holds the view selected by the query type, or all five for comprehensive
// searches. Type names which views to expect. Errors maps a view name to the reason it is
// missing from a comprehensive result.
type SearchResultData struct {
	Type             QueryType              `json:"type"`
	TokenActivity    *TokenActivityAnalysis `json:"tokenActivity,omitempty"`
	Portfolio        *PortfolioAnalysis     `json:"portfolio,omitempty"`
	Counterparty     *CounterpartyAnalysis  `json:"counterparty,omitempty"`
	Whale            *WhaleAnalysis         `json:"whale,omitempty"`
	TransactionStats *TransactionStats      `json:"transactionStats,omitempty"`
	Errors           map[string]string      `json:"errors,omitempty"`
}

// SearchMetadata carries the diagnostics of one search
type SearchMetadata struct {
	SearchID      string   `json:"searchId"`
	DataSource    string   `json:"dataSource"`
	APICallsMade  int64    `json:"apiCallsMade"`
	CacheHitRate  float64  `json:"cacheHitRate"`
	Warnings      []string `json:"warnings"`
	BlockTime     float64  `json:"blockTime"`
	NativeToken   string   `json:"nativeToken"`
	TimeframeDays int      `json:"timeframeDays"`
}

// SearchResult is the envelope returned for every search
type SearchResult struct {
	QueryType            QueryType        `json:"queryType"`
	Address              string           `json:"address"`
	Chain                string           `json:"chain"`
	Timestamp            int64            `json:"timestamp"`
	ProcessingTimeMs     int64            `json:"processingTimeMs"`
	TransactionsAnalyzed int              `json:"transactionsAnalyzed"`
	Data                 SearchResultData `json:"data"`
	Metadata             SearchMetadata   `json:"metadata"`
}
