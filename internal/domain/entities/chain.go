package entities

// ChainHead is the latest block as the ledger reports it. Estimated is set when the
// reported block was implausible and Block was extrapolated from the reference block.
type ChainHead struct {
	Block     int64 `json:"block"`
	Reported  int64 `json:"reported"`
	Estimated bool  `json:"estimated"`
}
