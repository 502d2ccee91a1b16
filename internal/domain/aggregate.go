package domain

// PolicyAggregate represents per-policy aggregate metrics over a batch of
// simulated trades, all sharing one cost model.
type PolicyAggregate struct {
	PolicyID string
	CostID   string

	// Counts
	TotalTrades int // trades with an entry
	TotalCalls  int // unique call_id count among entered trades
	NoEntry     int // pairs that resolved to no_entry (excluded from stats)
	Wins        int
	Losses      int
	WinRate     float64 // wins / total_trades
	CallWinRate float64 // calls with at least one positive trade / total calls
	StopOutRate float64 // stop-outs / total_trades

	// Net return distribution (bps)
	ReturnMean   float64
	ReturnMedian float64
	ReturnP10    float64
	ReturnP25    float64
	ReturnP75    float64
	ReturnP90    float64
	ReturnMin    float64
	ReturnMax    float64
	ReturnStddev float64

	// Risk
	MaxDrawdownBps       float64 // worst peak-to-trough on cumulative net return
	MaxConsecutiveLosses int
	MeanTailCapture      *float64 // mean over trades where tail capture is defined
}
