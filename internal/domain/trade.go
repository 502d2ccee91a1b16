package domain

// PartialExit records one ladder fill: Fraction of the original position
// sold at the level's target price.
type PartialExit struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
	Fraction    float64 `json:"fraction"` // of the original position
	Level       int     `json:"level"`    // index into the configured ladder levels
}

// TradeResult is the immutable outcome of one (call, policy) simulation.
// It is built once at exit time and never mutated afterwards.
type TradeResult struct {
	TradeID  string // deterministic hash
	CallID   string // source alert
	PolicyID string // policy identifier (includes parameters)
	CostID   string // cost model applied

	// Entry
	EntryTimestampMs int64   // entry bar period start (ms); 0 on no-entry
	EntryPrice       float64 // entry bar close; 0 on no-entry

	// Exit
	ExitTimestampMs int64   // exit bar period start (ms)
	ExitPrice       float64 // fill price of the final exit
	ExitReason      string  // reason code
	ExitSubPolicy   string  // sub-policy ID that fired, Combo only

	// Outcome
	GrossReturnBps    float64 // position-weighted, before costs
	RealizedReturnBps float64 // after taker fees and slippage
	StopOut           bool    // exit via stop_loss or hard_stop

	// Risk
	MaxAdverseExcursionBps float64  // worst drawdown vs entry, always <= 0
	PeakReturnBps          float64  // best unrealized gain vs entry
	TailCapture            *float64 // realized / peak, capped at 1; nil when peak <= 0

	// Metadata
	TimeExposedMs int64         // exit timestamp - entry timestamp
	PartialExits  []PartialExit // ladder fills in fire order, nil otherwise
}

// Exit reason codes.
const (
	ExitReasonStopLoss       = "stop_loss"
	ExitReasonTakeProfit     = "take_profit"
	ExitReasonTimeStop       = "time_stop"
	ExitReasonHardStop       = "hard_stop"
	ExitReasonTrailingStop   = "trailing_stop"
	ExitReasonEndOfData      = "end_of_data"
	ExitReasonLadderComplete = "ladder_complete"
	ExitReasonNoEntry        = "no_entry"
)

// StopOutReason reports whether a reason code counts as a stop-out.
func StopOutReason(reason string) bool {
	return reason == ExitReasonStopLoss || reason == ExitReasonHardStop
}
