package domain

// CostModel prices one round trip. Taker fees are charged on entry and on
// exit; slippage is a single aggregate haircut. All costs are applied once,
// at the final exit.
type CostModel struct {
	CostID      string  `json:"cost_id"`
	TakerFeeBps float64 `json:"taker_fee_bps"`
	SlippageBps float64 `json:"slippage_bps"`
}

// Cost model presets.
var (
	CostModelZero     = CostModel{CostID: "zero"}
	CostModelStandard = CostModel{CostID: "standard", TakerFeeBps: 7.5, SlippageBps: 10}
	CostModelStressed = CostModel{CostID: "stressed", TakerFeeBps: 25, SlippageBps: 50}
)

// CostModelByID resolves a preset by its identifier.
func CostModelByID(id string) (CostModel, bool) {
	switch id {
	case CostModelZero.CostID:
		return CostModelZero, true
	case CostModelStandard.CostID:
		return CostModelStandard, true
	case CostModelStressed.CostID:
		return CostModelStressed, true
	default:
		return CostModel{}, false
	}
}
