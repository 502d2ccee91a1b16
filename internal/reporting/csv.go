package reporting

import (
	"fmt"
	"strings"

	"exit-policy-lab/internal/domain"
)

// RenderCSV renders policy aggregates as CSV string.
func RenderCSV(aggregates []*domain.PolicyAggregate) string {
	var sb strings.Builder

	// Header
	sb.WriteString("policy_id,cost_id,total_trades,total_calls,no_entry,win_rate,call_win_rate,stop_out_rate,")
	sb.WriteString("return_mean_bps,return_median_bps,return_p10_bps,return_p90_bps,")
	sb.WriteString("max_drawdown_bps,max_consecutive_losses,mean_tail_capture\n")

	// Rows
	for _, a := range aggregates {
		tailCapture := ""
		if a.MeanTailCapture != nil {
			tailCapture = fmt.Sprintf("%.6f", *a.MeanTailCapture)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%.6f,%.6f,%.6f,%.4f,%.4f,%.4f,%.4f,%.4f,%d,%s\n",
			a.PolicyID,
			a.CostID,
			a.TotalTrades,
			a.TotalCalls,
			a.NoEntry,
			a.WinRate,
			a.CallWinRate,
			a.StopOutRate,
			a.ReturnMean,
			a.ReturnMedian,
			a.ReturnP10,
			a.ReturnP90,
			a.MaxDrawdownBps,
			a.MaxConsecutiveLosses,
			tailCapture,
		))
	}

	return sb.String()
}
