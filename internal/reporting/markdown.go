package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Exit Policy Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Policies: %d | Trades: %d | No-entry: %d\n\n", r.PolicyCount, r.TradeCount, r.NoEntry))

	// Per-policy table
	sb.WriteString("## Policy Aggregates\n\n")
	sb.WriteString("| Policy | Cost | Trades | Win Rate | Stop-Out | Mean (bps) | Median (bps) | P10 (bps) | P90 (bps) | Max DD (bps) | Tail Capture |\n")
	sb.WriteString("|--------|------|--------|----------|----------|------------|--------------|-----------|-----------|--------------|--------------|\n")
	for _, a := range r.Aggregates {
		tailCapture := "n/a"
		if a.MeanTailCapture != nil {
			tailCapture = fmt.Sprintf("%.3f", *a.MeanTailCapture)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.1f%% | %.1f%% | %.1f | %.1f | %.1f | %.1f | %.1f | %s |\n",
			a.PolicyID,
			a.CostID,
			a.TotalTrades,
			a.WinRate*100,
			a.StopOutRate*100,
			a.ReturnMean,
			a.ReturnMedian,
			a.ReturnP10,
			a.ReturnP90,
			a.MaxDrawdownBps,
			tailCapture,
		))
	}
	sb.WriteString("\n")

	return sb.String()
}
