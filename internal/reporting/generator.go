package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/metrics"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
)

// Generator builds reports from stored trade results.
type Generator struct {
	tradeResultStore storage.TradeResultStore
	metrics          *observability.Metrics // optional
}

// NewGenerator creates a report generator. m may be nil.
func NewGenerator(tradeStore storage.TradeResultStore, m *observability.Metrics) *Generator {
	return &Generator{tradeResultStore: tradeStore, metrics: m}
}

// Generate loads every stored trade result, groups by (policy_id, cost_id),
// computes aggregates and assembles a Report. Output ordering is
// deterministic: aggregates sorted by policy_id ASC, cost_id ASC.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	trades, err := g.tradeResultStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trade results: %w", err)
	}

	type groupKey struct {
		policyID string
		costID   string
	}
	groups := make(map[groupKey][]*domain.TradeResult)
	for _, t := range trades {
		k := groupKey{t.PolicyID, t.CostID}
		groups[k] = append(groups[k], t)
	}

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		PolicyCount: len(groups),
	}

	for k, group := range groups {
		agg := metrics.ComputeFromTrades(group)
		agg.PolicyID = k.policyID
		agg.CostID = k.costID
		report.Aggregates = append(report.Aggregates, agg)
		report.TradeCount += agg.TotalTrades
		report.NoEntry += agg.NoEntry
		if g.metrics != nil {
			g.metrics.AggregatesComputed.Inc()
		}
	}
	if g.metrics != nil {
		g.metrics.ReportsGenerated.Inc()
	}

	sort.Slice(report.Aggregates, func(i, j int) bool {
		if report.Aggregates[i].PolicyID != report.Aggregates[j].PolicyID {
			return report.Aggregates[i].PolicyID < report.Aggregates[j].PolicyID
		}
		return report.Aggregates[i].CostID < report.Aggregates[j].CostID
	})

	return report, nil
}
