package reporting

import (
	"time"

	"exit-policy-lab/internal/domain"
)

// Report summarizes a batch of simulations across policies.
type Report struct {
	GeneratedAt time.Time
	PolicyCount int
	TradeCount  int // entered trades across all aggregates
	NoEntry     int // no-entry results across all aggregates

	// Per-policy aggregates, sorted by policy_id ASC, cost_id ASC.
	Aggregates []*domain.PolicyAggregate
}
