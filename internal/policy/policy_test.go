package policy

import (
	"testing"

	"exit-policy-lab/internal/domain"
)

// Helper to create a test bar. Timestamps are Unix seconds, 60s interval.
func bar(ts int64, open, high, low, close float64) domain.Candle {
	return domain.Candle{
		InstrumentID:    "inst-1",
		Timestamp:       ts,
		Open:            open,
		High:            high,
		Low:             low,
		Close:           close,
		Volume:          1000,
		IntervalSeconds: 60,
	}
}

func ptrFloat(v float64) *float64 {
	return &v
}

// runToExit steps a policy over bars and returns the first final fill plus
// any partial fills seen before it.
func runToExit(p Policy, entryPrice float64, entryTsMs int64, bars []domain.Candle) (partials []Fill, final *Fill) {
	p.Open(entryPrice, entryTsMs)
	for _, c := range bars {
		for _, f := range p.Step(c) {
			if f.Final {
				ff := f
				return partials, &ff
			}
			partials = append(partials, f)
		}
	}
	return partials, nil
}

func TestFixedStop_StopOnEntryBar(t *testing.T) {
	// entry 100, stop 20%, tp 100%: entry bar low 75 tags the stop at 80.
	p := NewFixedStop(0.20, ptrFloat(1.0))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 100, 75, 80),
	})

	if final == nil {
		t.Fatal("expected exit on entry bar")
	}
	if final.Reason != domain.ExitReasonStopLoss {
		t.Errorf("expected stop_loss, got %s", final.Reason)
	}
	if final.Price != 80 {
		t.Errorf("expected fill at stop price 80, got %.2f", final.Price)
	}
}

func TestFixedStop_GapFillsAtStopPrice(t *testing.T) {
	// Price gaps far below the stop level; the fill stays at the stop price.
	p := NewFixedStop(0.10, nil)

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 98, 100),
		bar(1060, 50, 55, 40, 45), // gap through 90
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Price != 90 {
		t.Errorf("expected fill at configured stop 90, not gapped low: got %.2f", final.Price)
	}
}

func TestFixedStop_StopBeatsTakeProfitSameBar(t *testing.T) {
	// A wide bar tags both levels; stop-loss wins by precedence.
	p := NewFixedStop(0.10, ptrFloat(0.10))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 115, 85, 100),
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonStopLoss {
		t.Errorf("stop_loss must win over take_profit on the same bar, got %s", final.Reason)
	}
}

func TestFixedStop_TakeProfit(t *testing.T) {
	p := NewFixedStop(0.20, ptrFloat(0.50))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 105, 95, 102),
		bar(1060, 102, 155, 101, 150),
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonTakeProfit {
		t.Errorf("expected take_profit, got %s", final.Reason)
	}
	if final.Price != 150 {
		t.Errorf("expected fill at take-profit price 150, got %.2f", final.Price)
	}
}

func TestTimeStop_TakeProfitBeatsTimeSameBar(t *testing.T) {
	// Precedence is reversed vs FixedStop: take-profit wins over the clock.
	p := NewTimeStop(60_000, ptrFloat(0.10))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 99, 100),
		bar(1060, 100, 112, 99, 111), // hold elapsed AND tp reached
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonTakeProfit {
		t.Errorf("take_profit must win over time_stop, got %s", final.Reason)
	}
	if final.Price != 110 {
		t.Errorf("expected fill at take-profit price 110, got %.2f", final.Price)
	}
}

func TestTimeStop_ExitsAtClose(t *testing.T) {
	p := NewTimeStop(120_000, nil)

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 99, 100),
		bar(1060, 100, 103, 99, 102),
		bar(1120, 102, 104, 100, 103), // 120s elapsed
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonTimeStop {
		t.Errorf("expected time_stop, got %s", final.Reason)
	}
	if final.Price != 103 {
		t.Errorf("time stop exits at the bar close, got %.2f", final.Price)
	}
	if final.TimestampMs != 1120_000 {
		t.Errorf("expected exit at 1120000, got %d", final.TimestampMs)
	}
}

func TestTrailingStop_ActivateThenTrail(t *testing.T) {
	// entry 100, activation 20%, trail 10%. High 130 activates and sets the
	// peak; next bar low 110 tags the trail at 117.
	p := NewTrailingStop(0.20, 0.10, nil)

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 130, 120, 128),
		bar(1060, 128, 129, 110, 112),
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonTrailingStop {
		t.Errorf("expected trailing_stop, got %s", final.Reason)
	}
	if final.Price != 117 {
		t.Errorf("expected fill at trail price 117, got %.2f", final.Price)
	}
}

func TestTrailingStop_PeakUpdatesBeforeStopCheck(t *testing.T) {
	// A bar that raises the peak and dips must be tested against the NEW
	// threshold, not the previous bar's.
	p := NewTrailingStop(0.10, 0.10, nil)

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 120, 110, 118), // activates, peak 120, trail 108
		bar(1060, 118, 140, 125, 138), // peak 140, trail 126; low 125 <= 126
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Price != 126 {
		t.Errorf("trail threshold must use the updated peak: expected 126, got %.2f", final.Price)
	}
}

func TestTrailingStop_NoExitBeforeActivation(t *testing.T) {
	// Without a hard stop, nothing can fire pre-activation no matter how far
	// price falls.
	p := NewTrailingStop(0.50, 0.10, nil)

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 50, 55),
		bar(1060, 55, 60, 30, 35),
	})

	if final != nil {
		t.Fatalf("expected no exit before activation, got %s at %.2f", final.Reason, final.Price)
	}
}

func TestTrailingStop_HardStopFiresPreActivation(t *testing.T) {
	p := NewTrailingStop(0.50, 0.10, ptrFloat(0.30))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 95, 96),
		bar(1060, 96, 97, 65, 68),
	})

	if final == nil {
		t.Fatal("expected hard stop exit")
	}
	if final.Reason != domain.ExitReasonHardStop {
		t.Errorf("expected hard_stop, got %s", final.Reason)
	}
	if final.Price != 70 {
		t.Errorf("expected fill at hard stop 70, got %.2f", final.Price)
	}
}

func TestTrailingStop_HardStopBeatsTrailSameBar(t *testing.T) {
	// Both the hard stop and the trail are tagged on one bar; the hard stop
	// is checked first.
	p := NewTrailingStop(0.10, 0.10, ptrFloat(0.20))

	_, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 120, 110, 118), // activated, peak 120, trail 108
		bar(1060, 118, 119, 75, 78),   // low tags both 108 and 80
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonHardStop {
		t.Errorf("hard_stop must win over trailing_stop, got %s", final.Reason)
	}
}

func TestTrailingStop_ActivationIsOneWay(t *testing.T) {
	p := NewTrailingStop(0.20, 0.50, nil)
	p.Open(100, 1000_000)

	// Activates at 120, then price falls back below the activation level
	// without tagging the wide trail. The policy must stay activated.
	if fills := p.Step(bar(1000, 100, 125, 100, 101)); len(fills) != 0 {
		t.Fatalf("unexpected fills: %v", fills)
	}
	if !p.activated {
		t.Fatal("expected policy to be activated")
	}
	if fills := p.Step(bar(1060, 101, 102, 80, 85)); len(fills) != 0 {
		t.Fatalf("unexpected fills: %v", fills)
	}
	if !p.activated {
		t.Error("activation must be one-way")
	}
}

func TestLadder_FiresOneLevelPerBar(t *testing.T) {
	// A bar gapping past 2.0 and 3.0 fires only the first
	// untested level; the next level becomes eligible the following bar.
	p := NewLadder([]domain.LadderLevel{
		{Multiple: 2.0, Fraction: 0.5},
		{Multiple: 3.0, Fraction: 0.3},
		{Multiple: 4.0, Fraction: 0.2},
	}, nil)

	partials, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 250, 99, 240), // past both 200 and 300: fires 2.0 only
		bar(1060, 240, 320, 230, 310),
	})

	if final != nil {
		t.Fatalf("unexpected final fill: %v", final)
	}
	if len(partials) != 2 {
		t.Fatalf("expected 2 partial fills, got %d", len(partials))
	}
	if partials[0].Level != 0 || partials[0].Price != 200 || partials[0].Fraction != 0.5 {
		t.Errorf("first fill: got level %d, price %.2f, fraction %.2f", partials[0].Level, partials[0].Price, partials[0].Fraction)
	}
	if partials[1].Level != 1 || partials[1].Price != 300 || partials[1].Fraction != 0.3 {
		t.Errorf("second fill: got level %d, price %.2f, fraction %.2f", partials[1].Level, partials[1].Price, partials[1].Fraction)
	}
}

func TestLadder_CompletesWhenAllLevelsFire(t *testing.T) {
	p := NewLadder([]domain.LadderLevel{
		{Multiple: 2.0, Fraction: 0.6},
		{Multiple: 3.0, Fraction: 0.4},
	}, nil)

	partials, final := runToExit(p, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 210, 99, 205),
		bar(1060, 205, 310, 200, 305),
	})

	if len(partials) != 2 {
		t.Fatalf("expected 2 partial fills, got %d", len(partials))
	}
	if final == nil {
		t.Fatal("expected final fill once fractions sum to 1")
	}
	if final.Reason != domain.ExitReasonLadderComplete {
		t.Errorf("expected ladder_complete, got %s", final.Reason)
	}
	if final.Price != 300 {
		t.Errorf("completion fill at the last level price 300, got %.2f", final.Price)
	}
}

func TestLadder_LevelThenStopSameBar(t *testing.T) {
	// One wide bar fires the first level and then tags the stop; both fills
	// are emitted, level first.
	p := NewLadder([]domain.LadderLevel{
		{Multiple: 2.0, Fraction: 0.5},
		{Multiple: 3.0, Fraction: 0.5},
	}, ptrFloat(0.20))

	p.Open(100, 1000_000)
	fills := p.Step(bar(1000, 100, 210, 75, 80))

	if len(fills) != 2 {
		t.Fatalf("expected level fill + stop fill, got %d", len(fills))
	}
	if fills[0].Final || fills[0].Level != 0 {
		t.Errorf("first fill must be the level partial: %+v", fills[0])
	}
	if !fills[1].Final || fills[1].Reason != domain.ExitReasonStopLoss || fills[1].Price != 80 {
		t.Errorf("second fill must be the stop on the remainder: %+v", fills[1])
	}
}

func TestLadder_StopAppliesOnlyWhileFractionRemains(t *testing.T) {
	p := NewLadder([]domain.LadderLevel{
		{Multiple: 1.5, Fraction: 1.0},
	}, ptrFloat(0.20))

	p.Open(100, 1000_000)
	fills := p.Step(bar(1000, 100, 160, 70, 75)) // level completes everything

	var sawStop bool
	for _, f := range fills {
		if f.Reason == domain.ExitReasonStopLoss {
			sawStop = true
		}
	}
	if sawStop {
		t.Error("stop must not fire once the full fraction has exited")
	}
}

func TestLadder_CloseReason(t *testing.T) {
	untriggered := NewLadder([]domain.LadderLevel{{Multiple: 2.0, Fraction: 0.5}}, nil)
	untriggered.Open(100, 1000_000)
	if got := untriggered.Close(bar(1060, 100, 101, 99, 100)); got.Reason != domain.ExitReasonEndOfData {
		t.Errorf("expected end_of_data with untriggered levels, got %s", got.Reason)
	}

	triggered := NewLadder([]domain.LadderLevel{{Multiple: 1.5, Fraction: 0.5}}, nil)
	triggered.Open(100, 1000_000)
	triggered.Step(bar(1000, 100, 160, 99, 150))
	if got := triggered.Close(bar(1060, 150, 151, 149, 150)); got.Reason != domain.ExitReasonLadderComplete {
		t.Errorf("expected ladder_complete with all levels fired, got %s", got.Reason)
	}
}

func TestCombo_FirstSubPolicyWins(t *testing.T) {
	// A bar that breaches the fixed stop and exceeds the hold duration:
	// list order decides the reported reason.
	mk := func(order []domain.PolicyConfig) *Fill {
		combo, err := FromConfig(domain.PolicyConfig{
			Kind:        domain.PolicyKindCombo,
			SubPolicies: order,
		})
		if err != nil {
			t.Fatalf("FromConfig failed: %v", err)
		}
		_, final := runToExit(combo, 100, 1000_000, []domain.Candle{
			bar(1000, 100, 101, 99, 100),
			bar(1060, 100, 101, 70, 75), // stop breached AND hold elapsed
		})
		if final == nil {
			t.Fatal("expected exit")
		}
		return final
	}

	stopFirst := []domain.PolicyConfig{
		{Kind: domain.PolicyKindFixedStop, StopPct: ptrFloat(0.20)},
		{Kind: domain.PolicyKindTimeStop, MaxHoldMs: ptrInt64(60_000)},
	}
	timeFirst := []domain.PolicyConfig{
		{Kind: domain.PolicyKindTimeStop, MaxHoldMs: ptrInt64(60_000)},
		{Kind: domain.PolicyKindFixedStop, StopPct: ptrFloat(0.20)},
	}

	if got := mk(stopFirst); got.Reason != domain.ExitReasonStopLoss {
		t.Errorf("stop-first order: expected stop_loss, got %s", got.Reason)
	}
	if got := mk(timeFirst); got.Reason != domain.ExitReasonTimeStop {
		t.Errorf("time-first order: expected time_stop, got %s", got.Reason)
	}
}

func TestCombo_TagsWinningSubPolicy(t *testing.T) {
	combo, err := FromConfig(domain.PolicyConfig{
		Kind: domain.PolicyKindCombo,
		SubPolicies: []domain.PolicyConfig{
			{Kind: domain.PolicyKindFixedStop, StopPct: ptrFloat(0.20)},
			{Kind: domain.PolicyKindTimeStop, MaxHoldMs: ptrInt64(3600_000)},
		},
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}

	_, final := runToExit(combo, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 101, 70, 75),
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.SubPolicy != "FIXED_STOP_stop0.2" {
		t.Errorf("expected winning sub-policy tag, got %q", final.SubPolicy)
	}
}

func TestCombo_TimeStopWinsWhenClockExpiresFirst(t *testing.T) {
	// Price never breaches the stop before the hold duration elapses.
	combo, err := FromConfig(domain.PolicyConfig{
		Kind: domain.PolicyKindCombo,
		SubPolicies: []domain.PolicyConfig{
			{Kind: domain.PolicyKindFixedStop, StopPct: ptrFloat(0.20)},
			{Kind: domain.PolicyKindTimeStop, MaxHoldMs: ptrInt64(120_000)},
		},
	})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}

	_, final := runToExit(combo, 100, 1000_000, []domain.Candle{
		bar(1000, 100, 102, 98, 100),
		bar(1060, 100, 103, 97, 101),
		bar(1120, 101, 104, 99, 102),
	})

	if final == nil {
		t.Fatal("expected exit")
	}
	if final.Reason != domain.ExitReasonTimeStop {
		t.Errorf("expected time_stop, got %s", final.Reason)
	}
}

func ptrInt64(v int64) *int64 {
	return &v
}
