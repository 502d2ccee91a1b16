package domain

import (
	"errors"
	"fmt"
	"math"
)

// Policy kinds. The set is closed: configs carrying any other kind are
// rejected at validation time, never dispatched dynamically.
const (
	PolicyKindFixedStop    = "FIXED_STOP"
	PolicyKindTimeStop     = "TIME_STOP"
	PolicyKindTrailingStop = "TRAILING_STOP"
	PolicyKindLadder       = "LADDER"
	PolicyKindCombo        = "COMBO"
)

// LadderLevel is one rung of a Ladder policy: sell Fraction of the original
// position when price reaches entry * Multiple.
type LadderLevel struct {
	Multiple float64 `json:"multiple"`
	Fraction float64 `json:"fraction"`
}

// PolicyConfig is the tagged-union configuration for one exit policy. Kind
// selects the variant; only the fields of that variant are read. Pointer
// fields distinguish absent from zero.
type PolicyConfig struct {
	Kind string `json:"kind"`

	// FIXED_STOP, LADDER (stop on remaining fraction)
	StopPct *float64 `json:"stop_pct,omitempty"`

	// FIXED_STOP, TIME_STOP (optional)
	TakeProfitPct *float64 `json:"take_profit_pct,omitempty"`

	// TIME_STOP
	MaxHoldMs *int64 `json:"max_hold_ms,omitempty"`

	// TRAILING_STOP
	ActivationPct *float64 `json:"activation_pct,omitempty"`
	TrailPct      *float64 `json:"trail_pct,omitempty"`
	HardStopPct   *float64 `json:"hard_stop_pct,omitempty"`

	// LADDER
	Levels []LadderLevel `json:"levels,omitempty"`

	// COMBO
	SubPolicies []PolicyConfig `json:"sub_policies,omitempty"`
}

// Validation errors. All are hard rejects before any simulation starts:
// invalid parameters are never clamped or repaired.
var (
	ErrUnknownPolicyKind  = errors.New("unknown policy kind")
	ErrMissingStopPct     = errors.New("stop_pct is required")
	ErrMissingMaxHold     = errors.New("max_hold_ms is required and must be positive")
	ErrMissingActivation  = errors.New("activation_pct is required")
	ErrMissingTrailPct    = errors.New("trail_pct is required")
	ErrEmptyLadder        = errors.New("ladder requires at least one level")
	ErrLadderOrder        = errors.New("ladder levels must be ascending by multiple")
	ErrLadderFractionSum  = errors.New("ladder fractions must sum to at most 1")
	ErrEmptyCombo         = errors.New("combo requires at least one sub-policy")
	ErrInvalidPercent     = errors.New("percentage parameters must be positive and finite")
	ErrInvalidLadderLevel = errors.New("ladder level multiple and fraction must be positive and finite")
)

// ladderFractionTolerance absorbs floating-point dust when checking that
// ladder fractions do not oversell the position.
const ladderFractionTolerance = 1e-9

// Validate checks the config for its declared kind. Combo validation
// recurses into sub-policies.
func (c PolicyConfig) Validate() error {
	switch c.Kind {
	case PolicyKindFixedStop:
		if c.StopPct == nil {
			return ErrMissingStopPct
		}
		return validPercents(pctField{"stop_pct", c.StopPct}, pctField{"take_profit_pct", c.TakeProfitPct})

	case PolicyKindTimeStop:
		if c.MaxHoldMs == nil || *c.MaxHoldMs <= 0 {
			return ErrMissingMaxHold
		}
		return validPercents(pctField{"take_profit_pct", c.TakeProfitPct})

	case PolicyKindTrailingStop:
		if c.ActivationPct == nil {
			return ErrMissingActivation
		}
		if c.TrailPct == nil {
			return ErrMissingTrailPct
		}
		return validPercents(
			pctField{"activation_pct", c.ActivationPct},
			pctField{"trail_pct", c.TrailPct},
			pctField{"hard_stop_pct", c.HardStopPct},
		)

	case PolicyKindLadder:
		return c.validateLadder()

	case PolicyKindCombo:
		if len(c.SubPolicies) == 0 {
			return ErrEmptyCombo
		}
		for i, sub := range c.SubPolicies {
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("sub-policy %d: %w", i, err)
			}
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownPolicyKind, c.Kind)
	}
}

func (c PolicyConfig) validateLadder() error {
	if len(c.Levels) == 0 {
		return ErrEmptyLadder
	}
	var sum float64
	prev := 0.0
	for i, lvl := range c.Levels {
		if !positiveFinite(lvl.Multiple) || !positiveFinite(lvl.Fraction) {
			return fmt.Errorf("level %d: %w", i, ErrInvalidLadderLevel)
		}
		if lvl.Multiple <= prev {
			return fmt.Errorf("level %d: %w", i, ErrLadderOrder)
		}
		prev = lvl.Multiple
		sum += lvl.Fraction
	}
	if sum > 1+ladderFractionTolerance {
		return fmt.Errorf("%w: sum=%g", ErrLadderFractionSum, sum)
	}
	return validPercents(pctField{"stop_pct", c.StopPct})
}

type pctField struct {
	name  string
	value *float64
}

func validPercents(fields ...pctField) error {
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		if !positiveFinite(*f.value) {
			return fmt.Errorf("%s: %w", f.name, ErrInvalidPercent)
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
