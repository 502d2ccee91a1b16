package policy

import (
	"fmt"

	"exit-policy-lab/internal/domain"
)

// FromConfig builds a Policy from a validated tagged-union config.
// Validation is a hard reject before any simulation starts: invalid
// parameters are never clamped or repaired. The kind set is closed; an
// unknown kind returns domain.ErrUnknownPolicyKind.
func FromConfig(cfg domain.PolicyConfig) (Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return fromValidConfig(cfg)
}

// fromValidConfig assumes cfg passed Validate. Kept separate so Combo can
// build sub-policies without re-validating the whole tree per level.
func fromValidConfig(cfg domain.PolicyConfig) (Policy, error) {
	switch cfg.Kind {
	case domain.PolicyKindFixedStop:
		return NewFixedStop(*cfg.StopPct, cfg.TakeProfitPct), nil

	case domain.PolicyKindTimeStop:
		return NewTimeStop(*cfg.MaxHoldMs, cfg.TakeProfitPct), nil

	case domain.PolicyKindTrailingStop:
		return NewTrailingStop(*cfg.ActivationPct, *cfg.TrailPct, cfg.HardStopPct), nil

	case domain.PolicyKindLadder:
		levels := make([]domain.LadderLevel, len(cfg.Levels))
		copy(levels, cfg.Levels)
		return NewLadder(levels, cfg.StopPct), nil

	case domain.PolicyKindCombo:
		subs := make([]Policy, 0, len(cfg.SubPolicies))
		for i, subCfg := range cfg.SubPolicies {
			sub, err := fromValidConfig(subCfg)
			if err != nil {
				return nil, fmt.Errorf("sub-policy %d: %w", i, err)
			}
			subs = append(subs, sub)
		}
		return NewCombo(subs), nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPolicyKind, cfg.Kind)
	}
}
