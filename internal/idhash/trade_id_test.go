package idhash

import "testing"

func TestComputeTradeID_Deterministic(t *testing.T) {
	a := ComputeTradeID("call-1", "FIXED_STOP_stop20", "zero", 1000_000)
	b := ComputeTradeID("call-1", "FIXED_STOP_stop20", "zero", 1000_000)
	if a != b {
		t.Errorf("same inputs must hash identically: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(a))
	}
}

func TestComputeTradeID_SensitiveToEveryField(t *testing.T) {
	base := ComputeTradeID("call-1", "FIXED_STOP_stop20", "zero", 1000_000)

	variants := []string{
		ComputeTradeID("call-2", "FIXED_STOP_stop20", "zero", 1000_000),
		ComputeTradeID("call-1", "FIXED_STOP_stop30", "zero", 1000_000),
		ComputeTradeID("call-1", "FIXED_STOP_stop20", "standard", 1000_000),
		ComputeTradeID("call-1", "FIXED_STOP_stop20", "zero", 1060_000),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}
