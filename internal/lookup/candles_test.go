package lookup

import (
	"errors"
	"reflect"
	"testing"

	"exit-policy-lab/internal/domain"
)

func candleAt(ts int64, close float64) domain.Candle {
	return domain.Candle{
		InstrumentID:    "inst-1",
		Timestamp:       ts,
		Open:            close,
		High:            close,
		Low:             close,
		Close:           close,
		Volume:          100,
		IntervalSeconds: 60,
	}
}

func TestCausalPrefix(t *testing.T) {
	candles := []domain.Candle{
		candleAt(1000, 1), // closes at 1060
		candleAt(1060, 2), // closes at 1120
		candleAt(1120, 3), // closes at 1180
	}

	if got := CausalPrefix(candles, 1120_000); len(got) != 2 {
		t.Errorf("expected 2 candles closed by 1120s, got %d", len(got))
	}
	if got := CausalPrefix(candles, 1119_999); len(got) != 1 {
		t.Errorf("a bar still open at as-of must be excluded, got %d candles", len(got))
	}
	if got := CausalPrefix(candles, 2000_000); len(got) != 3 {
		t.Errorf("expected full series, got %d candles", len(got))
	}
	if got := CausalPrefix(candles, 0); len(got) != 0 {
		t.Errorf("expected empty prefix, got %d candles", len(got))
	}
}

func TestFirstAtOrAfter(t *testing.T) {
	candles := []domain.Candle{
		candleAt(1000, 1),
		candleAt(1060, 2),
		candleAt(1120, 3),
	}

	cases := []struct {
		targetMs int64
		want     int
	}{
		{500_000, 0},
		{1000_000, 0},  // exact boundary is inclusive
		{1000_001, 1},
		{1060_000, 1},
		{1120_000, 2},
		{1120_001, -1}, // after all data
	}
	for _, tc := range cases {
		if got := FirstAtOrAfter(candles, tc.targetMs); got != tc.want {
			t.Errorf("FirstAtOrAfter(%d): expected %d, got %d", tc.targetMs, tc.want, got)
		}
	}

	if got := FirstAtOrAfter(nil, 1000_000); got != -1 {
		t.Errorf("empty series: expected -1, got %d", got)
	}
}

func TestDedupeFirst(t *testing.T) {
	first := candleAt(1060, 2)
	second := candleAt(1060, 99)
	candles := []domain.Candle{candleAt(1000, 1), first, second, candleAt(1120, 3)}

	got := DedupeFirst(candles)
	if len(got) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(got))
	}
	if got[1].Close != 2 {
		t.Errorf("first bar for a duplicated timestamp must win, got close %.0f", got[1].Close)
	}
	if len(candles) != 4 {
		t.Error("input slice must not be modified")
	}
}

func TestDedupeFirst_CleanInputReturnedAsIs(t *testing.T) {
	candles := []domain.Candle{candleAt(1000, 1), candleAt(1060, 2)}
	got := DedupeFirst(candles)
	if !reflect.DeepEqual(got, candles) {
		t.Error("clean input must pass through unchanged")
	}
}

func TestCheckOrdered(t *testing.T) {
	if err := CheckOrdered(nil); !errors.Is(err, ErrNoCandleData) {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}

	ordered := []domain.Candle{candleAt(1000, 1), candleAt(1060, 2)}
	if err := CheckOrdered(ordered); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	// Duplicates do not violate ordering.
	withDup := []domain.Candle{candleAt(1000, 1), candleAt(1000, 2)}
	if err := CheckOrdered(withDup); err != nil {
		t.Errorf("duplicates are handled elsewhere, expected nil, got %v", err)
	}

	unordered := []domain.Candle{candleAt(1060, 1), candleAt(1000, 2)}
	if err := CheckOrdered(unordered); !errors.Is(err, ErrUnordered) {
		t.Errorf("expected ErrUnordered, got %v", err)
	}
}

func TestCloseAt(t *testing.T) {
	candles := []domain.Candle{
		candleAt(1000, 10),
		candleAt(1060, 20),
		candleAt(1120, 30),
	}

	if got, err := CloseAt(1070_000, candles); err != nil || got != 20 {
		t.Errorf("expected 20, got %.0f (err %v)", got, err)
	}
	if got, err := CloseAt(500_000, candles); err != nil || got != 10 {
		t.Errorf("before all data: expected first close 10, got %.0f (err %v)", got, err)
	}
	if got, err := CloseAt(2000_000, candles); err != nil || got != 30 {
		t.Errorf("after all data: expected last close 30, got %.0f (err %v)", got, err)
	}
	if _, err := CloseAt(1000_000, nil); !errors.Is(err, ErrNoCandleData) {
		t.Errorf("expected ErrNoCandleData, got %v", err)
	}
}
