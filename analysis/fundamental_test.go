package analysis

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"stock-analyst/models"
)

func TestAnalyzeFundamental_Valuation(t *testing.T) {
	tests := []struct {
		name    string
		peRatio *float64
		want    models.ValuationAssessment
	}{
		{"nil ratio is unknown", nil, models.ValuationUnknown},
		{"low ratio is undervalued", ptr(10.0), models.ValuationUndervalued},
		{"mid ratio is fair", ptr(20.0), models.ValuationFair},
		{"boundary 15 is fair", ptr(15.0), models.ValuationFair},
		{"boundary 30 is fair", ptr(30.0), models.ValuationFair},
		{"high ratio is overvalued", ptr(35.0), models.ValuationOvervalued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := snapshotWith(flatHistory(30, 100), 100)
			snapshot.PERatio = tt.peRatio

			signals := AnalyzeFundamental(snapshot)
			if signals.Valuation != tt.want {
				t.Errorf("expected %s, got %s", tt.want, signals.Valuation)
			}
		})
	}
}

func TestAnalyzeFundamental_Liquidity(t *testing.T) {
	tests := []struct {
		name      string
		dayVolume int64
		want      models.LiquidityScore
	}{
		{"high liquidity", 2_000_000, models.LiquidityHigh},
		{"medium liquidity", 500_000, models.LiquidityMedium},
		{"low liquidity", 50_000, models.LiquidityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := flatHistory(30, 100)
			for i := range history {
				history[i].Volume = tt.dayVolume
			}
			snapshot := snapshotWith(history, 100)

			signals := AnalyzeFundamental(snapshot)
			if signals.Liquidity != tt.want {
				t.Errorf("expected %s, got %s", tt.want, signals.Liquidity)
			}
		})
	}
}

func TestAnalyzeFundamental_UnusualVolume(t *testing.T) {
	history := flatHistory(30, 100) // 500k per day

	snapshot := snapshotWith(history, 100)
	snapshot.Volume = 1_500_000 // 3x the average
	if signals := AnalyzeFundamental(snapshot); !signals.UnusualVolume {
		t.Error("expected 3x average volume to be flagged unusual")
	}

	snapshot = snapshotWith(history, 100)
	snapshot.Volume = 200_000 // 0.4x the average
	if signals := AnalyzeFundamental(snapshot); !signals.UnusualVolume {
		t.Error("expected 0.4x average volume to be flagged unusual")
	}

	snapshot = snapshotWith(history, 100)
	snapshot.Volume = 500_000
	if signals := AnalyzeFundamental(snapshot); signals.UnusualVolume {
		t.Error("expected average volume not to be flagged unusual")
	}
}

func TestAnalyzeFundamental_PriceChange(t *testing.T) {
	// Current 150 against a last close of 148
	history := flatHistory(30, 148)
	snapshot := snapshotWith(history, 150)

	signals := AnalyzeFundamental(snapshot)

	want := (150.0 - 148.0) / 148.0 * 100
	if math.Abs(signals.PriceChangePct-want) > 0.001 {
		t.Errorf("expected price change %.4f%%, got %.4f%%", want, signals.PriceChangePct)
	}
}

func TestAnalyzeFundamental_MomentumSignals(t *testing.T) {
	tests := []struct {
		name      string
		lastClose float64
		price     float64
		want      string
	}{
		{"strong positive above 5%", 100, 106, "Strong positive momentum (+5%)"},
		{"positive above 2%", 100, 103, "Positive momentum (+2%)"},
		{"strong negative below -5%", 100, 94, "Strong negative momentum (-5%)"},
		{"negative below -2%", 100, 97, "Negative momentum (-2%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := snapshotWith(flatHistory(30, tt.lastClose), tt.price)
			snapshot.DailyHigh = decimal.NewFromFloat(tt.price + 10)
			snapshot.DailyLow = decimal.NewFromFloat(tt.price - 10)

			signals := AnalyzeFundamental(snapshot)
			if len(signals.Signals) != 1 || signals.Signals[0] != tt.want {
				t.Errorf("expected signal %q, got %v", tt.want, signals.Signals)
			}
		})
	}

	t.Run("no signal within 2%", func(t *testing.T) {
		snapshot := snapshotWith(flatHistory(30, 100), 101)
		signals := AnalyzeFundamental(snapshot)
		if len(signals.Signals) != 0 {
			t.Errorf("expected no momentum signals, got %v", signals.Signals)
		}
	})
}

func ptr(f float64) *float64 {
	return &f
}
