package telemetry

import (
	"math"
	"testing"
)

func TestComputeMassStats(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		wantMean float64
		wantStd  float64
		wantMax  float64
	}{
		{"empty", nil, 0, 0, 0},
		{"single", []float64{42}, 42, 0, 42},
		{"constant", []float64{3, 3, 3, 3}, 3, 0, 3},
		{"spread", []float64{9, 2, 4, 7, 4, 5, 4, 5}, 5, math.Sqrt(32.0 / 7.0), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeMassStats(tt.values)
			if math.Abs(got.Mean-tt.wantMean) > 1e-9 {
				t.Errorf("Mean = %v, want %v", got.Mean, tt.wantMean)
			}
			if math.Abs(got.Std-tt.wantStd) > 1e-9 {
				t.Errorf("Std = %v, want %v", got.Std, tt.wantStd)
			}
			if got.Max != tt.wantMax {
				t.Errorf("Max = %v, want %v", got.Max, tt.wantMax)
			}
		})
	}
}

func TestComputeMassStatsQuantileOrder(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(100 - i)
	}

	got := ComputeMassStats(values)
	if !(got.P10 <= got.P50 && got.P50 <= got.P90 && got.P90 <= got.Max) {
		t.Errorf("quantiles out of order: p10=%v p50=%v p90=%v max=%v", got.P10, got.P50, got.P90, got.Max)
	}
	if got.P10 < 1 || got.P90 > 100 {
		t.Errorf("quantiles outside sample range: p10=%v p90=%v", got.P10, got.P90)
	}
	if math.Abs(got.P50-50) > 1 {
		t.Errorf("P50 = %v, want ~50", got.P50)
	}
}

func TestComputeMassStatsDoesNotMutate(t *testing.T) {
	values := []float64{5, 1, 3}
	ComputeMassStats(values)
	if values[0] != 5 || values[1] != 1 || values[2] != 3 {
		t.Errorf("input reordered: %v", values)
	}
}
