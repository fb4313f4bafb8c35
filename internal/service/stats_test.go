package service

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.7}, 0.7},
		{"uniform", []float64{0.5, 0.5, 0.5}, 0.5},
		{"mixed", []float64{0.2, 0.4, 0.9}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mean(tt.values)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("mean(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single value has no spread", []float64{0.9}, 0},
		{"identical values", []float64{0.6, 0.6, 0.6}, 0},
		// Population variance: mean 0.5, squared deviations 0.09 each.
		{"two values", []float64{0.2, 0.8}, 0.09},
		{"three values", []float64{0.1, 0.5, 0.9}, 0.32 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := variance(tt.values)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("variance(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.3, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}

	for _, tt := range tests {
		if got := clamp01(tt.in); got != tt.want {
			t.Errorf("clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
