package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestGini(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
		tol  float64
	}{
		{"bimodal body tokens", []float64{2, 3, 5, 115, 120}, 0.568, 0.005},
		{"uniform", []float64{50, 50, 50, 50, 50}, 0, 1e-9},
		{"empty", nil, 0, 1e-9},
		{"singleton", []float64{7}, 0, 1e-9},
		{"zero sum", []float64{0, 0, 0}, 0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Gini(tt.xs)
			if !almostEqual(got, tt.want, tt.tol) {
				t.Errorf("Gini(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}

func TestGiniBounds(t *testing.T) {
	xs := []float64{1, 2, 3, 50, 200, 0, 4}
	g := Gini(xs)
	n := float64(len(xs))
	if g < 0 || g > (n-1)/n {
		t.Errorf("Gini out of bounds: %v", g)
	}
}

func TestGiniScaleInvariance(t *testing.T) {
	xs := []float64{2, 3, 5, 115, 120}
	scaled := make([]float64, len(xs))
	for i, x := range xs {
		scaled[i] = x * 17.5
	}
	if !almostEqual(Gini(xs), Gini(scaled), 1e-12) {
		t.Errorf("Gini not scale invariant: %v vs %v", Gini(xs), Gini(scaled))
	}
}

func TestEntropy(t *testing.T) {
	tests := []struct {
		name   string
		counts []float64
		want   float64
		tol    float64
	}{
		{"skewed authors", []float64{40, 8, 2}, 0.867, 0.005},
		{"three equal", []float64{10, 10, 10}, math.Log2(3), 1e-9},
		{"single", []float64{42}, 0, 1e-9},
		{"empty", nil, 0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Entropy(tt.counts)
			if !almostEqual(got, tt.want, tt.tol) {
				t.Errorf("Entropy(%v) = %v, want %v", tt.counts, got, tt.want)
			}
		})
	}
}

func TestOLSSlope(t *testing.T) {
	tests := []struct {
		name string
		ys   []float64
		want float64
		tol  float64
	}{
		{"spiking windows", []float64{2, 5, 3, 8, 12, 4, 15, 20}, 2.18, 0.05},
		{"flat windows", []float64{5, 6, 5, 5, 6, 5, 6, 5}, 0, 0.05},
		{"perfect line", []float64{1, 3, 5, 7}, 2, 1e-9},
		{"single point", []float64{9}, 0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OLSSlope(tt.ys)
			if !almostEqual(got, tt.want, tt.tol) {
				t.Errorf("OLSSlope(%v) = %v, want %v", tt.ys, got, tt.want)
			}
		})
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	cv := CoefficientOfVariation([]float64{5, 6, 5, 5, 6, 5, 6, 5})
	if cv > 0.15 {
		t.Errorf("flat series CV = %v, want < 0.15", cv)
	}

	cv = CoefficientOfVariation([]float64{2, 5, 3, 8, 12, 4, 15, 20})
	if !almostEqual(cv, 0.70, 0.05) {
		t.Errorf("spiking series CV = %v, want ~0.70", cv)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("Median odd = %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 2, 3}); got != 2.5 {
		t.Errorf("Median even = %v, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median empty = %v, want 0", got)
	}
}
