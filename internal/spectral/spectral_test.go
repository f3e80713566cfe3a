package spectral

import (
	"math"
	"testing"

	"insight/internal/graph"
)

func path(n int) *graph.Graph {
	b := graph.NewBuilder()
	for i := 0; i < n-1; i++ {
		b.AddEdge(name(i), name(i+1), 1)
	}
	return b.Build()
}

func name(i int) string {
	return string(rune('a' + i))
}

func TestSkipTinyGraph(t *testing.T) {
	b := graph.NewBuilder()
	b.AddEdge("a", "b", 1)
	res := Analyze(b.Build())
	if !res.Skipped {
		t.Error("graph with 2 nodes not skipped")
	}
	if res.FiedlerValue != 0 || res.SpectralGap != 0 {
		t.Error("skipped graph must report zero values")
	}
}

func TestPathGraphFiedler(t *testing.T) {
	// P4 Laplacian eigenvalues: 0, 2-sqrt(2), 2, 2+sqrt(2).
	res := Analyze(path(4))
	if res.Skipped {
		t.Fatal("P4 skipped")
	}
	want := 2 - math.Sqrt2
	if math.Abs(res.FiedlerValue-want) > 1e-6 {
		t.Errorf("fiedler = %v, want %v", res.FiedlerValue, want)
	}
	if math.Abs(res.SpectralGap-want/2) > 1e-6 {
		t.Errorf("spectral gap = %v, want %v", res.SpectralGap, want/2)
	}
}

func TestDisconnectedGraphFiedlerZero(t *testing.T) {
	b := graph.NewBuilder()
	b.AddEdge("a", "b", 1)
	b.AddEdge("b", "c", 1)
	b.AddEdge("x", "y", 1)
	b.AddEdge("y", "z", 1)
	res := Analyze(b.Build())

	if res.FiedlerValue != 0 {
		t.Errorf("disconnected fiedler = %v, want 0", res.FiedlerValue)
	}
	if res.ComponentCount != 2 {
		t.Errorf("component count = %d, want 2", res.ComponentCount)
	}
}

func TestCompleteGraphSpectrum(t *testing.T) {
	// K4 Laplacian eigenvalues: 0, 4, 4, 4.
	b := graph.NewBuilder()
	names := []string{"a", "b", "c", "d"}
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			b.AddEdge(names[i], names[j], 1)
		}
	}
	res := Analyze(b.Build())
	if math.Abs(res.FiedlerValue-4) > 1e-6 {
		t.Errorf("K4 fiedler = %v, want 4", res.FiedlerValue)
	}
	if math.Abs(res.SpectralGap-1) > 1e-6 {
		t.Errorf("K4 gap = %v, want 1", res.SpectralGap)
	}
}

func TestDeterminism(t *testing.T) {
	r1 := Analyze(path(8))
	r2 := Analyze(path(8))
	if math.Abs(r1.FiedlerValue-r2.FiedlerValue) > 1e-12 {
		t.Errorf("fiedler differs across runs: %v vs %v", r1.FiedlerValue, r2.FiedlerValue)
	}
}
