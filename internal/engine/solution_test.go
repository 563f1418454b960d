package engine

import (
	"math"
	"testing"
)

func TestGridInclusiveEndpoint(t *testing.T) {
	g := Grid(0, 1.0, 0.1)
	if len(g) != 11 {
		t.Fatalf("expected 11 points, got %d", len(g))
	}
	if g[0] != 0 || g[10] != 1.0 {
		t.Errorf("expected grid [0, 1], got [%g, %g]", g[0], g[10])
	}
	for i := 1; i < len(g); i++ {
		if d := g[i] - g[i-1]; math.Abs(d-0.1) > 1e-9 {
			t.Errorf("uneven spacing at %d: %g", i, d)
		}
	}
}

func TestGridNonDivisible(t *testing.T) {
	g := Grid(0, 1.0, 0.3)
	// 0, 0.3, 0.6, 0.9: the target is excluded when not on the grid.
	if len(g) != 4 {
		t.Fatalf("expected 4 points, got %d (%v)", len(g), g)
	}
	if g[len(g)-1] > 1.0 {
		t.Errorf("grid exceeds target: %g", g[len(g)-1])
	}
}

func TestGridOffsetStart(t *testing.T) {
	g := Grid(1.0, 2.0, 0.5)
	want := []float64{1.0, 1.5, 2.0}
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if math.Abs(g[i]-want[i]) > 1e-12 {
			t.Errorf("point %d: expected %g, got %g", i, want[i], g[i])
		}
	}
}

func TestGridDegenerate(t *testing.T) {
	if g := Grid(0, 1, 0); g != nil {
		t.Errorf("expected nil for zero interval, got %v", g)
	}
	if g := Grid(1, 0, 0.1); g != nil {
		t.Errorf("expected nil for backward range, got %v", g)
	}
	if g := Grid(2, 2, 0.1); len(g) != 1 || g[0] != 2 {
		t.Errorf("expected single-point grid, got %v", g)
	}
}
