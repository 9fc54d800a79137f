/*
Copyright © 2024 the XDS authors.
This file is part of XDS.

XDS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

XDS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with XDS.  If not, see <http://www.gnu.org/licenses/>.
*/

package xds

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestEdgesAndBins(t *testing.T) {
	e := edges(-11, 11, 1)
	if len(e) != 23 || e[0] != -11 || e[22] != 11 {
		t.Fatalf("edges %v", e)
	}
	for _, c := range []struct {
		v    float64
		want int
	}{
		{-11, 0}, {-10.5, 0}, {-10, 1}, {0, 11}, {10.999, 21}, {11, 21}, {11.001, -1}, {-11.5, -1}, {math.NaN(), -1},
	} {
		if b := bin(e, c.v); b != c.want {
			t.Errorf("bin(%g) = %d, want %d", c.v, b, c.want)
		}
	}
	// A step that does not divide the range stops below the maximum.
	if e := edges(-11, 11, 3); len(e) != 8 || e[7] != 10 {
		t.Errorf("edges %v", e)
	}
}

func TestPatternConfig(t *testing.T) {
	cfg := DefaultPatternConfig()
	cfg.Traces = MaxTraces
	if err := cfg.Validate(); !errors.Is(err, ErrResourceGuard) {
		t.Errorf("have %v, want ErrResourceGuard", err)
	}
	cfg.ForceTraces = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("forced: %v", err)
	}
	cfg = DefaultPatternConfig()
	cfg.XBinStep = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("have %v, want ErrInvalidConfiguration", err)
	}
	tpc := smallTPC(t)
	cfg = DefaultPatternConfig()
	cfg.Traces = 2 * MaxTraces
	if _, err := NewPatternGenerator(tpc, cfg); !errors.Is(err, ErrResourceGuard) {
		t.Errorf("generator: have %v, want ErrResourceGuard", err)
	}
}

func testGenerator(t *testing.T, traces int) *PatternGenerator {
	cfg := DefaultPatternConfig()
	cfg.Traces = traces
	g, err := NewPatternGenerator(smallTPC(t), cfg)
	if err != nil {
		t.Fatal(err)
	}
	g.Log = quietLog()
	return g
}

func TestPatternHits(t *testing.T) {
	const n = 10000
	g := testGenerator(t, n)
	d, err := g.Density(0, 0, g.TPC.LiquidLevel, g.TPC.ZAnode, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if d.Survivors >= n {
		t.Errorf("%d of %d photons hit the array", d.Survivors, n)
	}
	// Polar angles are uniform, so the fraction of hits is the fraction
	// of angles with 5·tan(θ) < 10.
	want := math.Atan(2) / (math.Pi / 2)
	if frac := float64(d.Survivors) / n; math.Abs(frac-want) > 0.02 {
		t.Errorf("hit fraction %g, want %g", frac, want)
	}
	var sum float64
	for _, v := range d.Values {
		sum += v
	}
	if want := float64(d.Survivors) / (g.Config.BinArea() * 2 * n); different(sum, want, 1e-12) {
		t.Errorf("density sum %g, want %g", sum, want)
	}
}

func TestPatternTargetPlane(t *testing.T) {
	g := testGenerator(t, 100)
	z0 := g.TPC.LiquidLevel
	for _, zTarget := range []float64{z0, z0 - 1, math.NaN()} {
		if _, err := g.GenerateAt(0, 0, z0, zTarget, rand.NewPCG(1, 1)); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("zTarget %g: have %v, want ErrInvalidConfiguration", zTarget, err)
		}
	}
	h, hits, err := g.Histogram(0, 0, z0, g.TPC.ZAnode, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if h.Sum() != float64(hits) {
		t.Errorf("histogram holds %g photons, want %d", h.Sum(), hits)
	}
}

func TestPatternDeterministic(t *testing.T) {
	g := testGenerator(t, 5000)
	a, na, err := g.Histogram(1, -2, g.TPC.LiquidLevel, g.TPC.ZAnode, rand.NewPCG(3, 4))
	if err != nil {
		t.Fatal(err)
	}
	b, nb, err := g.Histogram(1, -2, g.TPC.LiquidLevel, g.TPC.ZAnode, rand.NewPCG(3, 4))
	if err != nil {
		t.Fatal(err)
	}
	if na != nb || a.Entries != b.Entries {
		t.Fatalf("survivors %d != %d", na, nb)
	}
	for i := range a.Counts {
		if a.Counts[i] != b.Counts[i] {
			t.Fatalf("bin %d: %g != %g", i, a.Counts[i], b.Counts[i])
		}
	}
	if a.Sum() != float64(na) {
		t.Errorf("histogram holds %g entries, want %d", a.Sum(), na)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	g := testGenerator(t, 20000)
	p, err := g.Generate(0, rand.NewPCG(5, 6))
	if err != nil {
		t.Fatal(err)
	}
	if p.Cell != 0 || p.Z0 != g.TPC.LiquidLevel || p.ZTarget != g.TPC.ZAnode {
		t.Errorf("pattern %+v", p)
	}
	c := g.TPC.Mesh.Cells[0].Center
	if p.X0 != c.X || p.Y0 != c.Y {
		t.Errorf("emitted at (%g, %g), want cell center (%g, %g)", p.X0, p.Y0, c.X, c.Y)
	}
	d, err := g.Density(c.X, c.Y, g.TPC.LiquidLevel, g.TPC.ZAnode, rand.NewPCG(5, 6))
	if err != nil {
		t.Fatal(err)
	}
	ny := len(d.YCenters)
	for i, x := range d.XCenters {
		for j, y := range d.YCenters {
			if v := p.Eval(x, y); different(v, d.Values[i*ny+j], 1e-9) {
				t.Fatalf("(%g, %g): pattern %g, density %g", x, y, v, d.Values[i*ny+j])
			}
		}
	}
	for _, v := range p.EvalGrid(d.XCenters, d.YCenters) {
		if v < 0 {
			t.Fatal("negative density")
		}
	}
	if _, err := g.Generate(g.TPC.Mesh.Len(), rand.NewPCG(1, 1)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("have %v, want ErrDimensionMismatch", err)
	}
}
