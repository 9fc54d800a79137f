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
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/xenoscope/xds/spline"
)

// blobPattern returns a pattern holding a gaussian blob of width sigma
// centered on (cx, cy), scaled by amp.
func blobPattern(t testing.TB, cell int, cx, cy, sigma, amp float64) *Pattern {
	g := edges(-12, 12, 1)
	z := make([]float64, len(g)*len(g))
	for i, x := range g {
		for j, y := range g {
			z[i*len(g)+j] = amp * math.Exp(-((x-cx)*(x-cx)+(y-cy)*(y-cy))/(2*sigma*sigma))
		}
	}
	s, err := spline.New(g, g, z, 0)
	if err != nil {
		t.Fatal(err)
	}
	return &Pattern{Cell: cell, X0: cx, Y0: cy, Spline: s}
}

func testTopArray(t testing.TB, workers int) *TopArray {
	a, err := NewTopArray(10, DefaultTopArrayConfig(), SensorGrid(-10, 10, -10, 10, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	a.Workers = workers
	a.Log = quietLog()
	return a
}

var scenarioCenters = [][2]float64{{0, 0}, {3, 0}, {-3, 0}, {1.5, 2.6}, {-1.5, 2.6}, {1.5, -2.6}, {-1.5, -2.6}}

func scenarioPatterns(t testing.TB) []*Pattern {
	p := make([]*Pattern, len(scenarioCenters))
	for i, c := range scenarioCenters {
		p[i] = blobPattern(t, i, c[0], c[1], 2+0.1*float64(i), 1e-3)
	}
	return p
}

func TestTopArrayZeroOccupancy(t *testing.T) {
	occupancy := []float64{10, 0, 0, 5, 0, 0, 2}
	patterns := scenarioPatterns(t)
	zeroed := make([]*Pattern, len(patterns))
	copy(zeroed, patterns)
	for i, w := range occupancy {
		if w == 0 {
			zeroed[i] = blobPattern(t, i, 0, 0, 1, 0)
		}
	}

	a := testTopArray(t, 3)
	if err := a.Fill(occupancy, patterns); err != nil {
		t.Fatal(err)
	}
	b := testTopArray(t, 3)
	if err := b.Fill(occupancy, zeroed); err != nil {
		t.Fatal(err)
	}
	for k := range a.Field {
		if a.Field[k] != b.Field[k] {
			t.Fatalf("field %d: %g != %g", k, a.Field[k], b.Field[k])
		}
	}
	ta, err := a.Totals()
	if err != nil {
		t.Fatal(err)
	}
	tb, err := b.Totals()
	if err != nil {
		t.Fatal(err)
	}
	for i := range ta {
		if ta[i] != tb[i] {
			t.Errorf("sensor %d: %g != %g", i, ta[i], tb[i])
		}
	}

	// The field is the weighted sum of the occupied patterns.
	ny := len(a.Y)
	for i, x := range a.X {
		for j, y := range a.Y {
			want := 10*patterns[0].Eval(x, y) + 5*patterns[3].Eval(x, y) + 2*patterns[6].Eval(x, y)
			if different(a.Field[i*ny+j], want, 1e-12) {
				t.Fatalf("(%g, %g): field %g, want %g", x, y, a.Field[i*ny+j], want)
			}
		}
	}
}

func TestTopArrayWorkers(t *testing.T) {
	occupancy := []float64{1, 2, 3, 4, 5, 6, 7}
	patterns := scenarioPatterns(t)
	a := testTopArray(t, 1)
	b := testTopArray(t, 4)
	if err := a.Fill(occupancy, patterns); err != nil {
		t.Fatal(err)
	}
	if err := b.Fill(occupancy, patterns); err != nil {
		t.Fatal(err)
	}
	for k := range a.Field {
		if different(a.Field[k], b.Field[k], 1e-12) {
			t.Fatalf("field %d: %g != %g", k, a.Field[k], b.Field[k])
		}
	}
}

func TestTopArrayTiling(t *testing.T) {
	a := testTopArray(t, 0)
	if err := a.FillElectrons([]int{10, 0, 0, 5, 0, 0, 2}, 28.57, scenarioPatterns(t)); err != nil {
		t.Fatal(err)
	}
	totals, err := a.Totals()
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != len(a.Sensors) {
		t.Fatalf("%d totals for %d sensors", len(totals), len(a.Sensors))
	}
	var sum float64
	for _, v := range totals {
		sum += v
	}
	all, err := a.Integrate(-10, 10, -10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if all <= 0 || different(sum, all, 1e-9) {
		t.Errorf("sum of sensors %g, whole array %g", sum, all)
	}

	// The blobs are centered near the origin, so the four central sensors
	// collect the most light.
	if !(totals[5] > totals[0] && totals[6] > totals[15]) {
		t.Errorf("totals %v", totals)
	}

	var buf bytes.Buffer
	if err := WriteTotals(&buf, a.Sensors, totals); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(a.Sensors)+1 || !strings.Contains(lines[0], "total") {
		t.Errorf("CSV:\n%s", buf.String())
	}
}

func TestTopArrayErrors(t *testing.T) {
	a := testTopArray(t, 0)
	if _, err := a.Integrate(0, 1, 0, 1); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("before Fill: have %v, want ErrInvalidConfiguration", err)
	}
	if _, err := a.Totals(); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("totals before Fill: have %v, want ErrInvalidConfiguration", err)
	}
	patterns := scenarioPatterns(t)
	if err := a.Fill(make([]float64, 6), patterns); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("length: have %v, want ErrDimensionMismatch", err)
	}
	if err := a.Fill([]float64{1, -1, 0, 0, 0, 0, 0}, patterns); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("negative: have %v, want ErrInvalidConfiguration", err)
	}
	patterns[2] = nil
	if err := a.Fill([]float64{0, 0, 1, 0, 0, 0, 0}, patterns); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("nil pattern: have %v, want ErrDimensionMismatch", err)
	}
	if err := WriteTotals(&bytes.Buffer{}, a.Sensors, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("totals: have %v, want ErrDimensionMismatch", err)
	}
	if _, err := NewTopArray(10, TopArrayConfig{GridStep: 0}, nil); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("grid step: have %v, want ErrInvalidConfiguration", err)
	}
}
