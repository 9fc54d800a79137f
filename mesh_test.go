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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

func TestMeshCrop(t *testing.T) {
	m, err := NewMesh(20, 1.56)
	if err != nil {
		t.Fatal(err)
	}
	x, y := m.Centers()
	for i := range x {
		if R(x[i], y[i]) >= 20 {
			t.Errorf("cell %d at r=%g is outside the radius", i, R(x[i], y[i]))
		}
	}
	// The hexagons tile the disc, so the cell count is close to the
	// ratio of areas.
	hexArea := 1.5 * math.Sqrt(3) * 1.56 * 1.56
	want := math.Pi * 20 * 20 / hexArea
	if n := float64(m.Len()); math.Abs(n-want)/want > 0.1 {
		t.Errorf("%d cells, want about %.0f", m.Len(), want)
	}
}

func TestMeshSpacing(t *testing.T) {
	m, err := NewMesh(10, 1.56)
	if err != nil {
		t.Fatal(err)
	}
	pitch := 1.56 * math.Sqrt(3)
	x, y := m.Centers()
	for i := range x {
		nearest := math.Inf(1)
		for j := range x {
			if i != j {
				nearest = math.Min(nearest, R(x[i]-x[j], y[i]-y[j]))
			}
		}
		if different(nearest, pitch, 1e-9) {
			t.Fatalf("cell %d: nearest neighbor at %g, want %g", i, nearest, pitch)
		}
	}
}

func TestNearestCellIdempotent(t *testing.T) {
	m, err := NewMesh(15, 1.56)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range m.Cells {
		if n := m.NearestCell(c.Center.X, c.Center.Y); n != i {
			t.Errorf("cell %d: nearest is %d", i, n)
		}
	}
}

func TestNearestCellBruteForce(t *testing.T) {
	m, err := NewMesh(15, 1.56)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for k := 0; k < 2000; k++ {
		// Include points outside of the mesh.
		x, y := 40*rng.Float64()-20, 40*rng.Float64()-20
		want, wantD := -1, math.Inf(1)
		for _, c := range m.Cells {
			if d := R(c.Center.X-x, c.Center.Y-y); d < wantD {
				want, wantD = c.Index, d
			}
		}
		if have := m.NearestCell(x, y); have != want {
			t.Fatalf("(%g, %g): have cell %d, want %d", x, y, have, want)
		}
	}
	if m.NearestCell(math.NaN(), 0) != -1 {
		t.Error("NaN point should have no cell")
	}
}

// mirrorMesh returns cells at (-1, 0) and (1, 0) with a third cell far
// up the y axis. Cells are indexed in the order of centers but inserted
// into the index in reverse.
func mirrorMesh() *Mesh {
	const side = 1.5
	centers := []geom.Point{{X: -1, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 5}}
	m := &Mesh{Radius: 10, Side: side, index: rtree.NewTree(25, 50)}
	for i, c := range centers {
		m.Cells = append(m.Cells, &Cell{Polygon: hexagon(c, side), Center: c, Index: i})
	}
	for i := len(m.Cells) - 1; i >= 0; i-- {
		m.index.Insert(m.Cells[i])
	}
	return m
}

func TestNearestCellTie(t *testing.T) {
	m := mirrorMesh()
	for _, test := range []struct {
		x, y float64
	}{
		{0, 0}, // found through the index
		{0, 1},
		{0, -10}, // outside the search box, found by the full scan
	} {
		if have := m.NearestCell(test.x, test.y); have != 0 {
			t.Errorf("(%g, %g): have cell %d, want 0", test.x, test.y, have)
		}
	}
	// Swapping the indices moves the tie to the other cell.
	m.Cells[0].Index, m.Cells[1].Index = 1, 0
	m.Cells[0], m.Cells[1] = m.Cells[1], m.Cells[0]
	for _, y := range []float64{0, -10} {
		if have := m.NearestCell(0, y); have != 0 || m.Cells[0].Center.X != 1 {
			t.Errorf("(0, %g): have cell %d, want 0 at x=1", y, have)
		}
	}
}

func TestCountOccupancy(t *testing.T) {
	m, err := NewMesh(15, 1.56)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(3, 4))
	x := make([]float64, 5000)
	y := make([]float64, 5000)
	for i := range x {
		x[i], y[i] = 3*rng.NormFloat64(), 3*rng.NormFloat64()
	}
	counts, err := m.CountOccupancy(x, y)
	if err != nil {
		t.Fatal(err)
	}
	var total int
	for _, n := range counts {
		total += n
	}
	if total != len(x) {
		t.Errorf("counted %d of %d points", total, len(x))
	}

	fx, fy, cells, err := m.Focus(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for i := range fx {
		c := m.Cells[cells[i]]
		if fx[i] != c.Center.X || fy[i] != c.Center.Y {
			t.Fatalf("point %d focused to (%g, %g), not to cell %d", i, fx[i], fy[i], cells[i])
		}
	}

	x[17] = math.NaN()
	if _, err := m.CountOccupancy(x, y); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("NaN point: have %v, want ErrDimensionMismatch", err)
	}
	if _, err := m.CountOccupancy(x, y[:10]); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("short y: have %v, want ErrDimensionMismatch", err)
	}
}

func TestNewMeshErrors(t *testing.T) {
	if _, err := NewMesh(0, 1.56); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("zero radius: %v", err)
	}
	if _, err := NewMesh(10, -1); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("negative side: %v", err)
	}
}
