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
	"math"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Cell is one hexagonal cell of the gate mesh.
type Cell struct {
	geom.Polygon // cell outline

	Center geom.Point
	Index  int // position in Mesh.Cells
}

// Mesh is a hexagonal lattice of cells cropped to a circle. It is
// immutable after construction and may be shared between goroutines.
type Mesh struct {
	Radius float64 // crop radius [mm]
	Side   float64 // hexagon side [mm]
	Cells  []*Cell

	index *rtree.Rtree
}

// NewMesh builds a lattice of pointy-topped hexagons with the given side.
// Columns are one short diagonal (side·√3) apart, rows 1.5·side apart and
// odd rows are offset by half a column. Only cells whose centers satisfy
// r < radius are kept.
func NewMesh(radius, side float64) (*Mesh, error) {
	if !(radius > 0) || !(side > 0) || math.IsInf(radius, 0) || math.IsInf(side, 0) {
		return nil, newError(ErrInvalidConfiguration, "NewMesh", "radius and side must be finite and > 0",
			"radius", radius, "side", side)
	}
	pitch := side * math.Sqrt(3)
	rowStep := 1.5 * side
	nx := 2 * int(math.Ceil(radius/pitch))
	ny := 2 * int(math.Ceil(radius/rowStep))

	pts := make([]geom.Point, 0, nx*ny)
	var mx, my float64
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			p := geom.Point{X: float64(i) * pitch, Y: float64(j) * rowStep}
			if j%2 == 1 {
				p.X += pitch / 2
			}
			mx += p.X
			my += p.Y
			pts = append(pts, p)
		}
	}
	mx /= float64(len(pts))
	my /= float64(len(pts))

	m := &Mesh{Radius: radius, Side: side, index: rtree.NewTree(25, 50)}
	for _, p := range pts {
		c := geom.Point{X: p.X - mx, Y: p.Y - my}
		if R(c.X, c.Y) >= radius {
			continue
		}
		cell := &Cell{Polygon: hexagon(c, side), Center: c, Index: len(m.Cells)}
		m.Cells = append(m.Cells, cell)
		m.index.Insert(cell)
	}
	if len(m.Cells) == 0 {
		return nil, newError(ErrInvalidConfiguration, "NewMesh", "no cell center inside the radius",
			"radius", radius, "side", side)
	}
	return m, nil
}

func hexagon(c geom.Point, side float64) geom.Polygon {
	path := make([]geom.Point, 7)
	for k := 0; k < 6; k++ {
		a := math.Pi/2 + float64(k)*math.Pi/3
		path[k] = geom.Point{X: c.X + side*math.Cos(a), Y: c.Y + side*math.Sin(a)}
	}
	path[6] = path[0]
	return geom.Polygon{path}
}

// Len returns the number of cells.
func (m *Mesh) Len() int { return len(m.Cells) }

// Centers returns the cell center coordinates in cell order.
func (m *Mesh) Centers() (x, y []float64) {
	x = make([]float64, len(m.Cells))
	y = make([]float64, len(m.Cells))
	for i, c := range m.Cells {
		x[i], y[i] = c.Center.X, c.Center.Y
	}
	return x, y
}

// NearestCell returns the index of the cell whose center is closest to
// (x, y). Ties go to the lowest index. It returns -1 if either coordinate
// is NaN.
func (m *Mesh) NearestCell(x, y float64) int {
	if math.IsNaN(x) || math.IsNaN(y) {
		return -1
	}
	p := geom.Point{X: x, Y: y}
	b := &geom.Bounds{
		Min: geom.Point{X: x - m.Side, Y: y - m.Side},
		Max: geom.Point{X: x + m.Side, Y: y + m.Side},
	}
	best, bestD := -1, math.Inf(1)
	for _, s := range m.index.SearchIntersect(b) {
		best, bestD = closer(s.(*Cell), p, best, bestD)
	}
	// Any center closer than one side is inside the search box.
	if best >= 0 && bestD <= m.Side*m.Side {
		return best
	}
	best, bestD = -1, math.Inf(1)
	for _, c := range m.Cells {
		best, bestD = closer(c, p, best, bestD)
	}
	return best
}

func closer(c *Cell, p geom.Point, best int, bestD float64) (int, float64) {
	dx, dy := c.Center.X-p.X, c.Center.Y-p.Y
	d := dx*dx + dy*dy
	if d < bestD || (d == bestD && c.Index < best) {
		return c.Index, d
	}
	return best, bestD
}

// nearestAll concurrently finds the nearest cell of every point.
func (m *Mesh) nearestAll(x, y []float64) []int {
	idx := make([]int, len(x))
	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < len(x); ii += nprocs {
				idx[ii] = m.NearestCell(x[ii], y[ii])
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
	return idx
}

func checkLengths(op string, x, y []float64) error {
	if len(x) != len(y) {
		return newError(ErrDimensionMismatch, op, "x and y must have the same length",
			"len(x)", len(x), "len(y)", len(y))
	}
	return nil
}

// Focus moves every point to the center of its nearest cell and returns
// the focused coordinates together with the cell indices. Points with NaN
// coordinates keep index -1 and NaN coordinates.
func (m *Mesh) Focus(x, y []float64) (fx, fy []float64, cells []int, err error) {
	if err := checkLengths("Focus", x, y); err != nil {
		return nil, nil, nil, err
	}
	cells = m.nearestAll(x, y)
	fx = make([]float64, len(x))
	fy = make([]float64, len(y))
	for i, c := range cells {
		if c < 0 {
			fx[i], fy[i] = math.NaN(), math.NaN()
			continue
		}
		fx[i], fy[i] = m.Cells[c].Center.X, m.Cells[c].Center.Y
	}
	return fx, fy, cells, nil
}

// CountOccupancy assigns every point to its nearest cell and returns the
// number of points per cell. It fails if the counts do not add up to the
// number of points.
func (m *Mesh) CountOccupancy(x, y []float64) ([]int, error) {
	if err := checkLengths("CountOccupancy", x, y); err != nil {
		return nil, err
	}
	counts := make([]int, len(m.Cells))
	for _, c := range m.nearestAll(x, y) {
		if c >= 0 {
			counts[c]++
		}
	}
	var total int
	for _, n := range counts {
		total += n
	}
	if total != len(x) {
		return nil, newError(ErrDimensionMismatch, "CountOccupancy",
			"occupancy must add up to the number of points", "counted", total, "points", len(x))
	}
	return counts, nil
}
