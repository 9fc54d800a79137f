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

	"gonum.org/v1/gonum/floats"
)

// Histogram is a 2D histogram on uniform bins.
type Histogram struct {
	XEdges, YEdges []float64

	// Counts are stored x-major: Counts[i*(len(YEdges)-1)+j] is the
	// count of bin (i, j).
	Counts []float64

	// Entries is the number of points that fell inside the edges.
	Entries int
}

// edges returns lo, lo+step, ... up to hi, including hi when it is a
// whole number of steps from lo.
func edges(lo, hi, step float64) []float64 {
	n := int(math.Floor((hi-lo)/step+0.1)) + 1
	e := make([]float64, n)
	for i := range e {
		e[i] = lo + float64(i)*step
	}
	return e
}

// NewHistogram returns an empty histogram with the given bin edges.
func NewHistogram(xEdges, yEdges []float64) (*Histogram, error) {
	if len(xEdges) < 2 || len(yEdges) < 2 {
		return nil, newError(ErrInvalidConfiguration, "NewHistogram", "need at least one bin per axis",
			"x edges", len(xEdges), "y edges", len(yEdges))
	}
	return &Histogram{
		XEdges: xEdges,
		YEdges: yEdges,
		Counts: make([]float64, (len(xEdges)-1)*(len(yEdges)-1)),
	}, nil
}

// bin returns the bin of v in the uniform edges e, or -1 if v is outside.
// A value on the last edge belongs to the last bin.
func bin(e []float64, v float64) int {
	nb := len(e) - 1
	if !(v >= e[0] && v <= e[nb]) {
		return -1
	}
	i := int((v - e[0]) / (e[1] - e[0]))
	if i > nb-1 {
		i = nb - 1
	}
	// Correct for rounding in the division.
	if v < e[i] && i > 0 {
		i--
	} else if i < nb-1 && v >= e[i+1] {
		i++
	}
	return i
}

// Fill adds the point (x, y) and reports whether it was inside the edges.
func (h *Histogram) Fill(x, y float64) bool {
	i, j := bin(h.XEdges, x), bin(h.YEdges, y)
	if i < 0 || j < 0 {
		return false
	}
	h.Counts[i*(len(h.YEdges)-1)+j]++
	h.Entries++
	return true
}

// Sum returns the total count.
func (h *Histogram) Sum() float64 { return floats.Sum(h.Counts) }

func centers(e []float64) []float64 {
	c := make([]float64, len(e)-1)
	for i := range c {
		c[i] = (e[i] + e[i+1]) / 2
	}
	return c
}

// XCenters returns the centers of the x bins.
func (h *Histogram) XCenters() []float64 { return centers(h.XEdges) }

// YCenters returns the centers of the y bins.
func (h *Histogram) YCenters() []float64 { return centers(h.YEdges) }
