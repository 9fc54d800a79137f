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

// Package spline implements a tensor-product natural cubic spline over a
// rectilinear grid, with optional penalized smoothing, point and grid
// evaluation, and exact integration over axis-aligned rectangles.
package spline

import (
	"fmt"
	"math"
	"sort"
)

// Spline is a bivariate natural cubic spline z(x, y). Values are stored
// x-major: Z[i*len(Y)+j] is the value at (X[i], Y[j]). The exported fields
// allow the spline to be serialized with encoding/gob.
type Spline struct {
	X, Y []float64 // knots, strictly increasing

	Z     []float64 // values at the knots
	Zxx   []float64 // ∂²z/∂x² at the knots
	Zyy   []float64 // ∂²z/∂y² at the knots
	Zxxyy []float64 // ∂⁴z/∂x²∂y² at the knots
}

// New fits a spline through the values z on the grid x × y, where
// z[i*len(y)+j] corresponds to (x[i], y[j]). If smoothing is zero the spline
// passes exactly through z. If smoothing is positive the values are first
// smoothed along each axis by penalized least squares with smoothing as the
// weight of the second-difference penalty, and the spline passes through the
// smoothed values.
func New(x, y, z []float64, smoothing float64) (*Spline, error) {
	if err := checkKnots("x", x); err != nil {
		return nil, err
	}
	if err := checkKnots("y", y); err != nil {
		return nil, err
	}
	if len(z) != len(x)*len(y) {
		return nil, fmt.Errorf("spline: len(z)=%d but len(x)*len(y)=%d", len(z), len(x)*len(y))
	}
	if smoothing < 0 || math.IsNaN(smoothing) || math.IsInf(smoothing, 0) {
		return nil, fmt.Errorf("spline: smoothing=%g but should be finite and >= 0", smoothing)
	}
	nx, ny := len(x), len(y)
	s := &Spline{
		X:     append([]float64(nil), x...),
		Y:     append([]float64(nil), y...),
		Z:     append([]float64(nil), z...),
		Zxx:   make([]float64, nx*ny),
		Zyy:   make([]float64, nx*ny),
		Zxxyy: make([]float64, nx*ny),
	}
	if smoothing > 0 {
		if err := smooth(s.Z, nx, ny, smoothing); err != nil {
			return nil, err
		}
	}

	sx := newNatural(s.X)
	sy := newNatural(s.Y)
	for j := 0; j < ny; j++ {
		sx.secondDerivatives(s.Z, s.Zxx, j, ny)
	}
	for i := 0; i < nx; i++ {
		sy.secondDerivatives(s.Z, s.Zyy, i*ny, 1)
		sy.secondDerivatives(s.Zxx, s.Zxxyy, i*ny, 1)
	}
	return s, nil
}

func checkKnots(name string, t []float64) error {
	if len(t) < 2 {
		return fmt.Errorf("spline: need at least 2 %s knots but have %d", name, len(t))
	}
	for i := 1; i < len(t); i++ {
		if !(t[i] > t[i-1]) {
			return fmt.Errorf("spline: %s knots are not strictly increasing at index %d (%g, %g)",
				name, i, t[i-1], t[i])
		}
	}
	return nil
}

// natural holds the factorized tridiagonal system for natural cubic spline
// second derivatives on a fixed set of knots.
type natural struct {
	h    []float64 // interval widths
	cp   []float64 // modified super-diagonal
	beta []float64 // modified diagonal
}

func newNatural(t []float64) *natural {
	n := len(t)
	s := &natural{h: make([]float64, n-1)}
	for i := range s.h {
		s.h[i] = t[i+1] - t[i]
	}
	if n < 3 {
		return s
	}
	m := n - 2
	s.cp = make([]float64, m)
	s.beta = make([]float64, m)
	for i := 0; i < m; i++ {
		a := s.h[i] / 6
		b := (s.h[i] + s.h[i+1]) / 3
		c := s.h[i+1] / 6
		if i == 0 {
			s.beta[i] = b
		} else {
			s.beta[i] = b - a*s.cp[i-1]
		}
		s.cp[i] = c / s.beta[i]
	}
	return s
}

// secondDerivatives reads the line f[off], f[off+stride], ... and writes the
// natural spline second derivatives of that line to the same positions in out.
func (s *natural) secondDerivatives(f, out []float64, off, stride int) {
	n := len(s.h) + 1
	at := func(i int) int { return off + i*stride }
	out[at(0)], out[at(n-1)] = 0, 0
	if n < 3 {
		return
	}
	m := n - 2
	// Forward sweep; the solution is stored in place of the interior points.
	prev := 0.
	for i := 0; i < m; i++ {
		j := i + 1
		r := (f[at(j+1)]-f[at(j)])/s.h[j] - (f[at(j)]-f[at(j-1)])/s.h[j-1]
		if i > 0 {
			r -= s.h[i] / 6 * prev
		}
		prev = r / s.beta[i]
		out[at(j)] = prev
	}
	for i := m - 2; i >= 0; i-- {
		out[at(i+1)] -= s.cp[i] * out[at(i+2)]
	}
}

// interval returns the index of the knot interval containing v, with v
// inside [t[0], t[len(t)-1]].
func interval(t []float64, v float64) int {
	i := sort.SearchFloat64s(t, v) - 1
	if i < 0 {
		i = 0
	}
	if i > len(t)-2 {
		i = len(t) - 2
	}
	return i
}

// weights are the four cubic spline basis weights within one interval:
// value weights for the lower and upper knot and curvature weights for the
// lower and upper knot.
type weights struct {
	i          int
	a, b, c, d float64
	inside     bool
}

func weightsAt(t []float64, v float64) weights {
	if !(v >= t[0] && v <= t[len(t)-1]) {
		return weights{}
	}
	i := interval(t, v)
	h := t[i+1] - t[i]
	a := (t[i+1] - v) / h
	b := 1 - a
	return weights{
		i:      i,
		a:      a,
		b:      b,
		c:      (a*a*a - a) * h * h / 6,
		d:      (b*b*b - b) * h * h / 6,
		inside: true,
	}
}

func (s *Spline) combine(wx, wy weights) float64 {
	ny := len(s.Y)
	xw := [2]float64{wx.a, wx.b}
	xc := [2]float64{wx.c, wx.d}
	yw := [2]float64{wy.a, wy.b}
	yc := [2]float64{wy.c, wy.d}
	var v float64
	for p := 0; p < 2; p++ {
		row := (wx.i + p) * ny
		for q := 0; q < 2; q++ {
			k := row + wy.i + q
			v += xw[p]*yw[q]*s.Z[k] + xc[p]*yw[q]*s.Zxx[k] +
				xw[p]*yc[q]*s.Zyy[k] + xc[p]*yc[q]*s.Zxxyy[k]
		}
	}
	return v
}

// Eval returns the value of the spline at (x, y). Points outside of the
// knot domain evaluate to zero.
func (s *Spline) Eval(x, y float64) float64 {
	wx := weightsAt(s.X, x)
	wy := weightsAt(s.Y, y)
	if !wx.inside || !wy.inside {
		return 0
	}
	return s.combine(wx, wy)
}

// EvalGrid evaluates the spline at every point of the grid xs × ys and
// returns the values x-major: out[i*len(ys)+j] = Eval(xs[i], ys[j]).
func (s *Spline) EvalGrid(xs, ys []float64) []float64 {
	wxs := make([]weights, len(xs))
	for i, x := range xs {
		wxs[i] = weightsAt(s.X, x)
	}
	wys := make([]weights, len(ys))
	for j, y := range ys {
		wys[j] = weightsAt(s.Y, y)
	}
	out := make([]float64, len(xs)*len(ys))
	for i, wx := range wxs {
		if !wx.inside {
			continue
		}
		for j, wy := range wys {
			if !wy.inside {
				continue
			}
			out[i*len(ys)+j] = s.combine(wx, wy)
		}
	}
	return out
}

// Integral returns the integral of the spline over the rectangle
// [x0, x1] × [y0, y1]. The parts of the rectangle outside of the knot domain
// contribute nothing. Reversed limits give a zero result.
func (s *Spline) Integral(x0, x1, y0, y1 float64) float64 {
	ix := integrals(s.X, x0, x1)
	iy := integrals(s.Y, y0, y1)
	if len(ix) == 0 || len(iy) == 0 {
		return 0
	}
	ny := len(s.Y)
	var sum float64
	for _, wx := range ix {
		xw := [2]float64{wx.a, wx.b}
		xc := [2]float64{wx.c, wx.d}
		for _, wy := range iy {
			yw := [2]float64{wy.a, wy.b}
			yc := [2]float64{wy.c, wy.d}
			for p := 0; p < 2; p++ {
				row := (wx.i + p) * ny
				for q := 0; q < 2; q++ {
					k := row + wy.i + q
					sum += xw[p]*yw[q]*s.Z[k] + xc[p]*yw[q]*s.Zxx[k] +
						xw[p]*yc[q]*s.Zyy[k] + xc[p]*yc[q]*s.Zxxyy[k]
				}
			}
		}
	}
	return sum
}

// integrals returns, for every knot interval overlapping [lo, hi], the
// integrals of the four basis weights over the overlap.
func integrals(t []float64, lo, hi float64) []weights {
	lo = math.Max(lo, t[0])
	hi = math.Min(hi, t[len(t)-1])
	if !(hi > lo) {
		return nil
	}
	first := interval(t, lo)
	last := interval(t, hi)
	if t[last] == hi && last > first {
		last--
	}
	out := make([]weights, 0, last-first+1)
	for i := first; i <= last; i++ {
		h := t[i+1] - t[i]
		u0 := (math.Max(lo, t[i]) - t[i]) / h
		u1 := (math.Min(hi, t[i+1]) - t[i]) / h
		v0, v1 := 1-u0, 1-u1
		h3 := h * h * h / 6
		out = append(out, weights{
			i: i,
			a: h * (v0*v0 - v1*v1) / 2,
			b: h * (u1*u1 - u0*u0) / 2,
			c: h3 * ((pow4(v0)-pow4(v1))/4 - (v0*v0-v1*v1)/2),
			d: h3 * ((pow4(u1)-pow4(u0))/4 - (u1*u1-u0*u0)/2),
		})
	}
	return out
}

func pow4(v float64) float64 { v *= v; return v * v }

// Domain returns the extent of the knots.
func (s *Spline) Domain() (x0, x1, y0, y1 float64) {
	return s.X[0], s.X[len(s.X)-1], s.Y[0], s.Y[len(s.Y)-1]
}
