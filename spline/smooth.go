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

package spline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// smoother solves (I + λDᵀD) g = z for one axis, where D is the
// second-difference operator.
type smoother struct {
	n    int
	chol mat.Cholesky
}

func newSmoother(n int, lambda float64) (*smoother, error) {
	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, 1)
	}
	d := [3]float64{1, -2, 1}
	for k := 0; k+2 < n; k++ {
		for p := 0; p < 3; p++ {
			for q := p; q < 3; q++ {
				i, j := k+p, k+q
				a.SetSym(i, j, a.At(i, j)+lambda*d[p]*d[q])
			}
		}
	}
	s := &smoother{n: n}
	if ok := s.chol.Factorize(a); !ok {
		return nil, fmt.Errorf("spline: smoothing matrix of size %d is not positive definite", n)
	}
	return s, nil
}

// apply smooths the line z[off], z[off+stride], ... in place.
func (s *smoother) apply(z []float64, off, stride int) error {
	b := mat.NewVecDense(s.n, nil)
	for i := 0; i < s.n; i++ {
		b.SetVec(i, z[off+i*stride])
	}
	var g mat.VecDense
	if err := s.chol.SolveVecTo(&g, b); err != nil {
		return fmt.Errorf("spline: smoothing: %v", err)
	}
	for i := 0; i < s.n; i++ {
		z[off+i*stride] = g.AtVec(i)
	}
	return nil
}

// smooth applies the penalized smoother along x and then along y to the
// x-major values z of an nx × ny grid.
func smooth(z []float64, nx, ny int, lambda float64) error {
	sx, err := newSmoother(nx, lambda)
	if err != nil {
		return err
	}
	sy, err := newSmoother(ny, lambda)
	if err != nil {
		return err
	}
	for j := 0; j < ny; j++ {
		if err := sx.apply(z, j, ny); err != nil {
			return err
		}
	}
	for i := 0; i < nx; i++ {
		if err := sy.apply(z, i*ny, 1); err != nil {
			return err
		}
	}
	return nil
}
