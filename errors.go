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
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is to match them.
var (
	// ErrInvalidConfiguration indicates non-physical parameters such as
	// negative lengths, non-positive time steps or negative diffusion.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidParameter indicates that a physics model was invoked
	// outside of its validated domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDimensionMismatch indicates mismatched lengths, including
	// violations of the histogram and occupancy conservation checks.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrResourceGuard indicates that a requested trial count exceeds
	// the safety threshold without an explicit override.
	ErrResourceGuard = errors.New("resource guard")
)

// Param is a named offending value.
type Param struct {
	Name  string
	Value interface{}
}

// Error is the error type returned by the engines in this package.
type Error struct {
	Kind       error   // One of the Err* kinds above.
	Op         string  // Operation that failed.
	Params     []Param // Offending parameters.
	Constraint string  // The constraint or invariant that was violated.
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "xds: %s: %v", e.Op, e.Kind)
	if len(e.Params) > 0 {
		b.WriteString(": ")
		for i, p := range e.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", p.Name, p.Value)
		}
	}
	if e.Constraint != "" {
		fmt.Fprintf(&b, ": %s", e.Constraint)
	}
	return b.String()
}

// Unwrap returns the kind of e.
func (e *Error) Unwrap() error { return e.Kind }

// newError creates an error of the given kind. kv holds alternating
// parameter names and values.
func newError(kind error, op, constraint string, kv ...interface{}) *Error {
	e := &Error{Kind: kind, Op: op, Constraint: constraint}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Params = append(e.Params, Param{Name: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return e
}
