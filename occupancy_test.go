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
	"strings"
	"testing"
)

func TestOccupancyTable(t *testing.T) {
	var b bytes.Buffer
	if err := WriteOccupancy(&b, []int{10, 0, 3}, 2); err != nil {
		t.Fatal(err)
	}
	pe, err := ReadOccupancy(&b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{20, 0, 6}
	if len(pe) != len(want) {
		t.Fatalf("%v, want %v", pe, want)
	}
	for i := range want {
		if pe[i] != want[i] {
			t.Errorf("cell %d: %g, want %g", i, pe[i], want[i])
		}
	}

	shuffled := "cell,electrons,photoelectrons\n1,1,1\n0,1,1\n"
	if _, err := ReadOccupancy(strings.NewReader(shuffled)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("have %v, want ErrDimensionMismatch", err)
	}
}
