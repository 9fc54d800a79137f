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
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

// OccupancyRow is one row of a mesh occupancy table.
type OccupancyRow struct {
	Cell           int     `csv:"cell"`
	Electrons      int     `csv:"electrons"`
	Photoelectrons float64 `csv:"photoelectrons"`
}

// WriteOccupancy writes one CSV row per mesh cell with its electron count
// and the photoelectrons they produce at the given gain.
func WriteOccupancy(w io.Writer, electrons []int, gain float64) error {
	pe := SEGain(electrons, gain)
	rows := make([]OccupancyRow, len(electrons))
	for i, n := range electrons {
		rows[i] = OccupancyRow{Cell: i, Electrons: n, Photoelectrons: pe[i]}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("xds: writing occupancy: %w", err)
	}
	return nil
}

// ReadOccupancy reads a table written by WriteOccupancy and returns the
// photoelectrons per cell. Rows must list cells 0, 1, 2, ... in order.
func ReadOccupancy(r io.Reader) ([]float64, error) {
	var rows []OccupancyRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("xds: reading occupancy: %w", err)
	}
	pe := make([]float64, len(rows))
	for i, row := range rows {
		if row.Cell != i {
			return nil, newError(ErrDimensionMismatch, "ReadOccupancy", "rows must list cells in order",
				"row", i, "cell", row.Cell)
		}
		pe[i] = row.Photoelectrons
	}
	return pe, nil
}
