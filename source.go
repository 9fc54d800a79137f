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
	"math"

	"github.com/gocarina/gocsv"
)

// gevToKeV converts source energies from GeV to keV.
const gevToKeV = 1e6

// Interaction is one energy deposit in the liquid xenon.
type Interaction struct {
	X      float64 `csv:"x_position"`
	Y      float64 `csv:"y_position"`
	Z      float64 `csv:"z_position"`
	Energy float64 `csv:"energy_dep"` // keV once loaded; GeV in the file
}

// InteractionType is the kind of recoil of an interaction.
type InteractionType string

// Interaction types.
const (
	NuclearRecoil  InteractionType = "NR"
	ElectronRecoil InteractionType = "ER"
)

// YieldService converts an energy deposit [keV] at the given xenon density
// [g/cm³] and drift field [V/cm] into a number of ionization electrons.
type YieldService interface {
	ElectronYield(energy, density, field float64, kind InteractionType) (int, error)
}

// LinearYield is a YieldService with a fixed number of electrons per keV,
// for use when no detailed yield model is available.
type LinearYield float64

// ElectronYield implements YieldService.
func (y LinearYield) ElectronYield(energy, _, _ float64, _ InteractionType) (int, error) {
	if !(energy >= 0) || math.IsInf(energy, 0) {
		return 0, newError(ErrInvalidParameter, "LinearYield", "energy must be finite and >= 0", "energy", energy)
	}
	if !(y >= 0) || math.IsInf(float64(y), 0) {
		return 0, newError(ErrInvalidParameter, "LinearYield", "electrons per keV must be finite and >= 0",
			"yield", float64(y))
	}
	return int(energy * float64(y)), nil
}

// Source is a list of interaction vertices.
type Source struct {
	Interactions []Interaction
}

// ReadSource reads interactions from CSV with the columns x_position,
// y_position, z_position and energy_dep [GeV].
func ReadSource(r io.Reader) (*Source, error) {
	var rows []Interaction
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("xds: reading source: %w", err)
	}
	for i := range rows {
		rows[i].Energy *= gevToKeV
	}
	return &Source{Interactions: rows}, nil
}

// Energies returns the deposited energies [keV].
func (s *Source) Energies() []float64 {
	e := make([]float64, len(s.Interactions))
	for i, v := range s.Interactions {
		e[i] = v.Energy
	}
	return e
}

// EnergyRange returns the smallest and largest deposit [keV].
func (s *Source) EnergyRange() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range s.Interactions {
		min = math.Min(min, v.Energy)
		max = math.Max(max, v.Energy)
	}
	return min, max
}

// Electrons returns the number of ionization electrons of every vertex.
func (s *Source) Electrons(ys YieldService, kind InteractionType, density, field float64) ([]int, error) {
	n := make([]int, len(s.Interactions))
	for i, v := range s.Interactions {
		var err error
		if n[i], err = ys.ElectronYield(v.Energy, density, field, kind); err != nil {
			return nil, fmt.Errorf("xds: yield of interaction %d: %w", i, err)
		}
		if n[i] < 0 {
			return nil, newError(ErrInvalidParameter, "Source.Electrons", "electron yield must be >= 0",
				"interaction", i, "electrons", n[i])
		}
	}
	return n, nil
}

// Cloud places electrons[i] electrons at the position of vertex i.
func (s *Source) Cloud(electrons []int) (*Cloud, error) {
	if len(electrons) != len(s.Interactions) {
		return nil, newError(ErrDimensionMismatch, "Source.Cloud", "one electron count per interaction",
			"counts", len(electrons), "interactions", len(s.Interactions))
	}
	var total int
	for i, n := range electrons {
		if n < 0 {
			return nil, newError(ErrInvalidParameter, "Source.Cloud", "electron count must be >= 0",
				"interaction", i, "electrons", n)
		}
		total += n
	}
	c := &Cloud{
		X: make([]float64, 0, total),
		Y: make([]float64, 0, total),
		Z: make([]float64, 0, total),
	}
	for i, v := range s.Interactions {
		for k := 0; k < electrons[i]; k++ {
			c.X = append(c.X, v.X)
			c.Y = append(c.Y, v.Y)
			c.Z = append(c.Z, v.Z)
		}
	}
	return c, nil
}
