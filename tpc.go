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

// Package xds models electron transport and light collection efficiency
// in a cylindrical dual-phase xenon time projection chamber (TPC) with a
// hexagonal extraction mesh and a planar array of photosensors above it.
//
// Electrons are drifted through the liquid (Drift), focused onto the gate
// mesh cells (Mesh), and converted into photons whose density on the sensor
// plane has been precomputed for every cell (Pattern, GenerateLibrary).
// TopArray combines the per-cell patterns into the per-sensor response.
// Lengths are in mm, times in µs and drift fields in V/cm.
package xds

import (
	"math"

	"github.com/sirupsen/logrus"
)

// TPCConfig holds the TPC geometry and drift field.
type TPCConfig struct {
	Radius     float64 // radius of the TPC and of the sensor array [mm]
	Length     float64 // drift length in the liquid below the gate [mm]
	LiquidGap  float64 // distance from the gate to the liquid surface [mm]
	GasGap     float64 // distance from the liquid surface to the sensors [mm]
	DriftField float64 // V/cm
	MeshSide   float64 // side of the hexagonal gate mesh cells [mm]

	// Physics computes the transport coefficients. If nil,
	// DefaultPhysics is used.
	Physics Physics `toml:"-" mapstructure:"-"`
}

// DefaultTPCConfig returns the Xenoscope geometry.
func DefaultTPCConfig() TPCConfig {
	return TPCConfig{
		Radius:     75,
		Length:     2600,
		LiquidGap:  5,
		GasGap:     5,
		DriftField: 100,
		MeshSide:   1.56,
	}
}

// TPC is an immutable detector description. It may be shared between
// goroutines.
type TPC struct {
	TPCConfig

	// Planes, in increasing order: ZGate < LiquidLevel < ZAnode.
	ZGate, LiquidLevel, ZAnode float64

	Coefficients Coefficients

	// Mesh is the gate mesh.
	Mesh *Mesh
}

// NewTPC validates cfg, computes the transport coefficients and builds
// the gate mesh.
func NewTPC(cfg TPCConfig) (*TPC, error) {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"Radius", cfg.Radius},
		{"Length", cfg.Length},
		{"LiquidGap", cfg.LiquidGap},
		{"GasGap", cfg.GasGap},
		{"MeshSide", cfg.MeshSide},
	} {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return nil, newError(ErrInvalidConfiguration, "NewTPC", "lengths must be finite and > 0", p.name, p.v)
		}
	}
	if cfg.Physics == nil {
		cfg.Physics = DefaultPhysics()
	}
	coeffs, err := Evaluate(cfg.Physics, cfg.DriftField)
	if err != nil {
		return nil, err
	}
	mesh, err := NewMesh(cfg.Radius, cfg.MeshSide)
	if err != nil {
		return nil, err
	}
	t := &TPC{
		TPCConfig:    cfg,
		ZGate:        0,
		LiquidLevel:  cfg.LiquidGap,
		ZAnode:       cfg.LiquidGap + cfg.GasGap,
		Coefficients: coeffs,
		Mesh:         mesh,
	}
	return t, nil
}

// DriftTime returns the time [µs] an electron takes to drift the full length.
func (t *TPC) DriftTime() float64 {
	return t.Length / t.Coefficients.Velocity
}

// Fields returns the TPC parameters for structured logging.
func (t *TPC) Fields() logrus.Fields {
	return logrus.Fields{
		"radius":       t.Radius,
		"length":       t.Length,
		"field":        t.DriftField,
		"velocity":     t.Coefficients.Velocity,
		"diff_long":    t.Coefficients.Longitudinal,
		"diff_trans":   t.Coefficients.Transverse,
		"mesh_cells":   t.Mesh.Len(),
		"liquid_level": t.LiquidLevel,
		"z_anode":      t.ZAnode,
	}
}

// R returns the distance of (x, y) from the TPC axis.
func R(x, y float64) float64 { return math.Hypot(x, y) }
