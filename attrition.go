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
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// Boundary is the policy for electrons that diffused beyond the TPC radius.
type Boundary string

// Boundary policies.
const (
	// BoundaryClip clamps x and y to [-R, R]. The electron count is kept.
	BoundaryClip Boundary = "clip"
	// BoundaryDiscard removes electrons with r > R.
	BoundaryDiscard Boundary = "discard"
	// BoundaryNone leaves the electrons where they are.
	BoundaryNone Boundary = "none"
)

// DriftConfig holds the transport settings.
type DriftConfig struct {
	Dt                   float64 // time step [µs]
	ElectronLifetime     float64 // µs; +Inf disables lifetime losses
	ExtractionEfficiency float64 // fraction of electrons extracted into the gas
	Boundary             Boundary
	LongitudinalInZ      bool    // apply longitudinal diffusion along z
	SEGain               float64 // photoelectrons per extracted electron
}

// DefaultDriftConfig returns the Xurich II settings.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		Dt:                   1,
		ElectronLifetime:     2000,
		ExtractionEfficiency: 0.99,
		Boundary:             BoundaryClip,
		SEGain:               28.57,
	}
}

// Validate checks the settings.
func (c DriftConfig) Validate() error {
	const op = "DriftConfig"
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return newError(ErrInvalidConfiguration, op, "time step must be finite and > 0", "Dt", c.Dt)
	}
	if !(c.ElectronLifetime > 0) {
		return newError(ErrInvalidConfiguration, op, "electron lifetime must be > 0",
			"ElectronLifetime", c.ElectronLifetime)
	}
	if !(c.ExtractionEfficiency >= 0 && c.ExtractionEfficiency <= 1) {
		return newError(ErrInvalidConfiguration, op, "extraction efficiency must be in [0, 1]",
			"ExtractionEfficiency", c.ExtractionEfficiency)
	}
	if !(c.SEGain >= 0) || math.IsInf(c.SEGain, 0) {
		return newError(ErrInvalidConfiguration, op, "SE gain must be finite and >= 0", "SEGain", c.SEGain)
	}
	switch c.Boundary {
	case BoundaryClip, BoundaryDiscard, BoundaryNone:
	default:
		return newError(ErrInvalidConfiguration, op, `boundary must be "clip", "discard" or "none"`,
			"Boundary", c.Boundary)
	}
	return nil
}

// removeFraction removes round(n·frac) electrons chosen uniformly at
// random without replacement.
func removeFraction(c *Cloud, frac float64, src rand.Source) {
	n := c.Len()
	k := int(math.RoundToEven(float64(n) * frac))
	if k <= 0 || n == 0 {
		return
	}
	if k > n {
		k = n
	}
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, n, src)
	drop := make([]bool, n)
	for _, i := range idx {
		drop[i] = true
	}
	c.remove(drop)
}

// ElectronLifetime removes the fraction 1 - exp(-driftTime/lifetime) of the
// electrons, where both times are in µs.
func ElectronLifetime(lifetime, driftTime float64, src rand.Source) DriftManipulator {
	return func(d *Drift) error {
		if !(lifetime > 0) || !(driftTime >= 0) {
			return newError(ErrInvalidConfiguration, "ElectronLifetime",
				"lifetime must be > 0 and drift time >= 0", "lifetime", lifetime, "driftTime", driftTime)
		}
		removeFraction(d.Cloud, 1-math.Exp(-driftTime/lifetime), src)
		return nil
	}
}

// Extraction removes the fraction 1 - efficiency of the electrons.
func Extraction(efficiency float64, src rand.Source) DriftManipulator {
	return func(d *Drift) error {
		if !(efficiency >= 0 && efficiency <= 1) {
			return newError(ErrInvalidConfiguration, "Extraction", "efficiency must be in [0, 1]",
				"efficiency", efficiency)
		}
		removeFraction(d.Cloud, 1-efficiency, src)
		return nil
	}
}

// ClipToBox clamps x and y of every electron to [-r, r].
func ClipToBox(r float64) DriftManipulator {
	return func(d *Drift) error {
		c := d.Cloud
		for i := range c.X {
			c.X[i] = math.Max(-r, math.Min(r, c.X[i]))
			c.Y[i] = math.Max(-r, math.Min(r, c.Y[i]))
		}
		return nil
	}
}

// DiscardOutside removes electrons farther than r from the axis.
func DiscardOutside(r float64) DriftManipulator {
	return func(d *Drift) error {
		c := d.Cloud
		drop := make([]bool, c.Len())
		for i := range c.X {
			drop[i] = !(R(c.X[i], c.Y[i]) <= r)
		}
		c.remove(drop)
		return nil
	}
}

// Corrections returns a function that applies, in order, the lifetime
// losses over the full drift time of tpc, the extraction losses and the
// boundary policy of cfg.
func Corrections(cfg DriftConfig, tpc *TPC, src rand.Source) DriftManipulator {
	funcs := []DriftManipulator{
		ElectronLifetime(cfg.ElectronLifetime, tpc.DriftTime(), src),
		Extraction(cfg.ExtractionEfficiency, src),
	}
	switch cfg.Boundary {
	case BoundaryClip:
		funcs = append(funcs, ClipToBox(tpc.Radius))
	case BoundaryDiscard:
		funcs = append(funcs, DiscardOutside(tpc.Radius))
	}
	return func(d *Drift) error {
		for _, f := range funcs {
			if err := f(d); err != nil {
				return err
			}
		}
		return nil
	}
}

// SEGain converts electron counts into photoelectron counts.
func SEGain(electrons []int, gain float64) []float64 {
	pe := make([]float64, len(electrons))
	for i, n := range electrons {
		pe[i] = float64(n) * gain
	}
	return pe
}
