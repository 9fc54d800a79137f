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
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"github.com/xenoscope/xds/spline"
)

// MaxTraces is the largest trace count accepted without ForceTraces.
const MaxTraces = 10000000

// PatternConfig holds the settings of the light collection efficiency
// pattern simulation.
type PatternConfig struct {
	XBinStep, YBinStep float64 // histogram bin widths [mm]
	Traces             int     // photons simulated per pattern
	Smoothing          float64 // spline smoothing weight; 0 interpolates exactly

	// ForceTraces allows Traces >= MaxTraces.
	ForceTraces bool
}

// DefaultPatternConfig returns 1 mm bins and one million traces.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{XBinStep: 1, YBinStep: 1, Traces: 1000000}
}

// Validate checks the settings.
func (c PatternConfig) Validate() error {
	const op = "PatternConfig"
	if !(c.XBinStep > 0) || !(c.YBinStep > 0) || math.IsInf(c.XBinStep, 0) || math.IsInf(c.YBinStep, 0) {
		return newError(ErrInvalidConfiguration, op, "bin steps must be finite and > 0",
			"XBinStep", c.XBinStep, "YBinStep", c.YBinStep)
	}
	if c.Traces <= 0 {
		return newError(ErrInvalidConfiguration, op, "trace count must be > 0", "Traces", c.Traces)
	}
	if c.Traces >= MaxTraces && !c.ForceTraces {
		return newError(ErrResourceGuard, op, fmt.Sprintf("trace count must be < %d unless ForceTraces is set", MaxTraces),
			"Traces", c.Traces)
	}
	if !(c.Smoothing >= 0) || math.IsInf(c.Smoothing, 0) {
		return newError(ErrInvalidConfiguration, op, "smoothing must be finite and >= 0", "Smoothing", c.Smoothing)
	}
	return nil
}

// BinArea returns the area of one histogram bin [mm²].
func (c PatternConfig) BinArea() float64 { return c.XBinStep * c.YBinStep }

// Density is the photon density on the sensor plane: the fraction of all
// emitted photons per mm² that hits each bin.
type Density struct {
	XCenters, YCenters []float64
	Values             []float64 // x-major
	Traces, Survivors  int
}

// Pattern is the light collection efficiency of one emission point: the
// smoothed photon density [fraction/mm²] on the sensor plane.
type Pattern struct {
	Cell              int // mesh cell index, or -1
	X0, Y0, Z0        float64
	ZTarget           float64
	Traces, Survivors int
	Smoothing         float64
	Spline            *spline.Spline
}

// Eval returns the density at (x, y). Negative spline undershoots are
// returned as 0.
func (p *Pattern) Eval(x, y float64) float64 {
	return math.Max(0, p.Spline.Eval(x, y))
}

// EvalGrid returns the densities on the grid xs × ys, x-major.
func (p *Pattern) EvalGrid(xs, ys []float64) []float64 {
	v := p.Spline.EvalGrid(xs, ys)
	for i := range v {
		v[i] = math.Max(0, v[i])
	}
	return v
}

// Integral returns the integral of the density spline over the rectangle
// [x0, x1] × [y0, y1].
func (p *Pattern) Integral(x0, x1, y0, y1 float64) float64 {
	return p.Spline.Integral(x0, x1, y0, y1)
}

// PatternGenerator simulates light collection efficiency patterns for
// photons emitted at the liquid surface toward the sensor plane of a TPC.
//
// Photons travel in straight lines; there is no scattering, reflection or
// refraction at the liquid surface. Directions are sampled on the upper
// hemisphere only, and the density is normalized by twice the trace count
// so that it is a fraction of photons emitted in all directions.
type PatternGenerator struct {
	TPC    *TPC
	Config PatternConfig

	// Log receives one line per pattern. If nil, the standard logger is used.
	Log logrus.FieldLogger
}

// NewPatternGenerator validates cfg and returns a generator.
func NewPatternGenerator(tpc *TPC, cfg PatternConfig) (*PatternGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PatternGenerator{TPC: tpc, Config: cfg}, nil
}

func (g *PatternGenerator) log() logrus.FieldLogger {
	if g.Log == nil {
		return logrus.StandardLogger()
	}
	return g.Log
}

// histogramEdges returns the bin edges, which span ±ceil(1.1·R).
func (g *PatternGenerator) histogramEdges() (x, y []float64) {
	lim := math.Ceil(1.1 * g.TPC.Radius)
	return edges(-lim, lim, g.Config.XBinStep), edges(-lim, lim, g.Config.YBinStep)
}

// Histogram traces photons emitted at (x0, y0, z0) to the sensor plane at
// zTarget and bins those landing within the sensor array radius. It
// returns the histogram and the number of photons that hit the array.
func (g *PatternGenerator) Histogram(x0, y0, z0, zTarget float64, src rand.Source) (*Histogram, int, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, 0, err
	}
	xe, ye := g.histogramEdges()
	h, err := NewHistogram(xe, ye)
	if err != nil {
		return nil, 0, err
	}
	if !(zTarget > z0) || math.IsInf(zTarget, 0) {
		return nil, 0, newError(ErrInvalidConfiguration, "PatternGenerator.Histogram",
			"target plane must be above the emission point", "z0", z0, "zTarget", zTarget)
	}
	rng := rand.New(src)
	dz := zTarget - z0
	radius := g.TPC.Radius
	survivors := 0
	for k := 0; k < g.Config.Traces; k++ {
		theta := rng.Float64() * math.Pi / 2
		phi := rng.Float64() * 2 * math.Pi
		r := dz * math.Tan(theta)
		x := x0 + r*math.Cos(phi)
		y := y0 + r*math.Sin(phi)
		if !(R(x, y) < radius) {
			continue
		}
		survivors++
		h.Fill(x, y)
	}
	if h.Entries != survivors || h.Sum() != float64(survivors) {
		return nil, 0, newError(ErrDimensionMismatch, "PatternGenerator.Histogram",
			"every photon on the array must land in the histogram",
			"entries", h.Entries, "counts", h.Sum(), "hits", survivors)
	}
	return h, survivors, nil
}

// Density returns the normalized photon density of photons emitted at
// (x0, y0, z0) toward the plane zTarget. Counts are divided by
// bin area · 2 · traces.
func (g *PatternGenerator) Density(x0, y0, z0, zTarget float64, src rand.Source) (*Density, error) {
	h, survivors, err := g.Histogram(x0, y0, z0, zTarget, src)
	if err != nil {
		return nil, err
	}
	norm := 1 / (g.Config.BinArea() * 2 * float64(g.Config.Traces))
	v := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		v[i] = c * norm
	}
	return &Density{
		XCenters:  h.XCenters(),
		YCenters:  h.YCenters(),
		Values:    v,
		Traces:    g.Config.Traces,
		Survivors: survivors,
	}, nil
}

// Generate simulates the pattern of the given mesh cell, with photons
// emitted from the cell center at the liquid surface toward the sensors.
func (g *PatternGenerator) Generate(cell int, src rand.Source) (*Pattern, error) {
	if cell < 0 || cell >= g.TPC.Mesh.Len() {
		return nil, newError(ErrDimensionMismatch, "PatternGenerator.Generate", "cell index must be inside the mesh",
			"cell", cell, "cells", g.TPC.Mesh.Len())
	}
	c := g.TPC.Mesh.Cells[cell].Center
	p, err := g.GenerateAt(c.X, c.Y, g.TPC.LiquidLevel, g.TPC.ZAnode, src)
	if err != nil {
		return nil, fmt.Errorf("xds: pattern of cell %d: %w", cell, err)
	}
	p.Cell = cell
	return p, nil
}

// GenerateAt simulates the pattern of an arbitrary emission point.
func (g *PatternGenerator) GenerateAt(x0, y0, z0, zTarget float64, src rand.Source) (*Pattern, error) {
	d, err := g.Density(x0, y0, z0, zTarget, src)
	if err != nil {
		return nil, err
	}
	s, err := spline.New(d.XCenters, d.YCenters, d.Values, g.Config.Smoothing)
	if err != nil {
		return nil, fmt.Errorf("xds: fitting pattern: %w", err)
	}
	g.log().WithFields(logrus.Fields{
		"x0":        x0,
		"y0":        y0,
		"traces":    d.Traces,
		"survivors": d.Survivors,
	}).Debug("xds: pattern done")
	return &Pattern{
		Cell:      -1,
		X0:        x0,
		Y0:        y0,
		Z0:        z0,
		ZTarget:   zTarget,
		Traces:    d.Traces,
		Survivors: d.Survivors,
		Smoothing: g.Config.Smoothing,
		Spline:    s,
	}, nil
}
