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
	"runtime"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
	"github.com/xenoscope/xds/spline"
)

// TopArrayConfig holds the settings of the sensor plane response.
type TopArrayConfig struct {
	GridStep  float64 // spacing of the shared evaluation grid [mm]
	Smoothing float64 // smoothing of the combined spline
}

// DefaultTopArrayConfig returns a 1 mm grid with exact interpolation.
func DefaultTopArrayConfig() TopArrayConfig {
	return TopArrayConfig{GridStep: 1}
}

// TopArray combines the patterns of all mesh cells, weighted by their
// occupancy, into the light response of the top sensor array.
type TopArray struct {
	TopArrayConfig
	Radius  float64
	Sensors []Sensor

	// X and Y are the shared grid, spanning [-Radius, Radius].
	X, Y []float64

	// Field is the accumulated weighted density on X × Y, x-major.
	Field []float64

	// Response is the spline through Field. It is nil until Fill succeeds.
	Response *spline.Spline

	// Workers is the number of goroutines used by Fill. If 0,
	// runtime.GOMAXPROCS(0) is used.
	Workers int

	Log logrus.FieldLogger
}

// NewTopArray returns a top array covering a TPC of the given radius.
func NewTopArray(radius float64, cfg TopArrayConfig, sensors []Sensor) (*TopArray, error) {
	const op = "NewTopArray"
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, newError(ErrInvalidConfiguration, op, "radius must be finite and > 0", "radius", radius)
	}
	if !(cfg.GridStep > 0) || cfg.GridStep > radius {
		return nil, newError(ErrInvalidConfiguration, op, "grid step must be in (0, radius]",
			"GridStep", cfg.GridStep, "radius", radius)
	}
	if !(cfg.Smoothing >= 0) || math.IsInf(cfg.Smoothing, 0) {
		return nil, newError(ErrInvalidConfiguration, op, "smoothing must be finite and >= 0", "Smoothing", cfg.Smoothing)
	}
	if err := checkSensors(sensors); err != nil {
		return nil, err
	}
	g := edges(-radius, radius, cfg.GridStep)
	if g[len(g)-1] < radius {
		g = append(g, radius)
	}
	return &TopArray{
		TopArrayConfig: cfg,
		Radius:         radius,
		Sensors:        sensors,
		X:              g,
		Y:              append([]float64(nil), g...),
	}, nil
}

func (a *TopArray) log() logrus.FieldLogger {
	if a.Log == nil {
		return logrus.StandardLogger()
	}
	return a.Log
}

// Fill accumulates weights[i] times pattern i over the grid and fits the
// combined response. Cells with zero weight are skipped. weights and
// patterns must have one entry per mesh cell.
func (a *TopArray) Fill(weights []float64, patterns []*Pattern) error {
	const op = "TopArray.Fill"
	if len(weights) != len(patterns) {
		return newError(ErrDimensionMismatch, op, "one pattern per occupancy entry",
			"occupancy", len(weights), "patterns", len(patterns))
	}
	for i, w := range weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return newError(ErrInvalidConfiguration, op, "occupancy must be finite and >= 0", "cell", i, "weight", w)
		}
		if w != 0 && patterns[i] == nil {
			return newError(ErrDimensionMismatch, op, "every occupied cell needs a pattern", "cell", i)
		}
	}

	nprocs := a.Workers
	if nprocs <= 0 {
		nprocs = runtime.GOMAXPROCS(0)
	}
	partial := make([][]float64, nprocs)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			var sum []float64
			for i := pp; i < len(weights); i += nprocs {
				if weights[i] == 0 {
					continue
				}
				v := patterns[i].EvalGrid(a.X, a.Y)
				if sum == nil {
					sum = make([]float64, len(v))
				}
				for k, vv := range v {
					sum[k] += weights[i] * vv
				}
			}
			partial[pp] = sum
		}(pp)
	}
	wg.Wait()

	field := make([]float64, len(a.X)*len(a.Y))
	for _, p := range partial {
		for k, v := range p {
			field[k] += v
		}
	}
	s, err := spline.New(a.X, a.Y, field, a.Smoothing)
	if err != nil {
		return fmt.Errorf("xds: fitting top array response: %w", err)
	}
	a.Field, a.Response = field, s
	a.log().WithFields(logrus.Fields{
		"cells":   len(weights),
		"grid":    len(a.X),
		"sensors": len(a.Sensors),
	}).Debug("xds: top array filled")
	return nil
}

// FillElectrons fills the array from electron occupancy, converted to
// photoelectrons with the given secondary scintillation gain.
func (a *TopArray) FillElectrons(occupancy []int, gain float64, patterns []*Pattern) error {
	return a.Fill(SEGain(occupancy, gain), patterns)
}

// Integrate returns the integral of the response over the rectangle
// [x0, x1] × [y0, y1].
func (a *TopArray) Integrate(x0, x1, y0, y1 float64) (float64, error) {
	if a.Response == nil {
		return 0, newError(ErrInvalidConfiguration, "TopArray.Integrate", "Fill must succeed first")
	}
	return a.Response.Integral(x0, x1, y0, y1), nil
}

// Totals returns the integral of the response over each sensor, in the
// order of a.Sensors. Totals are not clamped and may be slightly negative
// where the spline undershoots.
func (a *TopArray) Totals() ([]float64, error) {
	t := make([]float64, len(a.Sensors))
	for i, s := range a.Sensors {
		v, err := a.Integrate(s.XMin, s.XMax, s.YMin, s.YMax)
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}

// SensorTotal is one row of a sensor totals table.
type SensorTotal struct {
	Sensor
	Total float64 `csv:"total"`
}

// WriteTotals writes one CSV row per sensor with its footprint and total.
func WriteTotals(w io.Writer, sensors []Sensor, totals []float64) error {
	if len(sensors) != len(totals) {
		return newError(ErrDimensionMismatch, "WriteTotals", "one total per sensor",
			"sensors", len(sensors), "totals", len(totals))
	}
	rows := make([]SensorTotal, len(sensors))
	for i, s := range sensors {
		rows[i] = SensorTotal{Sensor: s, Total: totals[i]}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("xds: writing sensor totals: %w", err)
	}
	return nil
}
