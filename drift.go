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
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Cloud is a set of electrons. X, Y and Z always have the same length.
type Cloud struct {
	X, Y, Z []float64
}

// NewCloud copies the given coordinates into a new cloud.
func NewCloud(x, y, z []float64) (*Cloud, error) {
	if len(x) != len(y) || len(x) != len(z) {
		return nil, newError(ErrDimensionMismatch, "NewCloud", "coordinates must have the same length",
			"len(x)", len(x), "len(y)", len(y), "len(z)", len(z))
	}
	return &Cloud{
		X: append([]float64(nil), x...),
		Y: append([]float64(nil), y...),
		Z: append([]float64(nil), z...),
	}, nil
}

// newCloud returns n electrons at the origin.
func newCloud(n int) *Cloud {
	return &Cloud{X: make([]float64, n), Y: make([]float64, n), Z: make([]float64, n)}
}

// Len returns the number of electrons in the cloud.
func (c *Cloud) Len() int { return len(c.X) }

// remove deletes the electrons whose indices are marked.
func (c *Cloud) remove(drop []bool) {
	n := 0
	for i := range c.X {
		if drop[i] {
			continue
		}
		c.X[n], c.Y[n], c.Z[n] = c.X[i], c.Y[i], c.Z[i]
		n++
	}
	c.X, c.Y, c.Z = c.X[:n], c.Y[:n], c.Z[:n]
}

// DriftManipulator is a function that operates on a drift run.
type DriftManipulator func(d *Drift) error

// Drift holds the state of one transport run. The cloud moves toward
// increasing z until every electron has reached Length.
type Drift struct {
	Cloud  *Cloud
	Length float64 // drift length [mm]
	Dt     float64 // time step [µs]

	Step int     // completed steps
	Time float64 // elapsed time [µs]

	InitFuncs []DriftManipulator // run once by Init
	RunFuncs  []DriftManipulator // run every step by Run

	// Done is set by a RunFunc when the run is finished.
	Done bool
}

// Init checks the run parameters and runs the InitFuncs.
func (d *Drift) Init() error {
	if !(d.Dt > 0) || math.IsInf(d.Dt, 0) {
		return newError(ErrInvalidConfiguration, "Drift.Init", "time step must be finite and > 0", "dt", d.Dt)
	}
	if !(d.Length > 0) || math.IsInf(d.Length, 0) {
		return newError(ErrInvalidConfiguration, "Drift.Init", "drift length must be finite and > 0",
			"length", d.Length)
	}
	if d.Cloud == nil {
		return newError(ErrInvalidConfiguration, "Drift.Init", "a cloud is required", "cloud", nil)
	}
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run runs the RunFuncs until one of them sets Done.
func (d *Drift) Run() error {
	if len(d.RunFuncs) == 0 {
		return newError(ErrInvalidConfiguration, "Drift.Run", "no run functions", "RunFuncs", 0)
	}
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// active reports whether the electron at z has not reached the drift length.
func (d *Drift) active(z float64) bool { return z < d.Length }

// DriftStep advances every active electron by one time step: z increases
// by velocity·dt and x and y receive independent Gaussian kicks with
// σ = √(2·D_trans·dt). If longitudinalInZ is true, z also receives a kick
// with σ = √(2·D_long·dt).
func DriftStep(coeffs Coefficients, longitudinalInZ bool, src rand.Source) DriftManipulator {
	if err := coeffs.Validate(); err != nil {
		return func(*Drift) error { return err }
	}
	rng := rand.New(src)
	return func(d *Drift) error {
		dz := coeffs.Velocity * d.Dt
		sT := math.Sqrt(2 * coeffs.Transverse * d.Dt)
		sL := math.Sqrt(2 * coeffs.Longitudinal * d.Dt)
		c := d.Cloud
		moved := false
		for i, z := range c.Z {
			if !d.active(z) {
				continue
			}
			moved = true
			z += dz
			if longitudinalInZ {
				z += sL * rng.NormFloat64()
			}
			c.Z[i] = z
			c.X[i] += sT * rng.NormFloat64()
			c.Y[i] += sT * rng.NormFloat64()
		}
		if moved {
			d.Step++
			d.Time += d.Dt
		}
		return nil
	}
}

// DriftLengthCheck sets Done once no electron is active.
func DriftLengthCheck() DriftManipulator {
	return func(d *Drift) error {
		for _, z := range d.Cloud.Z {
			if d.active(z) {
				return nil
			}
		}
		d.Done = true
		return nil
	}
}

// Milestone is a point of progress in a drift run.
type Milestone int

// Drift milestones.
const (
	Halfway  Milestone = iota + 1 // an electron passed half of the drift length
	Complete                      // every electron reached the drift length
)

func (m Milestone) String() string {
	switch m {
	case Halfway:
		return "halfway"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("Milestone(%d)", int(m))
	}
}

// ProgressEvent describes a milestone of a drift run.
type ProgressEvent struct {
	Milestone Milestone
	Step      int     // steps completed
	Time      float64 // elapsed time [µs]
	Active    int     // electrons that have not reached the drift length
}

// Observer receives progress events.
type Observer func(ProgressEvent)

// Progress reports the Halfway and Complete milestones to obs, each at
// most once per run.
func Progress(obs Observer) DriftManipulator {
	var halfway, complete bool
	return func(d *Drift) error {
		if obs == nil || complete {
			return nil
		}
		active := 0
		past := false
		for _, z := range d.Cloud.Z {
			if d.active(z) {
				active++
			}
			if z > d.Length/2 {
				past = true
			}
		}
		ev := ProgressEvent{Step: d.Step, Time: d.Time, Active: active}
		if past && !halfway {
			halfway = true
			ev.Milestone = Halfway
			obs(ev)
		}
		if active == 0 {
			complete = true
			ev.Milestone = Complete
			obs(ev)
		}
		return nil
	}
}

// LogObserver returns an Observer that writes milestones to log.
func LogObserver(log logrus.FieldLogger) Observer {
	return func(ev ProgressEvent) {
		log.WithFields(logrus.Fields{
			"step":   ev.Step,
			"time":   ev.Time,
			"active": ev.Active,
		}).Infof("xds: drift %s", ev.Milestone)
	}
}

// Log writes the status of the run to log every `every` steps.
func Log(log logrus.FieldLogger, every int) DriftManipulator {
	start := time.Now()
	return func(d *Drift) error {
		if every <= 0 || d.Step == 0 || d.Step%every != 0 || d.Cloud.Len() < 2 {
			return nil
		}
		_, sx := stat.MeanStdDev(d.Cloud.X, nil)
		_, sy := stat.MeanStdDev(d.Cloud.Y, nil)
		log.WithFields(logrus.Fields{
			"step":     d.Step,
			"time":     d.Time,
			"walltime": time.Since(start).String(),
			"sigma_x":  sx,
			"sigma_y":  sy,
		}).Debug("xds: drifting")
		return nil
	}
}

// NewDrift returns a run that transports cloud through tpc with the
// standard step, termination and progress functions.
func NewDrift(cloud *Cloud, tpc *TPC, cfg DriftConfig, src rand.Source, obs Observer, log logrus.FieldLogger) *Drift {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Drift{
		Cloud:  cloud,
		Length: tpc.Length,
		Dt:     cfg.Dt,
		RunFuncs: []DriftManipulator{
			DriftStep(tpc.Coefficients, cfg.LongitudinalInZ, src),
			DriftLengthCheck(),
			Progress(obs),
			Log(log, 100),
		},
	}
}

// Transport drifts cloud through tpc and applies the corrections in cfg.
// The cloud is modified in place.
func Transport(cloud *Cloud, tpc *TPC, cfg DriftConfig, src rand.Source, obs Observer, log logrus.FieldLogger) (*Drift, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := NewDrift(cloud, tpc, cfg, src, obs, log)
	if err := d.Init(); err != nil {
		return nil, err
	}
	n0 := cloud.Len()
	if err := d.Run(); err != nil {
		return nil, err
	}
	if err := Corrections(cfg, tpc, src)(d); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"electrons": n0,
		"survivors": cloud.Len(),
		"steps":     d.Step,
		"time":      d.Time,
	}).Info("xds: drift finished")
	return d, nil
}
