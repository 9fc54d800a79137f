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
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat/distuv"
)

// Xe lamp pulse shape and photocathode optics.
const (
	pulseEnd        = 6.0          // µs
	pulseCenter     = 2.8          // µs
	pulseSigma      = 2.90 / 2.355 // µs, from the FWHM
	lampAperture    = 0.22         // numerical aperture of the fiber
	lampDistance    = 2.0          // fiber to photocathode [mm]
	quadratureNodes = 64
)

// LampConfig holds the Xe lamp settings.
type LampConfig struct {
	// DeltaT is the width of the time slices the pulse is cut into [µs].
	DeltaT float64

	// Amplitude is the peak electron emission rate [electrons/µs].
	Amplitude float64
}

// DefaultLampConfig returns the default lamp settings.
func DefaultLampConfig() LampConfig {
	return LampConfig{DeltaT: 0.25, Amplitude: 6e4}
}

// Lamp is a pulsed Xe lamp shining on a photocathode at z = 0.
type Lamp struct {
	LampConfig
}

// NewLamp validates cfg and returns a lamp.
func NewLamp(cfg LampConfig) (*Lamp, error) {
	if !(cfg.DeltaT > 0) || cfg.DeltaT > pulseEnd {
		return nil, newError(ErrInvalidConfiguration, "NewLamp", "DeltaT must be in (0, 6] µs", "DeltaT", cfg.DeltaT)
	}
	if !(cfg.Amplitude >= 0) || math.IsInf(cfg.Amplitude, 0) {
		return nil, newError(ErrInvalidConfiguration, "NewLamp", "amplitude must be finite and >= 0",
			"Amplitude", cfg.Amplitude)
	}
	return &Lamp{LampConfig: cfg}, nil
}

// Pulse returns the electron emission rate [electrons/µs] at time t [µs].
func (l *Lamp) Pulse(t float64) float64 {
	d := t - pulseCenter
	return l.Amplitude * math.Exp(-d*d/2/(pulseSigma*pulseSigma))
}

// Times returns the start times of the pulse slices, from 0 up to but
// not including 6 µs.
func (l *Lamp) Times() []float64 {
	n := int(math.Ceil(pulseEnd/l.DeltaT - 1e-9))
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * l.DeltaT
	}
	return t
}

// EmittedElectrons returns the integral of the pulse from t0 to tf,
// truncated to an integer.
func (l *Lamp) EmittedElectrons(t0, tf float64) int {
	if !(tf > t0) {
		return 0
	}
	return int(quad.Fixed(l.Pulse, t0, tf, quadratureNodes, nil, 0))
}

// InitialPositions returns n electrons in a Gaussian spot at z = 0 with
// σ = √(NA·d) in x and y.
func (l *Lamp) InitialPositions(n int, src rand.Source) *Cloud {
	spot := distuv.Normal{Mu: 0, Sigma: math.Sqrt(lampAperture * lampDistance), Src: src}
	c := newCloud(n)
	for i := 0; i < n; i++ {
		c.X[i] = spot.Rand()
		c.Y[i] = spot.Rand()
	}
	return c
}

// SliceResult holds the electrons of one time slice of the pulse after
// transport and corrections.
type SliceResult struct {
	Index      int
	Start, End float64 // µs
	Dt         float64 // drift time step [µs]
	Electrons  int     // emitted electrons
	X, Y, Z    []float64
}

// TransportSlices cuts the pulse into slices of DeltaT and transports the
// electrons of every slice through tpc, using up to workers goroutines.
// Slice i draws its random numbers from a PCG source seeded with
// (seed, i). Results are ordered by slice index.
func (l *Lamp) TransportSlices(ctx context.Context, tpc *TPC, cfg DriftConfig, seed uint64, workers int, log logrus.FieldLogger) ([]SliceResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	starts := l.Times()
	results := make([]SliceResult, len(starts))
	errs := make([]error, len(starts))

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = l.transportSlice(i, starts[i], tpc, cfg, seed, log)
			}
		}()
	}
	var ctxErr error
	for i := range starts {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			ctxErr = ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	if ctxErr != nil {
		return nil, fmt.Errorf("xds: transporting lamp slices: %w", ctxErr)
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("xds: lamp slice %d: %w", i, err)
		}
	}
	return results, nil
}

func (l *Lamp) transportSlice(i int, start float64, tpc *TPC, cfg DriftConfig, seed uint64, log logrus.FieldLogger) (SliceResult, error) {
	end := math.Min(start+l.DeltaT, pulseEnd)
	n := l.EmittedElectrons(start, end)
	src := rand.NewPCG(seed, uint64(i))
	c := l.InitialPositions(n, src)
	log = log.WithFields(logrus.Fields{"slice": i, "start": start, "end": end})
	if _, err := Transport(c, tpc, cfg, src, nil, log); err != nil {
		return SliceResult{}, err
	}
	return SliceResult{
		Index:     i,
		Start:     start,
		End:       end,
		Dt:        cfg.Dt,
		Electrons: n,
		X:         c.X,
		Y:         c.Y,
		Z:         c.Z,
	}, nil
}
