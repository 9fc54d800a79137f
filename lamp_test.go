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
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestLampPulseIntegral(t *testing.T) {
	l, err := NewLamp(DefaultLampConfig())
	if err != nil {
		t.Fatal(err)
	}
	// Area of the Gaussian between 0 and 6 µs.
	s := pulseSigma * math.Sqrt2
	want := 6e4 * pulseSigma * math.Sqrt(math.Pi/2) * (math.Erf((6-2.8)/s) - math.Erf(-2.8/s))
	have := float64(l.EmittedElectrons(0, 6))
	if math.Abs(have-want) > 1 {
		t.Errorf("have %g electrons, want %g", have, want)
	}
	var sum int
	for _, t0 := range l.Times() {
		sum += l.EmittedElectrons(t0, math.Min(t0+l.DeltaT, 6))
	}
	// Truncation drops less than one electron per slice.
	if d := int(want) - sum; d < 0 || d > len(l.Times()) {
		t.Errorf("sum over slices %d, whole pulse %g", sum, want)
	}
	if n := l.EmittedElectrons(3, 2); n != 0 {
		t.Errorf("reversed interval: %d electrons", n)
	}
}

func TestLampTimes(t *testing.T) {
	l, err := NewLamp(LampConfig{DeltaT: 0.25, Amplitude: 1})
	if err != nil {
		t.Fatal(err)
	}
	times := l.Times()
	if len(times) != 24 || times[0] != 0 || times[23] != 5.75 {
		t.Errorf("times: %v", times)
	}
	if _, err := NewLamp(LampConfig{DeltaT: 0}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("have %v, want ErrInvalidConfiguration", err)
	}
}

func TestLampInitialPositions(t *testing.T) {
	l, err := NewLamp(DefaultLampConfig())
	if err != nil {
		t.Fatal(err)
	}
	c := l.InitialPositions(20000, rand.NewPCG(1, 2))
	want := math.Sqrt(0.22 * 2)
	for _, v := range [][]float64{c.X, c.Y} {
		if _, sd := stat.MeanStdDev(v, nil); different(sd, want, 0.03) {
			t.Errorf("σ = %g, want %g", sd, want)
		}
	}
	for _, z := range c.Z {
		if z != 0 {
			t.Fatal("electrons should start at z = 0")
		}
	}
}

func TestTransportSlices(t *testing.T) {
	tpc := smallTPC(t)
	l, err := NewLamp(LampConfig{DeltaT: 1.5, Amplitude: 100})
	if err != nil {
		t.Fatal(err)
	}
	run := func(workers int) []SliceResult {
		r, err := l.TransportSlices(context.Background(), tpc, DefaultDriftConfig(), 42, workers, quietLog())
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	a := run(4)
	if len(a) != 4 {
		t.Fatalf("%d slices, want 4", len(a))
	}
	for i, r := range a {
		if r.Index != i || r.Start != 1.5*float64(i) || r.End != r.Start+1.5 {
			t.Errorf("slice %d: index %d, [%g, %g)", i, r.Index, r.Start, r.End)
		}
		if len(r.X) > r.Electrons || len(r.X) != len(r.Y) || len(r.X) != len(r.Z) {
			t.Errorf("slice %d: %d survivors of %d", i, len(r.X), r.Electrons)
		}
		for _, z := range r.Z {
			if z < tpc.Length {
				t.Fatalf("slice %d: electron at z=%g did not finish", i, z)
			}
		}
	}
	// The result does not depend on the number of workers.
	b := run(1)
	for i := range a {
		if len(a[i].X) != len(b[i].X) {
			t.Fatalf("slice %d: %d != %d survivors", i, len(a[i].X), len(b[i].X))
		}
		for j := range a[i].X {
			if a[i].X[j] != b[i].X[j] {
				t.Fatalf("slice %d electron %d differs", i, j)
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.TransportSlices(ctx, tpc, DefaultDriftConfig(), 42, 1, quietLog()); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled: have %v", err)
	}
}
