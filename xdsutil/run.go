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

package xdsutil

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/xenoscope/xds"
)

func newTPC(cfg *viper.Viper, log logrus.FieldLogger) (*xds.TPC, error) {
	c, err := TPCConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	tpc, err := xds.NewTPC(c)
	if err != nil {
		return nil, err
	}
	log.WithFields(tpc.Fields()).Info("xds: TPC ready")
	return tpc, nil
}

// Patterns generates the pattern library described by cfg.
func Patterns(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) error {
	tpc, err := newTPC(cfg, log)
	if err != nil {
		return err
	}
	pc, err := PatternConfig(cfg)
	if err != nil {
		return err
	}
	seed, err := Seed(cfg)
	if err != nil {
		return err
	}
	gen, err := xds.NewPatternGenerator(tpc, pc)
	if err != nil {
		return err
	}
	gen.Log = log
	store, err := xds.OpenPatternStore(ctx, cfg.GetString("Patterns"), cfg.GetString("PatternPrefix"))
	if err != nil {
		return err
	}
	defer store.Close()
	store.Log = log
	return xds.GenerateLibrary(ctx, gen, store, seed, cfg.GetInt("Workers"), func(p xds.PatternDone) {
		log.WithFields(logrus.Fields{"cell": p.Cell, "done": p.Done, "total": p.Total}).Info("xds: pattern stored")
	})
}

// Drift transports the electrons described by cfg to the gate mesh and
// writes the mesh occupancy.
func Drift(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) error {
	tpc, err := newTPC(cfg, log)
	if err != nil {
		return err
	}
	dc, err := DriftConfig(cfg)
	if err != nil {
		return err
	}
	seed, err := Seed(cfg)
	if err != nil {
		return err
	}
	var x, y []float64
	if f := expandPath(cfg, "Source.File"); f != "" {
		x, y, err = driftSource(f, tpc, dc, cfg, seed, log)
	} else {
		x, y, err = driftLamp(ctx, tpc, dc, cfg, seed, log)
	}
	if err != nil {
		return err
	}
	occupancy, err := tpc.Mesh.CountOccupancy(x, y)
	if err != nil {
		return err
	}
	out := expandPath(cfg, "OccupancyFile")
	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("xds: creating occupancy file: %v", err)
	}
	if err := xds.WriteOccupancy(w, occupancy, dc.SEGain); err != nil {
		w.Close()
		return err
	}
	log.WithFields(logrus.Fields{"electrons": len(x), "file": out}).Info("xds: occupancy written")
	return w.Close()
}

func driftLamp(ctx context.Context, tpc *xds.TPC, dc xds.DriftConfig, cfg *viper.Viper, seed uint64, log logrus.FieldLogger) (x, y []float64, err error) {
	lamp, err := xds.NewLamp(LampConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	slices, err := lamp.TransportSlices(ctx, tpc, dc, seed, cfg.GetInt("Workers"), log)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range slices {
		x = append(x, s.X...)
		y = append(y, s.Y...)
	}
	return x, y, nil
}

func driftSource(path string, tpc *xds.TPC, dc xds.DriftConfig, cfg *viper.Viper, seed uint64, log logrus.FieldLogger) (x, y []float64, err error) {
	kind, err := InteractionType(cfg)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("xds: opening source file: %v", err)
	}
	defer f.Close()
	src, err := xds.ReadSource(f)
	if err != nil {
		return nil, nil, err
	}
	yield := xds.LinearYield(cfg.GetFloat64("Source.ElectronsPerKeV"))
	electrons, err := src.Electrons(yield, kind, cfg.GetFloat64("Source.Density"), tpc.DriftField)
	if err != nil {
		return nil, nil, err
	}
	c, err := src.Cloud(electrons)
	if err != nil {
		return nil, nil, err
	}
	if _, err := xds.Transport(c, tpc, dc, rand.NewPCG(seed, 0), xds.LogObserver(log), log); err != nil {
		return nil, nil, err
	}
	return c.X, c.Y, nil
}

// TopArray sums the pattern library weighted by the occupancy in
// OccupancyFile and writes the light on each sensor.
func TopArray(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) error {
	tpc, err := newTPC(cfg, log)
	if err != nil {
		return err
	}
	f, err := os.Open(expandPath(cfg, "OccupancyFile"))
	if err != nil {
		return fmt.Errorf("xds: opening occupancy file: %v", err)
	}
	occupancy, err := xds.ReadOccupancy(f)
	f.Close()
	if err != nil {
		return err
	}

	store, err := xds.OpenPatternStore(ctx, cfg.GetString("Patterns"), cfg.GetString("PatternPrefix"))
	if err != nil {
		return err
	}
	defer store.Close()
	store.Log = log
	if m, err := store.ReadManifest(ctx); err != nil {
		log.Warnf("xds: pattern library has no manifest: %v", err)
	} else if m.Cells != tpc.Mesh.Len() || m.Radius != tpc.Radius || m.MeshSide != tpc.MeshSide {
		return fmt.Errorf("xds: pattern library has %d cells for R=%g, side=%g but the TPC has %d cells for R=%g, side=%g",
			m.Cells, m.Radius, m.MeshSide, tpc.Mesh.Len(), tpc.Radius, tpc.MeshSide)
	}
	patterns, err := store.LoadLibrary(ctx, tpc.Mesh.Len())
	if err != nil {
		return err
	}

	sensors := xds.SensorGrid(-tpc.Radius, tpc.Radius, -tpc.Radius, tpc.Radius, 2, 2)
	if model := expandPath(cfg, "TopArray.SensorModel"); model != "" {
		if sensors, err = xds.ReadSensors(model); err != nil {
			return err
		}
	}
	a, err := xds.NewTopArray(tpc.Radius, TopArrayConfig(cfg), sensors)
	if err != nil {
		return err
	}
	a.Workers = cfg.GetInt("Workers")
	a.Log = log
	if err := a.Fill(occupancy, patterns); err != nil {
		return err
	}
	totals, err := a.Totals()
	if err != nil {
		return err
	}
	out := expandPath(cfg, "OutputFile")
	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("xds: creating output file: %v", err)
	}
	if err := xds.WriteTotals(w, sensors, totals); err != nil {
		w.Close()
		return err
	}
	log.WithFields(logrus.Fields{"sensors": len(sensors), "file": out}).Info("xds: sensor totals written")
	return w.Close()
}
