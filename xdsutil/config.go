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
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/xenoscope/xds"
)

// Physics returns the physics model selected in cfg.
func Physics(cfg *viper.Viper, log logrus.FieldLogger) (*xds.Model, error) {
	name := cfg.GetString("Physics.Transverse")
	fit, ok := xds.TransverseFits[name]
	if !ok {
		var names []string
		for n := range xds.TransverseFits {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("xds: Physics.Transverse=%q but should be one of %s", name, strings.Join(names, ", "))
	}
	m := xds.DefaultPhysics()
	m.Transverse = fit
	m.Log = log
	return m, nil
}

// TPCConfig returns the TPC configuration in cfg.
func TPCConfig(cfg *viper.Viper, log logrus.FieldLogger) (xds.TPCConfig, error) {
	p, err := Physics(cfg, log)
	if err != nil {
		return xds.TPCConfig{}, err
	}
	return xds.TPCConfig{
		Radius:     cfg.GetFloat64("TPC.Radius"),
		Length:     cfg.GetFloat64("TPC.Length"),
		LiquidGap:  cfg.GetFloat64("TPC.LiquidGap"),
		GasGap:     cfg.GetFloat64("TPC.GasGap"),
		DriftField: cfg.GetFloat64("TPC.DriftField"),
		MeshSide:   cfg.GetFloat64("TPC.MeshSide"),
		Physics:    xds.NewCache(p, 16),
	}, nil
}

// DriftConfig returns the electron transport configuration in cfg.
func DriftConfig(cfg *viper.Viper) (xds.DriftConfig, error) {
	c := xds.DriftConfig{
		Dt:                   cfg.GetFloat64("Drift.Dt"),
		ElectronLifetime:     cfg.GetFloat64("Drift.ElectronLifetime"),
		ExtractionEfficiency: cfg.GetFloat64("Drift.ExtractionEfficiency"),
		Boundary:             xds.Boundary(cfg.GetString("Drift.Boundary")),
		LongitudinalInZ:      cfg.GetBool("Drift.LongitudinalInZ"),
		SEGain:               cfg.GetFloat64("Drift.SEGain"),
	}
	return c, c.Validate()
}

// LampConfig returns the Xe lamp configuration in cfg.
func LampConfig(cfg *viper.Viper) xds.LampConfig {
	return xds.LampConfig{
		DeltaT:    cfg.GetFloat64("Lamp.DeltaT"),
		Amplitude: cfg.GetFloat64("Lamp.Amplitude"),
	}
}

// PatternConfig returns the pattern simulation configuration in cfg.
func PatternConfig(cfg *viper.Viper) (xds.PatternConfig, error) {
	c := xds.PatternConfig{
		XBinStep:    cfg.GetFloat64("Pattern.XBinStep"),
		YBinStep:    cfg.GetFloat64("Pattern.YBinStep"),
		Traces:      cfg.GetInt("Pattern.Traces"),
		Smoothing:   cfg.GetFloat64("Pattern.Smoothing"),
		ForceTraces: cfg.GetBool("Pattern.ForceTraces"),
	}
	return c, c.Validate()
}

// TopArrayConfig returns the top array configuration in cfg.
func TopArrayConfig(cfg *viper.Viper) xds.TopArrayConfig {
	return xds.TopArrayConfig{
		GridStep:  cfg.GetFloat64("TopArray.GridStep"),
		Smoothing: cfg.GetFloat64("TopArray.Smoothing"),
	}
}

// Seed returns the random seed in cfg.
func Seed(cfg *viper.Viper) (uint64, error) {
	s, err := cast.ToUint64E(cfg.Get("Seed"))
	if err != nil {
		return 0, fmt.Errorf("xds: Seed: %v", err)
	}
	return s, nil
}

// InteractionType returns the interaction type in cfg.
func InteractionType(cfg *viper.Viper) (xds.InteractionType, error) {
	switch t := xds.InteractionType(strings.ToUpper(cfg.GetString("Source.InteractionType"))); t {
	case xds.ElectronRecoil, xds.NuclearRecoil:
		return t, nil
	default:
		return "", fmt.Errorf("xds: Source.InteractionType=%q but should be ER or NR", t)
	}
}

// expandPath expands environment variables in a file path.
func expandPath(cfg *viper.Viper, name string) string {
	return os.ExpandEnv(cfg.GetString(name))
}
