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

// Package xdsutil holds the command-line interface of XDS.
package xdsutil

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xenoscope/xds"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	all := []*pflag.FlagSet{Root.PersistentFlags()}
	lib := []*pflag.FlagSet{patternsCmd.Flags(), toparrayCmd.Flags()}
	transport := []*pflag.FlagSet{driftCmd.Flags()}
	seeded := []*pflag.FlagSet{patternsCmd.Flags(), driftCmd.Flags()}
	occupancy := []*pflag.FlagSet{driftCmd.Flags(), toparrayCmd.Flags()}

	// Options are the configuration options available to XDS.
	options = []option{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   all,
		},
		{
			name: "loglevel",
			usage: `
              loglevel is the minimum level of log messages to print
              (trace, debug, info, warn or error).`,
			defaultVal: "info",
			flagsets:   all,
		},
		{
			name: "TPC.Radius",
			usage: `
              TPC.Radius is the radius of the TPC and of the top sensor
              array [mm].`,
			defaultVal: 75.0,
			flagsets:   all,
		},
		{
			name: "TPC.Length",
			usage: `
              TPC.Length is the drift length in the liquid [mm].`,
			defaultVal: 2600.0,
			flagsets:   all,
		},
		{
			name: "TPC.LiquidGap",
			usage: `
              TPC.LiquidGap is the distance from the gate to the liquid
              surface [mm].`,
			defaultVal: 5.0,
			flagsets:   all,
		},
		{
			name: "TPC.GasGap",
			usage: `
              TPC.GasGap is the distance from the liquid surface to the
              top sensor array [mm].`,
			defaultVal: 5.0,
			flagsets:   all,
		},
		{
			name: "TPC.DriftField",
			usage: `
              TPC.DriftField is the drift field [V/cm].`,
			defaultVal: 100.0,
			flagsets:   all,
		},
		{
			name: "TPC.MeshSide",
			usage: `
              TPC.MeshSide is the side length of the hexagonal gate mesh
              cells [mm].`,
			defaultVal: 1.56,
			flagsets:   all,
		},
		{
			name: "Physics.Transverse",
			usage: `
              Physics.Transverse is the name of the transverse diffusion
              fit: exo200 or exo200-linregress.`,
			defaultVal: "exo200",
			flagsets:   all,
		},
		{
			name: "Drift.Dt",
			usage: `
              Drift.Dt is the drift time step [µs].`,
			defaultVal: 1.0,
			flagsets:   transport,
		},
		{
			name: "Drift.ElectronLifetime",
			usage: `
              Drift.ElectronLifetime is the electron lifetime in the
              liquid [µs].`,
			defaultVal: 2000.0,
			flagsets:   transport,
		},
		{
			name: "Drift.ExtractionEfficiency",
			usage: `
              Drift.ExtractionEfficiency is the fraction of electrons
              extracted from the liquid to the gas.`,
			defaultVal: 0.99,
			flagsets:   transport,
		},
		{
			name: "Drift.Boundary",
			usage: `
              Drift.Boundary is the treatment of electrons that diffuse
              past the TPC radius: clip (move them back into the bounding
              square), discard or none.`,
			defaultVal: "clip",
			flagsets:   transport,
		},
		{
			name: "Drift.LongitudinalInZ",
			usage: `
              Drift.LongitudinalInZ specifies whether electrons diffuse
              along the drift direction.`,
			defaultVal: false,
			flagsets:   transport,
		},
		{
			name: "Drift.SEGain",
			usage: `
              Drift.SEGain is the number of photoelectrons per extracted
              electron.`,
			defaultVal: 28.57,
			flagsets:   transport,
		},
		{
			name: "Lamp.DeltaT",
			usage: `
              Lamp.DeltaT is the width of the lamp pulse time slices [µs].`,
			defaultVal: 0.25,
			flagsets:   transport,
		},
		{
			name: "Lamp.Amplitude",
			usage: `
              Lamp.Amplitude is the peak photocathode emission rate
              [electrons/µs].`,
			defaultVal: 6e4,
			flagsets:   transport,
		},
		{
			name: "Source.File",
			usage: `
              Source.File is a CSV file of interactions (x_position,
              y_position, z_position, energy_dep in GeV). If empty, the
              electrons come from the Xe lamp.`,
			defaultVal: "",
			flagsets:   transport,
		},
		{
			name: "Source.ElectronsPerKeV",
			usage: `
              Source.ElectronsPerKeV is the ionization yield used for
              interaction sources.`,
			defaultVal: 73.0,
			flagsets:   transport,
		},
		{
			name: "Source.Density",
			usage: `
              Source.Density is the liquid xenon density [g/cm³].`,
			defaultVal: 2.862,
			flagsets:   transport,
		},
		{
			name: "Source.InteractionType",
			usage: `
              Source.InteractionType is the recoil type of the
              interactions: ER or NR.`,
			defaultVal: "ER",
			flagsets:   transport,
		},
		{
			name: "Pattern.XBinStep",
			usage: `
              Pattern.XBinStep is the x bin width of the pattern
              histograms [mm].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags()},
		},
		{
			name: "Pattern.YBinStep",
			usage: `
              Pattern.YBinStep is the y bin width of the pattern
              histograms [mm].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags()},
		},
		{
			name: "Pattern.Traces",
			usage: `
              Pattern.Traces is the number of photons simulated per
              pattern.`,
			defaultVal: 1000000,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags()},
		},
		{
			name: "Pattern.Smoothing",
			usage: `
              Pattern.Smoothing is the smoothing weight of the pattern
              splines. 0 interpolates the histograms exactly.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags()},
		},
		{
			name: "Pattern.ForceTraces",
			usage: `
              Pattern.ForceTraces allows Pattern.Traces of 10 million
              or more.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags()},
		},
		{
			name: "TopArray.GridStep",
			usage: `
              TopArray.GridStep is the spacing of the grid the patterns
              are summed on [mm].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{toparrayCmd.Flags()},
		},
		{
			name: "TopArray.Smoothing",
			usage: `
              TopArray.Smoothing is the smoothing weight of the combined
              response spline.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{toparrayCmd.Flags()},
		},
		{
			name: "TopArray.SensorModel",
			usage: `
              TopArray.SensorModel is a CSV or YAML file of sensor
              footprints. If empty, the array is split into four
              quadrants.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{toparrayCmd.Flags()},
		},
		{
			name: "Patterns",
			usage: `
              Patterns is the bucket holding the pattern library, as
              file://dir or mem://name.`,
			defaultVal: "file://patterns",
			flagsets:   lib,
		},
		{
			name: "PatternPrefix",
			usage: `
              PatternPrefix is the prefix of the pattern library keys.`,
			defaultVal: "hex",
			flagsets:   lib,
		},
		{
			name: "Seed",
			usage: `
              Seed is the seed of the random number generators.`,
			defaultVal: 1,
			flagsets:   seeded,
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of concurrent workers. 0 uses one
              per CPU.`,
			shorthand:  "j",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{patternsCmd.Flags(), driftCmd.Flags(), toparrayCmd.Flags()},
		},
		{
			name: "OccupancyFile",
			usage: `
              OccupancyFile is the CSV table of electrons per mesh cell
              written by drift and read by toparray.`,
			defaultVal: "occupancy.csv",
			flagsets:   occupancy,
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the CSV table of light per sensor written by
              toparray.`,
			shorthand:  "o",
			defaultVal: "sensors.csv",
			flagsets:   []*pflag.FlagSet{toparrayCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("XDS")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(patternsCmd)
	Root.AddCommand(driftCmd)
	Root.AddCommand(toparrayCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("xds: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("loglevel"))
	if err != nil {
		return fmt.Errorf("xds: %v", err)
	}
	Log.SetLevel(level)
	return nil
}

// Log is the logger used by the commands.
var Log = func() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	return l
}()

// Root is the main command.
var Root = &cobra.Command{
	Use:   "xds",
	Short: "Electron transport and light collection in a dual-phase xenon TPC.",
	Long: `XDS simulates the drift of ionization electrons through a liquid xenon
TPC, their focusing onto a hexagonal gate mesh, and the secondary
scintillation light they produce on the top sensor array.

A typical session generates the pattern library once ('xds patterns'),
transports electrons to the mesh ('xds drift') and sums the light seen by
each sensor ('xds toparray').

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'XDS_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores
(for example XDS_TPC_RADIUS).`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of XDS.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("XDS v%s\n", xds.Version)
	},
	DisableAutoGenTag: true,
}

// patternsCmd generates the pattern library.
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Generate the light collection pattern library",
	Long: `patterns simulates the light collection efficiency pattern of every
gate mesh cell and stores one pattern per cell in the Patterns bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Patterns(cmd.Context(), Cfg, Log)
	},
	DisableAutoGenTag: true,
}

// driftCmd transports electrons to the gate mesh.
var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Drift electrons to the gate mesh",
	Long: `drift transports the electrons of a Xe lamp pulse, or of the
interactions in Source.File, through the TPC and writes the number of
electrons reaching each gate mesh cell to OccupancyFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Drift(cmd.Context(), Cfg, Log)
	},
	DisableAutoGenTag: true,
}

// toparrayCmd computes the light seen by the top sensor array.
var toparrayCmd = &cobra.Command{
	Use:   "toparray",
	Short: "Compute the light on each top array sensor",
	Long: `toparray weights the pattern of every gate mesh cell by its
photoelectron occupancy, sums them, and writes the light integrated
over each sensor to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return TopArray(cmd.Context(), Cfg, Log)
	},
	DisableAutoGenTag: true,
}
