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
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// Sensor is the rectangular acceptance area of one photosensor on the
// sensor plane [mm].
type Sensor struct {
	Name string  `csv:"name" yaml:"name"`
	XMin float64 `csv:"x_min" yaml:"x_min"`
	XMax float64 `csv:"x_max" yaml:"x_max"`
	YMin float64 `csv:"y_min" yaml:"y_min"`
	YMax float64 `csv:"y_max" yaml:"y_max"`
}

// Area returns the area of the sensor [mm²].
func (s Sensor) Area() float64 { return (s.XMax - s.XMin) * (s.YMax - s.YMin) }

func checkSensors(sensors []Sensor) error {
	for i, s := range sensors {
		if !(s.XMax > s.XMin) || !(s.YMax > s.YMin) {
			return newError(ErrInvalidConfiguration, "Sensors", "sensor extents must satisfy min < max",
				"sensor", i, "name", s.Name, "x", [2]float64{s.XMin, s.XMax}, "y", [2]float64{s.YMin, s.YMax})
		}
	}
	return nil
}

// ReadSensorsCSV reads sensors from CSV with the columns name, x_min,
// x_max, y_min and y_max. The order of the rows is kept.
func ReadSensorsCSV(r io.Reader) ([]Sensor, error) {
	var s []Sensor
	if err := gocsv.Unmarshal(r, &s); err != nil {
		return nil, fmt.Errorf("xds: reading sensor CSV: %w", err)
	}
	return s, checkSensors(s)
}

// sensorModel is the layout of a YAML sensor model.
type sensorModel struct {
	Sensors []Sensor `yaml:"sensors"`
}

// ReadSensorsYAML reads sensors from a YAML document with a top-level
// "sensors" list. The order of the list is kept.
func ReadSensorsYAML(r io.Reader) ([]Sensor, error) {
	var m sensorModel
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("xds: reading sensor YAML: %w", err)
	}
	return m.Sensors, checkSensors(m.Sensors)
}

// ReadSensors reads a sensor model file, choosing the format from the
// extension (.csv, .yaml or .yml).
func ReadSensors(path string) ([]Sensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xds: opening sensor model: %w", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadSensorsCSV(f)
	case ".yaml", ".yml":
		return ReadSensorsYAML(f)
	default:
		return nil, fmt.Errorf("xds: unsupported sensor model format %q", filepath.Ext(path))
	}
}

// SensorGrid returns nx × ny sensors tiling the rectangle
// [x0, x1] × [y0, y1], in row-major order from the lower left corner.
func SensorGrid(x0, x1, y0, y1 float64, nx, ny int) []Sensor {
	dx := (x1 - x0) / float64(nx)
	dy := (y1 - y0) / float64(ny)
	s := make([]Sensor, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			s = append(s, Sensor{
				Name: fmt.Sprintf("s%d_%d", i, j),
				XMin: x0 + float64(i)*dx,
				XMax: x0 + float64(i+1)*dx,
				YMin: y0 + float64(j)*dy,
				YMax: y0 + float64(j+1)*dy,
			})
		}
	}
	return s
}
