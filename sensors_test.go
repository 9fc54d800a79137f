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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

var testSensors = []Sensor{
	{Name: "b", XMin: 0, XMax: 6, YMin: -6, YMax: 0},
	{Name: "a", XMin: -6, XMax: 0, YMin: -6, YMax: 0},
	{Name: "c", XMin: -3, XMax: 3, YMin: 1, YMax: 7},
}

func TestReadSensors(t *testing.T) {
	const csvModel = `name,x_min,x_max,y_min,y_max
b,0,6,-6,0
a,-6,0,-6,0
c,-3,3,1,7
`
	const yamlModel = `sensors:
  - {name: b, x_min: 0, x_max: 6, y_min: -6, y_max: 0}
  - {name: a, x_min: -6, x_max: 0, y_min: -6, y_max: 0}
  - {name: c, x_min: -3, x_max: 3, y_min: 1, y_max: 7}
`
	fromCSV, err := ReadSensorsCSV(strings.NewReader(csvModel))
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(fromCSV, testSensors); len(diff) > 0 {
		t.Errorf("CSV: %v", diff)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	if err := os.WriteFile(path, []byte(yamlModel), 0o644); err != nil {
		t.Fatal(err)
	}
	fromYAML, err := ReadSensors(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(fromYAML, testSensors); len(diff) > 0 {
		t.Errorf("YAML: %v", diff)
	}

	bad := "name,x_min,x_max,y_min,y_max\nz,1,0,0,1\n"
	if _, err := ReadSensorsCSV(strings.NewReader(bad)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("have %v, want ErrInvalidConfiguration", err)
	}
	if _, err := ReadSensors(filepath.Join(dir, "model.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestSensorGrid(t *testing.T) {
	s := SensorGrid(-10, 10, -10, 10, 4, 2)
	if len(s) != 8 {
		t.Fatalf("%d sensors", len(s))
	}
	var area float64
	for _, v := range s {
		area += v.Area()
	}
	if different(area, 400, 1e-12) {
		t.Errorf("area %g, want 400", area)
	}
	if s[0].XMin != -10 || s[7].XMax != 10 || s[7].YMax != 10 {
		t.Errorf("corners %+v, %+v", s[0], s[7])
	}
}
