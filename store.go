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
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/xenoscope/xds/cloud"
	"gocloud.dev/blob"
)

// EncodePattern writes p to w with encoding/gob.
func EncodePattern(w io.Writer, p *Pattern) error {
	if err := gob.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("xds.EncodePattern: %v", err)
	}
	return nil
}

// DecodePattern reads a pattern written by EncodePattern.
func DecodePattern(r io.Reader) (*Pattern, error) {
	p := new(Pattern)
	if err := gob.NewDecoder(r).Decode(p); err != nil {
		return nil, fmt.Errorf("xds.DecodePattern: %v", err)
	}
	if p.Spline == nil {
		return nil, fmt.Errorf("xds.DecodePattern: pattern has no spline")
	}
	return p, nil
}

// Manifest records the parameters a pattern library was generated with.
type Manifest struct {
	Version string
	Prefix  string
	Cells   int
	Seed    uint64

	Radius, LiquidGap, GasGap, MeshSide float64

	XBinStep, YBinStep float64
	Traces             int
	Smoothing          float64
}

// PatternStore keeps one pattern per mesh cell in a blob bucket, under
// the key "<Prefix>_<cell>".
type PatternStore struct {
	Bucket *blob.Bucket
	Prefix string

	// Log receives retry notices. If nil, the standard logger is used.
	Log logrus.FieldLogger
}

// OpenPatternStore opens the bucket at bucketURL (see cloud.OpenBucket).
func OpenPatternStore(ctx context.Context, bucketURL, prefix string) (*PatternStore, error) {
	if prefix == "" || strings.ContainsAny(prefix, "/\\") {
		return nil, newError(ErrInvalidConfiguration, "OpenPatternStore", "prefix must be non-empty and contain no path separators",
			"prefix", prefix)
	}
	b, err := cloud.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &PatternStore{Bucket: b, Prefix: prefix}, nil
}

// Close closes the underlying bucket.
func (s *PatternStore) Close() error { return s.Bucket.Close() }

func (s *PatternStore) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Key returns the blob key of the given cell.
func (s *PatternStore) Key(cell int) string { return fmt.Sprintf("%s_%d", s.Prefix, cell) }

func (s *PatternStore) manifestKey() string { return s.Prefix + "_manifest.toml" }

func (s *PatternStore) read(ctx context.Context, key string) ([]byte, error) {
	return cloud.ReadBlobRetry(ctx, s.Bucket, key, func(err error, d time.Duration) {
		s.log().WithField("key", key).Warnf("%v: retrying in %v", err, d)
	})
}

// Save stores p under the key of p.Cell.
func (s *PatternStore) Save(ctx context.Context, p *Pattern) error {
	if p.Cell < 0 {
		return newError(ErrInvalidConfiguration, "PatternStore.Save", "only mesh cell patterns can be stored", "cell", p.Cell)
	}
	var b bytes.Buffer
	if err := EncodePattern(&b, p); err != nil {
		return err
	}
	return cloud.WriteBlob(ctx, s.Bucket, s.Key(p.Cell), b.Bytes())
}

// Load returns the pattern of the given cell.
func (s *PatternStore) Load(ctx context.Context, cell int) (*Pattern, error) {
	key := s.Key(cell)
	data, err := s.read(ctx, key)
	if err != nil {
		if cloud.IsNotExist(err) {
			return nil, newError(ErrDimensionMismatch, "PatternStore.Load", "no pattern stored for cell",
				"key", key, "cell", cell)
		}
		return nil, err
	}
	p, err := DecodePattern(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xds: pattern %s: %w", key, err)
	}
	if p.Cell != cell {
		return nil, newError(ErrDimensionMismatch, "PatternStore.Load", "stored pattern must belong to its key",
			"key", key, "pattern cell", p.Cell)
	}
	return p, nil
}

// LoadLibrary returns the patterns of cells 0 through n-1, in cell order.
func (s *PatternStore) LoadLibrary(ctx context.Context, n int) ([]*Pattern, error) {
	patterns := make([]*Pattern, n)
	for i := range patterns {
		p, err := s.Load(ctx, i)
		if err != nil {
			return nil, err
		}
		patterns[i] = p
	}
	return patterns, nil
}

// Cells returns the sorted cell indices that have a stored pattern.
func (s *PatternStore) Cells(ctx context.Context) ([]int, error) {
	keys, err := cloud.List(ctx, s.Bucket, s.Prefix+"_")
	if err != nil {
		return nil, err
	}
	var cells []int
	for _, k := range keys {
		i, err := strconv.Atoi(strings.TrimPrefix(k, s.Prefix+"_"))
		if err != nil || i < 0 {
			continue
		}
		cells = append(cells, i)
	}
	sort.Ints(cells)
	return cells, nil
}

// WriteManifest stores m as TOML under "<Prefix>_manifest.toml".
func (s *PatternStore) WriteManifest(ctx context.Context, m *Manifest) error {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(m); err != nil {
		return fmt.Errorf("xds: encoding manifest: %v", err)
	}
	return cloud.WriteBlob(ctx, s.Bucket, s.manifestKey(), b.Bytes())
}

// ReadManifest reads the manifest written by WriteManifest.
func (s *PatternStore) ReadManifest(ctx context.Context) (*Manifest, error) {
	data, err := s.read(ctx, s.manifestKey())
	if err != nil {
		return nil, err
	}
	m := new(Manifest)
	if _, err := toml.Decode(string(data), m); err != nil {
		return nil, fmt.Errorf("xds: decoding manifest: %v", err)
	}
	return m, nil
}
