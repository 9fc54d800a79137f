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
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// PatternDone reports that the pattern of Cell has been stored. Done of
// Total patterns are complete.
type PatternDone struct {
	Cell, Done, Total int
}

// LibraryManifest returns the manifest describing a library generated by
// gen with the given seed.
func LibraryManifest(gen *PatternGenerator, prefix string, seed uint64) *Manifest {
	return &Manifest{
		Version:   Version,
		Prefix:    prefix,
		Cells:     gen.TPC.Mesh.Len(),
		Seed:      seed,
		Radius:    gen.TPC.Radius,
		LiquidGap: gen.TPC.LiquidGap,
		GasGap:    gen.TPC.GasGap,
		MeshSide:  gen.TPC.MeshSide,
		XBinStep:  gen.Config.XBinStep,
		YBinStep:  gen.Config.YBinStep,
		Traces:    gen.Config.Traces,
		Smoothing: gen.Config.Smoothing,
	}
}

// GenerateLibrary simulates the pattern of every mesh cell of gen.TPC and
// saves each one to store as it completes. Cell i uses the random source
// PCG(seed, i), so the library does not depend on the number of workers.
// If workers <= 0, runtime.GOMAXPROCS(0) workers are used. progress, if
// not nil, is called once per stored pattern. The manifest is written once
// every cell has succeeded. The first error stops the remaining work.
func GenerateLibrary(ctx context.Context, gen *PatternGenerator, store *PatternStore, seed uint64, workers int, progress func(PatternDone)) error {
	n := gen.TPC.Mesh.Len()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	errc := make(chan error, workers)
	var mu sync.Mutex
	done := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for cell := range jobs {
				p, err := gen.Generate(cell, rand.NewPCG(seed, uint64(cell)))
				if err == nil {
					err = store.Save(ctx, p)
				}
				if err != nil {
					errc <- err
					cancel()
					return
				}
				mu.Lock()
				done++
				if progress != nil {
					progress(PatternDone{Cell: cell, Done: done, Total: n})
				}
				mu.Unlock()
			}
		}()
	}

send:
	for cell := 0; cell < n; cell++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- cell:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()
	close(errc)
	if err := <-errc; err != nil {
		return fmt.Errorf("xds: generating pattern library: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("xds: generating pattern library: %w", err)
	}
	if err := store.WriteManifest(ctx, LibraryManifest(gen, store.Prefix, seed)); err != nil {
		return err
	}
	gen.log().WithFields(logrus.Fields{
		"cells":  n,
		"prefix": store.Prefix,
		"seed":   seed,
	}).Info("xds: pattern library done")
	return nil
}
