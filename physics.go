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
	"math"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"
)

// cm2sToMM2us converts a diffusion coefficient from cm²/s to mm²/µs.
const cm2sToMM2us = 1e-4

// Physics converts a drift field [V/cm] into a drift velocity [mm/µs] and
// longitudinal and transverse diffusion coefficients [mm²/µs].
// Implementations must be deterministic.
type Physics interface {
	Velocity(field float64) (float64, error)
	DiffusionLongitudinal(field float64) (float64, error)
	DiffusionTransverse(field float64) (float64, error)
}

// Coefficients holds the transport coefficients at one drift field.
type Coefficients struct {
	Field        float64 // V/cm
	Velocity     float64 // mm/µs
	Longitudinal float64 // mm²/µs
	Transverse   float64 // mm²/µs
}

// Fit is an empirical function of the drift field.
type Fit interface {
	Eval(field float64) float64
}

// NESTVelocity is the NEST parametrization of the electron drift velocity
// in liquid xenon [mm/µs]:
// v = p0·exp(-E/p1) + p2·exp(-E/p3) + p4·exp(-E/p5) + p6.
type NESTVelocity [7]float64

// Eval implements Fit.
func (p NESTVelocity) Eval(field float64) float64 {
	return p[0]*math.Exp(-field/p[1]) + p[2]*math.Exp(-field/p[3]) +
		p[4]*math.Exp(-field/p[5]) + p[6]
}

// ConstantDiffusion is a field-independent diffusion coefficient [cm²/s]
// measured at CalibratedField [V/cm].
type ConstantDiffusion struct {
	D               float64
	CalibratedField float64
}

// Eval implements Fit.
func (c ConstantDiffusion) Eval(float64) float64 { return c.D }

// LinearDiffusion is a diffusion coefficient D = M·E + B [cm²/s].
type LinearDiffusion struct {
	M, B float64
}

// Eval implements Fit.
func (l LinearDiffusion) Eval(field float64) float64 { return l.M*field + l.B }

var (
	// NEST is the default drift velocity fit.
	NEST = NESTVelocity{-1.5000, 28.510, -0.21948, 183.49, -1.4320, 1652.9, 2.884}

	// LongitudinalXurich is the longitudinal diffusion measured at 100 V/cm.
	LongitudinalXurich = ConstantDiffusion{D: 26, CalibratedField: 100}

	// EXO200Transverse is a curve fit to the EXO-200 transverse diffusion data.
	EXO200Transverse = LinearDiffusion{M: 0.010635, B: 52.888942}

	// EXO200TransverseLinregress is a linear regression to the same data.
	EXO200TransverseLinregress = LinearDiffusion{M: 0.013021, B: 52.752949}
)

// TransverseFits are the named transverse diffusion fits.
var TransverseFits = map[string]Fit{
	"exo200":            EXO200Transverse,
	"exo200-linregress": EXO200TransverseLinregress,
}

// Model is a Physics built from independent fits. Diffusion fits are in
// cm²/s and are converted to mm²/µs.
type Model struct {
	DriftVelocity Fit
	Longitudinal  Fit
	Transverse    Fit

	// Log receives a warning the first time a constant diffusion fit is
	// used away from its calibrated field. If nil, the standard logger is used.
	Log logrus.FieldLogger

	warn sync.Once
}

// DefaultPhysics returns the NEST velocity with the Xurich longitudinal and
// EXO-200 transverse diffusion.
func DefaultPhysics() *Model {
	return &Model{
		DriftVelocity: NEST,
		Longitudinal:  LongitudinalXurich,
		Transverse:    EXO200Transverse,
	}
}

func checkField(op string, field float64) error {
	if !(field > 0) || math.IsInf(field, 0) {
		return newError(ErrInvalidParameter, op, "drift field must be finite and > 0", "field", field)
	}
	return nil
}

// Velocity implements Physics.
func (m *Model) Velocity(field float64) (float64, error) {
	if err := checkField("Velocity", field); err != nil {
		return math.NaN(), err
	}
	v := m.DriftVelocity.Eval(field)
	if !(v > 0) || math.IsInf(v, 0) {
		return math.NaN(), newError(ErrInvalidParameter, "Velocity",
			"velocity fit must give a finite positive velocity", "field", field, "velocity", v)
	}
	return v, nil
}

// DiffusionLongitudinal implements Physics.
func (m *Model) DiffusionLongitudinal(field float64) (float64, error) {
	if c, ok := m.Longitudinal.(ConstantDiffusion); ok && c.CalibratedField > 0 && field != c.CalibratedField {
		m.warn.Do(func() {
			log := m.Log
			if log == nil {
				log = logrus.StandardLogger()
			}
			log.WithFields(logrus.Fields{
				"field":      field,
				"calibrated": c.CalibratedField,
			}).Warn("xds: longitudinal diffusion is only calibrated at one field; using it anyway")
		})
	}
	return m.diffusion("DiffusionLongitudinal", m.Longitudinal, field)
}

// DiffusionTransverse implements Physics.
func (m *Model) DiffusionTransverse(field float64) (float64, error) {
	return m.diffusion("DiffusionTransverse", m.Transverse, field)
}

func (m *Model) diffusion(op string, f Fit, field float64) (float64, error) {
	if err := checkField(op, field); err != nil {
		return math.NaN(), err
	}
	d := f.Eval(field)
	if !(d >= 0) || math.IsInf(d, 0) {
		return math.NaN(), newError(ErrInvalidParameter, op,
			"diffusion fit must give a finite coefficient >= 0", "field", field, "D", d)
	}
	return d * cm2sToMM2us, nil
}

// Evaluate returns the coefficients of p at the given field. If p is a
// *Cache, the cached value is used.
func Evaluate(p Physics, field float64) (Coefficients, error) {
	if c, ok := p.(*Cache); ok {
		return c.Coefficients(field)
	}
	return evaluate(p, field)
}

func evaluate(p Physics, field float64) (Coefficients, error) {
	c := Coefficients{Field: field}
	var err error
	if c.Velocity, err = p.Velocity(field); err != nil {
		return c, err
	}
	if c.Longitudinal, err = p.DiffusionLongitudinal(field); err != nil {
		return c, err
	}
	if c.Transverse, err = p.DiffusionTransverse(field); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks that the coefficients can drive a transport run.
func (c Coefficients) Validate() error {
	if !(c.Velocity > 0) || math.IsInf(c.Velocity, 0) {
		return newError(ErrInvalidConfiguration, "Coefficients", "velocity must be finite and > 0",
			"velocity", c.Velocity)
	}
	if !(c.Longitudinal >= 0) || !(c.Transverse >= 0) ||
		math.IsInf(c.Longitudinal, 0) || math.IsInf(c.Transverse, 0) {
		return newError(ErrInvalidConfiguration, "Coefficients", "diffusion coefficients must be finite and >= 0",
			"longitudinal", c.Longitudinal, "transverse", c.Transverse)
	}
	return nil
}

// Cache memoizes the coefficients of a Physics by field value. It is safe
// for concurrent use.
type Cache struct {
	Physics

	mu    sync.Mutex
	cache *lru.Cache
}

// NewCache returns a cache holding at most maxEntries fields.
func NewCache(p Physics, maxEntries int) *Cache {
	return &Cache{Physics: p, cache: lru.New(maxEntries)}
}

// Coefficients returns the coefficients at field, computing them on the
// first request. Errors are not cached.
func (c *Cache) Coefficients(field float64) (Coefficients, error) {
	c.mu.Lock()
	v, ok := c.cache.Get(field)
	c.mu.Unlock()
	if ok {
		return v.(Coefficients), nil
	}
	coeffs, err := evaluate(c.Physics, field)
	if err != nil {
		return coeffs, err
	}
	c.mu.Lock()
	c.cache.Add(field, coeffs)
	c.mu.Unlock()
	return coeffs, nil
}
