// Package coords holds the precomputed polar-to-map coordinate tables the
// sweep synthesizer indexes into.
//
// A table stores one projected (latitude, longitude) pair per
// (radial edge, gate edge) for a fixed site. Tables are immutable once built
// and are shared by every view of the same site.
package coords

import (
	"errors"
	"fmt"
)

const (
	// MaxRadials is the number of radial slots in a half-degree table.
	MaxRadials = 720

	// MaxDataMomentGates is the number of 250 m base gates in a table row.
	MaxDataMomentGates = 1840

	// GateLengthMeters is the length of one base gate.
	GateLengthMeters = 250
)

// ErrTableSize is returned when coordinate data does not match the table
// dimensions.
var ErrTableSize = errors.New("coordinate table size mismatch")

// RadialSize is the angular resolution of a coordinate table.
type RadialSize int

const (
	HalfDegree RadialSize = iota
	OneDegree
)

// Radials returns the number of radial slots in a full sweep.
func (s RadialSize) Radials() int {
	if s == HalfDegree {
		return MaxRadials
	}
	return MaxRadials / 2
}

// Degrees returns the angular width of one radial.
func (s RadialSize) Degrees() float64 {
	if s == HalfDegree {
		return 0.5
	}
	return 1.0
}

func (s RadialSize) String() string {
	if s == HalfDegree {
		return "0.5 degree"
	}
	return "1 degree"
}

// RadialSizeFor picks the table resolution for a sweep with the given
// number of radials. Only a full 720-radial sweep uses the half-degree table.
func RadialSizeFor(radialCount int) RadialSize {
	if radialCount == MaxRadials {
		return HalfDegree
	}
	return OneDegree
}

// Table maps (radial, gate) to a projected coordinate pair.
type Table struct {
	Size    RadialSize
	Radials int
	Gates   int

	// Coordinates is laid out row-major by radial:
	// index (radial*Gates + gate)*2 holds latitude, +1 holds longitude.
	Coordinates []float32
}

// NewTable wraps coordinate data for a table of the given resolution with
// gates entries per radial.
func NewTable(size RadialSize, gates int, coordinates []float32) (*Table, error) {
	radials := size.Radials()
	if gates <= 0 {
		return nil, fmt.Errorf("%w: %d gates", ErrTableSize, gates)
	}
	if want := radials * gates * 2; len(coordinates) != want {
		return nil, fmt.Errorf("%w: have %d values, want %d", ErrTableSize, len(coordinates), want)
	}
	return &Table{
		Size:        size,
		Radials:     radials,
		Gates:       gates,
		Coordinates: coordinates,
	}, nil
}

// Offset returns the index of the (radial, gate) pair in Coordinates.
// radial wraps modulo the table's radial count.
func (t *Table) Offset(radial, gate int) int {
	r := radial % t.Radials
	if r < 0 {
		r += t.Radials
	}
	return (r*t.Gates + gate) * 2
}

// At returns the coordinate pair of (radial, gate).
func (t *Table) At(radial, gate int) (float32, float32) {
	i := t.Offset(radial, gate)
	return t.Coordinates[i], t.Coordinates[i+1]
}
