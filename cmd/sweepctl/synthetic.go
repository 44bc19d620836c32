package main

import (
	"math"
	"time"

	"github.com/Zachdehooge/supercell-wx/internal/coords"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
)

// KTLX, the default synthetic site.
const (
	syntheticLatitude  = 35.3331
	syntheticLongitude = -97.2778
)

// Archive encodings used by the synthetic moments.
const (
	refScale, refOffset = 2, 66
	velScale, velOffset = 2, 129

	// Thresholds land on raw 70 (2 dBZ) and raw 1 (any velocity).
	refThresholdRaw = 20
	velThresholdRaw = -640

	firstGateRange = 2125
)

type syntheticParams struct {
	Radials    int
	Gates      int
	Elevations int
	Time       time.Time
}

// cell is a gaussian reflectivity core with a rotating velocity couplet.
type cell struct {
	azimuth float64 // degrees
	rangeKm float64
	sigmaKm float64
	peakDBZ float64
	spinMps float64
}

var syntheticCells = []cell{
	{azimuth: 225, rangeKm: 60, sigmaKm: 12, peakDBZ: 62, spinMps: 30},
	{azimuth: 40, rangeKm: 110, sigmaKm: 25, peakDBZ: 38},
}

// syntheticVolume builds a volume of REF and VEL radials over the given
// number of elevations. Radials are 0.5 degrees wide when Radials is 720.
func syntheticVolume(p syntheticParams) []*level2.Radial {
	spacing := int8(2)
	if p.Radials == coords.MaxRadials {
		spacing = 1
	}
	width := 360 / float64(p.Radials)
	elevations := max(p.Elevations, 1)

	out := make([]*level2.Radial, 0, p.Radials*elevations)
	for e := 0; e < elevations; e++ {
		// Higher tilts overshoot the cores.
		damping := 1 - 0.15*float64(e)
		for r := 0; r < p.Radials; r++ {
			t := p.Time.Add(time.Duration(e*p.Radials+r) * 20 * time.Millisecond)
			mjd, ms := level2.JulianDate(t)
			az := float64(r) * width

			ref := make([]uint8, p.Gates)
			vel := make([]uint8, p.Gates)
			for g := range ref {
				rangeKm := float64(firstGateRange+g*coords.GateLengthMeters) / 1000
				dbz, mps := sample(az, rangeKm)
				ref[g] = encode(dbz*damping, refScale, refOffset)
				if dbz*damping >= 2 {
					vel[g] = encode(mps, velScale, velOffset)
				}
			}

			out = append(out, &level2.Radial{
				AzimuthAngle:             float32(az),
				AzimuthResolutionSpacing: spacing,
				ElevationIndex:           e,
				ModifiedJulianDate:       mjd,
				CollectionTime:           ms,
				Volume:                   &level2.VolumeBlock{Latitude: syntheticLatitude, Longitude: syntheticLongitude},
				Moments: map[level2.DataBlockType]*level2.MomentBlock{
					level2.MomentRef: moment(ref, refScale, refOffset, refThresholdRaw),
					level2.MomentVel: moment(vel, velScale, velOffset, velThresholdRaw),
				},
			})
		}
	}
	return out
}

func moment(data []uint8, scale, offset float32, threshold int16) *level2.MomentBlock {
	return &level2.MomentBlock{
		DataWordSize:           8,
		Scale:                  scale,
		Offset:                 offset,
		SNRThresholdRaw:        threshold,
		RangeRaw:               firstGateRange,
		RangeSampleIntervalRaw: coords.GateLengthMeters,
		GateCount:              uint16(len(data)),
		Data8:                  data,
	}
}

// sample returns reflectivity (dBZ) and radial velocity (m/s) at a point.
func sample(azimuth, rangeKm float64) (float64, float64) {
	x, y := polar(azimuth, rangeKm)
	var dbz, mps float64
	for _, c := range syntheticCells {
		cx, cy := polar(c.azimuth, c.rangeKm)
		dx, dy := x-cx, y-cy
		w := math.Exp(-(dx*dx + dy*dy) / (2 * c.sigmaKm * c.sigmaKm))
		dbz = math.Max(dbz, c.peakDBZ*w)

		// Tangential wind around the core projected onto the beam.
		if c.spinMps != 0 {
			ux, uy := -dy, dx
			n := math.Hypot(ux, uy)
			if n > 0 {
				bx, by := x/math.Hypot(x, y), y/math.Hypot(x, y)
				mps += c.spinMps * w * (ux*bx + uy*by) / n
			}
		}
	}
	return dbz, mps
}

func polar(azimuth, rangeKm float64) (float64, float64) {
	s, c := math.Sincos(azimuth * math.Pi / 180)
	return rangeKm * s, rangeKm * c
}

// encode converts a physical value to a raw sample, reserving 0 and 1.
func encode(v float64, scale, offset float32) uint8 {
	raw := math.Round(v*float64(scale) + float64(offset))
	if raw < 2 {
		return 0
	}
	return uint8(min(raw, 255))
}
