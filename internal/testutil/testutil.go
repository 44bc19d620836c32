// Package testutil provides radial and coordinate fixtures shared by the
// sweep, storage and preview tests.
package testutil

import (
	"time"

	"github.com/Zachdehooge/supercell-wx/internal/coords"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
)

// Fixture site position (KTLX).
const (
	SiteLatitude  float32 = 35.3331
	SiteLongitude float32 = -97.2778
)

// SweepTime is the collection time stamped on fixture radials.
var SweepTime = time.Date(2023, time.May, 1, 21, 30, 0, 0, time.UTC)

// MomentOption adjusts a fixture moment block.
type MomentOption func(*level2.MomentBlock)

// WithRange sets the range to the first gate and the gate interval.
func WithRange(rangeRaw, interval uint16) MomentOption {
	return func(m *level2.MomentBlock) {
		m.RangeRaw = rangeRaw
		m.RangeSampleIntervalRaw = interval
	}
}

// WithScaleOffset sets the raw-to-physical transform.
func WithScaleOffset(scale, offset float32) MomentOption {
	return func(m *level2.MomentBlock) {
		m.Scale = scale
		m.Offset = offset
	}
}

// WithSNRThresholdRaw sets the SNR threshold in tenths of dB.
func WithSNRThresholdRaw(raw int16) MomentOption {
	return func(m *level2.MomentBlock) {
		m.SNRThresholdRaw = raw
	}
}

// defaults: gate 0 starts at the radar, 250 m gates, identity transform and
// a zero threshold so every sample is kept.
func newMoment(wordSize uint8, gates int, opts []MomentOption) *level2.MomentBlock {
	m := &level2.MomentBlock{
		DataWordSize:           wordSize,
		Scale:                  1,
		Offset:                 0,
		RangeRaw:               125,
		RangeSampleIntervalRaw: 250,
		GateCount:              uint16(gates),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Moment8 returns an 8-bit moment block holding values.
func Moment8(values []uint8, opts ...MomentOption) *level2.MomentBlock {
	m := newMoment(8, len(values), opts)
	m.Data8 = append([]uint8(nil), values...)
	return m
}

// Moment16 returns a 16-bit moment block holding values.
func Moment16(values []uint16, opts ...MomentOption) *level2.MomentBlock {
	m := newMoment(16, len(values), opts)
	m.Data16 = append([]uint16(nil), values...)
	return m
}

// Radial returns a radial at azimuth carrying m as its bt block.
// spacing is 1 for 0.5 degree radials and 2 for 1 degree radials.
func Radial(azimuth float32, spacing int8, bt level2.DataBlockType, m *level2.MomentBlock) *level2.Radial {
	mjd, ms := level2.JulianDate(SweepTime)
	r := &level2.Radial{
		AzimuthAngle:             azimuth,
		AzimuthResolutionSpacing: spacing,
		ModifiedJulianDate:       mjd,
		CollectionTime:           ms,
		Volume:                   &level2.VolumeBlock{Latitude: SiteLatitude, Longitude: SiteLongitude},
		Moments:                  map[level2.DataBlockType]*level2.MomentBlock{},
	}
	if m != nil {
		r.Moments[bt] = m
	}
	return r
}

// Radials returns n consecutive radials starting at azimuth 0. moment is
// called once per radial index.
func Radials(n int, spacing int8, bt level2.DataBlockType, moment func(i int) *level2.MomentBlock) []*level2.Radial {
	width := float32(spacing) / 2
	radials := make([]*level2.Radial, n)
	for i := range radials {
		radials[i] = Radial(float32(i)*width, spacing, bt, moment(i))
	}
	return radials
}

// IndexTable returns a coordinate table whose entry for (radial, gate) is
// the pair (radial, gate), so synthesized vertices name the cell they came
// from.
func IndexTable(size coords.RadialSize, gates int) *coords.Table {
	radials := size.Radials()
	values := make([]float32, radials*gates*2)
	for r := 0; r < radials; r++ {
		for g := 0; g < gates; g++ {
			i := (r*gates + g) * 2
			values[i] = float32(r)
			values[i+1] = float32(g)
		}
	}
	t, err := coords.NewTable(size, gates, values)
	if err != nil {
		panic(err)
	}
	return t
}
