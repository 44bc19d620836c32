package level2

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMoment is returned by MomentBlock.Validate.
var ErrInvalidMoment = errors.New("invalid moment block")

// VolumeBlock is the subset of the volume data constant block the
// synthesizer needs: the radar site position.
type VolumeBlock struct {
	Latitude  float32
	Longitude float32
}

// MomentBlock holds one moment variable for one radial.
type MomentBlock struct {
	DataWordSize uint8 // 8 or 16

	// Raw-to-physical transform: physical = (raw - Offset) / Scale.
	Scale  float32
	Offset float32

	SNRThresholdRaw int16 // tenths of dB

	// Range to the centre of the first gate and the gate interval, in metres.
	RangeRaw               uint16
	RangeSampleIntervalRaw uint16

	GateCount uint16

	// Exactly one of Data8 and Data16 is populated, matching DataWordSize.
	Data8  []uint8
	Data16 []uint16
}

// Sample returns the raw value of gate i regardless of word size.
func (m *MomentBlock) Sample(i int) uint16 {
	if m.DataWordSize == 8 {
		return uint16(m.Data8[i])
	}
	return m.Data16[i]
}

// Len returns the number of samples present for the block's word size.
func (m *MomentBlock) Len() int {
	if m.DataWordSize == 8 {
		return len(m.Data8)
	}
	return len(m.Data16)
}

// Physical converts a raw sample to its physical value.
func (m *MomentBlock) Physical(raw uint16) float32 {
	return (float32(raw) - m.Offset) / m.Scale
}

// Validate checks the block is internally consistent. Decoders call this
// when ingesting records; the synthesizer assumes validated input.
func (m *MomentBlock) Validate() error {
	switch m.DataWordSize {
	case 8:
		if len(m.Data8) != int(m.GateCount) {
			return fmt.Errorf("%w: %d 8-bit samples for %d gates", ErrInvalidMoment, len(m.Data8), m.GateCount)
		}
		if len(m.Data16) != 0 {
			return fmt.Errorf("%w: 16-bit samples in 8-bit block", ErrInvalidMoment)
		}
	case 16:
		if len(m.Data16) != int(m.GateCount) {
			return fmt.Errorf("%w: %d 16-bit samples for %d gates", ErrInvalidMoment, len(m.Data16), m.GateCount)
		}
		if len(m.Data8) != 0 {
			return fmt.Errorf("%w: 8-bit samples in 16-bit block", ErrInvalidMoment)
		}
	default:
		return fmt.Errorf("%w: unsupported word size %d", ErrInvalidMoment, m.DataWordSize)
	}
	if m.Scale == 0 {
		return fmt.Errorf("%w: zero scale", ErrInvalidMoment)
	}
	return nil
}

// Radial is one azimuth of one elevation scan.
type Radial struct {
	AzimuthAngle float32 // degrees

	// AzimuthResolutionSpacing is 1 for 0.5 degree radials and 2 for
	// 1 degree radials.
	AzimuthResolutionSpacing int8

	ElevationIndex int

	ModifiedJulianDate uint16
	CollectionTime     uint32 // milliseconds past midnight UTC

	Volume  *VolumeBlock
	Moments map[DataBlockType]*MomentBlock
}

// Moment returns the radial's block of the given type, or nil.
func (r *Radial) Moment(bt DataBlockType) *MomentBlock {
	if r == nil || r.Moments == nil {
		return nil
	}
	return r.Moments[bt]
}

// Time returns the radial's collection time.
func (r *Radial) Time() time.Time {
	return TimePoint(r.ModifiedJulianDate, r.CollectionTime)
}

// mjdEpoch is day zero of the archive's modified Julian date.
var mjdEpoch = time.Date(1969, time.December, 31, 0, 0, 0, 0, time.UTC)

// TimePoint converts an archive date (days since 1969-12-31, where 1 is
// 1970-01-01) and milliseconds past midnight to a UTC time.
func TimePoint(modifiedJulianDate uint16, milliseconds uint32) time.Time {
	return mjdEpoch.
		AddDate(0, 0, int(modifiedJulianDate)).
		Add(time.Duration(milliseconds) * time.Millisecond)
}

// JulianDate is the inverse of TimePoint.
func JulianDate(t time.Time) (modifiedJulianDate uint16, milliseconds uint32) {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := midnight.Sub(mjdEpoch) / (24 * time.Hour)
	return uint16(days), uint32(t.Sub(midnight) / time.Millisecond)
}
