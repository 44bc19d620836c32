package level2

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockTypeFor(t *testing.T) {
	tests := []struct {
		product Product
		want    DataBlockType
	}{
		{Reflectivity, MomentRef},
		{Velocity, MomentVel},
		{SpectrumWidth, MomentSw},
		{DifferentialReflectivity, MomentZdr},
		{DifferentialPhase, MomentPhi},
		{CorrelationCoefficient, MomentRho},
		{ClutterFilterPowerRemoved, MomentCfp},
	}
	for _, tt := range tests {
		t.Run(tt.product.String(), func(t *testing.T) {
			got, ok := BlockTypeFor(tt.product)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := BlockTypeFor(ProductUnknown)
	assert.False(t, ok, "unknown product must not map to a block")
}

func TestDataRange(t *testing.T) {
	tests := []struct {
		product  Product
		min, max uint16
	}{
		{Reflectivity, 2, 255},
		{Velocity, 2, 255},
		{SpectrumWidth, 2, 255},
		{CorrelationCoefficient, 2, 255},
		{DifferentialReflectivity, 2, 1058},
		{DifferentialPhase, 2, 1023},
		{ClutterFilterPowerRemoved, 8, 81},
		{ProductUnknown, 2, 255},
	}
	for _, tt := range tests {
		lo, hi := DataRange(tt.product)
		assert.Equal(t, tt.min, lo, tt.product.String())
		assert.Equal(t, tt.max, hi, tt.product.String())
	}
}

func TestParseProduct(t *testing.T) {
	p, ok := ParseProduct(" zdr ")
	require.True(t, ok)
	assert.Equal(t, DifferentialReflectivity, p)

	_, ok = ParseProduct("DBZ")
	assert.False(t, ok)
}

func TestMomentBlockSampleAndPhysical(t *testing.T) {
	m8 := &MomentBlock{DataWordSize: 8, Scale: 2, Offset: 66, GateCount: 2, Data8: []uint8{66, 106}}
	assert.Equal(t, uint16(106), m8.Sample(1))
	assert.InDelta(t, 20.0, m8.Physical(m8.Sample(1)), 1e-6)

	m16 := &MomentBlock{DataWordSize: 16, Scale: 16, Offset: 128, GateCount: 1, Data16: []uint16{1000}}
	assert.Equal(t, uint16(1000), m16.Sample(0))
	assert.InDelta(t, 54.5, m16.Physical(1000), 1e-6)
}

func TestMomentBlockValidate(t *testing.T) {
	tests := []struct {
		name    string
		block   MomentBlock
		wantErr bool
	}{
		{"8-bit ok", MomentBlock{DataWordSize: 8, Scale: 2, GateCount: 3, Data8: make([]uint8, 3)}, false},
		{"16-bit ok", MomentBlock{DataWordSize: 16, Scale: 2, GateCount: 3, Data16: make([]uint16, 3)}, false},
		{"short data", MomentBlock{DataWordSize: 8, Scale: 2, GateCount: 3, Data8: make([]uint8, 2)}, true},
		{"mixed widths", MomentBlock{DataWordSize: 16, Scale: 2, GateCount: 1, Data8: []uint8{1}, Data16: []uint16{1}}, true},
		{"bad word size", MomentBlock{DataWordSize: 12, Scale: 2}, true},
		{"zero scale", MomentBlock{DataWordSize: 8, GateCount: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.block.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidMoment), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRadialMoment(t *testing.T) {
	var nilRadial *Radial
	assert.Nil(t, nilRadial.Moment(MomentRef))

	ref := &MomentBlock{DataWordSize: 8}
	r := &Radial{Moments: map[DataBlockType]*MomentBlock{MomentRef: ref}}
	assert.Same(t, ref, r.Moment(MomentRef))
	assert.Nil(t, r.Moment(MomentVel))
}

func TestTimePoint(t *testing.T) {
	// Day 1 is 1970-01-01.
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), TimePoint(1, 0))

	got := TimePoint(19479, 3_723_500)
	want := time.Date(2023, 5, 1, 1, 2, 3, 500_000_000, time.UTC)
	assert.Equal(t, want, got)

	mjd, ms := JulianDate(want)
	assert.Equal(t, uint16(19479), mjd)
	assert.Equal(t, uint32(3_723_500), ms)
}
