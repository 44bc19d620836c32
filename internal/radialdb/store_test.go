package radialdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/testutil"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "radials.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleVolume() []*level2.Radial {
	radials := testutil.Radials(3, 2, level2.MomentRef, func(i int) *level2.MomentBlock {
		return testutil.Moment8([]uint8{uint8(10 + i), 20, 30},
			testutil.WithScaleOffset(2, 66),
			testutil.WithSNRThresholdRaw(20))
	})
	radials[1].Moments[level2.MomentZdr] = testutil.Moment16([]uint16{600, 700}, testutil.WithRange(2125, 250))

	upper := testutil.Radial(0, 2, level2.MomentRef, testutil.Moment8([]uint8{99}))
	upper.ElevationIndex = 1
	return append(radials, upper)
}

func shiftTime(radials []*level2.Radial, t time.Time) {
	mjd, ms := level2.JulianDate(t)
	for _, r := range radials {
		r.ModifiedJulianDate, r.CollectionTime = mjd, ms
	}
}

func TestOpenMigrates(t *testing.T) {
	s := setupTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Already at the latest version.
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.MigrateDown())

	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	var n int
	err = s.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'volumes'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertAndLoadRadials(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	in := sampleVolume()

	id, err := s.InsertVolume(ctx, "KTLX", in)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	v, err := s.GetVolume(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "KTLX", v.SiteID)
	assert.Equal(t, testutil.SiteLatitude, v.Latitude)
	assert.Equal(t, testutil.SiteLongitude, v.Longitude)
	assert.True(t, testutil.SweepTime.Equal(v.CollectedAt))

	ref, err := s.LoadRadials(ctx, id, 0, level2.MomentRef)
	require.NoError(t, err)
	require.Len(t, ref, 3)
	for i, r := range ref {
		assert.Equal(t, in[i].AzimuthAngle, r.AzimuthAngle)
		assert.Equal(t, in[i].Time(), r.Time())
		assert.Empty(t, cmp.Diff(in[i].Moment(level2.MomentRef), r.Moment(level2.MomentRef)))
		assert.Nil(t, r.Moment(level2.MomentZdr))
	}

	zdr, err := s.LoadRadials(ctx, id, 0, level2.MomentZdr)
	require.NoError(t, err)
	require.Len(t, zdr, 3)
	assert.Nil(t, zdr[0].Moment(level2.MomentZdr))
	assert.Empty(t, cmp.Diff(in[1].Moment(level2.MomentZdr), zdr[1].Moment(level2.MomentZdr)))

	upper, err := s.LoadRadials(ctx, id, 1, level2.MomentRef)
	require.NoError(t, err)
	require.Len(t, upper, 1)
	assert.Equal(t, uint16(99), upper[0].Moment(level2.MomentRef).Sample(0))
}

func TestInsertVolumeErrors(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.InsertVolume(ctx, "KTLX", nil)
	assert.ErrorIs(t, err, ErrEmptyVolume)

	bad := testutil.Radials(1, 2, level2.MomentRef, func(int) *level2.MomentBlock {
		m := testutil.Moment8([]uint8{1, 2})
		m.GateCount = 5
		return m
	})
	_, err = s.InsertVolume(ctx, "KTLX", bad)
	assert.ErrorIs(t, err, level2.ErrInvalidMoment)

	volumes, err := s.ListVolumes(ctx, "KTLX")
	require.NoError(t, err)
	assert.Empty(t, volumes)
}

func TestLatestVolume(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LatestVolume(ctx, "KTLX")
	assert.ErrorIs(t, err, ErrNoVolume)

	older := sampleVolume()
	shiftTime(older, testutil.SweepTime.Add(-10*time.Minute))
	_, err = s.InsertVolume(ctx, "KTLX", older)
	require.NoError(t, err)

	newest, err := s.InsertVolume(ctx, "KTLX", sampleVolume())
	require.NoError(t, err)

	_, err = s.InsertVolume(ctx, "KOUN", sampleVolume())
	require.NoError(t, err)

	v, err := s.LatestVolume(ctx, "KTLX")
	require.NoError(t, err)
	assert.Equal(t, newest, v.ID)

	volumes, err := s.ListVolumes(ctx, "KTLX")
	require.NoError(t, err)
	require.Len(t, volumes, 2)
	assert.Equal(t, newest, volumes[0].ID)
}

func TestDeleteVolumesBefore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	older := sampleVolume()
	shiftTime(older, testutil.SweepTime.Add(-time.Hour))
	oldID, err := s.InsertVolume(ctx, "KTLX", older)
	require.NoError(t, err)
	_, err = s.InsertVolume(ctx, "KTLX", sampleVolume())
	require.NoError(t, err)

	n, err := s.DeleteVolumesBefore(ctx, "KTLX", testutil.SweepTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.GetVolume(ctx, oldID)
	assert.ErrorIs(t, err, ErrNoVolume)

	var moments int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM moments WHERE volume_id = ?`, oldID).Scan(&moments))
	assert.Zero(t, moments)
}

func TestSource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	older := sampleVolume()
	shiftTime(older, testutil.SweepTime.Add(-10*time.Minute))
	olderID, err := s.InsertVolume(ctx, "KTLX", older)
	require.NoError(t, err)
	_, err = s.InsertVolume(ctx, "KTLX", sampleVolume())
	require.NoError(t, err)

	src := NewSource(s, "KTLX")
	radials, err := src.GetRadials(ctx, level2.Reflectivity, 0)
	require.NoError(t, err)
	require.Len(t, radials, 3)
	assert.Equal(t, testutil.SweepTime, radials[0].Time())

	src.Pin(olderID)
	radials, err = src.GetRadials(ctx, level2.Reflectivity, 0)
	require.NoError(t, err)
	assert.Equal(t, testutil.SweepTime.Add(-10*time.Minute), radials[0].Time())

	_, err = src.GetRadials(ctx, level2.ProductUnknown, 0)
	assert.Error(t, err)

	radials, err = NewSource(s, "KOUN").GetRadials(ctx, level2.Reflectivity, 0)
	require.NoError(t, err)
	assert.Empty(t, radials)

	src.Pin("no-such-volume")
	_, err = src.GetRadials(ctx, level2.Reflectivity, 0)
	assert.ErrorIs(t, err, ErrNoVolume)
}
