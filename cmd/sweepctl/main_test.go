package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/radialdb"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func ingest(t *testing.T, db string) {
	t.Helper()
	out, err := runCmd(t, "ingest-synthetic", "--db", db, "--radials", "360", "--gates", "320",
		"--elevations", "2", "--time", "2023-05-01T21:30:00Z")
	require.NoError(t, err)
	require.Contains(t, out, "stored volume")
}

func TestIngestAndStats(t *testing.T) {
	db := filepath.Join(t.TempDir(), "radials.db")
	ingest(t, db)

	out, err := runCmd(t, "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "product:   Reflectivity")
	assert.Contains(t, out, "time:      2023-05-01T21:30:00Z")
	assert.Contains(t, out, "radials:   360 (1 degree, 0 skipped)")
	assert.Contains(t, out, "threshold: 70")
	assert.Contains(t, out, "min/max:")
	assert.Contains(t, out, "stride 8")
	assert.Contains(t, out, "buffer:    sweep positions")
	assert.Contains(t, out, "buffer:    sweep raw values")
	assert.Contains(t, out, "(1-byte components)")

	html := filepath.Join(t.TempDir(), "hist.html")
	_, err = runCmd(t, "stats", "--db", db, "--product", "VEL", "--elevation", "1", "--html", html)
	require.NoError(t, err)
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Velocity distribution")
}

func TestStatsUnitsAndTimezone(t *testing.T) {
	db := filepath.Join(t.TempDir(), "radials.db")
	ingest(t, db)

	out, err := runCmd(t, "stats", "--db", db, "--product", "VEL", "--units", "kts", "--tz", "America/Chicago")
	require.NoError(t, err)
	assert.Contains(t, out, "product:   Velocity")
	assert.Contains(t, out, "time:      2023-05-01T16:30:00-05:00")

	_, err = runCmd(t, "stats", "--db", db, "--units", "furlongs")
	assert.ErrorContains(t, err, "invalid --units")

	_, err = runCmd(t, "stats", "--db", db, "--tz", "Mars/Olympus")
	assert.ErrorContains(t, err, "invalid --tz")
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "radials.db")
	ingest(t, db)

	png := filepath.Join(dir, "out", "ref.png")
	out, err := runCmd(t, "render", "--db", db, "-o", png, "--size", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+png)

	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	out, err = runCmd(t, "render", "--db", db, "--dir", dir, "--size", "2")
	require.NoError(t, err)
	named := filepath.Join(dir, "Reflectivity_20230501T213000Z.png")
	assert.Contains(t, out, "wrote "+named)
	assert.FileExists(t, named)
}

func TestVolumesAndPrune(t *testing.T) {
	db := filepath.Join(t.TempDir(), "radials.db")
	ingest(t, db)

	out, err := runCmd(t, "volumes", "--db", db)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
	assert.Contains(t, out, "2023-05-01T21:30:00Z")

	out, err = runCmd(t, "prune", "--db", db, "--keep", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 volumes")

	_, err = runCmd(t, "stats", "--db", db)
	assert.ErrorIs(t, err, radialdb.ErrNoVolume)
}

func TestCommandErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "radials.db")

	_, err := runCmd(t, "stats", "--db", db, "--product", "XYZ")
	assert.ErrorContains(t, err, "unknown product")

	_, err = runCmd(t, "ingest-synthetic", "--db", db, "--radials", "100")
	assert.ErrorContains(t, err, "--radials")

	_, err = runCmd(t, "stats", "--config", "missing.yaml")
	assert.ErrorContains(t, err, ".json")
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit")
}

func TestSyntheticVolume(t *testing.T) {
	radials := syntheticVolume(syntheticParams{Radials: 720, Gates: 400, Elevations: 1})
	require.Len(t, radials, 720)
	assert.Equal(t, int8(1), radials[0].AzimuthResolutionSpacing)
	assert.Equal(t, float32(0.5), radials[1].AzimuthAngle)

	// The core sits at 225 degrees, 60 km out.
	core := radials[450].Moment(level2.MomentRef)
	gate := (60000 - firstGateRange) / 250
	dbz := core.Physical(core.Sample(gate))
	assert.InDelta(t, 62, dbz, 1)

	for _, r := range radials {
		for _, m := range r.Moments {
			require.NoError(t, m.Validate())
		}
	}
}
