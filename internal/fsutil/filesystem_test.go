package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystem(t *testing.T) {
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("palettes/ref.pal")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	m.WriteFile("palettes/ref.pal", []byte("Color: 5 0 0 0"))
	data, err := m.ReadFile("palettes/./ref.pal")
	require.NoError(t, err)
	assert.Equal(t, "Color: 5 0 0 0", string(data))

	// Returned data is a copy.
	data[0] = 'X'
	again, _ := m.ReadFile("palettes/ref.pal")
	assert.Equal(t, byte('C'), again[0])

	require.NoError(t, m.MkdirAll("out/previews", 0755))
	assert.True(t, m.Exists("out"))
	assert.True(t, m.Exists("out/previews"))

	w, err := m.Create("out/previews/sweep.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := m.ReadFile("out/previews/sweep.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
	assert.Equal(t, []string{"out/previews/sweep.png", "palettes/ref.pal"}, m.Files())
}

func TestOSFileSystem(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "nested", "dir")

	require.NoError(t, fsys.MkdirAll(dir, 0755))
	assert.True(t, fsys.Exists(dir))

	path := filepath.Join(dir, "lut.html")
	w, err := fsys.Create(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("<html>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>", string(data))
	assert.False(t, fsys.Exists(filepath.Join(dir, "missing")))
}
