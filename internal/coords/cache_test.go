package coords

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheMemoises(t *testing.T) {
	c := newCache(35.33, -97.28, 8)
	ctx := context.Background()

	half, err := c.GetCoordinateTable(ctx, HalfDegree)
	require.NoError(t, err)
	again, err := c.GetCoordinateTable(ctx, HalfDegree)
	require.NoError(t, err)
	assert.Same(t, half, again)

	one, err := c.GetCoordinateTable(ctx, OneDegree)
	require.NoError(t, err)
	assert.Equal(t, 360, one.Radials)
	assert.Equal(t, 8, one.Gates)
	assert.Equal(t, 2, c.Len())
}

func TestCacheConcurrent(t *testing.T) {
	c := newCache(35.33, -97.28, 8)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := c.GetCoordinateTable(context.Background(), OneDegree)
			assert.NoError(t, err)
			tables[i] = table
		}()
	}
	wg.Wait()

	for _, table := range tables[1:] {
		assert.Same(t, tables[0], table)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCacheDoesNotKeepFailures(t *testing.T) {
	c := newCache(35.33, -97.28, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetCoordinateTable(ctx, OneDegree)
	require.Error(t, err)
	assert.Zero(t, c.Len())

	_, err = c.GetCoordinateTable(context.Background(), OneDegree)
	require.NoError(t, err)
}
