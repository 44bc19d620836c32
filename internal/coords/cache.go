package coords

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache generates and memoises the coordinate tables of one radar site.
// Concurrent requests for the same resolution share a single generation.
type Cache struct {
	lat, lon float64
	gates    int

	group singleflight.Group

	mu     sync.Mutex
	tables map[RadialSize]*Table
}

// NewCache returns an empty cache for the site at (lat, lon).
func NewCache(lat, lon float64) *Cache {
	return newCache(lat, lon, MaxDataMomentGates)
}

func newCache(lat, lon float64, gates int) *Cache {
	return &Cache{
		lat:    lat,
		lon:    lon,
		gates:  gates,
		tables: make(map[RadialSize]*Table),
	}
}

// GetCoordinateTable returns the table for size, generating it on first use.
func (c *Cache) GetCoordinateTable(ctx context.Context, size RadialSize) (*Table, error) {
	c.mu.Lock()
	t, ok := c.tables[size]
	c.mu.Unlock()
	if ok {
		return t, nil
	}

	v, err, _ := c.group.Do(size.String(), func() (interface{}, error) {
		t, err := generate(ctx, c.lat, c.lon, size, c.gates)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.tables[size] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// Len returns the number of generated tables.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}
