package sweep

import (
	"image/color"
	"reflect"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/supercell-wx/internal/colortable"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
)

// DefaultLUTParallelThreshold is the domain size at which LUT builds are
// split across goroutines.
const DefaultLUTParallelThreshold = 256

// LUT maps raw samples in [RangeMin, RangeMax] to colors.
// Colors[i] is the color of raw value RangeMin+i.
type LUT struct {
	Colors   []color.NRGBA
	RangeMin uint16
	RangeMax uint16
}

// Len returns the number of entries.
func (l LUT) Len() int { return len(l.Colors) }

// Lookup returns the color of a raw sample. The second result is false for
// samples outside the table's domain.
func (l LUT) Lookup(raw uint16) (color.NRGBA, bool) {
	if len(l.Colors) == 0 || raw < l.RangeMin || raw > l.RangeMax {
		return color.NRGBA{}, false
	}
	return l.Colors[raw-l.RangeMin], true
}

// LUTCache holds the most recently built LUT and the inputs it was built
// from. ColorTable implementations used as keys must be comparable; the
// cache compares them by identity, not by content.
type LUTCache struct {
	mu                sync.Mutex
	parallelThreshold int

	table    colortable.ColorTable
	scale    float32
	offset   float32
	rangeMin uint16
	rangeMax uint16
	lut      LUT
	builds   int
}

// NewLUTCache returns an empty cache. Domains of at least parallelThreshold
// entries are built concurrently; zero or negative disables that.
func NewLUTCache(parallelThreshold int) *LUTCache {
	return &LUTCache{parallelThreshold: parallelThreshold}
}

// GetOrBuild returns the LUT for (table, scale, offset) over the product's
// raw domain. The second result is true when the LUT was rebuilt. An invalid
// or nil table leaves the cache untouched and returns its current LUT.
func (c *LUTCache) GetOrBuild(table colortable.ColorTable, scale, offset float32, product level2.Product) (LUT, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if table == nil || !table.IsValid() {
		return c.lut, false
	}

	rangeMin, rangeMax := level2.DataRange(product)
	if sameTable(c.table, table) && c.scale == scale && c.offset == offset &&
		c.rangeMin == rangeMin && c.rangeMax == rangeMax && c.lut.Colors != nil {
		return c.lut, false
	}

	c.lut = buildLUT(table, scale, offset, rangeMin, rangeMax, c.parallelThreshold)
	c.table = table
	c.scale = scale
	c.offset = offset
	c.rangeMin = rangeMin
	c.rangeMax = rangeMax
	c.builds++
	return c.lut, true
}

// sameTable compares tables by identity. Implementations whose dynamic type
// is not comparable have no identity and never match.
func sameTable(a, b colortable.ColorTable) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// Current returns the last built LUT, or the zero LUT.
func (c *LUTCache) Current() LUT {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lut
}

// Builds returns how many times the cache rebuilt its LUT.
func (c *LUTCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

func buildLUT(table colortable.ColorTable, scale, offset float32, rangeMin, rangeMax uint16, parallelThreshold int) LUT {
	n := int(rangeMax) - int(rangeMin) + 1
	lut := LUT{
		Colors:   make([]color.NRGBA, n),
		RangeMin: rangeMin,
		RangeMax: rangeMax,
	}

	fill := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			raw := float32(int(rangeMin) + i)
			lut.Colors[i] = table.Color((raw - offset) / scale)
		}
	}

	if parallelThreshold <= 0 || n < parallelThreshold {
		fill(0, n)
		return lut
	}

	workers := min(runtime.GOMAXPROCS(0), n)
	size := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fill(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
	return lut
}
