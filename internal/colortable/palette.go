// Package colortable loads display palettes and maps physical moment values
// to colors.
package colortable

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Zachdehooge/supercell-wx/internal/fsutil"
)

// ErrNoEntries is returned by Validate for a palette without color entries.
var ErrNoEntries = errors.New("palette has no color entries")

// ColorTable maps a physical value to a display color. Colors carry
// straight (non-premultiplied) alpha, as written in palette files.
type ColorTable interface {
	IsValid() bool
	Color(value float32) color.NRGBA
}

type entry struct {
	value  float64
	start  color.NRGBA
	end    color.NRGBA
	hasEnd bool
	solid  bool
}

// Palette is a ColorTable parsed from a GR2Analyst-style palette file.
//
// Entries are color stops sorted by value. A stop either holds a solid
// color up to the next stop or blends towards its own end color (or the
// next stop's color when no end color is given).
type Palette struct {
	Product string
	Units   string

	scale  float64
	offset float64
	step   float64
	rf     color.NRGBA

	entries []entry
}

// LoadFile reads and parses a palette file.
func LoadFile(fsys fsutil.FileSystem, path string) (*Palette, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette: %w", err)
	}
	p, err := Load(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// Load parses a palette. Unknown keys are ignored; malformed values are
// reported with their line number.
func Load(r io.Reader) (*Palette, error) {
	p := &Palette{scale: 1}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		fields := strings.Fields(rest)

		var err error
		switch key {
		case "product":
			p.Product = strings.TrimSpace(rest)
		case "units":
			p.Units = strings.TrimSpace(rest)
		case "scale":
			p.scale, err = parseScalar(fields)
			if err == nil && p.scale == 0 {
				err = fmt.Errorf("scale must be non-zero")
			}
		case "offset":
			p.offset, err = parseScalar(fields)
		case "step":
			p.step, err = parseScalar(fields)
		case "rf":
			p.rf, err = parseColor(fields, false)
		case "color", "color4", "solidcolor", "solidcolor4":
			var e entry
			e, err = parseEntry(key, fields)
			if err == nil {
				p.entries = append(p.entries, e)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(p.entries, func(i, j int) bool {
		return p.entries[i].value < p.entries[j].value
	})
	return p, nil
}

func parseScalar(fields []string) (float64, error) {
	if len(fields) != 1 {
		return 0, fmt.Errorf("want 1 value, got %d", len(fields))
	}
	return strconv.ParseFloat(fields[0], 64)
}

func parseColor(fields []string, alpha bool) (color.NRGBA, error) {
	n := 3
	if alpha {
		n = 4
	}
	if len(fields) != n {
		return color.NRGBA{}, fmt.Errorf("want %d components, got %d", n, len(fields))
	}
	var c [4]uint8
	c[3] = 255
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return color.NRGBA{}, err
		}
		if v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("component %d out of range", v)
		}
		c[i] = uint8(v)
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
}

func parseEntry(key string, fields []string) (entry, error) {
	alpha := strings.HasSuffix(key, "4")
	n := 3
	if alpha {
		n = 4
	}
	if len(fields) != 1+n && len(fields) != 1+2*n {
		return entry{}, fmt.Errorf("want value and %d or %d components, got %d fields", n, 2*n, len(fields))
	}

	var e entry
	var err error
	if e.value, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return entry{}, err
	}
	if e.start, err = parseColor(fields[1:1+n], alpha); err != nil {
		return entry{}, err
	}
	if len(fields) == 1+2*n {
		if e.end, err = parseColor(fields[1+n:], alpha); err != nil {
			return entry{}, err
		}
		e.hasEnd = true
	}
	e.solid = strings.HasPrefix(key, "solid")
	return e, nil
}

// IsValid reports whether the palette has at least one color entry.
func (p *Palette) IsValid() bool {
	return p != nil && len(p.entries) > 0
}

// Validate returns ErrNoEntries for a palette that cannot color anything.
func (p *Palette) Validate() error {
	if !p.IsValid() {
		return ErrNoEntries
	}
	return nil
}

// RangeFoldedColor returns the RF color, transparent when the palette has none.
func (p *Palette) RangeFoldedColor() color.NRGBA {
	return p.rf
}

// Color maps a physical value to a color. Values below the first entry are
// transparent; values at or past the last entry take its final color.
func (p *Palette) Color(value float32) color.NRGBA {
	if !p.IsValid() {
		return color.NRGBA{}
	}

	x := float64(value)*p.scale + p.offset
	if p.step > 0 {
		x = math.Floor(x/p.step) * p.step
	}

	k := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].value > x
	}) - 1
	if k < 0 {
		return color.NRGBA{}
	}

	e := p.entries[k]
	if e.solid {
		return e.start
	}
	if k == len(p.entries)-1 {
		if e.hasEnd {
			return e.end
		}
		return e.start
	}

	next := p.entries[k+1]
	target := next.start
	if e.hasEnd {
		target = e.end
	}
	t := (x - e.value) / (next.value - e.value)
	return blend(e.start, target, t)
}

func blend(a, b color.NRGBA, t float64) color.NRGBA {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()
	alpha := float64(a.A) + (float64(b.A)-float64(a.A))*t
	return color.NRGBA{R: r, G: g, B: bl, A: uint8(math.Round(alpha))}
}
