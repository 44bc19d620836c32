package sweep

import (
	"encoding/binary"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zachdehooge/supercell-wx/internal/coords"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/monitoring"
)

const (
	verticesPerBin  = 6
	valuesPerVertex = 2
)

// Outcome reports what a synthesis attempt did. Anything other than Built
// means no sweep was produced and the caller keeps its previous one.
type Outcome int

const (
	Built Outcome = iota
	NoOpEmpty
	NoOpUnmappable
	NoOpNoReference
	NoOpNoTable
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Built:
		return "built"
	case NoOpEmpty:
		return "no radials"
	case NoOpUnmappable:
		return "no data block for product"
	case NoOpNoReference:
		return "no reference moment block"
	case NoOpNoTable:
		return "no coordinate table"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Input is everything one synthesis needs.
type Input struct {
	Product level2.Product
	Radials []*level2.Radial
	Table   *coords.Table

	// MaxGates caps the number of bins read per radial. Zero or negative
	// uses the reference radial's gate count.
	MaxGates int

	// Workers splits the radials into contiguous chunks synthesized
	// concurrently. Output is identical to the serial result. Values <= 1
	// run serially.
	Workers int

	// Warnf receives warnings. Defaults to monitoring.Logf.
	Warnf func(format string, v ...interface{})
}

// Sweep is the geometry and shading data synthesized from one elevation.
type Sweep struct {
	Product level2.Product

	// Vertices holds flattened (x, y) pairs, one pair per vertex.
	Vertices []float32

	// Exactly one of Raw8 and Raw16 is populated, matching WordSize.
	// Each holds one raw sample per vertex.
	Raw8     []uint8
	Raw16    []uint16
	WordSize uint8

	Scale        float32
	Offset       float32
	SNRThreshold int

	Latitude  float32
	Longitude float32
	Time      time.Time

	RadialSize  coords.RadialSize
	RadialCount int
	BinCount    int

	// SkippedRadials lists the indices of radials dropped because their
	// word size disagreed with the first radial or their block was missing.
	SkippedRadials []int

	BuildDuration time.Duration
}

// VertexCount returns the number of emitted vertices.
func (s *Sweep) VertexCount() int {
	return len(s.Vertices) / valuesPerVertex
}

// ComponentSize returns the byte width of one raw value.
func (s *Sweep) ComponentSize() int {
	if s.WordSize == 8 {
		return 1
	}
	return 2
}

// RawLen returns the number of raw values.
func (s *Sweep) RawLen() int {
	if s.WordSize == 8 {
		return len(s.Raw8)
	}
	return len(s.Raw16)
}

// RawValue returns raw value i regardless of word size.
func (s *Sweep) RawValue(i int) uint16 {
	if s.WordSize == 8 {
		return uint16(s.Raw8[i])
	}
	return s.Raw16[i]
}

// RawBytes returns the raw values as bytes ready for upload. 8-bit sweeps
// share the underlying buffer; 16-bit values are encoded little-endian.
func (s *Sweep) RawBytes() []byte {
	if s.WordSize == 8 {
		return s.Raw8
	}
	out := make([]byte, 0, len(s.Raw16)*2)
	for _, v := range s.Raw16 {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

// roundHalfAway rounds half away from zero, matching lroundf.
func roundHalfAway(v float32) int {
	return int(math.Round(float64(v)))
}

// Synthesize builds the sweep geometry for in.Product.
//
// The first radial is the reference: its moment block fixes the word size,
// scale, offset and SNR threshold for the whole sweep, and its azimuth picks
// the first row of the coordinate table. Later radials that disagree on word
// size are skipped. Bins whose sample is below the SNR threshold emit
// nothing.
func Synthesize(in Input) (*Sweep, Outcome) {
	warnf := in.Warnf
	if warnf == nil {
		warnf = monitoring.Logf
	}

	bt, ok := level2.BlockTypeFor(in.Product)
	if !ok {
		warnf("[Sweep] No data block for product %q", in.Product)
		return nil, NoOpUnmappable
	}
	if len(in.Radials) == 0 {
		return nil, NoOpEmpty
	}
	if in.Table == nil {
		warnf("[Sweep] No coordinate table for %s", in.Product)
		return nil, NoOpNoTable
	}

	first := in.Radials[0]
	ref := first.Moment(bt)
	if ref == nil || first.Volume == nil {
		warnf("[Sweep] No moment data for %s", in.Product)
		return nil, NoOpNoReference
	}

	gates := int(ref.GateCount)
	if in.MaxGates > 0 {
		gates = min(gates, in.MaxGates)
	}

	// Azimuth resolution spacing: 1 = 0.5 degrees, 2 = 1.0 degrees.
	spacing := min(max(first.AzimuthResolutionSpacing, 1), 2)
	radialMultiplier := 2.0 / float32(spacing)

	p := params{
		blockType:    bt,
		table:        in.Table,
		gates:        gates,
		maxGate:      min(coords.MaxDataMomentGates, in.Table.Gates),
		wordSize:     ref.DataWordSize,
		snrThreshold: roundHalfAway(float32(ref.SNRThresholdRaw)*ref.Scale/10 + ref.Offset),
		startRadial:  roundHalfAway(first.AzimuthAngle * radialMultiplier),
		originLat:    first.Volume.Latitude,
		originLon:    first.Volume.Longitude,
		warnf:        warnf,
	}

	s := &Sweep{
		Product:      in.Product,
		WordSize:     ref.DataWordSize,
		Scale:        ref.Scale,
		Offset:       ref.Offset,
		SNRThreshold: p.snrThreshold,
		Latitude:     first.Volume.Latitude,
		Longitude:    first.Volume.Longitude,
		Time:         first.Time(),
		RadialSize:   in.Table.Size,
		RadialCount:  len(in.Radials),
	}

	parts := synthesizeChunks(p, in.Radials, in.Workers)
	merge(s, parts)
	return s, Built
}

type params struct {
	blockType    level2.DataBlockType
	table        *coords.Table
	gates        int
	maxGate      int
	wordSize     uint8
	snrThreshold int
	startRadial  int
	originLat    float32
	originLon    float32
	warnf        func(format string, v ...interface{})
}

// chunk is the output of a contiguous run of radials.
type chunk struct {
	vertices []float32
	raw8     []uint8
	raw16    []uint16
	bins     int
	skipped  []int
}

func synthesizeChunks(p params, radials []*level2.Radial, workers int) []chunk {
	if workers <= 1 || len(radials) < 2 {
		return []chunk{synthesizeRange(p, radials, 0)}
	}
	workers = min(workers, runtime.GOMAXPROCS(0), len(radials))
	size := (len(radials) + workers - 1) / workers

	parts := make([]chunk, (len(radials)+size-1)/size)
	var g errgroup.Group
	for i := range parts {
		lo := i * size
		hi := min(lo+size, len(radials))
		g.Go(func() error {
			parts[i] = synthesizeRange(p, radials[lo:hi], lo)
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return parts
}

// synthesizeRange emits the bins of radials, the first of which is radial
// number base within the sweep.
func synthesizeRange(p params, radials []*level2.Radial, base int) chunk {
	capacity := len(radials) * p.gates * verticesPerBin
	c := chunk{vertices: make([]float32, capacity*valuesPerVertex)}
	if p.wordSize == 8 {
		c.raw8 = make([]uint8, capacity)
	} else {
		c.raw16 = make([]uint16, capacity)
	}

	coordinates := p.table.Coordinates
	vi, mi := 0, 0
	put := func(offset int) {
		c.vertices[vi] = coordinates[offset]
		c.vertices[vi+1] = coordinates[offset+1]
		vi += 2
	}

	for i, radial := range radials {
		index := base + i
		m := radial.Moment(p.blockType)
		if m == nil {
			p.warnf("[Sweep] Radial %d has no %s moment block", index, p.blockType)
			c.skipped = append(c.skipped, index)
			continue
		}
		if m.DataWordSize != p.wordSize {
			p.warnf("[Sweep] Radial %d has different word size", index)
			c.skipped = append(c.skipped, index)
			continue
		}

		interval := int(m.RangeSampleIntervalRaw)
		gateSize := max(1, interval/coords.GateLengthMeters)
		startGate := max(0, (int(m.RangeRaw)-interval/2)/coords.GateLengthMeters)
		numberOfGates := min(int(m.GateCount), p.gates, m.Len())
		endGate := min(startGate+numberOfGates*gateSize, p.maxGate)

		current := p.startRadial + index
		next := current + 1

		for gate, s := startGate, 0; gate+gateSize <= endGate; gate, s = gate+gateSize, s+1 {
			value := m.Sample(s)
			if int(value) < p.snrThreshold {
				continue
			}

			vertexCount := 6
			if gate == 0 {
				vertexCount = 3
			}
			if p.wordSize == 8 {
				for k := 0; k < vertexCount; k++ {
					c.raw8[mi+k] = uint8(value)
				}
			} else {
				for k := 0; k < vertexCount; k++ {
					c.raw16[mi+k] = value
				}
			}
			mi += vertexCount
			c.bins++

			if gate > 0 {
				prev := gate - 1
				o1 := p.table.Offset(current, prev)
				o2 := o1 + gateSize*2
				o3 := p.table.Offset(next, prev)
				o4 := o3 + gateSize*2

				put(o1)
				put(o2)
				put(o3)

				put(o3)
				put(o4)
				put(o2)
			} else {
				c.vertices[vi] = p.originLat
				c.vertices[vi+1] = p.originLon
				vi += 2
				put(p.table.Offset(current, 0))
				put(p.table.Offset(next, 0))
			}
		}
	}

	c.vertices = c.vertices[:vi]
	if p.wordSize == 8 {
		c.raw8 = c.raw8[:mi]
	} else {
		c.raw16 = c.raw16[:mi]
	}
	return c
}

func merge(s *Sweep, parts []chunk) {
	if len(parts) == 1 {
		s.Vertices, s.Raw8, s.Raw16 = parts[0].vertices, parts[0].raw8, parts[0].raw16
		s.BinCount = parts[0].bins
		s.SkippedRadials = parts[0].skipped
		return
	}

	var nv, nm int
	for _, c := range parts {
		nv += len(c.vertices)
		nm += len(c.raw8) + len(c.raw16)
	}
	s.Vertices = make([]float32, 0, nv)
	if s.WordSize == 8 {
		s.Raw8 = make([]uint8, 0, nm)
	} else {
		s.Raw16 = make([]uint16, 0, nm)
	}
	for _, c := range parts {
		s.Vertices = append(s.Vertices, c.vertices...)
		s.Raw8 = append(s.Raw8, c.raw8...)
		s.Raw16 = append(s.Raw16, c.raw16...)
		s.BinCount += c.bins
		s.SkippedRadials = append(s.SkippedRadials, c.skipped...)
	}
}
