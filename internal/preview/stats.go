package preview

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Zachdehooge/supercell-wx/internal/sweep"
)

// Summary describes the physical values of a sweep. Each rendered bin is
// counted once.
type Summary struct {
	Bins     int
	Vertices int
	Min      float64
	Max      float64
	Mean     float64
	StdDev   float64
	Median   float64
}

// BinValues returns the physical value of every rendered bin in emission
// order. Origin bins (3 vertices) and other bins (6 vertices) are told apart
// by the origin vertex, which always sits on the site position.
func BinValues(s *sweep.Sweep) []float64 {
	if s == nil {
		return nil
	}
	values := make([]float64, 0, s.BinCount)
	for v := 0; v < s.VertexCount(); {
		raw := s.RawValue(v)
		values = append(values, float64((float32(raw)-s.Offset)/s.Scale))
		if isOrigin(s, v) {
			v += 3
		} else {
			v += 6
		}
	}
	return values
}

func isOrigin(s *sweep.Sweep, v int) bool {
	return s.Vertices[v*2] == s.Latitude && s.Vertices[v*2+1] == s.Longitude
}

// Summarize computes summary statistics over the rendered bins of s.
func Summarize(s *sweep.Sweep) Summary {
	values := BinValues(s)
	if len(values) == 0 {
		return Summary{}
	}

	sum := Summary{
		Bins:     len(values),
		Vertices: s.VertexCount(),
		Min:      floats.Min(values),
		Max:      floats.Max(values),
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		sum.StdDev = 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	sum.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return sum
}
