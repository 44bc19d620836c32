package preview

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Zachdehooge/supercell-wx/internal/sweep"
)

// Bucket counts the bins whose physical value lies in [Lower, Lower+width).
type Bucket struct {
	Lower float64
	Count int
}

// Histogram groups the rendered bins of s into buckets of the given width.
// Buckets are aligned to multiples of width; empty buckets between the first
// and last populated ones are included.
func Histogram(s *sweep.Sweep, width float64) []Bucket {
	values := BinValues(s)
	if len(values) == 0 || width <= 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	first := math.Floor(lo / width)
	n := int(math.Floor(hi/width)-first) + 1

	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Lower = (first + float64(i)) * width
	}
	for _, v := range values {
		buckets[int(math.Floor(v/width)-first)].Count++
	}
	return buckets
}

// HistogramHTML writes an HTML bar chart of the bin value distribution.
func HistogramHTML(w io.Writer, s *sweep.Sweep, width float64) error {
	if s == nil {
		return ErrNoSweep
	}
	buckets := Histogram(s, width)

	x := make([]string, len(buckets))
	y := make([]opts.BarData, len(buckets))
	for i, b := range buckets {
		x[i] = fmt.Sprintf("%g", b.Lower)
		y[i] = opts.BarData{Value: b.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s distribution", s.Product),
			Subtitle: fmt.Sprintf("%s  bins=%d", s.Time.Format("2006-01-02 15:04:05Z"), s.BinCount),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("bins", y)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}
