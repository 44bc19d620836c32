// Package preview renders synthesized sweeps off-screen: PNG images through
// gonum/plot, summary statistics and HTML histograms for inspection tools.
package preview

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Zachdehooge/supercell-wx/internal/fsutil"
	"github.com/Zachdehooge/supercell-wx/internal/sweep"
)

// ErrNoSweep is returned when there is nothing to render.
var ErrNoSweep = errors.New("no sweep to render")

// RenderOptions controls the output image.
type RenderOptions struct {
	Width  vg.Length
	Height vg.Length
	Title  string
}

// DefaultRenderOptions returns an 8 inch square image.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Width: 8 * vg.Inch, Height: 8 * vg.Inch}
}

// Plot draws every triangle of s filled with its LUT color. Triangles whose
// raw value falls outside the LUT or maps to a transparent color are left
// out. Longitude runs along X and latitude along Y.
func Plot(s *sweep.Sweep, lut sweep.LUT, title string) (*plot.Plot, int, error) {
	if s == nil {
		return nil, 0, ErrNoSweep
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	drawn := 0
	for v := 0; v+2 < s.VertexCount(); v += 3 {
		c, ok := lut.Lookup(s.RawValue(v))
		if !ok || c.A == 0 {
			continue
		}

		tri := make(plotter.XYs, 3)
		for k := range tri {
			i := (v + k) * 2
			tri[k] = plotter.XY{X: float64(s.Vertices[i+1]), Y: float64(s.Vertices[i])}
		}
		poly, err := plotter.NewPolygon(tri)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to build triangle %d: %w", v/3, err)
		}
		poly.Color = c
		poly.LineStyle.Width = 0
		p.Add(poly)
		drawn++
	}

	// Site marker keeps the axes centred on the radar when nothing is drawn.
	site, err := plotter.NewScatter(plotter.XYs{{X: float64(s.Longitude), Y: float64(s.Latitude)}})
	if err != nil {
		return nil, 0, err
	}
	site.GlyphStyle.Color = color.Black
	site.GlyphStyle.Radius = vg.Points(2)
	p.Add(site)

	return p, drawn, nil
}

// RenderPNG writes s as a PNG image to path on fsys and returns the number
// of triangles drawn.
func RenderPNG(fsys fsutil.FileSystem, path string, s *sweep.Sweep, lut sweep.LUT, opts RenderOptions) (int, error) {
	p, drawn, err := Plot(s, lut, opts.Title)
	if err != nil {
		return 0, err
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return 0, fmt.Errorf("failed to create png writer: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return drawn, nil
}
