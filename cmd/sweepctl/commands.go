package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/Zachdehooge/supercell-wx/internal/colortable"
	"github.com/Zachdehooge/supercell-wx/internal/config"
	"github.com/Zachdehooge/supercell-wx/internal/coords"
	"github.com/Zachdehooge/supercell-wx/internal/fsutil"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/monitoring"
	"github.com/Zachdehooge/supercell-wx/internal/preview"
	"github.com/Zachdehooge/supercell-wx/internal/radialdb"
	"github.com/Zachdehooge/supercell-wx/internal/security"
	"github.com/Zachdehooge/supercell-wx/internal/sweep"
	"github.com/Zachdehooge/supercell-wx/internal/units"
)

//go:embed palettes/*.pal
var builtinPalettes embed.FS

// builtinPaletteFor maps products to the embedded palettes.
var builtinPaletteFor = map[level2.Product]string{
	level2.Reflectivity: "palettes/BR.pal",
	level2.Velocity:     "palettes/BV.pal",
}

// settings is the resolved configuration for one command run.
type settings struct {
	cfg     *config.ViewerConfig
	product level2.Product
}

func (g *globalFlags) resolve() (*settings, error) {
	cfg := config.EmptyViewerConfig()
	path := g.configPath
	if path == "" && (fsutil.OSFileSystem{}).Exists(config.DefaultConfigPath) {
		path = config.DefaultConfigPath
	}
	if path != "" {
		loaded, err := config.LoadViewerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if g.dbPath != "" {
		cfg.DatabasePath = &g.dbPath
	}
	if g.siteID != "" {
		cfg.SiteID = &g.siteID
	}
	if g.product != "" {
		cfg.Product = &g.product
	}
	if g.elevation >= 0 {
		cfg.ElevationIndex = &g.elevation
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	product, ok := level2.ParseProduct(cfg.GetProduct())
	if !ok {
		return nil, fmt.Errorf("unknown product %q", cfg.GetProduct())
	}

	monitoring.SetDebug(g.debug || cfg.GetDebugLogging())
	return &settings{cfg: cfg, product: product}, nil
}

func (s *settings) openStore() (*radialdb.Store, error) {
	store, err := radialdb.Open(s.cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.cfg.GetDatabasePath(), err)
	}
	return store, nil
}

func (s *settings) loadPalette() (colortable.ColorTable, error) {
	if path := s.cfg.GetPalettePath(); path != "" {
		return colortable.LoadFile(fsutil.OSFileSystem{}, path)
	}
	name, ok := builtinPaletteFor[s.product]
	if !ok {
		name = "palettes/default.pal"
	}
	data, err := builtinPalettes.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return colortable.Load(bytes.NewReader(data))
}

// buildSweep refreshes a one-shot view of the site's newest volume (or the
// pinned one) and returns it with its color table loaded.
func (s *settings) buildSweep(ctx context.Context, store *radialdb.Store, volumeID string) (*sweep.View, error) {
	var (
		vol radialdb.Volume
		err error
	)
	if volumeID != "" {
		vol, err = store.GetVolume(ctx, volumeID)
	} else {
		vol, err = store.LatestVolume(ctx, s.cfg.GetSiteID())
	}
	if err != nil {
		return nil, err
	}

	src := radialdb.NewSource(store, vol.SiteID)
	src.Pin(vol.ID)
	cache := coords.NewCache(float64(vol.Latitude), float64(vol.Longitude))

	view, err := sweep.NewView(s.product, src, cache, sweep.ViewConfigFromViewer(s.cfg))
	if err != nil {
		return nil, err
	}

	palette, err := s.loadPalette()
	if err != nil {
		return nil, fmt.Errorf("failed to load palette: %w", err)
	}
	view.LoadColorTable(palette)

	outcome, err := view.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if outcome != sweep.Built {
		return nil, fmt.Errorf("no sweep for %s elevation %d: %s", s.product, s.cfg.GetElevationIndex(), outcome)
	}
	return view, nil
}

func newIngestCmd(g *globalFlags) *cobra.Command {
	var (
		radials    int
		gates      int
		elevations int
		at         string
	)
	cmd := &cobra.Command{
		Use:   "ingest-synthetic",
		Short: "Store a synthetic volume with a storm cell for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.resolve()
			if err != nil {
				return err
			}
			when := time.Now().UTC()
			if at != "" {
				if when, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --time: %w", err)
				}
			}
			if radials != 360 && radials != coords.MaxRadials {
				return fmt.Errorf("--radials must be 360 or %d", coords.MaxRadials)
			}
			if gates <= 0 || gates > coords.MaxDataMomentGates {
				return fmt.Errorf("--gates must be in [1, %d]", coords.MaxDataMomentGates)
			}

			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			volume := syntheticVolume(syntheticParams{
				Radials:    radials,
				Gates:      gates,
				Elevations: elevations,
				Time:       when,
			})
			id, err := store.InsertVolume(cmd.Context(), s.cfg.GetSiteID(), volume)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored volume %s (%d radials) for %s\n", id, len(volume), s.cfg.GetSiteID())
			return nil
		},
	}
	cmd.Flags().IntVar(&radials, "radials", coords.MaxRadials, "Radials per elevation (360 or 720)")
	cmd.Flags().IntVar(&gates, "gates", 920, "Gates per radial")
	cmd.Flags().IntVar(&elevations, "elevations", 1, "Number of elevations")
	cmd.Flags().StringVar(&at, "time", "", "Collection time (RFC3339, default now)")
	return cmd
}

func newRenderCmd(g *globalFlags) *cobra.Command {
	var (
		out      string
		outDir   string
		size     float64
		volumeID string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the current sweep to a PNG image",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.resolve()
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := s.buildSweep(cmd.Context(), store, volumeID)
			if err != nil {
				return err
			}
			sw := view.CurrentSweep()

			opts := preview.DefaultRenderOptions()
			opts.Width = vg.Length(size) * vg.Inch
			opts.Height = opts.Width
			opts.Title = fmt.Sprintf("%s %s %s", s.cfg.GetSiteID(), s.product, sw.Time.Format(time.RFC3339))

			if out == "" {
				out, err = security.ExportPath(outDir, ".png",
					s.cfg.GetSiteID(), s.product.String(), sw.Time.UTC().Format("20060102T150405Z"))
				if err != nil {
					return err
				}
			}

			drawn, err := preview.RenderPNG(fsutil.OSFileSystem{}, out, sw, view.CurrentColorLUT(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d triangles, built in %s)\n", out, drawn, sw.BuildDuration)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG path (default <site>_<product>_<time>.png in --dir)")
	cmd.Flags().StringVar(&outDir, "dir", ".", "Directory for the default output name")
	cmd.Flags().Float64Var(&size, "size", 8, "Image size in inches")
	cmd.Flags().StringVar(&volumeID, "volume", "", "Volume ID (default latest)")
	return cmd
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	var (
		htmlOut   string
		width     float64
		volumeID  string
		speedUnit string
		timezone  string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the values of the current sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !units.IsValid(speedUnit) {
				return fmt.Errorf("invalid --units %q, want one of %s", speedUnit, units.GetValidUnitsString())
			}
			if timezone != "UTC" && !units.IsTimezoneValid(timezone) {
				return fmt.Errorf("invalid --tz %q", timezone)
			}
			s, err := g.resolve()
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			view, err := s.buildSweep(cmd.Context(), store, volumeID)
			if err != nil {
				return err
			}
			sw := view.CurrentSweep()
			sum := preview.Summarize(sw)
			if isSpeed(s.product) {
				sum = convertSummary(sum, speedUnit)
			}
			local, err := units.ConvertTime(sw.Time, timezone)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "product:   %s\n", sw.Product)
			fmt.Fprintf(w, "time:      %s\n", local.Format(time.RFC3339))
			fmt.Fprintf(w, "radials:   %d (%s, %d skipped)\n", sw.RadialCount, sw.RadialSize, len(sw.SkippedRadials))
			fmt.Fprintf(w, "bins:      %d\n", sum.Bins)
			fmt.Fprintf(w, "vertices:  %d\n", sum.Vertices)
			fmt.Fprintf(w, "threshold: %d\n", sw.SNRThreshold)
			if sum.Bins > 0 {
				fmt.Fprintf(w, "min/max:   %.2f / %.2f\n", sum.Min, sum.Max)
				fmt.Fprintf(w, "mean:      %.2f (sd %.2f)\n", sum.Mean, sum.StdDev)
				fmt.Fprintf(w, "median:    %.2f\n", sum.Median)
			}

			if upload, ok := view.CurrentUpload(); ok {
				fmt.Fprintf(w, "upload:    %d vertices, stride %d\n", upload.VertexCount, upload.Layout.ArrayStride)
				for _, buf := range upload.Buffers {
					fmt.Fprintf(w, "buffer:    %s %d bytes (%d-byte components)\n", buf.Label, buf.Size, buf.ComponentSize)
				}
			}

			if htmlOut == "" {
				return nil
			}
			f, err := fsutil.OSFileSystem{}.Create(htmlOut)
			if err != nil {
				return err
			}
			if err := preview.HistogramHTML(f, sw, width); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&htmlOut, "html", "", "Write an HTML histogram to this path")
	cmd.Flags().Float64Var(&width, "bucket", 5, "Histogram bucket width in physical units")
	cmd.Flags().StringVar(&volumeID, "volume", "", "Volume ID (default latest)")
	cmd.Flags().StringVar(&speedUnit, "units", units.MPS, "Units for velocity products: "+units.GetValidUnitsString())
	cmd.Flags().StringVar(&timezone, "tz", "UTC", "Timezone for displayed times")
	return cmd
}

// isSpeed reports whether the product's physical unit is m/s.
func isSpeed(p level2.Product) bool {
	return p == level2.Velocity || p == level2.SpectrumWidth
}

func convertSummary(sum preview.Summary, unit string) preview.Summary {
	sum.Min = units.ConvertSpeed(sum.Min, unit)
	sum.Max = units.ConvertSpeed(sum.Max, unit)
	sum.Mean = units.ConvertSpeed(sum.Mean, unit)
	sum.StdDev = units.ConvertSpeed(sum.StdDev, unit)
	sum.Median = units.ConvertSpeed(sum.Median, unit)
	return sum
}

func newVolumesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes",
		Short: "List stored volumes for the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.resolve()
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			volumes, err := store.ListVolumes(cmd.Context(), s.cfg.GetSiteID())
			if err != nil {
				return err
			}
			for _, v := range volumes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %.4f %.4f\n",
					v.ID, v.CollectedAt.Format(time.RFC3339), v.Latitude, v.Longitude)
			}
			return nil
		},
	}
}

func newPruneCmd(g *globalFlags) *cobra.Command {
	var keep time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete volumes older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.resolve()
			if err != nil {
				return err
			}
			store, err := s.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.DeleteVolumesBefore(cmd.Context(), s.cfg.GetSiteID(), time.Now().Add(-keep))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d volumes\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&keep, "keep", 24*time.Hour, "Retention window")
	return cmd
}
