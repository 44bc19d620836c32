package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Zachdehooge/supercell-wx/internal/colortable"
	"github.com/Zachdehooge/supercell-wx/internal/config"
	"github.com/Zachdehooge/supercell-wx/internal/coords"
	"github.com/Zachdehooge/supercell-wx/internal/level2"
	"github.com/Zachdehooge/supercell-wx/internal/monitoring"
	"github.com/Zachdehooge/supercell-wx/internal/timeutil"
)

// RadialSource supplies the radials of one elevation for a product.
type RadialSource interface {
	GetRadials(ctx context.Context, product level2.Product, elevationIndex int) ([]*level2.Radial, error)
}

// CoordinateSource supplies the coordinate table for a radial resolution.
type CoordinateSource interface {
	GetCoordinateTable(ctx context.Context, size coords.RadialSize) (*coords.Table, error)
}

// ErrNoSources is returned by NewView when a source is missing.
var ErrNoSources = errors.New("view requires a radial source and a coordinate source")

// State is the view's synthesis state.
type State int32

const (
	Idle State = iota
	Synthesizing
)

func (s State) String() string {
	if s == Synthesizing {
		return "synthesizing"
	}
	return "idle"
}

// ViewConfig holds the per-view synthesis settings.
type ViewConfig struct {
	ElevationIndex       int
	MaxGates             int
	Workers              int
	LUTParallelThreshold int
	Clock                timeutil.Clock
}

// DefaultViewConfig returns the settings used when none are given.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		MaxGates:             coords.MaxDataMomentGates,
		Workers:              1,
		LUTParallelThreshold: DefaultLUTParallelThreshold,
		Clock:                timeutil.RealClock{},
	}
}

// ViewConfigFromViewer maps the viewer configuration file onto view settings.
func ViewConfigFromViewer(cfg *config.ViewerConfig) ViewConfig {
	vc := DefaultViewConfig()
	if cfg == nil {
		return vc
	}
	vc.ElevationIndex = cfg.GetElevationIndex()
	vc.MaxGates = cfg.GetMaxGates()
	vc.LUTParallelThreshold = cfg.GetLUTParallelThreshold()
	return vc
}

// ViewStats counts refresh outcomes.
type ViewStats struct {
	Builds   uint64
	NoOps    uint64
	Failures uint64
}

// View keeps the latest synthesized sweep for one product and elevation.
//
// Refreshes are serialized; Notify coalesces bursts of new-data signals into
// at most one pending refresh behind the one in flight. Readers never see a
// partially built sweep: results are published with a single pointer swap,
// and a failed or no-op refresh leaves the previous sweep in place.
type View struct {
	id          string
	product     level2.Product
	radials     RadialSource
	coordinates CoordinateSource
	cfg         ViewConfig

	buildMu sync.Mutex
	pending chan struct{}
	state   atomic.Int32

	current atomic.Pointer[Sweep]
	lut     *LUTCache

	tableMu    sync.Mutex
	colorTable colortable.ColorTable

	sweepUpdated      chan struct{}
	colorTableUpdated chan struct{}

	builds   atomic.Uint64
	noOps    atomic.Uint64
	failures atomic.Uint64
}

// NewView creates a view of product backed by the given sources.
func NewView(product level2.Product, radials RadialSource, coordinates CoordinateSource, cfg ViewConfig) (*View, error) {
	if radials == nil || coordinates == nil {
		return nil, ErrNoSources
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	v := &View{
		id:                uuid.New().String(),
		product:           product,
		radials:           radials,
		coordinates:       coordinates,
		cfg:               cfg,
		pending:           make(chan struct{}, 1),
		lut:               NewLUTCache(cfg.LUTParallelThreshold),
		sweepUpdated:      make(chan struct{}, 1),
		colorTableUpdated: make(chan struct{}, 1),
	}
	if _, ok := level2.BlockTypeFor(product); !ok {
		monitoring.Logf("[View %s] Unknown product: %q", v.id, product)
	}
	return v, nil
}

// ID returns the view's unique identifier.
func (v *View) ID() string { return v.id }

// Product returns the product the view displays.
func (v *View) Product() level2.Product { return v.product }

// State returns whether a refresh is running.
func (v *View) State() State { return State(v.state.Load()) }

// Stats returns the refresh counters.
func (v *View) Stats() ViewStats {
	return ViewStats{
		Builds:   v.builds.Load(),
		NoOps:    v.noOps.Load(),
		Failures: v.failures.Load(),
	}
}

// SweepUpdated signals after a new sweep is published. Signals coalesce.
func (v *View) SweepUpdated() <-chan struct{} { return v.sweepUpdated }

// ColorTableUpdated signals after the color LUT is rebuilt. Signals coalesce.
func (v *View) ColorTableUpdated() <-chan struct{} { return v.colorTableUpdated }

// Notify requests a refresh from Run. It never blocks; requests made while a
// refresh is already pending are dropped.
func (v *View) Notify() {
	select {
	case v.pending <- struct{}{}:
	default:
	}
}

// Run refreshes the view each time Notify is called until ctx is done.
func (v *View) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.pending:
			if _, err := v.Refresh(ctx); err != nil {
				monitoring.Logf("[View %s] Refresh failed: %v", v.id, err)
			}
		}
	}
}

// Refresh fetches the radials, synthesizes a sweep and publishes it.
// Only Built replaces the current sweep.
func (v *View) Refresh(ctx context.Context) (Outcome, error) {
	v.buildMu.Lock()
	defer v.buildMu.Unlock()

	v.state.Store(int32(Synthesizing))
	defer v.state.Store(int32(Idle))

	outcome, err := v.refresh(ctx)
	switch {
	case err != nil:
		v.failures.Add(1)
	case outcome == Built:
		v.builds.Add(1)
	default:
		v.noOps.Add(1)
		monitoring.Debugf("[View %s] No sweep: %s", v.id, outcome)
	}
	return outcome, err
}

func (v *View) refresh(ctx context.Context) (Outcome, error) {
	if _, ok := level2.BlockTypeFor(v.product); !ok {
		return NoOpUnmappable, nil
	}

	radials, err := v.radials.GetRadials(ctx, v.product, v.cfg.ElevationIndex)
	if err != nil {
		return Failed, fmt.Errorf("failed to get radials: %w", err)
	}
	if len(radials) == 0 {
		return NoOpEmpty, nil
	}

	size := coords.RadialSizeFor(len(radials))
	table, err := v.coordinates.GetCoordinateTable(ctx, size)
	if err != nil {
		return Failed, fmt.Errorf("failed to get %s coordinate table: %w", size, err)
	}

	start := v.cfg.Clock.Now()
	s, outcome := Synthesize(Input{
		Product:  v.product,
		Radials:  radials,
		Table:    table,
		MaxGates: v.cfg.MaxGates,
		Workers:  v.cfg.Workers,
		Warnf:    v.warnf,
	})
	if outcome != Built {
		return outcome, nil
	}
	s.BuildDuration = v.cfg.Clock.Since(start)
	monitoring.Debugf("[View %s] Vertices calculated in %s (%d radials, %d bins)",
		v.id, s.BuildDuration, s.RadialCount, s.BinCount)

	v.current.Store(s)
	signal(v.sweepUpdated)

	v.updateColorTable(s)
	return Built, nil
}

func (v *View) warnf(format string, args ...interface{}) {
	monitoring.Logf("[View "+v.id+"] "+format, args...)
}

// LoadColorTable installs the palette used to build the color LUT and
// rebuilds the LUT against the current sweep if there is one.
func (v *View) LoadColorTable(table colortable.ColorTable) {
	v.buildMu.Lock()
	defer v.buildMu.Unlock()

	v.tableMu.Lock()
	v.colorTable = table
	v.tableMu.Unlock()

	if s := v.current.Load(); s != nil {
		v.updateColorTable(s)
	}
}

func (v *View) updateColorTable(s *Sweep) {
	v.tableMu.Lock()
	table := v.colorTable
	v.tableMu.Unlock()

	if table == nil || !table.IsValid() {
		return
	}
	if _, rebuilt := v.lut.GetOrBuild(table, s.Scale, s.Offset, v.product); rebuilt {
		monitoring.Debugf("[View %s] Color table rebuilt (scale %g, offset %g)", v.id, s.Scale, s.Offset)
		signal(v.colorTableUpdated)
	}
}

// CurrentSweep returns the last published sweep, or nil.
func (v *View) CurrentSweep() *Sweep { return v.current.Load() }

// CurrentVertices returns the vertex buffer of the last published sweep.
func (v *View) CurrentVertices() []float32 {
	if s := v.current.Load(); s != nil {
		return s.Vertices
	}
	return nil
}

// CurrentRawValues returns the raw value buffer of the last published sweep
// and the byte width of one value. Width is zero when there is no sweep.
func (v *View) CurrentRawValues() ([]byte, int) {
	s := v.current.Load()
	if s == nil {
		return nil, 0
	}
	return s.RawBytes(), s.ComponentSize()
}

// CurrentUpload returns the GPU upload plan of the last published sweep.
func (v *View) CurrentUpload() (Upload, bool) { return UploadFor(v.current.Load()) }

// CurrentColorLUT returns the last built color LUT.
func (v *View) CurrentColorLUT() LUT { return v.lut.Current() }

// SweepTime returns the collection time of the last published sweep.
func (v *View) SweepTime() time.Time {
	if s := v.current.Load(); s != nil {
		return s.Time
	}
	return time.Time{}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
