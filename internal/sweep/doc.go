// Package sweep turns one elevation of Level II radials into GPU-ready
// geometry and keeps the color lookup table that shades it.
//
// Synthesize projects every range bin above the SNR threshold into one
// triangle (bins touching the radar) or two triangles (all other bins) using
// a precomputed coordinate table, and emits one raw sample per vertex.
// LUTCache maps the raw sample domain of a product to palette colors and
// only rebuilds when the palette or the sweep's scale/offset changes.
// View ties both to a radial source: it rebuilds on new-data notifications,
// coalesces bursts, and publishes complete results atomically.
package sweep
