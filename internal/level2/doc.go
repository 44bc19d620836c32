// Package level2 models the decoded Level II radial records consumed by the
// sweep synthesizer.
//
// A Radial is one azimuth of a scan. It carries the enclosing volume's site
// position, its collection time, and one MomentBlock per moment variable
// (reflectivity, velocity, ...). Decoding the archive container is owned by
// the record parser; this package only defines the shape the parser fills.
package level2
