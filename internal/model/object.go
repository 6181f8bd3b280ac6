// Package model holds the small cross-package detection types shared by
// internal/stack (which produces ImageObjects) and internal/mover (which
// consumes them into Tracklets and Movers) — kept separate from both so
// neither package needs to import the other.
package model

import "huntmover/internal/geom"

// ObjectRef is a stable identifier for an ImageObject: its group index
// (0-2) and its index within that group's latest object list.
// Cross-entity references use these handles rather than pointer
// equality, so storage and the result server can serialize
// tracklets/movers without keeping the in-memory object list alive and
// untouched.
type ObjectRef struct {
	Group int
	Index int
}

// ImageObject is a candidate detection within one group's tracked stack:
// a refined subpixel location, the accepted aperture's pixel count,
// SNR, net flux, and the count of threshold-exceeding pixels.
type ImageObject struct {
	Ref      ObjectRef
	Location geom.FPoint
	ObSize   int // pixel count in accepted aperture
	TCount   int // count of threshold-exceeding pixels
	SNR      float64
	Flux     float64
}
