package kernel

import "math"

// Support describes the nodes covered by one rectangular pulse of radius r on
// a ring of n nodes, relative to its center.
//
// A pulse covers the whole ring once r >= n/2. Otherwise it covers every node
// within HalfWidth = floor(r) hops; radii below one (including zero, negative
// and NaN radii) cover the center node only.
type Support struct {
	Whole     bool
	HalfWidth int
}

func PulseSupport(n int, r float64) Support {
	if n <= 0 {
		return Support{}
	}
	if r >= float64(n)/2.0 {
		return Support{Whole: true}
	}
	if math.IsNaN(r) || r < 1 {
		return Support{}
	}
	return Support{HalfWidth: int(math.Floor(r))}
}

// InPulse reports whether a node at toroidal distance dx lies inside the pulse
// of radius r.
func InPulse(n int, dx, r float64) bool {
	s := PulseSupport(n, r)
	if s.Whole {
		return true
	}
	return dx <= float64(s.HalfWidth)
}
