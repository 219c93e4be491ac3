// Package track builds the road centerline from waypoints and answers
// "where is the middle of the road at depth Z".
package track

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrTooFewWaypoints    = errors.New("track needs at least two waypoints")
	ErrNotDescending      = errors.New("track z must strictly decrease")
	ErrInvalidSubdivision = errors.New("spline subdivision must be positive")
	ErrInvalidWidth       = errors.New("track width must be positive")
	ErrNonFiniteWaypoint  = errors.New("track waypoints must be finite")
)

// Track is an immutable road: the control waypoints, the dense centerline
// sampled from them, and the road width.
type Track struct {
	waypoints  []Point
	centerline []Point
	width      float64
}

// New validates the waypoints and samples the centerline.
func New(waypoints []Point, steps int, width float64) (*Track, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	if steps < 1 {
		return nil, ErrInvalidSubdivision
	}
	if !(width > 0) {
		return nil, ErrInvalidWidth
	}
	for i, wp := range waypoints {
		if math.IsNaN(wp.X) || math.IsInf(wp.X, 0) || math.IsNaN(wp.Z) || math.IsInf(wp.Z, 0) {
			return nil, fmt.Errorf("%w: waypoint %d is (%v, %v)", ErrNonFiniteWaypoint, i, wp.X, wp.Z)
		}
	}
	for i := 1; i < len(waypoints); i++ {
		if waypoints[i].Z >= waypoints[i-1].Z {
			return nil, fmt.Errorf("%w: waypoint %d at z=%.2f follows z=%.2f",
				ErrNotDescending, i, waypoints[i].Z, waypoints[i-1].Z)
		}
	}

	wps := make([]Point, len(waypoints))
	copy(wps, waypoints)

	line := Centerline(wps, steps)
	// Strongly uneven waypoint spacing can make the spline double back in z,
	// which would break the lookup.
	for i := 1; i < len(line); i++ {
		if line[i].Z > line[i-1].Z {
			return nil, fmt.Errorf("%w: centerline sample %d at z=%.2f rises above z=%.2f",
				ErrNotDescending, i, line[i].Z, line[i-1].Z)
		}
	}

	return &Track{waypoints: wps, centerline: line, width: width}, nil
}

// Waypoints returns a copy of the control points.
func (t *Track) Waypoints() []Point {
	out := make([]Point, len(t.waypoints))
	copy(out, t.waypoints)
	return out
}

// Centerline returns a copy of the sampled centerline.
func (t *Track) Centerline() []Point {
	out := make([]Point, len(t.centerline))
	copy(out, t.centerline)
	return out
}

func (t *Track) Width() float64 { return t.width }
func (t *Track) HalfWidth() float64 { return t.width / 2 }

// Start is the first waypoint, where every lap begins.
func (t *Track) Start() Point { return t.waypoints[0] }

// End is the last centerline sample.
func (t *Track) End() Point { return t.centerline[len(t.centerline)-1] }

// CenterX returns the centerline X at depth z. Queries before the first sample
// or past the last one clamp to that endpoint. A NaN depth answers with the
// start of the road.
func (t *Track) CenterX(z float64) float64 {
	pts := t.centerline
	first, last := pts[0], pts[len(pts)-1]
	if math.IsNaN(z) || z >= first.Z {
		return first.X
	}
	if z <= last.Z {
		return last.X
	}

	// First sample strictly below z; its predecessor is at or above z.
	i := sort.Search(len(pts), func(i int) bool { return pts[i].Z < z })
	a, b := pts[i-1], pts[i]

	denom := a.Z - b.Z
	if denom == 0 {
		return a.X
	}
	f := (a.Z - z) / denom
	return a.X + f*(b.X-a.X)
}

// LateralOffset is the signed distance of x from the centerline at z,
// positive to the right (+X).
func (t *Track) LateralOffset(x, z float64) float64 {
	return x - t.CenterX(z)
}

// Contains reports whether (x, z) lies within the road plus tolerance.
func (t *Track) Contains(x, z, tolerance float64) bool {
	return math.Abs(t.LateralOffset(x, z)) <= t.HalfWidth()+tolerance
}
