package track

// Point is a position on the ground plane. Z decreases in the driving direction.
type Point struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// CatmullRom evaluates the uniform Catmull-Rom segment between p1 and p2 at t,
// using p0 and p3 as tangent handles.
func CatmullRom(p0, p1, p2, p3 Point, t float64) Point {
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: catmullRom1D(p0.X, p1.X, p2.X, p3.X, t, t2, t3),
		Z: catmullRom1D(p0.Z, p1.Z, p2.Z, p3.Z, t, t2, t3),
	}
}

func catmullRom1D(a, b, c, d, t, t2, t3 float64) float64 {
	return 0.5 * (2*b +
		(-a+c)*t +
		(2*a-5*b+4*c-d)*t2 +
		(-a+3*b-3*c+d)*t3)
}

// Centerline samples a clamped (non-looping) Catmull-Rom spline through the
// waypoints, steps points per segment, and appends the last waypoint once.
// The first and last waypoints serve as their own outer neighbours.
func Centerline(waypoints []Point, steps int) []Point {
	n := len(waypoints)
	if n == 0 || steps < 1 {
		return nil
	}

	pts := make([]Point, 0, (n-1)*steps+1)
	for i := 0; i < n-1; i++ {
		p0 := waypoints[max(0, i-1)]
		p1 := waypoints[i]
		p2 := waypoints[i+1]
		p3 := waypoints[min(n-1, i+2)]
		for s := 0; s < steps; s++ {
			pts = append(pts, CatmullRom(p0, p1, p2, p3, float64(s)/float64(steps)))
		}
	}
	return append(pts, waypoints[n-1])
}
