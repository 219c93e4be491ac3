package game

import (
	"math"

	"github.com/journeydrive/sim/internal/track"
)

// Input is one tick of normalized driver intent. Forward > 0 accelerates,
// < 0 brakes and then reverses. Steering < 0 turns left (-X).
type Input struct {
	Forward  float64
	Steering float64
}

// Clamp returns the input with both axes limited to [-1, 1]. Non-finite
// axes become 0.
func (in Input) Clamp() Input {
	return Input{Forward: clampUnit(in.Forward), Steering: clampUnit(in.Steering)}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// Pose is the authoritative, unsmoothed vehicle placement. Heading 0 faces -Z
// and positive heading turns toward +X.
type Pose struct {
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"`
}

// Vehicle is the mutable kinematic state. Only Physics.Step mutates it while a
// session is running.
type Vehicle struct {
	X       float64
	Z       float64
	Heading float64
	Speed   float64 // signed, units/s
	Steer   float64 // actual wheel angle, radians
	Ramp    float64 // launch ramp in [0, 1]
}

// NewVehicle places a vehicle at rest on p facing down the track.
func NewVehicle(p track.Point) *Vehicle {
	v := &Vehicle{}
	v.Reset(p)
	return v
}

// Reset returns the vehicle to rest at p.
func (v *Vehicle) Reset(p track.Point) {
	*v = Vehicle{X: p.X, Z: p.Z}
}

// Pose returns the current position and heading.
func (v *Vehicle) Pose() Pose {
	return Pose{X: v.X, Z: v.Z, Heading: v.Heading}
}

// Forward is the unit direction the vehicle faces on the ground plane.
func (v *Vehicle) Forward() (dx, dz float64) {
	return math.Sin(v.Heading), -math.Cos(v.Heading)
}
