package game

import (
	"math"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/track"
)

// SteeringSource produces the input fed to Physics.Step for one tick.
type SteeringSource interface {
	Command(v *Vehicle, in Input) Input
}

// ManualSteering passes the driver's input through unchanged.
type ManualSteering struct{}

func (ManualSteering) Command(_ *Vehicle, in Input) Input {
	return in.Clamp()
}

// Autopilot drives at a fixed cruise throttle and steers toward a point on
// the centerline ahead of the vehicle. It keeps no state between ticks.
type Autopilot struct {
	track  *track.Track
	tuning config.Tuning
}

// NewAutopilot creates an autopilot following tr.
func NewAutopilot(tr *track.Track, tuning config.Tuning) *Autopilot {
	return &Autopilot{track: tr, tuning: tuning}
}

// Command ignores the driver's input entirely.
func (a *Autopilot) Command(v *Vehicle, _ Input) Input {
	return Input{
		Forward:  a.tuning.CruiseThrottle,
		Steering: a.Steer(v.X, v.Z, v.Heading, v.Speed),
	}
}

// Steer returns the steering command in [-1, 1] for the given pose and speed.
func (a *Autopilot) Steer(x, z, heading, speed float64) float64 {
	tu := &a.tuning

	lookAhead := tu.LookAheadBase + math.Abs(speed)*tu.LookAheadPerSpeed
	tz := z - lookAhead
	tx := a.track.CenterX(tz)

	bearing := math.Atan2(tx-x, -(tz - z))
	headingErr := NormalizeAngle(bearing - heading)
	lateral := -(x - a.track.CenterX(z)) * tu.LateralGain

	return clampUnit(headingErr*tu.HeadingGain + lateral)
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
