package game

import (
	"math"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/track"
)

// StepResult reports what one kinematics step did.
type StepResult struct {
	Pose        Pose
	Speed       float64
	Advanced    bool // false when dt was zero or invalid
	EdgeContact bool // clamped back onto the road this step
	Lapped      bool // crossed the finish and was returned to the start
}

// Physics integrates vehicle input against one track.
type Physics struct {
	track  *track.Track
	tuning config.Tuning
}

// NewPhysics creates a kinematics engine bound to a track.
func NewPhysics(tr *track.Track, tuning config.Tuning) *Physics {
	return &Physics{track: tr, tuning: tuning}
}

// Step advances v by dt seconds under input in.
//
// Order within a step:
// 1. Longitudinal speed (ramped throttle, brake or reverse, coast drag)
// 2. Lagged steering toward a speed-attenuated target
// 3. Rear-axle bicycle integration
// 4. Road edge clamp with speed penalty
// 5. Lap reset past the finish
func (ph *Physics) Step(v *Vehicle, in Input, dt float64) StepResult {
	tu := &ph.tuning

	if math.IsNaN(dt) || dt <= 0 {
		return StepResult{Pose: v.Pose(), Speed: v.Speed}
	}
	// Cap delta time to prevent tunnelling after frame hitches
	if dt > tu.MaxTickDuration {
		dt = tu.MaxTickDuration
	}

	in = in.Clamp()
	ph.updateSpeed(v, in.Forward, dt)
	ph.updateSteer(v, in.Steering, dt)

	if v.Speed != 0 {
		ph.integrate(v, dt)
	}

	res := StepResult{Advanced: true}
	res.EdgeContact = ph.containEdge(v)
	res.Lapped = ph.checkLap(v)
	res.Pose = v.Pose()
	res.Speed = v.Speed
	return res
}

func (ph *Physics) updateSpeed(v *Vehicle, fw, dt float64) {
	tu := &ph.tuning

	switch {
	case fw > 0:
		v.Ramp = math.Min(v.Ramp+dt*tu.RampUpRate, 1)
		accel := tu.ThrottleAccel * (tu.RampFloor + (1-tu.RampFloor)*v.Ramp)
		v.Speed = math.Min(v.Speed+accel*fw*dt, tu.MaxSpeed)

	case fw < 0:
		v.Ramp = 0
		if v.Speed > tu.BrakeThreshold {
			v.Speed = math.Max(v.Speed-tu.BrakeDecel*dt, 0)
		} else {
			v.Speed = math.Max(v.Speed+fw*tu.ThrottleAccel*dt, -tu.MaxReverse)
		}

	default:
		v.Ramp = math.Max(v.Ramp-tu.RampDownRate*dt, 0)
		drag := (tu.EngineBrake + tu.RollingResistance) * dt
		if v.Speed > 0 {
			v.Speed = math.Max(v.Speed-drag, 0)
		} else if v.Speed < 0 {
			v.Speed = math.Min(v.Speed+drag, 0)
		}
		if math.Abs(v.Speed) < tu.StopEpsilon {
			v.Speed = 0
		}
	}

	// Forward acceleration from reverse can only reach MaxSpeed and braking
	// never crosses zero, so this only guards against a bad starting state.
	v.Speed = math.Max(-tu.MaxReverse, math.Min(v.Speed, tu.MaxSpeed))
}

func (ph *Physics) updateSteer(v *Vehicle, cmd, dt float64) {
	tu := &ph.tuning

	ratio := 0.0
	if tu.MaxSpeed > 0 {
		ratio = math.Min(math.Abs(v.Speed)/tu.MaxSpeed, 1)
	}
	target := cmd * tu.MaxSteerAngle * (1 - ratio*tu.SteerSpeedFalloff)
	alpha := 1 - math.Exp(-tu.SteerResponse*dt)
	v.Steer += (target - v.Steer) * alpha
}

// integrate moves the rear axle along the current heading, turns, then places
// the body centre half a wheelbase ahead of the new rear axle.
func (ph *Physics) integrate(v *Vehicle, dt float64) {
	half := ph.tuning.Wheelbase / 2

	sin, cos := math.Sincos(v.Heading)
	rearX := v.X - sin*half
	rearZ := v.Z + cos*half

	d := v.Speed * dt
	rearX += sin * d
	rearZ -= cos * d

	if ph.tuning.Wheelbase > 0 {
		v.Heading += d * math.Tan(v.Steer) / ph.tuning.Wheelbase
	}

	sin, cos = math.Sincos(v.Heading)
	v.X = rearX + sin*half
	v.Z = rearZ - cos*half
}

func (ph *Physics) containEdge(v *Vehicle) bool {
	limit := ph.track.HalfWidth() + ph.tuning.EdgeTolerance
	cx := ph.track.CenterX(v.Z)
	off := v.X - cx
	if math.Abs(off) <= limit {
		return false
	}
	v.X = cx + math.Copysign(limit, off)
	v.Speed *= ph.tuning.EdgeSpeedRetention
	return true
}

func (ph *Physics) checkLap(v *Vehicle) bool {
	if v.Z >= ph.track.End().Z-ph.tuning.FinishOverrun {
		return false
	}
	start := ph.track.Start()
	v.X = start.X
	v.Z = start.Z
	v.Heading = 0
	v.Speed *= ph.tuning.LapSpeedRetention
	return true
}
