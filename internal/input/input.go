// Package input turns keyboard and on-screen joystick state into the
// normalized two-axis signal the simulation consumes.
package input

import (
	"math"

	"github.com/journeydrive/sim/internal/game"
)

// Reverse is the forward value produced by the brake key.
const Reverse = -0.5

// Keys is the state of the four driving keys.
type Keys struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
}

// Input maps keys to a normalized input. Down wins over Up and Right wins
// over Left.
func (k Keys) Input() game.Input {
	var in game.Input
	if k.Up {
		in.Forward = 1
	}
	if k.Down {
		in.Forward = Reverse
	}
	if k.Left {
		in.Steering = -1
	}
	if k.Right {
		in.Steering = 1
	}
	return in
}

// FromJoystick maps a joystick deflection in screen coordinates (y grows
// downward) to an input. Pushing up drives forward.
func FromJoystick(x, y float64) game.Input {
	if math.IsNaN(x) || math.IsNaN(y) {
		return game.Input{}
	}
	if m := math.Hypot(x, y); m > 1 {
		x /= m
		y /= m
	}
	return game.Input{Forward: -y, Steering: x}.Clamp()
}

// Deadzone zeroes axes whose magnitude is below r.
func Deadzone(in game.Input, r float64) game.Input {
	if math.Abs(in.Forward) < r {
		in.Forward = 0
	}
	if math.Abs(in.Steering) < r {
		in.Steering = 0
	}
	return in
}

// Merge prefers the joystick on any axis it deflects.
func Merge(keys, stick game.Input) game.Input {
	out := keys
	if stick.Forward != 0 {
		out.Forward = stick.Forward
	}
	if stick.Steering != 0 {
		out.Steering = stick.Steering
	}
	return out
}
