package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeydrive/sim/config"
)

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{-math.Pi / 2, -math.Pi / 2},
		{math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{2 * math.Pi, 0},
		{3 * math.Pi, math.Pi},
		{7.5, 7.5 - 2*math.Pi},
		{-7.5, -7.5 + 2*math.Pi},
	}

	for _, tt := range tests {
		got := NormalizeAngle(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "NormalizeAngle(%v)", tt.in)
		assert.Greater(t, got, -math.Pi-1e-12)
		assert.LessOrEqual(t, got, math.Pi+1e-12)
	}
}

func TestManualSteeringPassesThrough(t *testing.T) {
	var src SteeringSource = ManualSteering{}
	v := &Vehicle{}

	assert.Equal(t, Input{Forward: 0.4, Steering: -0.2}, src.Command(v, Input{Forward: 0.4, Steering: -0.2}))
	assert.Equal(t, Input{Forward: 1, Steering: -1}, src.Command(v, Input{Forward: 3, Steering: -3}))
}

func TestAutopilotCommand(t *testing.T) {
	tu := config.DefaultTuning()
	ap := NewAutopilot(straightTrack(t), tu)

	t.Run("centered and aligned", func(t *testing.T) {
		in := ap.Command(&Vehicle{Z: -100, Speed: 10}, Input{Forward: -1, Steering: 1})
		assert.Equal(t, tu.CruiseThrottle, in.Forward)
		assert.InDelta(t, 0, in.Steering, 1e-12)
	})

	t.Run("right of center steers left", func(t *testing.T) {
		assert.Less(t, ap.Steer(4, -100, 0, 10), 0.0)
	})

	t.Run("left of center steers right", func(t *testing.T) {
		assert.Greater(t, ap.Steer(-4, -100, 0, 10), 0.0)
	})

	t.Run("heading error is corrected", func(t *testing.T) {
		assert.Less(t, ap.Steer(0, -100, 0.3, 10), 0.0)
		assert.Greater(t, ap.Steer(0, -100, -0.3, 10), 0.0)
	})

	t.Run("facing backwards saturates", func(t *testing.T) {
		assert.Equal(t, 1.0, math.Abs(ap.Steer(0, -100, math.Pi-0.1, 10)))
	})

	t.Run("always within range", func(t *testing.T) {
		wap := NewAutopilot(windingTrack(t), tu)
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 2000; i++ {
			x := rng.Float64()*80 - 40
			z := rng.Float64()*620 - 600
			h := rng.Float64()*4*math.Pi - 2*math.Pi
			s := rng.Float64()*40 - 15
			cmd := wap.Steer(x, z, h, s)
			require.GreaterOrEqual(t, cmd, -1.0)
			require.LessOrEqual(t, cmd, 1.0)
		}
	})
}

func TestAutopilotConvergence(t *testing.T) {
	tu := config.DefaultTuning()
	tr := straightTrack(t)
	ph := NewPhysics(tr, tu)
	ap := NewAutopilot(tr, tu)

	v := &Vehicle{X: 4, Z: 0}
	maxOffset := 0.0
	for i := 0; i < 20*60; i++ {
		res := ph.Step(v, ap.Command(v, Input{}), frame)
		require.False(t, res.EdgeContact, "tick %d", i)
		maxOffset = math.Max(maxOffset, math.Abs(tr.LateralOffset(v.X, v.Z)))

		if i == 6*60 {
			assert.Less(t, math.Abs(tr.LateralOffset(v.X, v.Z)), 0.1, "not converged after 6 s")
		}
	}

	assert.Less(t, maxOffset, tr.HalfWidth())
	assert.Less(t, math.Abs(tr.LateralOffset(v.X, v.Z)), 0.01)
	assert.Less(t, math.Abs(NormalizeAngle(v.Heading)), 0.01)
}

func TestAutopilotFollowsWindingCourse(t *testing.T) {
	tu := config.DefaultTuning()
	tr := windingTrack(t)
	ph := NewPhysics(tr, tu)
	ap := NewAutopilot(tr, tu)
	v := NewVehicle(tr.Start())

	for i := 0; i < 60*60; i++ {
		res := ph.Step(v, ap.Command(v, Input{}), frame)
		require.False(t, res.EdgeContact, "tick %d at z=%.1f", i, v.Z)
		require.Less(t, math.Abs(tr.LateralOffset(v.X, v.Z)), tr.HalfWidth()/2, "tick %d", i)
		if res.Lapped {
			return
		}
	}
	t.Fatal("autopilot never finished a lap")
}
