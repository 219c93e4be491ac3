package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressLifecycle(t *testing.T) {
	p := NewProgress(2)
	a := Checkpoint{ID: "a"}
	b := Checkpoint{ID: "b"}

	assert.Equal(t, PhaseNotStarted, p.Phase())
	assert.False(t, p.Reach(a), "cannot reach before starting")
	assert.False(t, p.Continue())
	assert.False(t, p.Pause())

	require.True(t, p.Start())
	assert.False(t, p.Start())
	assert.Equal(t, PhasePlaying, p.Phase())

	require.True(t, p.Reach(a))
	assert.Equal(t, PhasePaused, p.Phase())
	cur, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.False(t, p.Reach(b), "no reach while paused")

	require.True(t, p.Continue())
	_, ok = p.Current()
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, p.Reached(), "continue keeps the reached set")
	assert.False(t, p.Evaluate())

	assert.False(t, p.Reach(a), "already reached")
	assert.Equal(t, PhasePlaying, p.Phase())

	require.True(t, p.Reach(b))
	assert.False(t, p.Evaluate(), "not complete while paused")
	assert.Equal(t, PhasePaused, p.Phase())

	require.True(t, p.Continue())
	require.True(t, p.Evaluate())
	assert.Equal(t, PhaseCompleted, p.Phase())
	assert.False(t, p.Evaluate())
	assert.Equal(t, []string{"a", "b"}, p.Reached())
	assert.Equal(t, 1.0, p.Fraction())
}

func TestProgressExternalPause(t *testing.T) {
	p := NewProgress(1)
	p.Start()

	require.True(t, p.Pause())
	assert.Equal(t, PhasePaused, p.Phase())
	_, ok := p.Current()
	assert.False(t, ok)

	require.True(t, p.Continue())
	assert.Equal(t, PhasePlaying, p.Phase())
}

func TestProgressAutopilotIsOrthogonal(t *testing.T) {
	p := NewProgress(1)

	assert.True(t, p.ToggleAutopilot())
	assert.Equal(t, PhaseNotStarted, p.Phase())

	p.Start()
	p.Reach(Checkpoint{ID: "a"})
	assert.False(t, p.ToggleAutopilot())
	assert.Equal(t, PhasePaused, p.Phase())

	p.SetAutopilot(true)
	assert.True(t, p.Autopilot())
}

func TestProgressEmptyCourseNeverCompletes(t *testing.T) {
	p := NewProgress(0)
	p.Start()
	assert.False(t, p.Evaluate())
	assert.Equal(t, PhasePlaying, p.Phase())
	assert.Equal(t, 0.0, p.Fraction())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "not_started", PhaseNotStarted.String())
	assert.Equal(t, "playing", PhasePlaying.String())
	assert.Equal(t, "paused", PhasePaused.String())
	assert.Equal(t, "completed", PhaseCompleted.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
