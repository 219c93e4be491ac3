package host

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/network"
	"github.com/journeydrive/sim/internal/track"
)

const frame = 1.0 / 60.0

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "test:1" }

func (c *fakeConn) ofType(t uint8) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.frames {
		if len(f) > 0 && f[0] == t {
			out = append(out, f)
		}
	}
	return out
}

func newTestRunner(t *testing.T, checkpoints ...game.Checkpoint) (*Runner, *fakeConn) {
	t.Helper()
	tr, err := track.New([]track.Point{{X: 0, Z: 10}, {X: 0, Z: -2000}}, config.SplineSteps, config.RoadWidth)
	require.NoError(t, err)

	conn := &fakeConn{}
	s, err := game.NewSession(tr, checkpoints, config.DefaultTuning())
	require.NoError(t, err)
	return NewRunner(s, conn), conn
}

func lastPose(t *testing.T, conn *fakeConn) *network.PoseMessage {
	t.Helper()
	frames := conn.ofType(network.MsgTypePose)
	require.NotEmpty(t, frames)
	msg, err := network.NewProtocol().DecodePose(frames[len(frames)-1])
	require.NoError(t, err)
	return msg
}

func TestRunnerDrivesSession(t *testing.T) {
	r, conn := newTestRunner(t)

	r.apply(command{kind: cmdStart})
	r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})
	for i := 0; i < 60; i++ {
		r.tick(frame)
	}
	r.broadcastPose()

	pose := lastPose(t, conn)
	assert.Equal(t, uint16(60), pose.Tick)
	assert.Less(t, pose.Z, float32(0))
	assert.Greater(t, pose.Speed, float32(0))
	assert.Zero(t, pose.Flags&network.FlagPaused)
}

func TestRunnerInputIsHeld(t *testing.T) {
	r, _ := newTestRunner(t)
	r.apply(command{kind: cmdStart})
	r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})

	r.tick(frame)
	first := r.session.Snapshot().Speed
	r.tick(frame)
	assert.Greater(t, r.session.Snapshot().Speed, first, "input persists across ticks")
}

func TestRunnerGuardDropsFlood(t *testing.T) {
	r, _ := newTestRunner(t)
	r.apply(command{kind: cmdStart})

	for i := 0; i < config.MaxInputsPerTick; i++ {
		r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})
	}
	r.apply(command{kind: cmdInput, input: game.Input{Forward: -1}})
	assert.Equal(t, game.Input{Forward: 1}, r.input, "input beyond the per-tick limit is ignored")
	assert.Equal(t, 1, r.guard.Violations())

	r.tick(frame)
	r.apply(command{kind: cmdInput, input: game.Input{Forward: -1}})
	assert.Equal(t, game.Input{Forward: -1}, r.input)
}

func TestRunnerRejectsNonFinite(t *testing.T) {
	r, _ := newTestRunner(t)
	r.apply(command{kind: cmdInput, input: game.Input{Forward: 0.5}})
	r.apply(command{kind: cmdInput, input: game.Input{Forward: math.NaN()}})
	assert.Equal(t, game.Input{Forward: 0.5}, r.input)
}

func TestRunnerKicksPersistentFlood(t *testing.T) {
	r, conn := newTestRunner(t)
	r.running.Store(true)

	var kicked string
	r.SetOnKick(func(_ *Runner, reason string) { kicked = reason })

	for i := 0; i < config.MaxInputsPerTick+config.MaxInputViolations+1; i++ {
		r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})
	}

	assert.NotEmpty(t, kicked)
	assert.False(t, r.running.Load())
	require.Len(t, conn.ofType(network.MsgTypeError), 1)
	assert.Equal(t, network.ErrorCodeKicked, conn.ofType(network.MsgTypeError)[0][1])
}

func TestRunnerForwardsEvents(t *testing.T) {
	r, conn := newTestRunner(t, game.Checkpoint{ID: "only", X: 0, Z: -20})
	p := network.NewProtocol()

	var events []game.Event
	forward := r.sendEvent
	r.session.SetOnEvent(func(ev game.Event) {
		events = append(events, ev)
		forward(ev)
	})

	r.apply(command{kind: cmdStart})
	r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})
	for i := 0; i < 600 && r.session.Phase() == game.PhasePlaying; i++ {
		r.tick(frame)
	}
	require.Equal(t, game.PhasePaused, r.session.Phase())

	reached := conn.ofType(network.MsgTypeCheckpointReached)
	require.Len(t, reached, 1)
	msg, err := p.DecodeCheckpointReached(reached[0])
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, events[0].ID, msg.EventID)
	assert.NotEmpty(t, msg.EventID)
	assert.Equal(t, "only", msg.CheckpointID)
	assert.Equal(t, uint8(1), msg.Reached)
	assert.Equal(t, uint8(1), msg.Total)
	assert.NotZero(t, lastPose(t, conn).Flags&network.FlagPaused)

	r.apply(command{kind: cmdContinue})
	completed := conn.ofType(network.MsgTypeCompleted)
	require.Len(t, completed, 1)
	done, err := p.DecodeCompleted(completed[0])
	require.NoError(t, err)
	assert.Equal(t, uint8(1), done.Reached)
	require.Len(t, events, 2)
	assert.Equal(t, events[1].ID, done.EventID)
	assert.NotEqual(t, msg.EventID, done.EventID)
	assert.NotZero(t, lastPose(t, conn).Flags&network.FlagCompleted)
}

func TestRunnerPauseAndAutopilot(t *testing.T) {
	r, conn := newTestRunner(t)
	r.apply(command{kind: cmdStart})
	r.apply(command{kind: cmdInput, input: game.Input{Forward: 1}})

	r.apply(command{kind: cmdPause})
	assert.Equal(t, game.PhasePaused, r.session.Phase())
	assert.Equal(t, game.Input{}, r.input, "pause releases held input")
	assert.NotZero(t, lastPose(t, conn).Flags&network.FlagPaused)

	r.apply(command{kind: cmdToggleAutopilot})
	assert.NotZero(t, lastPose(t, conn).Flags&network.FlagAutopilot)

	r.apply(command{kind: cmdContinue})
	assert.Equal(t, game.PhasePlaying, r.session.Phase())
}

func TestRunnerPing(t *testing.T) {
	r, conn := newTestRunner(t)
	r.apply(command{kind: cmdPing, timestamp: 42})

	pongs := conn.ofType(network.MsgTypePong)
	require.Len(t, pongs, 1)
	assert.Equal(t, network.NewProtocol().EncodePong(42), pongs[0])
}

func TestRunnerHandleMessage(t *testing.T) {
	r, _ := newTestRunner(t)
	p := network.NewProtocol()

	assert.ErrorIs(t, r.HandleMessage([]byte{network.MsgTypeStart}), ErrRunnerStopped)

	r.running.Store(true)
	require.NoError(t, r.HandleMessage(p.EncodeInput(1, 1, -1)))
	cmd := <-r.commands
	assert.Equal(t, cmdInput, cmd.kind)
	assert.Equal(t, game.Input{Forward: 1, Steering: -1}, cmd.input)

	require.NoError(t, r.HandleMessage([]byte{network.MsgTypeToggleAutopilot}))
	assert.Equal(t, cmdToggleAutopilot, (<-r.commands).kind)

	assert.ErrorIs(t, r.HandleMessage([]byte{0x7E}), network.ErrInvalidMessage)
	assert.ErrorIs(t, r.HandleMessage([]byte{network.MsgTypeInput, 1}), network.ErrBufferTooSmall)
	assert.ErrorIs(t, r.HandleMessage(nil), network.ErrBufferTooSmall)
}

func TestRunnerLoop(t *testing.T) {
	r, conn := newTestRunner(t)
	p := network.NewProtocol()

	r.Start()
	r.Start()
	require.Len(t, conn.ofType(network.MsgTypeSessionInfo), 1)
	info, err := p.DecodeSessionInfo(conn.ofType(network.MsgTypeSessionInfo)[0])
	require.NoError(t, err)
	assert.Equal(t, r.ID(), info.SessionID)

	require.NoError(t, r.HandleMessage([]byte{network.MsgTypeStart}))
	require.NoError(t, r.HandleMessage(p.EncodeInput(1, 1, 0)))

	assert.Eventually(t, func() bool {
		frames := conn.ofType(network.MsgTypePose)
		if len(frames) == 0 {
			return false
		}
		msg, err := p.DecodePose(frames[len(frames)-1])
		return err == nil && msg.Speed > 0
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	r.Stop()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit")
	}
}

func TestGuard(t *testing.T) {
	g := NewInputGuard(2, 3)

	assert.Equal(t, ValidationValid, g.ValidateRate())
	assert.Equal(t, ValidationValid, g.ValidateRate())
	assert.Equal(t, ValidationIgnoreInput, g.ValidateRate())
	g.ResetTick()
	assert.Equal(t, ValidationValid, g.ValidateRate())

	in, res := g.ValidateInput(game.Input{Forward: 4, Steering: -0.2})
	assert.Equal(t, ValidationValid, res)
	assert.Equal(t, game.Input{Forward: 1, Steering: -0.2}, in)

	_, res = g.ValidateInput(game.Input{Steering: math.Inf(1)})
	assert.Equal(t, ValidationReject, res)
	_, res = g.ValidateInput(game.Input{Forward: math.NaN()})
	assert.Equal(t, ValidationReject, res)
	assert.Equal(t, 3, g.Violations())

	_, res = g.ValidateInput(game.Input{Forward: math.NaN()})
	assert.Equal(t, ValidationKick, res)
}
