// Package host drives a game.Session in real time for one remote client.
package host

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/network"
)

// Connection interface for network abstraction
type Connection interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

type commandKind uint8

const (
	cmdInput commandKind = iota
	cmdStart
	cmdContinue
	cmdPause
	cmdToggleAutopilot
	cmdPing
)

type command struct {
	kind      commandKind
	input     game.Input
	timestamp uint64
}

// commandBuffer bounds the queue between the read pump and the tick loop.
const commandBuffer = 64

// Runner owns one session and the connection it reports to.
//
// The session is only touched from the runner's loop goroutine: the read
// pump hands decoded frames over a channel, and ticks, commands and pose
// broadcasts are serialized by a single select.
type Runner struct {
	session  *game.Session
	conn     Connection
	guard    *InputGuard
	protocol *network.Protocol

	commands chan command
	input    game.Input // held until the next input frame

	// Flags raised since the last pose broadcast
	pendingFlags uint8

	lastActivity atomic.Int64 // unix nanos
	running      atomic.Bool
	stopChan     chan struct{}
	done         chan struct{}

	// Callbacks
	onKick func(r *Runner, reason string)
}

// NewRunner creates a runner for session. Call Start to begin ticking.
func NewRunner(session *game.Session, conn Connection) *Runner {
	r := &Runner{
		session:  session,
		conn:     conn,
		guard:    NewInputGuard(config.MaxInputsPerTick, config.MaxInputViolations),
		protocol: network.NewProtocol(),
		commands: make(chan command, commandBuffer),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.touch()
	session.SetOnEvent(r.sendEvent)
	return r
}

// ID returns the session ID.
func (r *Runner) ID() string { return r.session.ID }

// RemoteAddr returns the client's address for logging.
func (r *Runner) RemoteAddr() string { return r.conn.RemoteAddr() }

// LastActivity is the time of the last frame received from the client.
func (r *Runner) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

// Done is closed when the loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Start sends the session info and begins the loop in a separate goroutine.
// Safe to call multiple times - subsequent calls are no-ops.
func (r *Runner) Start() {
	if r.running.Swap(true) {
		return
	}

	total := len(r.session.Checkpoints())
	r.send(r.protocol.EncodeSessionInfo(r.session.ID, uint8(min(total, 255))))

	go r.loop()
	log.Printf("Runner %s started for %s", r.ID(), r.RemoteAddr())
}

// Stop stops the loop. It does not close the connection.
// Safe to call multiple times - subsequent calls are no-ops.
func (r *Runner) Stop() {
	if !r.running.Swap(false) {
		return
	}

	close(r.stopChan)
	log.Printf("Runner %s stopped", r.ID())
}

// SetOnKick sets a callback function called when the guard kicks the client.
func (r *Runner) SetOnKick(callback func(r *Runner, reason string)) {
	r.onKick = callback
}

// HandleMessage decodes one client frame and queues it for the loop.
// Frames arriving faster than the loop drains them are dropped.
func (r *Runner) HandleMessage(data []byte) error {
	if !r.running.Load() {
		return ErrRunnerStopped
	}

	msgType, err := r.protocol.MessageType(data)
	if err != nil {
		return err
	}

	var cmd command
	switch msgType {
	case network.MsgTypeInput:
		msg, err := r.protocol.DecodeInput(data)
		if err != nil {
			return err
		}
		cmd = command{kind: cmdInput, input: game.Input{
			Forward:  network.DecodeAxis(msg.Forward),
			Steering: network.DecodeAxis(msg.Steering),
		}}

	case network.MsgTypePing:
		msg, err := r.protocol.DecodePing(data)
		if err != nil {
			return err
		}
		cmd = command{kind: cmdPing, timestamp: msg.Timestamp}

	case network.MsgTypeStart:
		cmd = command{kind: cmdStart}

	case network.MsgTypeContinue:
		cmd = command{kind: cmdContinue}

	case network.MsgTypePause:
		cmd = command{kind: cmdPause}

	case network.MsgTypeToggleAutopilot:
		cmd = command{kind: cmdToggleAutopilot}

	default:
		return network.ErrInvalidMessage
	}

	r.touch()

	select {
	case r.commands <- cmd:
	case <-r.stopChan:
		return ErrRunnerStopped
	default:
		// Queue full - drop; held input is re-sent by the client anyway
	}
	return nil
}

// loop handles session ticks at TickRate and pose broadcasts at BroadcastRate.
func (r *Runner) loop() {
	tickTicker := time.NewTicker(time.Second / time.Duration(config.TickRate))
	broadcastTicker := time.NewTicker(time.Second / time.Duration(config.BroadcastRate))
	defer tickTicker.Stop()
	defer broadcastTicker.Stop()
	defer close(r.done)

	lastTick := time.Now()

	for {
		select {
		case <-r.stopChan:
			return

		case cmd := <-r.commands:
			r.apply(cmd)

		case now := <-tickTicker.C:
			// Raw elapsed time; the kinematics clamp handles hitches
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			r.tick(dt)

		case <-broadcastTicker.C:
			r.broadcastPose()
		}
	}
}

// tick runs one session step with the held input.
func (r *Runner) tick(dt float64) {
	r.guard.ResetTick()

	res := r.session.Tick(r.input, dt)
	if res.EdgeContact {
		r.pendingFlags |= network.FlagEdgeContact
	}
	if res.Lapped {
		r.pendingFlags |= network.FlagLapped
	}
}

// apply executes one client command.
func (r *Runner) apply(cmd command) {
	switch cmd.kind {
	case cmdInput:
		if result := r.guard.ValidateRate(); result != ValidationValid {
			r.handleViolation(result)
			return
		}
		in, result := r.guard.ValidateInput(cmd.input)
		if result != ValidationValid {
			r.handleViolation(result)
			return
		}
		r.input = in

	case cmdStart:
		if r.session.Start() {
			r.broadcastPose()
		}

	case cmdContinue:
		// Completion, if any, arrives through the event callback
		if resumed, _ := r.session.Continue(); resumed {
			r.broadcastPose()
		}

	case cmdPause:
		if r.session.Pause() {
			r.input = game.Input{}
			r.broadcastPose()
		}

	case cmdToggleAutopilot:
		on := r.session.ToggleAutopilot()
		log.Printf("Session %s autopilot: %v", r.ID(), on)
		r.broadcastPose()

	case cmdPing:
		r.send(r.protocol.EncodePong(cmd.timestamp))
	}
}

func (r *Runner) handleViolation(result ValidationResult) {
	if result != ValidationKick {
		return
	}
	r.kick("Input flood")
}

// kick disconnects the client due to guard violations.
func (r *Runner) kick(reason string) {
	log.Printf("Kicking session %s (%s): %s", r.ID(), r.RemoteAddr(), reason)

	r.send(r.protocol.EncodeError(network.ErrorCodeKicked, reason))
	r.Stop()

	if r.onKick != nil {
		r.onKick(r, reason)
	}
}

// broadcastPose sends the current pose and status flags.
func (r *Runner) broadcastPose() {
	snap := r.session.Snapshot()

	flags := r.pendingFlags
	r.pendingFlags = 0
	switch snap.Phase {
	case game.PhasePaused:
		flags |= network.FlagPaused
	case game.PhaseCompleted:
		flags |= network.FlagCompleted
	}
	if snap.Autopilot {
		flags |= network.FlagAutopilot
	}

	r.send(r.protocol.EncodePose(network.PoseMessage{
		Tick:    uint16(snap.Tick & 0xFFFF),
		X:       float32(snap.Pose.X),
		Z:       float32(snap.Pose.Z),
		Heading: float32(snap.Pose.Heading),
		Speed:   float32(snap.Speed),
		Flags:   flags,
	}))
}

// sendEvent forwards a session event to the client immediately.
func (r *Runner) sendEvent(ev game.Event) {
	switch ev.Kind {
	case game.EventCheckpointReached:
		r.send(r.protocol.EncodeCheckpointReached(ev.ID, ev.Checkpoint.ID, clampU8(ev.Reached), clampU8(ev.Total)))
		r.broadcastPose()
	case game.EventCompleted:
		r.send(r.protocol.EncodeCompleted(ev.ID, clampU8(ev.Reached)))
		r.broadcastPose()
	}
}

func (r *Runner) send(data []byte) {
	if err := r.conn.Send(data); err != nil {
		// Log but don't stop - connection cleanup handles that
		log.Printf("Failed to send to session %s: %v", r.ID(), err)
	}
}

func (r *Runner) touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

func clampU8(v int) uint8 {
	return uint8(max(0, min(v, 255)))
}

// Error definitions
var (
	ErrRunnerStopped = &RunnerError{message: "runner stopped"}
)

// RunnerError represents an error related to runner operations.
type RunnerError struct {
	message string
}

func (e *RunnerError) Error() string {
	return e.message
}
