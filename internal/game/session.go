// Package game implements the driving simulation: vehicle kinematics, the
// autopilot, checkpoint detection and the session lifecycle.
package game

import (
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/track"
)

// EventKind identifies a discrete session event.
type EventKind uint8

const (
	EventCheckpointReached EventKind = iota + 1
	EventCompleted
)

func (k EventKind) String() string {
	switch k {
	case EventCheckpointReached:
		return "checkpoint_reached"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is emitted when a checkpoint is reached or the session completes.
type Event struct {
	ID         string // time-sortable, unique per event
	Kind       EventKind
	SessionID  string
	Checkpoint *Checkpoint // set for EventCheckpointReached
	Reached    int
	Total      int
	Tick       uint64
	At         time.Time
}

// TickResult describes the outcome of one Session.Tick call.
type TickResult struct {
	Pose        Pose
	Speed       float64
	Advanced    bool
	EdgeContact bool
	Lapped      bool
	Events      []Event
}

// Snapshot is a read-only copy of session state for renderers and hosts.
type Snapshot struct {
	SessionID string
	Tick      uint64
	Phase     Phase
	Pose      Pose
	Speed     float64
	Steer     float64
	Autopilot bool
	Reached   []string
	Total     int
	Current   *Checkpoint
}

// Session owns one drive: the vehicle, the detector and the progress state.
// It lives for the whole drive and is only reset by creating a new one.
//
// Session is not safe for concurrent use. Hosts call it from a single loop.
type Session struct {
	ID string

	track     *track.Track
	tuning    config.Tuning
	vehicle   *Vehicle
	physics   *Physics
	manual    ManualSteering
	autopilot *Autopilot
	detector  *Detector
	progress  *Progress

	tickCount uint64

	// Callbacks
	onEvent func(Event)
}

// NewSession creates a session positioned at the start of tr. Call Start to
// begin driving. Checkpoint IDs must be unique.
func NewSession(tr *track.Track, checkpoints []Checkpoint, tuning config.Tuning) (*Session, error) {
	if err := ValidateCheckpoints(checkpoints); err != nil {
		return nil, err
	}

	start := tr.Start()
	s := &Session{
		ID:        uuid.NewString(),
		track:     tr,
		tuning:    tuning,
		vehicle:   NewVehicle(start),
		physics:   NewPhysics(tr, tuning),
		autopilot: NewAutopilot(tr, tuning),
		detector:  NewDetector(checkpoints, tuning.TriggerRadius),
		progress:  NewProgress(len(checkpoints)),
	}
	s.progress.RecordPosition(start.X, start.Z)
	return s, nil
}

// SetOnEvent sets the callback invoked for every emitted event. Events are
// also returned from Tick and Continue.
func (s *Session) SetOnEvent(callback func(Event)) {
	s.onEvent = callback
}

// Start begins the drive. Only the first call has an effect.
func (s *Session) Start() bool {
	if !s.progress.Start() {
		return false
	}
	s.vehicle.Reset(s.track.Start())
	log.Printf("Session %s started with %d checkpoints", s.ID, s.progress.Total())
	return true
}

// Tick runs one simulation step: steering source, kinematics, checkpoint
// detection, then completion. Nothing is mutated unless the session is
// playing.
func (s *Session) Tick(in Input, dt float64) TickResult {
	if s.progress.Phase() != PhasePlaying {
		return TickResult{Pose: s.vehicle.Pose(), Speed: s.vehicle.Speed}
	}

	cmd := s.steeringSource().Command(s.vehicle, in)
	step := s.physics.Step(s.vehicle, cmd, dt)
	if step.Advanced {
		s.tickCount++
	}

	res := TickResult{
		Pose:        step.Pose,
		Speed:       step.Speed,
		Advanced:    step.Advanced,
		EdgeContact: step.EdgeContact,
		Lapped:      step.Lapped,
	}

	s.progress.RecordPosition(step.Pose.X, step.Pose.Z)

	if math.Abs(step.Speed) > s.tuning.DetectMinSpeed {
		if cp, ok := s.detector.Detect(step.Pose.X, step.Pose.Z); ok && s.progress.Reach(cp) {
			ev := s.emit(EventCheckpointReached, &cp)
			log.Printf("Session %s reached checkpoint %s (%d/%d) event=%s",
				s.ID, cp.ID, ev.Reached, ev.Total, ev.ID)
			res.Events = append(res.Events, ev)
		}
	}

	if ev, ok := s.evaluate(); ok {
		res.Events = append(res.Events, ev)
	}
	return res
}

// Continue dismisses the current checkpoint (or an external pause) and
// resumes driving. Completion is evaluated immediately, so dismissing the
// last checkpoint completes the session.
func (s *Session) Continue() (resumed bool, events []Event) {
	if !s.progress.Continue() {
		return false, nil
	}
	if ev, ok := s.evaluate(); ok {
		events = append(events, ev)
	}
	return true, events
}

// Pause suspends a playing session without a checkpoint, e.g. when the
// viewer loses focus.
func (s *Session) Pause() bool {
	return s.progress.Pause()
}

// ToggleAutopilot flips the autopilot and returns the new state. It takes
// effect on the next tick.
func (s *Session) ToggleAutopilot() bool {
	return s.progress.ToggleAutopilot()
}

func (s *Session) SetAutopilot(on bool) {
	s.progress.SetAutopilot(on)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		Tick:      s.tickCount,
		Phase:     s.progress.Phase(),
		Pose:      s.vehicle.Pose(),
		Speed:     s.vehicle.Speed,
		Steer:     s.vehicle.Steer,
		Autopilot: s.progress.Autopilot(),
		Reached:   s.progress.Reached(),
		Total:     s.progress.Total(),
	}
	if cp, ok := s.progress.Current(); ok {
		snap.Current = &cp
	}
	return snap
}

// NextCheckpoint returns the first checkpoint in course order that has not
// been reached yet.
func (s *Session) NextCheckpoint() (Checkpoint, bool) {
	for _, cp := range s.detector.checkpoints {
		if !s.progress.HasReached(cp.ID) {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// Progress is the fraction of checkpoints reached.
func (s *Session) Progress() float64 {
	return s.progress.Fraction()
}

func (s *Session) Phase() Phase { return s.progress.Phase() }
func (s *Session) Track() *track.Track { return s.track }
func (s *Session) Checkpoints() []Checkpoint { return s.detector.Checkpoints() }
func (s *Session) Visited(id string) bool { return s.detector.Visited(id) }
func (s *Session) TickCount() uint64 { return s.tickCount }

func (s *Session) steeringSource() SteeringSource {
	if s.progress.Autopilot() {
		return s.autopilot
	}
	return s.manual
}

func (s *Session) evaluate() (Event, bool) {
	if !s.progress.Evaluate() {
		return Event{}, false
	}
	ev := s.emit(EventCompleted, nil)
	log.Printf("Session %s completed after %d ticks event=%s", s.ID, s.tickCount, ev.ID)
	return ev, true
}

func (s *Session) emit(kind EventKind, cp *Checkpoint) Event {
	ev := Event{
		ID:         ksuid.New().String(),
		Kind:       kind,
		SessionID:  s.ID,
		Checkpoint: cp,
		Reached:    s.progress.ReachedCount(),
		Total:      s.progress.Total(),
		Tick:       s.tickCount,
		At:         time.Now(),
	}
	if s.onEvent != nil {
		s.onEvent(ev)
	}
	return ev
}
