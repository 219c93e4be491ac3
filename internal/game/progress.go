package game

// Phase is the session lifecycle state.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhasePlaying
	PhasePaused
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhasePlaying:
		return "playing"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Progress tracks the lifecycle, the reached checkpoints in the order they
// were reached and the autopilot flag. Invalid transitions are no-ops and
// report false.
type Progress struct {
	phase     Phase
	total     int
	reached   []string
	current   *Checkpoint
	autopilot bool
	lastX     float64
	lastZ     float64
}

// NewProgress creates progress for a course with total checkpoints.
func NewProgress(total int) *Progress {
	return &Progress{total: total, reached: make([]string, 0, total)}
}

// Start moves NotStarted to Playing.
func (p *Progress) Start() bool {
	if p.phase != PhaseNotStarted {
		return false
	}
	p.phase = PhasePlaying
	return true
}

// Reach records cp as reached and pauses on it. Only legal while playing.
func (p *Progress) Reach(cp Checkpoint) bool {
	if p.phase != PhasePlaying {
		return false
	}
	for _, id := range p.reached {
		if id == cp.ID {
			return false
		}
	}
	p.reached = append(p.reached, cp.ID)
	p.current = &cp
	p.phase = PhasePaused
	return true
}

// Pause moves Playing to Paused without a current checkpoint.
func (p *Progress) Pause() bool {
	if p.phase != PhasePlaying {
		return false
	}
	p.phase = PhasePaused
	return true
}

// Continue resumes from Paused and drops the current checkpoint. The reached
// set is untouched.
func (p *Progress) Continue() bool {
	if p.phase != PhasePaused {
		return false
	}
	p.current = nil
	p.phase = PhasePlaying
	return true
}

// Evaluate completes the session once every checkpoint is reached and the
// last overlay has been dismissed. It reports whether this call completed it.
func (p *Progress) Evaluate() bool {
	if p.phase != PhasePlaying || p.total == 0 || len(p.reached) != p.total {
		return false
	}
	p.phase = PhaseCompleted
	return true
}

// ToggleAutopilot flips the autopilot flag and returns the new value. Legal in
// any phase.
func (p *Progress) ToggleAutopilot() bool {
	p.autopilot = !p.autopilot
	return p.autopilot
}

func (p *Progress) SetAutopilot(on bool) { p.autopilot = on }
func (p *Progress) Autopilot() bool { return p.autopilot }
func (p *Progress) Phase() Phase { return p.phase }
func (p *Progress) Total() int { return p.total }
func (p *Progress) ReachedCount() int { return len(p.reached) }

// Reached returns the reached ids in the order they were reached.
func (p *Progress) Reached() []string {
	out := make([]string, len(p.reached))
	copy(out, p.reached)
	return out
}

// HasReached reports whether id is in the reached set.
func (p *Progress) HasReached(id string) bool {
	for _, r := range p.reached {
		if r == id {
			return true
		}
	}
	return false
}

// Current returns the checkpoint the session is paused on, if any.
func (p *Progress) Current() (Checkpoint, bool) {
	if p.current == nil {
		return Checkpoint{}, false
	}
	return *p.current, true
}

// Fraction is reached/total, 0 for an empty course.
func (p *Progress) Fraction() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(len(p.reached)) / float64(p.total)
}

// RecordPosition stores the last simulated position.
func (p *Progress) RecordPosition(x, z float64) {
	p.lastX, p.lastZ = x, z
}

func (p *Progress) LastPosition() (x, z float64) {
	return p.lastX, p.lastZ
}
