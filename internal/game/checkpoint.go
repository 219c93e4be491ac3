package game

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmptyCheckpointID     = errors.New("checkpoint id must not be empty")
	ErrDuplicateCheckpointID = errors.New("checkpoint id is not unique")
)

// CallToAction is an optional button shown with a checkpoint's content.
type CallToAction struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Content is the display payload revealed at a checkpoint. The simulation
// never reads it.
type Content struct {
	Heading    string        `json:"heading"`
	Paragraphs []string      `json:"paragraphs,omitempty"`
	Items      []string      `json:"items,omitempty"`
	CTA        *CallToAction `json:"cta,omitempty"`
}

// Checkpoint is a fixed trigger location on the course.
type Checkpoint struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle,omitempty"`
	Icon     string  `json:"icon,omitempty"`
	Content  Content `json:"content"`

	// GateRotation only orients the drawn gate; detection is radial.
	GateRotation float64 `json:"gateRotation"`
}

// ValidateCheckpoints checks that every checkpoint has its own non-empty ID.
// Visited state is keyed by ID, so a shared ID would leave a checkpoint that
// can never be reached and a course that can never complete.
func ValidateCheckpoints(checkpoints []Checkpoint) error {
	seen := make(map[string]int, len(checkpoints))
	for i, cp := range checkpoints {
		if cp.ID == "" {
			return fmt.Errorf("%w: checkpoint %d", ErrEmptyCheckpointID, i)
		}
		if j, dup := seen[cp.ID]; dup {
			return fmt.Errorf("%w: %q at %d and %d", ErrDuplicateCheckpointID, cp.ID, j, i)
		}
		seen[cp.ID] = i
	}
	return nil
}

// Detector fires each checkpoint at most once per session.
type Detector struct {
	checkpoints []Checkpoint
	radius      float64
	visited     map[string]struct{}
}

// NewDetector creates a detector over the checkpoints in list order.
func NewDetector(checkpoints []Checkpoint, radius float64) *Detector {
	cps := make([]Checkpoint, len(checkpoints))
	copy(cps, checkpoints)
	return &Detector{
		checkpoints: cps,
		radius:      radius,
		visited:     make(map[string]struct{}, len(cps)),
	}
}

// Detect returns the first unvisited checkpoint strictly within the trigger
// radius of (x, z). The checkpoint is marked visited before it is returned,
// so it will never be returned again.
func (d *Detector) Detect(x, z float64) (Checkpoint, bool) {
	for _, cp := range d.checkpoints {
		if _, seen := d.visited[cp.ID]; seen {
			continue
		}
		if math.Hypot(x-cp.X, z-cp.Z) < d.radius {
			d.visited[cp.ID] = struct{}{}
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// Visited reports whether id has fired.
func (d *Detector) Visited(id string) bool {
	_, ok := d.visited[id]
	return ok
}

func (d *Detector) VisitedCount() int { return len(d.visited) }

// Checkpoints returns a copy of the checkpoint list.
func (d *Detector) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(d.checkpoints))
	copy(out, d.checkpoints)
	return out
}
