// Package course holds the built-in road and checkpoint layout.
package course

import (
	"fmt"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/track"
)

// Waypoints is the default winding road, start line first.
var Waypoints = []track.Point{
	{X: 0, Z: 10},     // start line
	{X: 0, Z: -100},   // end of first straight
	{X: -30, Z: -180}, // after the first left diagonal
	{X: -30, Z: -270},
	{X: 25, Z: -355}, // after the right diagonal
	{X: 25, Z: -440},
	{X: -15, Z: -520},
	{X: -15, Z: -595}, // finish line
}

// spot places a checkpoint at depth z. A nil x means "on the centerline".
type spot struct {
	id       string
	z        float64
	x        *float64
	rotation float64
	title    string
	subtitle string
	icon     string
	content  game.Content
}

func at(x float64) *float64 { return &x }

var spots = []spot{
	{
		id:       "whoami",
		z:        -55,
		title:    "Who Am I",
		subtitle: "Mile 1 - The Starting Point",
		icon:     "👋",
		content: game.Content{
			Heading: "Hello, and welcome to the drive.",
			Paragraphs: []string{
				"This road is a portfolio. Every gate along the way opens one chapter.",
			},
			Items: []string{
				"🎓  Background and studies",
				"📍  Where I am based",
			},
		},
	},
	{
		id:       "skills",
		z:        -180,
		rotation: -0.18,
		title:    "Skills & Talents",
		subtitle: "Mile 2 - My Toolkit",
		icon:     "🛠️",
		content: game.Content{
			Heading: "What I Bring to the Table",
			Items: []string{
				"⚡  Frontend",
				"🛡️  Backend and APIs",
				"🗄️  Databases",
				"🚀  Deployment and tooling",
			},
		},
	},
	{
		id:       "projects",
		z:        -325,
		x:        at(8),
		rotation: -0.32,
		title:    "Projects",
		subtitle: "Mile 3 - What I've Built",
		icon:     "🚀",
		content: game.Content{
			Heading:    "Things I've Shipped",
			Paragraphs: []string{"Each project is a chapter in the story."},
			CTA:        &game.CallToAction{Label: "See All Projects", Action: "projects"},
		},
	},
	{
		id:       "contact",
		z:        -480,
		x:        at(5),
		rotation: 0.46,
		title:    "Contact Me",
		subtitle: "Mile 4 - Journey's End... or the Beginning?",
		icon:     "📬",
		content: game.Content{
			Heading: "Let's Build Something Together",
			Paragraphs: []string{
				"You've driven through the whole story. Now let's start a new one.",
			},
			CTA: &game.CallToAction{Label: "Leave Feedback", Action: "feedback"},
		},
	},
}

// Track builds the default road.
func Track() (*track.Track, error) {
	tr, err := track.New(Waypoints, config.SplineSteps, config.RoadWidth)
	if err != nil {
		return nil, fmt.Errorf("default course: %w", err)
	}
	return tr, nil
}

// Checkpoints places the default checkpoints on tr.
func Checkpoints(tr *track.Track) []game.Checkpoint {
	cps := make([]game.Checkpoint, 0, len(spots))
	for _, s := range spots {
		x := tr.CenterX(s.z)
		if s.x != nil {
			x = *s.x
		}
		cps = append(cps, game.Checkpoint{
			ID:           s.id,
			X:            x,
			Z:            s.z,
			Title:        s.title,
			Subtitle:     s.subtitle,
			Icon:         s.icon,
			Content:      s.content,
			GateRotation: s.rotation,
		})
	}
	return cps
}

// Default returns the built-in track and checkpoints. The tuning is checked
// so that every checkpoint can actually be triggered from the road.
func Default(tuning config.Tuning) (*track.Track, []game.Checkpoint, error) {
	tr, err := Track()
	if err != nil {
		return nil, nil, err
	}
	cps := Checkpoints(tr)
	if err := game.ValidateCheckpoints(cps); err != nil {
		return nil, nil, fmt.Errorf("default course: %w", err)
	}

	reach := tr.HalfWidth() + tuning.EdgeTolerance + tuning.TriggerRadius
	for _, cp := range cps {
		if off := tr.LateralOffset(cp.X, cp.Z); off > reach || off < -reach {
			return nil, nil, fmt.Errorf("default course: checkpoint %s is %.1f units off the road", cp.ID, off)
		}
	}
	return tr, cps, nil
}

// NewSession builds a session on the default course.
func NewSession(tuning config.Tuning) (*game.Session, error) {
	tr, cps, err := Default(tuning)
	if err != nil {
		return nil, err
	}
	return game.NewSession(tr, cps, tuning)
}
