package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/hajimehoshi/bitmapfont/v3"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/journeydrive/sim/config"
	"github.com/journeydrive/sim/internal/course"
	"github.com/journeydrive/sim/internal/game"
	"github.com/journeydrive/sim/internal/input"
)

const (
	ScreenWidth  = 960
	ScreenHeight = 720

	pixelsPerUnit = 6.0
	// The car sits below the screen center so more road ahead is visible
	carScreenX = ScreenWidth / 2
	carScreenY = ScreenHeight * 0.7

	stickRadius   = 80.0 // pixels of drag for full deflection
	stickDeadzone = 0.15
	gateHalfSpan  = 7.0
)

var (
	face = text.NewGoXFace(bitmapfont.Face)

	grassColor      = color.RGBA{38, 70, 44, 255}
	edgeColor       = color.RGBA{230, 230, 230, 255}
	centerColor     = color.RGBA{240, 200, 60, 255}
	carColor        = color.RGBA{220, 60, 60, 255}
	gateColor       = color.RGBA{70, 200, 210, 255}
	nextGateColor   = color.RGBA{255, 200, 50, 255}
	doneGateColor   = color.RGBA{110, 110, 110, 255}
	hudColor        = color.RGBA{255, 255, 255, 255}
	dimColor        = color.RGBA{0, 0, 0, 170}
	panelColor      = color.RGBA{20, 28, 40, 240}
	progressColor   = color.RGBA{255, 200, 50, 255}
	progressBgColor = color.RGBA{60, 60, 60, 255}
)

// Viewer runs a local session and renders it top-down.
type Viewer struct {
	tuning  config.Tuning
	session *game.Session

	// On-screen joystick, driven by a mouse drag
	dragging bool
	dragX    int
	dragY    int

	lastEdge bool
}

// NewViewer builds a viewer on the default course.
func NewViewer(tuning config.Tuning) (*Viewer, error) {
	s, err := course.NewSession(tuning)
	if err != nil {
		return nil, err
	}
	return &Viewer{tuning: tuning, session: s}, nil
}

// Update advances the session by one frame.
func (v *Viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyT) {
		v.session.ToggleAutopilot()
	}

	switch v.session.Phase() {
	case game.PhaseNotStarted:
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			v.session.Start()
		}
		return nil

	case game.PhasePaused:
		if inpututil.IsKeyJustPressed(ebiten.KeySpace) || inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			v.session.Continue()
		}
		return nil

	case game.PhaseCompleted:
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			s, err := course.NewSession(v.tuning)
			if err != nil {
				return err
			}
			v.session = s
		}
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) || !ebiten.IsFocused() {
		v.session.Pause()
		v.dragging = false
		return nil
	}

	dt := 1.0 / float64(ebiten.TPS())
	res := v.session.Tick(v.readInput(), dt)
	v.lastEdge = res.EdgeContact
	return nil
}

func (v *Viewer) readInput() game.Input {
	keys := input.Keys{
		Up:    ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp),
		Down:  ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown),
		Left:  ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		Right: ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight),
	}

	var stick game.Input
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		v.dragging = true
		v.dragX, v.dragY = ebiten.CursorPosition()
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		v.dragging = false
	}
	if v.dragging {
		x, y := ebiten.CursorPosition()
		stick = input.FromJoystick(float64(x-v.dragX)/stickRadius, float64(y-v.dragY)/stickRadius)
		stick = input.Deadzone(stick, stickDeadzone)
	}

	return input.Merge(keys.Input(), stick)
}

// Draw renders the road, gates, car and HUD.
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(grassColor)

	snap := v.session.Snapshot()
	v.drawRoad(screen, snap.Pose)
	v.drawGates(screen, snap.Pose)
	v.drawCar(screen, snap.Pose)
	if v.dragging {
		vector.StrokeCircle(screen, float32(v.dragX), float32(v.dragY), stickRadius, 2, hudColor, true)
	}
	v.drawHUD(screen, snap)

	switch snap.Phase {
	case game.PhaseNotStarted:
		drawBanner(screen, "JOURNEY DRIVE", "Press ENTER to start")
	case game.PhasePaused:
		if snap.Current != nil {
			drawCheckpoint(screen, *snap.Current, snap)
		} else {
			drawBanner(screen, "PAUSED", "Press SPACE to continue")
		}
	case game.PhaseCompleted:
		drawBanner(screen, "JOURNEY COMPLETE", "Press ENTER to drive again")
	}
}

// Layout uses a fixed logical screen.
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// project maps world coordinates to screen pixels with the camera on the car.
// Forward (-Z) is up.
func project(cam game.Pose, x, z float64) (float32, float32) {
	sx := carScreenX + (x-cam.X)*pixelsPerUnit
	sy := carScreenY + (z-cam.Z)*pixelsPerUnit
	return float32(sx), float32(sy)
}

func (v *Viewer) drawRoad(screen *ebiten.Image, cam game.Pose) {
	tr := v.session.Track()
	pts := tr.Centerline()
	hw := tr.HalfWidth()

	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]

		x1, y1 := project(cam, a.X-hw, a.Z)
		x2, y2 := project(cam, b.X-hw, b.Z)
		vector.StrokeLine(screen, x1, y1, x2, y2, 2, edgeColor, true)

		x1, y1 = project(cam, a.X+hw, a.Z)
		x2, y2 = project(cam, b.X+hw, b.Z)
		vector.StrokeLine(screen, x1, y1, x2, y2, 2, edgeColor, true)

		// Dashed centerline
		if i%2 == 0 {
			x1, y1 = project(cam, a.X, a.Z)
			x2, y2 = project(cam, b.X, b.Z)
			vector.StrokeLine(screen, x1, y1, x2, y2, 1, centerColor, true)
		}
	}
}

func (v *Viewer) drawGates(screen *ebiten.Image, cam game.Pose) {
	next, hasNext := v.session.NextCheckpoint()

	for _, cp := range v.session.Checkpoints() {
		clr := gateColor
		switch {
		case v.session.Visited(cp.ID):
			clr = doneGateColor
		case hasNext && cp.ID == next.ID:
			clr = nextGateColor
		}

		dx := math.Cos(cp.GateRotation) * gateHalfSpan
		dz := math.Sin(cp.GateRotation) * gateHalfSpan
		x1, y1 := project(cam, cp.X-dx, cp.Z-dz)
		x2, y2 := project(cam, cp.X+dx, cp.Z+dz)
		vector.StrokeLine(screen, x1, y1, x2, y2, 3, clr, true)
		vector.DrawFilledCircle(screen, x1, y1, 4, clr, true)
		vector.DrawFilledCircle(screen, x2, y2, 4, clr, true)

		cx, cy := project(cam, cp.X, cp.Z)
		vector.StrokeCircle(screen, cx, cy, float32(v.tuning.TriggerRadius*pixelsPerUnit), 1, clr, true)
		drawText(screen, cp.Title, float64(x2)+8, float64(y2)-8, 1, clr)
	}
}

func (v *Viewer) drawCar(screen *ebiten.Image, p game.Pose) {
	fx, fz := math.Sin(p.Heading), -math.Cos(p.Heading)
	rx, rz := -fz, fx

	nx, ny := project(p, p.X+fx*2.2, p.Z+fz*2.2)
	lx, ly := project(p, p.X-fx*1.2-rx, p.Z-fz*1.2-rz)
	qx, qy := project(p, p.X-fx*1.2+rx, p.Z-fz*1.2+rz)

	clr := carColor
	if v.lastEdge {
		clr = edgeColor
	}
	vector.StrokeLine(screen, nx, ny, lx, ly, 3, clr, true)
	vector.StrokeLine(screen, lx, ly, qx, qy, 3, clr, true)
	vector.StrokeLine(screen, qx, qy, nx, ny, 3, clr, true)
}

func (v *Viewer) drawHUD(screen *ebiten.Image, snap game.Snapshot) {
	drawText(screen, fmt.Sprintf("SPEED %5.1f", snap.Speed), 16, 16, 2, hudColor)
	drawText(screen, fmt.Sprintf("CHECKPOINTS %d/%d", len(snap.Reached), snap.Total), 16, 48, 2, hudColor)

	auto := "OFF"
	if snap.Autopilot {
		auto = "ON"
	}
	drawText(screen, "AUTOPILOT "+auto, 16, 80, 2, hudColor)
	drive := float64(v.session.TickCount()) / float64(ebiten.TPS())
	drawText(screen, fmt.Sprintf("TIME %5.1fs", drive), ScreenWidth-200, 16, 2, hudColor)

	// Progress bar
	const barW, barH = 240, 10
	vector.DrawFilledRect(screen, 16, 112, barW, barH, progressBgColor, false)
	vector.DrawFilledRect(screen, 16, 112, float32(barW*v.session.Progress()), barH, progressColor, false)

	drawText(screen, "WASD/ARROWS drive  DRAG steer  T autopilot  P pause", 16, ScreenHeight-28, 1, hudColor)
}

func drawBanner(screen *ebiten.Image, title, hint string) {
	vector.DrawFilledRect(screen, 0, 0, ScreenWidth, ScreenHeight, dimColor, false)
	drawCentered(screen, title, ScreenHeight/3, 5, nextGateColor)
	drawCentered(screen, hint, ScreenHeight/3+80, 2, hudColor)
}

func drawCheckpoint(screen *ebiten.Image, cp game.Checkpoint, snap game.Snapshot) {
	vector.DrawFilledRect(screen, 0, 0, ScreenWidth, ScreenHeight, dimColor, false)

	const px, py, pw, ph = 120, 90, ScreenWidth - 240, ScreenHeight - 180
	vector.DrawFilledRect(screen, px, py, pw, ph, panelColor, false)
	vector.StrokeRect(screen, px, py, pw, ph, 2, nextGateColor, false)

	x, y := float64(px+24), float64(py+24)
	drawText(screen, cp.Title, x, y, 3, nextGateColor)
	y += 44
	if cp.Subtitle != "" {
		drawText(screen, cp.Subtitle, x, y, 1, hudColor)
		y += 24
	}

	drawText(screen, cp.Content.Heading, x, y, 2, hudColor)
	y += 36

	width := float64(pw - 48)
	for _, para := range cp.Content.Paragraphs {
		for _, line := range wrap(para, width) {
			drawText(screen, line, x, y, 1, hudColor)
			y += 16
		}
		y += 8
	}
	for _, item := range cp.Content.Items {
		for _, line := range wrap("- "+item, width) {
			drawText(screen, line, x, y, 1, hudColor)
			y += 16
		}
	}
	if cp.Content.CTA != nil {
		y += 8
		drawText(screen, fmt.Sprintf("%s: %s", cp.Content.CTA.Label, cp.Content.CTA.Action), x, y, 1, gateColor)
	}

	hint := "Press SPACE to continue"
	if len(snap.Reached) == snap.Total {
		hint = "Press SPACE to finish"
	}
	drawCentered(screen, hint, float64(py+ph-36), 2, hudColor)
}

func drawText(screen *ebiten.Image, s string, x, y, scale float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, face, op)
}

func drawCentered(screen *ebiten.Image, s string, y, scale float64, clr color.Color) {
	w := text.Advance(s, face) * scale
	drawText(screen, s, (ScreenWidth-w)/2, y, scale, clr)
}

// wrap splits s into lines no wider than width at scale 1.
func wrap(s string, width float64) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && text.Advance(candidate, face) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
