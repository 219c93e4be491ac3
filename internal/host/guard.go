package host

import (
	"math"

	"github.com/journeydrive/sim/internal/game"
)

// ValidationResult represents the result of input validation
type ValidationResult int

const (
	ValidationValid ValidationResult = iota
	ValidationIgnoreInput
	ValidationReject
	ValidationKick
)

// InputGuard screens client input before it reaches the session.
type InputGuard struct {
	maxPerTick    int
	maxViolations int

	inputsThisTick int
	violations     int
}

// NewInputGuard creates a guard allowing maxPerTick inputs per tick and
// kicking after maxViolations dropped or rejected inputs.
func NewInputGuard(maxPerTick, maxViolations int) *InputGuard {
	return &InputGuard{maxPerTick: maxPerTick, maxViolations: maxViolations}
}

// ValidateRate checks if the client is sending too many inputs this tick
func (g *InputGuard) ValidateRate() ValidationResult {
	g.inputsThisTick++
	if g.inputsThisTick > g.maxPerTick {
		return g.violation(ValidationIgnoreInput)
	}
	return ValidationValid
}

// ValidateInput rejects non-finite axes and clamps the rest to [-1, 1].
func (g *InputGuard) ValidateInput(in game.Input) (game.Input, ValidationResult) {
	if !finite(in.Forward) || !finite(in.Steering) {
		return game.Input{}, g.violation(ValidationReject)
	}
	return in.Clamp(), ValidationValid
}

// ResetTick resets the input counter for this tick
func (g *InputGuard) ResetTick() {
	g.inputsThisTick = 0
}

// Violations returns the number of inputs dropped or rejected so far.
func (g *InputGuard) Violations() int {
	return g.violations
}

func (g *InputGuard) violation(result ValidationResult) ValidationResult {
	g.violations++
	if g.maxViolations > 0 && g.violations > g.maxViolations {
		return ValidationKick
	}
	return result
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
