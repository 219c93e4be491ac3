package config

import "time"

// Simulation constants. Speeds are world units per second; the feel was tuned
// at 60 Hz so most values are per-frame figures scaled by 60 (or 3600 for
// accelerations).
const (
	// Track
	RoadWidth     = 14.0
	SplineSteps   = 20
	EdgeTolerance = 0.5 // overflow allowed past the painted edge
	FinishOverrun = 5.0 // distance past the last sample that counts as finished

	// Timing
	MaxTickDuration = 0.1 // seconds; larger frame gaps are clamped

	// Longitudinal
	MaxSpeed          = 22.8  // 0.38 per frame
	MaxReverse        = 12.0  // 0.20 per frame
	ThrottleAccel     = 198.0 // 0.055 per frame²
	BrakeDecel        = 540.0 // 0.15 per frame²
	EngineBrake       = 72.0  // 0.020 per frame²
	RollingResistance = 18.0  // 0.005 per frame²
	BrakeThreshold    = 3.0   // above this, negative input brakes instead of reversing
	StopEpsilon       = 0.06  // speeds below this snap to zero while coasting

	// Acceleration ramp
	RampUpRate   = 0.7 // per second, full power after ~1.4 s
	RampDownRate = 2.0
	RampFloor    = 0.25

	// Steering
	Wheelbase         = 2.3
	MaxSteerAngle     = 0.48 // radians
	SteerSpeedFalloff = 0.30 // fraction of steer lost at top speed
	SteerResponse     = 5.66 // 1/s, first-order lag toward the target angle

	// Contact
	EdgeSpeedRetention = 0.6
	LapSpeedRetention  = 0.5

	// Autopilot
	CruiseThrottle    = 0.75
	LookAheadBase     = 15.0
	LookAheadPerSpeed = 1.0 / 3.0 // 20 units per (unit/frame)
	HeadingGain       = 2.5
	LateralGain       = 0.08

	// Checkpoints
	TriggerRadius  = 14.0
	DetectMinSpeed = 0.3

	// Host
	TickRate           = 60 // Hz
	BroadcastRate      = 20 // Hz
	MaxInputsPerTick   = 3
	MaxInputViolations = 120 // dropped inputs before the client is kicked
	MaxSessions        = 200
	SessionIdleTimeout = 10 * time.Minute
)

// Tuning collects every tunable of the vehicle model, the autopilot and the
// checkpoint detector. It is passed in at construction so tests can swap
// values without touching the constants.
type Tuning struct {
	MaxTickDuration float64

	MaxSpeed          float64
	MaxReverse        float64
	ThrottleAccel     float64
	BrakeDecel        float64
	EngineBrake       float64
	RollingResistance float64
	BrakeThreshold    float64
	StopEpsilon       float64

	RampUpRate   float64
	RampDownRate float64
	RampFloor    float64

	Wheelbase         float64
	MaxSteerAngle     float64
	SteerSpeedFalloff float64
	SteerResponse     float64

	EdgeTolerance      float64
	EdgeSpeedRetention float64
	FinishOverrun      float64
	LapSpeedRetention  float64

	CruiseThrottle    float64
	LookAheadBase     float64
	LookAheadPerSpeed float64
	HeadingGain       float64
	LateralGain       float64

	TriggerRadius  float64
	DetectMinSpeed float64
}

// DefaultTuning returns the tuning the course was designed around.
func DefaultTuning() Tuning {
	return Tuning{
		MaxTickDuration: MaxTickDuration,

		MaxSpeed:          MaxSpeed,
		MaxReverse:        MaxReverse,
		ThrottleAccel:     ThrottleAccel,
		BrakeDecel:        BrakeDecel,
		EngineBrake:       EngineBrake,
		RollingResistance: RollingResistance,
		BrakeThreshold:    BrakeThreshold,
		StopEpsilon:       StopEpsilon,

		RampUpRate:   RampUpRate,
		RampDownRate: RampDownRate,
		RampFloor:    RampFloor,

		Wheelbase:         Wheelbase,
		MaxSteerAngle:     MaxSteerAngle,
		SteerSpeedFalloff: SteerSpeedFalloff,
		SteerResponse:     SteerResponse,

		EdgeTolerance:      EdgeTolerance,
		EdgeSpeedRetention: EdgeSpeedRetention,
		FinishOverrun:      FinishOverrun,
		LapSpeedRetention:  LapSpeedRetention,

		CruiseThrottle:    CruiseThrottle,
		LookAheadBase:     LookAheadBase,
		LookAheadPerSpeed: LookAheadPerSpeed,
		HeadingGain:       HeadingGain,
		LateralGain:       LateralGain,

		TriggerRadius:  TriggerRadius,
		DetectMinSpeed: DetectMinSpeed,
	}
}

// Server configuration
type ServerConfig struct {
	Host        string
	Port        int
	EnableCORS  bool
	MaxSessions int
	IdleTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:        "0.0.0.0",
		Port:        8080,
		EnableCORS:  true,
		MaxSessions: MaxSessions,
		IdleTimeout: SessionIdleTimeout,
	}
}
