package anim

import (
	"sync"
	"time"

	"github.com/MariaFayed/flames-avatar/internal/pose"
)

// Config tunes the blend engine. Rates are exponential convergence rates in
// 1/s; scale factors shape the raw pose signal into head-bone rotation.
type Config struct {
	VisemeRate   float64 `mapstructure:"viseme_rate"`
	BlinkRate    float64 `mapstructure:"blink_rate"`
	RotationRate float64 `mapstructure:"rotation_rate"`

	RestClose float64 `mapstructure:"rest_close"`

	PitchScale float64 `mapstructure:"pitch_scale"`
	YawScale   float64 `mapstructure:"yaw_scale"`
	RollScale  float64 `mapstructure:"roll_scale"`
}

// DefaultConfig returns the tuning used by the production avatar: snappy
// mouth, snappier blinks, slower head rotation.
func DefaultConfig() Config {
	return Config{
		VisemeRate:   22,
		BlinkRate:    40,
		RotationRate: 10,
		RestClose:    0.15,
		PitchScale:   0.4,
		YawScale:     0.9,
		RollScale:    0.6,
	}
}

// Frame is one tick of render-facing output: a smoothed head rotation triple
// and a weight in [0,1] for every blend target.
type Frame struct {
	Yaw   float64
	Pitch float64
	Roll  float64

	Weights map[Target]float64
}

// Engine owns the per-target weight map and the active-viseme state machine.
// Discrete viseme events and pose samples arrive asynchronously; Tick folds
// them into smoothed output. All mutation happens under one mutex so a tick
// never observes a half-applied active-target change.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	active  Target
	goalPos pose.Sample

	yaw, pitch, roll float64
	weights          map[Target]float64
}

// NewEngine creates an engine at rest: silence active, all weights zero.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:     cfg,
		active:  TargetSil,
		weights: make(map[Target]float64, len(VisemeTargets)+3),
	}
	for _, t := range VisemeTargets {
		e.weights[t] = 0
	}
	e.weights[TargetBlinkLeft] = 0
	e.weights[TargetBlinkRight] = 0
	e.weights[TargetMouthClose] = 0
	return e
}

// SetViseme replaces the active discrete target. The transition itself moves
// no weights; smoothing does that on subsequent ticks.
func (e *Engine) SetViseme(id int) {
	e.mu.Lock()
	e.active = VisemeTarget(id)
	e.mu.Unlock()
}

// SetPose updates the rotation/blink goal from the latest telemetry sample.
func (e *Engine) SetPose(s pose.Sample) {
	e.mu.Lock()
	e.goalPos = s
	e.mu.Unlock()
}

// Active returns the current discrete target.
func (e *Engine) Active() Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Reset returns the engine to silence and zero goals. Weights decay toward
// zero over the following ticks rather than jumping.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.active = TargetSil
	e.goalPos = pose.Sample{}
	e.mu.Unlock()
}

// Tick advances every smoothed quantity by dt and returns the new frame.
// The whole update is computed against the tick-entry state, so every target
// sees the same active-target decision.
func (e *Engine) Tick(dt time.Duration) Frame {
	sec := dt.Seconds()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.yaw = Smooth(e.yaw, e.goalPos.Yaw*e.cfg.YawScale, e.cfg.RotationRate, sec)
	e.pitch = Smooth(e.pitch, e.goalPos.Pitch*e.cfg.PitchScale, e.cfg.RotationRate, sec)
	e.roll = Smooth(e.roll, e.goalPos.Roll*e.cfg.RollScale, e.cfg.RotationRate, sec)

	for _, t := range VisemeTargets {
		goal := 0.0
		if t == e.active {
			goal = 1.0
		}
		e.weights[t] = SmoothSnap(e.weights[t], goal, e.cfg.VisemeRate, sec)
	}

	// Keep the lips resting lightly closed between utterances.
	restGoal := 0.0
	if e.active == TargetSil {
		restGoal = e.cfg.RestClose
	}
	e.weights[TargetMouthClose] = Smooth(e.weights[TargetMouthClose], restGoal, e.cfg.VisemeRate, sec)

	e.weights[TargetBlinkLeft] = Smooth(e.weights[TargetBlinkLeft], e.goalPos.BlinkLeft, e.cfg.BlinkRate, sec)
	e.weights[TargetBlinkRight] = Smooth(e.weights[TargetBlinkRight], e.goalPos.BlinkRight, e.cfg.BlinkRate, sec)

	out := Frame{
		Yaw:     e.yaw,
		Pitch:   e.pitch,
		Roll:    e.roll,
		Weights: make(map[Target]float64, len(e.weights)),
	}
	for t, w := range e.weights {
		out.Weights[t] = w
	}
	return out
}
