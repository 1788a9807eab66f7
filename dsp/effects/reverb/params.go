package reverb

import (
	"fmt"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/filter/damping"
)

const (
	MinRoomSize   = 0.25
	MaxRoomSize   = 1.75
	MinDecay      = 0.1
	MaxDecay      = 20.0
	MaxPreDelayMs = 200.0
	MinModRate    = 0.05
	MaxModRate    = 5.0

	// modSlew is the per-sample approach rate of modulated delays toward
	// their targets.
	modSlew = 0.001
)

// Type selects the reverb algorithm.
type Type int

const (
	Hall Type = iota
	Plate
)

// Types lists the algorithms in parameter index order.
var Types = []Type{Hall, Plate}

// String returns the algorithm name.
func (t Type) String() string {
	switch t {
	case Hall:
		return "Hall"
	case Plate:
		return "Plate"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// TypeFromIndex maps a choice parameter index onto a Type. Out-of-range
// indices select Hall.
func TypeFromIndex(i int) Type {
	if i == int(Plate) {
		return Plate
	}
	return Hall
}

// Params are the user-facing reverb settings.
type Params struct {
	Mix        float64 // dry/wet, 0..1
	RoomSize   float64 // delay scale, 0.25..1.75
	DecayTime  float64 // RT60 target in seconds, 0.1..20
	Damping    float64 // feedback lowpass cutoff in Hz
	ModRate    float64 // Hz
	ModDepth   float64 // 0..1
	PreDelayMs float64 // 0..200
}

// DefaultParams returns the rack defaults.
func DefaultParams() Params {
	return Params{
		Mix:        0.5,
		RoomSize:   1,
		DecayTime:  5,
		Damping:    8000,
		ModRate:    0.3,
		ModDepth:   0.15,
		PreDelayMs: 0,
	}
}

// Clamped returns p with every field forced into its legal range.
func (p Params) Clamped() Params {
	return Params{
		Mix:        core.Clamp01(p.Mix),
		RoomSize:   core.Clamp(p.RoomSize, MinRoomSize, MaxRoomSize),
		DecayTime:  core.Clamp(p.DecayTime, MinDecay, MaxDecay),
		Damping:    core.Clamp(p.Damping, damping.MinDampingHz, damping.MaxDampingHz),
		ModRate:    core.Clamp(p.ModRate, MinModRate, MaxModRate),
		ModDepth:   core.Clamp01(p.ModDepth),
		PreDelayMs: core.Clamp(p.PreDelayMs, 0, MaxPreDelayMs),
	}
}

// Engine is the capability set shared by Hall and Plate.
type Engine interface {
	// Prepare sizes every buffer for sampleRate and clears state.
	Prepare(sampleRate float64) error
	// SetParams applies new settings; call at most once per block.
	SetParams(p Params)
	// Params returns the clamped settings in effect.
	Params() Params
	// Process runs the reverb in place on a mono or stereo buffer.
	Process(buf [][]float64)
	// Reset clears all state without reallocating.
	Reset()
	// FeedbackGain returns the loop gain derived from the current decay.
	FeedbackGain() float64
}

var (
	_ Engine = (*HallReverb)(nil)
	_ Engine = (*PlateReverb)(nil)
)

// New returns an unprepared engine of type t.
func New(t Type) Engine {
	if t == Plate {
		return NewPlate()
	}
	return NewHall()
}
