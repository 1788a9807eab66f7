package damping

import (
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

const (
	// MinPsychoHz is the cutoff at full damping.
	MinPsychoHz = 400.0
	// MaxPsychoHz is the cutoff at zero damping.
	MaxPsychoHz = 16000.0

	// MinDampingHz and MaxDampingHz bound the user damping cutoff.
	MinDampingHz = 500.0
	MaxDampingHz = 10000.0
)

// PsychoCutoff maps a damping amount in [0,1] onto a cutoff between
// MaxPsychoHz (amount 0) and MinPsychoHz (amount 1). The 0.35 exponent
// spends most of the control range on the upper octaves.
func PsychoCutoff(amount float64) float64 {
	return PsychoCutoffRange(amount, MinPsychoHz, MaxPsychoHz)
}

// PsychoCutoffRange is PsychoCutoff with explicit bounds.
func PsychoCutoffRange(amount, minHz, maxHz float64) float64 {
	u := core.Clamp01(amount)
	return minHz * math.Pow(maxHz/minHz, 1-math.Pow(u, 0.35))
}

// AmountFromHz converts a damping cutoff in Hz into a damping amount:
// MaxDampingHz is no damping, MinDampingHz is full damping.
func AmountFromHz(hz float64) float64 {
	return core.Clamp01((MaxDampingHz - hz) / (MaxDampingHz - MinDampingHz))
}

// Stages returns pre, mid and late cutoffs for a progressively darker
// multi-stage tail.
func Stages(amount float64) (pre, mid, late float64) {
	return PsychoCutoff(amount * 0.4), PsychoCutoff(amount * 0.7), PsychoCutoff(amount)
}

// TiltCutoff maps a tilt in [0,1] onto 9200 Hz (0) down to 1200 Hz (1).
func TiltCutoff(tilt float64) float64 {
	return 1200 + 8000*(1-core.Clamp01(tilt))
}
