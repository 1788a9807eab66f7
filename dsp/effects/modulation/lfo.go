package modulation

import (
	"fmt"
	"math"
)

// Waveform selects the LFO shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Saw
)

// String returns the waveform name.
func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Triangle:
		return "triangle"
	case Saw:
		return "saw"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// LFOOutput holds one rendered LFO sample in all four phase relations.
type LFOOutput struct {
	Normal   float64
	Inverted float64
	QuadPos  float64 // +90 degrees
	QuadNeg  float64 // -90 degrees, i.e. inverted QuadPos
}

// LFO is a bipolar low-frequency oscillator with quadrature output.
// Phase is kept in [0, 1) and advances by rate/sampleRate per sample.
type LFO struct {
	waveform   Waveform
	sampleRate float64
	rateHz     float64
	phase      float64
	inc        float64
}

// NewLFO returns a sine LFO at rateHz.
func NewLFO(sampleRate, rateHz float64) (*LFO, error) {
	l := &LFO{waveform: Sine}
	if err := l.Prepare(sampleRate); err != nil {
		return nil, err
	}
	l.SetRate(rateHz)
	return l, nil
}

// Prepare sets the sample rate and rewinds the phase.
func (l *LFO) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("lfo sample rate must be > 0: %f", sampleRate)
	}
	l.sampleRate = sampleRate
	l.phase = 0
	l.SetRate(l.rateHz)
	return nil
}

// SetRate sets the frequency in Hz. Negative and non-finite rates stop the
// oscillator.
func (l *LFO) SetRate(rateHz float64) {
	if rateHz < 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		rateHz = 0
	}
	l.rateHz = rateHz
	if l.sampleRate > 0 {
		l.inc = rateHz / l.sampleRate
	}
}

// Rate returns the frequency in Hz.
func (l *LFO) Rate() float64 { return l.rateHz }

// SetWaveform selects the shape.
func (l *LFO) SetWaveform(w Waveform) { l.waveform = w }

// Waveform returns the current shape.
func (l *LFO) Waveform() Waveform { return l.waveform }

// Phase returns the normalized phase in [0, 1).
func (l *LFO) Phase() float64 { return l.phase }

// Reset rewinds the phase.
func (l *LFO) Reset() { l.phase = 0 }

// Next renders the current sample and advances the phase.
func (l *LFO) Next() LFOOutput {
	quad := l.phase + 0.25
	if quad >= 1 {
		quad--
	}
	out := LFOOutput{
		Normal:  l.shape(l.phase),
		QuadPos: l.shape(quad),
	}
	out.Inverted = -out.Normal
	out.QuadNeg = -out.QuadPos

	l.phase += l.inc
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}
	return out
}

func (l *LFO) shape(phase float64) float64 {
	switch l.waveform {
	case Triangle:
		return 2*math.Abs(2*phase-1) - 1
	case Saw:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
