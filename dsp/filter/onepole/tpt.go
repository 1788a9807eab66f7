package onepole

import "math"

// Mode selects the TPT output.
type Mode int

const (
	Lowpass Mode = iota
	Highpass
)

// TPT is a first-order zero-delay-feedback filter. The integrator state is
// kept across cutoff changes, so cutoff may be modulated per sample.
type TPT struct {
	mode       Mode
	sampleRate float64
	cutoff     float64
	g          float64
	s          float64
}

// NewTPT returns a filter of the given mode at cutoffHz.
func NewTPT(mode Mode, sampleRate, cutoffHz float64) *TPT {
	f := &TPT{mode: mode}
	f.Prepare(sampleRate)
	f.SetCutoff(cutoffHz)
	return f
}

// Prepare sets the sample rate, recomputes the coefficient and clears state.
func (f *TPT) Prepare(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = 48000
	}
	f.sampleRate = sampleRate
	f.s = 0
	f.SetCutoff(f.cutoff)
}

// SetMode switches between lowpass and highpass output.
func (f *TPT) SetMode(m Mode) { f.mode = m }

// SetCutoff sets the -3 dB frequency, clamped to (0, 0.49*sampleRate].
func (f *TPT) SetCutoff(hz float64) {
	if hz != hz || hz <= 0 {
		hz = 1
	}
	hz = math.Min(hz, 0.49*f.sampleRate)
	f.cutoff = hz
	t := math.Tan(math.Pi * hz / f.sampleRate)
	f.g = t / (1 + t)
}

// Cutoff returns the current cutoff in Hz.
func (f *TPT) Cutoff() float64 { return f.cutoff }

// Process filters one sample.
func (f *TPT) Process(x float64) float64 {
	v := (x - f.s) * f.g
	lp := v + f.s
	f.s = lp + v
	if f.mode == Highpass {
		return x - lp
	}
	return lp
}

// Reset clears the integrator.
func (f *TPT) Reset() { f.s = 0 }
