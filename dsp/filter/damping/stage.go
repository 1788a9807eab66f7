package damping

import (
	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/filter/biquad"
	"github.com/cwbudde/algo-fxrack/dsp/filter/onepole"
)

// Stage is the damping applied to one FDN line: a TPT lowpass at the user
// cutoff, a psychoacoustic one-pole derived from the same setting, and an
// optional high shelf.
type Stage struct {
	sampleRate float64
	hz         float64
	lowpass    onepole.TPT
	psycho     onepole.Smoother
	shelf      biquad.Section
	hasShelf   bool
}

// Prepare sets the sample rate, keeps the current damping and clears state.
func (s *Stage) Prepare(sampleRate float64) {
	s.sampleRate = sampleRate
	s.lowpass.SetMode(onepole.Lowpass)
	s.lowpass.Prepare(sampleRate)
	if s.hz == 0 {
		s.hz = MaxDampingHz
	}
	s.SetDamping(s.hz)
	s.Reset()
}

// SetDamping sets the damping cutoff in Hz, clamped to
// [MinDampingHz, MaxDampingHz].
func (s *Stage) SetDamping(hz float64) {
	hz = core.Clamp(hz, MinDampingHz, MaxDampingHz)
	s.hz = hz
	s.lowpass.SetCutoff(hz)
	s.psycho.SetCutoff(PsychoCutoff(AmountFromHz(hz)), s.sampleRate)
}

// Damping returns the damping cutoff in Hz.
func (s *Stage) Damping() float64 { return s.hz }

// SetShelf enables a fixed shelf after the one-poles.
func (s *Stage) SetShelf(c biquad.Coefficients) {
	s.shelf.SetCoefficients(c)
	s.hasShelf = true
}

// Lowpass runs only the TPT lowpass.
func (s *Stage) Lowpass(x float64) float64 { return s.lowpass.Process(x) }

// Psycho runs only the psychoacoustic one-pole.
func (s *Stage) Psycho(x float64) float64 { return s.psycho.Process(x) }

// Process runs lowpass, psychoacoustic one-pole and shelf in series.
func (s *Stage) Process(x float64) float64 {
	y := s.psycho.Process(s.lowpass.Process(x))
	if s.hasShelf {
		y = s.shelf.ProcessSample(y)
	}
	return core.FlushDenormals(y)
}

// Reset clears all filter state.
func (s *Stage) Reset() {
	s.lowpass.Reset()
	s.psycho.Reset()
	s.shelf.Reset()
}
