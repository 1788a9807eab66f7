package onepole

import "math"

// Smoother is the exponential one-pole lowpass z = g*z + (1-g)*x.
type Smoother struct {
	g float64
	z float64
}

// SetCutoff sets the pole from a cutoff frequency.
func (s *Smoother) SetCutoff(hz, sampleRate float64) {
	if sampleRate <= 0 || hz <= 0 || hz != hz {
		s.g = 0
		return
	}
	s.g = math.Exp(-2 * math.Pi * hz / sampleRate)
}

// SetTime sets the pole so a step settles to 1-1/e after timeMs.
func (s *Smoother) SetTime(timeMs, sampleRate float64) {
	if timeMs <= 0 || sampleRate <= 0 {
		s.g = 0
		return
	}
	s.g = math.Exp(-1000 / (timeMs * sampleRate))
}

// Coefficient returns the pole g.
func (s *Smoother) Coefficient() float64 { return s.g }

// Process filters one sample.
func (s *Smoother) Process(x float64) float64 {
	s.z = s.g*s.z + (1-s.g)*x
	return s.z
}

// Value returns the last output.
func (s *Smoother) Value() float64 { return s.z }

// Set jumps the state to v.
func (s *Smoother) Set(v float64) { s.z = v }

// Reset clears the state.
func (s *Smoother) Reset() { s.z = 0 }
