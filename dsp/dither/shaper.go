package dither

// NoiseShaper applies spectral shaping to quantization error via feedback
// filtering. The usage cycle per sample is:
//  1. shaped := shaper.Shape(scaledInput)
//  2. quantized := round(shaped + dither)
//  3. shaper.RecordError(float64(quantized) - shaped)
type NoiseShaper interface {
	Shape(input float64) float64
	RecordError(quantizationError float64)
	Reset()
}

// FIRShaper implements error-feedback noise shaping with FIR coefficients
// over a ring buffer of past quantization errors.
type FIRShaper struct {
	coeffs  []float64
	history []float64
	pos     int
}

// NewFIRShaper returns a shaper for coeffs. Nil or empty coeffs pass the
// input through.
func NewFIRShaper(coeffs []float64) *FIRShaper {
	return &FIRShaper{
		coeffs:  append([]float64(nil), coeffs...),
		history: make([]float64, len(coeffs)),
	}
}

// Shape subtracts the weighted past errors from input.
func (s *FIRShaper) Shape(input float64) float64 {
	order := len(s.coeffs)
	if order == 0 {
		return input
	}
	for i, c := range s.coeffs {
		input -= c * s.history[(order+s.pos-i)%order]
	}
	s.pos = (s.pos + 1) % order
	return input
}

// RecordError stores the error of the sample just shaped. Call it once
// after each Shape.
func (s *FIRShaper) RecordError(quantizationError float64) {
	if len(s.history) == 0 {
		return
	}
	s.history[s.pos] = quantizationError
}

// Reset clears the error history.
func (s *FIRShaper) Reset() {
	clear(s.history)
	s.pos = 0
}
