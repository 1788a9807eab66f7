package ir

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by IR analysis functions.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrNoDecay           = errors.New("ir: insufficient decay for RT calculation")
)

// curveFloorDB is the value used where the remaining energy is zero.
const curveFloorDB = -200.0

// Metrics holds impulse response decay results.
type Metrics struct {
	RT60      float64 // seconds, from T30 or T20
	EDT       float64 // seconds, 0 to -10 dB slope
	T20       float64 // seconds, -5 to -25 dB slope
	T30       float64 // seconds, -5 to -35 dB slope
	C80       float64 // dB
	PeakIndex int
}

// Analyzer computes decay metrics at a fixed sample rate.
type Analyzer struct {
	SampleRate float64
}

// NewAnalyzer creates an analyzer for sampleRate.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate}
}

func (a *Analyzer) validate(ir []float64) error {
	if len(ir) == 0 {
		return ErrEmptyIR
	}
	if a.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	return nil
}

// Analyze computes all metrics over the whole response, starting at sample
// zero so pre-delay and early reflections count toward the decay.
func (a *Analyzer) Analyze(ir []float64) (Metrics, error) {
	if err := a.validate(ir); err != nil {
		return Metrics{}, err
	}

	curve := a.schroeder(ir)
	m := Metrics{
		PeakIndex: peakIndex(ir),
		EDT:       a.regress(curve, 0, -10),
		T20:       a.regress(curve, -5, -25),
		T30:       a.regress(curve, -5, -35),
		C80:       a.clarity(ir, 80),
	}
	m.RT60 = m.T30
	if m.RT60 == 0 {
		m.RT60 = m.T20
	}
	return m, nil
}

// RT60 returns T30 when available and T20 otherwise.
func (a *Analyzer) RT60(ir []float64) (float64, error) {
	if err := a.validate(ir); err != nil {
		return 0, err
	}
	curve := a.schroeder(ir)
	if rt := a.regress(curve, -5, -35); rt > 0 {
		return rt, nil
	}
	if rt := a.regress(curve, -5, -25); rt > 0 {
		return rt, nil
	}
	return 0, ErrNoDecay
}

// SchroederIntegral returns the normalized energy decay curve in dB:
//
//	S(t) = 10*log10( sum_{k>=t} h[k]^2 / sum_k h[k]^2 )
func (a *Analyzer) SchroederIntegral(ir []float64) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	return a.schroeder(ir), nil
}

// Clarity returns the energy ratio in dB before and after timeMs.
func (a *Analyzer) Clarity(ir []float64, timeMs float64) (float64, error) {
	if err := a.validate(ir); err != nil {
		return 0, err
	}
	return a.clarity(ir, timeMs), nil
}

func (a *Analyzer) schroeder(ir []float64) []float64 {
	curve := make([]float64, len(ir))
	acc := 0.0
	for i := len(ir) - 1; i >= 0; i-- {
		acc += ir[i] * ir[i]
		curve[i] = acc
	}

	total := curve[0]
	if total <= 0 {
		return curve
	}
	for i, e := range curve {
		if e <= 0 {
			curve[i] = curveFloorDB
			continue
		}
		curve[i] = 10 * math.Log10(e/total)
	}
	return curve
}

// regress fits a line to the decay curve between the first crossings of
// startDB and endDB and extrapolates it to -60 dB. It returns 0 when the
// curve never reaches endDB or does not decay.
func (a *Analyzer) regress(curve []float64, startDB, endDB float64) float64 {
	start, end := -1, -1
	for i, v := range curve {
		if start < 0 && v <= startDB {
			start = i
		}
		if start >= 0 && v <= endDB {
			end = i
			break
		}
	}
	if start < 0 || end <= start {
		return 0
	}

	var sx, sy, sxx, sxy float64
	for i := start; i <= end; i++ {
		x := float64(i - start)
		y := curve[i]
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	n := float64(end - start + 1)
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	slope := (n*sxy - sx*sy) / den
	if slope >= 0 {
		return 0
	}
	return -60 / (slope * a.SampleRate)
}

func (a *Analyzer) clarity(ir []float64, timeMs float64) float64 {
	split := min(len(ir), int(timeMs*a.SampleRate/1000))
	early := vecmath.DotProduct(ir[:split], ir[:split])
	late := vecmath.DotProduct(ir[split:], ir[split:])
	switch {
	case late == 0:
		return math.Inf(1)
	case early == 0:
		return math.Inf(-1)
	}
	return 10 * math.Log10(early/late)
}

func peakIndex(ir []float64) int {
	idx, peak := 0, 0.0
	for i, v := range ir {
		if av := math.Abs(v); av > peak {
			idx, peak = i, av
		}
	}
	return idx
}
