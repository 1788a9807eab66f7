// Package level accumulates sample-level statistics of rendered audio:
// peak, RMS, DC offset, crest factor and clipped samples.
package level

import (
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

// ClipThreshold is the magnitude at or above which a sample counts as
// clipped.
const ClipThreshold = 1.0

// Levels holds the statistics of one channel.
type Levels struct {
	Length  int
	DC      float64 // mean
	RMS     float64
	RMSDB   float64
	Peak    float64 // max |x|
	PeakDB  float64
	PeakPos int
	Crest   float64 // peak / RMS, 0 for silence
	Clipped int
}

// Meter accumulates Levels over successive blocks.
type Meter struct {
	n       int
	sum     float64
	sumSq   float64
	peak    float64
	peakPos int
	clipped int
}

// Update adds samples to the running statistics.
func (m *Meter) Update(samples []float64) {
	for _, x := range samples {
		m.sum += x
		m.sumSq += x * x
		if a := math.Abs(x); a > m.peak {
			m.peak = a
			m.peakPos = m.n
		}
		if math.Abs(x) >= ClipThreshold {
			m.clipped++
		}
		m.n++
	}
}

// Result returns the statistics accumulated so far. dB fields are -Inf for
// silence.
func (m *Meter) Result() Levels {
	if m.n == 0 {
		return Levels{RMSDB: math.Inf(-1), PeakDB: math.Inf(-1)}
	}
	nf := float64(m.n)
	rms := math.Sqrt(m.sumSq / nf)
	l := Levels{
		Length:  m.n,
		DC:      m.sum / nf,
		RMS:     rms,
		RMSDB:   core.LinearToDB(rms),
		Peak:    m.peak,
		PeakDB:  core.LinearToDB(m.peak),
		PeakPos: m.peakPos,
		Clipped: m.clipped,
	}
	if rms > 0 {
		l.Crest = m.peak / rms
	}
	return l
}

// Reset clears the accumulated data.
func (m *Meter) Reset() { *m = Meter{} }

// Measure returns the Levels of signal.
func Measure(signal []float64) Levels {
	var m Meter
	m.Update(signal)
	return m.Result()
}

// MeasureChannels returns the Levels of every channel.
func MeasureChannels(channels [][]float64) []Levels {
	out := make([]Levels, len(channels))
	for i, ch := range channels {
		out[i] = Measure(ch)
	}
	return out
}
