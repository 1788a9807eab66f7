package resample

import (
	"errors"
	"math"
)

var (
	// ErrInvalidRatio indicates an invalid up/down ratio.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidRate indicates an invalid input/output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
)

// Quality controls the anti-aliasing filter length and window.
type Quality int

const (
	QualityFast Quality = iota
	QualityBalanced
	QualityBest
)

type profile struct {
	tapsPerPhase int
	cutoffScale  float64
	kaiserBeta   float64
}

func qualityProfile(q Quality) profile {
	switch q {
	case QualityFast:
		return profile{tapsPerPhase: 16, cutoffScale: 0.88, kaiserBeta: 5.0}
	case QualityBest:
		return profile{tapsPerPhase: 64, cutoffScale: 0.96, kaiserBeta: 9.0}
	default:
		return profile{tapsPerPhase: 32, cutoffScale: 0.92, kaiserBeta: 7.5}
	}
}

type config struct {
	quality Quality
	maxDen  int
}

// Option configures a Converter.
type Option func(*config)

// WithQuality selects a filter quality mode.
func WithQuality(q Quality) Option {
	return func(cfg *config) { cfg.quality = q }
}

// WithMaxDenominator caps the denominator used to approximate the rate
// ratio.
func WithMaxDenominator(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxDen = n
		}
	}
}

// Converter resamples by a fixed rational factor up/down.
type Converter struct {
	up, down int
	taps     []float64
	center   int
}

// NewRational returns a converter for ratio up/down.
func NewRational(up, down int, opts ...Option) (*Converter, error) {
	if up <= 0 || down <= 0 {
		return nil, ErrInvalidRatio
	}
	cfg := config{quality: QualityBalanced, maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	g := gcd(up, down)
	c := &Converter{up: up / g, down: down / g}
	if c.up == 1 && c.down == 1 {
		return c, nil
	}

	taps, err := designLowpass(c.up, c.down, qualityProfile(cfg.quality))
	if err != nil {
		return nil, err
	}
	c.taps = taps
	c.center = (len(taps) - 1) / 2
	return c, nil
}

// NewForRates returns a converter from inRate to outRate.
func NewForRates(inRate, outRate float64, opts ...Option) (*Converter, error) {
	if !validRate(inRate) || !validRate(outRate) {
		return nil, ErrInvalidRate
	}
	cfg := config{maxDen: 4096}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	up, down := approximateRatio(outRate/inRate, cfg.maxDen)
	return NewRational(up, down, opts...)
}

// Ratio returns the reduced conversion factors.
func (c *Converter) Ratio() (up, down int) { return c.up, c.down }

// OutputLen returns the number of samples Convert produces for n inputs.
func (c *Converter) OutputLen(n int) int {
	if n <= 0 {
		return 0
	}
	return (n*c.up + c.down - 1) / c.down
}

// Convert returns x at the new rate. Identity ratios return a copy.
func (c *Converter) Convert(x []float64) []float64 {
	out := make([]float64, c.OutputLen(len(x)))
	if c.taps == nil {
		copy(out, x)
		return out
	}

	nTaps := len(c.taps)
	for m := range out {
		// Position in the zero-stuffed signal, shifted by the filter's
		// group delay.
		t := m*c.down + c.center
		lo := max(0, ceilDiv(t-nTaps+1, c.up))
		hi := min(len(x)-1, t/c.up)

		var y float64
		for n := lo; n <= hi; n++ {
			y += x[n] * c.taps[t-n*c.up]
		}
		out[m] = y
	}
	return out
}

// ConvertChannels converts every channel of x.
func (c *Converter) ConvertChannels(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for ch := range x {
		out[ch] = c.Convert(x[ch])
	}
	return out
}

// Channels converts x from inRate to outRate with balanced quality.
func Channels(x [][]float64, inRate, outRate float64, opts ...Option) ([][]float64, error) {
	c, err := NewForRates(inRate, outRate, opts...)
	if err != nil {
		return nil, err
	}
	return c.ConvertChannels(x), nil
}

func validRate(r float64) bool {
	return r > 0 && !math.IsNaN(r) && !math.IsInf(r, 0)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return -((-a) / b)
	}
	return (a + b - 1) / b
}
