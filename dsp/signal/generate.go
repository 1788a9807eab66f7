package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-vecmath"
)

// Generator creates deterministic excitation signals at a fixed sample rate.
type Generator struct {
	sampleRate float64
	seed       int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic seed used for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a signal generator for sampleRate.
func NewGenerator(sampleRate float64, opts ...Option) (*Generator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("signal: sample rate must be > 0: %f", sampleRate)
	}
	g := &Generator{sampleRate: sampleRate, seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g, nil
}

// SampleRate returns the generator sample rate.
func (g *Generator) SampleRate() float64 { return g.sampleRate }

// Impulse returns a unit impulse at sample 0 followed by seconds of silence.
func (g *Generator) Impulse(seconds float64) ([]float64, error) {
	n := int(seconds * g.sampleRate)
	if n <= 0 {
		return nil, fmt.Errorf("signal: impulse length must be > 0: %f s", seconds)
	}
	out := make([]float64, n)
	out[0] = 1
	return out, nil
}

// Sine generates a sine wave of the given length in samples.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// NoiseBurst returns burstSeconds of white noise followed by tailSeconds of
// silence. It is the classic interrupted-noise excitation for decay
// measurements.
func (g *Generator) NoiseBurst(amplitude, burstSeconds, tailSeconds float64) ([]float64, error) {
	burst := int(burstSeconds * g.sampleRate)
	tail := int(tailSeconds * g.sampleRate)
	if burst <= 0 || tail < 0 {
		return nil, fmt.Errorf("signal: invalid noise burst %f s + %f s", burstSeconds, tailSeconds)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("signal: noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, burst+tail)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range burst {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Normalize scales data to targetPeak and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("signal: normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("signal: normalize input must not be empty")
	}

	out := make([]float64, len(data))
	peak := vecmath.MaxAbs(data)
	if peak == 0 || targetPeak == 0 {
		return out, nil
	}
	vecmath.ScaleBlock(out, data, targetPeak/peak)
	return out, nil
}
