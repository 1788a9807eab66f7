package dither

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-vecmath"
)

const (
	minBitDepth = 2
	maxBitDepth = 32
	noiseBlock  = 256
)

type config struct {
	typ     Type
	shaping Shaping
	seed    uint64
	seeded  bool
}

// Option configures a Quantizer.
type Option func(*config) error

// WithType sets the dither PDF. The default is Triangular.
func WithType(t Type) Option {
	return func(c *config) error {
		if !t.Valid() {
			return fmt.Errorf("dither: invalid dither type: %d", int(t))
		}
		c.typ = t
		return nil
	}
}

// WithShaping sets the noise-shaping filter. The default is ShapingNone.
func WithShaping(s Shaping) Option {
	return func(c *config) error {
		if !s.Valid() {
			return fmt.Errorf("dither: invalid noise shaping: %d", int(s))
		}
		c.shaping = s
		return nil
	}
}

// WithSeed makes the dither noise reproducible.
func WithSeed(seed uint64) Option {
	return func(c *config) error {
		c.seed = seed
		c.seeded = true
		return nil
	}
}

// Quantizer reduces samples in [-1, 1] to bitDepth integer steps. It keeps
// per-stream shaper state; use one Quantizer per channel.
type Quantizer struct {
	bitDepth int
	typ      Type
	shaper   NoiseShaper
	rng      *rand.Rand
	tpdf     *vecmath.DitherState
	noiseBuf [noiseBlock]float64
	noisePos int
	scale    float64
	lo, hi   float64
}

// NewQuantizer returns a quantizer for bitDepth with triangular dither and
// no noise shaping unless configured otherwise.
func NewQuantizer(bitDepth int, opts ...Option) (*Quantizer, error) {
	if bitDepth < minBitDepth || bitDepth > maxBitDepth {
		return nil, fmt.Errorf("dither: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bitDepth)
	}

	cfg := config{typ: Triangular}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	seed := cfg.seed
	if !cfg.seeded {
		seed = rand.Uint64()
	}
	scale := math.Exp2(float64(bitDepth-1)) - 1
	return &Quantizer{
		bitDepth: bitDepth,
		typ:      cfg.typ,
		shaper:   NewFIRShaper(cfg.shaping.Coefficients()),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		tpdf:     vecmath.NewDitherState(int64(seed)),
		noisePos: noiseBlock,
		scale:    scale,
		lo:       -scale,
		hi:       scale,
	}, nil
}

// BitDepth returns the target word length.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Type returns the dither PDF.
func (q *Quantizer) Type() Type { return q.typ }

// ProcessInteger quantizes input to an integer in the bit-depth range.
func (q *Quantizer) ProcessInteger(input float64) int {
	shaped := q.shaper.Shape(q.scale * input)
	result := math.Max(q.lo, math.Min(q.hi, math.Round(shaped+q.noise())))
	q.shaper.RecordError(result - shaped)
	return int(result)
}

// ProcessSample quantizes input and returns it rescaled to [-1, 1].
func (q *Quantizer) ProcessSample(input float64) float64 {
	return float64(q.ProcessInteger(input)) / q.scale
}

// ProcessInPlace quantizes every sample of buf.
func (q *Quantizer) ProcessInPlace(buf []float64) {
	for i, v := range buf {
		buf[i] = q.ProcessSample(v)
	}
}

// Reset clears the noise-shaper history.
func (q *Quantizer) Reset() { q.shaper.Reset() }

func (q *Quantizer) noise() float64 {
	switch q.typ {
	case Rectangular:
		return q.rng.Float64() - 0.5
	case Triangular:
		if q.noisePos == noiseBlock {
			vecmath.GenerateTPDF(q.noiseBuf[:], 1, q.tpdf)
			q.noisePos = 0
		}
		v := q.noiseBuf[q.noisePos]
		q.noisePos++
		return v
	default:
		return 0
	}
}
