package reverb

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/conv"
	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/filter/biquad"
	"github.com/cwbudde/algo-fxrack/dsp/filter/design"
	"github.com/cwbudde/algo-fxrack/dsp/filter/onepole"
)

const (
	MaxConvPreDelayMs = 2000.0
	MinConvGainDB     = -18.0
	MaxConvGainDB     = 18.0
	MinLowCutHz       = 20.0
	MaxLowCutHz       = 1000.0
	MinHighCutHz      = 2000.0
	MaxHighCutHz      = 20000.0
	MaxIRIndex        = 150

	// DefaultPartitionSize is the convolver block size and therefore the
	// wet-path latency in samples.
	DefaultPartitionSize = 128

	convGainSmoothMs  = 50.0
	convFilterQ       = 1.0
	convMinPreDelay   = 0.1
	convScratchFrames = 4096
)

// ErrEmptyIR is returned when a loader yields no samples.
var ErrEmptyIR = errors.New("reverb: empty impulse response")

// IRLoader resolves an impulse response index into per-channel samples at
// sampleRate. A single channel feeds both convolvers.
type IRLoader interface {
	GetIR(index int, sampleRate float64) ([][]float64, error)
}

// ConvolutionParams are the user-facing convolution settings.
type ConvolutionParams struct {
	Mix        float64
	PreDelayMs float64
	IRIndex    int
	GainDB     float64
	LowCutHz   float64
	HighCutHz  float64
}

// DefaultConvolutionParams returns the rack defaults.
func DefaultConvolutionParams() ConvolutionParams {
	return ConvolutionParams{
		Mix:       0.5,
		LowCutHz:  80,
		HighCutHz: 12000,
	}
}

// Clamped returns p with every field forced into its legal range.
func (p ConvolutionParams) Clamped() ConvolutionParams {
	return ConvolutionParams{
		Mix:        core.Clamp01(p.Mix),
		PreDelayMs: core.Clamp(p.PreDelayMs, 0, MaxConvPreDelayMs),
		IRIndex:    min(max(p.IRIndex, 0), MaxIRIndex),
		GainDB:     core.Clamp(p.GainDB, MinConvGainDB, MaxConvGainDB),
		LowCutHz:   core.Clamp(p.LowCutHz, MinLowCutHz, MaxLowCutHz),
		HighCutHz:  core.Clamp(p.HighCutHz, MinHighCutHz, MaxHighCutHz),
	}
}

// ConvolutionOption configures a Convolution.
type ConvolutionOption func(*Convolution)

// WithIRLoader sets the impulse response source. Without one the effect
// convolves with a unit impulse.
func WithIRLoader(l IRLoader) ConvolutionOption {
	return func(c *Convolution) { c.loader = l }
}

// WithLogger sets the logger used by the background IR loader.
func WithLogger(l logrus.FieldLogger) ConvolutionOption {
	return func(c *Convolution) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxBlockSize sets the largest block Process handles without
// splitting. Longer blocks are processed in pieces of this size.
func WithMaxBlockSize(n int) ConvolutionOption {
	return func(c *Convolution) { c.SetMaxBlockSize(n) }
}

// WithPartitionSize sets the convolver block size, a power of two of at
// least conv.MinBlockSize.
func WithPartitionSize(n int) ConvolutionOption {
	return func(c *Convolution) { c.partition = n }
}

type irKernel struct {
	index      int
	sampleRate float64
	conv       [2]*conv.Partitioned
}

// Convolution is a stereo convolution reverb. The wet path runs pre-delay,
// partitioned FFT convolution, a low-cut highpass, a high-cut lowpass and a
// smoothed gain before the dry/wet mix.
//
// IR changes are loaded on a background goroutine and picked up by Process
// at the next block boundary. A failed load is logged and the previous IR
// stays active. Call Close to stop the loader.
type Convolution struct {
	loader    IRLoader
	logger    logrus.FieldLogger
	maxBlock  int
	partition int

	sampleRate float64
	prepared   bool
	params     ConvolutionParams
	requested  int

	active *irKernel
	ready  atomic.Pointer[irKernel]

	reqIndex atomic.Int64
	reqGen   atomic.Uint64
	doneGen  atomic.Uint64
	reqRate  atomic.Uint64
	wake     chan struct{}
	done     chan struct{}
	start    sync.Once
	stop     sync.Once
	wg       sync.WaitGroup

	pre     preDelay
	lowCut  [2]biquad.Section
	highCut [2]biquad.Section
	gain    onepole.Smoother
	wet     [2][]float64
	gains   []float64
}

// NewConvolution returns an unprepared convolution effect.
func NewConvolution(opts ...ConvolutionOption) *Convolution {
	c := &Convolution{
		logger:    logrus.StandardLogger(),
		partition: DefaultPartitionSize,
		params:    DefaultConvolutionParams(),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepare sizes the wet path for sampleRate, installs a unit impulse and
// requests the configured IR from the loader.
func (c *Convolution) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("convolution sample rate must be > 0: %f", sampleRate)
	}

	unity, err := newKernel(0, sampleRate, [][]float64{{1}}, c.partition)
	if err != nil {
		return fmt.Errorf("convolution: %w", err)
	}
	if err := c.pre.prepare(2, sampleRate, MaxConvPreDelayMs); err != nil {
		return fmt.Errorf("convolution pre-delay: %w", err)
	}

	c.sampleRate = sampleRate
	c.active = unity
	c.ready.Store(nil)
	frames := c.maxBlock
	if frames <= 0 {
		frames = convScratchFrames
	}
	for ch := range c.wet {
		c.wet[ch] = make([]float64, frames)
	}
	c.gains = make([]float64, frames)
	c.gain.SetTime(convGainSmoothMs, sampleRate)

	c.prepared = true
	c.requested = c.params.IRIndex
	c.SetParams(c.params)
	c.gain.Set(core.DBToLinear(c.params.GainDB))
	c.resetState()

	if c.loader != nil {
		c.reqRate.Store(math.Float64bits(sampleRate))
		c.start.Do(func() {
			c.wg.Add(1)
			go c.run()
		})
		if c.params.IRIndex != 0 {
			c.request(c.params.IRIndex)
		}
	}
	return nil
}

// SetParams clamps p, retunes the filters and requests a new IR when the
// index changed. It does not block.
func (c *Convolution) SetParams(p ConvolutionParams) {
	p = p.Clamped()
	c.params = p
	if !c.prepared {
		return
	}

	c.pre.set(p.PreDelayMs, c.sampleRate)

	low := core.Clamp(p.LowCutHz, 10, 0.45*c.sampleRate)
	high := core.Clamp(p.HighCutHz, low+10, 0.49*c.sampleRate)
	lc := design.Highpass(low, convFilterQ, c.sampleRate)
	hc := design.Lowpass(high, convFilterQ, c.sampleRate)
	for ch := range 2 {
		c.lowCut[ch].SetCoefficients(lc)
		c.highCut[ch].SetCoefficients(hc)
	}

	if p.IRIndex != c.requested {
		c.requested = p.IRIndex
		if c.loader != nil {
			c.request(p.IRIndex)
		}
	}
}

// Params returns the clamped settings in effect.
func (c *Convolution) Params() ConvolutionParams { return c.params }

// IRIndex returns the index of the IR currently convolved.
func (c *Convolution) IRIndex() int {
	if c.active == nil {
		return 0
	}
	return c.active.index
}

// Loading reports whether a requested IR has not yet been installed by
// Process. Offline renderers poll it between blocks.
func (c *Convolution) Loading() bool {
	if c.loader == nil {
		return false
	}
	return c.reqGen.Load() != c.doneGen.Load() || c.ready.Load() != nil
}

// SetMaxBlockSize sets the scratch size allocated by the next Prepare.
// Non-positive values select the default.
func (c *Convolution) SetMaxBlockSize(n int) { c.maxBlock = max(n, 0) }

// Latency returns the wet-path latency in samples.
func (c *Convolution) Latency() int { return c.partition }

// Reset clears the wet-path state.
func (c *Convolution) Reset() {
	if !c.prepared {
		return
	}
	c.resetState()
	c.gain.Set(core.DBToLinear(c.params.GainDB))
}

func (c *Convolution) resetState() {
	c.pre.reset()
	for ch := range 2 {
		c.lowCut[ch].Reset()
		c.highCut[ch].Reset()
		c.active.conv[ch].Reset()
	}
}

// Close stops the loader goroutine. The effect keeps processing with the
// IR it holds.
func (c *Convolution) Close() error {
	c.stop.Do(func() { close(c.done) })
	c.wg.Wait()
	return nil
}

// Process runs the convolution in place on a mono or stereo buffer.
func (c *Convolution) Process(buf [][]float64) {
	if !c.prepared {
		return
	}
	if k := c.ready.Swap(nil); k != nil && k.sampleRate == c.sampleRate {
		c.active = k
		c.resetState()
	}

	n := core.Frames(buf)
	channels := min(len(buf), 2)
	var chunk [2][]float64
	step := len(c.gains)
	for off := 0; off < n; off += step {
		end := min(off+step, n)
		for ch := range channels {
			chunk[ch] = buf[ch][off:end]
		}
		c.processChunk(chunk[:channels])
	}
}

func (c *Convolution) processChunk(buf [][]float64) {
	n := len(buf[0])
	target := core.DBToLinear(c.params.GainDB)
	gains := c.gains[:n]
	for i := range gains {
		gains[i] = c.gain.Process(target)
	}

	mix := c.params.Mix
	dry := 1 - mix
	usePre := c.pre.active(convMinPreDelay)

	for ch := range buf {
		src := buf[ch]
		wet := c.wet[ch][:n]
		copy(wet, src)

		if usePre {
			for i, x := range wet {
				wet[i] = c.pre.process(ch, x)
			}
		} else {
			for _, x := range wet {
				c.pre.feed(ch, x)
			}
		}
		if err := c.active.conv[ch].Process(wet, wet); err != nil {
			clear(wet)
		}
		c.lowCut[ch].ProcessBlock(wet)
		c.highCut[ch].ProcessBlock(wet)

		for i, x := range src {
			src[i] = x*dry + wet[i]*gains[i]*mix
		}
	}
}

func (c *Convolution) request(index int) {
	c.reqIndex.Store(int64(index))
	c.reqGen.Add(1)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Convolution) run() {
	defer c.wg.Done()

	var loaded uint64
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for gen := c.reqGen.Load(); gen != loaded; gen = c.reqGen.Load() {
			index := int(c.reqIndex.Load())
			sampleRate := math.Float64frombits(c.reqRate.Load())
			loaded = gen

			k, err := c.load(index, sampleRate)
			if err != nil {
				c.doneGen.Store(gen)
				c.logger.WithFields(logrus.Fields{
					"function": "Convolution.run",
					"index":    index,
				}).WithError(err).Error("impulse response load failed, keeping previous")
				continue
			}
			c.ready.Store(k)
			c.doneGen.Store(gen)
			c.logger.WithFields(logrus.Fields{
				"function": "Convolution.run",
				"index":    index,
				"length":   k.conv[0].KernelLen(),
			}).Debug("impulse response loaded")
		}
	}
}

func (c *Convolution) load(index int, sampleRate float64) (*irKernel, error) {
	ir, err := c.loader.GetIR(index, sampleRate)
	if err != nil {
		return nil, err
	}
	return newKernel(index, sampleRate, ir, c.partition)
}

func newKernel(index int, sampleRate float64, ir [][]float64, partition int) (*irKernel, error) {
	if len(ir) == 0 || len(ir[0]) == 0 {
		return nil, ErrEmptyIR
	}
	k := &irKernel{index: index, sampleRate: sampleRate}
	for ch := range k.conv {
		p, err := conv.NewPartitioned(ir[min(ch, len(ir)-1)], partition)
		if err != nil {
			return nil, fmt.Errorf("reverb: IR %d channel %d: %w", index, ch, err)
		}
		k.conv[ch] = p
	}
	return k, nil
}
