package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/delay"
	"github.com/cwbudde/algo-fxrack/dsp/filter/onepole"
)

const (
	MinDelayMs       = 1.0
	MaxDelayMs       = 2000.0
	MaxDelayFeedback = 0.95
	MinDelayLowpass  = 200.0
	MaxDelayLowpass  = 20000.0
	MinDelayHighpass = 20.0
	MaxDelayHighpass = 5000.0

	defaultDelayMs       = 250.0
	defaultDelayFeedback = 0.3
	defaultDelayMix      = 0.5
)

// DelayMode selects the feedback routing and wet polarity.
type DelayMode int

const (
	DelayNormal DelayMode = iota
	DelayPingPong
	DelayInverted
)

// DelayModes lists the modes in parameter index order.
var DelayModes = []DelayMode{DelayNormal, DelayPingPong, DelayInverted}

func (m DelayMode) String() string {
	switch m {
	case DelayNormal:
		return "Normal"
	case DelayPingPong:
		return "PingPong"
	case DelayInverted:
		return "Inverted"
	default:
		return fmt.Sprintf("DelayMode(%d)", int(m))
	}
}

// DelayModeFromIndex maps a choice index onto a mode. Unknown indices
// select DelayNormal.
func DelayModeFromIndex(i int) DelayMode {
	if i < 0 || i >= len(DelayModes) {
		return DelayNormal
	}
	return DelayModes[i]
}

// Delay is a stereo feedback delay. Each channel's feedback runs through a
// first-order lowpass and then a first-order highpass. PingPong crosses the
// feedback between channels, Inverted flips the wet polarity, and pan
// attenuates one side of the wet signal.
//
// Setters clamp and may be called between blocks from the audio goroutine.
type Delay struct {
	sampleRate float64
	prepared   bool

	timeMs     float64
	feedback   float64
	mix        float64
	mode       DelayMode
	pan        float64
	lowpassHz  float64
	highpassHz float64

	line     delay.Line
	lowpass  [2]onepole.TPT
	highpass [2]onepole.TPT
	fb       [2]float64
}

// NewDelay returns a prepared delay with the rack defaults.
func NewDelay(sampleRate float64) (*Delay, error) {
	d := &Delay{
		timeMs:     defaultDelayMs,
		feedback:   defaultDelayFeedback,
		mix:        defaultDelayMix,
		lowpassHz:  MaxDelayLowpass,
		highpassHz: MinDelayHighpass,
	}
	if err := d.Prepare(sampleRate); err != nil {
		return nil, err
	}
	return d, nil
}

// Prepare allocates two seconds of history for sampleRate and clears state.
func (d *Delay) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("delay sample rate must be > 0: %f", sampleRate)
	}
	d.sampleRate = sampleRate

	capacity := int(math.Ceil(MaxDelayMs*sampleRate/1000)) + 2
	if err := d.line.Prepare(2, capacity); err != nil {
		return fmt.Errorf("delay line: %w", err)
	}
	for ch := range 2 {
		d.lowpass[ch].SetMode(onepole.Lowpass)
		d.lowpass[ch].Prepare(sampleRate)
		d.highpass[ch].SetMode(onepole.Highpass)
		d.highpass[ch].Prepare(sampleRate)
	}

	d.prepared = true
	d.SetTime(d.timeMs)
	d.SetLowpass(d.lowpassHz)
	d.SetHighpass(d.highpassHz)
	d.Reset()
	return nil
}

// SetTime sets the delay in milliseconds, clamped to [MinDelayMs, MaxDelayMs].
func (d *Delay) SetTime(ms float64) {
	d.timeMs = core.Clamp(ms, MinDelayMs, MaxDelayMs)
	if d.prepared {
		d.line.SetDelay(d.timeMs * d.sampleRate / 1000)
	}
}

// SetFeedback sets the feedback amount in [0, MaxDelayFeedback].
func (d *Delay) SetFeedback(fb float64) { d.feedback = core.Clamp(fb, 0, MaxDelayFeedback) }

// SetMix sets the wet amount in [0, 1].
func (d *Delay) SetMix(mix float64) { d.mix = core.Clamp01(mix) }

// SetMode sets the routing mode.
func (d *Delay) SetMode(m DelayMode) { d.mode = DelayModeFromIndex(int(m)) }

// SetPan sets the wet balance in [-1, 1].
func (d *Delay) SetPan(pan float64) { d.pan = core.Clamp(pan, -1, 1) }

// SetLowpass sets the feedback lowpass cutoff.
func (d *Delay) SetLowpass(hz float64) {
	d.lowpassHz = core.Clamp(hz, MinDelayLowpass, MaxDelayLowpass)
	for ch := range d.lowpass {
		d.lowpass[ch].SetCutoff(d.lowpassHz)
	}
}

// SetHighpass sets the feedback highpass cutoff.
func (d *Delay) SetHighpass(hz float64) {
	d.highpassHz = core.Clamp(hz, MinDelayHighpass, MaxDelayHighpass)
	for ch := range d.highpass {
		d.highpass[ch].SetCutoff(d.highpassHz)
	}
}

// SampleRate returns the prepared sample rate in Hz.
func (d *Delay) SampleRate() float64 { return d.sampleRate }

// Time returns the delay in milliseconds.
func (d *Delay) Time() float64 { return d.timeMs }

// Feedback returns the feedback amount.
func (d *Delay) Feedback() float64 { return d.feedback }

// Mix returns the wet amount.
func (d *Delay) Mix() float64 { return d.mix }

// Mode returns the routing mode.
func (d *Delay) Mode() DelayMode { return d.mode }

// Pan returns the wet balance.
func (d *Delay) Pan() float64 { return d.pan }

// Lowpass returns the feedback lowpass cutoff in Hz.
func (d *Delay) Lowpass() float64 { return d.lowpassHz }

// Highpass returns the feedback highpass cutoff in Hz.
func (d *Delay) Highpass() float64 { return d.highpassHz }

// Reset clears the line, the filters and the stored feedback.
func (d *Delay) Reset() {
	if !d.prepared {
		return
	}
	d.line.Reset()
	for ch := range 2 {
		d.lowpass[ch].Reset()
		d.highpass[ch].Reset()
		d.fb[ch] = 0
	}
}

// Process runs the delay in place. A mono buffer uses the left path without
// ping-pong or pan.
func (d *Delay) Process(buf [][]float64) {
	if !d.prepared {
		return
	}
	left, right, stereo := core.Stereo(buf)
	n := core.Frames(buf)

	wet := d.mix
	dry := 1 - wet
	fb := d.feedback
	sign := 1.0
	if d.mode == DelayInverted {
		sign = -1
	}

	if !stereo {
		for i := range n {
			x := left[i]
			delayed := d.line.Pop(0)
			d.line.Push(0, x+d.fb[0]*fb)
			d.fb[0] = d.filter(0, delayed)
			left[i] = x*dry + delayed*sign*wet
		}
		return
	}

	panL := 1 - max(0, d.pan)
	panR := 1 + min(0, d.pan)
	wetL := sign * wet * panL
	wetR := sign * wet * panR
	pingPong := d.mode == DelayPingPong

	for i := range n {
		xL, xR := left[i], right[i]
		dL := d.line.Pop(0)
		dR := d.line.Pop(1)

		if pingPong {
			d.line.Push(0, xL+d.fb[1]*fb)
			d.line.Push(1, xR+d.fb[0]*fb)
		} else {
			d.line.Push(0, xL+d.fb[0]*fb)
			d.line.Push(1, xR+d.fb[1]*fb)
		}

		d.fb[0] = d.filter(0, dL)
		d.fb[1] = d.filter(1, dR)

		left[i] = xL*dry + dL*wetL
		right[i] = xR*dry + dR*wetR
	}
}

func (d *Delay) filter(ch int, x float64) float64 {
	return core.FlushDenormals(d.highpass[ch].Process(d.lowpass[ch].Process(x)))
}
