package delay

import (
	"fmt"
	"math"
)

// allpassHeadroom is the extra capacity kept beyond the nominal delay so a
// modulated read never wraps onto the write cursor.
const allpassHeadroom = 32

// Allpass is a multi-channel Schroeder allpass diffuser built on Line.
type Allpass struct {
	line     Line
	delay    int
	gain     float64
	feedback []float64
	dry      []float64
}

// NewAllpass returns a diffuser with delayMs at sampleRate.
func NewAllpass(channels int, sampleRate, delayMs, gain float64) (*Allpass, error) {
	a := &Allpass{}
	if err := a.Prepare(channels, sampleRate, delayMs, gain); err != nil {
		return nil, err
	}
	return a, nil
}

// Prepare sizes the diffuser for round(delayMs*sampleRate/1000) samples plus
// headroom, sets the gain and clears state.
func (a *Allpass) Prepare(channels int, sampleRate, delayMs, gain float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("delay: allpass sample rate must be > 0: %f", sampleRate)
	}
	a.delay = max(1, int(math.Round(delayMs*sampleRate/1000)))
	if err := a.line.Prepare(channels, a.delay+allpassHeadroom); err != nil {
		return fmt.Errorf("delay: allpass: %w", err)
	}
	a.line.SetDelay(float64(a.delay))
	a.feedback = make([]float64, channels)
	a.dry = make([]float64, channels)
	a.SetGain(gain)
	return nil
}

// SetGain sets the feedback gain, clamped to [0, 1].
func (a *Allpass) SetGain(g float64) {
	a.gain = math.Min(math.Max(g, 0), 1)
	if g != g {
		a.gain = 0
	}
}

// Gain returns the feedback gain.
func (a *Allpass) Gain() float64 { return a.gain }

// DelaySamples returns the integer delay in samples.
func (a *Allpass) DelaySamples() int { return a.delay }

// Push stores x plus the channel's feedback into the line.
func (a *Allpass) Push(ch int, x float64) {
	a.dry[ch] = x
	a.line.Push(ch, x+a.feedback[ch])
}

// Pop reads the delayed sample, updates the feedback state and returns the
// allpass output for the sample last given to Push.
func (a *Allpass) Pop(ch int) float64 {
	out := a.line.Read(ch, a.delay)
	a.feedback[ch] = out * a.gain
	return out + (-a.dry[ch] - a.gain*out)
}

// Process is Push followed by Pop.
func (a *Allpass) Process(ch int, x float64) float64 {
	a.Push(ch, x)
	return a.Pop(ch)
}

// Reset clears the line and feedback state.
func (a *Allpass) Reset() {
	a.line.Reset()
	clear(a.feedback)
	clear(a.dry)
}
