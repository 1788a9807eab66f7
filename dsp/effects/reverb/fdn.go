package reverb

import (
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/delay"
	"github.com/cwbudde/algo-fxrack/dsp/effects/modulation"
	"github.com/cwbudde/algo-fxrack/dsp/filter/onepole"
)

const (
	fdnLines = 4

	preDelaySmoothMs = 50.0
)

// householder4 applies I - 0.5*ones to v.
func householder4(v *[fdnLines]float64) {
	half := 0.5 * (v[0] + v[1] + v[2] + v[3])
	for i := range v {
		v[i] -= half
	}
}

// hadamard4 applies the orthonormal 4x4 Hadamard matrix.
func hadamard4(in [fdnLines]float64) [fdnLines]float64 {
	a, b, c, d := in[0], in[1], in[2], in[3]
	return [fdnLines]float64{
		0.5 * (a + b + c + d),
		0.5 * (a - b + c - d),
		0.5 * (a + b - c - d),
		0.5 * (a - b - c + d),
	}
}

// modValues spreads one quadrature LFO sample over four decorrelated lines.
func modValues(o modulation.LFOOutput) [fdnLines]float64 {
	l0, l90 := o.Normal, o.QuadPos
	return [fdnLines]float64{
		l0,
		l90,
		math.Tanh(l0 + 0.5*l90),
		math.Tanh(l90 - 0.5*l0),
	}
}

// preDelay is the wet-path pre-delay shared by every engine. Each channel
// glides its read position toward the target so time changes do not click.
type preDelay struct {
	line   delay.Line
	target float64
	smooth [2]onepole.Smoother
}

func (p *preDelay) prepare(channels int, sampleRate, maxMs float64) error {
	for ch := range p.smooth {
		p.smooth[ch].SetTime(preDelaySmoothMs, sampleRate)
	}
	return p.line.Prepare(channels, int(math.Ceil(maxMs*sampleRate/1000))+4)
}

// set changes the target delay. The read position follows it per sample.
func (p *preDelay) set(ms, sampleRate float64) {
	p.target = ms * sampleRate / 1000
}

// reset clears the line and snaps the read position to the target.
func (p *preDelay) reset() {
	p.line.Reset()
	for ch := range p.smooth {
		p.smooth[ch].Set(p.target)
	}
}

// active reports whether any channel reads behind the write position by
// more than floor samples, or will once the glide settles.
func (p *preDelay) active(floor float64) bool {
	if p.target > floor {
		return true
	}
	for ch := range p.smooth {
		if p.smooth[ch].Value() > floor {
			return true
		}
	}
	return false
}

// process pushes x and returns it delayed by the current smoothed time.
// Zero pre-delay returns x itself.
func (p *preDelay) process(ch int, x float64) float64 {
	p.line.Push(ch, x)
	return p.line.ReadFractional(ch, p.smooth[ch].Process(p.target)+1)
}

// feed keeps the line and the glide current without reading.
func (p *preDelay) feed(ch int, x float64) {
	p.line.Push(ch, x)
	p.smooth[ch].Process(p.target)
}
