package reverb

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/delay"
	"github.com/cwbudde/algo-fxrack/dsp/effects/modulation"
	"github.com/cwbudde/algo-fxrack/dsp/filter/damping"
	"github.com/cwbudde/algo-fxrack/dsp/filter/design"
)

const (
	plateEarlyGain     = 0.72
	plateRightSpread   = 1.11
	plateModRatio      = 0.003
	plateSafety        = 0.95
	plateMaxFeedback   = 0.90
	plateShelfHz       = 3000.0
	plateShelfQ        = 0.707
	plateShelfLinear   = 0.5
	plateDelayHeadroom = MaxRoomSize * (1 + plateModRatio)
)

var (
	plateEarlyMs = [fdnLines]float64{2.5, 4.0, 6.0, 8.5}
	plateLineMs  = [fdnLines]float64{32, 44, 57, 70}
)

// PlateReverb is a dense, bright plate: short stereo diffusion summed to
// mono, then a 4-line Hadamard FDN whose feedback paths are lowpassed,
// psychoacoustically damped and high-shelved.
type PlateReverb struct {
	sampleRate float64
	prepared   bool
	params     Params

	pre       preDelay
	earlyL    [fdnLines]delay.Allpass
	earlyR    [fdnLines]delay.Allpass
	lines     [fdnLines]delay.Line
	damp      [fdnLines]damping.Stage
	lfo       modulation.LFO
	base      [fdnLines]float64
	maxDelay  [fdnLines]float64
	current   [fdnLines]float64
	fbGain    float64
	loopTimeS float64
}

// NewPlate returns an unprepared plate with default parameters.
func NewPlate() *PlateReverb {
	return &PlateReverb{params: DefaultParams()}
}

// Prepare sizes all lines for sampleRate and clears state.
func (p *PlateReverb) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("plate reverb sample rate must be > 0: %f", sampleRate)
	}
	p.sampleRate = sampleRate

	if err := p.pre.prepare(2, sampleRate, MaxPreDelayMs); err != nil {
		return fmt.Errorf("plate reverb pre-delay: %w", err)
	}

	shelfDB := core.LinearToDB(plateShelfLinear)
	shelf := design.HighShelf(plateShelfHz, shelfDB, plateShelfQ, sampleRate)

	for i := range fdnLines {
		if err := p.earlyL[i].Prepare(1, sampleRate, plateEarlyMs[i], plateEarlyGain); err != nil {
			return fmt.Errorf("plate reverb diffuser: %w", err)
		}
		if err := p.earlyR[i].Prepare(1, sampleRate, plateEarlyMs[i]*plateRightSpread, plateEarlyGain); err != nil {
			return fmt.Errorf("plate reverb diffuser: %w", err)
		}

		p.base[i] = plateLineMs[i] * sampleRate / 1000
		capacity := int(p.base[i]*plateDelayHeadroom) + 4
		if err := p.lines[i].Prepare(1, capacity); err != nil {
			return fmt.Errorf("plate reverb line: %w", err)
		}
		p.maxDelay[i] = float64(capacity - 2)

		p.damp[i].Prepare(sampleRate)
		p.damp[i].SetShelf(shelf)
	}

	if err := p.lfo.Prepare(sampleRate); err != nil {
		return fmt.Errorf("plate reverb: %w", err)
	}

	p.prepared = true
	p.SetParams(p.params)
	p.Reset()
	return nil
}

// SetParams clamps params and derives the per-block coefficients.
func (p *PlateReverb) SetParams(params Params) {
	params = params.Clamped()
	p.params = params
	if !p.prepared {
		return
	}

	p.pre.set(params.PreDelayMs, p.sampleRate)
	p.lfo.SetRate(params.ModRate)
	for i := range fdnLines {
		p.damp[i].SetDamping(params.Damping)
	}

	mean := 0.0
	for _, b := range p.base {
		mean += b
	}
	mean /= fdnLines * p.sampleRate
	p.loopTimeS = mean * params.RoomSize
	p.fbGain = core.Clamp(plateSafety*math.Exp(-3*p.loopTimeS/params.DecayTime), 0, plateMaxFeedback)
}

// Params returns the clamped settings in effect.
func (p *PlateReverb) Params() Params { return p.params }

// FeedbackGain returns the FDN loop gain.
func (p *PlateReverb) FeedbackGain() float64 { return p.fbGain }

// LoopTime returns the mean line length in seconds at the current room
// size.
func (p *PlateReverb) LoopTime() float64 { return p.loopTimeS }

// Reset clears all state and snaps modulated delays to their targets.
func (p *PlateReverb) Reset() {
	if !p.prepared {
		return
	}
	p.pre.reset()
	for i := range fdnLines {
		p.earlyL[i].Reset()
		p.earlyR[i].Reset()
		p.lines[i].Reset()
		p.damp[i].Reset()
		p.current[i] = p.target(i, 0)
	}
	p.lfo.Reset()
}

func (p *PlateReverb) target(i int, mod float64) float64 {
	b := core.Clamp(p.base[i]*p.params.RoomSize, 1, p.maxDelay[i])
	return core.Clamp(b+b*plateModRatio*p.params.ModDepth*mod, 1, p.maxDelay[i])
}

// Process runs the plate in place. A mono buffer receives the left decode.
func (p *PlateReverb) Process(buf [][]float64) {
	if !p.prepared {
		return
	}
	left, right, stereo := core.Stereo(buf)
	n := core.Frames(buf)
	mix := p.params.Mix
	dryGain := 1 - mix
	fb := p.fbGain

	var out [fdnLines]float64
	for s := range n {
		dryL := left[s]
		dryR := right[s]

		eL := p.pre.process(0, dryL)
		eR := p.pre.process(1, dryR)
		for i := range fdnLines {
			eL = p.earlyL[i].Process(0, eL)
			eR = p.earlyR[i].Process(0, eR)
		}
		mono := 0.5 * (eL + eR)

		mod := modValues(p.lfo.Next())
		for i := range fdnLines {
			p.current[i] += modSlew * (p.target(i, mod[i]) - p.current[i])
			out[i] = p.lines[i].ReadFractional(0, p.current[i])
		}

		mixed := hadamard4(out)
		for i := range fdnLines {
			p.lines[i].Push(0, p.damp[i].Process(mono+mixed[i]*fb))
		}

		wetL := 0.35*(out[0]+out[2]) + 0.15*(out[1]-out[3])
		wetR := 0.35*(out[1]+out[3]) + 0.15*(out[0]-out[2])

		left[s] = dryL*dryGain + wetL*mix
		if stereo {
			right[s] = dryR*dryGain + wetR*mix
		}
	}
}
