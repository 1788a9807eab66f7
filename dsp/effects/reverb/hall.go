package reverb

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/delay"
	"github.com/cwbudde/algo-fxrack/dsp/effects/modulation"
	"github.com/cwbudde/algo-fxrack/dsp/filter/damping"
)

const (
	hallTankInput   = 0.75
	hallCrossfeed   = 0.15
	hallModRatio    = 0.01
	hallMaxFeedback = 0.9999
	hallERLengthMs  = 70.0

	// Tank capacity covers the largest room, the density stretch and the
	// modulation excursion.
	hallTankHeadroom = MaxRoomSize * 1.2 * 1.02
)

var (
	hallTankMs = [fdnLines]float64{130, 155, 177, 199}

	hallERTapsMsL = [...]float64{5.2, 12.8, 21.5, 32.2, 45.0, 60.0}
	hallERTapsMsR = [...]float64{7.9, 17.3, 25.8, 37.1, 48.6, 64.0}
	hallERGains   = [...]float64{0.60, 0.45, 0.32, 0.28, 0.22, 0.18}

	hallEarlyMsL   = [fdnLines]float64{8.0, 12.0, 15.0, 22.0}
	hallEarlyMsR   = [fdnLines]float64{8.8, 10.5, 16.0, 21.0}
	hallEarlyGains = [fdnLines]float64{0.70, 0.72, 0.68, 0.70}

	hallTankAPMs    = [fdnLines]float64{35, 55, 78, 92}
	hallTankAPGains = [fdnLines]float64{0.72, 0.70, 0.72, 0.70}
)

// HallReverb is a stereo hall: tapped early reflections, four allpass
// diffusers per channel and one 4-line Householder tank per channel, with
// light crossfeed between the tanks.
type HallReverb struct {
	sampleRate float64
	prepared   bool
	params     Params

	pre       preDelay
	er        delay.Line
	erTaps    [2][len(hallERTapsMsL)]float64
	earlyL    [fdnLines]delay.Allpass
	earlyR    [fdnLines]delay.Allpass
	tanks     [fdnLines]delay.Line // channel 0 = left tank, 1 = right tank
	tankAP    [fdnLines]delay.Allpass
	damp      [2][fdnLines]damping.Stage
	lfo       modulation.LFO
	base      [fdnLines]float64 // samples at room 1
	maxDelay  [fdnLines]float64
	current   [fdnLines]float64
	feedback  [2][fdnLines]float64
	density   float64
	fbGain    float64
	loopTimeS float64
}

// NewHall returns an unprepared hall with default parameters.
func NewHall() *HallReverb {
	h := &HallReverb{}
	h.params = DefaultParams()
	return h
}

// Prepare sizes all lines for sampleRate and clears state.
func (h *HallReverb) Prepare(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("hall reverb sample rate must be > 0: %f", sampleRate)
	}
	h.sampleRate = sampleRate

	if err := h.pre.prepare(2, sampleRate, MaxPreDelayMs); err != nil {
		return fmt.Errorf("hall reverb pre-delay: %w", err)
	}
	if err := h.er.Prepare(2, int(hallERLengthMs*sampleRate/1000)); err != nil {
		return fmt.Errorf("hall reverb early reflections: %w", err)
	}
	for i := range hallERTapsMsL {
		h.erTaps[0][i] = hallERTapsMsL[i] * sampleRate / 1000
		h.erTaps[1][i] = hallERTapsMsR[i] * sampleRate / 1000
	}

	for i := range fdnLines {
		if err := h.earlyL[i].Prepare(1, sampleRate, hallEarlyMsL[i], hallEarlyGains[i]); err != nil {
			return fmt.Errorf("hall reverb diffuser: %w", err)
		}
		if err := h.earlyR[i].Prepare(1, sampleRate, hallEarlyMsR[i], hallEarlyGains[i]); err != nil {
			return fmt.Errorf("hall reverb diffuser: %w", err)
		}
		if err := h.tankAP[i].Prepare(2, sampleRate, hallTankAPMs[i], hallTankAPGains[i]); err != nil {
			return fmt.Errorf("hall reverb tank allpass: %w", err)
		}

		h.base[i] = hallTankMs[i] * sampleRate / 1000
		capacity := int(h.base[i]*hallTankHeadroom) + 4
		if err := h.tanks[i].Prepare(2, capacity); err != nil {
			return fmt.Errorf("hall reverb tank: %w", err)
		}
		h.maxDelay[i] = float64(capacity - 2)

		for ch := range 2 {
			h.damp[ch][i].Prepare(sampleRate)
		}
	}

	if err := h.lfo.Prepare(sampleRate); err != nil {
		return fmt.Errorf("hall reverb: %w", err)
	}

	h.prepared = true
	h.SetParams(h.params)
	h.Reset()
	return nil
}

// SetParams clamps p and derives the per-block coefficients.
func (h *HallReverb) SetParams(p Params) {
	p = p.Clamped()
	h.params = p
	if !h.prepared {
		return
	}

	h.pre.set(p.PreDelayMs, h.sampleRate)
	h.lfo.SetRate(p.ModRate)
	for ch := range 2 {
		for i := range fdnLines {
			h.damp[ch][i].SetDamping(p.Damping)
		}
	}

	h.density = 1 + 0.2*core.Clamp01(p.DecayTime/MaxDecay)

	mean := 0.0
	for _, b := range h.base {
		mean += b
	}
	mean /= fdnLines * h.sampleRate
	h.loopTimeS = 2 * mean * p.RoomSize * h.density
	h.fbGain = core.Clamp(math.Exp(-3*h.loopTimeS/p.DecayTime), 0, hallMaxFeedback)
}

// Params returns the clamped settings in effect.
func (h *HallReverb) Params() Params { return h.params }

// FeedbackGain returns the tank loop gain.
func (h *HallReverb) FeedbackGain() float64 { return h.fbGain }

// LoopTime returns the loop-time estimate in seconds used for the
// feedback gain.
func (h *HallReverb) LoopTime() float64 { return h.loopTimeS }

// Reset clears all state and snaps modulated delays to their targets.
func (h *HallReverb) Reset() {
	if !h.prepared {
		return
	}
	h.pre.reset()
	h.er.Reset()
	for i := range fdnLines {
		h.earlyL[i].Reset()
		h.earlyR[i].Reset()
		h.tankAP[i].Reset()
		h.tanks[i].Reset()
		h.current[i] = h.target(i, 0)
		for ch := range 2 {
			h.damp[ch][i].Reset()
			h.feedback[ch][i] = 0
		}
	}
	h.lfo.Reset()
}

func (h *HallReverb) target(i int, mod float64) float64 {
	b := h.base[i] * h.params.RoomSize * h.density
	return core.Clamp(b+b*hallModRatio*h.params.ModDepth*mod, 1, h.maxDelay[i])
}

// Process runs the hall in place. A mono buffer feeds both tanks with the
// same input and receives the left output.
func (h *HallReverb) Process(buf [][]float64) {
	if !h.prepared {
		return
	}
	left, right, stereo := core.Stereo(buf)
	n := core.Frames(buf)
	mix := h.params.Mix
	dryGain := 1 - mix
	fb := h.fbGain

	var read [2][fdnLines]float64
	for s := range n {
		dryL := left[s]
		dryR := right[s]

		inL := h.pre.process(0, dryL)
		inR := h.pre.process(1, dryR)

		h.er.Push(0, inL)
		h.er.Push(1, inR)
		eL, eR := 0.0, 0.0
		for i, g := range hallERGains {
			eL += g * h.er.ReadFractional(0, h.erTaps[0][i])
			eR += g * h.er.ReadFractional(1, h.erTaps[1][i])
		}
		for i := range fdnLines {
			eL = h.earlyL[i].Process(0, eL)
			eR = h.earlyR[i].Process(0, eR)
		}

		mod := modValues(h.lfo.Next())
		for i := range fdnLines {
			h.current[i] += modSlew * (h.target(i, mod[i]) - h.current[i])
		}

		for i := range fdnLines {
			h.tanks[i].Push(0, hallTankInput*(eL+h.feedback[0][i]))
			h.tanks[i].Push(1, hallTankInput*(eR+h.feedback[1][i]))
		}
		for ch := range 2 {
			for i := range fdnLines {
				x := h.damp[ch][i].Psycho(h.tanks[i].ReadFractional(ch, h.current[i]))
				read[ch][i] = h.tankAP[i].Process(ch, x)
			}
			householder4(&read[ch])
		}

		for i := range fdnLines {
			sL, sR := read[0][i], read[1][i]
			h.feedback[0][i] = core.FlushDenormals(h.damp[0][i].Lowpass(sL+hallCrossfeed*sR) * fb)
			h.feedback[1][i] = core.FlushDenormals(h.damp[1][i].Lowpass(sR+hallCrossfeed*sL) * fb)
		}

		wetL := 0.35*(read[0][0]+read[0][2]) + 0.25*(read[0][1]+read[0][3])
		wetR := 0.35*(read[1][0]+read[1][2]) + 0.25*(read[1][1]+read[1][3])

		left[s] = dryL*dryGain + wetL*mix
		if stereo {
			right[s] = dryR*dryGain + wetR*mix
		}
	}
}
