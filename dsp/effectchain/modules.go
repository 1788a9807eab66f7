package effectchain

import (
	clone "github.com/huandu/go-clone/generic"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/effects"
	"github.com/cwbudde/algo-fxrack/dsp/effects/reverb"
)

var (
	delayParams = []string{
		ParamMix, ParamDelayTime, ParamFeedback, ParamDelaySyncEnabled, ParamDelayBPM,
		ParamDelayNoteDiv, ParamDelayMode, ParamDelayPan, ParamDelayLowpass, ParamDelayHighpass,
	}
	reverbParams = []string{
		ParamMix, ParamReverbType, ParamRoomSize, ParamDecayTime,
		ParamDamping, ParamModRate, ParamModDepth, ParamPreDelay,
	}
	convolutionParams = []string{
		ParamMix, ParamPreDelay, ParamConvIRIndex, ParamConvIRGain, ParamConvLowCut, ParamConvHighCut,
	}
)

type delayModule struct {
	fx    *effects.Delay
	tempo effects.TempoSource
}

func newDelayModule(ctx Context) (Module, error) {
	fx, err := effects.NewDelay(ctx.Spec.SampleRate)
	if err != nil {
		return nil, err
	}
	return &delayModule{fx: fx, tempo: ctx.Tempo}, nil
}

func (m *delayModule) Type() ModuleType         { return TypeDelay }
func (m *delayModule) UsedParameters() []string { return clone.Clone(delayParams) }
func (m *delayModule) Reset()                   { m.fx.Reset() }
func (m *delayModule) Process(buf [][]float64)  { m.fx.Process(buf) }

func (m *delayModule) Prepare(spec core.StreamSpec) error {
	return m.fx.Prepare(spec.SampleRate)
}

func (m *delayModule) SetParams(s Snapshot) {
	m.fx.SetMix(s.Mix)
	m.fx.SetFeedback(s.Feedback)

	ms := s.DelayTime
	if s.DelaySync {
		bpm := effects.ResolveBPM(m.tempo, s.DelayBPM)
		ms = effects.DelayMsForTempo(bpm, s.DelayNoteDiv)
	}
	m.fx.SetTime(ms)
	m.fx.SetMode(s.DelayMode)
	m.fx.SetPan(s.DelayPan)

	// Retuning costs a tan per channel; skip it when unchanged.
	if s.DelayLowpass != m.fx.Lowpass() {
		m.fx.SetLowpass(s.DelayLowpass)
	}
	if s.DelayHighpass != m.fx.Highpass() {
		m.fx.SetHighpass(s.DelayHighpass)
	}
}

// reverbModule keeps both algorithms prepared so switching type on the
// audio goroutine never allocates.
type reverbModule struct {
	engines [2]reverb.Engine
	active  reverb.Type
	params  reverb.Params
	applied bool
}

func newReverbModule(_ Context) (Module, error) {
	m := &reverbModule{}
	for _, t := range reverb.Types {
		m.engines[t] = reverb.New(t)
	}
	return m, nil
}

func (m *reverbModule) Type() ModuleType         { return TypeReverb }
func (m *reverbModule) UsedParameters() []string { return clone.Clone(reverbParams) }
func (m *reverbModule) Process(buf [][]float64)  { m.engines[m.active].Process(buf) }

func (m *reverbModule) Prepare(spec core.StreamSpec) error {
	for _, e := range m.engines {
		if err := e.Prepare(spec.SampleRate); err != nil {
			return err
		}
	}
	return nil
}

func (m *reverbModule) Reset() {
	for _, e := range m.engines {
		e.Reset()
	}
}

func (m *reverbModule) SetParams(s Snapshot) {
	p := reverb.Params{
		Mix:        s.Mix,
		RoomSize:   s.RoomSize,
		DecayTime:  s.DecayTime,
		Damping:    s.Damping,
		ModRate:    s.ModRate,
		ModDepth:   s.ModDepth,
		PreDelayMs: s.PreDelay,
	}
	if !m.applied || p != m.params {
		for _, e := range m.engines {
			e.SetParams(p)
		}
		m.params = p
		m.applied = true
	}

	if s.ReverbType != m.active {
		m.engines[s.ReverbType].Reset()
		m.active = s.ReverbType
	}
}

type convolutionModule struct {
	fx      *reverb.Convolution
	params  reverb.ConvolutionParams
	applied bool
}

func newConvolutionModule(ctx Context) (Module, error) {
	opts := []reverb.ConvolutionOption{}
	if ctx.IRs != nil {
		opts = append(opts, reverb.WithIRLoader(ctx.IRs))
	}
	if ctx.Logger != nil {
		opts = append(opts, reverb.WithLogger(ctx.Logger))
	}
	return &convolutionModule{fx: reverb.NewConvolution(opts...)}, nil
}

func (m *convolutionModule) Type() ModuleType         { return TypeConvolution }
func (m *convolutionModule) UsedParameters() []string { return clone.Clone(convolutionParams) }
func (m *convolutionModule) Reset()                   { m.fx.Reset() }
func (m *convolutionModule) Process(buf [][]float64)  { m.fx.Process(buf) }
func (m *convolutionModule) Close() error             { return m.fx.Close() }
func (m *convolutionModule) Loading() bool            { return m.fx.Loading() }

func (m *convolutionModule) Prepare(spec core.StreamSpec) error {
	m.fx.SetMaxBlockSize(spec.BlockSize)
	return m.fx.Prepare(spec.SampleRate)
}

func (m *convolutionModule) SetParams(s Snapshot) {
	p := reverb.ConvolutionParams{
		Mix:        s.Mix,
		PreDelayMs: s.PreDelay,
		IRIndex:    s.ConvIRIndex,
		GainDB:     s.ConvIRGain,
		LowCutHz:   s.ConvLowCut,
		HighCutHz:  s.ConvHighCut,
	}
	if !m.applied || p != m.params {
		m.fx.SetParams(p)
		m.params = p
		m.applied = true
	}
}
