package effectchain

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	clone "github.com/huandu/go-clone/generic"

	"github.com/cwbudde/algo-fxrack/dsp/effects"
	"github.com/cwbudde/algo-fxrack/dsp/effects/reverb"
)

// Parameter names. A slot parameter's ID is "<slot ID>.<name>", for example
// "chain_0.slot_3.mix".
const (
	ParamEnabled          = "enabled"
	ParamMix              = "mix"
	ParamDelayTime        = "delayTime"
	ParamFeedback         = "feedback"
	ParamRoomSize         = "roomSize"
	ParamDecayTime        = "decayTime"
	ParamPreDelay         = "preDelay"
	ParamDamping          = "damping"
	ParamModRate          = "modRate"
	ParamModDepth         = "modDepth"
	ParamConvIRIndex      = "convIrIndex"
	ParamConvIRGain       = "convIrGain"
	ParamConvLowCut       = "convLowCut"
	ParamConvHighCut      = "convHighCut"
	ParamReverbType       = "reverbType"
	ParamDelaySyncEnabled = "delaySyncEnabled"
	ParamDelayBPM         = "delayBpm"
	ParamDelayNoteDiv     = "delayNoteDiv"
	ParamDelayMode        = "delayMode"
	ParamDelayPan         = "delayPan"
	ParamDelayLowpass     = "delayLowpass"
	ParamDelayHighpass    = "delayHighpass"

	ParamChainGain       = "gain"
	ParamChainMasterMix  = "masterMix"
	ParamParallelEnabled = "parallelEnabled"
)

// ParamKind describes how a parameter value is quantized.
type ParamKind int

const (
	KindFloat ParamKind = iota
	KindBool
	KindChoice
)

// ParamSpec describes one parameter.
type ParamSpec struct {
	Name    string
	Label   string
	Kind    ParamKind
	Min     float64
	Max     float64
	Default float64
	Choices []string
}

// Clamp forces v into the parameter's range. Bools snap to 0 or 1 and
// choices to the nearest index. NaN yields the default.
func (s ParamSpec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return s.Default
	}
	switch s.Kind {
	case KindBool:
		if v >= 0.5 {
			return 1
		}
		return 0
	case KindChoice:
		return math.Max(0, math.Min(math.Round(v), float64(len(s.Choices)-1)))
	default:
		return math.Max(s.Min, math.Min(v, s.Max))
	}
}

const (
	pEnabled = iota
	pMix
	pDelayTime
	pFeedback
	pRoomSize
	pDecayTime
	pPreDelay
	pDamping
	pModRate
	pModDepth
	pConvIRIndex
	pConvIRGain
	pConvLowCut
	pConvHighCut
	pReverbType
	pDelaySyncEnabled
	pDelayBPM
	pDelayNoteDiv
	pDelayMode
	pDelayPan
	pDelayLowpass
	pDelayHighpass
	numSlotParams
)

func boolSpec(name, label string, def bool) ParamSpec {
	d := 0.0
	if def {
		d = 1
	}
	return ParamSpec{Name: name, Label: label, Kind: KindBool, Max: 1, Default: d}
}

func choiceSpec(name, label string, def int, choices ...string) ParamSpec {
	return ParamSpec{Name: name, Label: label, Kind: KindChoice, Max: float64(len(choices) - 1), Default: float64(def), Choices: choices}
}

func noteChoices() []string {
	names := make([]string, effects.NumNoteDivisions)
	for i := range names {
		names[i] = effects.NoteDivision(i).String()
	}
	return names
}

func modeChoices() []string {
	names := make([]string, len(effects.DelayModes))
	for i, m := range effects.DelayModes {
		names[i] = m.String()
	}
	return names
}

var slotParamSpecs = [numSlotParams]ParamSpec{
	pEnabled:          boolSpec(ParamEnabled, "Enabled", true),
	pMix:              {Name: ParamMix, Label: "Mix", Max: 1, Default: 0.5},
	pDelayTime:        {Name: ParamDelayTime, Label: "Delay Time (ms)", Min: effects.MinDelayMs, Max: effects.MaxDelayMs, Default: 250},
	pFeedback:         {Name: ParamFeedback, Label: "Feedback", Max: effects.MaxDelayFeedback, Default: 0.3},
	pRoomSize:         {Name: ParamRoomSize, Label: "Room Size", Min: reverb.MinRoomSize, Max: reverb.MaxRoomSize, Default: 1},
	pDecayTime:        {Name: ParamDecayTime, Label: "Decay Time (s)", Min: reverb.MinDecay, Max: 10, Default: 5},
	pPreDelay:         {Name: ParamPreDelay, Label: "Pre Delay (ms)", Max: reverb.MaxPreDelayMs},
	pDamping:          {Name: ParamDamping, Label: "Damping (Hz)", Min: 500, Max: 10000, Default: 8000},
	pModRate:          {Name: ParamModRate, Label: "Mod Rate (Hz)", Min: reverb.MinModRate, Max: reverb.MaxModRate, Default: 0.3},
	pModDepth:         {Name: ParamModDepth, Label: "Mod Depth", Max: 1, Default: 0.15},
	pConvIRIndex:      {Name: ParamConvIRIndex, Label: "IR", Max: reverb.MaxIRIndex},
	pConvIRGain:       {Name: ParamConvIRGain, Label: "IR Gain (dB)", Min: reverb.MinConvGainDB, Max: reverb.MaxConvGainDB},
	pConvLowCut:       {Name: ParamConvLowCut, Label: "Low Cut (Hz)", Min: reverb.MinLowCutHz, Max: reverb.MaxLowCutHz, Default: 80},
	pConvHighCut:      {Name: ParamConvHighCut, Label: "High Cut (Hz)", Min: reverb.MinHighCutHz, Max: reverb.MaxHighCutHz, Default: 12000},
	pReverbType:       choiceSpec(ParamReverbType, "Type", 0, reverb.Hall.String(), reverb.Plate.String()),
	pDelaySyncEnabled: boolSpec(ParamDelaySyncEnabled, "Delay BPM Sync", false),
	pDelayBPM:         {Name: ParamDelayBPM, Label: "BPM Override", Min: effects.MinBPM, Max: effects.MaxBPM, Default: 120},
	pDelayNoteDiv:     choiceSpec(ParamDelayNoteDiv, "Delay Note Division", int(effects.NoteQuarter), noteChoices()...),
	pDelayMode:        choiceSpec(ParamDelayMode, "Delay Mode", 0, modeChoices()...),
	pDelayPan:         {Name: ParamDelayPan, Label: "Delay Pan", Min: -1, Max: 1},
	pDelayLowpass:     {Name: ParamDelayLowpass, Label: "Delay Lowpass (Hz)", Min: effects.MinDelayLowpass, Max: effects.MaxDelayLowpass, Default: effects.MaxDelayLowpass},
	pDelayHighpass:    {Name: ParamDelayHighpass, Label: "Delay Highpass (Hz)", Min: effects.MinDelayHighpass, Max: effects.MaxDelayHighpass, Default: effects.MinDelayHighpass},
}

var (
	chainGainSpec      = ParamSpec{Name: ParamChainGain, Label: "Gain (dB)", Min: -6, Max: 6}
	chainMasterMixSpec = ParamSpec{Name: ParamChainMasterMix, Label: "Master Mix", Max: 1, Default: 1}
	parallelSpec       = boolSpec(ParamParallelEnabled, "Parallel Enabled", false)
)

var slotParamIndex = func() map[string]int {
	m := make(map[string]int, numSlotParams)
	for i, s := range slotParamSpecs {
		m[s.Name] = i
	}
	return m
}()

// SlotParamSpecs returns a copy of the per-slot parameter table.
func SlotParamSpecs() []ParamSpec {
	return clone.Clone(slotParamSpecs[:])
}

// SlotParamSpec returns the spec for a slot parameter name.
func SlotParamSpec(name string) (ParamSpec, bool) {
	i, ok := slotParamIndex[name]
	if !ok {
		return ParamSpec{}, false
	}
	return clone.Clone(slotParamSpecs[i]), true
}

// SlotID returns the stable ID of the slot created at position slot of
// chain. The ID stays with the slot when it moves.
func SlotID(chain, slot int) string {
	return fmt.Sprintf("chain_%d.slot_%d", chain, slot)
}

// ParamID joins a slot ID and a parameter name.
func ParamID(slotID, name string) string {
	return slotID + "." + name
}

// ChainParamID returns the ID of a chain-level parameter.
func ChainParamID(chain int, name string) string {
	return fmt.Sprintf("chain_%d.%s", chain, name)
}

// splitParamID splits "chain_0.slot_3.mix" into ("chain_0.slot_3", "mix").
func splitParamID(id string) (prefix, name string, ok bool) {
	i := strings.LastIndexByte(id, '.')
	if i <= 0 || i == len(id)-1 {
		return "", "", false
	}
	return id[:i], id[i+1:], true
}

type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) Load() float64 { return math.Float64frombits(a.bits.Load()) }

func (a *atomicFloat) Store(v float64) { a.bits.Store(math.Float64bits(v)) }

// SlotParams holds one slot's parameter values. Writers and readers may be
// on different goroutines; every value is an independent atomic.
type SlotParams struct {
	values [numSlotParams]atomicFloat
}

func newSlotParams() *SlotParams {
	p := &SlotParams{}
	p.ResetDefaults()
	return p
}

// ResetDefaults restores every parameter to its default.
func (p *SlotParams) ResetDefaults() {
	for i := range p.values {
		p.values[i].Store(slotParamSpecs[i].Default)
	}
}

// Set clamps v and stores it under name.
func (p *SlotParams) Set(name string, v float64) error {
	i, ok := slotParamIndex[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	p.values[i].Store(slotParamSpecs[i].Clamp(v))
	return nil
}

// Get returns the value stored under name.
func (p *SlotParams) Get(name string) (float64, error) {
	i, ok := slotParamIndex[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
	}
	return p.values[i].Load(), nil
}

// Values returns every parameter keyed by name.
func (p *SlotParams) Values() map[string]float64 {
	out := make(map[string]float64, numSlotParams)
	for i := range p.values {
		out[slotParamSpecs[i].Name] = p.values[i].Load()
	}
	return out
}

// Snapshot is one block's view of a slot's parameters, read once at the
// start of the block.
type Snapshot struct {
	Enabled bool
	Mix     float64

	DelayTime     float64
	Feedback      float64
	DelaySync     bool
	DelayBPM      float64
	DelayNoteDiv  effects.NoteDivision
	DelayMode     effects.DelayMode
	DelayPan      float64
	DelayLowpass  float64
	DelayHighpass float64

	ReverbType reverb.Type
	RoomSize   float64
	DecayTime  float64
	PreDelay   float64
	Damping    float64
	ModRate    float64
	ModDepth   float64

	ConvIRIndex int
	ConvIRGain  float64
	ConvLowCut  float64
	ConvHighCut float64
}

// Snapshot loads every value once.
func (p *SlotParams) Snapshot() Snapshot {
	v := func(i int) float64 { return p.values[i].Load() }
	return Snapshot{
		Enabled:       v(pEnabled) >= 0.5,
		Mix:           v(pMix),
		DelayTime:     v(pDelayTime),
		Feedback:      v(pFeedback),
		DelaySync:     v(pDelaySyncEnabled) >= 0.5,
		DelayBPM:      v(pDelayBPM),
		DelayNoteDiv:  effects.NoteDivision(int(v(pDelayNoteDiv))),
		DelayMode:     effects.DelayModeFromIndex(int(v(pDelayMode))),
		DelayPan:      v(pDelayPan),
		DelayLowpass:  v(pDelayLowpass),
		DelayHighpass: v(pDelayHighpass),
		ReverbType:    reverb.TypeFromIndex(int(v(pReverbType))),
		RoomSize:      v(pRoomSize),
		DecayTime:     v(pDecayTime),
		PreDelay:      v(pPreDelay),
		Damping:       v(pDamping),
		ModRate:       v(pModRate),
		ModDepth:      v(pModDepth),
		ConvIRIndex:   int(math.Round(v(pConvIRIndex))),
		ConvIRGain:    v(pConvIRGain),
		ConvLowCut:    v(pConvLowCut),
		ConvHighCut:   v(pConvHighCut),
	}
}
