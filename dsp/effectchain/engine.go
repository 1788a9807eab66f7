package effectchain

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/buffer"
	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/effects"
)

const (
	// NumChains is the number of chains in the rack.
	NumChains = 2
	// NumSlots is the number of slots per chain.
	NumSlots = 8
)

type chainParams struct {
	gain atomicFloat // dB
	mix  atomicFloat
}

// Engine runs two chains of slots over a shared dry signal. Chain 0 is
// always active; chain 1 contributes only while parallel processing is
// enabled.
type Engine struct {
	mu       sync.Mutex
	logger   logrus.FieldLogger
	registry *Registry
	irs      IRProvider
	tempo    effects.TempoSource
	spec     core.StreamSpec

	prepared atomic.Bool

	// slots holds the current positions; the Slot values themselves never
	// change identity, only position. While prepared only the audio
	// goroutine writes it.
	slots    [NumChains][NumSlots]atomic.Pointer[Slot]
	all      [NumChains * NumSlots]*Slot
	byID     map[string]*Slot
	chains   [NumChains]chainParams
	parallel atomic.Bool

	moveChain     atomic.Int32
	moveFrom      atomic.Int32
	moveTo        atomic.Int32
	moveRequested atomic.Bool
	resetLayout   atomic.Bool
	uiRebuild     atomic.Bool

	dry   buffer.Block
	temp  buffer.Block
	chunk [2][]float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for control-side events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIRProvider sets the impulse response source for Convolution modules.
func WithIRProvider(p IRProvider) Option {
	return func(e *Engine) { e.irs = p }
}

// WithTempoSource sets the host tempo used by tempo-synced delays.
func WithTempoSource(t effects.TempoSource) Option {
	return func(e *Engine) { e.tempo = t }
}

// WithRegistry replaces the default module registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// New returns an unprepared engine with empty slots.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   logrus.StandardLogger(),
		registry: DefaultRegistry(),
		spec:     core.DefaultStreamSpec(),
		byID:     make(map[string]*Slot, NumChains*NumSlots),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	for c := range NumChains {
		for i := range NumSlots {
			s := NewSlot(SlotID(c, i), e.logger)
			e.slots[c][i].Store(s)
			e.all[c*NumSlots+i] = s
			e.byID[s.ID()] = s
		}
		e.chains[c].gain.Store(chainGainSpec.Default)
		e.chains[c].mix.Store(chainMasterMixSpec.Default)
	}
	return e
}

// Prepare sizes the scratch buffers and prepares every slot for spec. Call
// it while the audio goroutine is stopped.
func (e *Engine) Prepare(spec core.StreamSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("effectchain: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prepared.Store(false)
	e.spec = spec
	e.dry.Reserve(spec.Channels, spec.BlockSize)
	e.temp.Reserve(spec.Channels, spec.BlockSize)

	for _, s := range e.all {
		if err := s.Prepare(spec); err != nil {
			return fmt.Errorf("effectchain: prepare %s: %w", s.ID(), err)
		}
	}

	// Moves requested while stopped have already been applied.
	e.prepared.Store(true)

	e.logger.WithFields(logrus.Fields{
		"function":   "Engine.Prepare",
		"sampleRate": spec.SampleRate,
		"blockSize":  spec.BlockSize,
		"channels":   spec.Channels,
	}).Debug("engine prepared")
	return nil
}

// Prepared reports whether Process will run.
func (e *Engine) Prepared() bool { return e.prepared.Load() }

// Spec returns the stream spec of the last Prepare.
func (e *Engine) Spec() core.StreamSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spec
}

// Process runs the rack in place over buf. Before Prepare it does nothing.
// Blocks longer than the prepared block size are processed in chunks.
func (e *Engine) Process(buf [][]float64) {
	if !e.prepared.Load() {
		return
	}
	e.applyLayout()

	channels := min(len(buf), e.dry.NumChannels())
	n := core.Frames(buf[:channels])
	if channels == 0 || n == 0 {
		return
	}

	step := e.dry.Capacity()
	for off := 0; off < n; off += step {
		end := min(off+step, n)
		for ch := range channels {
			e.chunk[ch] = buf[ch][off:end]
		}
		e.processChunk(e.chunk[:channels])
	}
}

func (e *Engine) processChunk(out [][]float64) {
	channels := len(out)
	n := len(out[0])
	e.dry.Resize(n)
	e.temp.Resize(n)
	dry := e.dry.Channels()[:channels]
	temp := e.temp.Channels()[:channels]

	for ch := range channels {
		copy(dry[ch], out[ch])
		clear(out[ch])
	}

	active := NumChains
	if !e.parallel.Load() {
		active = 1
	}

	for c := range active {
		for ch := range channels {
			copy(temp[ch], dry[ch])
		}
		for i := range NumSlots {
			e.slots[c][i].Load().Process(temp)
		}

		mix := e.chains[c].mix.Load()
		g := core.DBToLinear(e.chains[c].gain.Load())
		for ch := range channels {
			vecmath.ScaleBlockInPlace(temp[ch], mix*g)
			vecmath.AddBlockInPlace(out[ch], temp[ch])
			if mix < 1 {
				vecmath.ScaleBlock(temp[ch], dry[ch], (1-mix)*g)
				vecmath.AddBlockInPlace(out[ch], temp[ch])
			}
		}
	}
}

// RequestSlotMove asks the audio goroutine to move the slot at from to
// position to at the next block boundary. Slots in between shift by one.
// While the engine is not prepared the move is applied immediately.
func (e *Engine) RequestSlotMove(chain, from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestMoveLocked(chain, from, to)
}

func (e *Engine) requestMoveLocked(chain, from, to int) error {
	log := e.logger.WithFields(logrus.Fields{
		"function": "Engine.RequestSlotMove",
		"chain":    chain,
		"from":     from,
		"to":       to,
	})
	if !validChain(chain) || !validSlot(from) || !validSlot(to) {
		log.Warn("move ignored: index out of range")
		return fmt.Errorf("%w: chain %d move %d -> %d", ErrInvalidIndex, chain, from, to)
	}
	if from == to {
		return nil
	}
	if e.MovePending() {
		log.Warn("move ignored: another move is pending")
		return ErrMovePending
	}

	e.moveChain.Store(int32(chain))
	e.moveFrom.Store(int32(from))
	e.moveTo.Store(int32(to))
	e.moveRequested.Store(true)

	if !e.prepared.Load() {
		e.applyLayout()
	}
	return nil
}

// MovePending reports whether a requested move or a restored slot order
// has not been applied yet.
func (e *Engine) MovePending() bool {
	return e.moveRequested.Load() || e.resetLayout.Load()
}

// applyLayout runs at block start on the audio goroutine, or on the
// control goroutine while the engine is not prepared. A pending canonical
// layout from Restore replaces any pending move.
func (e *Engine) applyLayout() {
	if e.resetLayout.Load() {
		for c := range NumChains {
			for i := range NumSlots {
				e.slots[c][i].Store(e.all[c*NumSlots+i])
			}
		}
		e.moveRequested.Store(false)
		e.uiRebuild.Store(true)
		e.resetLayout.Store(false)
		return
	}
	e.applyMove()
}

func (e *Engine) applyMove() {
	if !e.moveRequested.Load() {
		return
	}
	chain := int(e.moveChain.Load())
	from := int(e.moveFrom.Load())
	to := int(e.moveTo.Load())

	if validChain(chain) && validSlot(from) && validSlot(to) && from != to {
		row := &e.slots[chain]
		moved := row[from].Load()
		if from < to {
			for i := from; i < to; i++ {
				row[i].Store(row[i+1].Load())
			}
		} else {
			for i := from; i > to; i-- {
				row[i].Store(row[i-1].Load())
			}
		}
		row[to].Store(moved)
		e.uiRebuild.Store(true)
	}
	e.moveRequested.Store(false)
}

// AddModule installs a new module of type t in the first empty slot of
// chain, after resetting that slot's parameters to their defaults. It
// returns the slot position used.
func (e *Engine) AddModule(chain int, t ModuleType) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"function": "Engine.AddModule",
		"chain":    chain,
		"type":     t,
	})
	if !validChain(chain) {
		log.Warn("add ignored: chain out of range")
		return -1, fmt.Errorf("%w: chain %d", ErrInvalidIndex, chain)
	}

	// Positions may shift under a concurrent block; emptiness belongs to
	// the Slot, so keep the pointer that was checked.
	pos := -1
	var s *Slot
	for i := range NumSlots {
		if cand := e.slots[chain][i].Load(); cand.IsEmpty() {
			pos, s = i, cand
			break
		}
	}
	if pos < 0 {
		log.Warn("add ignored: chain is full")
		return -1, ErrChainFull
	}

	m, err := e.registry.Build(t, e.moduleContext())
	if err != nil {
		log.WithError(err).Warn("add failed")
		return -1, err
	}

	s.Params().ResetDefaults()
	if err := s.SetModule(m); err != nil {
		log.WithError(err).Warn("add failed")
		return -1, fmt.Errorf("effectchain: install %s in %s: %w", t, s.ID(), err)
	}
	e.uiRebuild.Store(true)
	return pos, nil
}

// RemoveModule empties the slot at position slot and compacts the chain by
// moving the emptied slot to the end.
func (e *Engine) RemoveModule(chain, slot int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"function": "Engine.RemoveModule",
		"chain":    chain,
		"slot":     slot,
	})
	s, err := e.slotLocked(chain, slot)
	if err != nil {
		log.Warn("remove ignored: index out of range")
		return err
	}
	if s.IsEmpty() {
		log.Warn("remove ignored: slot is empty")
		return ErrEmptySlot
	}

	s.ClearModule()
	e.uiRebuild.Store(true)
	if err := e.requestMoveLocked(chain, slot, NumSlots-1); err != nil {
		log.WithError(err).Warn("module removed without compaction")
	}
	return nil
}

// ChangeModuleType replaces the module at position slot with a new module
// of type t. The slot keeps its parameters.
func (e *Engine) ChangeModuleType(chain, slot int, t ModuleType) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"function": "Engine.ChangeModuleType",
		"chain":    chain,
		"slot":     slot,
		"type":     t,
	})
	s, err := e.slotLocked(chain, slot)
	if err != nil {
		log.Warn("change ignored: index out of range")
		return err
	}
	if s.IsEmpty() {
		log.Warn("change ignored: slot is empty")
		return ErrEmptySlot
	}

	m, err := e.registry.Build(t, e.moduleContext())
	if err != nil {
		log.WithError(err).Warn("change failed")
		return err
	}
	if err := s.SetModule(m); err != nil {
		log.WithError(err).Warn("change failed")
		return fmt.Errorf("effectchain: install %s in %s: %w", t, s.ID(), err)
	}
	e.uiRebuild.Store(true)
	return nil
}

// Slot returns the slot currently at position slot of chain.
func (e *Engine) Slot(chain, slot int) (*Slot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slotLocked(chain, slot)
}

func (e *Engine) slotLocked(chain, slot int) (*Slot, error) {
	if !validChain(chain) || !validSlot(slot) {
		return nil, fmt.Errorf("%w: chain %d slot %d", ErrInvalidIndex, chain, slot)
	}
	return e.slots[chain][slot].Load(), nil
}

// SlotByID returns the slot with the given stable ID.
func (e *Engine) SlotByID(id string) (*Slot, bool) {
	s, ok := e.byID[id]
	return s, ok
}

// SlotInfo describes one slot position.
type SlotInfo struct {
	Index          int
	ID             string
	Empty          bool
	Type           ModuleType
	UsedParameters []string
}

// Topology is a copy of the rack layout, ordered by position.
type Topology struct {
	Chains [NumChains][NumSlots]SlotInfo
}

// Types returns the module types of the non-empty slots of chain in order.
func (t Topology) Types(chain int) []ModuleType {
	if !validChain(chain) {
		return nil
	}
	var out []ModuleType
	for _, s := range t.Chains[chain] {
		if !s.Empty {
			out = append(out, s.Type)
		}
	}
	return out
}

// Topology returns the current layout.
func (e *Engine) Topology() Topology {
	e.mu.Lock()
	defer e.mu.Unlock()

	var t Topology
	for c := range NumChains {
		for i := range NumSlots {
			t.Chains[c][i] = describeSlot(i, e.slots[c][i].Load())
		}
	}
	return t
}

func describeSlot(index int, s *Slot) SlotInfo {
	info := SlotInfo{Index: index, ID: s.ID(), Empty: true}
	if m := s.Module(); m != nil {
		info.Empty = false
		info.Type = m.Type()
		info.UsedParameters = m.UsedParameters()
	}
	return info
}

// SetParameter sets a parameter by ID: "parallelEnabled",
// "chain_<j>.gain", "chain_<j>.masterMix" or "<slot ID>.<name>". Values are
// clamped to the parameter's range.
func (e *Engine) SetParameter(id string, v float64) error {
	if id == ParamParallelEnabled {
		e.parallel.Store(parallelSpec.Clamp(v) == 1)
		return nil
	}
	prefix, name, ok := splitParamID(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	if p, ok := e.chainParam(prefix, name); ok {
		p.store(v)
		return nil
	}
	s, ok := e.byID[prefix]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	if err := s.Params().Set(name, v); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	return nil
}

// Parameter returns the value of a parameter by ID.
func (e *Engine) Parameter(id string) (float64, error) {
	if id == ParamParallelEnabled {
		if e.parallel.Load() {
			return 1, nil
		}
		return 0, nil
	}
	prefix, name, ok := splitParamID(id)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	if p, ok := e.chainParam(prefix, name); ok {
		return p.value.Load(), nil
	}
	s, ok := e.byID[prefix]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	v, err := s.Params().Get(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownParameter, id)
	}
	return v, nil
}

// SetParallel enables or disables chain 1.
func (e *Engine) SetParallel(on bool) { e.parallel.Store(on) }

// Parallel reports whether chain 1 contributes to the output.
func (e *Engine) Parallel() bool { return e.parallel.Load() }

type boundParam struct {
	spec  ParamSpec
	value *atomicFloat
}

func (p boundParam) store(v float64) { p.value.Store(p.spec.Clamp(v)) }

func (e *Engine) chainParam(prefix, name string) (boundParam, bool) {
	for c := range NumChains {
		if prefix != fmt.Sprintf("chain_%d", c) {
			continue
		}
		switch name {
		case ParamChainGain:
			return boundParam{spec: chainGainSpec, value: &e.chains[c].gain}, true
		case ParamChainMasterMix:
			return boundParam{spec: chainMasterMixSpec, value: &e.chains[c].mix}, true
		}
	}
	return boundParam{}, false
}

type loader interface {
	Loading() bool
}

// Loading reports whether any installed module is still loading data in
// the background, such as a convolution IR.
func (e *Engine) Loading() bool {
	for _, s := range e.all {
		if l, ok := s.Module().(loader); ok && l.Loading() {
			return true
		}
	}
	return false
}

// ConsumeUIRebuild reports whether the topology changed since the last
// call and clears the flag.
func (e *Engine) ConsumeUIRebuild() bool {
	return e.uiRebuild.Swap(false)
}

// Release stops processing and frees modules replaced since the last
// Release. Call it when the stream stops.
func (e *Engine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prepared.Store(false)
	e.applyLayout()
	for _, s := range e.all {
		s.DestroyPending()
	}
}

// Close releases the engine and every installed module.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prepared.Store(false)
	for _, s := range e.all {
		s.ClearModule()
		s.DestroyPending()
	}
	return nil
}

func (e *Engine) moduleContext() Context {
	return Context{Spec: e.spec, IRs: e.irs, Tempo: e.tempo, Logger: e.logger}
}

func validChain(c int) bool { return c >= 0 && c < NumChains }

func validSlot(s int) bool { return s >= 0 && s < NumSlots }
