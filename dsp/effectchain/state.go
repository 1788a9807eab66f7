package effectchain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// State is the persisted form of the rack. Only slots holding a module are
// listed; slot parameters are keyed by name.
type State struct {
	Modules         ModulesState `json:"modules"`
	Chains          []ChainState `json:"chains"`
	ParallelEnabled bool         `json:"parallelEnabled"`
}

// ModulesState lists the occupied slots per chain.
type ModulesState struct {
	Chains []ChainModules `json:"chains"`
}

// ChainModules is one chain's occupied slots.
type ChainModules struct {
	Index int         `json:"index"`
	Slots []SlotState `json:"slots"`
}

// SlotState is one occupied slot. ID is informational; restore places
// modules and parameters by Index.
type SlotState struct {
	Index  int                `json:"index"`
	ID     string             `json:"id,omitempty"`
	Type   ModuleType         `json:"type"`
	Params map[string]float64 `json:"params,omitempty"`
}

// ChainState holds the chain-level parameters.
type ChainState struct {
	Gain      float64 `json:"gain"`
	MasterMix float64 `json:"masterMix"`
}

// State captures the current rack.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		Modules:         ModulesState{Chains: make([]ChainModules, NumChains)},
		Chains:          make([]ChainState, NumChains),
		ParallelEnabled: e.parallel.Load(),
	}
	for c := range NumChains {
		cm := ChainModules{Index: c, Slots: []SlotState{}}
		for i := range NumSlots {
			s := e.slots[c][i].Load()
			m := s.Module()
			if m == nil {
				continue
			}
			cm.Slots = append(cm.Slots, SlotState{
				Index:  i,
				ID:     s.ID(),
				Type:   m.Type(),
				Params: s.Params().Values(),
			})
		}
		st.Modules.Chains[c] = cm
		st.Chains[c] = ChainState{
			Gain:      e.chains[c].gain.Load(),
			MasterMix: e.chains[c].mix.Load(),
		}
	}
	return st
}

// MarshalState encodes the current rack as JSON.
func (e *Engine) MarshalState() ([]byte, error) {
	return json.MarshalIndent(e.State(), "", "  ")
}

// UnmarshalState decodes data and restores it.
func (e *Engine) UnmarshalState(data []byte) error {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("effectchain: decode state: %w", err)
	}
	return e.Restore(st)
}

type plannedSlot struct {
	chain, index int
	typ          ModuleType
	module       Module
	params       map[string]float64
}

// Restore replaces the rack with st. Every slot is cleared, slots return to
// their original order, modules are rebuilt at their saved positions and
// parameters are reapplied. Nothing changes if st names an unknown module
// type or an invalid position. Unknown parameter names are skipped.
//
// While the engine is prepared the original order is handed to the audio
// goroutine, which installs it at the next block and drops any pending
// move; MovePending reports true until then.
func (e *Engine) Restore(st State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithField("function", "Engine.Restore")

	var plan []plannedSlot
	seen := make(map[[2]int]bool)
	for _, cm := range st.Modules.Chains {
		if !validChain(cm.Index) {
			return fmt.Errorf("%w: chain %d", ErrInvalidIndex, cm.Index)
		}
		for _, ss := range cm.Slots {
			if !validSlot(ss.Index) {
				return fmt.Errorf("%w: chain %d slot %d", ErrInvalidIndex, cm.Index, ss.Index)
			}
			key := [2]int{cm.Index, ss.Index}
			if seen[key] {
				return fmt.Errorf("%w: chain %d slot %d listed twice", ErrInvalidIndex, cm.Index, ss.Index)
			}
			seen[key] = true
			if e.registry.Lookup(ss.Type) == nil {
				return fmt.Errorf("%w: %q", ErrUnknownModule, ss.Type)
			}
			plan = append(plan, plannedSlot{chain: cm.Index, index: ss.Index, typ: ss.Type, params: ss.Params})
		}
	}

	ctx := e.moduleContext()
	for i := range plan {
		m, err := e.registry.Build(plan[i].typ, ctx)
		if err != nil {
			closeAll(log, plan[:i])
			return err
		}
		plan[i].module = m
	}

	for _, s := range e.all {
		s.ClearModule()
		s.Params().ResetDefaults()
	}
	e.resetLayout.Store(true)
	if !e.prepared.Load() {
		e.applyLayout()
	}

	for _, p := range plan {
		s := e.all[p.chain*NumSlots+p.index]
		for _, name := range sortedKeys(p.params) {
			if err := s.Params().Set(name, p.params[name]); err != nil {
				log.WithFields(logrus.Fields{"slot": s.ID(), "param": name}).Warn("unknown parameter skipped")
			}
		}
		if err := s.SetModule(p.module); err != nil {
			return fmt.Errorf("effectchain: restore %s: %w", s.ID(), err)
		}
	}

	for c := range NumChains {
		cs := ChainState{Gain: chainGainSpec.Default, MasterMix: chainMasterMixSpec.Default}
		if c < len(st.Chains) {
			cs = st.Chains[c]
		}
		e.chains[c].gain.Store(chainGainSpec.Clamp(cs.Gain))
		e.chains[c].mix.Store(chainMasterMixSpec.Clamp(cs.MasterMix))
	}
	e.parallel.Store(st.ParallelEnabled)
	e.uiRebuild.Store(true)

	log.WithFields(logrus.Fields{
		"modules":  len(plan),
		"parallel": st.ParallelEnabled,
	}).Info("state restored")
	return nil
}

func closeAll(log logrus.FieldLogger, plan []plannedSlot) {
	for _, p := range plan {
		if p.module != nil {
			closeModule(log, SlotID(p.chain, p.index), p.module)
		}
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
