package effectchain

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

const (
	typeGain   ModuleType = "Gain"
	typeNegate ModuleType = "Negate"
	typeA      ModuleType = "A"
	typeB      ModuleType = "B"
	typeC      ModuleType = "C"
)

// stubModule multiplies every sample by gain and counts calls.
type stubModule struct {
	typ        ModuleType
	gain       float64
	prepareErr error

	prepareCalls atomic.Int32
	processCalls atomic.Int64
	setCalls     atomic.Int64
	closed       atomic.Bool
	misuse       atomic.Int64 // Process before Prepare or after Close
	lastSpec     core.StreamSpec
	lastSnapshot Snapshot
}

func (s *stubModule) Type() ModuleType { return s.typ }

func (s *stubModule) UsedParameters() []string { return []string{ParamMix} }

func (s *stubModule) Prepare(spec core.StreamSpec) error {
	s.prepareCalls.Add(1)
	if s.prepareErr != nil {
		return s.prepareErr
	}
	s.lastSpec = spec
	return nil
}

func (s *stubModule) SetParams(snap Snapshot) {
	s.setCalls.Add(1)
	s.lastSnapshot = snap
}

func (s *stubModule) Process(buf [][]float64) {
	s.processCalls.Add(1)
	if s.prepareCalls.Load() == 0 || s.closed.Load() {
		s.misuse.Add(1)
	}
	for _, ch := range buf {
		for i := range ch {
			ch[i] *= s.gain
		}
	}
}

func (s *stubModule) Reset() {}

func (s *stubModule) Close() error {
	s.closed.Store(true)
	return nil
}

func stubFactory(t ModuleType, gain float64) Factory {
	return func(_ Context) (Module, error) {
		return &stubModule{typ: t, gain: gain}, nil
	}
}

// trackingRegistry builds stub modules and remembers every one it built.
type trackingRegistry struct {
	*Registry

	mu      sync.Mutex
	created []*stubModule
}

func newTrackingRegistry() *trackingRegistry {
	r := &trackingRegistry{Registry: NewRegistry()}
	for _, def := range []struct {
		typ  ModuleType
		gain float64
	}{{typeGain, 2}, {typeNegate, -1}, {typeA, 1}} {
		r.MustRegister(def.typ, func(_ Context) (Module, error) {
			m := &stubModule{typ: def.typ, gain: def.gain}
			r.mu.Lock()
			r.created = append(r.created, m)
			r.mu.Unlock()
			return m, nil
		})
	}
	return r
}

func (r *trackingRegistry) modules() []*stubModule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*stubModule(nil), r.created...)
}

// requireUniqueLayout fails unless every chain holds each of its own slots
// exactly once.
func requireUniqueLayout(t *testing.T, e *Engine) {
	t.Helper()

	for c := range NumChains {
		seen := make(map[string]bool, NumSlots)
		for i := range NumSlots {
			s, err := e.Slot(c, i)
			if err != nil {
				t.Fatal(err)
			}
			if seen[s.ID()] {
				t.Fatalf("chain %d: slot %s appears twice", c, s.ID())
			}
			seen[s.ID()] = true
		}
		for i := range NumSlots {
			if !seen[SlotID(c, i)] {
				t.Fatalf("chain %d: slot %s is unreachable", c, SlotID(c, i))
			}
		}
	}
}

func failingFactory(_ Context) (Module, error) {
	return nil, errors.New("factory failed")
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(typeGain, stubFactory(typeGain, 2))
	r.MustRegister(typeNegate, stubFactory(typeNegate, -1))
	r.MustRegister(typeA, stubFactory(typeA, 1))
	r.MustRegister(typeB, stubFactory(typeB, 1))
	r.MustRegister(typeC, stubFactory(typeC, 1))
	return r
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestEngine(opts ...Option) *Engine {
	base := []Option{WithRegistry(testRegistry()), WithLogger(quietLogger())}
	return New(append(base, opts...)...)
}

func testSpec(blockSize int) core.StreamSpec {
	return core.NewStreamSpec(core.WithSampleRate(48000), core.WithBlockSize(blockSize), core.WithChannels(2))
}

func constantBlock(channels, frames int, v float64) [][]float64 {
	buf := make([][]float64, channels)
	for ch := range buf {
		buf[ch] = make([]float64, frames)
		for i := range buf[ch] {
			buf[ch][i] = v
		}
	}
	return buf
}

func types(e *Engine, chain int) []ModuleType {
	return e.Topology().Types(chain)
}

func equalTypes(a, b []ModuleType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
