package effectchain

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

type moduleRef struct {
	module Module
}

// Slot owns at most one module and publishes it to the audio goroutine
// through an atomic pointer. Replaced modules wait in a pending list until
// DestroyPending.
type Slot struct {
	id     string
	params *SlotParams
	logger logrus.FieldLogger

	active atomic.Pointer[moduleRef]

	mu      sync.Mutex
	owned   Module
	pending []Module
	spec    core.StreamSpec
	hasSpec bool
}

// NewSlot returns an empty slot with default parameters.
func NewSlot(id string, logger logrus.FieldLogger) *Slot {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Slot{id: id, params: newSlotParams(), logger: logger}
}

// ID returns the slot's stable identifier.
func (s *Slot) ID() string { return s.id }

// Params returns the slot's parameter store.
func (s *Slot) Params() *SlotParams { return s.params }

// Prepare records spec and prepares the current module. Call it only while
// the audio goroutine is stopped.
func (s *Slot) Prepare(spec core.StreamSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spec = spec
	s.hasSpec = true
	if s.owned != nil {
		return s.owned.Prepare(spec)
	}
	return nil
}

// SetModule prepares m with the last known spec and publishes it. The
// previous module moves to the pending list. A nil m empties the slot. If
// Prepare fails the slot is left unchanged.
func (s *Slot) SetModule(m Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ref *moduleRef
	if m != nil {
		if s.hasSpec {
			if err := m.Prepare(s.spec); err != nil {
				return err
			}
		}
		ref = &moduleRef{module: m}
	}

	if s.owned != nil {
		s.pending = append(s.pending, s.owned)
	}
	s.owned = m
	s.active.Store(ref)

	s.logger.WithFields(logrus.Fields{
		"function": "Slot.SetModule",
		"slot":     s.id,
		"type":     typeOf(m),
	}).Debug("module installed")
	return nil
}

// ClearModule empties the slot.
func (s *Slot) ClearModule() {
	_ = s.SetModule(nil)
}

// Module returns the module currently visible to the audio goroutine.
func (s *Slot) Module() Module {
	if ref := s.active.Load(); ref != nil {
		return ref.module
	}
	return nil
}

// IsEmpty reports whether the slot holds no module.
func (s *Slot) IsEmpty() bool { return s.active.Load() == nil }

// PendingCount returns the number of replaced modules awaiting release.
func (s *Slot) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// DestroyPending releases replaced modules. Call it only at a point where
// the audio goroutine can no longer hold them, such as stream stop.
func (s *Slot) DestroyPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, m := range pending {
		closeModule(s.logger, s.id, m)
	}
}

// Process applies this block's parameters and, when enabled, runs the
// module in place.
func (s *Slot) Process(buf [][]float64) {
	ref := s.active.Load()
	if ref == nil {
		return
	}
	snap := s.params.Snapshot()
	ref.module.SetParams(snap)
	if snap.Enabled {
		ref.module.Process(buf)
	}
}

func closeModule(logger logrus.FieldLogger, slotID string, m Module) {
	c, ok := m.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.WithFields(logrus.Fields{
			"function": "Slot.DestroyPending",
			"slot":     slotID,
			"type":     m.Type(),
		}).WithError(err).Warn("module close failed")
	}
}

func typeOf(m Module) ModuleType {
	if m == nil {
		return ""
	}
	return m.Type()
}
