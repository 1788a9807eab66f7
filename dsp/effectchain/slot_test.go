package effectchain

import (
	"errors"
	"testing"
)

func TestSlotSetModulePreparesWithLastSpec(t *testing.T) {
	t.Parallel()

	s := NewSlot("chain_0.slot_0", quietLogger())
	before := &stubModule{typ: typeGain, gain: 2}
	if err := s.SetModule(before); err != nil {
		t.Fatal(err)
	}
	if got := before.prepareCalls.Load(); got != 0 {
		t.Fatalf("prepare calls before Prepare got %d want 0", got)
	}

	spec := testSpec(128)
	if err := s.Prepare(spec); err != nil {
		t.Fatal(err)
	}
	if got := before.prepareCalls.Load(); got != 1 {
		t.Fatalf("prepare calls after Prepare got %d want 1", got)
	}

	after := &stubModule{typ: typeGain, gain: 2}
	if err := s.SetModule(after); err != nil {
		t.Fatal(err)
	}
	if after.lastSpec != spec {
		t.Fatalf("new module prepared with %+v want %+v", after.lastSpec, spec)
	}
	if s.Module() != Module(after) {
		t.Fatal("slot does not expose the new module")
	}
}

func TestSlotReplacedModuleWaitsForDestroyPending(t *testing.T) {
	t.Parallel()

	s := NewSlot("chain_0.slot_0", quietLogger())
	first := &stubModule{typ: typeGain, gain: 2}
	_ = s.SetModule(first)
	_ = s.SetModule(&stubModule{typ: typeNegate, gain: -1})
	s.ClearModule()

	if got := s.PendingCount(); got != 2 {
		t.Fatalf("pending got %d want 2", got)
	}
	if first.closed.Load() {
		t.Fatal("replaced module closed before DestroyPending")
	}

	s.DestroyPending()
	if !first.closed.Load() {
		t.Fatal("replaced module not closed by DestroyPending")
	}
	if got := s.PendingCount(); got != 0 {
		t.Fatalf("pending after destroy got %d want 0", got)
	}
	if !s.IsEmpty() {
		t.Fatal("slot not empty after ClearModule")
	}
}

func TestSlotPrepareFailureKeepsModule(t *testing.T) {
	t.Parallel()

	s := NewSlot("chain_0.slot_0", quietLogger())
	if err := s.Prepare(testSpec(64)); err != nil {
		t.Fatal(err)
	}
	good := &stubModule{typ: typeGain, gain: 2}
	_ = s.SetModule(good)

	bad := &stubModule{typ: typeNegate, prepareErr: errors.New("boom")}
	if err := s.SetModule(bad); err == nil {
		t.Fatal("expected prepare error")
	}
	if s.Module() != Module(good) {
		t.Fatal("failed swap replaced the module")
	}
	if got := s.PendingCount(); got != 0 {
		t.Fatalf("pending got %d want 0", got)
	}
}

func TestSlotProcess(t *testing.T) {
	t.Parallel()

	t.Run("empty slot leaves audio untouched", func(t *testing.T) {
		t.Parallel()

		s := NewSlot("chain_0.slot_0", quietLogger())
		buf := constantBlock(2, 8, 0.5)
		s.Process(buf)
		if buf[0][0] != 0.5 || buf[1][7] != 0.5 {
			t.Fatalf("got %v want unchanged", buf)
		}
	})

	t.Run("enabled module processes", func(t *testing.T) {
		t.Parallel()

		s := NewSlot("chain_0.slot_0", quietLogger())
		m := &stubModule{typ: typeGain, gain: 2}
		_ = s.SetModule(m)
		buf := constantBlock(2, 8, 0.5)
		s.Process(buf)
		if buf[1][3] != 1 {
			t.Fatalf("got %v want 1", buf[1][3])
		}
	})

	t.Run("disabled module receives params but passes audio", func(t *testing.T) {
		t.Parallel()

		s := NewSlot("chain_0.slot_0", quietLogger())
		m := &stubModule{typ: typeGain, gain: 2}
		_ = s.SetModule(m)
		_ = s.Params().Set(ParamEnabled, 0)
		_ = s.Params().Set(ParamMix, 0.8)

		buf := constantBlock(1, 8, 0.5)
		s.Process(buf)
		if buf[0][0] != 0.5 {
			t.Fatalf("got %v want 0.5", buf[0][0])
		}
		if m.processCalls.Load() != 0 {
			t.Fatal("disabled module processed audio")
		}
		if m.setCalls.Load() != 1 || m.lastSnapshot.Mix != 0.8 {
			t.Fatalf("params not delivered: calls %d mix %v", m.setCalls.Load(), m.lastSnapshot.Mix)
		}
	})
}
