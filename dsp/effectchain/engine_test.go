package effectchain

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/internal/testutil"
)

func TestProcessBeforePrepareIsNoop(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, err := e.AddModule(0, typeGain); err != nil {
		t.Fatal(err)
	}
	buf := constantBlock(2, 16, 0.25)
	e.Process(buf)
	if buf[0][0] != 0.25 || buf[1][15] != 0.25 {
		t.Fatalf("unprepared engine changed audio: %v", buf[0][:4])
	}
}

func TestPrepareRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	bad := []core.StreamSpec{
		{SampleRate: 0, BlockSize: 64, Channels: 2},
		{SampleRate: 48000, BlockSize: 0, Channels: 2},
		{SampleRate: 48000, BlockSize: 64, Channels: 3},
	}
	for _, spec := range bad {
		if err := e.Prepare(spec); !errors.Is(err, core.ErrInvalidStreamSpec) {
			t.Fatalf("Prepare(%+v) error = %v, want ErrInvalidStreamSpec", spec, err)
		}
	}
	if e.Prepared() {
		t.Fatal("engine reports prepared after failed Prepare")
	}
}

func TestEmptyRackPassesThrough(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if err := e.Prepare(testSpec(64)); err != nil {
		t.Fatal(err)
	}
	in := testutil.DeterministicNoise(3, 0.5, 64)
	buf := [][]float64{append([]float64(nil), in...), append([]float64(nil), in...)}
	e.Process(buf)
	testutil.RequireSliceNearlyEqual(t, buf[0], in, 0)
	testutil.RequireSliceNearlyEqual(t, buf[1], in, 0)
}

func TestChainMixAndGain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		masterMix float64
		gainDB    float64
		want      float64
	}{
		{"full wet", 1, 0, 2},
		{"half mix", 0.5, 0, 1.5},
		{"dry only", 0, 0, 1},
		{"plus 6 dB", 1, 6, 2 * core.DBToLinear(6)},
		{"gain clamped", 1, -20, 2 * core.DBToLinear(-6)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine()
			if _, err := e.AddModule(0, typeGain); err != nil {
				t.Fatal(err)
			}
			if err := e.Prepare(testSpec(32)); err != nil {
				t.Fatal(err)
			}
			if err := e.SetParameter(ChainParamID(0, ParamChainMasterMix), tc.masterMix); err != nil {
				t.Fatal(err)
			}
			if err := e.SetParameter(ChainParamID(0, ParamChainGain), tc.gainDB); err != nil {
				t.Fatal(err)
			}

			buf := constantBlock(2, 32, 1)
			e.Process(buf)
			for ch := range buf {
				if math.Abs(buf[ch][10]-tc.want) > 1e-12 {
					t.Fatalf("ch %d got %v want %v", ch, buf[ch][10], tc.want)
				}
			}
		})
	}
}

func TestParallelSelectsActiveChains(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, err := e.AddModule(1, typeGain); err != nil {
		t.Fatal(err)
	}
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}

	buf := constantBlock(2, 16, 1)
	e.Process(buf)
	if buf[0][0] != 1 {
		t.Fatalf("serial got %v want 1", buf[0][0])
	}

	if err := e.SetParameter(ParamParallelEnabled, 1); err != nil {
		t.Fatal(err)
	}
	if !e.Parallel() {
		t.Fatal("parallel flag not set")
	}
	buf = constantBlock(2, 16, 1)
	e.Process(buf)
	if buf[0][0] != 3 {
		t.Fatalf("parallel got %v want 3 (dry chain 0 plus doubled chain 1)", buf[0][0])
	}
}

func TestDisabledSlotPassesThrough(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	pos, err := e.AddModule(0, typeGain)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := e.Slot(0, pos)
	if err := e.SetParameter(ParamID(s.ID(), ParamEnabled), 0); err != nil {
		t.Fatal(err)
	}
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}
	buf := constantBlock(2, 16, 0.5)
	e.Process(buf)
	if buf[1][5] != 0.5 {
		t.Fatalf("got %v want 0.5", buf[1][5])
	}
}

func TestSlotsRunInOrder(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	for _, typ := range []ModuleType{typeGain, typeNegate, typeGain} {
		if _, err := e.AddModule(0, typ); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}
	buf := constantBlock(2, 16, 1)
	e.Process(buf)
	if buf[0][0] != -4 {
		t.Fatalf("got %v want -4", buf[0][0])
	}
}

func TestProcessSplitsLongBlocks(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, err := e.AddModule(0, typeGain); err != nil {
		t.Fatal(err)
	}
	if err := e.Prepare(testSpec(64)); err != nil {
		t.Fatal(err)
	}
	buf := constantBlock(2, 200, 1)
	e.Process(buf)
	for ch := range buf {
		for i, v := range buf[ch] {
			if v != 2 {
				t.Fatalf("ch %d sample %d got %v want 2", ch, i, v)
			}
		}
	}
}

func TestMonoBufferOnStereoEngine(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	if _, err := e.AddModule(0, typeGain); err != nil {
		t.Fatal(err)
	}
	if err := e.Prepare(testSpec(32)); err != nil {
		t.Fatal(err)
	}
	buf := constantBlock(1, 32, 1)
	e.Process(buf)
	if buf[0][31] != 2 {
		t.Fatalf("got %v want 2", buf[0][31])
	}
}

func TestAddModuleUsesFirstEmptySlot(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	s0, _ := e.Slot(0, 0)
	_ = s0.Params().Set(ParamMix, 0.9)

	for i := range NumSlots {
		pos, err := e.AddModule(0, typeA)
		if err != nil {
			t.Fatal(err)
		}
		if pos != i {
			t.Fatalf("AddModule #%d got position %d", i, pos)
		}
	}
	if got, _ := s0.Params().Get(ParamMix); got != 0.5 {
		t.Fatalf("slot params not reset on add: mix %v", got)
	}
	if _, err := e.AddModule(0, typeA); !errors.Is(err, ErrChainFull) {
		t.Fatalf("ninth add error = %v, want ErrChainFull", err)
	}
	if !e.ConsumeUIRebuild() {
		t.Fatal("add did not raise the UI rebuild flag")
	}
	if e.ConsumeUIRebuild() {
		t.Fatal("UI rebuild flag not cleared")
	}
}

func TestRemoveModuleCompacts(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	for _, typ := range []ModuleType{typeA, typeB, typeC} {
		if _, err := e.AddModule(0, typ); err != nil {
			t.Fatal(err)
		}
	}

	if err := e.RemoveModule(0, 0); err != nil {
		t.Fatal(err)
	}
	if got := types(e, 0); !equalTypes(got, []ModuleType{typeB, typeC}) {
		t.Fatalf("types got %v want [B C]", got)
	}
	last, _ := e.Slot(0, NumSlots-1)
	if last.ID() != SlotID(0, 0) {
		t.Fatalf("removed slot at end got %s want %s", last.ID(), SlotID(0, 0))
	}
	first, _ := e.Slot(0, 0)
	if first.ID() != SlotID(0, 1) {
		t.Fatalf("first slot got %s want %s", first.ID(), SlotID(0, 1))
	}

	pos, err := e.AddModule(0, typeA)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 2 {
		t.Fatalf("add after remove got position %d want 2", pos)
	}
}

func TestRequestSlotMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
		want     []ModuleType
	}{
		{"forward", 0, 2, []ModuleType{typeB, typeC, typeA}},
		{"backward", 2, 0, []ModuleType{typeC, typeA, typeB}},
		{"same", 1, 1, []ModuleType{typeA, typeB, typeC}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine()
			for _, typ := range []ModuleType{typeA, typeB, typeC} {
				_, _ = e.AddModule(0, typ)
			}
			if err := e.RequestSlotMove(0, tc.from, tc.to); err != nil {
				t.Fatal(err)
			}
			if got := types(e, 0); !equalTypes(got, tc.want) {
				t.Fatalf("types got %v want %v", got, tc.want)
			}
		})
	}
}

func TestMoveCarriesSlotParams(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(0, typeA)
	_, _ = e.AddModule(0, typeB)
	if err := e.SetParameter("chain_0.slot_0.mix", 0.9); err != nil {
		t.Fatal(err)
	}
	if err := e.RequestSlotMove(0, 0, 1); err != nil {
		t.Fatal(err)
	}

	s, _ := e.Slot(0, 1)
	if s.ID() != "chain_0.slot_0" {
		t.Fatalf("moved slot ID got %s", s.ID())
	}
	if got, _ := s.Params().Get(ParamMix); got != 0.9 {
		t.Fatalf("moved slot mix got %v want 0.9", got)
	}
	if got, _ := e.Parameter("chain_0.slot_0.mix"); got != 0.9 {
		t.Fatalf("Parameter by ID got %v want 0.9", got)
	}
}

func TestMoveAppliedAtBlockBoundary(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(0, typeA)
	_, _ = e.AddModule(0, typeB)
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}
	e.ConsumeUIRebuild()

	if err := e.RequestSlotMove(0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if !e.MovePending() {
		t.Fatal("move applied before Process")
	}
	if err := e.RequestSlotMove(0, 1, 0); !errors.Is(err, ErrMovePending) {
		t.Fatalf("second move error = %v, want ErrMovePending", err)
	}
	if got := types(e, 0); !equalTypes(got, []ModuleType{typeA, typeB}) {
		t.Fatalf("types before Process got %v", got)
	}

	e.Process(constantBlock(2, 16, 0))
	if e.MovePending() {
		t.Fatal("move still pending after Process")
	}
	if got := types(e, 0); !equalTypes(got, []ModuleType{typeB, typeA}) {
		t.Fatalf("types after Process got %v want [B A]", got)
	}
	if !e.ConsumeUIRebuild() {
		t.Fatal("applied move did not raise the UI rebuild flag")
	}
}

func TestStructuralMisuse(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(0, typeA)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"remove empty", e.RemoveModule(0, 5), ErrEmptySlot},
		{"change empty", e.ChangeModuleType(1, 0, typeB), ErrEmptySlot},
		{"remove bad chain", e.RemoveModule(2, 0), ErrInvalidIndex},
		{"change bad slot", e.ChangeModuleType(0, 8, typeB), ErrInvalidIndex},
		{"move bad slot", e.RequestSlotMove(0, -1, 3), ErrInvalidIndex},
		{"change unknown type", e.ChangeModuleType(0, 0, "Flanger"), ErrUnknownModule},
	}
	for _, tc := range tests {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, tc.err, tc.want)
		}
	}
	if _, err := e.AddModule(-1, typeA); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("add bad chain error = %v, want ErrInvalidIndex", err)
	}
	if _, err := e.AddModule(0, "Flanger"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("add unknown type error = %v, want ErrUnknownModule", err)
	}
	if got := types(e, 0); !equalTypes(got, []ModuleType{typeA}) {
		t.Fatalf("misuse changed topology: %v", got)
	}
}

func TestChangeModuleTypeKeepsParams(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(0, typeGain)
	_ = e.SetParameter("chain_0.slot_0.mix", 0.7)
	e.ConsumeUIRebuild()

	if err := e.ChangeModuleType(0, 0, typeNegate); err != nil {
		t.Fatal(err)
	}
	if got := types(e, 0); !equalTypes(got, []ModuleType{typeNegate}) {
		t.Fatalf("types got %v", got)
	}
	if got, _ := e.Parameter("chain_0.slot_0.mix"); got != 0.7 {
		t.Fatalf("mix got %v want 0.7", got)
	}
	if !e.ConsumeUIRebuild() {
		t.Fatal("change did not raise the UI rebuild flag")
	}
}

func TestParametersByID(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	tests := []struct {
		id   string
		in   float64
		want float64
	}{
		{"chain_1.gain", 3, 3},
		{"chain_1.gain", 12, 6},
		{"chain_0.masterMix", 0.4, 0.4},
		{"chain_1.slot_7.decayTime", 7, 7},
		{"chain_0.slot_2.feedback", 2, 0.95},
		{ParamParallelEnabled, 1, 1},
	}
	for _, tc := range tests {
		if err := e.SetParameter(tc.id, tc.in); err != nil {
			t.Fatalf("SetParameter(%s): %v", tc.id, err)
		}
		got, err := e.Parameter(tc.id)
		if err != nil {
			t.Fatalf("Parameter(%s): %v", tc.id, err)
		}
		if got != tc.want {
			t.Fatalf("%s got %v want %v", tc.id, got, tc.want)
		}
	}

	for _, id := range []string{"chain_2.gain", "chain_0.slot_8.mix", "chain_0.slot_0.wobble", "nonsense"} {
		if err := e.SetParameter(id, 1); !errors.Is(err, ErrUnknownParameter) {
			t.Fatalf("SetParameter(%s) error = %v, want ErrUnknownParameter", id, err)
		}
		if _, err := e.Parameter(id); !errors.Is(err, ErrUnknownParameter) {
			t.Fatalf("Parameter(%s) error = %v, want ErrUnknownParameter", id, err)
		}
	}
}

func TestTopologyReportsModules(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(1, typeGain)

	top := e.Topology()
	info := top.Chains[1][0]
	if info.Empty || info.Type != typeGain || info.ID != "chain_1.slot_0" {
		t.Fatalf("slot info got %+v", info)
	}
	if len(info.UsedParameters) != 1 || info.UsedParameters[0] != ParamMix {
		t.Fatalf("used parameters got %v", info.UsedParameters)
	}
	if !top.Chains[0][0].Empty {
		t.Fatal("chain 0 slot 0 should be empty")
	}
}

func TestReleaseDestroysReplacedModules(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	_, _ = e.AddModule(0, typeGain)
	s, _ := e.Slot(0, 0)
	old := s.Module().(*stubModule)
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}

	if err := e.ChangeModuleType(0, 0, typeNegate); err != nil {
		t.Fatal(err)
	}
	if old.closed.Load() {
		t.Fatal("replaced module closed while stream runs")
	}
	e.Release()
	if !old.closed.Load() {
		t.Fatal("Release did not close the replaced module")
	}
	if e.Prepared() {
		t.Fatal("engine still prepared after Release")
	}

	current := s.Module().(*stubModule)
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if !current.closed.Load() {
		t.Fatal("Close did not close the installed module")
	}
}

func TestConcurrentHotSwap(t *testing.T) {
	t.Parallel()

	const calls = 100000

	reg := newTrackingRegistry()
	e := New(WithRegistry(reg.Registry), WithLogger(quietLogger()))
	if err := e.Prepare(testSpec(32)); err != nil {
		t.Fatal(err)
	}
	_ = e.SetParameter(ParamParallelEnabled, 1)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		swaps := []ModuleType{typeGain, typeNegate, typeA}
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			chain := i % NumChains
			typ := swaps[i%len(swaps)]
			switch i % 4 {
			case 0, 1:
				_, _ = e.AddModule(chain, typ)
			case 2:
				_ = e.ChangeModuleType(chain, 0, typ)
			default:
				_ = e.RemoveModule(chain, 0)
				_ = e.RequestSlotMove(chain, 1, 3)
			}
			_ = e.SetParameter(ChainParamID(chain, ParamChainMasterMix), float64(i%3)/2)
		}
	}()

	buf := constantBlock(2, 32, 0.5)
	for i := range calls {
		for ch := range buf {
			for s := range buf[ch] {
				buf[ch][s] = 0.5
			}
		}
		e.Process(buf)
		for ch := range buf {
			v := buf[ch][i%32]
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1024 {
				close(done)
				wg.Wait()
				t.Fatalf("call %d ch %d: sample %v out of range", i, ch, v)
			}
		}
	}
	close(done)
	wg.Wait()

	e.Release()
	requireUniqueLayout(t, e)

	installed := make(map[*stubModule]bool)
	for c := range NumChains {
		for i := range NumSlots {
			s, _ := e.Slot(c, i)
			if s.PendingCount() != 0 {
				t.Fatalf("slot %s still has pending modules", s.ID())
			}
			if m, ok := s.Module().(*stubModule); ok {
				installed[m] = true
			}
		}
	}

	created := reg.modules()
	if len(created) == 0 {
		t.Fatal("no modules were built")
	}
	for i, m := range created {
		if n := m.misuse.Load(); n != 0 {
			t.Fatalf("module %d (%s) processed %d blocks unprepared or closed", i, m.typ, n)
		}
		if installed[m] == m.closed.Load() {
			t.Fatalf("module %d (%s): installed %v closed %v, want exactly one", i, m.typ, installed[m], m.closed.Load())
		}
	}
}

func TestConcurrentAddRemoveKeepsSlotsApart(t *testing.T) {
	t.Parallel()

	const rounds = 20000

	e := newTestEngine()
	if err := e.Prepare(testSpec(16)); err != nil {
		t.Fatal(err)
	}

	var occupied int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range rounds {
			if i%3 == 2 {
				if err := e.RemoveModule(0, i%NumSlots); err == nil {
					occupied--
				}
				continue
			}
			if _, err := e.AddModule(0, typeA); err == nil {
				occupied++
			}
		}
	}()

	buf := constantBlock(2, 16, 0)
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		e.Process(buf)
	}

	e.Release()
	requireUniqueLayout(t, e)
	if got := len(types(e, 0)); got != occupied {
		t.Fatalf("chain holds %d modules, want %d from successful adds and removes", got, occupied)
	}
}

func TestRealModulesStayBounded(t *testing.T) {
	t.Parallel()

	e := New(WithLogger(quietLogger()))
	defer e.Close()

	for _, typ := range []ModuleType{TypeDelay, TypeReverb} {
		if _, err := e.AddModule(0, typ); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.AddModule(1, TypeConvolution); err != nil {
		t.Fatal(err)
	}
	_ = e.SetParameter(ParamParallelEnabled, 1)
	_ = e.SetParameter("chain_0.slot_0.feedback", 0.95)
	if err := e.Prepare(testSpec(256)); err != nil {
		t.Fatal(err)
	}

	in := testutil.DeterministicNoise(11, 0.5, 48000)
	out := testutil.Render(in, 2, 256, e.Process)
	for _, ch := range out {
		testutil.RequireFinite(t, ch)
		testutil.RequireBounded(t, ch, 20)
	}
}

func BenchmarkEngineProcess(b *testing.B) {
	e := New(WithLogger(quietLogger()))
	defer e.Close()
	_, _ = e.AddModule(0, TypeDelay)
	_, _ = e.AddModule(0, TypeReverb)
	if err := e.Prepare(testSpec(512)); err != nil {
		b.Fatal(err)
	}
	buf := constantBlock(2, 512, 0.1)

	for b.Loop() {
		e.Process(buf)
	}
}
