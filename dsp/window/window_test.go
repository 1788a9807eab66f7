package window

import (
	"math"
	"testing"
)

func TestGenerateFinite(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeRectangular, TypeHann, TypeBlackman, TypeKaiser, TypeTukey} {
		w := Generate(typ, 64)
		if len(w) != 64 {
			t.Fatalf("type %d: len=%d, want 64", typ, len(w))
		}
		for i, v := range w {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < -1e-12 || v > 1+1e-12 {
				t.Fatalf("type %d: coefficient[%d] invalid: %v", typ, i, v)
			}
		}
	}
}

func TestPeriodicDiffersFromSymmetric(t *testing.T) {
	t.Parallel()

	a := Generate(TypeHann, 16)
	b := Generate(TypeHann, 16, WithPeriodic())
	if almostEqual(a[15], b[15], 1e-12) {
		t.Fatal("expected different end coefficient for periodic form")
	}
}

func TestApplyInPlaceByType(t *testing.T) {
	t.Parallel()

	buf := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	Apply(TypeRectangular, buf)
	for i, v := range buf {
		if v != float64(i+1) {
			t.Fatalf("rectangular should be passthrough at %d: %v", i, v)
		}
	}

	Apply(TypeHann, buf)
	if buf[0] != 0 {
		t.Fatalf("hann first sample should be 0, got %v", buf[0])
	}
}

func TestGoldenVectors(t *testing.T) {
	t.Parallel()

	hannExpected := []float64{
		0.0, 0.1882550990706332, 0.6112604669781572, 0.9504844339512095,
		0.9504844339512095, 0.6112604669781573, 0.1882550990706333, 0.0,
	}
	kaiserExpected := []float64{
		0.002338830460264423, 0.1091958100155291, 0.4871186737556569, 0.9261577358777303,
		0.9261577358777303, 0.4871186737556569, 0.1091958100155291, 0.002338830460264423,
	}

	checkGolden(t, Generate(TypeHann, 8), hannExpected, 1e-10)
	checkGolden(t, Generate(TypeKaiser, 8, WithAlpha(8)), kaiserExpected, 1e-6)
}

func TestTukeyLimits(t *testing.T) {
	t.Parallel()

	rect := Generate(TypeTukey, 16, WithAlpha(0))
	for i, v := range rect {
		if v != 1 {
			t.Fatalf("alpha 0 coefficient[%d] = %v, want 1", i, v)
		}
	}
	checkGolden(t, Generate(TypeTukey, 16, WithAlpha(1)), Generate(TypeHann, 16), 1e-12)

	w, err := Tukey(32, 0.5)
	if err != nil {
		t.Fatalf("Tukey() error = %v", err)
	}
	if w[0] != 0 || w[16] != 1 {
		t.Fatalf("got edges (%v, %v) want (0, 1)", w[0], w[16])
	}
}

func TestFadeOut(t *testing.T) {
	t.Parallel()

	buf := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	FadeOut(buf, 4)
	for i := range 4 {
		if buf[i] != 1 {
			t.Fatalf("buf[%d] = %v, want untouched 1", i, buf[i])
		}
	}
	if buf[7] > 1e-12 {
		t.Fatalf("last sample = %v, want 0", buf[7])
	}
	for i := 4; i < 7; i++ {
		if buf[i+1] > buf[i] {
			t.Fatalf("fade not falling at %d: %v -> %v", i, buf[i], buf[i+1])
		}
	}

	short := []float64{2}
	FadeOut(short, 10)
	if short[0] > 1e-12 {
		t.Fatalf("clamped fade left %v", short[0])
	}
	FadeOut(nil, 4)
}

func TestValidationAndEdgeCases(t *testing.T) {
	t.Parallel()

	if got := Generate(TypeHann, 0); got != nil {
		t.Fatalf("expected nil for zero length, got %v", got)
	}
	if _, err := Hann(0); err == nil {
		t.Fatal("expected size validation error")
	}
	if _, err := Kaiser(16, -1); err == nil {
		t.Fatal("expected beta validation error")
	}
	if _, err := Tukey(16, 2); err == nil {
		t.Fatal("expected alpha validation error")
	}
	if w, err := Kaiser(1, 8); err != nil || len(w) != 1 || !almostEqual(w[0], 1, 1e-12) {
		t.Fatalf("Kaiser(1) = %v, %v want [1], nil", w, err)
	}
}

func checkGolden(t *testing.T, got, want []float64, tol float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("len mismatch got=%d want=%d", len(got), len(want))
	}
	for i := range got {
		if !almostEqual(got[i], want[i], tol) {
			t.Fatalf("index %d: got=%.16f want=%.16f", i, got[i], want[i])
		}
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
