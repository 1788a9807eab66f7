package core

import "testing"

func TestEnsureLenReuse(t *testing.T) {
	t.Parallel()

	buf := make([]float64, 4, 8)

	out := EnsureLen(buf, 6)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}
	if cap(out) != cap(buf) {
		t.Fatalf("cap = %d, want %d", cap(out), cap(buf))
	}
	if got := EnsureLen(buf, 16); len(got) != 16 {
		t.Fatalf("grown len = %d, want 16", len(got))
	}
}

func TestCopyIntoAndZero(t *testing.T) {
	t.Parallel()

	dst := make([]float64, 2)
	if n := CopyInto(dst, []float64{1, 2, 3}); n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("unexpected dst: %#v", dst)
	}

	Zero(dst)
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0", i, v)
		}
	}
}

func TestFrames(t *testing.T) {
	t.Parallel()

	if got := Frames(nil); got != 0 {
		t.Fatalf("Frames(nil) = %d, want 0", got)
	}
	if got := Frames([][]float64{make([]float64, 8), make([]float64, 5)}); got != 5 {
		t.Fatalf("Frames = %d, want 5", got)
	}
}

func TestStereo(t *testing.T) {
	t.Parallel()

	mono := [][]float64{{1, 2}}
	l, r, stereo := Stereo(mono)
	if stereo {
		t.Fatal("mono buffer reported as stereo")
	}
	if &l[0] != &r[0] {
		t.Fatal("mono buffer must return the same channel twice")
	}

	l, r, stereo = Stereo([][]float64{{1}, {2}})
	if !stereo || l[0] != 1 || r[0] != 2 {
		t.Fatalf("got (%v, %v, %v) want ([1], [2], true)", l, r, stereo)
	}
}
