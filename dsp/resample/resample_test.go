package resample

import (
	"errors"
	"math"
	"testing"
)

func sine(freq, rate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / rate)
	}
	return out
}

func TestValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRational(0, 1); !errors.Is(err, ErrInvalidRatio) {
		t.Fatalf("up=0 error = %v, want ErrInvalidRatio", err)
	}
	if _, err := NewRational(1, -2); !errors.Is(err, ErrInvalidRatio) {
		t.Fatalf("down<0 error = %v, want ErrInvalidRatio", err)
	}
	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := NewForRates(rate, 48000); !errors.Is(err, ErrInvalidRate) {
			t.Fatalf("NewForRates(%v) error = %v, want ErrInvalidRate", rate, err)
		}
	}
}

func TestRatios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out  float64
		up, down int
	}{
		{44100, 48000, 160, 147},
		{48000, 44100, 147, 160},
		{48000, 96000, 2, 1},
		{96000, 48000, 1, 2},
		{48000, 48000, 1, 1},
	}
	for _, tc := range tests {
		c, err := NewForRates(tc.in, tc.out)
		if err != nil {
			t.Fatal(err)
		}
		up, down := c.Ratio()
		if up != tc.up || down != tc.down {
			t.Fatalf("%v->%v ratio got %d/%d want %d/%d", tc.in, tc.out, up, down, tc.up, tc.down)
		}
	}
}

func TestIdentityCopies(t *testing.T) {
	t.Parallel()

	c, err := NewRational(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	in := []float64{1, -2, 3}
	out := c.Convert(in)
	out[0] = 9
	if in[0] != 1 || len(out) != 3 || out[2] != 3 {
		t.Fatalf("identity got %v", out)
	}
}

func TestOutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, out float64
		n, want int
	}{
		{48000, 96000, 100, 200},
		{96000, 48000, 101, 51},
		{44100, 48000, 44100, 48000},
		{48000, 44100, 0, 0},
	}
	for _, tc := range tests {
		c, _ := NewForRates(tc.in, tc.out)
		if got := len(c.Convert(make([]float64, tc.n))); got != tc.want {
			t.Fatalf("%v->%v n=%d got %d want %d", tc.in, tc.out, tc.n, got, tc.want)
		}
	}
}

func TestImpulseKeepsOnset(t *testing.T) {
	t.Parallel()

	c, _ := NewRational(2, 1)
	in := make([]float64, 64)
	in[10] = 1
	out := c.Convert(in)

	peak := 0
	for i, v := range out {
		if math.Abs(v) > math.Abs(out[peak]) {
			peak = i
		}
	}
	if peak != 20 {
		t.Fatalf("peak got %d want 20", peak)
	}
}

func TestSinePreserved(t *testing.T) {
	t.Parallel()

	for _, q := range []Quality{QualityFast, QualityBalanced, QualityBest} {
		c, err := NewForRates(48000, 44100, WithQuality(q))
		if err != nil {
			t.Fatal(err)
		}
		out := c.Convert(sine(1000, 48000, 4800))
		want := sine(1000, 44100, len(out))
		for i := 500; i < len(out)-500; i++ {
			if math.Abs(out[i]-want[i]) > 1e-2 {
				t.Fatalf("quality %d sample %d got %v want %v", q, i, out[i], want[i])
			}
		}
	}
}

func TestDownsampleRejectsAliases(t *testing.T) {
	t.Parallel()

	c, _ := NewRational(1, 2, WithQuality(QualityBest))
	out := c.Convert(sine(20000, 48000, 8192))

	var sum float64
	for _, v := range out[512 : len(out)-512] {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(out)-1024))
	if rms > 0.01 {
		t.Fatalf("20 kHz through 24 kHz output rms %v want < 0.01", rms)
	}
}

func TestChannels(t *testing.T) {
	t.Parallel()

	out, err := Channels([][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}}, 24000, 48000)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || len(out[0]) != 8 || len(out[1]) != 8 {
		t.Fatalf("shape got %d x %d", len(out), len(out[0]))
	}
}
