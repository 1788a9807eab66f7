package ir

import (
	"errors"
	"math"
	"testing"
)

// exponentialDecay returns h(t) = exp(-ln(1000) t / rt60), which is -60 dB
// at rt60.
func exponentialDecay(sampleRate, rt60, seconds float64) []float64 {
	out := make([]float64, int(sampleRate*seconds))
	rate := math.Log(1000) / rt60
	for i := range out {
		out[i] = math.Exp(-rate * float64(i) / sampleRate)
	}
	return out
}

func TestRT60ExponentialDecay(t *testing.T) {
	t.Parallel()

	const sr = 48000.0
	tests := []struct {
		name    string
		rt60    float64
		seconds float64
	}{
		{name: "short", rt60: 0.3, seconds: 1.5},
		{name: "medium", rt60: 1.0, seconds: 3.0},
		{name: "long", rt60: 5.0, seconds: 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rt, err := NewAnalyzer(sr).RT60(exponentialDecay(sr, tt.rt60, tt.seconds))
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(rt-tt.rt60) > 0.05*tt.rt60 {
				t.Fatalf("RT60 = %.4f, want %.4f (+-5%%)", rt, tt.rt60)
			}
		})
	}
}

func TestAnalyzeMetricsAgree(t *testing.T) {
	t.Parallel()

	const sr, rt60 = 48000.0, 1.5
	m, err := NewAnalyzer(sr).Analyze(exponentialDecay(sr, rt60, 5))
	if err != nil {
		t.Fatal(err)
	}

	for name, got := range map[string]float64{"T20": m.T20, "T30": m.T30, "RT60": m.RT60} {
		if math.Abs(got-rt60) > 0.05*rt60 {
			t.Fatalf("%s = %.4f, want %.4f", name, got, rt60)
		}
	}
	if math.Abs(m.EDT-rt60) > 0.1*rt60 {
		t.Fatalf("EDT = %.4f, want ~%.4f", m.EDT, rt60)
	}
	if m.PeakIndex != 0 {
		t.Fatalf("PeakIndex = %d, want 0", m.PeakIndex)
	}
	if m.C80 <= 0 {
		t.Fatalf("C80 = %v dB, want positive for a 1.5 s decay", m.C80)
	}
}

func TestRT60NoDecay(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(48000)
	for _, ir := range [][]float64{{1}, {1, 0.5}} {
		if _, err := a.RT60(ir); !errors.Is(err, ErrNoDecay) {
			t.Fatalf("RT60(%v) error = %v, want ErrNoDecay", ir, err)
		}
	}
}

func TestValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewAnalyzer(48000).Analyze(nil); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("Analyze(nil) error = %v, want ErrEmptyIR", err)
	}
	if _, err := NewAnalyzer(-1).Analyze([]float64{1}); !errors.Is(err, ErrInvalidSampleRate) {
		t.Fatalf("Analyze(sr=-1) error = %v, want ErrInvalidSampleRate", err)
	}
	if _, err := NewAnalyzer(48000).SchroederIntegral(nil); !errors.Is(err, ErrEmptyIR) {
		t.Fatalf("SchroederIntegral(nil) error = %v, want ErrEmptyIR", err)
	}
}

func TestSchroederIntegralMonotonic(t *testing.T) {
	t.Parallel()

	curve, err := NewAnalyzer(48000).SchroederIntegral(exponentialDecay(48000, 0.5, 1))
	if err != nil {
		t.Fatal(err)
	}
	if curve[0] != 0 {
		t.Fatalf("curve[0] = %v, want 0 dB", curve[0])
	}
	for i := 1; i < len(curve); i++ {
		if curve[i] > curve[i-1] {
			t.Fatalf("curve rises at %d: %v > %v", i, curve[i], curve[i-1])
		}
	}
}

func TestClarity(t *testing.T) {
	t.Parallel()

	ir := make([]float64, 48000)
	ir[0] = 1
	ir[24000] = 1
	c, err := NewAnalyzer(48000).Clarity(ir, 80)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(c) > 1e-12 {
		t.Fatalf("C80 = %v dB, want 0 for equal early and late energy", c)
	}
}
