package effects

import (
	"math"
	"testing"
)

func TestDelayMsForTempo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bpm  float64
		div  NoteDivision
		want float64
	}{
		{"quarter at 120", 120, NoteQuarter, 500},
		{"eighth at 120", 120, NoteEighth, 250},
		{"dotted eighth at 120", 120, NoteEighthDotted, 375},
		{"quarter triplet at 120", 120, NoteQuarterTriplet, 1000.0 / 3},
		{"whole at 60 hits the ceiling", 60, NoteWhole, MaxDelayMs},
		{"whole at 20 is clamped", 20, NoteWhole, MaxDelayMs},
		{"unknown division is a quarter", 120, NoteDivision(99), 500},
		{"zero tempo", 0, NoteQuarter, MaxDelayMs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DelayMsForTempo(tt.bpm, tt.div); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestNoteTable(t *testing.T) {
	t.Parallel()

	want := []float64{4, 2, 1, 0.5, 0.25, 0.125, 3, 1.5, 0.75, 0.375, 4.0 / 3, 2.0 / 3, 1.0 / 3, 1.0 / 6}
	if len(want) != NumNoteDivisions {
		t.Fatalf("NumNoteDivisions = %d, want %d", NumNoteDivisions, len(want))
	}
	for i, w := range want {
		if got := NoteDivision(i).Multiplier(); got != w {
			t.Fatalf("division %d (%s): got %v want %v", i, NoteDivision(i), got, w)
		}
	}
	if NoteQuarter.String() != "1/4" {
		t.Fatalf("NoteQuarter.String() = %q", NoteQuarter.String())
	}
}

func TestResolveBPM(t *testing.T) {
	t.Parallel()

	host := TempoFunc(func() (float64, bool) { return 140, true })
	stopped := TempoFunc(func() (float64, bool) { return 0, false })

	if got := ResolveBPM(host, 120); got != 140 {
		t.Fatalf("host tempo: got %v want 140", got)
	}
	if got := ResolveBPM(stopped, 120); got != 120 {
		t.Fatalf("no host tempo: got %v want 120", got)
	}
	if got := ResolveBPM(nil, 90); got != 90 {
		t.Fatalf("nil source: got %v want 90", got)
	}
}
