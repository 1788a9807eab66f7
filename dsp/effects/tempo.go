package effects

import (
	"fmt"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

const (
	MinBPM = 20.0
	MaxBPM = 300.0
)

// NoteDivision indexes the tempo-sync note table.
type NoteDivision int

const (
	NoteWhole NoteDivision = iota
	NoteHalf
	NoteQuarter
	NoteEighth
	NoteSixteenth
	NoteThirtySecond
	NoteHalfDotted
	NoteQuarterDotted
	NoteEighthDotted
	NoteSixteenthDotted
	NoteHalfTriplet
	NoteQuarterTriplet
	NoteEighthTriplet
	NoteSixteenthTriplet

	NumNoteDivisions = int(NoteSixteenthTriplet) + 1
)

// noteMultipliers are note lengths in quarter notes.
var noteMultipliers = [NumNoteDivisions]float64{
	4, 2, 1, 0.5, 0.25, 0.125,
	3, 1.5, 0.75, 0.375,
	4.0 / 3, 2.0 / 3, 1.0 / 3, 1.0 / 6,
}

var noteNames = [NumNoteDivisions]string{
	"1/1", "1/2", "1/4", "1/8", "1/16", "1/32",
	"1/2 dotted", "1/4 dotted", "1/8 dotted", "1/16 dotted",
	"1/2 triplet", "1/4 triplet", "1/8 triplet", "1/16 triplet",
}

func (n NoteDivision) String() string {
	if n < 0 || int(n) >= NumNoteDivisions {
		return fmt.Sprintf("NoteDivision(%d)", int(n))
	}
	return noteNames[n]
}

// Multiplier returns the length in quarter notes. Out-of-range divisions
// count as one quarter note.
func (n NoteDivision) Multiplier() float64 {
	if n < 0 || int(n) >= NumNoteDivisions {
		return 1
	}
	return noteMultipliers[n]
}

// TempoSource reports the host tempo. ok is false when the host has no
// transport information.
type TempoSource interface {
	BPM() (bpm float64, ok bool)
}

// TempoFunc adapts a function to TempoSource.
type TempoFunc func() (float64, bool)

// BPM calls f.
func (f TempoFunc) BPM() (float64, bool) { return f() }

// DelayMsForTempo returns the delay for one note of div at bpm, clamped to
// [MinDelayMs, MaxDelayMs].
func DelayMsForTempo(bpm float64, div NoteDivision) float64 {
	if bpm <= 0 {
		return MaxDelayMs
	}
	return core.Clamp(60000/bpm*div.Multiplier(), MinDelayMs, MaxDelayMs)
}

// ResolveBPM prefers the host tempo when src reports one and falls back to
// manual otherwise.
func ResolveBPM(src TempoSource, manual float64) float64 {
	if src != nil {
		if bpm, ok := src.BPM(); ok && bpm > 0 {
			return bpm
		}
	}
	return manual
}
