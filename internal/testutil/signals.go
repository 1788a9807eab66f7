package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at pos.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// Block allocates a zeroed channel-major buffer.
func Block(channels, frames int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	return out
}

// Fill copies src into every channel of dst starting at offset.
// It returns the number of frames copied.
func Fill(dst [][]float64, src []float64, offset int) int {
	n := 0
	for _, ch := range dst {
		if offset >= len(src) {
			clear(ch)
			continue
		}
		n = copy(ch, src[offset:])
		clear(ch[n:])
	}
	return n
}

// Render feeds input through process in blocks of blockSize frames on the
// given number of channels and returns the per-channel output.
func Render(input []float64, channels, blockSize int, process func([][]float64)) [][]float64 {
	out := Block(channels, len(input))
	buf := Block(channels, blockSize)
	for pos := 0; pos < len(input); pos += blockSize {
		n := min(blockSize, len(input)-pos)
		view := make([][]float64, channels)
		for ch := range buf {
			view[ch] = buf[ch][:n]
		}
		Fill(view, input, pos)
		process(view)
		for ch := range view {
			copy(out[ch][pos:pos+n], view[ch])
		}
	}
	return out
}
