package delay

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSize is returned for non-positive channel counts or capacities.
var ErrInvalidSize = errors.New("delay: invalid size")

// Line is a multi-channel circular delay line with a fixed capacity and one
// write cursor per channel. Delay 1 reads the most recently pushed sample.
type Line struct {
	buffer [][]float64
	write  []int
	delay  float64
}

// New returns a delay line with the given channel count and capacity.
func New(channels, capacity int) (*Line, error) {
	l := &Line{}
	if err := l.Prepare(channels, capacity); err != nil {
		return nil, err
	}
	return l, nil
}

// Prepare (re)allocates storage and clears the line. It allocates and must
// not be called from the audio path.
func (l *Line) Prepare(channels, capacity int) error {
	if channels <= 0 || capacity < 2 {
		return fmt.Errorf("%w: %d channels x %d samples", ErrInvalidSize, channels, capacity)
	}
	l.buffer = make([][]float64, channels)
	for ch := range l.buffer {
		l.buffer[ch] = make([]float64, capacity)
	}
	l.write = make([]int, channels)
	l.delay = min(max(l.delay, 1), float64(capacity-1))
	return nil
}

// Capacity returns the per-channel buffer length.
func (l *Line) Capacity() int {
	if len(l.buffer) == 0 {
		return 0
	}
	return len(l.buffer[0])
}

// Channels returns the channel count.
func (l *Line) Channels() int { return len(l.buffer) }

// SetDelay sets the delay used by Pop, clamped to [1, capacity-1].
func (l *Line) SetDelay(samples float64) {
	l.delay = l.clampDelay(samples)
}

// Delay returns the configured delay in samples.
func (l *Line) Delay() float64 { return l.delay }

// Push writes one sample and advances the channel's cursor.
func (l *Line) Push(ch int, x float64) {
	buf := l.buffer[ch]
	w := l.write[ch]
	buf[w] = x
	w++
	if w == len(buf) {
		w = 0
	}
	l.write[ch] = w
}

// Read returns the sample pushed n-1 pushes ago. n wraps modulo capacity.
func (l *Line) Read(ch, n int) float64 {
	buf := l.buffer[ch]
	size := len(buf)
	idx := (l.write[ch] - n) % size
	if idx < 0 {
		idx += size
	}
	return buf[idx]
}

// ReadFractional reads a fractional delay using linear interpolation between
// the two nearest integer taps. The delay is clamped to [1, capacity-1].
func (l *Line) ReadFractional(ch int, samples float64) float64 {
	d := l.clampDelay(samples)
	i := int(d)
	frac := d - float64(i)
	a := l.Read(ch, i)
	if frac == 0 {
		return a
	}
	b := l.Read(ch, i+1)
	return a + frac*(b-a)
}

// Pop reads the channel at the configured delay.
func (l *Line) Pop(ch int) float64 {
	return l.ReadFractional(ch, l.delay)
}

// Reset zero-fills every channel and rewinds the cursors.
func (l *Line) Reset() {
	for ch := range l.buffer {
		clear(l.buffer[ch])
		l.write[ch] = 0
	}
}

func (l *Line) clampDelay(samples float64) float64 {
	hi := float64(l.Capacity() - 1)
	if samples != samples || samples < 1 {
		return 1
	}
	return math.Min(samples, hi)
}
