package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// Zero sets all values in buf to 0.
func Zero(buf []float64) {
	clear(buf)
}

// CopyInto copies src into dst and returns the number of copied elements.
func CopyInto(dst, src []float64) int {
	return copy(dst, src)
}

// Frames returns the shortest channel length of a channel-major buffer.
func Frames(buf [][]float64) int {
	if len(buf) == 0 {
		return 0
	}
	n := len(buf[0])
	for _, ch := range buf[1:] {
		n = min(n, len(ch))
	}
	return n
}

// Stereo returns the left and right channel of buf. Mono buffers return the
// same slice twice; callers must read both inputs before writing either output.
func Stereo(buf [][]float64) (left, right []float64, stereo bool) {
	switch len(buf) {
	case 0:
		return nil, nil, false
	case 1:
		return buf[0], buf[0], false
	}
	return buf[0], buf[1], true
}
