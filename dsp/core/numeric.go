package core

import "math"

// Clamp limits value to the inclusive range [lo, hi].
// NaN is mapped to lo so a corrupted parameter can never reach a feedback path.
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if value != value || value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Clamp01 limits value to [0, 1].
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// NearlyEqual reports whether a and b are equal within an absolute or
// relative tolerance eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = 1e-12
	}
	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}
	return diff <= eps*math.Max(math.Abs(a), math.Abs(b))
}

// FlushDenormals converts tiny values to exact zero.
// Recirculating reverb state decays into the denormal range otherwise.
func FlushDenormals(x float64) float64 {
	if x > -1e-30 && x < 1e-30 {
		return 0
	}
	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB.
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	switch {
	case linear < 0:
		return math.NaN()
	case linear == 0:
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// PowerToDB converts a power ratio to dB (10*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func PowerToDB(power float64) float64 {
	switch {
	case power < 0:
		return math.NaN()
	case power == 0:
		return math.Inf(-1)
	}
	return 10 * math.Log10(power)
}

// SmoothingCoeff returns the one-pole coefficient that reaches ~63% of a step
// after timeMs milliseconds.
func SmoothingCoeff(timeMs, sampleRate float64) float64 {
	if timeMs <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1000 / (timeMs * sampleRate))
}
