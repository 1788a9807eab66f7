package resample

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxrack/dsp/window"
)

// designLowpass returns an odd-length windowed-sinc prototype at the
// zero-stuffed rate, scaled so every polyphase branch has unity DC gain.
func designLowpass(up, down int, p profile) ([]float64, error) {
	nTaps := p.tapsPerPhase*up + 1

	fc := (0.5 / float64(max(up, down))) * p.cutoffScale
	if fc <= 0 || fc >= 0.5 {
		return nil, fmt.Errorf("resample: invalid cutoff %.6f", fc)
	}

	taps, err := window.Kaiser(nTaps, p.kaiserBeta)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	center := 0.5 * float64(nTaps-1)
	var sum float64
	for n := range taps {
		t := float64(n) - center
		taps[n] *= 2 * fc * sinc(2*fc*t)
		sum += taps[n]
	}
	if sum == 0 {
		return nil, errors.New("resample: designed zero-sum filter")
	}

	scale := float64(up) / sum
	for i := range taps {
		taps[i] *= scale
	}
	return taps, nil
}

// approximateRatio finds num/den close to v with den <= maxDen using
// continued fractions.
func approximateRatio(v float64, maxDen int) (num, den int) {
	if maxDen <= 0 {
		maxDen = 4096
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1, 1
	}

	a0 := math.Floor(v)
	p0, q0 := 1.0, 0.0
	p1, q1 := a0, 1.0
	x := v

	for {
		frac := x - math.Floor(x)
		if frac < 1e-12 {
			break
		}
		x = 1 / frac
		a := math.Floor(x)
		p2 := a*p1 + p0
		q2 := a*q1 + q0
		if q2 > float64(maxDen) {
			break
		}
		p0, q0 = p1, q1
		p1, q1 = p2, q2
	}

	num = int(math.Round(p1))
	den = int(math.Round(q1))
	if num <= 0 || den <= 0 {
		return 1, 1
	}
	g := gcd(num, den)
	return num / g, den / g
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}
