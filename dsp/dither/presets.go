package dither

import (
	"fmt"
	"strings"

	clone "github.com/huandu/go-clone/generic"
)

// Shaping identifies a predefined FIR noise-shaping filter.
type Shaping int

const (
	ShapingNone Shaping = iota // plain error, white noise floor
	ShapingEFB                 // simple error feedback, 1st order
	Shaping2SC                 // simple 2nd-order highpass
	Shaping3FC                 // F-weighted, 3rd order
	Shaping9FC                 // F-weighted, 9th order

	shapingCount
)

var shapingNames = [shapingCount]string{"none", "efb", "2sc", "3fc", "9fc"}

var shapingCoeffs = [shapingCount][]float64{
	ShapingNone: nil,
	ShapingEFB:  {1},
	Shaping2SC:  {1.0, -0.5},
	Shaping3FC:  {1.623, -0.982, 0.109},
	Shaping9FC: {
		2.412, -3.370, 3.937, -4.174, 3.353,
		-2.205, 1.281, -0.569, 0.0847,
	},
}

// String returns the short name of the shaping filter.
func (s Shaping) String() string {
	if s.Valid() {
		return shapingNames[s]
	}
	return fmt.Sprintf("Shaping(%d)", int(s))
}

// Valid reports whether s is a known shaping filter.
func (s Shaping) Valid() bool { return s >= 0 && s < shapingCount }

// Coefficients returns a copy of the error-feedback coefficients. It is nil
// for ShapingNone.
func (s Shaping) Coefficients() []float64 {
	if !s.Valid() {
		return nil
	}
	return clone.Clone(shapingCoeffs[s])
}

// ParseShaping maps a short name such as "9fc" onto a Shaping.
func ParseShaping(name string) (Shaping, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range shapingNames {
		if n == name {
			return Shaping(i), nil
		}
	}
	return ShapingNone, fmt.Errorf("dither: unknown noise shaping %q", name)
}
