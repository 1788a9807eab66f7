package dither

import (
	"fmt"
	"strings"
)

// Type selects the probability distribution used for dither noise.
type Type int

const (
	// None applies plain rounding.
	None Type = iota
	// Rectangular uses a uniform PDF one LSB wide.
	Rectangular
	// Triangular uses a triangular PDF (TPDF) two LSB wide.
	Triangular

	typeCount
)

var typeNames = [typeCount]string{"none", "rpdf", "tpdf"}

// String returns the short name of the dither type.
func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known dither type.
func (t Type) Valid() bool { return t >= 0 && t < typeCount }

// ParseType maps a short name such as "tpdf" onto a Type.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return None, fmt.Errorf("dither: unknown dither type %q", name)
}
