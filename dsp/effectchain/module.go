package effectchain

import (
	"fmt"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

// ModuleType tags the effect held by a slot. The string form is persisted.
type ModuleType string

const (
	TypeDelay       ModuleType = "Delay"
	TypeReverb      ModuleType = "Reverb"
	TypeConvolution ModuleType = "Convolution"
)

// ModuleTypes lists the built-in module types.
var ModuleTypes = []ModuleType{TypeDelay, TypeReverb, TypeConvolution}

// ParseModuleType maps a persisted tag onto a ModuleType.
func ParseModuleType(s string) (ModuleType, error) {
	for _, t := range ModuleTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModule, s)
}

// Module is one slot's effect.
//
// Prepare runs on the control goroutine before the module becomes visible
// to the audio goroutine. SetParams and Process run on the audio goroutine
// once per block; SetParams is called even while the slot is disabled.
// Modules that hold goroutines or files also implement io.Closer, which the
// slot calls when the module is released.
type Module interface {
	Type() ModuleType
	UsedParameters() []string
	Prepare(spec core.StreamSpec) error
	SetParams(s Snapshot)
	Process(buf [][]float64)
	Reset()
}
