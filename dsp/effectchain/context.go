package effectchain

import (
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/effects"
)

// Context provides what module factories need from the engine.
type Context struct {
	Spec   core.StreamSpec
	IRs    IRProvider
	Tempo  effects.TempoSource
	Logger logrus.FieldLogger
}

// IRProvider lists and loads impulse responses. Index 0 is the unit-impulse
// bypass; names of out-of-range indices are "No IR".
type IRProvider interface {
	NumIRs() int
	IRFile(index int) string
	IRName(index int) string
	GetIR(index int, sampleRate float64) ([][]float64, error)
}
