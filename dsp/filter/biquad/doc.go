// Package biquad provides the second-order IIR section used by the effect
// filters. Coefficient design lives in dsp/filter/design.
package biquad
