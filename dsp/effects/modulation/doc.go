// Package modulation provides the low-frequency oscillator that drives the
// reverb delay modulation.
package modulation
