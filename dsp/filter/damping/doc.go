// Package damping maps user damping settings onto perceptually spaced
// lowpass cutoffs and provides the per-line damping stage used inside
// reverb feedback loops.
package damping
