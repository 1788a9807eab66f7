// Package effects provides the rack's delay effect and its tempo-sync
// helpers.
//
// Subpackages:
//   - github.com/cwbudde/algo-fxrack/dsp/effects/modulation
//   - github.com/cwbudde/algo-fxrack/dsp/effects/reverb
//
// Effects process channel-major float64 buffers in place, clamp their
// settings instead of returning errors, and do not allocate after Prepare.
package effects
