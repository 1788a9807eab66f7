// Package ir measures the decay of impulse responses rendered through the
// rack's reverbs.
//
// All metrics derive from the Schroeder backward integration of the squared
// response:
//
//   - T20, T30: reverberation time regressed over -5..-25 dB and -5..-35 dB
//   - RT60: T30 when the curve reaches -35 dB, otherwise T20
//   - EDT: early decay time regressed over 0..-10 dB
//   - C80: early-to-late energy ratio at 80 ms
//
// # Usage
//
//	analyzer := ir.NewAnalyzer(48000)
//	metrics, err := analyzer.Analyze(impulseResponse)
//	fmt.Printf("RT60 = %.2f s\n", metrics.RT60)
package ir
