// Package resample converts whole signals, typically impulse responses,
// between sample rates with a Kaiser-windowed sinc filter.
//
// The conversion is offline and zero-delay: the filter's group delay is
// compensated, so an impulse at input sample n lands at output sample
// n*outRate/inRate. Quality selects the filter length:
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
package resample
