// Package dither quantizes rendered audio to integer PCM word lengths with
// optional dither noise and error-feedback noise shaping.
//
// The quantizer's output stays in floating point on the grid of the target
// word length, so encoders that round v*(2^(bits-1)-1) reproduce the
// quantized integers exactly.
package dither
