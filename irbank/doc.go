// Package irbank serves impulse responses to the Convolution module.
//
// A Bank is built from an explicit list of files. Index 0 is always
// "Bypass", a unit impulse; files follow in name order. Files are decoded on
// first use, limited to two channels, normalised to unit energy and
// converted to the requested sample rate. Results are cached per rate.
package irbank
