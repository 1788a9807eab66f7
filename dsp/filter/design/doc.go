// Package design provides RBJ-style biquad coefficient designers for the
// effect filters: lowpass, highpass and high shelf.
package design
