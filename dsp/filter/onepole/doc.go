// Package onepole provides first-order filters: a topology-preserving
// (TPT) lowpass/highpass pair and an exponential smoother.
package onepole
