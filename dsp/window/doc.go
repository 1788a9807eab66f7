// Package window provides the window functions used for filter design and
// impulse-response tapering.
package window
