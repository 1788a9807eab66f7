// Package buffer provides the multi-channel scratch block used on the audio
// path. Storage is reserved once on the control goroutine; per-block
// resizing only re-slices and never allocates while the requested frame
// count fits the reserved capacity.
package buffer
