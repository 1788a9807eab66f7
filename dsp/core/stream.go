package core

import (
	"errors"
	"fmt"
)

// ErrInvalidStreamSpec is returned when a StreamSpec cannot drive processing.
var ErrInvalidStreamSpec = errors.New("core: invalid stream spec")

// StreamSpec describes the audio stream a processor is prepared for.
type StreamSpec struct {
	SampleRate float64
	BlockSize  int
	Channels   int
}

// StreamOption mutates a StreamSpec.
type StreamOption func(*StreamSpec)

// DefaultStreamSpec returns a stereo 48 kHz stream with 512-sample blocks.
func DefaultStreamSpec() StreamSpec {
	return StreamSpec{
		SampleRate: 48000,
		BlockSize:  512,
		Channels:   2,
	}
}

// WithSampleRate sets the stream sample rate. Non-positive values are ignored.
func WithSampleRate(sampleRate float64) StreamOption {
	return func(s *StreamSpec) {
		if sampleRate > 0 {
			s.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the maximum block size. Non-positive values are ignored.
func WithBlockSize(blockSize int) StreamOption {
	return func(s *StreamSpec) {
		if blockSize > 0 {
			s.BlockSize = blockSize
		}
	}
}

// WithChannels sets the channel count. Only 1 and 2 are accepted.
func WithChannels(channels int) StreamOption {
	return func(s *StreamSpec) {
		if channels == 1 || channels == 2 {
			s.Channels = channels
		}
	}
}

// NewStreamSpec applies options on top of DefaultStreamSpec.
func NewStreamSpec(opts ...StreamOption) StreamSpec {
	s := DefaultStreamSpec()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Validate reports whether the spec can be used to prepare a processor.
func (s StreamSpec) Validate() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %g", ErrInvalidStreamSpec, s.SampleRate)
	}
	if s.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrInvalidStreamSpec, s.BlockSize)
	}
	if s.Channels < 1 || s.Channels > 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidStreamSpec, s.Channels)
	}
	return nil
}

// MsToSamples converts milliseconds to a (fractional) sample count.
func (s StreamSpec) MsToSamples(ms float64) float64 {
	return ms * s.SampleRate / 1000
}
