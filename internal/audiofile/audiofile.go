package audiofile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrUnsupportedFormat is returned for extensions without a decoder.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	// ErrInvalidFile is returned when a file does not match its format.
	ErrInvalidFile = errors.New("audiofile: invalid file")
	// ErrEmptyAudio is returned for files without samples.
	ErrEmptyAudio = errors.New("audiofile: no samples")
)

// Audio is decoded audio, one slice per channel.
type Audio struct {
	SampleRate float64
	Channels   [][]float64
}

// Frames returns the per-channel sample count.
func (a *Audio) Frames() int {
	if a == nil || len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Decoder reads one file format.
type Decoder interface {
	Decode(r io.ReadSeeker) (*Audio, error)
}

// Registry maps lower-case file extensions (".wav") to decoders.
type Registry struct {
	mu     sync.Mutex
	codecs map[string]Decoder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Decoder)}
}

// DefaultRegistry knows WAV, AIFF, MP3 and Ogg Vorbis.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".wav", WAVDecoder{})
	r.Register(".aif", AIFFDecoder{})
	r.Register(".aiff", AIFFDecoder{})
	r.Register(".mp3", MP3Decoder{})
	r.Register(".ogg", VorbisDecoder{})
	return r
}

// Register adds or replaces the decoder for ext.
func (r *Registry) Register(ext string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(ext)] = d
}

// Get returns the decoder for ext.
func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.codecs[strings.ToLower(ext)]
	return d, ok
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.Get(filepath.Ext(path))
	return ok
}

// Load decodes the file at path.
func (r *Registry) Load(path string) (*Audio, error) {
	d, ok := r.Get(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiofile: %w", err)
	}
	defer f.Close()

	a, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("audiofile: decode %s: %w", filepath.Base(path), err)
	}
	if a.Frames() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, filepath.Base(path))
	}
	return a, nil
}

// Load decodes path with the default registry.
func Load(path string) (*Audio, error) {
	return DefaultRegistry().Load(path)
}

// deinterleaveInts splits interleaved integer samples into channels scaled
// by 1/fullScale.
func deinterleaveInts(data []int, channels int, fullScale float64) [][]float64 {
	channels = max(channels, 1)
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	inv := 1 / fullScale
	for i := range frames {
		for ch := range channels {
			out[ch][i] = float64(data[i*channels+ch]) * inv
		}
	}
	return out
}

func deinterleaveFloats(data []float32, channels int) [][]float64 {
	channels = max(channels, 1)
	frames := len(data) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
	}
	for i := range frames {
		for ch := range channels {
			out[ch][i] = float64(data[i*channels+ch])
		}
	}
	return out
}

// fullScale returns the magnitude of the most negative integer sample at
// bitDepth.
func fullScale(bitDepth int) float64 {
	switch bitDepth {
	case 8:
		return 128
	case 24:
		return 8388608
	case 32:
		return 2147483648
	default:
		return 32768
	}
}
