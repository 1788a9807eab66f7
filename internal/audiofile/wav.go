package audiofile

import (
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVDecoder decodes integer PCM WAV files of 8 to 32 bits.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(r io.ReadSeeker) (*Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFile)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read WAV samples: %w", err)
	}
	if buf.Format == nil {
		return nil, fmt.Errorf("%w: missing WAV format", ErrInvalidFile)
	}
	return &Audio{
		SampleRate: float64(buf.Format.SampleRate),
		Channels:   deinterleaveInts(buf.Data, buf.Format.NumChannels, fullScale(int(dec.BitDepth))),
	}, nil
}

// WriteWAV encodes a as integer PCM at bitDepth (16 or 24). Samples are
// clipped to [-1, 1].
func WriteWAV(w io.WriteSeeker, a *Audio, bitDepth int) error {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("audiofile: unsupported WAV bit depth %d", bitDepth)
	}
	channels := len(a.Channels)
	if channels == 0 {
		return ErrEmptyAudio
	}
	frames := a.Frames()
	peak := fullScale(bitDepth) - 1

	data := make([]int, frames*channels)
	for i := range frames {
		for ch := range channels {
			v := math.Max(-1, math.Min(1, a.Channels[ch][i]))
			data[i*channels+ch] = int(math.Round(v * peak))
		}
	}

	enc := wav.NewEncoder(w, int(a.SampleRate), bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(a.SampleRate)},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: write WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: finish WAV: %w", err)
	}
	return nil
}
