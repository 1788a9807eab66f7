package audiofile

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

const pcmChunk = 4096

type pcmReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// AIFFDecoder decodes integer PCM AIFF files.
type AIFFDecoder struct{}

// Decode implements Decoder.
func (AIFFDecoder) Decode(r io.ReadSeeker) (*Audio, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidFile)
	}
	dec.ReadInfo()
	return readPCM(dec, int(dec.BitDepth))
}

// readPCM drains r in chunks.
func readPCM(r pcmReader, bitDepth int) (*Audio, error) {
	format := r.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFile)
	}

	buf := &goaudio.IntBuffer{Format: format, Data: make([]int, pcmChunk*format.NumChannels)}
	var data []int
	for {
		n, err := r.PCMBuffer(buf)
		data = append(data, buf.Data[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read PCM: %w", err)
		}
	}

	return &Audio{
		SampleRate: float64(format.SampleRate),
		Channels:   deinterleaveInts(data, format.NumChannels, fullScale(bitDepth)),
	}, nil
}
