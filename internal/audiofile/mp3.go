package audiofile

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

type mp3Reader interface {
	io.Reader
	SampleRate() int
}

// MP3Decoder decodes MPEG-1/2 Layer III files. go-mp3 always produces
// 16-bit stereo.
type MP3Decoder struct{}

// Decode implements Decoder.
func (MP3Decoder) Decode(r io.ReadSeeker) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	return readMP3(dec)
}

func readMP3(r mp3Reader) (*Audio, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read MP3: %w", err)
	}

	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	return &Audio{
		SampleRate: float64(r.SampleRate()),
		Channels:   deinterleaveInts(data, 2, fullScale(16)),
	}, nil
}
