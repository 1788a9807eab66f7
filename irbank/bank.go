package irbank

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cwbudde/algo-vecmath"
	clone "github.com/huandu/go-clone/generic"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/effects/reverb"
	"github.com/cwbudde/algo-fxrack/dsp/resample"
	"github.com/cwbudde/algo-fxrack/dsp/window"
	"github.com/cwbudde/algo-fxrack/internal/audiofile"
)

const (
	// BypassName is the name of index 0.
	BypassName = "Bypass"
	// NoIRName is returned for indices without an entry.
	NoIRName = "No IR"
	// MaxFiles is the number of files a bank can index.
	MaxFiles = reverb.MaxIRIndex

	maxIRChannels = 2
	tailFadeMs    = 50.0
)

var (
	// ErrNoIR is returned for indices outside the bank.
	ErrNoIR = errors.New("irbank: no impulse response at index")
	// ErrInvalidRate is returned for a non-positive target sample rate.
	ErrInvalidRate = errors.New("irbank: invalid sample rate")
)

type rateKey struct {
	index int
	rate  uint64
}

// Bank lists and loads impulse responses. It is safe for concurrent use.
type Bank struct {
	logger    logrus.FieldLogger
	decoders  *audiofile.Registry
	quality   resample.Quality
	normalize bool
	maxLength float64

	files []string

	mu        sync.Mutex
	decoded   map[int]*audiofile.Audio
	converted map[rateKey][][]float64
}

// Option configures a Bank.
type Option func(*Bank)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Bank) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDecoders replaces the default decoder registry.
func WithDecoders(r *audiofile.Registry) Option {
	return func(b *Bank) {
		if r != nil {
			b.decoders = r
		}
	}
}

// WithQuality sets the sample-rate conversion quality.
func WithQuality(q resample.Quality) Option {
	return func(b *Bank) { b.quality = q }
}

// WithNormalize enables or disables unit-energy normalisation.
func WithNormalize(on bool) Option {
	return func(b *Bank) { b.normalize = on }
}

// WithMaxLength truncates impulse responses longer than seconds and fades
// out the last 50 ms of the kept part. Zero keeps full length.
func WithMaxLength(seconds float64) Option {
	return func(b *Bank) {
		if seconds >= 0 {
			b.maxLength = seconds
		}
	}
}

// New returns a bank over files. Files with unsupported extensions are
// skipped; files beyond MaxFiles are dropped. Both are logged.
func New(files []string, opts ...Option) *Bank {
	b := &Bank{
		logger:    logrus.StandardLogger(),
		decoders:  audiofile.DefaultRegistry(),
		quality:   resample.QualityBalanced,
		normalize: true,
		decoded:   make(map[int]*audiofile.Audio),
		converted: make(map[rateKey][][]float64),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	log := b.logger.WithField("function", "irbank.New")
	for _, f := range files {
		if !b.decoders.Supports(f) {
			log.WithField("file", f).Warn("skipping file with unsupported extension")
			continue
		}
		b.files = append(b.files, f)
	}
	sort.SliceStable(b.files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(b.files[i])) < strings.ToLower(filepath.Base(b.files[j]))
	})
	if len(b.files) > MaxFiles {
		log.WithField("dropped", len(b.files)-MaxFiles).Warn("too many impulse responses")
		b.files = b.files[:MaxFiles]
	}

	log.WithField("entries", b.NumIRs()).Info("impulse response bank ready")
	return b
}

// NumIRs returns the number of entries including Bypass.
func (b *Bank) NumIRs() int { return len(b.files) + 1 }

// IRFile returns the file behind index, or "" for Bypass and unknown
// indices.
func (b *Bank) IRFile(index int) string {
	if index < 1 || index > len(b.files) {
		return ""
	}
	return b.files[index-1]
}

// IRName returns the display name of index.
func (b *Bank) IRName(index int) string {
	switch {
	case index == 0:
		return BypassName
	case index < 0 || index > len(b.files):
		return NoIRName
	}
	base := filepath.Base(b.files[index-1])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Names returns every entry name in index order.
func (b *Bank) Names() []string {
	out := make([]string, b.NumIRs())
	for i := range out {
		out[i] = b.IRName(i)
	}
	return out
}

// GetIR returns the impulse response at index converted to sampleRate. The
// result is a copy the caller may keep.
func (b *Bank) GetIR(index int, sampleRate float64) ([][]float64, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, sampleRate)
	}
	if index == 0 {
		return [][]float64{{1}}, nil
	}
	if index < 0 || index > len(b.files) {
		return nil, fmt.Errorf("%w: %d", ErrNoIR, index)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := rateKey{index: index, rate: math.Float64bits(sampleRate)}
	if ir, ok := b.converted[key]; ok {
		return clone.Clone(ir), nil
	}

	a, err := b.decodeLocked(index)
	if err != nil {
		return nil, err
	}

	ir := a.Channels
	if a.SampleRate != sampleRate {
		ir, err = resample.Channels(a.Channels, a.SampleRate, sampleRate, resample.WithQuality(b.quality))
		if err != nil {
			return nil, fmt.Errorf("irbank: convert %s: %w", b.IRName(index), err)
		}
		b.logger.WithFields(logrus.Fields{
			"function": "Bank.GetIR",
			"index":    index,
			"from":     a.SampleRate,
			"to":       sampleRate,
		}).Debug("impulse response resampled")
	}

	b.converted[key] = ir
	return clone.Clone(ir), nil
}

func (b *Bank) decodeLocked(index int) (*audiofile.Audio, error) {
	if a, ok := b.decoded[index]; ok {
		return a, nil
	}

	path := b.files[index-1]
	a, err := b.decoders.Load(path)
	if err != nil {
		return nil, fmt.Errorf("irbank: %w", err)
	}
	if len(a.Channels) > maxIRChannels {
		a.Channels = a.Channels[:maxIRChannels]
	}
	if limit := int(b.maxLength * a.SampleRate); limit > 0 && a.Frames() > limit {
		fade := min(limit, int(tailFadeMs*a.SampleRate/1000))
		for ch := range a.Channels {
			a.Channels[ch] = a.Channels[ch][:limit]
			window.FadeOut(a.Channels[ch], fade)
		}
		b.logger.WithFields(logrus.Fields{
			"function": "Bank.GetIR",
			"file":     path,
			"frames":   limit,
		}).Debug("impulse response truncated")
	}
	if b.normalize {
		normalize(a.Channels)
	}

	b.decoded[index] = a
	b.logger.WithFields(logrus.Fields{
		"function":   "Bank.GetIR",
		"file":       path,
		"channels":   len(a.Channels),
		"frames":     a.Frames(),
		"sampleRate": a.SampleRate,
	}).Debug("impulse response decoded")
	return a, nil
}

// normalize scales every channel by the same factor so the loudest channel
// has unit energy. Silent IRs are left alone.
func normalize(channels [][]float64) {
	peak := 0.0
	for _, ch := range channels {
		peak = math.Max(peak, vecmath.DotProduct(ch, ch))
	}
	if peak == 0 {
		return
	}
	g := 1 / math.Sqrt(peak)
	for _, ch := range channels {
		vecmath.ScaleBlockInPlace(ch, g)
	}
}
