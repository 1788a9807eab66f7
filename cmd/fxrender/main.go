// Command fxrender renders an audio file through the effect rack.
//
// Usage:
//
//	fxrender [flags] -in input.wav -out output.wav
//
// The rack is configured from a JSON preset as written by
// effectchain.Engine.MarshalState. Without a preset the rack is empty and
// the input passes through unchanged. Impulse responses for the
// convolution module are read from -irs.
//
// Examples:
//
//	fxrender -in dry.wav -out wet.wav -preset hall.json
//	fxrender -in loop.mp3 -out wet.wav -preset conv.json -irs ./irs -tail 4
//	fxrender -in vox.wav -out vox-delay.wav -preset delay.json -bpm 96
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-fxrack/dsp/core"
	"github.com/cwbudde/algo-fxrack/dsp/dither"
	"github.com/cwbudde/algo-fxrack/dsp/effectchain"
	"github.com/cwbudde/algo-fxrack/dsp/effects"
	"github.com/cwbudde/algo-fxrack/internal/audiofile"
	"github.com/cwbudde/algo-fxrack/irbank"
	"github.com/cwbudde/algo-fxrack/measure/level"
)

type config struct {
	in        string
	out       string
	preset    string
	irDir     string
	blockSize int
	bitDepth  int
	tail      float64
	bpm       float64
	irWait    time.Duration
	irMax     float64
	dither    string
	shaping   string
}

var errUsage = errors.New("invalid arguments")

// validate rejects settings the render loop or the WAV writer cannot use.
func (c config) validate() error {
	switch {
	case c.in == "" || c.out == "":
		return fmt.Errorf("%w: -in and -out are required", errUsage)
	case c.blockSize <= 0:
		return fmt.Errorf("%w: -block must be > 0: %d", errUsage, c.blockSize)
	case c.bitDepth != 16 && c.bitDepth != 24:
		return fmt.Errorf("%w: -bits must be 16 or 24: %d", errUsage, c.bitDepth)
	case c.tail < 0:
		return fmt.Errorf("%w: -tail must be >= 0: %g", errUsage, c.tail)
	case c.irMax < 0:
		return fmt.Errorf("%w: -irmax must be >= 0: %g", errUsage, c.irMax)
	case c.irWait <= 0:
		return fmt.Errorf("%w: -irwait must be > 0: %s", errUsage, c.irWait)
	}
	return nil
}

func main() {
	var cfg config
	flag.StringVar(&cfg.in, "in", "", "input audio file (wav, aiff, mp3, ogg)")
	flag.StringVar(&cfg.out, "out", "", "output WAV file")
	flag.StringVar(&cfg.preset, "preset", "", "JSON rack preset")
	flag.StringVar(&cfg.irDir, "irs", "", "directory of impulse responses for the convolution module")
	flag.IntVar(&cfg.blockSize, "block", 512, "processing block size in frames")
	flag.IntVar(&cfg.bitDepth, "bits", 24, "output bit depth (16 or 24)")
	flag.StringVar(&cfg.dither, "dither", "tpdf", "output dither: none, rpdf or tpdf")
	flag.StringVar(&cfg.shaping, "shape", "none", "noise shaping: none, efb, 2sc, 3fc or 9fc")
	flag.Float64Var(&cfg.tail, "tail", 2, "seconds of silence appended for effect tails")
	flag.Float64Var(&cfg.bpm, "bpm", 0, "host tempo for tempo-synced delays, 0 for none")
	flag.Float64Var(&cfg.irMax, "irmax", 0, "truncate impulse responses to this many seconds, 0 for full length")
	flag.DurationVar(&cfg.irWait, "irwait", 30*time.Second, "how long to wait for impulse responses to load")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fxrender [flags] -in input -out output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Renders an audio file through the effect rack.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fxrender -in dry.wav -out wet.wav -preset hall.json\n")
		fmt.Fprintf(os.Stderr, "  fxrender -in loop.mp3 -out wet.wav -preset conv.json -irs ./irs\n")
	}
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("render failed")
		os.Exit(1)
	}
}

func run(cfg config, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{"function": "run"})

	ditherType, err := dither.ParseType(cfg.dither)
	if err != nil {
		return err
	}
	shaping, err := dither.ParseShaping(cfg.shaping)
	if err != nil {
		return err
	}

	src, err := audiofile.Load(cfg.in)
	if err != nil {
		return err
	}
	if len(src.Channels) > 2 {
		log.WithField("channels", len(src.Channels)).Warn("only the first two channels are rendered")
		src.Channels = src.Channels[:2]
	}

	opts := []effectchain.Option{effectchain.WithLogger(logger)}
	if cfg.irDir != "" {
		files, err := listFiles(cfg.irDir)
		if err != nil {
			return err
		}
		bank := irbank.New(files, irbank.WithLogger(logger), irbank.WithMaxLength(cfg.irMax))
		log.WithField("irs", bank.NumIRs()-1).Info("impulse response bank loaded")
		opts = append(opts, effectchain.WithIRProvider(bank))
	}
	if cfg.bpm > 0 {
		bpm := cfg.bpm
		opts = append(opts, effectchain.WithTempoSource(effects.TempoFunc(func() (float64, bool) {
			return bpm, true
		})))
	}

	engine := effectchain.New(opts...)
	defer func() {
		if err := engine.Close(); err != nil {
			log.WithError(err).Warn("engine close failed")
		}
	}()

	if cfg.preset != "" {
		data, err := os.ReadFile(cfg.preset)
		if err != nil {
			return fmt.Errorf("read preset: %w", err)
		}
		if err := engine.UnmarshalState(data); err != nil {
			return fmt.Errorf("preset %s: %w", cfg.preset, err)
		}
	}

	spec := core.NewStreamSpec(
		core.WithSampleRate(src.SampleRate),
		core.WithBlockSize(cfg.blockSize),
		core.WithChannels(len(src.Channels)),
	)
	if err := engine.Prepare(spec); err != nil {
		return err
	}

	if err := settle(engine, spec, cfg.irWait); err != nil {
		return err
	}

	inLevels := level.MeasureChannels(src.Channels)
	out := render(engine, src, spec.BlockSize, int(cfg.tail*src.SampleRate))
	outLevels := level.MeasureChannels(out.Channels)
	for ch := range outLevels {
		entry := log.WithFields(logrus.Fields{
			"channel": ch,
			"inPeak":  fmt.Sprintf("%.1f dBFS", inLevels[ch].PeakDB),
			"inRMS":   fmt.Sprintf("%.1f dBFS", inLevels[ch].RMSDB),
			"outPeak": fmt.Sprintf("%.1f dBFS", outLevels[ch].PeakDB),
			"outRMS":  fmt.Sprintf("%.1f dBFS", outLevels[ch].RMSDB),
		})
		if outLevels[ch].Clipped > 0 {
			entry.WithField("clipped", outLevels[ch].Clipped).Warn("output clips")
			continue
		}
		entry.Info("rendered")
	}

	for ch := range out.Channels {
		q, err := dither.NewQuantizer(cfg.bitDepth, dither.WithType(ditherType), dither.WithShaping(shaping))
		if err != nil {
			return err
		}
		q.ProcessInPlace(out.Channels[ch])
	}

	return writeOutput(cfg.out, out, cfg.bitDepth)
}

// settle runs one silent block so modules pick up their parameters, then
// waits for background loads to finish.
func settle(engine *effectchain.Engine, spec core.StreamSpec, timeout time.Duration) error {
	silence := make([][]float64, spec.Channels)
	for ch := range silence {
		silence[ch] = make([]float64, spec.BlockSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		for ch := range silence {
			clear(silence[ch])
		}
		engine.Process(silence)
		if !engine.Loading() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.New("timed out waiting for impulse responses")
		case <-ticker.C:
		}
	}
}

func render(engine *effectchain.Engine, src *audiofile.Audio, blockSize, tail int) *audiofile.Audio {
	frames := src.Frames() + max(tail, 0)
	out := &audiofile.Audio{
		SampleRate: src.SampleRate,
		Channels:   make([][]float64, len(src.Channels)),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, frames)
		copy(out.Channels[ch], src.Channels[ch])
	}

	block := make([][]float64, len(out.Channels))
	for start := 0; start < frames; start += blockSize {
		end := min(start+blockSize, frames)
		for ch := range block {
			block[ch] = out.Channels[ch][start:end]
		}
		engine.Process(block)
	}
	return out
}

func writeOutput(path string, a *audiofile.Audio, bitDepth int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return audiofile.WriteWAV(f, a, bitDepth)
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read IR directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
