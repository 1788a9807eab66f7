// Command rt60probe measures how closely the algorithmic reverbs meet their
// decay-time setting.
//
// Usage:
//
//	rt60probe [flags] [hall|plate ...]
//
// Without arguments it probes both algorithms. Each reverb is fed a unit
// impulse, or with -burst an interrupted noise burst, at full wet mix. The
// left output after the excitation is analysed with a Schroeder backward
// integral.
//
// Examples:
//
//	rt60probe
//	rt60probe -decays 0.5,2,8 hall
//	rt60probe -rooms 0.5,1.5 -damping 20000 plate
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-fxrack/dsp/effects/reverb"
	"github.com/cwbudde/algo-fxrack/dsp/signal"
	"github.com/cwbudde/algo-fxrack/measure/ir"
)

const blockSize = 512

type loopTimer interface {
	LoopTime() float64
}

type probe struct {
	typ   reverb.Type
	room  float64
	decay float64
}

func main() {
	rate := flag.Float64("rate", 48000, "sample rate in Hz")
	decays := flag.String("decays", "0.5,1,2,5,10", "comma-separated decay times in seconds")
	rooms := flag.String("rooms", "0.5,1,1.5", "comma-separated room sizes")
	damp := flag.Float64("damping", 20000, "damping cutoff in Hz")
	depth := flag.Float64("mod", 0, "modulation depth 0..1")
	maxSeconds := flag.Float64("max", 30, "longest rendered impulse response in seconds")
	burst := flag.Float64("burst", 0, "excite with this many seconds of noise instead of an impulse")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rt60probe [flags] [hall|plate ...]\n\n")
		fmt.Fprintf(os.Stderr, "Renders reverb impulse responses and prints measured decay metrics.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rt60probe -decays 0.5,2,8 hall\n")
		fmt.Fprintf(os.Stderr, "  rt60probe -rooms 0.5,1.5 plate\n")
	}
	flag.Parse()

	types, err := parseTypes(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	decayList, err := parseList(*decays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: -decays: %v\n", err)
		os.Exit(1)
	}
	roomList, err := parseList(*rooms)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: -rooms: %v\n", err)
		os.Exit(1)
	}

	var probes []probe
	for _, t := range types {
		for _, room := range roomList {
			for _, decay := range decayList {
				probes = append(probes, probe{typ: t, room: room, decay: decay})
			}
		}
	}

	params := reverb.DefaultParams()
	params.Mix = 1
	params.Damping = *damp
	params.ModDepth = *depth
	params.PreDelayMs = 0

	gen, err := signal.NewGenerator(*rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	ex := excitation{gen: gen, burst: *burst}

	if err := printProbes(probes, params, ex, *maxSeconds); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseTypes(names []string) ([]reverb.Type, error) {
	if len(names) == 0 {
		return reverb.Types, nil
	}
	types := make([]reverb.Type, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "hall":
			types = append(types, reverb.Hall)
		case "plate":
			types = append(types, reverb.Plate)
		default:
			return nil, fmt.Errorf("unknown reverb type %q (want hall or plate)", name)
		}
	}
	return types, nil
}

func parseList(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list %q", s)
	}
	return out, nil
}

type excitation struct {
	gen   *signal.Generator
	burst float64
}

// excite returns the mono excitation followed by tail seconds of silence
// and the frame at which the free decay starts.
func (e excitation) excite(tail float64) ([]float64, int, error) {
	if e.burst <= 0 {
		x, err := e.gen.Impulse(tail)
		return x, 0, err
	}
	x, err := e.gen.NoiseBurst(1, e.burst, tail)
	return x, int(e.burst * e.gen.SampleRate()), err
}

func printProbes(probes []probe, base reverb.Params, ex excitation, maxSeconds float64) error {
	rate := ex.gen.SampleRate()
	analyzer := ir.NewAnalyzer(rate)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Type\tRoom\tDecay [s]\tLoop [ms]\tFeedback\tRT60 [s]\tEDT [s]\tC80 [dB]\tError [%%]\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "----\t----\t---------\t---------\t--------\t--------\t-------\t--------\t---------\n"); err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}

	for _, p := range probes {
		params := base
		params.RoomSize = p.room
		params.DecayTime = p.decay

		engine := reverb.New(p.typ)
		if err := engine.Prepare(rate); err != nil {
			return err
		}
		engine.SetParams(params)
		applied := engine.Params()

		input, start, err := ex.excite(math.Min(maxSeconds, 1.5*applied.DecayTime+0.5))
		if err != nil {
			return err
		}
		response := render(engine, input)[start:]

		loopMs := math.NaN()
		if lt, ok := engine.(loopTimer); ok {
			loopMs = 1000 * lt.LoopTime()
		}

		rt60, edt, c80, errPct := "-", "-", "-", "-"
		if m, err := analyzer.Analyze(response); err == nil {
			rt60 = fmt.Sprintf("%.3f", m.RT60)
			edt = fmt.Sprintf("%.3f", m.EDT)
			c80 = fmt.Sprintf("%.2f", m.C80)
			errPct = fmt.Sprintf("%+.1f", 100*(m.RT60-applied.DecayTime)/applied.DecayTime)
		}

		if _, err := fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.5f\t%s\t%s\t%s\t%s\n",
			p.typ,
			applied.RoomSize,
			applied.DecayTime,
			loopMs,
			engine.FeedbackGain(),
			rt60,
			edt,
			c80,
			errPct,
		); err != nil {
			return fmt.Errorf("failed to write output row: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// render feeds input into both channels and returns the left output.
func render(engine reverb.Engine, input []float64) []float64 {
	out := make([]float64, len(input))
	block := [][]float64{make([]float64, blockSize), make([]float64, blockSize)}
	for start := 0; start < len(input); start += blockSize {
		n := min(blockSize, len(input)-start)
		buf := [][]float64{block[0][:n], block[1][:n]}
		copy(buf[0], input[start:start+n])
		copy(buf[1], input[start:start+n])
		engine.Process(buf)
		copy(out[start:], buf[0])
	}
	return out
}
