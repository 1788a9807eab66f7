package conv

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Partitioned is a streaming, uniformly partitioned overlap-save
// convolver. The kernel is cut into blocks of blockSize samples whose
// spectra are multiplied against a frequency-domain delay line of past
// input blocks. Input and output pass through FIFOs, so Process accepts
// any host block size at a fixed latency of blockSize samples.
//
// Process does not allocate. A Partitioned is not safe for concurrent use.
type Partitioned struct {
	blockSize int
	fftSize   int
	kernelLen int
	plan      *algofft.Plan[complex128]

	spectra [][]complex128 // kernel partitions, oldest delay last
	fdl     [][]complex128 // input spectra ring, newest at fdlPos
	fdlPos  int

	window  []float64 // previous and current input block
	scratch []complex128
	acc     []complex128

	input  []float64
	output []float64
	pos    int
}

// MinBlockSize is the smallest accepted partition size.
const MinBlockSize = 16

// NewPartitioned prepares kernel for streaming convolution. blockSize must
// be a power of two of at least MinBlockSize.
func NewPartitioned(kernel []float64, blockSize int) (*Partitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}
	if !isPowerOf2(blockSize) || blockSize < MinBlockSize {
		return nil, fmt.Errorf("%w: %d is not a power of two >= %d", ErrInvalidBlockSize, blockSize, MinBlockSize)
	}

	fftSize := 2 * blockSize
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: failed to create FFT plan: %w", err)
	}

	parts := (len(kernel) + blockSize - 1) / blockSize
	p := &Partitioned{
		blockSize: blockSize,
		fftSize:   fftSize,
		kernelLen: len(kernel),
		plan:      plan,
		spectra:   make([][]complex128, parts),
		fdl:       make([][]complex128, parts),
		window:    make([]float64, fftSize),
		scratch:   make([]complex128, fftSize),
		acc:       make([]complex128, fftSize),
		input:     make([]float64, blockSize),
		output:    make([]float64, blockSize),
	}

	for k := range parts {
		clear(p.scratch)
		chunk := kernel[k*blockSize : min((k+1)*blockSize, len(kernel))]
		for i, v := range chunk {
			p.scratch[i] = complex(v, 0)
		}
		p.spectra[k] = make([]complex128, fftSize)
		if err := plan.Forward(p.spectra[k], p.scratch); err != nil {
			return nil, fmt.Errorf("conv: failed to compute kernel FFT: %w", err)
		}
		p.fdl[k] = make([]complex128, fftSize)
	}

	return p, nil
}

// Latency returns the processing delay in samples.
func (p *Partitioned) Latency() int { return p.blockSize }

// BlockSize returns the partition size.
func (p *Partitioned) BlockSize() int { return p.blockSize }

// KernelLen returns the kernel length.
func (p *Partitioned) KernelLen() int { return p.kernelLen }

// Partitions returns the number of kernel partitions.
func (p *Partitioned) Partitions() int { return len(p.spectra) }

// Process convolves src into dst. dst and src must have the same length and
// may alias.
func (p *Partitioned) Process(dst, src []float64) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: dst %d, src %d", ErrLengthMismatch, len(dst), len(src))
	}

	for i, x := range src {
		p.input[p.pos] = x
		dst[i] = p.output[p.pos]
		p.pos++
		if p.pos == p.blockSize {
			if err := p.processBlock(); err != nil {
				return err
			}
			p.pos = 0
		}
	}
	return nil
}

func (p *Partitioned) processBlock() error {
	copy(p.window, p.window[p.blockSize:])
	copy(p.window[p.blockSize:], p.input)
	for i, v := range p.window {
		p.scratch[i] = complex(v, 0)
	}

	p.fdlPos = (p.fdlPos + len(p.fdl) - 1) % len(p.fdl)
	if err := p.plan.Forward(p.fdl[p.fdlPos], p.scratch); err != nil {
		return fmt.Errorf("conv: forward FFT failed: %w", err)
	}

	clear(p.acc)
	for k, h := range p.spectra {
		x := p.fdl[(p.fdlPos+k)%len(p.fdl)]
		for i := range p.acc {
			p.acc[i] += x[i] * h[i]
		}
	}

	if err := p.plan.Inverse(p.scratch, p.acc); err != nil {
		return fmt.Errorf("conv: inverse FFT failed: %w", err)
	}

	// The first half holds circular wrap-around.
	for i := range p.output {
		p.output[i] = real(p.scratch[p.blockSize+i])
	}
	return nil
}

// Reset clears the input history and pending output.
func (p *Partitioned) Reset() {
	for _, x := range p.fdl {
		clear(x)
	}
	clear(p.window)
	clear(p.input)
	clear(p.output)
	p.pos = 0
	p.fdlPos = 0
}
