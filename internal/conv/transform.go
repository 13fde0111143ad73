package conv

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"neuralfield/internal/kernel"
)

// Transform is the generic circular convolution: both the output and the
// kernel are moved to the frequency domain, multiplied and transformed back.
// The kernel spectrum is computed once per Configure.
type Transform struct {
	family kernel.Family
	size   int

	fft      *fourier.FFT
	weights  []float64
	spectrum []complex128
	scratch  []complex128
}

func NewTransform(f kernel.Family, size int) *Transform {
	t := &Transform{
		family:  f,
		size:    size,
		fft:     fourier.NewFFT(size),
		weights: make([]float64, size),
	}
	return t
}

func (t *Transform) Name() string { return TransformName }

func (t *Transform) Size() int { return t.size }

func (t *Transform) Family() kernel.Family { return t.family }

func (t *Transform) Configure(p kernel.Params) {
	t.weights = kernel.VectorInto(t.weights, t.family, t.size, p)
	t.spectrum = t.fft.Coefficients(t.spectrum, t.weights)
}

// Weights returns a copy of the materialized kernel vector.
func (t *Transform) Weights() []float64 {
	return append([]float64(nil), t.weights...)
}

func (t *Transform) Lateral(dst, fu []float64) []float64 {
	checkLen(t, fu)
	dst = ensureLen(dst, t.size)
	if t.spectrum == nil {
		for i := range dst {
			dst[i] = 0
		}
		return dst
	}
	if t.size == 1 {
		dst[0] = fu[0] * t.weights[0]
		return dst
	}

	t.scratch = t.fft.Coefficients(t.scratch, fu)
	for k := range t.scratch {
		t.scratch[k] *= t.spectrum[k]
	}
	// Coefficients followed by Sequence scales the sequence by its length.
	dst = t.fft.Sequence(dst, t.scratch)
	inv := 1.0 / float64(t.size)
	for i := range dst {
		dst[i] *= inv
	}
	return dst
}
