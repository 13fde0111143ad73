// Package conv computes the lateral interaction term of a ring field: the
// circular convolution of the field output with a weight kernel indexed by
// toroidal distance.
package conv

import (
	"errors"
	"fmt"

	"neuralfield/internal/kernel"
)

var ErrUnsupportedFamily = errors.New("kernel family not supported by strategy")

// Strategy computes lateral(i) = sum_j fu(j) * w(distance(i, j)) for every
// node of a fixed-size ring. Configure is called whenever kernel parameters
// change; Lateral is called once per field step.
//
// Implementations keep scratch buffers and are not safe for concurrent use.
type Strategy interface {
	Name() string
	Size() int
	Configure(p kernel.Params)
	// Lateral writes the lateral term for fu into dst and returns it. dst is
	// allocated when nil. fu and dst must not alias.
	Lateral(dst, fu []float64) []float64
}

const (
	TransformName     = "transform"
	SlidingWindowName = "sliding_window"
)

// New selects the strategy for a family: the sliding window when fast is set
// (Step only), the transform-domain path otherwise.
func New(f kernel.Family, size int, fast bool) (Strategy, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %s", kernel.ErrInvalidKernelFamily, f)
	}
	if size <= 0 {
		return nil, fmt.Errorf("ring size must be positive, got %d", size)
	}
	if fast {
		if f != kernel.Step {
			return nil, fmt.Errorf("%w: %s uses %s", ErrUnsupportedFamily, SlidingWindowName, f)
		}
		return NewSlidingWindow(size), nil
	}
	return NewTransform(f, size), nil
}

func ensureLen(dst []float64, n int) []float64 {
	if cap(dst) < n {
		return make([]float64, n)
	}
	return dst[:n]
}

func checkLen(s Strategy, fu []float64) {
	if len(fu) != s.Size() {
		panic(fmt.Sprintf("conv: %s lateral input length %d != ring size %d", s.Name(), len(fu), s.Size()))
	}
}
