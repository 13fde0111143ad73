package conv

import (
	"gonum.org/v1/gonum/floats"

	"neuralfield/internal/kernel"
)

// SlidingWindow computes the Step kernel convolution in O(N) without
// materializing the kernel. Each rectangular pulse is a window sum that is
// slid around the ring by adding the node entering on the right corner and
// removing the node leaving on the left corner.
type SlidingWindow struct {
	size   int
	params kernel.Params
	pulse  []float64
}

func NewSlidingWindow(size int) *SlidingWindow {
	return &SlidingWindow{
		size:  size,
		pulse: make([]float64, size),
	}
}

func (s *SlidingWindow) Name() string { return SlidingWindowName }

func (s *SlidingWindow) Size() int { return s.size }

func (s *SlidingWindow) Configure(p kernel.Params) {
	s.params = p
}

func (s *SlidingWindow) Lateral(dst, fu []float64) []float64 {
	checkLen(s, fu)
	dst = ensureLen(dst, s.size)
	PulseSum(dst, fu, s.params.Ae, s.params.Se())
	PulseSum(s.pulse, fu, s.params.Ai(), s.params.Si)
	floats.Sub(dst, s.pulse)
	return dst
}

// PulseSum writes into dst, for every node i, amp times the sum of fu over the
// nodes inside a pulse of radius r centered on i. len(dst) must equal len(fu).
func PulseSum(dst, fu []float64, amp, r float64) {
	n := len(fu)
	if n == 0 {
		return
	}
	support := kernel.PulseSupport(n, r)
	switch {
	case support.Whole:
		total := amp * floats.Sum(fu)
		for i := range dst {
			dst[i] = total
		}
		return
	case support.HalfWidth == 0:
		floats.ScaleTo(dst, amp, fu)
		return
	}

	w := support.HalfWidth
	// Window of node 0 spans [-w, w]: fu[0..w] plus the wrapped tail fu[n-w..n-1].
	acc := floats.Sum(fu[:w+1]) + floats.Sum(fu[n-w:])
	dst[0] = acc

	right := w
	left := n - w
	for i := 1; i < n; i++ {
		right++
		if right >= n {
			right = 0
		}
		acc += fu[right] - fu[left]
		dst[i] = acc
		left++
		if left >= n {
			left = 0
		}
	}
	floats.Scale(amp, dst)
}
