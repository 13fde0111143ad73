package nn

import "math"

// Heaviside returns 1 for x >= 0 and 0 otherwise. The value at exactly zero is
// 1, so a freshly reset field reads as fully active under this transfer.
func Heaviside(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}

// Sigmoid returns the logistic a / (1 + exp(b*(x-x0))). The default field
// transfer uses a=1, b=-1, x0=0.
func Sigmoid(a, b, x0 float64) TransferFunc {
	return func(x float64) float64 {
		return a / (1.0 + math.Exp(b*(x-x0)))
	}
}

// Rectified returns max(x, 0).
func Rectified(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

// Apply evaluates fn on every element of src and stores the results in dst,
// allocating dst when it is nil or too short. dst and src may alias.
func Apply(dst, src []float64, fn TransferFunc) []float64 {
	if len(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, x := range src {
		dst[i] = fn(x)
	}
	return dst
}
