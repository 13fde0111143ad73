package scape

import "math"

// Gaussian returns amp*exp(-(i-center)^2/(2 sigma^2)) for i in [0,size),
// measuring distance along the line, without wraparound.
func Gaussian(center, sigma, amp float64, size int) []float64 {
	out := make([]float64, size)
	addGaussian(out, center, sigma, amp)
	return out
}

func addGaussian(dst []float64, center, sigma, amp float64) {
	for i := range dst {
		d := float64(i) - center
		dst[i] += amp * math.Exp(-d*d/(2*sigma*sigma))
	}
}
