package kernel

// Distance returns the shortest wraparound distance covered by an offset d on
// a ring of n nodes. d may be negative or larger than n.
func Distance(n, d int) int {
	if n <= 0 {
		return 0
	}
	d %= n
	if d < 0 {
		d = -d
	}
	if n-d < d {
		return n - d
	}
	return d
}

// Distances returns the toroidal distance profile for offsets 0..n-1.
func Distances(n int) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for j := range out {
		out[j] = Distance(n, j)
	}
	return out
}
