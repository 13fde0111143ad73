package tuning

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

func sphere(center []float64) ObjectiveFn {
	return func(_ context.Context, x []float64) (float64, error) {
		var sum float64
		for i := range x {
			d := x[i] - center[i]
			sum += d * d
		}
		return sum, nil
	}
}

func box(dim int, lo, hi float64) Bounds {
	b := Bounds{Lower: make([]float64, dim), Upper: make([]float64, dim)}
	for i := 0; i < dim; i++ {
		b.Lower[i], b.Upper[i] = lo, hi
	}
	return b
}

func TestBoundsValidate(t *testing.T) {
	if err := box(3, -1, 1).Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	invalid := []Bounds{
		{},
		{Lower: []float64{0}, Upper: []float64{1, 2}},
		{Lower: []float64{2}, Upper: []float64{1}},
	}
	for _, b := range invalid {
		if err := b.Validate(); !errors.Is(err, ErrInvalidBounds) {
			t.Fatalf("expected ErrInvalidBounds for %+v, got %v", b, err)
		}
	}
}

func TestBoundsClampAndSample(t *testing.T) {
	b := Bounds{Lower: []float64{0, -1}, Upper: []float64{1, 1}}
	x := []float64{-3, 4}
	b.Clamp(x)
	if x[0] != 0 || x[1] != 1 {
		t.Fatalf("unexpected clamp result %v", x)
	}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		s := b.Sample(rng)
		if s[0] < 0 || s[0] > 1 || s[1] < -1 || s[1] > 1 {
			t.Fatalf("sample out of bounds: %v", s)
		}
	}
}

func TestDefaultBounds(t *testing.T) {
	b := DefaultBounds(100)
	if b.Dim() != 6 {
		t.Fatalf("expected six parameters, got %d", b.Dim())
	}
	wantLower := []float64{0, -1, 0, 0.001, 0, 1}
	wantUpper := []float64{0.3, 1, 5, 1, 1, 100}
	for i := range wantLower {
		if b.Lower[i] != wantLower[i] || b.Upper[i] != wantUpper[i] {
			t.Fatalf("unexpected bounds %+v", b)
		}
	}
	if err := DefaultBounds(0).Validate(); err != nil {
		t.Fatalf("degenerate ring must still give valid bounds: %v", err)
	}
}

func TestFromName(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	cases := map[string]string{
		"":          SwarmName,
		"PSO":       SwarmName,
		"swarm":     SwarmName,
		"exoself":   HillClimberName,
		"hillclimb": HillClimberName,
	}
	for in, want := range cases {
		opt, err := FromName(in, rng)
		if err != nil {
			t.Fatalf("from name %q: %v", in, err)
		}
		if opt.Name() != want {
			t.Fatalf("from name %q: got %s want %s", in, opt.Name(), want)
		}
	}
	if _, err := FromName("annealing", rng); !errors.Is(err, ErrUnknownOptimizer) {
		t.Fatalf("expected ErrUnknownOptimizer, got %v", err)
	}
}
