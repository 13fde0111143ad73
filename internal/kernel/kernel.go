package kernel

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidKernelFamily = errors.New("invalid kernel family")

// Family identifies the functional form of the lateral weight kernel.
type Family int

const (
	DOG Family = iota
	DOE
	DOL
	Step
)

func (f Family) String() string {
	switch f {
	case DOG:
		return "dog"
	case DOE:
		return "doe"
	case DOL:
		return "dol"
	case Step:
		return "step"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Valid reports whether f is one of the known families.
func (f Family) Valid() bool {
	return f >= DOG && f <= Step
}

// ParseFamily resolves a family name. The fast variants ("fast_step",
// "optim_step") resolve to Step; callers that care about the convolution
// strategy use IsFastStep.
func ParseFamily(name string) (Family, error) {
	switch NormalizeFamilyName(name) {
	case "dog":
		return DOG, nil
	case "doe":
		return DOE, nil
	case "dol":
		return DOL, nil
	case "step", "fast_step":
		return Step, nil
	default:
		return 0, fmt.Errorf("%w: %q (options: dog, doe, dol, step, fast_step)", ErrInvalidKernelFamily, name)
	}
}

// IsFastStep reports whether name selects the sliding-window STEP path.
func IsFastStep(name string) bool {
	return NormalizeFamilyName(name) == "fast_step"
}

func NormalizeFamilyName(name string) string {
	switch key := strings.TrimSpace(strings.ToLower(name)); key {
	case "optim_step", "fast-step", "faststep":
		return "fast_step"
	case "stepwise":
		return "step"
	default:
		return key
	}
}

// Params holds the four kernel parameters shared by every family. The
// excitatory lobe has scale Ke*Si and amplitude Ae; the inhibitory lobe has
// scale Si and amplitude Ki*Ae.
type Params struct {
	Ae float64 `json:"ae"`
	Ke float64 `json:"ke"`
	Ki float64 `json:"ki"`
	Si float64 `json:"si"`
}

// ParamsFromSlice reads (Ae, ke, ki, si) from v.
func ParamsFromSlice(v []float64) (Params, error) {
	if len(v) != 4 {
		return Params{}, fmt.Errorf("kernel params require 4 values, got %d", len(v))
	}
	return Params{Ae: v[0], Ke: v[1], Ki: v[2], Si: v[3]}, nil
}

func (p Params) Slice() []float64 {
	return []float64{p.Ae, p.Ke, p.Ki, p.Si}
}

// Se is the excitatory scale.
func (p Params) Se() float64 { return p.Ke * p.Si }

// Ai is the inhibitory amplitude.
func (p Params) Ai() float64 { return p.Ki * p.Ae }

// Weight evaluates the kernel at toroidal distance dx on a ring of n nodes.
// n only matters for Step, whose pulses saturate once they cover the ring.
// Step membership follows PulseSupport (|dx| <= floor(r), whole ring once
// r >= n/2, center only below r = 1) rather than the strict |dx| < r.
// Out-of-range parameters never panic; degenerate scales may yield NaN or Inf.
func Weight(f Family, n int, dx float64, p Params) float64 {
	ax := math.Abs(dx)
	se, si := p.Se(), p.Si
	switch f {
	case DOG:
		return p.Ae*math.Exp(-dx*dx/(2.0*se*se)) - p.Ai()*math.Exp(-dx*dx/(2.0*si*si))
	case DOE:
		return p.Ae*math.Exp(-4.0*ax/(se*se)) - p.Ai()*math.Exp(-4.0*ax/(si*si))
	case DOL:
		return p.Ae*posPart(1.0-ax/(2.0*se)) - p.Ai()*posPart(1.0-ax/(2.0*si))
	case Step:
		return p.Ae*indicator(InPulse(n, ax, se)) - p.Ai()*indicator(InPulse(n, ax, si))
	default:
		return 0
	}
}

// Vector materializes the kernel over the n toroidal offsets 0..n-1.
func Vector(f Family, n int, p Params) []float64 {
	return VectorInto(nil, f, n, p)
}

// VectorInto is Vector writing into dst when it has capacity.
func VectorInto(dst []float64, f Family, n int, p Params) []float64 {
	if n <= 0 {
		return dst[:0]
	}
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for j := range dst {
		dst[j] = Weight(f, n, float64(Distance(n, j)), p)
	}
	return dst
}

func posPart(x float64) float64 {
	if x >= 0 {
		return x
	}
	return 0
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
