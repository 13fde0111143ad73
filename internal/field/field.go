// Package field implements a one-dimensional neural field on a ring,
// integrated with explicit Euler steps:
//
//	u <- u + dt_tau * (-u + lateral(f(u)) + I + h)
//
// where lateral is the circular convolution of the transfer output with the
// configured weight kernel.
package field

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"neuralfield/internal/conv"
	"neuralfield/internal/kernel"
	"neuralfield/internal/nn"
)

var (
	ErrInvalidSize       = errors.New("field size must be positive")
	ErrDimensionMismatch = errors.New("input dimension mismatch")
	ErrNotConfigured     = errors.New("field parameters are not set")
	ErrParamCount        = errors.New("unexpected parameter count")
)

// ParamCount is the length of a flat parameter vector
// [dt_tau, h, Ae, ke, ki, si].
const ParamCount = 6

// State is the lifecycle position of a Field.
type State int

const (
	Uninitialized State = iota
	Configured
	Running
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the construction surface of a Field. Kernel accepts
// dog|doe|dol|step|fast_step; Transfer accepts any registered transfer name.
type Config struct {
	Size     int
	Kernel   string
	Transfer string
}

// Params are the per-trial parameters.
type Params struct {
	DtTau  float64       `json:"dt_tau"`
	H      float64       `json:"h"`
	Kernel kernel.Params `json:"kernel"`
}

// ParamsFromVector reads [dt_tau, h, Ae, ke, ki, si].
func ParamsFromVector(v []float64) (Params, error) {
	if len(v) != ParamCount {
		return Params{}, fmt.Errorf("%w: want %d, got %d", ErrParamCount, ParamCount, len(v))
	}
	kp, err := kernel.ParamsFromSlice(v[2:])
	if err != nil {
		return Params{}, err
	}
	return Params{DtTau: v[0], H: v[1], Kernel: kp}, nil
}

func (p Params) Vector() []float64 {
	return append([]float64{p.DtTau, p.H}, p.Kernel.Slice()...)
}

// Field owns the state of one ring field. It is not safe for concurrent use;
// concurrent evaluations must each construct their own Field.
type Field struct {
	size     int
	family   kernel.Family
	transfer nn.TransferFunc
	strategy conv.Strategy

	params Params
	state  State

	u       []float64
	fu      []float64
	lateral []float64
}

func New(cfg Config) (*Field, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, cfg.Size)
	}
	family, err := kernel.ParseFamily(cfg.Kernel)
	if err != nil {
		return nil, err
	}
	transferName := cfg.Transfer
	if transferName == "" {
		transferName = "heaviside"
	}
	transfer, err := nn.GetTransfer(transferName)
	if err != nil {
		return nil, err
	}
	strategy, err := conv.New(family, cfg.Size, kernel.IsFastStep(cfg.Kernel))
	if err != nil {
		return nil, err
	}
	return NewWithStrategy(cfg.Size, family, transfer, strategy)
}

// NewWithStrategy builds a field around an explicit transfer function and
// convolution strategy.
func NewWithStrategy(size int, family kernel.Family, transfer nn.TransferFunc, strategy conv.Strategy) (*Field, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if transfer == nil {
		return nil, errors.New("transfer function is required")
	}
	if strategy == nil {
		return nil, errors.New("convolution strategy is required")
	}
	if strategy.Size() != size {
		return nil, fmt.Errorf("%w: strategy size %d != field size %d", ErrDimensionMismatch, strategy.Size(), size)
	}
	f := &Field{
		size:     size,
		family:   family,
		transfer: transfer,
		strategy: strategy,
		u:        make([]float64, size),
		fu:       make([]float64, size),
		lateral:  make([]float64, size),
	}
	nn.Apply(f.fu, f.u, f.transfer)
	return f, nil
}

func (f *Field) Size() int { return f.size }

func (f *Field) Family() kernel.Family { return f.family }

func (f *Field) Strategy() string { return f.strategy.Name() }

func (f *Field) State() State { return f.state }

func (f *Field) Params() Params { return f.params }

// SetParams stores the integration scalars and reconfigures the lateral
// strategy. It may be called any number of times; the field state is kept.
func (f *Field) SetParams(p Params) {
	f.params = p
	f.strategy.Configure(p.Kernel)
	if f.state == Uninitialized {
		f.state = Configured
	}
}

// SetParamVector is SetParams for a flat optimizer vector.
func (f *Field) SetParamVector(v []float64) error {
	p, err := ParamsFromVector(v)
	if err != nil {
		return err
	}
	f.SetParams(p)
	return nil
}

// Step advances the field by one Euler step under input.
func (f *Field) Step(input []float64) error {
	if len(input) != f.size {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(input), f.size)
	}
	if f.state == Uninitialized {
		return ErrNotConfigured
	}

	f.lateral = f.strategy.Lateral(f.lateral, f.fu)
	dt, h := f.params.DtTau, f.params.H
	// lateral <- lateral + input + h - u, then u <- u + dt*lateral.
	floats.Add(f.lateral, input)
	floats.AddConst(h, f.lateral)
	floats.Sub(f.lateral, f.u)
	floats.AddScaled(f.u, dt, f.lateral)
	nn.Apply(f.fu, f.u, f.transfer)

	f.state = Running
	return nil
}

// Output returns a copy of the transfer output f(u).
func (f *Field) Output() []float64 {
	return append([]float64(nil), f.fu...)
}

// OutputInto copies the transfer output into dst, allocating when needed.
func (f *Field) OutputInto(dst []float64) []float64 {
	if cap(dst) < f.size {
		dst = make([]float64, f.size)
	}
	dst = dst[:f.size]
	copy(dst, f.fu)
	return dst
}

// Activation returns a copy of the raw activation u.
func (f *Field) Activation() []float64 {
	return append([]float64(nil), f.u...)
}

// Reset zeroes the activation and recomputes the output; parameters are kept.
func (f *Field) Reset() {
	for i := range f.u {
		f.u[i] = 0
	}
	nn.Apply(f.fu, f.u, f.transfer)
	if f.state == Running {
		f.state = Configured
	}
}
