package tuning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// ObjectiveFn scores a candidate parameter vector. Lower is better.
// Optimizers may call it from several goroutines at once.
type ObjectiveFn func(ctx context.Context, x []float64) (float64, error)

// ProgressFn is called once per epoch with the best fitness found so far.
type ProgressFn func(epoch int, best float64)

var (
	ErrInvalidBounds    = errors.New("invalid bounds")
	ErrUnknownOptimizer = errors.New("unknown optimizer")
)

// Bounds is the search box. Lower and Upper have the problem dimension.
type Bounds struct {
	Lower []float64 `json:"lower"`
	Upper []float64 `json:"upper"`
}

func (b Bounds) Dim() int { return len(b.Lower) }

func (b Bounds) Validate() error {
	if len(b.Lower) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidBounds)
	}
	if len(b.Lower) != len(b.Upper) {
		return fmt.Errorf("%w: %d lower vs %d upper", ErrInvalidBounds, len(b.Lower), len(b.Upper))
	}
	for i := range b.Lower {
		lo, hi := b.Lower[i], b.Upper[i]
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo > hi {
			return fmt.Errorf("%w: dimension %d is [%g, %g]", ErrInvalidBounds, i, lo, hi)
		}
	}
	return nil
}

// Clamp moves every coordinate of x into the box, in place.
func (b Bounds) Clamp(x []float64) {
	for i := range x {
		if x[i] < b.Lower[i] {
			x[i] = b.Lower[i]
		} else if x[i] > b.Upper[i] {
			x[i] = b.Upper[i]
		}
	}
}

// Sample draws a point uniformly from the box.
func (b Bounds) Sample(rng *rand.Rand) []float64 {
	x := make([]float64, b.Dim())
	for i := range x {
		x[i] = b.Lower[i] + rng.Float64()*(b.Upper[i]-b.Lower[i])
	}
	return x
}

// DefaultBounds is the search box of [dt_tau, h, Ae, ke, ki, si] for a ring
// of n nodes.
func DefaultBounds(n int) Bounds {
	upperSi := float64(n)
	if upperSi < 1 {
		upperSi = 1
	}
	return Bounds{
		Lower: []float64{0, -1, 0, 0.001, 0, 1},
		Upper: []float64{0.3, 1, 5, 1, 1, upperSi},
	}
}

type Problem struct {
	Bounds    Bounds
	Objective ObjectiveFn
}

type Result struct {
	Best        []float64 `json:"best"`
	BestFitness float64   `json:"best_fitness"`
	// History holds the best fitness after every epoch.
	History     []float64 `json:"history"`
	Evaluations int       `json:"evaluations"`
	GoalReached bool      `json:"goal_reached"`
}

type Optimizer interface {
	Name() string
	Minimize(ctx context.Context, problem Problem) (Result, error)
}

const (
	SwarmName       = "swarm"
	HillClimberName = "hillclimb"
)

// NormalizeOptimizerName canonicalizes optimizer names and aliases.
func NormalizeOptimizerName(name string) string {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", SwarmName, "pso", "spso":
		return SwarmName
	case HillClimberName, "hill_climb", "hillclimber", "exoself":
		return HillClimberName
	default:
		return strings.TrimSpace(strings.ToLower(name))
	}
}

// FromName builds an optimizer with default settings.
func FromName(name string, rng *rand.Rand) (Optimizer, error) {
	switch NormalizeOptimizerName(name) {
	case SwarmName:
		return &Swarm{Rand: rng}, nil
	case HillClimberName:
		return &HillClimber{Rand: rng}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOptimizer, name)
	}
}

func validateProblem(problem Problem) error {
	if problem.Objective == nil {
		return errors.New("objective function is required")
	}
	return problem.Bounds.Validate()
}

// sanitize maps NaN scores to +Inf so they never win a comparison.
func sanitize(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}
