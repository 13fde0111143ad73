package tuning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
)

const (
	CandidateSelectBestSoFar = "best_so_far"
	CandidateSelectOriginal  = "original"
	CandidateSelectDynamicA  = "dynamic"
	CandidateSelectDynamic   = "dynamic_random"
	CandidateSelectRecent    = "recent"
	CandidateSelectAll       = "all"
	CandidateSelectAllRandom = "all_random"

	DefaultClimbAttempts = 200
)

// HillClimber perturbs a few coordinates of a base point per attempt with a
// spread that anneals over the perturbation steps, and keeps improvements.
// Spreads are relative to the width of each bound.
type HillClimber struct {
	Rand               *rand.Rand
	Attempts           int
	Steps              int
	StepSize           float64
	PerturbationRange  float64
	AnnealingFactor    float64
	MinImprovement     float64
	CandidateSelection string
	// Start is the initial point; a uniform sample is used when empty.
	Start    []float64
	Progress ProgressFn

	goal    float64
	hasGoal bool
	mu      sync.Mutex
}

func (h *HillClimber) Name() string {
	return HillClimberName
}

// SetGoalFitness stops the search once the best fitness is <= goal.
func (h *HillClimber) SetGoalFitness(goal float64) {
	h.goal = goal
	h.hasGoal = true
}

func (h *HillClimber) Minimize(ctx context.Context, problem Problem) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if h == nil || h.Rand == nil {
		return Result{}, errors.New("random source is required")
	}
	if err := validateProblem(problem); err != nil {
		return Result{}, err
	}
	if h.Steps < 0 {
		return Result{}, errors.New("steps must be >= 0")
	}
	if h.StepSize < 0 {
		return Result{}, errors.New("step size must be >= 0")
	}
	if h.PerturbationRange < 0 {
		return Result{}, errors.New("perturbation range must be >= 0")
	}
	if h.AnnealingFactor < 0 {
		return Result{}, errors.New("annealing factor must be >= 0")
	}
	if h.MinImprovement < 0 {
		return Result{}, errors.New("min improvement must be >= 0")
	}
	if h.Start != nil && len(h.Start) != problem.Bounds.Dim() {
		return Result{}, errors.New("start point does not match the bounds dimension")
	}

	attempts := h.Attempts
	if attempts <= 0 {
		attempts = DefaultClimbAttempts
	}
	steps := h.Steps
	if steps == 0 {
		steps = 2
	}
	stepSize := h.StepSize
	if stepSize == 0 {
		stepSize = 0.1
	}
	perturbationRange := h.PerturbationRange
	if perturbationRange == 0 {
		perturbationRange = 1.0
	}
	annealingFactor := h.AnnealingFactor
	if annealingFactor == 0 {
		annealingFactor = 1.0
	}

	bounds := problem.Bounds
	var original []float64
	if h.Start != nil {
		original = append([]float64(nil), h.Start...)
		bounds.Clamp(original)
	} else {
		original = h.sample(bounds)
	}

	result := Result{}
	best := append([]float64(nil), original...)
	bestFitness, err := problem.Objective(ctx, best)
	if err != nil {
		return Result{}, err
	}
	bestFitness = sanitize(bestFitness)
	result.Evaluations++
	recent := append([]float64(nil), best...)

	for a := 1; a <= attempts; a++ {
		if h.hasGoal && bestFitness <= h.goal {
			result.GoalReached = true
			break
		}
		bases, err := h.candidateBases(best, original, recent)
		if err != nil {
			return Result{}, err
		}
		localBest := append([]float64(nil), best...)
		localBestFitness := bestFitness
		for _, base := range bases {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			candidate := h.perturb(base, bounds, steps, stepSize*perturbationRange, annealingFactor)
			fitness, err := problem.Objective(ctx, candidate)
			if err != nil {
				return Result{}, err
			}
			result.Evaluations++
			if fitness = sanitize(fitness); fitness < localBestFitness-h.MinImprovement {
				localBest = candidate
				localBestFitness = fitness
			}
		}
		recent = append(recent[:0], localBest...)
		if localBestFitness < bestFitness-h.MinImprovement {
			best = localBest
			bestFitness = localBestFitness
		}
		result.History = append(result.History, bestFitness)
		if h.Progress != nil {
			h.Progress(a, bestFitness)
		}
	}
	if h.hasGoal && bestFitness <= h.goal {
		result.GoalReached = true
	}

	result.Best = best
	result.BestFitness = bestFitness
	return result, nil
}

func (h *HillClimber) candidateBases(best, original, recent []float64) ([][]float64, error) {
	clone := func(x []float64) []float64 { return append([]float64(nil), x...) }
	switch h.CandidateSelection {
	case "", CandidateSelectBestSoFar:
		return [][]float64{clone(best)}, nil
	case CandidateSelectOriginal:
		return [][]float64{clone(original)}, nil
	case CandidateSelectRecent:
		return [][]float64{clone(recent)}, nil
	case CandidateSelectDynamicA:
		return [][]float64{clone(best), clone(original)}, nil
	case CandidateSelectAll:
		return [][]float64{clone(best), clone(original), clone(recent)}, nil
	case CandidateSelectDynamic:
		return h.randomSubset([][]float64{clone(best), clone(original)}), nil
	case CandidateSelectAllRandom:
		return h.randomSubset([][]float64{clone(best), clone(original), clone(recent)}), nil
	default:
		return nil, errors.New("unsupported candidate selection")
	}
}

// randomSubset keeps each base with probability 1/sqrt(len(pool)) and never
// returns an empty set.
func (h *HillClimber) randomSubset(pool [][]float64) [][]float64 {
	if len(pool) <= 1 {
		return pool
	}
	p := 1 / math.Sqrt(float64(len(pool)))
	chosen := make([][]float64, 0, len(pool))
	for i := range pool {
		if h.randFloat64() < p {
			chosen = append(chosen, pool[i])
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return [][]float64{pool[h.randIntn(len(pool))]}
}

func (h *HillClimber) perturb(base []float64, bounds Bounds, steps int, spread, annealing float64) []float64 {
	candidate := append([]float64(nil), base...)
	for s := 0; s < steps; s++ {
		idx := h.randIntn(len(candidate))
		width := bounds.Upper[idx] - bounds.Lower[idx]
		delta := (h.randFloat64()*2 - 1) * spread * width * math.Pow(annealing, float64(s))
		candidate[idx] += delta
	}
	bounds.Clamp(candidate)
	return candidate
}

func (h *HillClimber) sample(bounds Bounds) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return bounds.Sample(h.Rand)
}

func (h *HillClimber) randIntn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Rand.Intn(n)
}

func (h *HillClimber) randFloat64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Rand.Float64()
}
