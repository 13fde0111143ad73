package tuning

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Constriction-derived coefficients for c1 = c2 = 2.05.
const (
	DefaultCognition = 1.496179765663133
	DefaultSocial    = 1.496179765663133
	DefaultInertia   = 0.7298437881283576

	DefaultSwarmSize = 25
	DefaultEpochs    = 100
)

// Constriction returns the constriction coefficient for learning factors c1
// and c2 (c1+c2 > 4).
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

// Swarm is a global-best particle swarm minimizer. Random draws happen on the
// calling goroutine, so a seeded Rand gives the same result for any Workers.
type Swarm struct {
	Rand      *rand.Rand
	Size      int
	MaxEpochs int
	Inertia   float64
	Cognition float64
	Social    float64
	// Workers bounds concurrent objective evaluations; 0 uses GOMAXPROCS.
	Workers  int
	Progress ProgressFn

	goal    float64
	hasGoal bool
	mu      sync.Mutex
}

func (s *Swarm) Name() string {
	return SwarmName
}

// SetGoalFitness stops the search once the best fitness is <= goal.
func (s *Swarm) SetGoalFitness(goal float64) {
	s.goal = goal
	s.hasGoal = true
}

type particle struct {
	pos     []float64
	vel     []float64
	val     float64
	best    []float64
	bestVal float64
}

func (s *Swarm) Minimize(ctx context.Context, problem Problem) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if s == nil || s.Rand == nil {
		return Result{}, errors.New("random source is required")
	}
	if err := validateProblem(problem); err != nil {
		return Result{}, err
	}
	size := s.Size
	if size <= 0 {
		size = DefaultSwarmSize
	}
	epochs := s.MaxEpochs
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	inertia, cognition, social := s.Inertia, s.Cognition, s.Social
	if inertia == 0 {
		inertia = DefaultInertia
	}
	if cognition == 0 {
		cognition = DefaultCognition
	}
	if social == 0 {
		social = DefaultSocial
	}

	bounds := problem.Bounds
	dim := bounds.Dim()
	vmax := make([]float64, dim)
	for i := range vmax {
		vmax[i] = bounds.Upper[i] - bounds.Lower[i]
	}

	swarm := make([]*particle, size)
	for i := range swarm {
		p := &particle{pos: s.sample(bounds), vel: make([]float64, dim), bestVal: math.Inf(1)}
		for j := range p.vel {
			p.vel[j] = vmax[j] * (1 - 2*s.randFloat64())
		}
		swarm[i] = p
	}

	result := Result{BestFitness: math.Inf(1)}
	var gbest []float64
	for epoch := 1; epoch <= epochs; epoch++ {
		if epoch > 1 {
			for _, p := range swarm {
				s.move(p, gbest, vmax, bounds, inertia, cognition, social)
			}
		}
		if err := s.evaluate(ctx, problem.Objective, swarm); err != nil {
			return Result{}, err
		}
		result.Evaluations += len(swarm)
		for _, p := range swarm {
			if p.best == nil || p.val < p.bestVal {
				p.bestVal = p.val
				p.best = append(p.best[:0], p.pos...)
			}
			if gbest == nil || p.bestVal < result.BestFitness {
				result.BestFitness = p.bestVal
				gbest = append(gbest[:0], p.best...)
			}
		}
		result.History = append(result.History, result.BestFitness)
		if s.Progress != nil {
			s.Progress(epoch, result.BestFitness)
		}
		if s.hasGoal && result.BestFitness <= s.goal {
			result.GoalReached = true
			break
		}
	}
	result.Best = append([]float64(nil), gbest...)
	return result, nil
}

// move applies the velocity update and confines the particle to the box. A
// coordinate that hits a wall loses its velocity.
func (s *Swarm) move(p *particle, gbest, vmax []float64, bounds Bounds, inertia, cognition, social float64) {
	for i := range p.vel {
		r1 := s.randFloat64()
		r2 := s.randFloat64()
		v := inertia*p.vel[i] +
			cognition*r1*(p.best[i]-p.pos[i]) +
			social*r2*(gbest[i]-p.pos[i])
		if math.Abs(v) > vmax[i] {
			v = math.Copysign(vmax[i], v)
		}
		x := p.pos[i] + v
		if x < bounds.Lower[i] {
			x, v = bounds.Lower[i], 0
		} else if x > bounds.Upper[i] {
			x, v = bounds.Upper[i], 0
		}
		p.pos[i], p.vel[i] = x, v
	}
}

func (s *Swarm) evaluate(ctx context.Context, objective ObjectiveFn, swarm []*particle) error {
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range swarm {
		p := p
		g.Go(func() error {
			v, err := objective(gctx, append([]float64(nil), p.pos...))
			if err != nil {
				return err
			}
			p.val = sanitize(v)
			return nil
		})
	}
	return g.Wait()
}

func (s *Swarm) sample(bounds Bounds) []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bounds.Sample(s.Rand)
}

func (s *Swarm) randFloat64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Rand.Float64()
}
