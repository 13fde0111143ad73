package scape

import (
	"errors"
	"fmt"
)

// Fitness is an accumulated error score. Lower is better.
type Fitness float64

type Trace map[string]any

var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a fixed input schedule over a ring of Size nodes together with
// the error contribution of the field output at every step.
type Scenario interface {
	Name() string
	Size() int
	Steps() int
	// Input returns a copy of the input presented at step t.
	Input(t int) []float64
	// Score returns the error contribution of fu observed after step t.
	Score(t int, fu []float64) float64
}

// Checkpointed is implemented by scenarios that score only at a few steps.
// Evaluate reports the score of every checkpoint in the trace.
type Checkpointed interface {
	Checkpoints() []int
}

// Recorder receives every input/output pair presented during an evaluation.
// The slices are reused between calls; implementations copy what they keep.
type Recorder interface {
	Record(scenario string, t int, input, output []float64)
}

// Suite groups scenarios whose scores are summed into one fitness. The field
// is reset before each member.
type Suite struct {
	Name      string
	Scenarios []Scenario
}

func (s Suite) Size() int {
	if len(s.Scenarios) == 0 {
		return 0
	}
	return s.Scenarios[0].Size()
}

// Steps returns the total number of field steps needed to run the suite.
func (s Suite) Steps() int {
	total := 0
	for _, sc := range s.Scenarios {
		total += sc.Steps()
	}
	return total
}

func (s Suite) Validate() error {
	if len(s.Scenarios) == 0 {
		return fmt.Errorf("%w: suite %q has no scenarios", ErrInvalidScenario, s.Name)
	}
	size := s.Scenarios[0].Size()
	for _, sc := range s.Scenarios {
		if sc.Size() != size {
			return fmt.Errorf("%w: suite %q mixes sizes %d and %d", ErrInvalidScenario, s.Name, size, sc.Size())
		}
	}
	return nil
}

// Cursor walks a scenario one step at a time.
type Cursor struct {
	sc Scenario
	t  int
}

func NewCursor(sc Scenario) *Cursor {
	return &Cursor{sc: sc}
}

func (c *Cursor) T() int { return c.t }

func (c *Cursor) Finished() bool { return c.t >= c.sc.Steps() }

// Input returns the input for the current step, or nil once finished.
func (c *Cursor) Input() []float64 {
	if c.Finished() {
		return nil
	}
	return c.sc.Input(c.t)
}

// Score scores fu against the current step.
func (c *Cursor) Score(fu []float64) float64 {
	if c.Finished() {
		return 0
	}
	return c.sc.Score(c.t, fu)
}

func (c *Cursor) Advance() {
	if !c.Finished() {
		c.t++
	}
}

// schedule stores precomputed inputs; scenarios embed it and supply scoring.
type schedule struct {
	name   string
	size   int
	inputs [][]float64
}

func (s *schedule) Name() string { return s.name }

func (s *schedule) Size() int { return s.size }

func (s *schedule) Steps() int { return len(s.inputs) }

func (s *schedule) Input(t int) []float64 {
	if t < 0 || t >= len(s.inputs) {
		return make([]float64, s.size)
	}
	return append([]float64(nil), s.inputs[t]...)
}

// bumpError counts 1-fu inside the bumps and fu everywhere else.
func bumpError(fu []float64, sigma float64, centers ...float64) float64 {
	var f float64
	for i, v := range fu {
		inside := false
		for _, c := range centers {
			if d := float64(i) - c; d <= sigma && d >= -sigma {
				inside = true
				break
			}
		}
		if inside {
			f += 1 - v
		} else {
			f += v
		}
	}
	return f
}

func sum(fu []float64) float64 {
	var f float64
	for _, v := range fu {
		f += v
	}
	return f
}
