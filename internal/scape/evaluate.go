package scape

import (
	"context"
	"fmt"

	"neuralfield/internal/field"
)

// Evaluate resets f and drives it through every scenario of suite, summing
// the per-step scores. rec may be nil.
func Evaluate(ctx context.Context, f *field.Field, suite Suite, rec Recorder) (Fitness, Trace, error) {
	if err := suite.Validate(); err != nil {
		return 0, nil, err
	}
	if f.Size() != suite.Size() {
		return 0, nil, fmt.Errorf("%w: field size %d, scenario size %d", field.ErrDimensionMismatch, f.Size(), suite.Size())
	}

	var total float64
	steps := 0
	perScenario := make(map[string]float64, len(suite.Scenarios))
	checkpoints := make(map[string]map[int]float64)
	for _, sc := range suite.Scenarios {
		score, n, points, err := run(ctx, f, sc, rec)
		if err != nil {
			return 0, nil, err
		}
		perScenario[sc.Name()] = score
		if points != nil {
			checkpoints[sc.Name()] = points
		}
		total += score
		steps += n
	}
	return Fitness(total), Trace{
		"suite":       suite.Name,
		"steps":       steps,
		"scenarios":   perScenario,
		"checkpoints": checkpoints,
	}, nil
}

// EvaluateScenario runs a single scenario.
func EvaluateScenario(ctx context.Context, f *field.Field, sc Scenario, rec Recorder) (Fitness, Trace, error) {
	return Evaluate(ctx, f, Suite{Name: sc.Name(), Scenarios: []Scenario{sc}}, rec)
}

func run(ctx context.Context, f *field.Field, sc Scenario, rec Recorder) (float64, int, map[int]float64, error) {
	f.Reset()
	var points map[int]float64
	if cp, ok := sc.(Checkpointed); ok {
		points = make(map[int]float64)
		for _, t := range cp.Checkpoints() {
			points[t] = 0
		}
	}
	cursor := NewCursor(sc)
	var score float64
	var out []float64
	for !cursor.Finished() {
		if err := ctx.Err(); err != nil {
			return 0, cursor.T(), nil, err
		}
		in := cursor.Input()
		if err := f.Step(in); err != nil {
			return 0, cursor.T(), nil, fmt.Errorf("%s step %d: %w", sc.Name(), cursor.T(), err)
		}
		out = f.OutputInto(out)
		v := cursor.Score(out)
		score += v
		if _, ok := points[cursor.T()]; ok {
			points[cursor.T()] = v
		}
		if rec != nil {
			rec.Record(sc.Name(), cursor.T(), in, out)
		}
		cursor.Advance()
	}
	return score, cursor.T(), points, nil
}
