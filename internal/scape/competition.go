package scape

import (
	"fmt"
	"math"
)

const (
	competitionSigma      = 4.0
	competitionDecay      = 5.0
	competitionSteps      = 40
	competitionStrongGain = 0.2
)

// CompetitionScenario presents four weak bumps and one stronger bump. The
// field is expected to select the strong bump during the settling window and
// to go silent once the input has decayed.
type CompetitionScenario struct {
	schedule
	weak    float64
	strong  float64
	xStrong float64
	xWeak   []float64
}

// Competition builds the scenario for a ring of size nodes with weak bumps of
// amplitude weakAmplitude and a strong bump 0.2 above it.
func Competition(size int, weakAmplitude float64) (*CompetitionScenario, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: competition size must be positive, got %d", ErrInvalidScenario, size)
	}
	width := float64(size)
	c := &CompetitionScenario{
		schedule: schedule{
			name: fmt.Sprintf("competition-%.2f", weakAmplitude),
			size: size,
		},
		weak:    weakAmplitude,
		strong:  weakAmplitude + competitionStrongGain,
		xStrong: 3 * width / 10,
		xWeak:   []float64{width / 10, 5 * width / 10, 7 * width / 10, 9 * width / 10},
	}

	half := 0.5 * competitionSteps
	c.inputs = make([][]float64, competitionSteps)
	for t := range c.inputs {
		scale := 1.0
		if float64(t) > half {
			scale = math.Exp(-(float64(t) - half) / competitionDecay)
		}
		in := make([]float64, size)
		for _, x := range c.xWeak {
			addGaussian(in, x, competitionSigma, scale*c.weak)
		}
		addGaussian(in, c.xStrong, competitionSigma, scale*c.strong)
		c.inputs[t] = in
	}
	return c, nil
}

func (c *CompetitionScenario) WeakAmplitude() float64 { return c.weak }

func (c *CompetitionScenario) StrongAmplitude() float64 { return c.strong }

func (c *CompetitionScenario) StrongCenter() float64 { return c.xStrong }

// Checkpoints lists the scored steps: the settling window and the last step.
func (c *CompetitionScenario) Checkpoints() []int {
	half := competitionSteps / 2
	points := make([]int, 0, 7)
	for t := half - 5; t <= half; t++ {
		points = append(points, t)
	}
	return append(points, competitionSteps-1)
}

// Score assumes fu in [0,1].
func (c *CompetitionScenario) Score(t int, fu []float64) float64 {
	half := competitionSteps / 2
	switch {
	case t >= half-5 && t <= half:
		return bumpError(fu, competitionSigma, c.xStrong)
	case t >= competitionSteps-1:
		return sum(fu)
	default:
		return 0
	}
}

// Selection is the competition suite at weak amplitudes 0.4, 0.6 and 0.8.
func Selection(size int) (Suite, error) {
	suite := Suite{Name: "selection"}
	for _, amp := range []float64{0.4, 0.6, 0.8} {
		c, err := Competition(size, amp)
		if err != nil {
			return Suite{}, err
		}
		suite.Scenarios = append(suite.Scenarios, c)
	}
	return suite, nil
}
