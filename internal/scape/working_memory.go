package scape

import (
	"fmt"
	"math"
)

// Working memory schedule, in steps.
const (
	wmSelected0 = 30
	wmSelected1 = 50
	wmSelection = (wmSelected1 - wmSelected0) / 2
	wmWeak      = 20
	wmMove      = 80
	wmFinal     = 40
	wmLoaded    = wmSelected1 + wmSelection/2
	wmSteps     = wmLoaded + wmWeak + wmMove + wmFinal

	wmAmpWeak   = 0.3
	wmAmpStrong = 1.0
	wmSigma     = 4.0
	wmRelease   = 10.0
)

// WorkingMemoryScenario loads two bumps one after the other by briefly
// raising their amplitude, expects both to be held on weak input, drags the
// second one by dx and finally releases the input.
type WorkingMemoryScenario struct {
	schedule
	x0, x1, dx float64
}

func WorkingMemory(size int) (*WorkingMemoryScenario, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: working memory size must be positive, got %d", ErrInvalidScenario, size)
	}
	width := float64(size)
	w := &WorkingMemoryScenario{
		schedule: schedule{name: "wm", size: size},
		x0:       width / 5,
		x1:       3 * width / 5,
		dx:       width / 5,
	}
	w.inputs = make([][]float64, wmSteps)
	for t := range w.inputs {
		in := make([]float64, size)
		a0, a1, c1 := w.profile(t)
		addGaussian(in, w.x0, wmSigma, a0)
		addGaussian(in, c1, wmSigma, a1)
		w.inputs[t] = in
	}
	return w, nil
}

// ramp interpolates linearly from a at ti to b at tf.
func ramp(t, ti, tf int, a, b float64) float64 {
	return (b-a)/float64(tf-ti)*float64(t-ti) + a
}

// profile returns the amplitudes of both bumps and the center of the second
// one at step t.
func (w *WorkingMemoryScenario) profile(t int) (a0, a1, c1 float64) {
	a0, a1, c1 = wmAmpWeak, wmAmpWeak, w.x1
	switch {
	case t <= wmSelected0-wmSelection/2:
	case t <= wmSelected0:
		a0 = ramp(t, wmSelected0-wmSelection/2, wmSelected0, wmAmpWeak, wmAmpStrong)
	case t <= wmSelected0+wmSelection/2:
		a0 = ramp(t, wmSelected0, wmSelected0+wmSelection/2, wmAmpStrong, wmAmpWeak)
	case t <= wmSelected1-wmSelection/2:
	case t <= wmSelected1:
		a1 = ramp(t, wmSelected1-wmSelection/2, wmSelected1, wmAmpWeak, wmAmpStrong)
	case t <= wmLoaded:
		a1 = ramp(t, wmSelected1, wmLoaded, wmAmpStrong, wmAmpWeak)
	case t <= wmLoaded+wmWeak:
	case t <= wmLoaded+wmWeak+wmMove:
		ti := wmLoaded + wmWeak
		c1 = w.dx/float64(wmMove)*float64(t-ti) + w.x1
	default:
		scale := math.Exp(-float64(t-(wmLoaded+wmWeak+wmMove)) / wmRelease)
		a0, a1, c1 = scale*wmAmpWeak, scale*wmAmpWeak, w.x1+w.dx
	}
	return a0, a1, c1
}

// Checkpoints lists the steps at which the output is scored.
func (w *WorkingMemoryScenario) Checkpoints() []int {
	return []int{
		wmSelected0 - wmSelection/2,
		wmSelected0 + wmSelection/2,
		wmLoaded,
		wmLoaded + wmWeak,
		wmLoaded + wmWeak + wmMove,
		wmSteps - 1,
	}
}

func (w *WorkingMemoryScenario) Score(t int, fu []float64) float64 {
	switch t {
	case wmSelected0 - wmSelection/2:
		return sum(fu)
	case wmSelected0 + wmSelection/2:
		return bumpError(fu, wmSigma, w.x0)
	case wmLoaded, wmLoaded + wmWeak:
		return bumpError(fu, wmSigma, w.x0, w.x1)
	case wmLoaded + wmWeak + wmMove:
		return bumpError(fu, wmSigma, w.x0, w.x1+w.dx)
	case wmSteps - 1:
		return sum(fu)
	default:
		return 0
	}
}
