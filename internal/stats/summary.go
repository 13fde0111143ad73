package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a best-by-epoch series. Lower fitness is better, so
// Improvement is Initial-Final.
type Summary struct {
	Epochs      int     `json:"epochs"`
	Initial     float64 `json:"initial"`
	Final       float64 `json:"final"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Improvement float64 `json:"improvement"`
}

// Summarize ignores non-finite entries, which stand for epochs where no
// candidate produced a usable score.
func Summarize(bestByEpoch []float64) Summary {
	finite := make([]float64, 0, len(bestByEpoch))
	for _, v := range bestByEpoch {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	s := Summary{Epochs: len(bestByEpoch)}
	if len(finite) == 0 {
		return s
	}
	s.Initial = finite[0]
	s.Final = finite[len(finite)-1]
	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	if len(finite) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(finite, nil)
	} else {
		s.Mean = finite[0]
	}
	s.Improvement = s.Initial - s.Final
	return s
}
