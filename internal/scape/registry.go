package scape

import (
	"errors"
	"fmt"

	"neuralfield/internal/scapeid"
)

var ErrScenarioNotFound = errors.New("scenario not found")

// DefaultCompetitionAmplitude is the weak amplitude of the standalone
// competition scenario.
const DefaultCompetitionAmplitude = 0.6

// Names lists the scenario names accepted by Lookup.
func Names() []string {
	return []string{scapeid.Competition, scapeid.Selection, scapeid.WorkingMemory}
}

// Lookup builds the named scenario suite for a ring of size nodes.
func Lookup(name string, size int) (Suite, error) {
	switch canonical := scapeid.Normalize(name); canonical {
	case scapeid.Selection:
		return Selection(size)
	case scapeid.Competition:
		c, err := Competition(size, DefaultCompetitionAmplitude)
		if err != nil {
			return Suite{}, err
		}
		return Suite{Name: canonical, Scenarios: []Scenario{c}}, nil
	case scapeid.WorkingMemory:
		w, err := WorkingMemory(size)
		if err != nil {
			return Suite{}, err
		}
		return Suite{Name: canonical, Scenarios: []Scenario{w}}, nil
	default:
		return Suite{}, fmt.Errorf("%w: %s", ErrScenarioNotFound, name)
	}
}
