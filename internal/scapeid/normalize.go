// Package scapeid canonicalizes scenario names typed on the command line or
// stored with older runs.
package scapeid

import "strings"

const (
	Selection     = "selection"
	Competition   = "competition"
	WorkingMemory = "wm"
)

// Normalize canonicalizes scenario names and their aliases. Unknown names are
// returned lower-cased and dash-separated.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	trimmed := strings.TrimPrefix(normalized, "scenario")
	trimmed = strings.TrimSuffix(trimmed, "scenario")
	trimmed = strings.Trim(trimmed, "-")
	if trimmed != normalized && trimmed != "" {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func canonicalName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "selection", "select":
		return Selection, true
	case "competition", "compet":
		return Competition, true
	case "wm", "workingmemory", "memory":
		return WorkingMemory, true
	default:
		return "", false
	}
}
