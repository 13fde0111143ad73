package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, payload map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOptimizeRequestFromConfig(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"scenario":     "wm",
		"size":         120,
		"kernel":       "dog",
		"transfer":     "sigmoid",
		"optimizer":    "pso",
		"seed":         77,
		"epochs":       9,
		"swarm":        12,
		"workers":      3,
		"fitness_goal": 1.5,
	})
	req, err := loadOptimizeRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load optimize request: %v", err)
	}
	if req.Scenario != "wm" || req.Size != 120 || req.Kernel != "dog" || req.Transfer != "sigmoid" {
		t.Fatalf("unexpected field config: %+v", req)
	}
	if req.Optimizer != "pso" || req.Seed != 77 || req.Epochs != 9 || req.Swarm != 12 || req.Workers != 3 {
		t.Fatalf("unexpected optimizer config: %+v", req)
	}
	if req.GoalFitness == nil || *req.GoalFitness != 1.5 {
		t.Fatalf("unexpected goal fitness: %v", req.GoalFitness)
	}
}

func TestOverrideOptimizeAppliesOnlySetFlags(t *testing.T) {
	path := writeConfig(t, map[string]any{"scenario": "wm", "seed": 3, "epochs": 9})
	req, err := loadOrDefaultOptimizeRequest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	overrideOptimize(&req, map[string]bool{"seed": true, "fitness-goal": true}, map[string]any{
		"scenario":     "selection",
		"seed":         int64(42),
		"epochs":       100,
		"fitness-goal": 0.25,
	})
	if req.Scenario != "wm" || req.Epochs != 9 {
		t.Fatalf("unset flags must not override config: %+v", req)
	}
	if req.Seed != 42 {
		t.Fatalf("expected seed override, got %d", req.Seed)
	}
	if req.GoalFitness == nil || *req.GoalFitness != 0.25 {
		t.Fatalf("expected goal override, got %v", req.GoalFitness)
	}
}

func TestLoadSimulateRequestRejectsBadParams(t *testing.T) {
	path := writeConfig(t, map[string]any{"params": []any{0.1, "h"}})
	if _, err := loadSimulateRequestFromConfig(path); err == nil {
		t.Fatal("expected non-numeric params error")
	}
	path = writeConfig(t, map[string]any{"params": 3})
	if _, err := loadSimulateRequestFromConfig(path); err == nil {
		t.Fatal("expected params type error")
	}
	if _, err := loadOrDefaultSimulateRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected missing config error")
	}
}

func TestParseParams(t *testing.T) {
	got, err := parseParams("0.1, -1,2,0.5,0.2,10")
	if err != nil {
		t.Fatalf("parse params: %v", err)
	}
	want := []float64{0.1, -1, 2, 0.5, 0.2, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("param %d: want %f, got %f", i, want[i], got[i])
		}
	}
	if _, err := parseParams("0.1,x,2,0.5,0.2,10"); err == nil {
		t.Fatal("expected parse error")
	}
	if got := formatParams(want); got != "0.1,-1,2,0.5,0.2,10" {
		t.Fatalf("unexpected formatted params: %s", got)
	}
}
