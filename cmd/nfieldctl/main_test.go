package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"neuralfield/internal/field"
	"neuralfield/internal/stats"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func TestRunRequiresKnownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Fatalf("expected missing command error, got %v", err)
	}
	if err := run(context.Background(), []string{"evolve"}); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestSimulateCommand(t *testing.T) {
	out := captureStdout(t)
	history := filepath.Join(t.TempDir(), "frames.csv")
	err := run(context.Background(), []string{
		"simulate",
		"--store", "memory",
		"--runs-dir", t.TempDir(),
		"--scenario", "competition",
		"--size", "50",
		"--params", "0.1,-10,0,1,0,2",
		"--history", history,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "scenario=competition") || !strings.Contains(text, "fitness=54.000000") {
		t.Fatalf("unexpected output: %s", text)
	}
	if !strings.Contains(text, "strategy=sliding_window") {
		t.Fatalf("expected sliding window strategy: %s", text)
	}
	if _, err := os.Stat(history); err != nil {
		t.Fatalf("expected history file: %v", err)
	}
}

func TestSimulateCommandRequiresParams(t *testing.T) {
	captureStdout(t)
	err := run(context.Background(), []string{"simulate", "--store", "memory", "--runs-dir", t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "requires --params") {
		t.Fatalf("expected missing params error, got %v", err)
	}
	err = run(context.Background(), []string{"simulate", "--store", "memory", "--params", "1,2,3"})
	if !errors.Is(err, field.ErrParamCount) {
		t.Fatalf("expected param count error, got %v", err)
	}
}

func TestSimulateCommandFromConfig(t *testing.T) {
	out := captureStdout(t)
	path := filepath.Join(t.TempDir(), "simulate.json")
	payload := map[string]any{
		"scenario": "competition",
		"size":     50,
		"kernel":   "step",
		"params":   []any{0.1, -10, 0, 1, 0, 2},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := run(context.Background(), []string{
		"simulate", "--store", "memory", "--runs-dir", t.TempDir(), "--config", path, "--json",
	}); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	var summary struct {
		Scenario string
		Strategy string
		Fitness  float64
	}
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if summary.Strategy != "transform" || summary.Fitness != 54 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOptimizeCommandWritesArtifacts(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	err := run(context.Background(), []string{
		"optimize",
		"--store", "memory",
		"--runs-dir", dir,
		"--scenario", "competition",
		"--size", "30",
		"--epochs", "2",
		"--swarm", "3",
		"--workers", "2",
		"--seed", "5",
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "run_id=") || !strings.Contains(text, "best_params=") {
		t.Fatalf("unexpected output: %s", text)
	}
	if !strings.Contains(text, "epoch=1 best_fitness=") {
		t.Fatalf("expected non-interactive progress line: %s", text)
	}

	entries, err := stats.ListRunIndex(dir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	history, ok, err := stats.ReadFitnessHistory(dir, entries[0].RunID)
	if err != nil || !ok {
		t.Fatalf("read fitness history: ok=%t err=%v", ok, err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two epochs of history, got %d", len(history))
	}
}

func TestRunsAndShowOnEmptyStore(t *testing.T) {
	out := captureStdout(t)
	if err := run(context.Background(), []string{"runs", "--store", "memory", "--runs-dir", t.TempDir()}); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out.String(), "no runs found") {
		t.Fatalf("unexpected runs output: %s", out.String())
	}
	if err := run(context.Background(), []string{"runs", "--limit", "0"}); err == nil {
		t.Fatal("expected limit validation error")
	}
	if err := run(context.Background(), []string{"show", "--store", "memory"}); err == nil {
		t.Fatal("expected missing run selector error")
	}
	if err := run(context.Background(), []string{"show", "--store", "memory", "--run-id", "x", "--latest"}); err == nil {
		t.Fatal("expected conflicting selector error")
	}
	if err := run(context.Background(), []string{"show", "--store", "memory", "--latest"}); err == nil {
		t.Fatal("expected no runs error")
	}
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf, true)
	p.update(1, 3)
	p.update(2, 2)
	p.done()
	if got := buf.String(); got != "\repoch 1 best=3.000000\repoch 2 best=2.000000\n" {
		t.Fatalf("unexpected interactive output: %q", got)
	}

	buf.Reset()
	p = newProgressPrinter(&buf, false)
	for epoch := 1; epoch <= 20; epoch++ {
		p.update(epoch, float64(20-epoch))
	}
	p.done()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected epochs 1, 10 and 20, got %q", buf.String())
	}
}

func TestOptimizeThenRunsShowAndSimulateFromRun(t *testing.T) {
	out := captureStdout(t)
	dir := t.TempDir()
	common := []string{"--store", "memory", "--runs-dir", dir}
	ctx := context.Background()

	optimizeArgs := append([]string{"optimize"}, common...)
	optimizeArgs = append(optimizeArgs, "--scenario", "competition", "--size", "30", "--epochs", "1", "--swarm", "2")
	if err := run(ctx, optimizeArgs); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	entries, err := stats.ListRunIndex(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %v err=%v", entries, err)
	}
	runID := entries[0].RunID

	// Every command below opens a fresh memory store.
	out.Reset()
	if err := run(ctx, append([]string{"runs"}, common...)); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out.String(), "run_id="+runID) || !strings.Contains(out.String(), "evaluations=2") {
		t.Fatalf("expected indexed run in listing: %s", out.String())
	}

	out.Reset()
	if err := run(ctx, append([]string{"show", "--latest"}, common...)); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out.String(), "run_id="+runID) || !strings.Contains(out.String(), "size=30") {
		t.Fatalf("unexpected show output: %s", out.String())
	}
	if !strings.Contains(out.String(), "epoch=1 best_fitness=") {
		t.Fatalf("expected fitness history in show output: %s", out.String())
	}

	out.Reset()
	if err := run(ctx, append([]string{"simulate", "--from-run", "latest", "--scenario", "competition", "--checkpoints"}, common...)); err != nil {
		t.Fatalf("simulate from run: %v", err)
	}
	if !strings.Contains(out.String(), "scenario=competition") || !strings.Contains(out.String(), "t=39 score=") {
		t.Fatalf("unexpected simulate output: %s", out.String())
	}

	out.Reset()
	if err := run(ctx, append([]string{"delete", "--run-id", runID}, common...)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out.Reset()
	if err := run(ctx, append([]string{"runs"}, common...)); err != nil {
		t.Fatalf("runs after delete: %v", err)
	}
	if !strings.Contains(out.String(), "no runs found") {
		t.Fatalf("expected empty listing after delete: %s", out.String())
	}
	if err := run(ctx, append([]string{"delete"}, common...)); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestFlagUsageListsRegisteredNames(t *testing.T) {
	if got := scenarioUsage(); !strings.Contains(got, "competition") || !strings.Contains(got, "wm") {
		t.Fatalf("unexpected scenario usage: %s", got)
	}
	if got := transferUsage(); !strings.Contains(got, "heaviside") || !strings.Contains(got, "sigmoid") {
		t.Fatalf("unexpected transfer usage: %s", got)
	}
}
