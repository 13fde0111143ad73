package neuralfield

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"neuralfield/internal/field"
	"neuralfield/internal/kernel"
	"neuralfield/internal/scape"
	"neuralfield/internal/stats"
	"neuralfield/internal/tuning"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{StoreKind: "memory", RunsDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "etcd"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestSimulateSilentFieldOnCompetition(t *testing.T) {
	client := newTestClient(t)
	// A large negative resting level keeps every node silent.
	summary, err := client.Simulate(context.Background(), SimulateRequest{
		Scenario: "competition",
		Size:     50,
		Kernel:   "fast_step",
		Params:   []float64{0.1, -10, 0, 1, 0, 2},
		Record:   true,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if summary.Strategy != "sliding_window" {
		t.Fatalf("unexpected strategy: %s", summary.Strategy)
	}
	if summary.Steps != 40 {
		t.Fatalf("expected 40 steps, got %d", summary.Steps)
	}
	if len(summary.Frames) != summary.Steps {
		t.Fatalf("expected one frame per step, got %d", len(summary.Frames))
	}
	// Nine strong bump nodes are missed in each of the six scored steps.
	if summary.Fitness != 54 {
		t.Fatalf("expected fitness 54, got %f", summary.Fitness)
	}
	for i, v := range summary.FinalOut {
		if v != 0 {
			t.Fatalf("expected silent output at %d, got %f", i, v)
		}
	}
}

func TestSimulateMatchesDirectEvaluation(t *testing.T) {
	client := newTestClient(t)
	params := []float64{0.2, -0.5, 1.5, 0.3, 0.2, 6}
	summary, err := client.Simulate(context.Background(), SimulateRequest{
		Scenario: "selection",
		Size:     60,
		Kernel:   "dog",
		Params:   params,
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	f, err := field.New(field.Config{Size: 60, Kernel: "dog"})
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	if err := f.SetParamVector(params); err != nil {
		t.Fatalf("set params: %v", err)
	}
	suite, err := scape.Lookup("selection", 60)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want, _, err := scape.Evaluate(context.Background(), f, suite, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary.Fitness != float64(want) {
		t.Fatalf("expected fitness %f, got %f", float64(want), summary.Fitness)
	}
	if len(summary.PerSuite) != 3 {
		t.Fatalf("expected three scenario scores, got %v", summary.PerSuite)
	}
	if summary.Frames != nil {
		t.Fatal("frames should only be kept when recording")
	}
}

func TestSimulateWritesHistoryCSV(t *testing.T) {
	client := newTestClient(t)
	path := filepath.Join(t.TempDir(), "history.csv")
	if _, err := client.Simulate(context.Background(), SimulateRequest{
		Scenario:    "wm",
		Size:        80,
		Params:      []float64{0.1, -1, 1, 1, 0, 3},
		HistoryPath: path,
	}); err != nil {
		t.Fatalf("simulate: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat history: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty history file")
	}
}

func TestSimulateValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	params := []float64{0.1, 0, 1, 1, 0, 2}

	if _, err := client.Simulate(ctx, SimulateRequest{Size: 20}); !errors.Is(err, field.ErrNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
	if _, err := client.Simulate(ctx, SimulateRequest{Size: 20, Kernel: "mexican_hat", Params: params}); !errors.Is(err, kernel.ErrInvalidKernelFamily) {
		t.Fatalf("expected invalid kernel family, got %v", err)
	}
	if _, err := client.Simulate(ctx, SimulateRequest{Size: 20, Scenario: "xor", Params: params}); !errors.Is(err, scape.ErrScenarioNotFound) {
		t.Fatalf("expected scenario not found, got %v", err)
	}
	if _, err := client.Simulate(ctx, SimulateRequest{Size: 20, Params: params[:4]}); !errors.Is(err, field.ErrParamCount) {
		t.Fatalf("expected param count error, got %v", err)
	}
}

func TestOptimizePersistsRunAndArtifacts(t *testing.T) {
	runsDir := t.TempDir()
	client, err := New(Options{StoreKind: "memory", RunsDir: runsDir})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	var epochs []int
	summary, err := client.Optimize(context.Background(), OptimizeRequest{
		Scenario: "competition",
		Size:     40,
		Kernel:   "fast_step",
		Seed:     7,
		Epochs:   3,
		Swarm:    4,
		Workers:  2,
		Progress: func(epoch int, _ float64) { epochs = append(epochs, epoch) },
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected run id")
	}
	if len(summary.BestParams) != field.ParamCount {
		t.Fatalf("expected %d params, got %d", field.ParamCount, len(summary.BestParams))
	}
	if len(summary.BestByEpoch) != 3 || len(epochs) != 3 {
		t.Fatalf("expected three epochs, got history=%d progress=%d", len(summary.BestByEpoch), len(epochs))
	}
	for i := 1; i < len(summary.BestByEpoch); i++ {
		if summary.BestByEpoch[i] > summary.BestByEpoch[i-1] {
			t.Fatalf("best fitness increased at epoch %d: %v", i, summary.BestByEpoch)
		}
	}
	if summary.Evaluations != 12 {
		t.Fatalf("expected 12 evaluations, got %d", summary.Evaluations)
	}

	for _, name := range []string{"config.json", "fitness_history.csv", "best_params.json", "summary.json"} {
		if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}
	cfg, ok, err := stats.ReadRunConfig(runsDir, summary.RunID)
	if err != nil || !ok {
		t.Fatalf("read run config: ok=%t err=%v", ok, err)
	}
	if cfg.Scenario != "competition" || cfg.Optimizer != tuning.SwarmName {
		t.Fatalf("unexpected run config: %+v", cfg)
	}
	index, err := stats.ListRunIndex(runsDir)
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(index) != 1 || index[0].RunID != summary.RunID {
		t.Fatalf("unexpected run index: %+v", index)
	}

	detail, err := client.Run(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("run detail: %v", err)
	}
	if detail.Run.BestFitness != summary.BestFitness {
		t.Fatalf("stored fitness %f != %f", detail.Run.BestFitness, summary.BestFitness)
	}
	if len(detail.BestByEpoch) != len(summary.BestByEpoch) {
		t.Fatalf("stored history length %d != %d", len(detail.BestByEpoch), len(summary.BestByEpoch))
	}
}

func TestOptimizeIsReproducibleForSeed(t *testing.T) {
	client := newTestClient(t)
	req := OptimizeRequest{
		Scenario:  "competition",
		Size:      30,
		Optimizer: "hillclimb",
		Seed:      11,
		Epochs:    5,
	}
	first, err := client.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("first optimize: %v", err)
	}
	second, err := client.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("second optimize: %v", err)
	}
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}
	if first.BestFitness != second.BestFitness {
		t.Fatalf("fitness differs for same seed: %f vs %f", first.BestFitness, second.BestFitness)
	}
	for i := range first.BestParams {
		if first.BestParams[i] != second.BestParams[i] {
			t.Fatalf("params differ for same seed at %d", i)
		}
	}

	runs, err := client.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != second.RunID {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	latest, err := client.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest.Run.ID != second.RunID {
		t.Fatalf("expected latest run %s, got %s", second.RunID, latest.Run.ID)
	}
}

func TestOptimizeValidation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if _, err := client.Optimize(ctx, OptimizeRequest{Optimizer: "genetic", Size: 20}); !errors.Is(err, tuning.ErrUnknownOptimizer) {
		t.Fatalf("expected unknown optimizer, got %v", err)
	}
	if _, err := client.Optimize(ctx, OptimizeRequest{Kernel: "gauss", Size: 20}); !errors.Is(err, kernel.ErrInvalidKernelFamily) {
		t.Fatalf("expected invalid kernel family, got %v", err)
	}
	bounds := tuning.Bounds{Lower: []float64{0}, Upper: []float64{1}}
	if _, err := client.Optimize(ctx, OptimizeRequest{Size: 20, Bounds: &bounds}); !errors.Is(err, field.ErrParamCount) {
		t.Fatalf("expected param count error, got %v", err)
	}
}

func TestOptimizeHonorsCanceledContext(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Optimize(ctx, OptimizeRequest{Size: 20, Epochs: 2, Swarm: 3}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestRunsAndRunErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	if _, err := client.Runs(ctx, RunsRequest{Limit: -1}); err == nil {
		t.Fatal("expected negative limit error")
	}
	if _, err := client.Run(ctx, ""); err == nil {
		t.Fatal("expected no runs error")
	}
	if _, err := client.Run(ctx, "missing"); err == nil {
		t.Fatal("expected run not found")
	}
}

func TestRunsFallBackToArtifactsAcrossClients(t *testing.T) {
	runsDir := t.TempDir()
	writer, err := New(Options{StoreKind: "memory", RunsDir: runsDir})
	if err != nil {
		t.Fatalf("new writer client: %v", err)
	}
	summary, err := writer.Optimize(context.Background(), OptimizeRequest{
		Scenario: "competition",
		Size:     30,
		Seed:     3,
		Epochs:   2,
		Swarm:    3,
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	_ = writer.Close()

	// A fresh memory store knows nothing about the run; the artifacts do.
	reader, err := New(Options{StoreKind: "memory", RunsDir: runsDir})
	if err != nil {
		t.Fatalf("new reader client: %v", err)
	}
	defer reader.Close()

	runs, err := reader.Runs(context.Background(), RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID {
		t.Fatalf("expected run from artifact index, got %+v", runs)
	}
	if runs[0].Evaluations != summary.Evaluations || runs[0].BestFitness != summary.BestFitness {
		t.Fatalf("unexpected indexed run: %+v", runs[0])
	}

	detail, err := reader.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	r := detail.Run
	if r.ID != summary.RunID || r.Size != 30 || r.Kernel != "fast_step" || r.Transfer != "heaviside" {
		t.Fatalf("unexpected run from artifacts: %+v", r)
	}
	if r.Evaluations != 6 || r.BestFitness != summary.BestFitness {
		t.Fatalf("unexpected run results: %+v", r)
	}
	for i := range summary.BestParams {
		if r.BestParams[i] != summary.BestParams[i] {
			t.Fatalf("best params differ at %d: %v vs %v", i, r.BestParams, summary.BestParams)
		}
	}
	if len(detail.BestByEpoch) != 2 {
		t.Fatalf("expected two epochs of history, got %v", detail.BestByEpoch)
	}

	if err := reader.DeleteRun(context.Background(), summary.RunID); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, err := reader.Run(context.Background(), summary.RunID); err == nil {
		t.Fatal("expected deleted run to be gone")
	}
	if err := reader.DeleteRun(context.Background(), summary.RunID); err == nil {
		t.Fatal("expected second delete to fail")
	}
}

func TestDeleteRunRemovesStoredRun(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	summary, err := client.Optimize(ctx, OptimizeRequest{Scenario: "competition", Size: 20, Epochs: 1, Swarm: 2})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if err := client.DeleteRun(ctx, summary.RunID); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs after delete, got %+v", runs)
	}
	if _, err := os.Stat(summary.ArtifactsDir); !os.IsNotExist(err) {
		t.Fatalf("expected artifacts removed, got %v", err)
	}
	if err := client.DeleteRun(ctx, ""); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestSimulateReportsCheckpoints(t *testing.T) {
	client := newTestClient(t)
	summary, err := client.Simulate(context.Background(), SimulateRequest{
		Scenario: "wm",
		Size:     60,
		Params:   []float64{0.1, -10, 0, 1, 0, 2},
	})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	points := summary.Checkpoints["wm"]
	if len(points) != 6 {
		t.Fatalf("expected six working memory checkpoints, got %v", points)
	}
	var total float64
	for _, v := range points {
		total += v
	}
	if total != summary.Fitness {
		t.Fatalf("checkpoint scores %f must add up to fitness %f", total, summary.Fitness)
	}
}
