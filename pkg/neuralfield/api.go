// Package neuralfield is the public entry point for simulating ring neural
// fields on the built-in scenarios and for searching their parameters.
package neuralfield

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuralfield/internal/field"
	"neuralfield/internal/model"
	"neuralfield/internal/scape"
	"neuralfield/internal/scapeid"
	"neuralfield/internal/stats"
	"neuralfield/internal/storage"
	"neuralfield/internal/tuning"
)

const (
	defaultRunsDir  = "runs"
	defaultDBPath   = "neuralfield.db"
	defaultSize     = 100
	defaultKernel   = "fast_step"
	defaultTransfer = "heaviside"
	defaultWorkers  = 4
)

type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
	Logger    *slog.Logger
}

type Client struct {
	store   storage.Store
	runsDir string
	logger  *slog.Logger

	mu          sync.Mutex
	initialized bool
}

type SimulateRequest struct {
	Scenario string
	Size     int
	Kernel   string
	Transfer string
	// Params is [dt_tau, h, Ae, ke, ki, si].
	Params []float64
	// Record keeps every input/output frame in the summary.
	Record bool
	// HistoryPath, when set, receives the frames as CSV.
	HistoryPath string
}

type SimulateSummary struct {
	Scenario string
	Strategy string
	Fitness  float64
	PerSuite map[string]float64
	Steps    int
	FinalOut []float64
	Frames   []stats.Frame
}

type OptimizeRequest struct {
	Scenario  string
	Size      int
	Kernel    string
	Transfer  string
	Optimizer string
	Seed      int64
	// Epochs and Swarm default to the scenario's usual budget.
	Epochs      int
	Swarm       int
	Workers     int
	GoalFitness *float64
	Bounds      *tuning.Bounds
	Progress    tuning.ProgressFn
}

type OptimizeSummary struct {
	RunID        string
	ArtifactsDir string
	BestParams   []float64
	BestFitness  float64
	BestByEpoch  []float64
	Evaluations  int
	GoalReached  bool
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Scenario     string
	Kernel       string
	Optimizer    string
	Seed         int64
	BestFitness  float64
	Evaluations  int
}

type RunDetail struct {
	Run         model.Run
	BestByEpoch []float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		runsDir: runsDir,
		logger:  logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Simulate runs one parameter vector through a scenario suite.
func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (SimulateSummary, error) {
	req.Scenario, req.Size, req.Kernel, req.Transfer = withDefaults(req.Scenario, req.Size, req.Kernel, req.Transfer)
	if len(req.Params) == 0 {
		return SimulateSummary{}, field.ErrNotConfigured
	}

	suite, err := scape.Lookup(req.Scenario, req.Size)
	if err != nil {
		return SimulateSummary{}, err
	}
	f, err := newField(req.Size, req.Kernel, req.Transfer, req.Params)
	if err != nil {
		return SimulateSummary{}, err
	}

	var history *stats.History
	var rec scape.Recorder
	if req.Record || req.HistoryPath != "" {
		history = stats.NewHistory()
		rec = history
	}

	start := time.Now()
	fitness, trace, err := scape.Evaluate(ctx, f, suite, rec)
	if err != nil {
		return SimulateSummary{}, err
	}
	c.logger.Debug("simulation finished",
		"scenario", suite.Name,
		"kernel", req.Kernel,
		"strategy", f.Strategy(),
		"fitness", float64(fitness),
		"elapsed", time.Since(start))

	summary := SimulateSummary{
		Scenario: suite.Name,
		Strategy: f.Strategy(),
		Fitness:  float64(fitness),
		FinalOut: f.Output(),
	}
	if steps, ok := trace["steps"].(int); ok {
		summary.Steps = steps
	}
	if per, ok := trace["scenarios"].(map[string]float64); ok {
		summary.PerSuite = per
	}
	if points, ok := trace["checkpoints"].(map[string]map[int]float64); ok {
		summary.Checkpoints = points
	}
	if history != nil {
		frames := history.Frames()
		if req.HistoryPath != "" {
			if err := stats.WriteHistoryCSVFile(req.HistoryPath, frames); err != nil {
				return SimulateSummary{}, err
			}
		}
		if req.Record {
			summary.Frames = frames
		}
	}
	return summary, nil
}

// Optimize searches the field parameters minimizing the scenario error, then
// persists the run and writes its artifacts.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeSummary, error) {
	req.Scenario, req.Size, req.Kernel, req.Transfer = withDefaults(req.Scenario, req.Size, req.Kernel, req.Transfer)
	req.Optimizer = tuning.NormalizeOptimizerName(req.Optimizer)
	epochs, swarmSize := defaultBudget(req.Scenario)
	if req.Epochs <= 0 {
		req.Epochs = epochs
	}
	if req.Swarm <= 0 {
		req.Swarm = swarmSize
	}
	if req.Workers <= 0 {
		req.Workers = defaultWorkers
	}
	bounds := tuning.DefaultBounds(req.Size)
	if req.Bounds != nil {
		bounds = *req.Bounds
	}
	if bounds.Dim() != field.ParamCount {
		return OptimizeSummary{}, fmt.Errorf("%w: bounds have %d dimensions, want %d", field.ErrParamCount, bounds.Dim(), field.ParamCount)
	}

	suite, err := scape.Lookup(req.Scenario, req.Size)
	if err != nil {
		return OptimizeSummary{}, err
	}
	// Fail fast on bad kernel or transfer names.
	if _, err := newField(req.Size, req.Kernel, req.Transfer, nil); err != nil {
		return OptimizeSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return OptimizeSummary{}, err
	}

	optimizer, err := c.optimizerFor(req)
	if err != nil {
		return OptimizeSummary{}, err
	}
	objective := func(ctx context.Context, x []float64) (float64, error) {
		f, err := newField(req.Size, req.Kernel, req.Transfer, x)
		if err != nil {
			return 0, err
		}
		fitness, _, err := scape.Evaluate(ctx, f, suite, nil)
		return float64(fitness), err
	}

	now := time.Now().UTC()
	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	logger.Info("optimization started",
		"scenario", suite.Name,
		"kernel", req.Kernel,
		"optimizer", optimizer.Name(),
		"epochs", req.Epochs,
		"swarm", req.Swarm,
		"seed", req.Seed)

	result, err := optimizer.Minimize(ctx, tuning.Problem{Bounds: bounds, Objective: objective})
	if err != nil {
		return OptimizeSummary{}, err
	}
	logger.Info("optimization finished",
		"best_fitness", result.BestFitness,
		"evaluations", result.Evaluations,
		"elapsed", time.Since(now))

	run := model.Run{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAtUTC:    now,
		Scenario:        suite.Name,
		Kernel:          req.Kernel,
		Transfer:        req.Transfer,
		Size:            req.Size,
		Optimizer:       optimizer.Name(),
		Seed:            req.Seed,
		Epochs:          req.Epochs,
		Swarm:           req.Swarm,
		Workers:         req.Workers,
		BestParams:      append([]float64(nil), result.Best...),
		BestFitness:     result.BestFitness,
		Evaluations:     result.Evaluations,
		GoalReached:     result.GoalReached,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return OptimizeSummary{}, err
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.History); err != nil {
		return OptimizeSummary{}, err
	}

	best, err := stats.NewBestParams(result.Best, result.BestFitness)
	if err != nil {
		return OptimizeSummary{}, err
	}
	createdAt := stats.FormatTimestamp(now)
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:        runID,
			CreatedAtUTC: createdAt,
			Scenario:     suite.Name,
			Kernel:       req.Kernel,
			Transfer:     req.Transfer,
			Size:         req.Size,
			Optimizer:    optimizer.Name(),
			Seed:         req.Seed,
			Epochs:       req.Epochs,
			Swarm:        req.Swarm,
			Workers:      req.Workers,
			GoalFitness:  req.GoalFitness,
		},
		BestByEpoch:      result.History,
		BestParams:       best,
		FinalBestFitness: result.BestFitness,
	})
	if err != nil {
		return OptimizeSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            runID,
		Scenario:         suite.Name,
		Kernel:           req.Kernel,
		Optimizer:        optimizer.Name(),
		Seed:             req.Seed,
		FinalBestFitness: result.BestFitness,
		Evaluations:      result.Evaluations,
		GoalReached:      result.GoalReached,
		CreatedAtUTC:     createdAt,
	}); err != nil {
		return OptimizeSummary{}, err
	}

	return OptimizeSummary{
		RunID:        runID,
		ArtifactsDir: filepath.Clean(runDir),
		BestParams:   append([]float64(nil), result.Best...),
		BestFitness:  result.BestFitness,
		BestByEpoch:  append([]float64(nil), result.History...),
		Evaluations:  result.Evaluations,
		GoalReached:  result.GoalReached,
	}, nil
}

// Runs lists stored runs newest first, together with runs only present in
// the artifact index (for example runs written by an earlier process using
// the memory store).
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = 20
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	index, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, len(runs)+len(index))
	seen := make(map[string]bool, len(runs))
	for _, r := range runs {
		seen[r.ID] = true
		out = append(out, RunItem{
			RunID:        r.ID,
			CreatedAtUTC: stats.FormatTimestamp(r.CreatedAtUTC),
			Scenario:     r.Scenario,
			Kernel:       r.Kernel,
			Optimizer:    r.Optimizer,
			Seed:         r.Seed,
			BestFitness:  r.BestFitness,
			Evaluations:  r.Evaluations,
		})
	}
	for _, e := range index {
		if seen[e.RunID] {
			continue
		}
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Scenario:     e.Scenario,
			Kernel:       e.Kernel,
			Optimizer:    e.Optimizer,
			Seed:         e.Seed,
			BestFitness:  e.FinalBestFitness,
			Evaluations:  e.Evaluations,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAtUTC > out[j].CreatedAtUTC
	})
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// Run loads a run from the store, falling back to its artifacts. An empty id
// selects the latest run.
func (c *Client) Run(ctx context.Context, id string) (RunDetail, error) {
	if err := c.ensureStore(ctx); err != nil {
		return RunDetail{}, err
	}
	if id == "" {
		latest, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return RunDetail{}, err
		}
		if len(latest) == 0 {
			return RunDetail{}, errors.New("no runs available")
		}
		id = latest[0].RunID
	}
	run, ok, err := c.store.GetRun(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return c.runFromArtifacts(id)
	}
	history, _, err := c.store.GetFitnessHistory(ctx, id)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{Run: run, BestByEpoch: history}, nil
}

func (c *Client) runFromArtifacts(id string) (RunDetail, error) {
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, id)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("run not found: %s", id)
	}
	best, ok, err := stats.ReadBestParams(c.runsDir, id)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("run %s has no best params", id)
	}
	history, _, err := stats.ReadFitnessHistory(c.runsDir, id)
	if err != nil {
		return RunDetail{}, err
	}
	entry, _, err := stats.FindRunIndexEntry(c.runsDir, id)
	if err != nil {
		return RunDetail{}, err
	}
	created, err := time.Parse(time.RFC3339, cfg.CreatedAtUTC)
	if err != nil {
		return RunDetail{}, fmt.Errorf("run %s: parse created_at_utc: %w", id, err)
	}

	run := model.Run{
		VersionedRecord: storage.CurrentVersion(),
		ID:              cfg.RunID,
		CreatedAtUTC:    created,
		Scenario:        cfg.Scenario,
		Kernel:          cfg.Kernel,
		Transfer:        cfg.Transfer,
		Size:            cfg.Size,
		Optimizer:       cfg.Optimizer,
		Seed:            cfg.Seed,
		Epochs:          cfg.Epochs,
		Swarm:           cfg.Swarm,
		Workers:         cfg.Workers,
		BestParams:      append([]float64(nil), best.Vector...),
		BestFitness:     best.Fitness,
		Evaluations:     entry.Evaluations,
		GoalReached:     entry.GoalReached,
	}
	return RunDetail{Run: run, BestByEpoch: history}, nil
}

// DeleteRun removes a run from the store and deletes its artifacts.
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("run id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	_, stored, err := c.store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if stored {
		if err := c.store.DeleteRun(ctx, id); err != nil {
			return err
		}
	}
	removed, err := stats.RemoveRun(c.runsDir, id)
	if err != nil {
		return err
	}
	if !stored && !removed {
		return fmt.Errorf("run not found: %s", id)
	}
	c.logger.Info("run deleted", "run_id", id)
	return nil
}

func (c *Client) optimizerFor(req OptimizeRequest) (tuning.Optimizer, error) {
	rng := rand.New(rand.NewSource(req.Seed))
	switch req.Optimizer {
	case tuning.SwarmName:
		s := &tuning.Swarm{
			Rand:      rng,
			Size:      req.Swarm,
			MaxEpochs: req.Epochs,
			Workers:   req.Workers,
			Progress:  req.Progress,
		}
		if req.GoalFitness != nil {
			s.SetGoalFitness(*req.GoalFitness)
		}
		return s, nil
	case tuning.HillClimberName:
		h := &tuning.HillClimber{
			Rand:     rng,
			Attempts: req.Epochs,
			Progress: req.Progress,
		}
		if req.GoalFitness != nil {
			h.SetGoalFitness(*req.GoalFitness)
		}
		return h, nil
	default:
		return tuning.FromName(req.Optimizer, rng)
	}
}

func newField(size int, kernelName, transfer string, params []float64) (*field.Field, error) {
	f, err := field.New(field.Config{Size: size, Kernel: kernelName, Transfer: transfer})
	if err != nil {
		return nil, err
	}
	if params != nil {
		if err := f.SetParamVector(params); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func withDefaults(scenario string, size int, kernelName, transfer string) (string, int, string, string) {
	if scenario == "" {
		scenario = scapeid.Selection
	}
	if size <= 0 {
		size = defaultSize
	}
	if kernelName == "" {
		kernelName = defaultKernel
	}
	if transfer == "" {
		transfer = defaultTransfer
	}
	return scenario, size, kernelName, transfer
}

// defaultBudget returns the epoch and swarm size usually spent on a scenario.
func defaultBudget(scenario string) (epochs, swarm int) {
	switch scapeid.Normalize(scenario) {
	case scapeid.WorkingMemory:
		return 1000, 200
	default:
		return tuning.DefaultEpochs, tuning.DefaultSwarmSize
	}
}
