package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"neuralfield/internal/field"
	"neuralfield/internal/nn"
	"neuralfield/internal/scape"
	"neuralfield/internal/storage"
	nfapi "neuralfield/pkg/neuralfield"
)

const (
	runsDir       = "runs"
	defaultDBPath = "neuralfield.db"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "optimize":
		return runOptimize(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	storeKind *string
	dbPath    *string
	runsDir   *string
	verbose   *bool
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
		runsDir:   fs.String("runs-dir", runsDir, "run artifact directory"),
		verbose:   fs.Bool("v", false, "debug logging"),
	}
}

func (c commonFlags) client() (*nfapi.Client, error) {
	level := slog.LevelInfo
	if *c.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nfapi.New(nfapi.Options{
		StoreKind: *c.storeKind,
		DBPath:    *c.dbPath,
		RunsDir:   *c.runsDir,
		Logger:    logger,
	})
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	common := registerCommon(fs)
	configPath := fs.String("config", "", "optional simulate config JSON path")
	scenario := fs.String("scenario", "selection", scenarioUsage())
	size := fs.Int("size", 100, "ring size")
	kernelName := fs.String("kernel", "fast_step", "kernel: dog|doe|dol|step|fast_step")
	transfer := fs.String("transfer", "heaviside", transferUsage())
	paramsFlag := fs.String("params", "", "comma separated dt_tau,h,Ae,ke,ki,si")
	fromRun := fs.String("from-run", "", "take parameters from a stored run (\"latest\" for the newest)")
	historyPath := fs.String("history", "", "write per-step input/output frames to this CSV path")
	checkpoints := fs.Bool("checkpoints", false, "print the score of every scored step")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := visited(fs)

	req, err := loadOrDefaultSimulateRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = nfapi.SimulateRequest{
			Scenario: *scenario,
			Size:     *size,
			Kernel:   *kernelName,
			Transfer: *transfer,
		}
	} else {
		overrideSimulate(&req, setFlags, map[string]any{
			"scenario": *scenario,
			"size":     *size,
			"kernel":   *kernelName,
			"transfer": *transfer,
		})
	}
	req.HistoryPath = *historyPath
	if *paramsFlag != "" {
		req.Params, err = parseParams(*paramsFlag)
		if err != nil {
			return err
		}
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *fromRun != "" {
		id := *fromRun
		if id == "latest" {
			id = ""
		}
		detail, err := client.Run(ctx, id)
		if err != nil {
			return err
		}
		req.Params = detail.Run.BestParams
		if !setFlags["size"] {
			req.Size = detail.Run.Size
		}
		if !setFlags["kernel"] {
			req.Kernel = detail.Run.Kernel
		}
		if !setFlags["transfer"] {
			req.Transfer = detail.Run.Transfer
		}
	}
	if len(req.Params) == 0 {
		return errors.New("simulate requires --params, --from-run or params in --config")
	}

	summary, err := client.Simulate(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(summary)
	}
	fmt.Fprintf(stdout, "scenario=%s strategy=%s steps=%s fitness=%.6f\n",
		summary.Scenario, summary.Strategy, humanize.Comma(int64(summary.Steps)), summary.Fitness)
	for _, name := range sortedKeys(summary.PerSuite) {
		fmt.Fprintf(stdout, "  %s=%.6f\n", name, summary.PerSuite[name])
		if *checkpoints {
			points := summary.Checkpoints[name]
			steps := make([]int, 0, len(points))
			for step := range points {
				steps = append(steps, step)
			}
			sort.Ints(steps)
			for _, step := range steps {
				fmt.Fprintf(stdout, "    t=%d score=%.6f\n", step, points[step])
			}
		}
	}
	if req.HistoryPath != "" {
		fmt.Fprintf(stdout, "history=%s\n", req.HistoryPath)
	}
	return nil
}

func runOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	common := registerCommon(fs)
	configPath := fs.String("config", "", "optional optimize config JSON path")
	scenario := fs.String("scenario", "selection", scenarioUsage())
	size := fs.Int("size", 100, "ring size")
	kernelName := fs.String("kernel", "fast_step", "kernel: dog|doe|dol|step|fast_step")
	transfer := fs.String("transfer", "heaviside", transferUsage())
	optimizer := fs.String("optimizer", "swarm", "optimizer: swarm|hillclimb")
	seed := fs.Int64("seed", 1, "rng seed")
	epochs := fs.Int("epochs", 0, "optimizer epochs (0 uses the scenario default)")
	swarm := fs.Int("swarm", 0, "swarm size (0 uses the scenario default)")
	workers := fs.Int("workers", 4, "concurrent objective evaluations")
	goal := fs.Float64("fitness-goal", 0, "stop once best fitness <= goal (only when set)")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := visited(fs)

	req, err := loadOrDefaultOptimizeRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = nfapi.OptimizeRequest{
			Scenario:  *scenario,
			Size:      *size,
			Kernel:    *kernelName,
			Transfer:  *transfer,
			Optimizer: *optimizer,
			Seed:      *seed,
			Epochs:    *epochs,
			Swarm:     *swarm,
			Workers:   *workers,
		}
		if setFlags["fitness-goal"] {
			g := *goal
			req.GoalFitness = &g
		}
	} else {
		overrideOptimize(&req, setFlags, map[string]any{
			"scenario":     *scenario,
			"size":         *size,
			"kernel":       *kernelName,
			"transfer":     *transfer,
			"optimizer":    *optimizer,
			"seed":         *seed,
			"epochs":       *epochs,
			"swarm":        *swarm,
			"workers":      *workers,
			"fitness-goal": *goal,
		})
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	started := time.Now()
	progress := newProgressPrinter(stdout, !*jsonOut && isTerminal(os.Stdout))
	req.Progress = progress.update
	summary, err := client.Optimize(ctx, req)
	progress.done()
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(summary)
	}
	fmt.Fprintf(stdout, "run_id=%s best_fitness=%.6f evaluations=%s goal_reached=%t elapsed=%s\n",
		summary.RunID,
		summary.BestFitness,
		humanize.Comma(int64(summary.Evaluations)),
		summary.GoalReached,
		time.Since(started).Round(time.Millisecond),
	)
	fmt.Fprintf(stdout, "best_params=%s\n", formatParams(summary.BestParams))
	fmt.Fprintf(stdout, "artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := registerCommon(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, nfapi.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, item := range items {
		created, _ := time.Parse(time.RFC3339, item.CreatedAtUTC)
		fmt.Fprintf(stdout, "run_id=%s created=%s scenario=%s kernel=%s optimizer=%s seed=%d evaluations=%s best_fitness=%.6f\n",
			item.RunID,
			humanize.Time(created),
			item.Scenario,
			item.Kernel,
			item.Optimizer,
			item.Seed,
			humanize.Comma(int64(item.Evaluations)),
			item.BestFitness,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := registerCommon(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	limit := fs.Int("limit", 50, "max epochs to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit run as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(detail)
	}
	r := detail.Run
	fmt.Fprintf(stdout, "run_id=%s created=%s scenario=%s kernel=%s transfer=%s size=%d optimizer=%s seed=%d\n",
		r.ID, humanize.Time(r.CreatedAtUTC), r.Scenario, r.Kernel, r.Transfer, r.Size, r.Optimizer, r.Seed)
	fmt.Fprintf(stdout, "best_fitness=%.6f evaluations=%s goal_reached=%t\n",
		r.BestFitness, humanize.Comma(int64(r.Evaluations)), r.GoalReached)
	fmt.Fprintf(stdout, "best_params=%s\n", formatParams(r.BestParams))
	history := detail.BestByEpoch
	if *limit > 0 && len(history) > *limit {
		history = history[:*limit]
	}
	for i, best := range history {
		fmt.Fprintf(stdout, "epoch=%d best_fitness=%.6f\n", i+1, best)
	}
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	common := registerCommon(fs)
	runID := fs.String("run-id", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("delete requires --run-id")
	}

	client, err := common.client()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.DeleteRun(ctx, *runID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted run_id=%s\n", *runID)
	return nil
}

func scenarioUsage() string {
	return "scenario: " + strings.Join(scape.Names(), "|")
}

func transferUsage() string {
	return "transfer function: " + strings.Join(nn.ListTransfers(), "|")
}

// progressPrinter redraws a single status line on terminals and prints one
// line per tenth of the run otherwise.
type progressPrinter struct {
	w           io.Writer
	interactive bool
	drawn       bool
	lastEpoch   int
}

func newProgressPrinter(w io.Writer, interactive bool) *progressPrinter {
	return &progressPrinter{w: w, interactive: interactive}
}

func (p *progressPrinter) update(epoch int, best float64) {
	p.lastEpoch = epoch
	if p.interactive {
		fmt.Fprintf(p.w, "\repoch %s best=%.6f", humanize.Comma(int64(epoch)), best)
		p.drawn = true
		return
	}
	if epoch == 1 || epoch%10 == 0 {
		fmt.Fprintf(p.w, "epoch=%d best_fitness=%.6f\n", epoch, best)
	}
}

func (p *progressPrinter) done() {
	if p.drawn {
		fmt.Fprintln(p.w)
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseParams(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != field.ParamCount {
		return nil, fmt.Errorf("%w: --params wants %d values, got %d", field.ErrParamCount, field.ParamCount, len(parts))
	}
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse param %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func formatParams(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	return strings.Join(parts, ",")
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

func encodeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: nfieldctl <simulate|optimize|runs|show|delete> [flags]", msg)
}
