package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

const (
	runIndexFile       = "run_index.json"
	configFile         = "config.json"
	fitnessHistoryFile = "fitness_history.csv"
	bestParamsFile     = "best_params.json"
	summaryFile        = "summary.json"

	timestampLayout = "%Y-%m-%dT%H:%M:%SZ"
)

// FormatTimestamp renders t in UTC for run indexes and configs.
func FormatTimestamp(t time.Time) string {
	return strftime.Format(timestampLayout, t.UTC())
}

type RunConfig struct {
	RunID        string   `json:"run_id"`
	CreatedAtUTC string   `json:"created_at_utc"`
	Scenario     string   `json:"scenario"`
	Kernel       string   `json:"kernel"`
	Transfer     string   `json:"transfer"`
	Size         int      `json:"size"`
	Optimizer    string   `json:"optimizer"`
	Seed         int64    `json:"seed"`
	Epochs       int      `json:"epochs"`
	Swarm        int      `json:"swarm"`
	Workers      int      `json:"workers"`
	GoalFitness  *float64 `json:"goal_fitness,omitempty"`
}

type BestParams struct {
	DtTau   float64   `json:"dt_tau"`
	H       float64   `json:"h"`
	Ae      float64   `json:"ae"`
	Ke      float64   `json:"ke"`
	Ki      float64   `json:"ki"`
	Si      float64   `json:"si"`
	Vector  []float64 `json:"vector"`
	Fitness float64   `json:"fitness"`
}

// NewBestParams labels a [dt_tau, h, Ae, ke, ki, si] vector.
func NewBestParams(v []float64, fitness float64) (BestParams, error) {
	if len(v) != 6 {
		return BestParams{}, fmt.Errorf("best params must have 6 values, got %d", len(v))
	}
	return BestParams{
		DtTau:   v[0],
		H:       v[1],
		Ae:      v[2],
		Ke:      v[3],
		Ki:      v[4],
		Si:      v[5],
		Vector:  append([]float64(nil), v...),
		Fitness: fitness,
	}, nil
}

type RunArtifacts struct {
	Config           RunConfig  `json:"config"`
	BestByEpoch      []float64  `json:"best_by_epoch"`
	BestParams       BestParams `json:"best_params"`
	FinalBestFitness float64    `json:"final_best_fitness"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Scenario         string  `json:"scenario"`
	Kernel           string  `json:"kernel"`
	Optimizer        string  `json:"optimizer"`
	Seed             int64   `json:"seed"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	Evaluations      int     `json:"evaluations"`
	GoalReached      bool    `json:"goal_reached"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// RunDir is the artifact directory of runID under baseDir.
func RunDir(baseDir, runID string) string {
	return filepath.Join(baseDir, runID)
}

// WriteRunArtifacts writes config.json, fitness_history.csv, best_params.json
// and summary.json into RunDir(baseDir, runID).
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := RunDir(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := WriteFitnessHistory(runDir, artifacts.BestByEpoch); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, bestParamsFile), artifacts.BestParams); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), Summarize(artifacts.BestByEpoch)); err != nil {
		return "", err
	}
	return runDir, nil
}

// AppendRunIndex adds entry to the index, replacing any entry with the same
// run id in place. The file keeps append order; ListRunIndex sorts.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	replaced := false
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		index = append(index, entry)
	}
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// RemoveRun drops runID from the index and deletes its artifact directory.
// It reports whether anything was removed.
func RemoveRun(baseDir, runID string) (bool, error) {
	if runID == "" {
		return false, fmt.Errorf("run id is required")
	}
	index, err := readRunIndex(baseDir)
	if err != nil {
		return false, err
	}
	kept := index[:0]
	for _, e := range index {
		if e.RunID != runID {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(index)
	if removed {
		if err := writeJSON(filepath.Join(baseDir, runIndexFile), kept); err != nil {
			return false, err
		}
	}

	runDir := RunDir(baseDir, runID)
	if _, err := os.Stat(runDir); err == nil {
		if err := os.RemoveAll(runDir); err != nil {
			return false, err
		}
		removed = true
	} else if !os.IsNotExist(err) {
		return false, err
	}
	return removed, nil
}

// FindRunIndexEntry returns the index entry of runID.
func FindRunIndexEntry(baseDir, runID string) (RunIndexEntry, bool, error) {
	index, err := readRunIndex(baseDir)
	if err != nil {
		return RunIndexEntry{}, false, err
	}
	for _, e := range index {
		if e.RunID == runID {
			return e, true, nil
		}
	}
	return RunIndexEntry{}, false, nil
}

// ListRunIndex returns the index newest first. Entries with equal timestamps
// list the later appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}
	sorted := make([]RunIndexEntry, len(entries))
	for i := range entries {
		sorted[len(entries)-1-i] = entries[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAtUTC > sorted[j].CreatedAtUTC
	})
	return sorted, nil
}

// readRunIndex returns the index in file (append) order.
func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	data, err := os.ReadFile(filepath.Join(RunDir(baseDir, runID), configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return RunConfig{}, false, nil
		}
		return RunConfig{}, false, err
	}

	var cfg RunConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, false, err
	}
	return cfg, true, nil
}

func ReadBestParams(baseDir, runID string) (BestParams, bool, error) {
	data, err := os.ReadFile(filepath.Join(RunDir(baseDir, runID), bestParamsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return BestParams{}, false, nil
		}
		return BestParams{}, false, err
	}

	var best BestParams
	if err := json.Unmarshal(data, &best); err != nil {
		return BestParams{}, false, err
	}
	return best, true, nil
}

// WriteFitnessHistory writes one epoch,best_fitness row per epoch.
func WriteFitnessHistory(runDir string, bestByEpoch []float64) error {
	file, err := os.Create(filepath.Join(runDir, fitnessHistoryFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"epoch", "best_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByEpoch {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessHistory(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(RunDir(baseDir, runID), fitnessHistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness history header must have at least 2 columns")
	}

	series := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness history row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
