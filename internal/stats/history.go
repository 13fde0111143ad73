package stats

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
)

// Frame is one simulated step: the input presented and the output observed.
type Frame struct {
	Scenario string    `json:"scenario"`
	T        int       `json:"t"`
	Input    []float64 `json:"input"`
	Output   []float64 `json:"output"`
}

// History records frames from a field evaluation.
type History struct {
	mu     sync.Mutex
	frames []Frame
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Record(scenario string, t int, input, output []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.frames = append(h.frames, Frame{
		Scenario: scenario,
		T:        t,
		Input:    append([]float64(nil), input...),
		Output:   append([]float64(nil), output...),
	})
}

func (h *History) Frames() []Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]Frame(nil), h.frames...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.frames)
}

// WriteHistoryCSV writes two rows per frame, one for the input and one for
// the output: scenario,t,kind,x0,...,xN-1.
func WriteHistoryCSV(w io.Writer, frames []Frame) error {
	writer := csv.NewWriter(w)
	width := 0
	for _, f := range frames {
		if len(f.Input) > width {
			width = len(f.Input)
		}
		if len(f.Output) > width {
			width = len(f.Output)
		}
	}
	header := []string{"scenario", "t", "kind"}
	for i := 0; i < width; i++ {
		header = append(header, "x"+strconv.Itoa(i))
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, f := range frames {
		for _, row := range []struct {
			kind   string
			values []float64
		}{{"input", f.Input}, {"output", f.Output}} {
			record := make([]string, 0, 3+len(row.values))
			record = append(record, f.Scenario, strconv.Itoa(f.T), row.kind)
			for _, v := range row.values {
				record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteHistoryCSVFile(path string, frames []Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteHistoryCSV(file, frames); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
