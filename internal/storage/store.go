// Package storage keeps finished runs on disk: a metadata.json and a
// frames.csv per run directory.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/spacesim/internal/physics"
	"github.com/san-kum/spacesim/internal/sim"
)

var frameHeader = []string{"step", "time", "index", "x", "y", "radius"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Scenario       string             `json:"scenario"`
	Timestamp      time.Time          `json:"timestamp"`
	TimeDelta      float64            `json:"time_delta"`
	SimulationTime float64            `json:"simulation_time"`
	G              float64            `json:"G"`
	Collision      string             `json:"collision_type"`
	Bodies         int                `json:"bodies"`
	Status         string             `json:"status"`
	Steps          int                `json:"steps"`
	Metrics        map[string]float64 `json:"metrics"`
}

// NewRunMetadata fills the parameter fields from the engine and the outcome
// fields from result.
func NewRunMetadata(scenario string, e *physics.Engine, result *sim.Result) RunMetadata {
	p := e.Params()
	meta := RunMetadata{
		Scenario:       scenario,
		TimeDelta:      p.TimeDelta,
		SimulationTime: p.SimulationTime,
		G:              p.G,
		Collision:      p.Collision.String(),
		Bodies:         e.Len(),
	}
	if result != nil {
		meta.Status = result.Status.String()
		meta.Steps = result.StepsTaken
		meta.Metrics = result.Metrics
	}
	return meta
}

// Save writes a new run directory and returns its id. An empty meta.ID is
// generated from the scenario name.
func (s *Store) Save(meta RunMetadata, frames []sim.Frame) (string, error) {
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d_%s", meta.Scenario, time.Now().Unix(), uuid.NewString()[:8])
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "frames.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteFrames(csvFile, frames); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteFrames writes one CSV row per body per frame.
func WriteFrames(out io.Writer, frames []sim.Frame) error {
	w := csv.NewWriter(out)
	if err := w.Write(frameHeader); err != nil {
		return err
	}
	for _, f := range frames {
		step := strconv.Itoa(f.Step)
		t := strconv.FormatFloat(f.Time, 'g', -1, 64)
		for i, b := range f.Bodies {
			row := []string{
				step,
				t,
				strconv.Itoa(i),
				strconv.FormatFloat(b.X, 'g', -1, 64),
				strconv.FormatFloat(b.Y, 'g', -1, 64),
				strconv.FormatFloat(b.Radius, 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadFrames(file)
}

// ReadFrames groups consecutive rows with the same step into one frame.
func ReadFrames(in io.Reader) ([]sim.Frame, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(frameHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.Frame{}, nil
	}

	frames := make([]sim.Frame, 0)
	for n, record := range records[1:] {
		var vals [6]float64
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("frames.csv line %d: %s: %w", n+2, frameHeader[j], err)
			}
			vals[j] = v
		}
		step := int(vals[0])
		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, sim.Frame{Step: step, Time: vals[1]})
		}
		f := &frames[len(frames)-1]
		if int(vals[2]) != len(f.Bodies) {
			return nil, fmt.Errorf("frames.csv line %d: index %d out of order", n+2, int(vals[2]))
		}
		f.Bodies = append(f.Bodies, physics.BodyState{X: vals[3], Y: vals[4], Radius: vals[5]})
	}
	return frames, nil
}
