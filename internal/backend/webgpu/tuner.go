package webgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/compute/internal/envconfig"
	"github.com/born-ml/compute/internal/tensor"
)

// TunerMode controls how many workgroup sizes the tuner tries.
type TunerMode int

const (
	// TunerNone never measures; kernels use their default workgroup size or
	// a size already in the table.
	TunerNone TunerMode = iota
	// TunerRapid tries a handful of common sizes.
	TunerRapid
	// TunerNormal tries a broader set.
	TunerNormal
	// TunerExhaustive tries every power of two combination.
	TunerExhaustive
)

var tunerModeNames = [...]string{"none", "rapid", "normal", "exhaustive"}

func (m TunerMode) String() string {
	if m < 0 || int(m) >= len(tunerModeNames) {
		return fmt.Sprintf("TunerMode(%d)", int(m))
	}
	return tunerModeNames[m]
}

// ParseTunerMode parses a mode name.
func ParseTunerMode(s string) (TunerMode, error) {
	if i := slices.Index(tunerModeNames[:], strings.ToLower(s)); i >= 0 {
		return TunerMode(i), nil
	}
	return TunerNone, fmt.Errorf("unknown tuner mode %q", s)
}

// maxInvocations is the WebGPU default limit on invocations per workgroup.
const maxInvocations = 256

// WorkgroupSize is the X, Y, Z extent of a compute workgroup.
type WorkgroupSize [3]uint32

// Invocations returns X*Y*Z.
func (w WorkgroupSize) Invocations() uint32 {
	return w[0] * w[1] * w[2]
}

func (w WorkgroupSize) String() string {
	return fmt.Sprintf("%dx%dx%d", w[0], w[1], w[2])
}

// TunerEntry is one tuned kernel configuration.
type TunerEntry struct {
	Workgroup WorkgroupSize `yaml:"workgroup,flow"`
	MeanUS    float64       `yaml:"mean_us,omitempty"`
	StdDevUS  float64       `yaml:"stddev_us,omitempty"`
}

type tunerFile struct {
	Version int                   `yaml:"version"`
	Entries map[string]TunerEntry `yaml:"entries"`
}

const tunerFileVersion = 1

// MeasureFunc runs a kernel once with the given workgroup size and returns
// how long it took.
type MeasureFunc func(wg WorkgroupSize) (time.Duration, error)

// Tuner picks workgroup sizes per kernel configuration and remembers them in
// a YAML table.
type Tuner struct {
	mode    TunerMode
	path    string
	repeats int

	mu      sync.Mutex
	entries map[string]TunerEntry
	dirty   bool
}

// NewTuner returns a tuner with an empty table. path may be empty, in which
// case Load and Save do nothing.
func NewTuner(mode TunerMode, path string) *Tuner {
	repeats := 3
	switch mode {
	case TunerRapid:
		repeats = 1
	case TunerExhaustive:
		repeats = 5
	}
	return &Tuner{mode: mode, path: path, repeats: repeats, entries: make(map[string]TunerEntry)}
}

// NewTunerFromEnv returns a tuner configured by BORN_TUNER_MODE and
// BORN_TUNER_FILE with the table loaded.
func NewTunerFromEnv() (*Tuner, error) {
	mode, err := ParseTunerMode(envconfig.TunerMode())
	if err != nil {
		return nil, err
	}
	t := NewTuner(mode, envconfig.TunerFile())
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// Mode returns the tuning mode.
func (t *Tuner) Mode() TunerMode {
	return t.mode
}

// Path returns the table file path.
func (t *Tuner) Path() string {
	return t.path
}

// Load merges the table file into the tuner. A missing file is not an error.
func (t *Tuner) Load() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("tuner: %w", err)
	}

	var f tunerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("tuner: parse %s: %w", t.path, err)
	}
	if f.Version != tunerFileVersion {
		return fmt.Errorf("tuner: %s: unsupported version %d", t.path, f.Version)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for id, e := range f.Entries {
		if e.Workgroup.Invocations() == 0 || e.Workgroup.Invocations() > maxInvocations {
			slog.Warn("tuner: ignoring invalid entry", "id", id, "workgroup", e.Workgroup)
			continue
		}
		t.entries[id] = e
	}
	slog.Debug("tuner table loaded", "path", t.path, "entries", len(t.entries))
	return nil
}

// Save writes the table file if entries were tuned since the last Load or
// Save.
func (t *Tuner) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.path == "" || !t.dirty {
		return nil
	}

	data, err := yaml.Marshal(tunerFile{Version: tunerFileVersion, Entries: t.entries})
	if err != nil {
		return fmt.Errorf("tuner: %w", err)
	}
	if dir := filepath.Dir(t.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("tuner: %w", err)
		}
	}
	if err := os.WriteFile(t.path, data, 0o644); err != nil {
		return fmt.Errorf("tuner: %w", err)
	}
	t.dirty = false
	return nil
}

// Lookup returns the tuned entry for id.
func (t *Tuner) Lookup(id string) (TunerEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	return e, ok
}

// Set records an entry for id.
func (t *Tuner) Set(id string, e TunerEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
	t.dirty = true
}

// Entries returns a copy of the table.
func (t *Tuner) Entries() map[string]TunerEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.entries)
}

// Workgroup returns the workgroup size to use for configuration id. A size
// already in the table wins. Otherwise, unless the mode is TunerNone or
// measure is nil, every candidate for dims dimensions is measured and the
// one with the lowest mean time is recorded. Candidates whose measurement
// fails are skipped; def is returned when none succeeds.
func (t *Tuner) Workgroup(id string, def WorkgroupSize, dims int, measure MeasureFunc) (WorkgroupSize, error) {
	if e, ok := t.Lookup(id); ok {
		return e.Workgroup, nil
	}
	if t.mode == TunerNone || measure == nil {
		return def, nil
	}

	var (
		best     TunerEntry
		found    bool
		failures []error
	)
	for _, wg := range Candidates(t.mode, dims) {
		samples := make([]float64, 0, t.repeats)
		var err error
		for range t.repeats {
			var d time.Duration
			if d, err = measure(wg); err != nil {
				break
			}
			samples = append(samples, float64(d.Microseconds()))
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("%v: %w", wg, err))
			continue
		}
		mean, std := stat.MeanStdDev(samples, nil)
		if t.repeats == 1 {
			std = 0
		}
		slog.Debug("tuner candidate", "id", id, "workgroup", wg, "mean_us", mean, "stddev_us", std)
		if !found || mean < best.MeanUS {
			best, found = TunerEntry{Workgroup: wg, MeanUS: mean, StdDevUS: std}, true
		}
	}
	if !found {
		return def, fmt.Errorf("tuner: %s: no candidate ran: %w", id, errors.Join(failures...))
	}

	t.Set(id, best)
	slog.Info("tuned kernel", "id", id, "workgroup", best.Workgroup, "mean_us", best.MeanUS)
	return best.Workgroup, nil
}

// Candidates returns the workgroup sizes tried in mode for a dispatch over
// dims dimensions. Sizes never exceed the default invocation limit.
func Candidates(mode TunerMode, dims int) []WorkgroupSize {
	var xs, ys []uint32
	switch mode {
	case TunerRapid:
		xs, ys = []uint32{16, 64, 256}, []uint32{1, 4}
	case TunerNormal:
		xs, ys = []uint32{8, 16, 32, 64, 128, 256}, []uint32{1, 2, 4, 8}
	case TunerExhaustive:
		for v := uint32(1); v <= maxInvocations; v *= 2 {
			xs, ys = append(xs, v), append(ys, v)
		}
	default:
		return nil
	}
	if dims < 2 {
		ys = []uint32{1}
	}

	var out []WorkgroupSize
	for _, y := range ys {
		for _, x := range xs {
			if wg := (WorkgroupSize{x, y, 1}); wg.Invocations() <= maxInvocations {
				out = append(out, wg)
			}
		}
	}
	return out
}

// ConfigID names a kernel configuration in the tuner table, e.g.
// "add_F32_640x480".
func ConfigID(kernel string, info *tensor.Info) string {
	dims := make([]string, len(info.Shape()))
	for i, d := range info.Shape() {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s_%s_%s", kernel, info.DataType(), strings.Join(dims, "x"))
}
