// Package envconfig reads runtime configuration from BORN_* environment
// variables. Values are read on every call so tests can override them with
// t.Setenv.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var (
	// NoSIMD masks every vector ISA feature, forcing portable routines.
	NoSIMD = Bool("BORN_NO_SIMD")

	// NoFP16 masks vector FP16 arithmetic, so F16 kernels use their
	// F32-promoting routines.
	NoFP16 = Bool("BORN_NO_FP16")

	// NumThreads is the number of CPU scheduler workers. 0 selects one per
	// logical CPU.
	NumThreads = Uint("BORN_NUM_THREADS", 0)

	// TunerFile is the path of the GPU tuner table.
	TunerFile = String("BORN_TUNER_FILE")

	// GPUSync makes the GPU scheduler wait for every enqueued kernel.
	GPUSync = Bool("BORN_GPU_SYNC")
)

// TunerMode returns the GPU tuning mode: none, rapid, normal or exhaustive.
// Unknown values fall back to none.
func TunerMode() string {
	switch s := strings.ToLower(Var("BORN_TUNER_MODE")); s {
	case "rapid", "normal", "exhaustive":
		return s
	case "", "none":
		return "none"
	default:
		slog.Warn("invalid tuner mode, using default", "value", s, "default", "none")
		return "none"
	}
}

// LogLevel returns the log level set by BORN_DEBUG: 1 or true selects
// DEBUG, 2 selects TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("BORN_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// BoolWithDefault returns a getter for a boolean variable. Unparseable values
// count as true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean variable defaulting to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// String returns a getter for a string variable.
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint returns a getter for an unsigned variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BORN_DEBUG":       {"BORN_DEBUG", LogLevel(), "Show additional debug information (e.g. BORN_DEBUG=1)"},
		"BORN_NUM_THREADS": {"BORN_NUM_THREADS", NumThreads(), "Number of CPU scheduler workers (default: one per CPU)"},
		"BORN_NO_SIMD":     {"BORN_NO_SIMD", NoSIMD(), "Disable vector ISA specific kernel routines"},
		"BORN_NO_FP16":     {"BORN_NO_FP16", NoFP16(), "Disable vector FP16 arithmetic"},
		"BORN_TUNER_FILE":  {"BORN_TUNER_FILE", TunerFile(), "Path of the GPU tuner table"},
		"BORN_TUNER_MODE":  {"BORN_TUNER_MODE", TunerMode(), "GPU tuning mode: none, rapid, normal or exhaustive"},
		"BORN_GPU_SYNC":    {"BORN_GPU_SYNC", GPUSync(), "Wait for every GPU kernel to complete"},
	}
}

// Values returns every variable's current value as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Var returns an environment variable stripped of surrounding quotes and
// spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
