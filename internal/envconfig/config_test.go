package envconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"true":  true,
		"false": false,
		"1":     true,
		"0":     false,
		"bogus": true,
	}
	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("BORN_NO_SIMD", value)
			assert.Equal(t, want, NoSIMD())
		})
	}
}

func TestNumThreads(t *testing.T) {
	t.Setenv("BORN_NUM_THREADS", "")
	assert.Equal(t, uint(0), NumThreads())

	t.Setenv("BORN_NUM_THREADS", "6")
	assert.Equal(t, uint(6), NumThreads())

	t.Setenv("BORN_NUM_THREADS", "many")
	assert.Equal(t, uint(0), NumThreads())
}

func TestTunerMode(t *testing.T) {
	for value, want := range map[string]string{
		"":           "none",
		"RAPID":      "rapid",
		"exhaustive": "exhaustive",
		"fast":       "none",
	} {
		t.Setenv("BORN_TUNER_MODE", value)
		assert.Equal(t, want, TunerMode(), value)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}
	for value, want := range cases {
		t.Setenv("BORN_DEBUG", value)
		assert.Equal(t, want, LogLevel(), value)
	}
}

func TestVarTrimsQuotes(t *testing.T) {
	t.Setenv("BORN_TUNER_FILE", ` "/tmp/tuner.yaml" `)
	assert.Equal(t, "/tmp/tuner.yaml", TunerFile())
	assert.Contains(t, Values(), "BORN_TUNER_FILE")
}
