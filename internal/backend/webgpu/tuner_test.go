package webgpu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/tensor"
)

func TestParseTunerMode(t *testing.T) {
	for _, m := range []TunerMode{TunerNone, TunerRapid, TunerNormal, TunerExhaustive} {
		got, err := ParseTunerMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseTunerMode("RAPID")
	require.NoError(t, err)
	assert.Equal(t, TunerRapid, got)

	_, err = ParseTunerMode("fast")
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	assert.Nil(t, Candidates(TunerNone, 2))

	rapid := Candidates(TunerRapid, 2)
	assert.Len(t, rapid, 5) // 256x4 exceeds the limit
	assert.Contains(t, rapid, WorkgroupSize{16, 4, 1})
	assert.NotContains(t, rapid, WorkgroupSize{256, 4, 1})

	for _, wg := range Candidates(TunerRapid, 1) {
		assert.Equal(t, uint32(1), wg[1])
	}

	var prev int
	for _, mode := range []TunerMode{TunerRapid, TunerNormal, TunerExhaustive} {
		c := Candidates(mode, 2)
		assert.Greater(t, len(c), prev, mode.String())
		prev = len(c)
		for _, wg := range c {
			assert.LessOrEqual(t, wg.Invocations(), uint32(maxInvocations))
		}
	}
}

// fakeMeasure prefers workgroups with 64 invocations and fails for X == 8.
func fakeMeasure(calls *int) MeasureFunc {
	return func(wg WorkgroupSize) (time.Duration, error) {
		*calls++
		if wg[0] == 8 {
			return 0, errors.New("exceeds device limit")
		}
		n := int64(wg.Invocations())
		return time.Duration(100+abs64(n-64)) * time.Microsecond, nil
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTunerWorkgroup(t *testing.T) {
	def := WorkgroupSize{256, 1, 1}

	calls := 0
	none := NewTuner(TunerNone, "")
	wg, err := none.Workgroup("add_F32_8x8", def, 2, fakeMeasure(&calls))
	require.NoError(t, err)
	assert.Equal(t, def, wg)
	assert.Zero(t, calls)

	normal := NewTuner(TunerNormal, "")
	wg, err = normal.Workgroup("add_F32_8x8", def, 2, fakeMeasure(&calls))
	require.NoError(t, err)
	assert.Equal(t, uint32(64), wg.Invocations())
	assert.Equal(t, WorkgroupSize{64, 1, 1}, wg)

	// The recorded size is reused without measuring again.
	before := calls
	again, err := normal.Workgroup("add_F32_8x8", def, 2, fakeMeasure(&calls))
	require.NoError(t, err)
	assert.Equal(t, wg, again)
	assert.Equal(t, before, calls)

	e, ok := normal.Lookup("add_F32_8x8")
	require.True(t, ok)
	assert.InDelta(t, 100, e.MeanUS, 1e-9)
	assert.Zero(t, e.StdDevUS)
}

func TestTunerWorkgroupAllFail(t *testing.T) {
	tuner := NewTuner(TunerRapid, "")
	def := WorkgroupSize{64, 1, 1}
	wg, err := tuner.Workgroup("k", def, 1, func(WorkgroupSize) (time.Duration, error) {
		return 0, errors.New("device lost")
	})
	assert.Error(t, err)
	assert.Equal(t, def, wg)
	_, ok := tuner.Lookup("k")
	assert.False(t, ok)
}

func TestTunerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning", "table.yaml")

	tuner := NewTuner(TunerRapid, path)
	require.NoError(t, tuner.Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing tuned, nothing written")

	calls := 0
	_, err = tuner.Workgroup("convolution3x3_U8_640x480", WorkgroupSize{64, 1, 1}, 1, fakeMeasure(&calls))
	require.NoError(t, err)
	require.NoError(t, tuner.Save())

	loaded := NewTuner(TunerNone, path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, tuner.Entries(), loaded.Entries())

	e, ok := loaded.Lookup("convolution3x3_U8_640x480")
	require.True(t, ok)
	assert.Equal(t, WorkgroupSize{64, 1, 1}, e.Workgroup)
}

func TestTunerLoad(t *testing.T) {
	dir := t.TempDir()

	missing := NewTuner(TunerNone, filepath.Join(dir, "missing.yaml"))
	assert.NoError(t, missing.Load())
	assert.Empty(t, missing.Entries())

	path := filepath.Join(dir, "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: 1
entries:
  add_F32_4x4:
    workgroup: [16, 4, 1]
  bad:
    workgroup: [512, 512, 1]
`), 0o644))
	tuner := NewTuner(TunerNone, path)
	require.NoError(t, tuner.Load())
	assert.Equal(t, map[string]TunerEntry{"add_F32_4x4": {Workgroup: WorkgroupSize{16, 4, 1}}}, tuner.Entries())

	require.NoError(t, os.WriteFile(path, []byte("version: 7\n"), 0o644))
	assert.Error(t, NewTuner(TunerNone, path).Load())

	require.NoError(t, os.WriteFile(path, []byte("version: [\n"), 0o644))
	assert.Error(t, NewTuner(TunerNone, path).Load())
}

func TestNewTunerFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	t.Setenv("BORN_TUNER_MODE", "exhaustive")
	t.Setenv("BORN_TUNER_FILE", path)

	tuner, err := NewTunerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, TunerExhaustive, tuner.Mode())
	assert.Equal(t, path, tuner.Path())
}

func TestConfigID(t *testing.T) {
	info := tensor.MustInfo(tensor.Shape{640, 480}, tensor.U8)
	assert.Equal(t, "convolution3x3_U8_640x480", ConfigID("convolution3x3", info))
}
