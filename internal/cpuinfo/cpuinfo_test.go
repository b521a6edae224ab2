package cpuinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureSet(t *testing.T) {
	f := NEON | FP16
	assert.True(t, f.Has(NEON))
	assert.True(t, f.Has(NEON|FP16))
	assert.False(t, f.Has(SVE))
	assert.True(t, f.HasAny(Vector))
	assert.True(t, Feature(0).HasAny(0))
	assert.False(t, Feature(0).HasAny(Vector))
	assert.Equal(t, "neon,fp16", f.String())
	assert.Equal(t, "scalar", Feature(0).String())
}

func TestMask(t *testing.T) {
	all := NEON | FP16 | AVX2

	t.Setenv("BORN_NO_SIMD", "")
	t.Setenv("BORN_NO_FP16", "1")
	assert.Equal(t, NEON|AVX2, Mask(all))

	t.Setenv("BORN_NO_SIMD", "1")
	assert.Equal(t, Feature(0), Mask(all))
}

func TestHostIsStable(t *testing.T) {
	assert.Equal(t, Host(), Host())
	assert.True(t, Host().Has(Detect()))
}
