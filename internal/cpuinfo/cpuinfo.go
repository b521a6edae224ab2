// Package cpuinfo reports which vector ISA features kernels may rely on.
package cpuinfo

import (
	"strings"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/born-ml/compute/internal/envconfig"
)

// Feature is a set of ISA capabilities.
type Feature uint32

// Features known to the dispatch tables. A zero Feature is the portable
// baseline every host satisfies.
const (
	NEON Feature = 1 << iota
	FP16
	SVE
	SVE2
	AVX2
	AVX512
	FMA
)

// Vector is satisfied by any host with 128-bit or wider integer vectors.
const Vector = NEON | AVX2

var featureNames = []struct {
	f    Feature
	name string
}{
	{NEON, "neon"},
	{FP16, "fp16"},
	{SVE, "sve"},
	{SVE2, "sve2"},
	{AVX2, "avx2"},
	{AVX512, "avx512"},
	{FMA, "fma"},
}

// Has reports whether every feature of want is present in f.
func (f Feature) Has(want Feature) bool {
	return f&want == want
}

// HasAny reports whether at least one feature of want is present, or want is
// the baseline.
func (f Feature) HasAny(want Feature) bool {
	return want == 0 || f&want != 0
}

// String lists the feature names separated by commas.
func (f Feature) String() string {
	if f == 0 {
		return "scalar"
	}
	var names []string
	for _, fn := range featureNames {
		if f.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, ",")
}

// Host returns the features of the running CPU, ignoring environment
// overrides.
func Host() Feature {
	var f Feature
	if cpu.ARM64.HasASIMD {
		f |= NEON
	}
	if cpu.ARM64.HasASIMDHP && cpu.ARM64.HasFPHP {
		f |= FP16
	}
	if cpu.ARM64.HasSVE {
		f |= SVE
	}
	if cpu.ARM64.HasSVE2 {
		f |= SVE2
	}
	if cpu.X86.HasAVX2 {
		f |= AVX2
	}
	if cpu.X86.HasAVX512F {
		f |= AVX512
	}
	if cpu.X86.HasFMA {
		f |= FMA
	}
	return f
}

// Mask removes the features disabled by BORN_NO_SIMD and BORN_NO_FP16.
func Mask(f Feature) Feature {
	if envconfig.NoSIMD() {
		return 0
	}
	if envconfig.NoFP16() {
		f &^= FP16
	}
	return f
}

var detected = sync.OnceValue(func() Feature { return Mask(Host()) })

// Detect returns the host features with environment overrides applied. The
// result is computed once per process.
func Detect() Feature {
	return detected()
}
