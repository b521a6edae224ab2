//go:build windows

package webgpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/function"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	t.Setenv("BORN_TUNER_MODE", "none")
	t.Setenv("BORN_TUNER_FILE", "")
	ctx, err := NewContext()
	if err != nil {
		t.Skipf("WebGPU not available: %v", err)
	}
	t.Cleanup(func() { assert.NoError(t, ctx.Close()) })
	return ctx
}

func u8Image(width, height int) *tensor.Tensor {
	return tensor.New(tensor.MustInfo(tensor.Shape{width, height}, tensor.U8))
}

func plane(x *tensor.Tensor) [][]uint8 {
	info := x.Info()
	out := make([][]uint8, info.Dimension(tensor.DimY))
	for y := range out {
		out[y] = make([]uint8, info.Dimension(tensor.DimX))
		for i := range out[y] {
			out[y][i] = tensor.At[uint8](x, tensor.NewCoordinates(i, y))
		}
	}
	return out
}

func TestGPUConvolutionMatchesCPU(t *testing.T) {
	ctx := newTestContext(t)
	gauss := []int16{1, 2, 1, 2, 4, 2, 1, 2, 1}

	for _, mode := range []tensor.BorderMode{tensor.BorderReplicate, tensor.BorderConstant, tensor.BorderUndefined} {
		t.Run(mode.String(), func(t *testing.T) {
			// 13 columns so rows do not start on word boundaries.
			src, dst, ref, refIn := u8Image(13, 9), u8Image(13, 9), u8Image(13, 9), u8Image(13, 9)
			in, out := ctx.NewTensor(src), ctx.NewTensor(dst)

			conv := NewConvolution(ctx.NewScheduler())
			require.NoError(t, conv.Configure(in, out, gauss, 3, 0, mode, 7))
			defer conv.Close()
			cpuConv := function.NewConvolution(scheduler.NewCPU(2))
			require.NoError(t, cpuConv.Configure(refIn, ref, gauss, 3, 0, mode, 7))
			defer cpuConv.Close()

			require.NoError(t, in.Allocate())
			require.NoError(t, out.Allocate())
			defer in.Release()
			defer out.Release()
			require.NoError(t, refIn.Allocate())
			require.NoError(t, ref.Allocate())

			for _, x := range []*tensor.Tensor{src, refIn} {
				data := tensor.Elements[uint8](x)
				tensor.ForEachValid(x, func(idx int, c tensor.Coordinates) {
					data[idx] = uint8(c.X()*37 + c.Y()*11)
				})
			}

			require.NoError(t, conv.Run())
			require.NoError(t, out.Map())
			cpuConv.Run()

			if diff := cmp.Diff(plane(ref), plane(dst)); diff != "" {
				t.Errorf("GPU result differs (-cpu +gpu):\n%s", diff)
			}
			assert.Equal(t, ref.Info().ValidRegion(), dst.Info().ValidRegion())
		})
	}
}

func TestGPUAddition(t *testing.T) {
	ctx := newTestContext(t)
	shape := tensor.Shape{7, 5, 2}
	a := ctx.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))
	b := ctx.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))
	out := ctx.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))
	require.True(t, b.Info().ExtendPadding(tensor.PaddingSize{Left: 1, Right: 2, Top: 1}))

	k := NewAdditionKernel()
	require.NoError(t, k.Configure(a, b, out))
	defer k.Release()
	require.NoError(t, allocate(a, b, out))

	tensor.Fill(a.Host(), float32(1.5))
	tensor.Fill(b.Host(), float32(2.25))
	for _, x := range []*Tensor{a, b, out} {
		x.Unmap()
	}

	sched := ctx.NewScheduler()
	assert.Panics(t, func() {
		a.mapped = true
		defer func() { a.mapped = false }()
		_ = sched.Enqueue(k, false)
	})
	require.NoError(t, sched.Enqueue(k, false))
	require.NoError(t, sched.Sync())
	require.NoError(t, out.Map())

	tensor.ForEachValid(out.Host(), func(idx int, c tensor.Coordinates) {
		assert.Equal(t, float32(3.75), tensor.Elements[float32](out.Host())[idx], "%v", c)
	})
	assert.Equal(t, WorkgroupSize{16, 16, 1}, k.wg)
}

func TestGPUEnqueueUnconfigured(t *testing.T) {
	ctx := newTestContext(t)
	assert.PanicsWithValue(t, "GPUArithmeticAddition: kernel not configured", func() {
		_ = ctx.NewScheduler().Enqueue(NewAdditionKernel(), true)
	})
}

func TestProgramCache(t *testing.T) {
	ctx := newTestContext(t)
	var opts BuildOptions
	opts.Define("WG_X", 64)
	opts.Define("WG_Y", 1)

	p1, err := ctx.program("add_f32", additionSource, opts)
	require.NoError(t, err)
	p2, err := ctx.program("add_f32", additionSource, opts)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	opts.Define("EXTRA", 1)
	p3, err := ctx.program("add_f32", additionSource, opts)
	require.NoError(t, err)
	assert.NotSame(t, p1, p3)
}
