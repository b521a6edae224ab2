package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

// padded returns an allocated 4x3 U8 tensor holding 1..12 with a one
// element padding band.
func padded(t *testing.T) *tensor.Tensor {
	t.Helper()
	x := image(tensor.U8, 4, 3)
	x.Info().ExtendPadding(tensor.UniformBorder(1))
	allocate(t, x)
	fill(x, func(x, y int) uint8 { return uint8(1 + x + 4*y) })
	return x
}

// withBorder returns the XY plane of x including a b element band.
func withBorder(x *tensor.Tensor, b int) [][]uint8 {
	info := x.Info()
	var out [][]uint8
	for y := -b; y < info.Dimension(tensor.DimY)+b; y++ {
		var row []uint8
		for i := -b; i < info.Dimension(tensor.DimX)+b; i++ {
			row = append(row, tensor.At[uint8](x, tensor.NewCoordinates(i, y)))
		}
		out = append(out, row)
	}
	return out
}

func TestFillBorderReplicate(t *testing.T) {
	x := padded(t)
	k := NewFillBorderKernel()
	k.Configure(x, tensor.UniformBorder(1), tensor.BorderReplicate, 0)
	scheduler.NewCPU(4).Schedule(k, tensor.DimY)

	want := [][]uint8{
		{1, 1, 2, 3, 4, 4},
		{1, 1, 2, 3, 4, 4},
		{5, 5, 6, 7, 8, 8},
		{9, 9, 10, 11, 12, 12},
		{9, 9, 10, 11, 12, 12},
	}
	assert.Equal(t, want, withBorder(x, 1))
}

func TestFillBorderConstant(t *testing.T) {
	x := padded(t)
	k := NewFillBorderKernel()
	k.Configure(x, tensor.UniformBorder(1), tensor.BorderConstant, 300)
	k.Run(k.Window(), kernel.SingleThread)

	// The constant saturates to the element type.
	want := [][]uint8{
		{255, 255, 255, 255, 255, 255},
		{255, 1, 2, 3, 4, 255},
		{255, 5, 6, 7, 8, 255},
		{255, 9, 10, 11, 12, 255},
		{255, 255, 255, 255, 255, 255},
	}
	assert.Equal(t, want, withBorder(x, 1))
}

func TestFillBorderUndefinedIsNoop(t *testing.T) {
	x := padded(t)
	k := NewFillBorderKernel()
	k.Configure(x, tensor.UniformBorder(1), tensor.BorderUndefined, 7)
	k.Run(k.Window(), kernel.SingleThread)

	band := withBorder(x, 1)
	assert.Equal(t, []uint8{0, 0, 0, 0, 0, 0}, band[0])
	assert.Equal(t, uint8(0), band[2][0])
}

func TestFillBorderLimitedToPadding(t *testing.T) {
	x := padded(t)
	k := NewFillBorderKernel()
	k.Configure(x, tensor.UniformBorder(4), tensor.BorderConstant, 9)

	assert.Equal(t, tensor.UniformBorder(1), k.Border())
	assert.False(t, k.IsParallelisable())
	require.NotPanics(t, func() { k.Run(k.Window(), kernel.SingleThread) })
}

func TestFillBorderS16ShrunkValidRegion(t *testing.T) {
	x := image(tensor.S16, 5, 5)
	x.Info().ExtendPadding(tensor.UniformBorder(1))
	allocate(t, x)
	fill(x, func(_, _ int) int16 { return -3 })

	// Only the centre 3x3 is valid; the band around it lies inside the
	// shape and needs no padding.
	valid := x.Info().ValidRegion()
	valid.Anchor = tensor.NewCoordinates(1, 1)
	valid.Shape = tensor.Shape{3, 3}
	x.Info().SetValidRegion(valid)
	tensor.Set(x, tensor.NewCoordinates(2, 2), int16(8))

	k := NewFillBorderKernel()
	k.Configure(x, tensor.UniformBorder(1), tensor.BorderConstant, -1)
	k.Run(k.Window(), kernel.SingleThread)

	assert.Equal(t, int16(-1), tensor.At[int16](x, tensor.NewCoordinates(0, 0)))
	assert.Equal(t, int16(-1), tensor.At[int16](x, tensor.NewCoordinates(4, 2)))
	assert.Equal(t, int16(-3), tensor.At[int16](x, tensor.NewCoordinates(1, 1)))
	assert.Equal(t, int16(8), tensor.At[int16](x, tensor.NewCoordinates(2, 2)))
	// Padding beyond the band is left alone.
	assert.Equal(t, int16(0), tensor.At[int16](x, tensor.NewCoordinates(-1, -1)))
}
