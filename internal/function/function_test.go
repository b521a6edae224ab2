package function

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/array"
	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

func image(dt tensor.DataType, width, height int) *tensor.Tensor {
	return tensor.New(tensor.MustInfo(tensor.Shape{width, height}, dt))
}

func allocate(t *testing.T, ts ...*tensor.Tensor) {
	t.Helper()
	for _, x := range ts {
		require.NoError(t, x.Allocate())
	}
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

func ramp(x *tensor.Tensor) {
	data := tensor.Elements[uint8](x)
	tensor.ForEachValid(x, func(idx int, c tensor.Coordinates) {
		data[idx] = uint8(c.X()*29 + c.Y()*53)
	})
}

func TestConvolutionSeparableMatchesRectangle(t *testing.T) {
	gauss5 := []int16{
		1, 4, 6, 4, 1,
		4, 16, 24, 16, 4,
		6, 24, 36, 24, 6,
		4, 16, 24, 16, 4,
		1, 4, 6, 4, 1,
	}
	for _, mode := range []tensor.BorderMode{tensor.BorderReplicate, tensor.BorderConstant} {
		t.Run(mode.String(), func(t *testing.T) {
			sched := scheduler.NewCPU(4)
			in, out, ref := image(tensor.U8, 23, 17), image(tensor.U8, 23, 17), image(tensor.U8, 23, 17)

			sep := NewConvolution(sched)
			defer sep.Close()
			require.NoError(t, sep.Configure(in, out, gauss5, 5, 0, mode, 11))
			assert.True(t, sep.Separable())

			rect := NewConvolution(sched)
			require.NoError(t, rect.ConfigureRectangle(in, ref, gauss5, 5, 5, 256, mode, 11))
			assert.False(t, rect.Separable())

			allocate(t, in, out, ref)
			ramp(in)
			sep.Run()
			rect.Run()

			if diff := cmp.Diff(plane(ref), plane(out)); diff != "" {
				t.Errorf("separable result differs (-rectangle +separable):\n%s", diff)
			}
		})
	}
}

func TestConvolutionNonSeparable(t *testing.T) {
	in, out := image(tensor.U8, 10, 10), image(tensor.U8, 10, 10)
	conv := NewConvolution(scheduler.NewCPU(2))
	require.NoError(t, conv.Configure(in, out, []int16{0, 0, 0, 0, 1, 0, 0, 0, 1}, 3, 0, tensor.BorderConstant, 0))
	assert.False(t, conv.Separable())

	allocate(t, in, out)
	tensor.Fill[uint8](in, 5)
	conv.Run()

	// Centre plus bottom-right neighbour, halved.
	got := plane(out)
	assert.Equal(t, uint8(5), got[0][0])
	assert.Equal(t, uint8(2), got[9][9])
	assert.Equal(t, uint8(2), got[9][0])
}

func TestConvolutionBorderUndefined(t *testing.T) {
	in, out := image(tensor.U8, 12, 12), image(tensor.U8, 12, 12)
	conv := NewConvolution(nil)
	defer conv.Close()
	require.NoError(t, conv.Configure(in, out, []int16{1, 2, 1, 2, 4, 2, 1, 2, 1}, 3, 0, tensor.BorderUndefined, 0))
	allocate(t, in, out)
	tensor.Fill[uint8](in, 9)
	conv.Run()

	valid := out.Info().ValidRegion()
	assert.Equal(t, []int{1, 11, 1, 11}, []int{
		valid.Start(tensor.DimX), valid.End(tensor.DimX), valid.Start(tensor.DimY), valid.End(tensor.DimY),
	})
	got := plane(out)
	assert.Equal(t, uint8(9), got[1][1])
	assert.Equal(t, uint8(9), got[10][10])
	assert.Equal(t, uint8(0), got[0][0])
}

func TestConvolutionConfigureErrors(t *testing.T) {
	conv := NewConvolution(nil)
	err := conv.Configure(image(tensor.S16, 8, 8), image(tensor.U8, 8, 8), make([]int16, 9), 3, 0, tensor.BorderConstant, 0)
	assert.ErrorIs(t, err, kernel.ErrUnsupportedDataType)

	err = conv.ConfigureRectangle(image(tensor.U8, 8, 8), image(tensor.U8, 8, 8), make([]int16, 15), 5, 3, 0, tensor.BorderConstant, 0)
	assert.ErrorIs(t, err, kernel.ErrInvalidArgument)

	err = conv.Configure(nil, image(tensor.U8, 8, 8), make([]int16, 9), 3, 0, tensor.BorderConstant, 0)
	assert.ErrorIs(t, err, kernel.ErrInvalidArgument)

	assert.PanicsWithValue(t, "convolution: not configured", conv.Run)
}

func TestConvolutionCloseReleasesIntermediate(t *testing.T) {
	in, out := image(tensor.U8, 8, 8), image(tensor.U8, 8, 8)
	conv := NewConvolution(nil)
	require.NoError(t, conv.Configure(in, out, []int16{1, 2, 1, 2, 4, 2, 1, 2, 1}, 3, 0, tensor.BorderReplicate, 0))
	require.NotNil(t, conv.tmp)
	tmp := conv.tmp
	assert.True(t, tmp.IsAllocated())

	require.NoError(t, conv.Close())
	assert.False(t, tmp.IsAllocated())
	assert.Nil(t, conv.tmp)
	assert.Panics(t, conv.Run)
}

func TestMinMaxLocation(t *testing.T) {
	for _, threads := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("T%d", threads), func(t *testing.T) {
			x := image(tensor.F32, 9, 7)
			allocate(t, x)
			data := tensor.Elements[float32](x)
			tensor.ForEachValid(x, func(idx int, c tensor.Coordinates) {
				data[idx] = float32(c.X()%4) - float32(c.Y()%3)
			})

			minLoc, maxLoc := array.New[array.Coordinates2D](4), array.New[array.Coordinates2D](64)
			f := NewMinMaxLocation(scheduler.NewCPU(threads))
			require.NoError(t, f.Configure(x, minLoc, maxLoc))
			result := f.Run()

			// min -2 at x%4==0, y%3==2: x in {0,4,8}, y in {2,5}
			assert.Equal(t, cpu.MinMaxResult{Min: -2, Max: 3, MinCount: 6, MaxCount: 6}, result)
			assert.True(t, minLoc.Overflow())
			assert.Equal(t, array.Coordinates2D{X: 0, Y: 2}, minLoc.At(0))
			assert.Equal(t, array.Coordinates2D{X: 3, Y: 0}, maxLoc.At(0))
			assert.Equal(t, 6, maxLoc.NumValues())

			// Running again gives the same answer.
			assert.Equal(t, result, f.Run())
		})
	}
}

func TestArithmeticAddition(t *testing.T) {
	a, b, out := image(tensor.U8, 33, 2), image(tensor.S16, 33, 2), image(tensor.S16, 33, 2)
	f := NewArithmeticAddition(nil)
	require.NoError(t, f.Configure(a, b, out, cpu.ConvertSaturate))
	allocate(t, a, b, out)
	tensor.Fill[uint8](a, 250)
	tensor.Fill[int16](b, 32767)
	f.Run()

	assert.Equal(t, int16(32767), tensor.At[int16](out, tensor.NewCoordinates(32, 1)))

	err := f.Configure(a, b, image(tensor.U8, 33, 2), cpu.ConvertSaturate)
	assert.ErrorIs(t, err, kernel.ErrUnsupportedDataType)
}

func TestFillArray(t *testing.T) {
	x := image(tensor.U8, 6, 3)
	allocate(t, x)
	tensor.Set(x, tensor.NewCoordinates(4, 1), uint8(90))
	tensor.Set(x, tensor.NewCoordinates(1, 2), uint8(120))

	out := array.New[array.KeyPoint](10)
	f := NewFillArray(nil)
	require.NoError(t, f.Configure(x, x.Info().ValidRegion(), 50, out))
	f.Run()
	f.Run()

	assert.Equal(t, []array.KeyPoint{
		{X: 4, Y: 1, Strength: 90, TrackingStatus: 1},
		{X: 1, Y: 2, Strength: 120, TrackingStatus: 1},
	}, out.Values())
}
