package cpu

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/tensor"
)

// image returns an unallocated width x height tensor.
func image(dt tensor.DataType, width, height int) *tensor.Tensor {
	return tensor.New(tensor.MustInfo(tensor.Shape{width, height}, dt))
}

func allocate(t *testing.T, ts ...*tensor.Tensor) {
	t.Helper()
	for _, x := range ts {
		require.NoError(t, x.Allocate())
	}
}

// fill sets every valid element of x to fn(x, y).
func fill[T tensor.Element](x *tensor.Tensor, fn func(x, y int) T) {
	data := tensor.Elements[T](x)
	tensor.ForEachValid(x, func(idx int, c tensor.Coordinates) {
		data[idx] = fn(c.X(), c.Y())
	})
}

// rows returns the XY plane of x, padding excluded, as [y][x].
func rows[T tensor.Element](x *tensor.Tensor) [][]T {
	info := x.Info()
	out := make([][]T, info.Dimension(tensor.DimY))
	for y := range out {
		out[y] = make([]T, info.Dimension(tensor.DimX))
		for i := range out[y] {
			out[y][i] = tensor.At[T](x, tensor.NewCoordinates(i, y))
		}
	}
	return out
}

func constant[T tensor.Element](width, height int, v T) [][]T {
	out := make([][]T, height)
	for y := range out {
		out[y] = make([]T, width)
		for x := range out[y] {
			out[y][x] = v
		}
	}
	return out
}
