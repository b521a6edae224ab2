package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

func TestSeparateMatrix(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []int16
		size   int
		ok     bool
	}{
		{"gaussian", gauss3x3, 3, true},
		{"box", box3x3, 3, true},
		{"sobel", sobelX3x3, 3, true},
		{"not separable", []int16{1, 2, 3, 4, 5, 6, 7, 8, 10}, 3, false},
		{"zero first row", []int16{0, 0, 0, 1, 2, 1, 0, 0, 0}, 3, true},
		{"zero", make([]int16, 9), 3, false},
		{"wrong length", gauss3x3[:8], 3, false},
		{"gaussian 5x5", outer([]int16{1, 4, 6, 4, 1}, []int16{1, 4, 6, 4, 1}), 5, true},
		{"negative pivot", outer([]int16{1, 2, 1}, []int16{-2, 0, 4}), 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, row, ok := SeparateMatrix(tt.coeffs, tt.size)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.coeffs, outer(col, row))
		})
	}
}

// outer returns the row-major matrix col * row.
func outer(col, row []int16) []int16 {
	out := make([]int16, 0, len(col)*len(row))
	for _, c := range col {
		for _, r := range row {
			out = append(out, c*r)
		}
	}
	return out
}

func TestIntermediateDataType(t *testing.T) {
	assert.Equal(t, tensor.U16, IntermediateDataType([]int16{1, 2, 1}))
	assert.Equal(t, tensor.S16, IntermediateDataType([]int16{-1, 0, 1}))
	assert.Equal(t, tensor.S32, IntermediateDataType([]int16{100, 100, 100}))
	assert.Equal(t, tensor.S16, IntermediateDataType([]int16{-100, 0, 100}))
	assert.Equal(t, tensor.S32, IntermediateDataType([]int16{-200, 0, 200}))
}

func TestSeparableMatchesSquareConvolution(t *testing.T) {
	const width, height = 13, 9
	for _, mode := range []tensor.BorderMode{tensor.BorderReplicate, tensor.BorderConstant} {
		t.Run(mode.String(), func(t *testing.T) {
			col, row, ok := SeparateMatrix(gauss3x3, 3)
			require.True(t, ok)
			dt := IntermediateDataType(row)

			in := image(tensor.U8, width, height)
			tmp := image(dt, width, height)
			out, ref := image(tensor.U8, width, height), image(tensor.U8, width, height)

			h := NewSeparableHorizontalKernel(3)
			h.Configure(in, tmp, row, false)
			v := NewSeparableVerticalKernel(3)
			v.Configure(tmp, out, col, CalculateMatrixScale(gauss3x3), false)
			sq := NewConvolutionKernel(3)
			sq.Configure(in, ref, gauss3x3, 0, false)
			fb := NewFillBorderKernel()
			fb.Configure(in, h.BorderSize().Max(sq.BorderSize()), mode, 0)

			assert.Equal(t, tensor.NewBorderSize(1, 0), tmp.Info().Padding())
			allocate(t, in, tmp, out, ref)
			fill(in, func(x, y int) uint8 { return uint8(x*37 + y*91) })

			sched := scheduler.NewCPU(3)
			sched.Schedule(fb, tensor.DimZ)
			sched.Schedule(h, tensor.DimY)
			sched.Schedule(v, tensor.DimY)
			sched.Schedule(sq, tensor.DimY)

			if diff := cmp.Diff(rows[uint8](ref), rows[uint8](out)); diff != "" {
				t.Errorf("separable and square results differ (-square +separable):\n%s", diff)
			}
			assert.Equal(t, "convolve_row3_u16", h.Routine())
			assert.Equal(t, "convolve_column3_U16_U8", v.Routine())
		})
	}
}

func TestSeparableHorizontalWindow(t *testing.T) {
	in, tmp := image(tensor.U8, 20, 6), image(tensor.S16, 20, 6)
	h := NewSeparableHorizontalKernel(5)
	h.Configure(in, tmp, []int16{1, 1, 1, 1, 1}, false)

	// Border rows are processed too.
	assert.Equal(t, -2, h.Window().Y().Start)
	assert.Equal(t, 8, h.Window().Y().End)
	assert.Equal(t, tensor.UniformBorder(2), in.Info().Padding())

	in2, tmp2 := image(tensor.U8, 20, 6), image(tensor.S16, 20, 6)
	hu := NewSeparableHorizontalKernel(5)
	hu.Configure(in2, tmp2, []int16{1, 1, 1, 1, 1}, true)
	assert.Equal(t, 0, hu.Window().Y().Start)
	assert.Equal(t, 2, hu.Window().X().Start)
	assert.Equal(t, tensor.NewBorderSize(0, 2), hu.BorderSize())
	assert.Equal(t, tensor.BorderSize{}, in2.Info().Padding())
}

func TestValidateSeparable(t *testing.T) {
	info := func(dt tensor.DataType) *tensor.Info { return tensor.MustInfo(tensor.Shape{16, 16}, dt) }

	assert.NoError(t, ValidateSeparableHorizontal(info(tensor.U8), info(tensor.S32), []int16{1, 2, 1}, 3, false))
	assert.ErrorIs(t, ValidateSeparableHorizontal(info(tensor.U8), info(tensor.U8), []int16{1, 2, 1}, 3, false),
		kernel.ErrUnsupportedDataType)
	assert.ErrorIs(t, ValidateSeparableHorizontal(info(tensor.U8), info(tensor.S16), []int16{1, 2}, 3, false),
		kernel.ErrInvalidArgument)

	assert.NoError(t, ValidateSeparableVertical(info(tensor.S16), info(tensor.S16), []int16{1, 2, 1}, 3, 1, false))
	assert.ErrorIs(t, ValidateSeparableVertical(info(tensor.S16), info(tensor.S16), []int16{1, 2, 1}, 3, 0, false),
		kernel.ErrInvalidArgument)
	assert.ErrorIs(t, ValidateSeparableVertical(info(tensor.U8), info(tensor.S16), []int16{1, 2, 1}, 3, 1, false),
		kernel.ErrUnsupportedDataType)
	assert.ErrorIs(t, ValidateSeparableVertical(info(tensor.S16), info(tensor.F32), []int16{1, 2, 1}, 3, 1, false),
		kernel.ErrUnsupportedDataType)
}
