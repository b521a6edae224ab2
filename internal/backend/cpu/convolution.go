package cpu

import (
	"fmt"

	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/dispatch"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// Elements processed per window step by the convolution kernels. The last
// step of a row may process fewer.
const convolutionStep = 8

var matrixSizes = [...]int{3, 5, 7, 9}

// CalculateMatrixScale returns the scale a convolution uses when none is
// given: the absolute sum of the coefficients, or 1 when they sum to 0.
func CalculateMatrixScale(coeffs []int16) uint32 {
	var sum int64
	for _, c := range coeffs {
		sum += int64(c)
	}
	if sum < 0 {
		sum = -sum
	}
	return uint32(max(sum, 1))
}

// convKey selects a convolution routine.
type convKey struct {
	Rows int
	Cols int
	Out  tensor.DataType
}

// convParams is the state a convolution routine reads. It is immutable once
// the kernel is configured.
type convParams struct {
	input    *tensor.Tensor
	output   *tensor.Tensor
	coeffs   []int16 // rows*cols, row-major, first row applies to the top neighbour row
	rows     int
	cols     int
	scale    uint32
	invScale float32
}

type convFunc func(p *convParams, w window.Window)

var convolutionTable = newConvolutionTable()

func newConvolutionTable() *dispatch.Table[convKey, convFunc] {
	var entries []dispatch.Entry[convKey, convFunc]
	for _, rows := range matrixSizes {
		for _, cols := range matrixSizes {
			entries = append(entries,
				dispatch.Entry[convKey, convFunc]{
					Name: fmt.Sprintf("convolve_%dx%d_u8", rows, cols),
					Key:  convKey{Rows: rows, Cols: cols, Out: tensor.U8},
					Fn:   convolve[uint8],
				},
				dispatch.Entry[convKey, convFunc]{
					Name: fmt.Sprintf("convolve_%dx%d_s16", rows, cols),
					Key:  convKey{Rows: rows, Cols: cols, Out: tensor.S16},
					Fn:   convolve[int16],
				},
			)
		}
	}
	entries = append(entries,
		dispatch.Entry[convKey, convFunc]{
			Name:     "convolve_3x3_unrolled_u8",
			Key:      convKey{Rows: 3, Cols: 3, Out: tensor.U8},
			Priority: 1,
			Fn:       convolve3x3[uint8],
		},
		dispatch.Entry[convKey, convFunc]{
			Name:     "convolve_3x3_unrolled_s16",
			Key:      convKey{Rows: 3, Cols: 3, Out: tensor.S16},
			Priority: 1,
			Fn:       convolve3x3[int16],
		},
	)
	return dispatch.NewTable("convolution", entries...)
}

// convolve computes output(x, y) = sum(coeffs[r][c] * input(x+c-cols/2, y+r-rows/2)) / scale.
func convolve[O uint8 | int16](p *convParams, w window.Window) {
	in := tensor.Elements[uint8](p.input)
	out := tensor.Elements[O](p.output)
	inStride := p.input.Info().StridesInBytes()[tensor.DimY]
	lo, hi := limits[O]()
	bx, by := p.cols/2, p.rows/2
	endX, step := w.X().End, w.X().Step

	inIt := window.NewIterator(p.input.Info(), w)
	outIt := window.NewIterator(p.output.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		n := min(step, endX-id.X())
		top := inIt.Index() - by*inStride - bx
		dst := out[outIt.Index() : outIt.Index()+n]
		for i := range dst {
			var sum int64
			for r := 0; r < p.rows; r++ {
				src := in[top+r*inStride+i : top+r*inStride+i+p.cols]
				coeffs := p.coeffs[r*p.cols : (r+1)*p.cols]
				for c, v := range src {
					sum += int64(coeffs[c]) * int64(v)
				}
			}
			dst[i] = saturate[O](applyScale(sum, p.scale, p.invScale), lo, hi)
		}
	}, inIt, outIt)
}

// convolve3x3 is convolve with the 3x3 neighbourhood unrolled.
func convolve3x3[O uint8 | int16](p *convParams, w window.Window) {
	in := tensor.Elements[uint8](p.input)
	out := tensor.Elements[O](p.output)
	stride := p.input.Info().StridesInBytes()[tensor.DimY]
	lo, hi := limits[O]()
	m := p.coeffs
	endX, step := w.X().End, w.X().Step

	inIt := window.NewIterator(p.input.Info(), w)
	outIt := window.NewIterator(p.output.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		n := min(step, endX-id.X())
		mid := inIt.Index() - 1
		top := in[mid-stride : mid-stride+n+2]
		row := in[mid : mid+n+2]
		bot := in[mid+stride : mid+stride+n+2]
		dst := out[outIt.Index() : outIt.Index()+n]
		for i := range dst {
			sum := int64(m[0])*int64(top[i]) + int64(m[1])*int64(top[i+1]) + int64(m[2])*int64(top[i+2]) +
				int64(m[3])*int64(row[i]) + int64(m[4])*int64(row[i+1]) + int64(m[5])*int64(row[i+2]) +
				int64(m[6])*int64(bot[i]) + int64(m[7])*int64(bot[i+1]) + int64(m[8])*int64(bot[i+2])
			dst[i] = saturate[O](applyScale(sum, p.scale, p.invScale), lo, hi)
		}
	}, inIt, outIt)
}

// convolutionKernel is the machinery shared by the square and rectangle
// convolution kernels.
type convolutionKernel struct {
	kernel.Base
	params  convParams
	border  tensor.BorderSize
	fn      convFunc
	routine string
}

func validateConvolution(op string, input, output *tensor.Info, coeffs []int16, rows, cols int, borderUndefined bool) error {
	if err := kernel.CheckNotNil(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckMatrixSize(op, rows); err != nil {
		return err
	}
	if err := kernel.CheckMatrixSize(op, cols); err != nil {
		return err
	}
	if len(coeffs) != rows*cols {
		return fmt.Errorf("%s: %w: %d coefficients for a %dx%d matrix", op, kernel.ErrInvalidArgument, len(coeffs), rows, cols)
	}
	if err := kernel.CheckSameShape(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "input", input, tensor.U8); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "output", output, tensor.U8, tensor.S16); err != nil {
		return err
	}
	border := tensor.NewBorderSize(rows/2, cols/2)
	win, err := window.CalculateMaxWindow(input, window.Steps{convolutionStep}, borderUndefined, border)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return kernel.CheckPadding(op, win,
		window.NewAccessWindowRectangle(input, -border.Left, -border.Top, cols, rows),
		window.NewAccessWindowHorizontal(output, 0, 1),
	)
}

func (k *convolutionKernel) configure(input, output *tensor.Tensor, coeffs []int16, rows, cols int, scale uint32, borderUndefined bool) {
	k.border = tensor.NewBorderSize(rows/2, cols/2)
	k.params = convParams{
		input:    input,
		output:   output,
		coeffs:   append([]int16(nil), coeffs...),
		rows:     rows,
		cols:     cols,
		scale:    scale,
		invScale: 1 / float32(scale),
	}

	win, err := window.CalculateMaxWindow(input.Info(), window.Steps{convolutionStep}, borderUndefined, k.border)
	if err != nil {
		panic(fmt.Sprintf("convolution: %v", err))
	}
	window.UpdateWindowAndPadding(win,
		window.NewAccessWindowRectangle(input.Info(), -k.border.Left, -k.border.Top, cols, rows),
		window.NewAccessWindowHorizontal(output.Info(), 0, 1),
	)
	window.SetValidRegion(output.Info(), input.Info().ValidRegion(), borderUndefined, k.border)

	entry, err := convolutionTable.Select(convKey{Rows: rows, Cols: cols, Out: output.Info().DataType()}, cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("convolution: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// BorderSize returns the neighbourhood radius on each side.
func (k *convolutionKernel) BorderSize() tensor.BorderSize {
	return k.border
}

// Routine returns the name of the routine selected at configure time.
func (k *convolutionKernel) Routine() string {
	return k.routine
}

// Scale returns the divisor applied to every accumulated sum.
func (k *convolutionKernel) Scale() uint32 {
	return k.params.scale
}

func (k *convolutionKernel) run(name string, w window.Window) {
	k.CheckRun(name, w)
	k.fn(&k.params, w)
}

// ConvolutionKernel convolves a U8 image with a square matrix of size 3, 5,
// 7 or 9.
//
// Example:
//
//	k := cpu.NewConvolutionKernel(3)
//	k.Configure(src, dst, []int16{1, 2, 1, 2, 4, 2, 1, 2, 1}, 0, false)
//	sched.Schedule(k, tensor.DimY)
type ConvolutionKernel struct {
	convolutionKernel
	size int
}

// NewConvolutionKernel returns an unconfigured kernel for size x size
// matrices.
func NewConvolutionKernel(size int) *ConvolutionKernel {
	return &ConvolutionKernel{size: size}
}

// ValidateConvolution checks whether a square convolution can be configured
// with the given arguments. Scale 0 is accepted and replaced by
// CalculateMatrixScale at configure time.
func ValidateConvolution(input, output *tensor.Info, coeffs []int16, size int, _ uint32, borderUndefined bool) error {
	return validateConvolution("convolution", input, output, coeffs, size, size, borderUndefined)
}

// Configure binds input and output and selects the routine. coeffs is copied.
// It panics if ValidateConvolution fails.
func (k *ConvolutionKernel) Configure(input, output *tensor.Tensor, coeffs []int16, scale uint32, borderUndefined bool) {
	kernel.MustValidate(ValidateConvolution(input.Info(), output.Info(), coeffs, k.size, scale, borderUndefined))
	if scale == 0 {
		scale = CalculateMatrixScale(coeffs)
	}
	k.configure(input, output, coeffs, k.size, k.size, scale, borderUndefined)
}

// Name implements kernel.Kernel.
func (k *ConvolutionKernel) Name() string {
	return fmt.Sprintf("Convolution%dx%d", k.size, k.size)
}

// Run implements kernel.Kernel.
func (k *ConvolutionKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.run(k.Name(), w)
}

// ConvolutionRectangleKernel convolves a U8 image with a rows x cols matrix,
// each of 3, 5, 7 or 9.
type ConvolutionRectangleKernel struct {
	convolutionKernel
}

// NewConvolutionRectangleKernel returns an unconfigured kernel.
func NewConvolutionRectangleKernel() *ConvolutionRectangleKernel {
	return &ConvolutionRectangleKernel{}
}

// ValidateConvolutionRectangle checks whether a rectangle convolution can be
// configured. Unlike the square kernel the scale must be given.
func ValidateConvolutionRectangle(input, output *tensor.Info, coeffs []int16, width, height int, scale uint32, borderUndefined bool) error {
	const op = "convolution rectangle"
	if scale == 0 {
		return fmt.Errorf("%s: %w: scale must not be 0", op, kernel.ErrInvalidArgument)
	}
	return validateConvolution(op, input, output, coeffs, height, width, borderUndefined)
}

// Configure binds input and output. It panics if
// ValidateConvolutionRectangle fails.
func (k *ConvolutionRectangleKernel) Configure(input, output *tensor.Tensor, coeffs []int16, width, height int, scale uint32, borderUndefined bool) {
	kernel.MustValidate(ValidateConvolutionRectangle(input.Info(), output.Info(), coeffs, width, height, scale, borderUndefined))
	k.configure(input, output, coeffs, height, width, scale, borderUndefined)
}

// Name implements kernel.Kernel.
func (k *ConvolutionRectangleKernel) Name() string {
	return "ConvolutionRectangle"
}

// Run implements kernel.Kernel.
func (k *ConvolutionRectangleKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.run(k.Name(), w)
}
