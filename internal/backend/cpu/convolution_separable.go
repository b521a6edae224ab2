package cpu

import (
	"fmt"

	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/dispatch"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// Elements processed per window step by the vertical separable stage.
const separableVerticalStep = 16

// SeparateMatrix factors a size x size matrix into a column and a row vector
// such that coeffs[r*size+c] == col[r]*row[c]. It returns false when the
// matrix has no such integer factorisation.
func SeparateMatrix(coeffs []int16, size int) (col, row []int16, ok bool) {
	if len(coeffs) != size*size {
		return nil, nil, false
	}
	// The pivot is the smallest non-zero coefficient of the first non-zero
	// row, so that the rest of that row divides by it.
	pr, pc := -1, -1
	for r := 0; r < size && pr < 0; r++ {
		for c := 0; c < size; c++ {
			v := coeffs[r*size+c]
			if v != 0 && (pc < 0 || abs(v) < abs(coeffs[r*size+pc])) {
				pr, pc = r, c
			}
		}
	}
	if pr < 0 {
		return nil, nil, false
	}
	pivot := coeffs[pr*size+pc]

	col = make([]int16, size)
	for r := range col {
		col[r] = coeffs[r*size+pc]
	}
	row = make([]int16, size)
	for c := range row {
		v := coeffs[pr*size+c]
		if v%pivot != 0 {
			return nil, nil, false
		}
		row[c] = v / pivot
		for r := 0; r < size; r++ {
			if int32(coeffs[r*size+c]) != int32(col[r])*int32(row[c]) {
				return nil, nil, false
			}
		}
	}
	return col, row, true
}

func abs(v int16) int32 {
	if v < 0 {
		return -int32(v)
	}
	return int32(v)
}

// IntermediateDataType returns the narrowest type able to hold the
// horizontal stage of a separable convolution of U8 data by row.
func IntermediateDataType(row []int16) tensor.DataType {
	var lo, hi int64
	for _, c := range row {
		if c > 0 {
			hi += int64(c) * 255
		} else {
			lo += int64(c) * 255
		}
	}
	switch {
	case lo >= 0 && hi <= 0xFFFF:
		return tensor.U16
	case lo >= -0x8000 && hi <= 0x7FFF:
		return tensor.S16
	default:
		return tensor.S32
	}
}

// rowParams is the state of the horizontal stage.
type rowParams struct {
	input  *tensor.Tensor
	output *tensor.Tensor
	row    []int16
}

type rowFunc func(p *rowParams, w window.Window)

type rowKey struct {
	Size int
	Out  tensor.DataType
}

var separableHorizontalTable = newSeparableHorizontalTable()

func newSeparableHorizontalTable() *dispatch.Table[rowKey, rowFunc] {
	var entries []dispatch.Entry[rowKey, rowFunc]
	for _, size := range matrixSizes {
		entries = append(entries,
			dispatch.Entry[rowKey, rowFunc]{Name: fmt.Sprintf("convolve_row%d_u16", size), Key: rowKey{size, tensor.U16}, Fn: convolveRow[uint16]},
			dispatch.Entry[rowKey, rowFunc]{Name: fmt.Sprintf("convolve_row%d_s16", size), Key: rowKey{size, tensor.S16}, Fn: convolveRow[int16]},
			dispatch.Entry[rowKey, rowFunc]{Name: fmt.Sprintf("convolve_row%d_s32", size), Key: rowKey{size, tensor.S32}, Fn: convolveRow[int32]},
		)
	}
	return dispatch.NewTable("separable convolution horizontal", entries...)
}

func convolveRow[O uint16 | int16 | int32](p *rowParams, w window.Window) {
	in := tensor.Elements[uint8](p.input)
	out := tensor.Elements[O](p.output)
	lo, hi := limits[O]()
	b := len(p.row) / 2
	endX, step := w.X().End, w.X().Step

	inIt := window.NewIterator(p.input.Info(), w)
	outIt := window.NewIterator(p.output.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		n := min(step, endX-id.X())
		left := inIt.Index() - b
		dst := out[outIt.Index() : outIt.Index()+n]
		for i := range dst {
			var sum int64
			for c, v := range in[left+i : left+i+len(p.row)] {
				sum += int64(p.row[c]) * int64(v)
			}
			dst[i] = saturate[O](sum, lo, hi)
		}
	}, inIt, outIt)
}

// SeparableHorizontalKernel is the first stage of a separable convolution:
// it convolves each row of a U8 image with a row vector into a U16, S16 or
// S32 intermediate.
//
// With a filled border the stage also processes the border rows above and
// below the image, so that the vertical stage finds its neighbours in the
// intermediate.
type SeparableHorizontalKernel struct {
	kernel.Base
	size    int
	params  rowParams
	border  tensor.BorderSize
	fn      rowFunc
	routine string
}

// NewSeparableHorizontalKernel returns an unconfigured kernel for vectors of
// the given size.
func NewSeparableHorizontalKernel(size int) *SeparableHorizontalKernel {
	return &SeparableHorizontalKernel{size: size}
}

func separableHorizontalBorder(size int, borderUndefined bool) tensor.BorderSize {
	if borderUndefined {
		return tensor.NewBorderSize(0, size/2)
	}
	return tensor.UniformBorder(size / 2)
}

func separableHorizontalWindow(input *tensor.Info, border tensor.BorderSize, borderUndefined bool) (window.Window, error) {
	win, err := window.CalculateMaxWindowHorizontal(input, window.Steps{convolutionStep}, borderUndefined, border)
	if err != nil {
		return win, err
	}
	if !borderUndefined {
		y := win.Y()
		win.Set(tensor.DimY, window.Dimension{Start: y.Start - border.Top, End: y.End + border.Bottom, Step: y.Step})
	}
	return win, nil
}

// ValidateSeparableHorizontal checks the horizontal stage arguments.
func ValidateSeparableHorizontal(input, output *tensor.Info, row []int16, size int, borderUndefined bool) error {
	const op = "separable convolution horizontal"
	if err := kernel.CheckNotNil(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckMatrixSize(op, size); err != nil {
		return err
	}
	if len(row) != size {
		return fmt.Errorf("%s: %w: %d coefficients for size %d", op, kernel.ErrInvalidArgument, len(row), size)
	}
	if err := kernel.CheckSameShape(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "input", input, tensor.U8); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "output", output, tensor.U16, tensor.S16, tensor.S32); err != nil {
		return err
	}
	border := separableHorizontalBorder(size, borderUndefined)
	win, err := separableHorizontalWindow(input, border, borderUndefined)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return kernel.CheckPadding(op, win,
		window.NewAccessWindowHorizontal(input, -border.Left, size),
		window.NewAccessWindowHorizontal(output, 0, 1),
	)
}

// Configure binds input and output. It panics if ValidateSeparableHorizontal
// fails.
func (k *SeparableHorizontalKernel) Configure(input, output *tensor.Tensor, row []int16, borderUndefined bool) {
	kernel.MustValidate(ValidateSeparableHorizontal(input.Info(), output.Info(), row, k.size, borderUndefined))

	k.border = separableHorizontalBorder(k.size, borderUndefined)
	k.params = rowParams{input: input, output: output, row: append([]int16(nil), row...)}

	win, err := separableHorizontalWindow(input.Info(), k.border, borderUndefined)
	if err != nil {
		panic(fmt.Sprintf("separable convolution horizontal: %v", err))
	}
	window.UpdateWindowAndPadding(win,
		window.NewAccessWindowHorizontal(input.Info(), -k.border.Left, k.size),
		window.NewAccessWindowHorizontal(output.Info(), 0, 1),
	)
	window.SetValidRegion(output.Info(), input.Info().ValidRegion(), borderUndefined, k.border)

	entry, err := separableHorizontalTable.Select(rowKey{k.size, output.Info().DataType()}, cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("separable convolution horizontal: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// Name implements kernel.Kernel.
func (k *SeparableHorizontalKernel) Name() string {
	return fmt.Sprintf("SeparableConvolution%dHorizontal", k.size)
}

// BorderSize implements kernel.Kernel.
func (k *SeparableHorizontalKernel) BorderSize() tensor.BorderSize {
	return k.border
}

// Routine returns the name of the routine selected at configure time.
func (k *SeparableHorizontalKernel) Routine() string {
	return k.routine
}

// Run implements kernel.Kernel.
func (k *SeparableHorizontalKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	k.fn(&k.params, w)
}

// columnParams is the state of the vertical stage.
type columnParams struct {
	input    *tensor.Tensor
	output   *tensor.Tensor
	col      []int16
	scale    uint32
	invScale float32
}

type columnFunc func(p *columnParams, w window.Window)

type columnKey struct {
	Size int
	In   tensor.DataType
	Out  tensor.DataType
}

var separableVerticalTable = newSeparableVerticalTable()

func newSeparableVerticalTable() *dispatch.Table[columnKey, columnFunc] {
	var entries []dispatch.Entry[columnKey, columnFunc]
	add := func(size int, in, out tensor.DataType, fn columnFunc) {
		entries = append(entries, dispatch.Entry[columnKey, columnFunc]{
			Name: fmt.Sprintf("convolve_column%d_%s_%s", size, in, out),
			Key:  columnKey{size, in, out},
			Fn:   fn,
		})
	}
	for _, size := range matrixSizes {
		add(size, tensor.U16, tensor.U8, convolveColumn[uint16, uint8])
		add(size, tensor.U16, tensor.S16, convolveColumn[uint16, int16])
		add(size, tensor.S16, tensor.U8, convolveColumn[int16, uint8])
		add(size, tensor.S16, tensor.S16, convolveColumn[int16, int16])
		add(size, tensor.S32, tensor.U8, convolveColumn[int32, uint8])
		add(size, tensor.S32, tensor.S16, convolveColumn[int32, int16])
	}
	return dispatch.NewTable("separable convolution vertical", entries...)
}

func convolveColumn[I uint16 | int16 | int32, O uint8 | int16](p *columnParams, w window.Window) {
	in := tensor.Elements[I](p.input)
	out := tensor.Elements[O](p.output)
	inInfo := p.input.Info()
	inStride := inInfo.StridesInBytes()[tensor.DimY] / inInfo.ElementSize()
	lo, hi := limits[O]()
	b := len(p.col) / 2
	endX, step := w.X().End, w.X().Step

	inIt := window.NewIterator(inInfo, w)
	outIt := window.NewIterator(p.output.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		n := min(step, endX-id.X())
		top := inIt.Index() - b*inStride
		dst := out[outIt.Index() : outIt.Index()+n]
		for i := range dst {
			var sum int64
			for r, c := range p.col {
				sum += int64(c) * int64(in[top+r*inStride+i])
			}
			dst[i] = saturate[O](applyScale(sum, p.scale, p.invScale), lo, hi)
		}
	}, inIt, outIt)
}

// SeparableVerticalKernel is the second stage of a separable convolution: it
// convolves each column of the intermediate with a column vector, applies
// the scale and writes U8 or S16.
type SeparableVerticalKernel struct {
	kernel.Base
	size    int
	params  columnParams
	border  tensor.BorderSize
	fn      columnFunc
	routine string
}

// NewSeparableVerticalKernel returns an unconfigured kernel for vectors of
// the given size.
func NewSeparableVerticalKernel(size int) *SeparableVerticalKernel {
	return &SeparableVerticalKernel{size: size}
}

// ValidateSeparableVertical checks the vertical stage arguments. The scale
// must not be 0.
func ValidateSeparableVertical(input, output *tensor.Info, col []int16, size int, scale uint32, borderUndefined bool) error {
	const op = "separable convolution vertical"
	if err := kernel.CheckNotNil(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckMatrixSize(op, size); err != nil {
		return err
	}
	if len(col) != size {
		return fmt.Errorf("%s: %w: %d coefficients for size %d", op, kernel.ErrInvalidArgument, len(col), size)
	}
	if scale == 0 {
		return fmt.Errorf("%s: %w: scale must not be 0", op, kernel.ErrInvalidArgument)
	}
	if err := kernel.CheckSameShape(op, input, output); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "input", input, tensor.U16, tensor.S16, tensor.S32); err != nil {
		return err
	}
	if err := kernel.CheckDataType(op, "output", output, tensor.U8, tensor.S16); err != nil {
		return err
	}
	border := tensor.NewBorderSize(size/2, 0)
	win, err := window.CalculateMaxWindow(input, window.Steps{separableVerticalStep}, borderUndefined, border)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return kernel.CheckPadding(op, win,
		window.NewAccessWindowRectangle(input, 0, -border.Top, 1, size),
		window.NewAccessWindowHorizontal(output, 0, 1),
	)
}

// Configure binds input and output. It panics if ValidateSeparableVertical
// fails.
func (k *SeparableVerticalKernel) Configure(input, output *tensor.Tensor, col []int16, scale uint32, borderUndefined bool) {
	kernel.MustValidate(ValidateSeparableVertical(input.Info(), output.Info(), col, k.size, scale, borderUndefined))

	k.border = tensor.NewBorderSize(k.size/2, 0)
	k.params = columnParams{
		input:    input,
		output:   output,
		col:      append([]int16(nil), col...),
		scale:    scale,
		invScale: 1 / float32(scale),
	}

	win, err := window.CalculateMaxWindow(input.Info(), window.Steps{separableVerticalStep}, borderUndefined, k.border)
	if err != nil {
		panic(fmt.Sprintf("separable convolution vertical: %v", err))
	}
	window.UpdateWindowAndPadding(win,
		window.NewAccessWindowRectangle(input.Info(), 0, -k.border.Top, 1, k.size),
		window.NewAccessWindowHorizontal(output.Info(), 0, 1),
	)
	window.SetValidRegion(output.Info(), input.Info().ValidRegion(), borderUndefined, k.border)

	key := columnKey{k.size, input.Info().DataType(), output.Info().DataType()}
	entry, err := separableVerticalTable.Select(key, cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("separable convolution vertical: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// Name implements kernel.Kernel.
func (k *SeparableVerticalKernel) Name() string {
	return fmt.Sprintf("SeparableConvolution%dVertical", k.size)
}

// BorderSize implements kernel.Kernel.
func (k *SeparableVerticalKernel) BorderSize() tensor.BorderSize {
	return k.border
}

// Routine returns the name of the routine selected at configure time.
func (k *SeparableVerticalKernel) Routine() string {
	return k.routine
}

// Run implements kernel.Kernel.
func (k *SeparableVerticalKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	k.fn(&k.params, w)
}
