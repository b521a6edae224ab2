package cpu

import (
	"fmt"

	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// FillBorderKernel writes the border band around a tensor's valid region,
// either with a constant or by replicating the nearest valid element.
//
// The border is limited to the padding the tensor actually has. Left and
// right bands are written row by row first, then the top and bottom rows are
// written across the full padded width so the corners are covered.
type FillBorderKernel struct {
	kernel.Base
	tensor   *tensor.Tensor
	border   tensor.BorderSize
	mode     tensor.BorderMode
	constant []byte
}

// NewFillBorderKernel returns an unconfigured kernel.
func NewFillBorderKernel() *FillBorderKernel {
	return &FillBorderKernel{}
}

// Configure binds t. constant is converted to t's data type, saturating
// integer types, and is only used in BorderConstant mode.
func (k *FillBorderKernel) Configure(t *tensor.Tensor, border tensor.BorderSize, mode tensor.BorderMode, constant float64) {
	if t == nil {
		panic("fill border: nil tensor")
	}
	info := t.Info()
	k.tensor = t
	k.border = border.Limit(info.Padding())
	k.mode = mode
	k.constant = encodeConstant(info.DataType(), constant)

	// One iteration per XY plane.
	win := window.New()
	for d := tensor.DimZ; d < window.MaxDimensions; d++ {
		win.Set(d, window.NewDimension(0, info.Dimension(d)))
	}
	k.Base.Configure(win)
}

func encodeConstant(dt tensor.DataType, v float64) []byte {
	scratch, err := tensor.NewAllocated(tensor.Shape{1}, dt)
	if err != nil {
		panic(fmt.Sprintf("fill border: %v", err))
	}
	scratch.SetFloat(tensor.NewCoordinates(0), v)
	return append([]byte(nil), scratch.Buffer()...)
}

// Name implements kernel.Kernel.
func (k *FillBorderKernel) Name() string {
	return "FillBorder"
}

// Border returns the band that Run writes.
func (k *FillBorderKernel) Border() tensor.BorderSize {
	return k.border
}

// IsParallelisable implements kernel.Kernel.
func (k *FillBorderKernel) IsParallelisable() bool {
	return false
}

// Run implements kernel.Kernel.
func (k *FillBorderKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	if k.mode == tensor.BorderUndefined || k.border.Empty() {
		return
	}

	info := k.tensor.Info()
	buf := k.tensor.Buffer()
	es := info.ElementSize()
	valid := info.ValidRegion()
	sx, ex := valid.Start(tensor.DimX), valid.End(tensor.DimX)
	sy, ey := valid.Start(tensor.DimY), valid.End(tensor.DimY)
	b := k.border

	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		at := func(x, y int) int {
			c := id
			c.Set(tensor.DimX, x)
			c.Set(tensor.DimY, y)
			return info.OffsetElementInBytes(c)
		}
		put := func(dst int, src []byte) {
			copy(buf[dst:dst+es], src)
		}
		value := func(off int) []byte {
			if k.mode == tensor.BorderConstant {
				return k.constant
			}
			return buf[off : off+es]
		}

		for y := sy; y < ey; y++ {
			left, right := value(at(sx, y)), value(at(ex-1, y))
			for x := sx - b.Left; x < sx; x++ {
				put(at(x, y), left)
			}
			for x := ex; x < ex+b.Right; x++ {
				put(at(x, y), right)
			}
		}

		width := (ex + b.Right - (sx - b.Left)) * es
		first, last := at(sx-b.Left, sy), at(sx-b.Left, ey-1)
		for y := sy - b.Top; y < sy; y++ {
			k.fillRow(buf[at(sx-b.Left, y):], buf[first:first+width], es)
		}
		for y := ey; y < ey+b.Bottom; y++ {
			k.fillRow(buf[at(sx-b.Left, y):], buf[last:last+width], es)
		}
	})
}

// fillRow writes one padded border row starting at dst from the edge row
// src, or with the constant.
func (k *FillBorderKernel) fillRow(dst, src []byte, es int) {
	if k.mode == tensor.BorderReplicate {
		copy(dst[:len(src)], src)
		return
	}
	for i := 0; i < len(src); i += es {
		copy(dst[i:i+es], k.constant)
	}
}
