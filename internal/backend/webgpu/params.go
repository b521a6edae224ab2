package webgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// layout is how a program addresses a tensor, in elements.
type layout struct {
	offset  uint32
	strideY uint32
	strideZ uint32
}

func layoutOf(info *tensor.Info) layout {
	es := info.ElementSize()
	strides := info.StridesInBytes()
	//nolint:gosec // G115: offsets and strides are non-negative
	return layout{
		offset:  uint32(info.OffsetFirstElementInBytes() / es),
		strideY: uint32(strides[tensor.DimY] / es),
		strideZ: uint32(strides[tensor.DimZ] / es),
	}
}

// planes returns how many XY planes w covers. Dimensions from Z up are
// contiguous in every tensor, so they are dispatched as one axis.
func planes(w window.Window) int {
	n := 1
	for d := tensor.DimZ; d < window.MaxDimensions; d++ {
		n *= w.Dim(d).Extent()
	}
	return n
}

// encodeParams packs uniform values little-endian, padded to the 16 byte
// alignment uniform buffers need.
func encodeParams(vals ...uint32) []byte {
	size := (len(vals)*4 + 15) &^ 15
	buf := make([]byte, size)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// deviceSize rounds a host allocation up to whole words.
func deviceSize(n int) uint64 {
	//nolint:gosec // G115: allocation sizes are non-negative
	return (uint64(n) + 3) &^ 3
}

func additionParams(w window.Window, a, b, out *tensor.Info) []byte {
	la, lb, lo := layoutOf(a), layoutOf(b), layoutOf(out)
	//nolint:gosec // G115: window extents are non-negative
	return encodeParams(
		uint32(w.X().Extent()), uint32(w.Y().Extent()), uint32(planes(w)),
		uint32(w.X().Start), uint32(w.Y().Start),
		la.offset, la.strideY, la.strideZ,
		lb.offset, lb.strideY, lb.strideZ,
		lo.offset, lo.strideY, lo.strideZ,
	)
}

func convolutionParams(w window.Window, in, out *tensor.Info) []byte {
	li, lo := layoutOf(in), layoutOf(out)
	//nolint:gosec // G115: window bounds are non-negative
	return encodeParams(
		uint32(w.X().Start), uint32(w.X().End), uint32(w.Y().Start), uint32(w.Y().End),
		uint32(planes(w)),
		li.offset, li.strideY, li.strideZ,
		lo.offset, lo.strideY, lo.strideZ,
		uint32(deviceSize(out.TotalSize())/4),
	)
}

// ValidateAddition reports whether a + b into out can run on the GPU. Only
// F32 tensors of one shape are supported.
func ValidateAddition(a, b, out *tensor.Info) error {
	const op = "gpu arithmetic addition"
	if err := kernel.CheckNotNil(op, a, b, out); err != nil {
		return err
	}
	if err := kernel.CheckSameShape(op, a, b, out); err != nil {
		return err
	}
	for _, info := range []*tensor.Info{a, b, out} {
		if err := kernel.CheckDataType(op, "operand", info, tensor.F32); err != nil {
			return err
		}
	}
	return nil
}

// ValidateConvolution reports whether a size x size convolution from in to
// out can run on the GPU. The checks are those of the CPU kernel, with the
// output restricted to U8.
func ValidateConvolution(in, out *tensor.Info, coeffs []int16, size int, scale uint32, borderUndefined bool) error {
	if err := cpu.ValidateConvolution(in, out, coeffs, size, scale, borderUndefined); err != nil {
		return fmt.Errorf("gpu %w", err)
	}
	return kernel.CheckDataType("gpu convolution", "output", out, tensor.U8)
}

// convolutionWindow computes the window of a convolution and extends the
// padding of in so the whole neighbourhood of every element is addressable.
func convolutionWindow(in, out *tensor.Info, size int, borderUndefined bool) window.Window {
	border := tensor.UniformBorder(size / 2)
	win, err := window.CalculateMaxWindow(in, window.Steps{1}, borderUndefined, border)
	if err != nil {
		panic(fmt.Sprintf("gpu convolution: %v", err))
	}
	window.UpdateWindowAndPadding(win,
		window.NewAccessWindowRectangle(in, -border.Left, -border.Top, size, size),
		window.NewAccessWindowHorizontal(out, 0, 1),
	)
	window.SetValidRegion(out, in.ValidRegion(), borderUndefined, border)
	return win
}

// additionWindow computes the window of an addition over the intersection of
// the operands' valid regions and sets the output valid region to it.
func additionWindow(a, b, out *tensor.Info) window.Window {
	valid := a.ValidRegion().Intersect(b.ValidRegion())
	win, err := window.CalculateMaxWindowForRegion(valid, window.Steps{1}, false, tensor.BorderSize{})
	if err != nil {
		panic(fmt.Sprintf("gpu arithmetic addition: %v", err))
	}
	out.SetValidRegion(valid)
	return win
}
