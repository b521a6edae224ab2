// Package window describes N-dimensional iteration spaces and the helpers
// kernels use to derive, split, slice and walk them.
//
// A Window carries a (start, end, step) triple for each of
// tensor.MaxDimensions dimensions. It is computed once per kernel at
// configure time and read-only afterwards; schedulers hand kernels copies
// restricted to a partition.
package window

import (
	"fmt"
	"strings"

	"github.com/born-ml/compute/internal/tensor"
)

// MaxDimensions is the number of dimensions of a Window.
const MaxDimensions = tensor.MaxDimensions

// Dimension is the iteration range of one axis.
type Dimension struct {
	Start int
	End   int
	Step  int
}

// NewDimension returns [start, end) with a step of 1.
func NewDimension(start, end int) Dimension {
	return Dimension{Start: start, End: end, Step: 1}
}

// Extent returns End - Start.
func (d Dimension) Extent() int {
	return d.End - d.Start
}

// Window is an N-dimensional iteration space.
//
// The zero value is an unconfigured window: every step is 0 and Validate
// fails. Use New for a window whose dimensions all hold a single iteration.
type Window struct {
	dims [MaxDimensions]Dimension
}

// New returns a window in which every dimension is [0, 1) with step 1.
func New() Window {
	var w Window
	for d := range w.dims {
		w.dims[d] = Dimension{Start: 0, End: 1, Step: 1}
	}
	return w
}

// FromShape returns a window covering shape with unit steps.
func FromShape(shape tensor.Shape) Window {
	w := New()
	for d := 0; d < len(shape); d++ {
		w.dims[d] = NewDimension(0, shape[d])
	}
	return w
}

// Dim returns dimension d.
func (w Window) Dim(d int) Dimension {
	return w.dims[d]
}

// X returns dimension 0.
func (w Window) X() Dimension { return w.dims[tensor.DimX] }

// Y returns dimension 1.
func (w Window) Y() Dimension { return w.dims[tensor.DimY] }

// Z returns dimension 2.
func (w Window) Z() Dimension { return w.dims[tensor.DimZ] }

// Set replaces dimension d.
func (w *Window) Set(d int, dim Dimension) {
	w.dims[d] = dim
}

// Configured reports whether the window was ever set up. The zero Window is
// unconfigured.
func (w Window) Configured() bool {
	for _, d := range w.dims {
		if d.Step != 0 {
			return true
		}
	}
	return false
}

// Validate checks start <= end and step > 0 on every dimension.
func (w Window) Validate() error {
	for i, d := range w.dims {
		if d.Step <= 0 {
			return fmt.Errorf("window dimension %d: step %d must be > 0", i, d.Step)
		}
		if d.Start > d.End {
			return fmt.Errorf("window dimension %d: start %d > end %d", i, d.Start, d.End)
		}
	}
	return nil
}

// NumIterations returns how many steps dimension d takes, rounding a ragged
// last step up.
func (w Window) NumIterations(d int) int {
	dim := w.dims[d]
	if dim.Step <= 0 {
		panic(fmt.Sprintf("window: dimension %d has step %d", d, dim.Step))
	}
	return (dim.Extent() + dim.Step - 1) / dim.Step
}

// TotalIterations returns the product of NumIterations over all dimensions.
func (w Window) TotalIterations() int {
	n := 1
	for d := range w.dims {
		n *= w.NumIterations(d)
	}
	return n
}

// Shift returns a copy of w with dimension d translated by delta.
func (w Window) Shift(d, delta int) Window {
	w.dims[d].Start += delta
	w.dims[d].End += delta
	return w
}

// SetDimensionStep returns a copy of w with the step of dimension d replaced.
// The bounds do not move.
func (w Window) SetDimensionStep(d, step int) Window {
	if step <= 0 {
		panic(fmt.Sprintf("window: step %d must be > 0", step))
	}
	w.dims[d].Step = step
	return w
}

// SplitWindow returns the partition id of total contiguous partitions along
// dimension d. Work is split in units of steps; the first
// NumIterations(d)%total partitions receive one extra step. The last
// partition's end is clamped to the window end.
func (w Window) SplitWindow(d, id, total int) Window {
	if total <= 0 || id < 0 || id >= total {
		panic(fmt.Sprintf("window: invalid split %d of %d", id, total))
	}
	dim := w.dims[d]
	iterations := w.NumIterations(d)
	work := iterations / total
	rem := iterations % total

	itStart := work * id
	if id < rem {
		work++
		itStart += id
	} else {
		itStart += rem
	}

	start := dim.Start + itStart*dim.Step
	end := min(dim.End, start+work*dim.Step)
	w.dims[d] = Dimension{Start: start, End: end, Step: dim.Step}
	return w
}

// IsSubWindowOf reports whether w lies inside full with the same steps. A
// kernel must only be run on such windows.
func (w Window) IsSubWindowOf(full Window) bool {
	for d := range w.dims {
		s, f := w.dims[d], full.dims[d]
		if s.Start < f.Start || s.End > f.End || s.Step != f.Step {
			return false
		}
	}
	return true
}

// CollapseIfPossible merges dimensions [first, MaxDimensions) into dimension
// first when every one of them spans the whole of reference from 0 with a
// unit step. It returns the collapsed window and whether it collapsed.
// Contiguity of the underlying memory is the caller's concern; see
// CollapseForTensor.
func (w Window) CollapseIfPossible(reference Window, first int) (Window, bool) {
	if first < 0 || first >= MaxDimensions-1 {
		return w, false
	}
	collapsed := w
	ok := true
	end := w.dims[first].End
	for d := first + 1; ok && d < MaxDimensions; d++ {
		dim := w.dims[d]
		ok = dim.Start == 0 && reference.dims[d].Start == 0 && dim.Step <= 1 && reference.dims[d].End == dim.End
		end *= dim.End
	}
	ok = ok && w.dims[first].Start == 0 && reference.dims[first].End == w.dims[first].End
	if !ok {
		return w, false
	}
	collapsed.dims[first] = Dimension{Start: 0, End: end, Step: w.dims[first].Step}
	for d := first + 1; d < MaxDimensions; d++ {
		collapsed.dims[d] = Dimension{Start: 0, End: 1, Step: 1}
	}
	return collapsed, true
}

// CollapseForTensor collapses like CollapseIfPossible and additionally
// requires the dimensions being merged to be contiguous in every info given,
// so that a single stride walks them.
func CollapseForTensor(w, reference Window, first int, infos ...*tensor.Info) (Window, bool) {
	for _, info := range infos {
		strides := info.StridesInBytes()
		for d := first + 1; d < MaxDimensions; d++ {
			if strides[d] != strides[d-1]*info.Dimension(d-1) {
				return w, false
			}
		}
	}
	return w.CollapseIfPossible(reference, first)
}

// firstSliceWindow keeps the first n dimensions and restricts every higher
// dimension to its first index.
func (w Window) firstSliceWindow(n int) Window {
	slice := w
	for d := n; d < MaxDimensions; d++ {
		slice.dims[d] = NewDimension(w.dims[d].Start, w.dims[d].Start+1)
	}
	return slice
}

// slideWindowSlice advances slice to the next position of the dimensions
// above n in raster order. It returns false once every slice was visited.
func (w Window) slideWindowSlice(n int, slice *Window) bool {
	for d := n; d < MaxDimensions; d++ {
		v := slice.dims[d].Start + 1
		if v < w.dims[d].End {
			slice.dims[d] = NewDimension(v, v+1)
			for lower := n; lower < d; lower++ {
				slice.dims[lower] = NewDimension(w.dims[lower].Start, w.dims[lower].Start+1)
			}
			return true
		}
	}
	return false
}

// FirstSliceWindow2D returns the first 2D slice of w.
func (w Window) FirstSliceWindow2D() Window { return w.firstSliceWindow(2) }

// FirstSliceWindow3D returns the first 3D slice of w.
func (w Window) FirstSliceWindow3D() Window { return w.firstSliceWindow(3) }

// FirstSliceWindow4D returns the first 4D slice of w.
func (w Window) FirstSliceWindow4D() Window { return w.firstSliceWindow(4) }

// SlideWindowSlice2D moves slice to the next 2D slice of w.
func (w Window) SlideWindowSlice2D(slice *Window) bool { return w.slideWindowSlice(2, slice) }

// SlideWindowSlice3D moves slice to the next 3D slice of w.
func (w Window) SlideWindowSlice3D(slice *Window) bool { return w.slideWindowSlice(3, slice) }

// SlideWindowSlice4D moves slice to the next 4D slice of w.
func (w Window) SlideWindowSlice4D(slice *Window) bool { return w.slideWindowSlice(4, slice) }

// String formats the window as [start,end,step] triples.
func (w Window) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for d, dim := range w.dims {
		if d > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "[%d,%d,%d]", dim.Start, dim.End, dim.Step)
	}
	sb.WriteByte('}')
	return sb.String()
}
