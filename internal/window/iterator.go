package window

import "github.com/born-ml/compute/internal/tensor"

// Iterator walks a tensor's buffer following a window, producing the byte
// offset of the current element. It is advanced by ExecuteWindowLoop.
type Iterator struct {
	esize  int
	stride [MaxDimensions]int // byte step per window step
	start  [MaxDimensions]int // offset at the start of the current row of each dim
}

// NewIterator positions an iterator over a tensor described by info at the
// first element of w.
func NewIterator(info *tensor.Info, w Window) *Iterator {
	it := &Iterator{esize: info.ElementSize()}
	strides := info.StridesInBytes()

	offset := info.OffsetFirstElementInBytes()
	for d := 0; d < MaxDimensions; d++ {
		dim := w.Dim(d)
		it.stride[d] = dim.Step * strides[d]
		offset += dim.Start * strides[d]
	}
	for d := range it.start {
		it.start[d] = offset
	}
	return it
}

// Offset returns the byte offset of the current element.
func (it *Iterator) Offset() int {
	return it.start[0]
}

// Index returns the element index of the current element, for use with
// tensor.Elements.
func (it *Iterator) Index() int {
	return it.start[0] / it.esize
}

// increment moves dimension d one step forward and rewinds every lower
// dimension to the new position.
func (it *Iterator) increment(d int) {
	it.start[d] += it.stride[d]
	for n := 0; n < d; n++ {
		it.start[n] = it.start[d]
	}
}

// ExecuteWindowLoop calls fn for every point of w in raster order, dimension
// 0 varying fastest, advancing each iterator in lockstep. Iterators must have
// been created for the same window.
func ExecuteWindowLoop(w Window, fn func(id tensor.Coordinates), its ...*Iterator) {
	var id tensor.Coordinates
	var loop func(d int)
	loop = func(d int) {
		dim := w.Dim(d)
		for v := dim.Start; v < dim.End; v += dim.Step {
			id.Set(d, v)
			if d == 0 {
				fn(id)
			} else {
				loop(d - 1)
			}
			for _, it := range its {
				it.increment(d)
			}
		}
	}
	loop(MaxDimensions - 1)
}
