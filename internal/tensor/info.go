package tensor

import "fmt"

// Info is the metadata of a tensor: shape, element type, padding, strides
// and valid region.
//
// Padding is only carried on the XY plane. While an Info is resizable its
// padding may still be extended by kernels being configured; allocating the
// tensor that owns it freezes the layout.
type Info struct {
	shape     Shape
	dtype     DataType
	padding   PaddingSize
	strides   [MaxDimensions]int
	offset    int
	totalSize int
	valid     ValidRegion
	resizable bool
}

// NewInfo creates tensor metadata for the given shape and data type with no
// padding and a valid region covering the whole shape.
func NewInfo(shape Shape, dtype DataType) (*Info, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if dtype == Unknown {
		return nil, fmt.Errorf("invalid data type %s", dtype)
	}

	info := &Info{
		shape:     shape.Clone(),
		dtype:     dtype,
		resizable: true,
		valid:     ValidRegion{Shape: shape.Clone()},
	}
	info.updateStrides()
	return info, nil
}

// MustInfo is like NewInfo but panics on error. It is intended for tests and
// fixed, known-good shapes.
func MustInfo(shape Shape, dtype DataType) *Info {
	info, err := NewInfo(shape, dtype)
	if err != nil {
		panic(fmt.Sprintf("tensor info: %v", err))
	}
	return info
}

// updateStrides recomputes byte strides, first element offset and total
// allocation size from shape and padding.
func (i *Info) updateStrides() {
	es := i.dtype.Size()
	i.strides[0] = es
	for d := 1; d < MaxDimensions; d++ {
		extent := i.shape.Dim(d - 1)
		switch d - 1 {
		case DimX:
			extent += i.padding.Left + i.padding.Right
		case DimY:
			extent += i.padding.Top + i.padding.Bottom
		}
		i.strides[d] = i.strides[d-1] * extent
	}
	i.offset = i.padding.Top*i.strides[DimY] + i.padding.Left*i.strides[DimX]

	i.totalSize = i.strides[MaxDimensions-1] * i.shape.Dim(MaxDimensions-1)
}

// Shape returns the tensor's shape.
func (i *Info) Shape() Shape {
	return i.shape
}

// DataType returns the element type.
func (i *Info) DataType() DataType {
	return i.dtype
}

// ElementSize returns the size of one element in bytes.
func (i *Info) ElementSize() int {
	return i.dtype.Size()
}

// NumDimensions returns the rank of the shape.
func (i *Info) NumDimensions() int {
	return len(i.shape)
}

// Dimension returns the size of dimension d (1 beyond the rank).
func (i *Info) Dimension(d int) int {
	return i.shape.Dim(d)
}

// Padding returns the allocated padding band.
func (i *Info) Padding() PaddingSize {
	return i.padding
}

// HasPadding reports whether any padding is present.
func (i *Info) HasPadding() bool {
	return !i.padding.Empty()
}

// StridesInBytes returns the byte distance between consecutive elements of
// each dimension.
func (i *Info) StridesInBytes() [MaxDimensions]int {
	return i.strides
}

// OffsetFirstElementInBytes returns the byte offset of element (0, 0, ...).
func (i *Info) OffsetFirstElementInBytes() int {
	return i.offset
}

// OffsetElementInBytes returns the byte offset of the element at c. Negative
// X/Y coordinates address the padding band.
func (i *Info) OffsetElementInBytes(c Coordinates) int {
	off := i.offset
	for d := 0; d < c.NumDimensions(); d++ {
		off += c.At(d) * i.strides[d]
	}
	return off
}

// TotalSize returns the allocation size in bytes, padding included.
func (i *Info) TotalSize() int {
	return i.totalSize
}

// ValidRegion returns the region holding meaningful data.
func (i *Info) ValidRegion() ValidRegion {
	return i.valid
}

// SetValidRegion overrides the valid region, usually after a kernel that
// leaves its edge band undefined was configured to write this tensor.
func (i *Info) SetValidRegion(r ValidRegion) {
	i.valid = r
}

// IsResizable reports whether the padding may still be extended.
func (i *Info) IsResizable() bool {
	return i.resizable
}

// SetResizable toggles whether the padding may be extended.
func (i *Info) SetResizable(resizable bool) {
	i.resizable = resizable
}

// ExtendPadding grows the padding so that it covers p on every side. It
// returns true if the padding changed. Extending the padding of a
// non-resizable info is a programming error.
func (i *Info) ExtendPadding(p PaddingSize) bool {
	if i.padding.Covers(p) {
		return false
	}
	if !i.resizable {
		panic(fmt.Sprintf("tensor info: cannot extend padding %v to %v on a non-resizable tensor", i.padding, p))
	}
	i.padding = i.padding.Max(p)
	i.updateStrides()
	return true
}

// Clone returns a deep copy that is resizable.
func (i *Info) Clone() *Info {
	c := *i
	c.shape = i.shape.Clone()
	c.valid.Shape = i.valid.Shape.Clone()
	c.resizable = true
	return &c
}

// String summarises the info for error messages and logs.
func (i *Info) String() string {
	return fmt.Sprintf("%s%v pad=%v", i.dtype, []int(i.shape), i.padding)
}
