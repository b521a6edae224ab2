package tensor

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"
)

// Tensor is a CPU tensor: an Info plus the padded byte buffer it describes.
//
// A Tensor is created unallocated so that kernels configured on it can still
// extend its padding. Allocate freezes the layout.
type Tensor struct {
	info *Info
	data []byte
}

// New creates an unallocated tensor for info. The tensor takes ownership of
// info.
func New(info *Info) *Tensor {
	return &Tensor{info: info}
}

// NewAllocated creates a tensor of the given shape and type with its buffer
// already allocated and no padding.
func NewAllocated(shape Shape, dtype DataType) (*Tensor, error) {
	info, err := NewInfo(shape, dtype)
	if err != nil {
		return nil, err
	}
	t := New(info)
	if err := t.Allocate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Info returns the tensor metadata.
func (t *Tensor) Info() *Info {
	return t.info
}

// Allocate allocates the buffer, padding included, and freezes the layout.
func (t *Tensor) Allocate() error {
	if t.data != nil {
		return fmt.Errorf("tensor already allocated")
	}
	t.data = make([]byte, t.info.TotalSize())
	t.info.SetResizable(false)
	return nil
}

// IsAllocated reports whether Allocate has been called.
func (t *Tensor) IsAllocated() bool {
	return t.data != nil
}

// Free drops the buffer and makes the layout resizable again.
func (t *Tensor) Free() {
	t.data = nil
	t.info.SetResizable(true)
}

// Buffer returns the whole allocation, padding included. Offsets returned by
// Info().OffsetElementInBytes index into this slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (t *Tensor) Buffer() []byte {
	return t.data
}

// Elements interprets the whole allocation as a slice of T. An element at
// byte offset off lives at index off/ElementSize.
// Panics if T does not match the tensor's element size or the tensor is not
// allocated.
func Elements[T Element](t *Tensor) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size != t.info.ElementSize() {
		panic(fmt.Sprintf("tensor dtype is %s, element size %d requested", t.info.DataType(), size))
	}
	if t.data == nil {
		panic("tensor: buffer not allocated")
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by TotalSize()
	return unsafe.Slice((*T)(unsafe.Pointer(&t.data[0])), len(t.data)/size)
}

// Index returns the element index of c in the slice returned by Elements.
func (t *Tensor) Index(c Coordinates) int {
	return t.info.OffsetElementInBytes(c) / t.info.ElementSize()
}

// At returns the element at c.
func At[T Element](t *Tensor, c Coordinates) T {
	return Elements[T](t)[t.Index(c)]
}

// Set stores v at c.
func Set[T Element](t *Tensor, c Coordinates, v T) {
	Elements[T](t)[t.Index(c)] = v
}

// Fill stores v in every element of the valid region.
func Fill[T Element](t *Tensor, v T) {
	data := Elements[T](t)
	ForEachValid(t, func(idx int, _ Coordinates) {
		data[idx] = v
	})
}

// ForEachValid calls fn with the element index and coordinates of every
// element inside the valid region, in raster order.
func ForEachValid(t *Tensor, fn func(idx int, c Coordinates)) {
	region := t.info.ValidRegion()
	var c Coordinates
	var walk func(dim int)
	walk = func(dim int) {
		for v := region.Start(dim); v < region.End(dim); v++ {
			c.Set(dim, v)
			if dim == 0 {
				fn(t.Index(c), c)
			} else {
				walk(dim - 1)
			}
		}
	}
	walk(MaxDimensions - 1)
}

// GetFloat reads the element at c converted to float64, whatever the data
// type.
func (t *Tensor) GetFloat(c Coordinates) float64 {
	switch t.info.DataType() {
	case U8:
		return float64(At[uint8](t, c))
	case S8:
		return float64(At[int8](t, c))
	case U16:
		return float64(At[uint16](t, c))
	case S16:
		return float64(At[int16](t, c))
	case U32:
		return float64(At[uint32](t, c))
	case S32:
		return float64(At[int32](t, c))
	case F16:
		return float64(At[float16.Float16](t, c).Float32())
	case F32:
		return float64(At[float32](t, c))
	default:
		panic(fmt.Sprintf("tensor: unsupported dtype %s", t.info.DataType()))
	}
}

// SetFloat stores v at c converted to the tensor's data type, saturating
// integer types.
func (t *Tensor) SetFloat(c Coordinates, v float64) {
	lo, hi := t.info.DataType().Range()
	if !t.info.DataType().IsFloat() {
		v = min(max(v, lo), hi)
	}
	switch t.info.DataType() {
	case U8:
		Set(t, c, uint8(v))
	case S8:
		Set(t, c, int8(v))
	case U16:
		Set(t, c, uint16(v))
	case S16:
		Set(t, c, int16(v))
	case U32:
		Set(t, c, uint32(v))
	case S32:
		Set(t, c, int32(v))
	case F16:
		Set(t, c, float16.Fromfloat32(float32(v)))
	case F32:
		Set(t, c, float32(v))
	default:
		panic(fmt.Sprintf("tensor: unsupported dtype %s", t.info.DataType()))
	}
}
