package tensor

import "fmt"

// MaxDimensions is the number of dimensions a tensor, a set of coordinates
// or a window can carry.
const MaxDimensions = 6

// Dimension indices for the axes kernels refer to by name.
const (
	DimX = 0
	DimY = 1
	DimZ = 2
	DimW = 3
)

// Shape represents the dimensions of a tensor.
//
// Dimension 0 is the innermost (fastest varying) axis, so a 2D image of
// width W and height H has Shape{W, H}.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	if len(s) > MaxDimensions {
		return fmt.Errorf("shape has %d dimensions, at most %d supported", len(s), MaxDimensions)
	}
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Dim returns the size of dimension i. Dimensions beyond the shape's rank
// have size 1.
func (s Shape) Dim(i int) int {
	if i < len(s) {
		return s[i]
	}
	return 1
}

// Equal checks if two shapes are equal. Trailing dimensions of size 1 are
// ignored, so Shape{4, 4} equals Shape{4, 4, 1}.
func (s Shape) Equal(other Shape) bool {
	n := max(len(s), len(other))
	for i := 0; i < n; i++ {
		if s.Dim(i) != other.Dim(i) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates dense strides in elements for the shape.
// stride[0] is 1 and stride[i] is the product of all dimensions before i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[0] = 1
	for i := 1; i < len(s); i++ {
		strides[i] = strides[i-1] * s[i-1]
	}
	return strides
}

// Coordinates is a point in tensor space. Negative values address the
// padding band in front of the valid data.
type Coordinates struct {
	v [MaxDimensions]int
	n int
}

// NewCoordinates creates coordinates from their per-dimension values.
func NewCoordinates(values ...int) Coordinates {
	if len(values) > MaxDimensions {
		panic(fmt.Sprintf("coordinates: %d values, at most %d supported", len(values), MaxDimensions))
	}
	var c Coordinates
	copy(c.v[:], values)
	c.n = len(values)
	return c
}

// Set assigns value to dimension dim, growing the rank when needed.
func (c *Coordinates) Set(dim, value int) {
	c.v[dim] = value
	c.n = max(c.n, dim+1)
}

// At returns the value of dimension dim.
func (c Coordinates) At(dim int) int {
	return c.v[dim]
}

// X returns dimension 0.
func (c Coordinates) X() int { return c.v[DimX] }

// Y returns dimension 1.
func (c Coordinates) Y() int { return c.v[DimY] }

// NumDimensions returns the rank of the coordinates.
func (c Coordinates) NumDimensions() int {
	return c.n
}

// String formats the coordinates as (x, y, ...).
func (c Coordinates) String() string {
	return fmt.Sprint(c.v[:c.n])
}

// ValidRegion is the sub-rectangle of a tensor holding meaningful data.
type ValidRegion struct {
	Anchor Coordinates
	Shape  Shape
}

// Start returns the first valid index along dim.
func (r ValidRegion) Start(dim int) int {
	return r.Anchor.At(dim)
}

// End returns one past the last valid index along dim.
func (r ValidRegion) End(dim int) int {
	return r.Anchor.At(dim) + r.Shape.Dim(dim)
}

// Intersect returns the region valid in both r and other.
func (r ValidRegion) Intersect(other ValidRegion) ValidRegion {
	n := max(len(r.Shape), len(other.Shape))
	out := ValidRegion{Shape: make(Shape, n)}
	for d := 0; d < n; d++ {
		start := max(r.Start(d), other.Start(d))
		end := min(r.End(d), other.End(d))
		out.Anchor.Set(d, start)
		out.Shape[d] = max(0, end-start)
	}
	return out
}
