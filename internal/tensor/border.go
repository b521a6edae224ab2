package tensor

import "fmt"

// BorderMode selects how values outside the valid region are produced.
type BorderMode int

// Supported border modes.
const (
	// BorderUndefined leaves the border untouched. Kernels skip the edge band
	// and the output valid region shrinks accordingly.
	BorderUndefined BorderMode = iota
	// BorderConstant fills the border with a fixed scalar.
	BorderConstant
	// BorderReplicate copies the nearest in-bounds element outward.
	BorderReplicate
)

// String returns a human-readable name for the border mode.
func (m BorderMode) String() string {
	switch m {
	case BorderUndefined:
		return "undefined"
	case BorderConstant:
		return "constant"
	case BorderReplicate:
		return "replicate"
	default:
		return "unknown"
	}
}

// ParseBorderMode parses the names returned by BorderMode.String.
func ParseBorderMode(s string) (BorderMode, error) {
	switch s {
	case "undefined":
		return BorderUndefined, nil
	case "constant":
		return BorderConstant, nil
	case "replicate":
		return BorderReplicate, nil
	default:
		return BorderUndefined, fmt.Errorf("unknown border mode %q", s)
	}
}

// BorderSize is the number of out-of-bounds elements around the valid region
// that a kernel may access on each side of the XY plane.
type BorderSize struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// PaddingSize describes the allocated band around a tensor's XY plane.
type PaddingSize = BorderSize

// UniformBorder returns a border of size n on every side.
func UniformBorder(n int) BorderSize {
	return BorderSize{Top: n, Right: n, Bottom: n, Left: n}
}

// NewBorderSize returns a border with topBottom rows above and below and
// leftRight columns on each side.
func NewBorderSize(topBottom, leftRight int) BorderSize {
	return BorderSize{Top: topBottom, Right: leftRight, Bottom: topBottom, Left: leftRight}
}

// Empty reports whether the border is zero on every side.
func (b BorderSize) Empty() bool {
	return b.Top == 0 && b.Right == 0 && b.Bottom == 0 && b.Left == 0
}

// Uniform reports whether every side has the same size.
func (b BorderSize) Uniform() bool {
	return b.Top == b.Right && b.Right == b.Bottom && b.Bottom == b.Left
}

// Limit clamps each side of b to the matching side of limit.
func (b BorderSize) Limit(limit BorderSize) BorderSize {
	return BorderSize{
		Top:    min(b.Top, limit.Top),
		Right:  min(b.Right, limit.Right),
		Bottom: min(b.Bottom, limit.Bottom),
		Left:   min(b.Left, limit.Left),
	}
}

// Max returns the per-side maximum of b and other.
func (b BorderSize) Max(other BorderSize) BorderSize {
	return BorderSize{
		Top:    max(b.Top, other.Top),
		Right:  max(b.Right, other.Right),
		Bottom: max(b.Bottom, other.Bottom),
		Left:   max(b.Left, other.Left),
	}
}

// Covers reports whether b is at least as large as other on every side.
func (b BorderSize) Covers(other BorderSize) bool {
	return b.Top >= other.Top && b.Right >= other.Right && b.Bottom >= other.Bottom && b.Left >= other.Left
}

// String formats the border as top/right/bottom/left.
func (b BorderSize) String() string {
	return fmt.Sprintf("{top:%d right:%d bottom:%d left:%d}", b.Top, b.Right, b.Bottom, b.Left)
}
