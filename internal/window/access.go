package window

import (
	"github.com/born-ml/compute/internal/tensor"
)

// AccessWindow describes which elements of one tensor a kernel touches for
// every point of its window.
type AccessWindow interface {
	// RequiredPadding returns the padding the tensor needs so that running w
	// stays inside its allocation.
	RequiredPadding(w Window) tensor.PaddingSize
	// UpdatePaddingIfNeeded extends the tensor's padding to cover w. It
	// returns true if the padding grew.
	UpdatePaddingIfNeeded(w Window) bool
}

// AccessWindowRectangle is a rectangular neighbourhood: the element at
// (x, y) accesses columns [x+X, x+X+Width) and rows [y+Y, y+Y+Height).
type AccessWindowRectangle struct {
	Info   *tensor.Info
	X      int
	Y      int
	Width  int
	Height int
}

// NewAccessWindowRectangle returns a rectangle access on info.
func NewAccessWindowRectangle(info *tensor.Info, x, y, width, height int) AccessWindowRectangle {
	return AccessWindowRectangle{Info: info, X: x, Y: y, Width: width, Height: height}
}

// NewAccessWindowHorizontal returns an access reading width elements from
// offset x on the current row only.
func NewAccessWindowHorizontal(info *tensor.Info, x, width int) AccessWindowRectangle {
	return AccessWindowRectangle{Info: info, X: x, Y: 0, Width: width, Height: 1}
}

// RequiredPadding implements AccessWindow.
func (a AccessWindowRectangle) RequiredPadding(w Window) tensor.PaddingSize {
	if a.Info == nil {
		return tensor.PaddingSize{}
	}
	x, y := w.X(), w.Y()
	if x.Start >= x.End || y.Start >= y.End {
		return tensor.PaddingSize{}
	}
	shape := a.Info.Shape()
	return tensor.PaddingSize{
		Left:   max(0, -(x.Start + a.X)),
		Top:    max(0, -(y.Start + a.Y)),
		Right:  max(0, x.End-1+a.X+a.Width-shape.Dim(tensor.DimX)),
		Bottom: max(0, y.End-1+a.Y+a.Height-shape.Dim(tensor.DimY)),
	}
}

// UpdatePaddingIfNeeded implements AccessWindow. It panics when the tensor
// is already allocated and its padding is too small.
func (a AccessWindowRectangle) UpdatePaddingIfNeeded(w Window) bool {
	if a.Info == nil {
		return false
	}
	return a.Info.ExtendPadding(a.RequiredPadding(w))
}

// UpdateWindowAndPadding extends the padding of every accessed tensor so that
// w can be run. It returns true if any padding grew.
func UpdateWindowAndPadding(w Window, accesses ...AccessWindow) bool {
	changed := false
	for _, a := range accesses {
		if a.UpdatePaddingIfNeeded(w) {
			changed = true
		}
	}
	return changed
}

// SetValidRegion sets the valid region of out after a kernel reading
// inputValid with the given border. With an undefined border the edge band
// of the output holds no meaningful data and is excluded.
func SetValidRegion(out *tensor.Info, inputValid tensor.ValidRegion, borderUndefined bool, border tensor.BorderSize) {
	region := ValidRegionFor(inputValid, borderUndefined, border)
	full := tensor.ValidRegion{Shape: out.Shape().Clone()}
	out.SetValidRegion(region.Intersect(full))
}

// ValidRegionFor returns the output region produced from inputValid.
func ValidRegionFor(inputValid tensor.ValidRegion, borderUndefined bool, border tensor.BorderSize) tensor.ValidRegion {
	n := max(len(inputValid.Shape), 2)
	region := tensor.ValidRegion{Shape: make(tensor.Shape, n)}
	for d := 0; d < n; d++ {
		start, end := inputValid.Start(d), inputValid.End(d)
		if borderUndefined {
			switch d {
			case tensor.DimX:
				start += border.Left
				end -= border.Right
			case tensor.DimY:
				start += border.Top
				end -= border.Bottom
			}
		}
		region.Anchor.Set(d, start)
		region.Shape[d] = max(0, end-start)
	}
	return region
}
