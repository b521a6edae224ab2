package window

import (
	"errors"
	"fmt"

	"github.com/born-ml/compute/internal/tensor"
)

// ErrInvalidWindow is returned when a window cannot be derived, most often
// because a border consumes the whole extent of a tensor.
var ErrInvalidWindow = errors.New("invalid window")

// Steps holds the number of elements a kernel processes per iteration along
// each dimension. Dimensions not listed step by 1.
type Steps []int

// At returns the step of dimension d.
func (s Steps) At(d int) int {
	if d < len(s) && s[d] > 0 {
		return s[d]
	}
	return 1
}

// CalculateMaxWindow returns the largest window over info's valid region
// that a kernel with the given steps can process.
//
// When borderUndefined is true the border band is excluded along X and Y, so
// that no element reads outside the valid region. Otherwise the whole valid
// region is processed and the border is expected to be filled before the
// kernel runs. Ends are clamped to the region: a step that does not divide
// the extent leaves a ragged last iteration.
func CalculateMaxWindow(info *tensor.Info, steps Steps, borderUndefined bool, border tensor.BorderSize) (Window, error) {
	w, err := calculateMaxWindow(info.ValidRegion(), steps, borderUndefined, border, true)
	if err != nil {
		return Window{}, fmt.Errorf("%v: %w", info, err)
	}
	return w, nil
}

// CalculateMaxWindowHorizontal is like CalculateMaxWindow but only shrinks
// dimension X by the border.
func CalculateMaxWindowHorizontal(info *tensor.Info, steps Steps, borderUndefined bool, border tensor.BorderSize) (Window, error) {
	w, err := calculateMaxWindow(info.ValidRegion(), steps, borderUndefined, border, false)
	if err != nil {
		return Window{}, fmt.Errorf("%v: %w", info, err)
	}
	return w, nil
}

// CalculateMaxWindowForRegion is like CalculateMaxWindow over an explicit
// region, typically the intersection of several inputs' valid regions.
func CalculateMaxWindowForRegion(valid tensor.ValidRegion, steps Steps, borderUndefined bool, border tensor.BorderSize) (Window, error) {
	return calculateMaxWindow(valid, steps, borderUndefined, border, true)
}

func calculateMaxWindow(valid tensor.ValidRegion, steps Steps, borderUndefined bool, border tensor.BorderSize, vertical bool) (Window, error) {
	w := New()
	for d := 0; d < MaxDimensions; d++ {
		start, end := valid.Start(d), valid.End(d)
		if borderUndefined {
			switch {
			case d == tensor.DimX:
				start += border.Left
				end -= border.Right
			case d == tensor.DimY && vertical:
				start += border.Top
				end -= border.Bottom
			}
		}
		if end <= start {
			return Window{}, fmt.Errorf("%w: dimension %d is empty with border %v", ErrInvalidWindow, d, border)
		}
		w.dims[d] = Dimension{Start: start, End: end, Step: steps.At(d)}
	}
	return w, nil
}
