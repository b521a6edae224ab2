package cpu

import (
	"fmt"

	"github.com/born-ml/compute/internal/array"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// FillArrayKernel turns every pixel of a U8 strength image at or above a
// threshold into a key point. Key points are appended in raster order and
// scanning stops at the first overflow.
type FillArrayKernel struct {
	kernel.Base
	input     *tensor.Tensor
	threshold uint8
	output    *array.KeyPointArray
}

// NewFillArrayKernel returns an unconfigured kernel.
func NewFillArrayKernel() *FillArrayKernel {
	return &FillArrayKernel{}
}

// ValidateFillArray checks the arguments of FillArrayKernel.Configure.
func ValidateFillArray(input *tensor.Info, valid tensor.ValidRegion, output *array.KeyPointArray) error {
	const op = "fill array"
	if err := kernel.CheckNotNil(op, input); err != nil {
		return err
	}
	if output == nil {
		return fmt.Errorf("%s: %w: nil output array", op, kernel.ErrInvalidArgument)
	}
	if err := kernel.CheckDataType(op, "input", input, tensor.U8); err != nil {
		return err
	}
	full := input.ValidRegion()
	for d := 0; d < window.MaxDimensions; d++ {
		if valid.Start(d) < full.Start(d) || valid.End(d) > full.End(d) {
			return fmt.Errorf("%s: %w: region %v outside %v", op, kernel.ErrInvalidArgument, valid, full)
		}
	}
	if _, err := window.CalculateMaxWindowForRegion(valid, nil, true, tensor.BorderSize{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Configure scans valid, a sub-region of input's valid region. It panics if
// ValidateFillArray fails.
func (k *FillArrayKernel) Configure(input *tensor.Tensor, valid tensor.ValidRegion, threshold uint8, output *array.KeyPointArray) {
	kernel.MustValidate(ValidateFillArray(input.Info(), valid, output))
	k.input, k.threshold, k.output = input, threshold, output

	win, err := window.CalculateMaxWindowForRegion(valid, nil, true, tensor.BorderSize{})
	if err != nil {
		panic(fmt.Sprintf("fill array: %v", err))
	}
	k.Base.Configure(win)
}

// Name implements kernel.Kernel.
func (k *FillArrayKernel) Name() string {
	return "FillArray"
}

// IsParallelisable implements kernel.Kernel.
func (k *FillArrayKernel) IsParallelisable() bool {
	return false
}

// Run implements kernel.Kernel.
func (k *FillArrayKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	data := tensor.Elements[uint8](k.input)

	it := window.NewIterator(k.input.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		if k.output.Overflow() {
			return
		}
		v := data[it.Index()]
		if v < k.threshold {
			return
		}
		k.output.PushBack(array.KeyPoint{
			X:              int32(id.X()),
			Y:              int32(id.Y()),
			Strength:       float32(v),
			TrackingStatus: 1,
		})
	}, it)
}
