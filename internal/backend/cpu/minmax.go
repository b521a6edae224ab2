package cpu

import (
	"fmt"
	"math"
	"sync"

	"github.com/born-ml/compute/internal/array"
	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/dispatch"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

const minMaxStep = 16

// MinMaxResult receives the extrema of an image and, once the location
// kernel ran, how often each occurs.
type MinMaxResult struct {
	Min      float64
	Max      float64
	MinCount uint32
	MaxCount uint32
}

// Reset prepares r for a new reduction over data of type dt: Min starts at
// the highest value of dt and Max at the lowest.
func (r *MinMaxResult) Reset(dt tensor.DataType) {
	lo, hi := dt.Range()
	if dt.IsFloat() {
		lo, hi = math.Inf(-1), math.Inf(1)
	}
	*r = MinMaxResult{Min: hi, Max: lo}
}

type scalar interface {
	uint8 | int16 | float32
}

type minMaxFunc func(t *tensor.Tensor, w window.Window) (lo, hi float64)

var minMaxTable = dispatch.NewTable("min max",
	dispatch.Entry[tensor.DataType, minMaxFunc]{Name: "minmax_u8", Key: tensor.U8, Fn: minMax[uint8]},
	dispatch.Entry[tensor.DataType, minMaxFunc]{Name: "minmax_s16", Key: tensor.S16, Fn: minMax[int16]},
	dispatch.Entry[tensor.DataType, minMaxFunc]{Name: "minmax_f32", Key: tensor.F32, Fn: minMax[float32]},
)

func minMax[T scalar](t *tensor.Tensor, w window.Window) (float64, float64) {
	data := tensor.Elements[T](t)
	var lo, hi T
	first := true
	endX, step := w.X().End, w.X().Step

	it := window.NewIterator(t.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		row := data[it.Index() : it.Index()+min(step, endX-id.X())]
		if first {
			lo, hi = row[0], row[0]
			first = false
		}
		for _, v := range row {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}, it)
	return float64(lo), float64(hi)
}

// ValidateMinMax checks the arguments of MinMaxKernel.Configure.
func ValidateMinMax(input *tensor.Info, result *MinMaxResult) error {
	const op = "min max"
	if err := kernel.CheckNotNil(op, input); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%s: %w: nil result", op, kernel.ErrInvalidArgument)
	}
	return kernel.CheckDataType(op, "input", input, tensor.U8, tensor.S16, tensor.F32)
}

// MinMaxKernel computes the minimum and maximum of a U8, S16 or F32 image.
// Partitions reduce locally and merge into the shared result under a mutex.
// The result must be Reset before each run.
type MinMaxKernel struct {
	kernel.Base
	input   *tensor.Tensor
	result  *MinMaxResult
	fn      minMaxFunc
	routine string
	mu      sync.Mutex
}

// NewMinMaxKernel returns an unconfigured kernel.
func NewMinMaxKernel() *MinMaxKernel {
	return &MinMaxKernel{}
}

// Configure binds input and result. It panics if ValidateMinMax fails.
func (k *MinMaxKernel) Configure(input *tensor.Tensor, result *MinMaxResult) {
	kernel.MustValidate(ValidateMinMax(input.Info(), result))
	k.input, k.result = input, result

	win, err := window.CalculateMaxWindow(input.Info(), window.Steps{minMaxStep}, true, tensor.BorderSize{})
	if err != nil {
		panic(fmt.Sprintf("min max: %v", err))
	}
	entry, err := minMaxTable.Select(input.Info().DataType(), cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("min max: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// Reset prepares the bound result for a new run.
func (k *MinMaxKernel) Reset() {
	k.result.Reset(k.input.Info().DataType())
}

// Name implements kernel.Kernel.
func (k *MinMaxKernel) Name() string {
	return "MinMax"
}

// Routine returns the name of the routine selected at configure time.
func (k *MinMaxKernel) Routine() string {
	return k.routine
}

// Run implements kernel.Kernel.
func (k *MinMaxKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	lo, hi := k.fn(k.input, w)

	k.mu.Lock()
	defer k.mu.Unlock()
	k.result.Min = min(k.result.Min, lo)
	k.result.Max = max(k.result.Max, hi)
}

type minMaxLocationFunc func(k *MinMaxLocationKernel, w window.Window)

var minMaxLocationTable = dispatch.NewTable("min max location",
	dispatch.Entry[tensor.DataType, minMaxLocationFunc]{Name: "minmax_loc_u8", Key: tensor.U8, Fn: minMaxLocation[uint8]},
	dispatch.Entry[tensor.DataType, minMaxLocationFunc]{Name: "minmax_loc_s16", Key: tensor.S16, Fn: minMaxLocation[int16]},
	dispatch.Entry[tensor.DataType, minMaxLocationFunc]{Name: "minmax_loc_f32", Key: tensor.F32, Fn: minMaxLocation[float32]},
)

func minMaxLocation[T scalar](k *MinMaxLocationKernel, w window.Window) {
	data := tensor.Elements[T](k.input)
	r := k.result
	endX, step := w.X().End, w.X().Step

	it := window.NewIterator(k.input.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		row := data[it.Index() : it.Index()+min(step, endX-id.X())]
		for i, v := range row {
			f := float64(v)
			if f == r.Min {
				r.MinCount++
				if k.minLoc != nil {
					k.minLoc.PushBack(array.Coordinates2D{X: int32(id.X() + i), Y: int32(id.Y())})
				}
			}
			if f == r.Max {
				r.MaxCount++
				if k.maxLoc != nil {
					k.maxLoc.PushBack(array.Coordinates2D{X: int32(id.X() + i), Y: int32(id.Y())})
				}
			}
		}
	}, it)
}

// MinMaxLocationKernel counts and locates the occurrences of extrema
// previously computed by MinMaxKernel. Locations are appended in raster order
// until the arrays overflow; counts keep going.
type MinMaxLocationKernel struct {
	kernel.Base
	input   *tensor.Tensor
	result  *MinMaxResult
	minLoc  *array.Coordinates2DArray
	maxLoc  *array.Coordinates2DArray
	fn      minMaxLocationFunc
	routine string
}

// NewMinMaxLocationKernel returns an unconfigured kernel.
func NewMinMaxLocationKernel() *MinMaxLocationKernel {
	return &MinMaxLocationKernel{}
}

// ValidateMinMaxLocation checks the arguments of
// MinMaxLocationKernel.Configure. Location arrays are optional.
func ValidateMinMaxLocation(input *tensor.Info, result *MinMaxResult) error {
	if err := ValidateMinMax(input, result); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	return nil
}

// Configure binds input, the extrema in result and the optional location
// arrays. It panics if ValidateMinMaxLocation fails.
func (k *MinMaxLocationKernel) Configure(input *tensor.Tensor, result *MinMaxResult, minLoc, maxLoc *array.Coordinates2DArray) {
	kernel.MustValidate(ValidateMinMaxLocation(input.Info(), result))
	k.input, k.result = input, result
	k.minLoc, k.maxLoc = minLoc, maxLoc

	win, err := window.CalculateMaxWindow(input.Info(), window.Steps{minMaxStep}, true, tensor.BorderSize{})
	if err != nil {
		panic(fmt.Sprintf("min max location: %v", err))
	}
	entry, err := minMaxLocationTable.Select(input.Info().DataType(), cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("min max location: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// Name implements kernel.Kernel.
func (k *MinMaxLocationKernel) Name() string {
	return "MinMaxLocation"
}

// IsParallelisable implements kernel.Kernel. Locations must be appended in
// raster order.
func (k *MinMaxLocationKernel) IsParallelisable() bool {
	return false
}

// Run implements kernel.Kernel. Counts are reset and the location arrays
// cleared before scanning.
func (k *MinMaxLocationKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	k.result.MinCount, k.result.MaxCount = 0, 0
	if k.minLoc != nil {
		k.minLoc.Clear()
	}
	if k.maxLoc != nil {
		k.maxLoc.Clear()
	}
	k.fn(k, w)
}
