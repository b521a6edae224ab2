// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/compute/internal/array"
	internalcpu "github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/function"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// Routine describes the routine a dispatch table selects on this host.
type Routine = internalcpu.Routine

// Scheduler runs kernels.
type Scheduler = scheduler.Scheduler

// ConvertPolicy selects wrapping or saturating integer arithmetic.
type ConvertPolicy = internalcpu.ConvertPolicy

// Convert policies.
const (
	ConvertWrap     = internalcpu.ConvertWrap
	ConvertSaturate = internalcpu.ConvertSaturate
)

// MinMaxResult holds the extrema of an image and how often they occur.
type MinMaxResult = internalcpu.MinMaxResult

// Bounded arrays filled by functions.
type (
	KeyPoint           = array.KeyPoint
	Coordinates2D      = array.Coordinates2D
	KeyPointArray      = array.KeyPointArray
	Coordinates2DArray = array.Coordinates2DArray
)

// NewKeyPointArray returns an empty array holding at most maxSize points.
func NewKeyPointArray(maxSize int) *KeyPointArray {
	return array.New[KeyPoint](maxSize)
}

// NewCoordinates2DArray returns an empty array holding at most maxSize
// coordinates.
func NewCoordinates2DArray(maxSize int) *Coordinates2DArray {
	return array.New[Coordinates2D](maxSize)
}

// Functions.
type (
	Convolution        = function.Convolution
	MinMaxLocation     = function.MinMaxLocation
	ArithmeticAddition = function.ArithmeticAddition
	FillArray          = function.FillArray
)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	for _, r := range backend.Routines() {
//	    fmt.Println(r.Kernel, r.Key, r.Selected)
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewScheduler returns a worker scheduler with n workers. 0 selects
// BORN_NUM_THREADS, or one worker per CPU.
func NewScheduler(n int) Scheduler {
	return scheduler.NewCPU(n)
}

// NewConvolution returns an unconfigured convolution. A nil sched selects
// the default scheduler.
func NewConvolution(sched Scheduler) *Convolution {
	return function.NewConvolution(sched)
}

// NewMinMaxLocation returns an unconfigured min/max location function.
func NewMinMaxLocation(sched Scheduler) *MinMaxLocation {
	return function.NewMinMaxLocation(sched)
}

// NewArithmeticAddition returns an unconfigured addition.
func NewArithmeticAddition(sched Scheduler) *ArithmeticAddition {
	return function.NewArithmeticAddition(sched)
}

// NewFillArray returns an unconfigured key point extraction.
func NewFillArray(sched Scheduler) *FillArray {
	return function.NewFillArray(sched)
}

// CalculateMatrixScale returns the scale a convolution uses when given 0.
func CalculateMatrixScale(coeffs []int16) uint32 {
	return internalcpu.CalculateMatrixScale(coeffs)
}
