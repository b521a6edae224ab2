// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/compute/internal/tensor"
)

// Type aliases for public API

// Element is a constraint for the Go types that back a tensor element.
type Element = tensor.Element

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Unknown DataType = tensor.Unknown
	U8      DataType = tensor.U8
	S8      DataType = tensor.S8
	U16     DataType = tensor.U16
	S16     DataType = tensor.S16
	U32     DataType = tensor.U32
	S32     DataType = tensor.S32
	F16     DataType = tensor.F16
	F32     DataType = tensor.F32
)

// Dimension indices.
const (
	DimX          = tensor.DimX
	DimY          = tensor.DimY
	DimZ          = tensor.DimZ
	DimW          = tensor.DimW
	MaxDimensions = tensor.MaxDimensions
)

// Shape represents the dimensions of a tensor, X first.
type Shape = tensor.Shape

// Coordinates addresses one element.
type Coordinates = tensor.Coordinates

// ValidRegion is the part of a tensor holding meaningful values.
type ValidRegion = tensor.ValidRegion

// BorderMode selects how elements outside the valid region are produced.
type BorderMode = tensor.BorderMode

// Border modes.
const (
	BorderUndefined BorderMode = tensor.BorderUndefined
	BorderConstant  BorderMode = tensor.BorderConstant
	BorderReplicate BorderMode = tensor.BorderReplicate
)

// BorderSize is a per-side element count.
type BorderSize = tensor.BorderSize

// PaddingSize is the allocated band around a tensor's XY plane.
type PaddingSize = tensor.PaddingSize

// Info is the metadata of a tensor.
type Info = tensor.Info

// Tensor is a padded, strided buffer.
type Tensor = tensor.Tensor

// NewInfo returns metadata for shape and dtype with no padding.
func NewInfo(shape Shape, dtype DataType) (*Info, error) {
	return tensor.NewInfo(shape, dtype)
}

// MustInfo is like NewInfo but panics on error.
func MustInfo(shape Shape, dtype DataType) *Info {
	return tensor.MustInfo(shape, dtype)
}

// New returns an unallocated tensor described by info.
func New(info *Info) *Tensor {
	return tensor.New(info)
}

// NewAllocated returns an allocated tensor without padding.
func NewAllocated(shape Shape, dtype DataType) (*Tensor, error) {
	return tensor.NewAllocated(shape, dtype)
}

// NewCoordinates returns coordinates from X upwards.
func NewCoordinates(values ...int) Coordinates {
	return tensor.NewCoordinates(values...)
}

// UniformBorder returns a border of n on every side.
func UniformBorder(n int) BorderSize {
	return tensor.UniformBorder(n)
}

// ParseDataType parses a data type name such as "U8".
func ParseDataType(s string) DataType {
	return tensor.ParseDataType(s)
}

// ParseBorderMode parses a border mode name.
func ParseBorderMode(s string) (BorderMode, error) {
	return tensor.ParseBorderMode(s)
}

// Elements returns a typed view of t's allocation, padding included.
func Elements[T Element](t *Tensor) []T {
	return tensor.Elements[T](t)
}

// At returns the element at c.
func At[T Element](t *Tensor, c Coordinates) T {
	return tensor.At[T](t, c)
}

// Set stores v at c.
func Set[T Element](t *Tensor, c Coordinates, v T) {
	tensor.Set(t, c, v)
}

// Fill stores v in every element of the valid region.
func Fill[T Element](t *Tensor, v T) {
	tensor.Fill(t, v)
}

// ForEachValid calls fn with the view index and coordinates of every element
// of the valid region, in raster order.
func ForEachValid(t *Tensor, fn func(idx int, c Coordinates)) {
	tensor.ForEachValid(t, fn)
}

// Backend is a compute backend.
type Backend interface {
	// Name identifies the backend, e.g. "CPU".
	Name() string
}
