// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types of the compute library.
//
// # Overview
//
// A Tensor is a padded, strided byte buffer described by an Info:
//   - Shape: up to six dimensions, X first
//   - DataType: U8, S8, U16, S16, U32, S32, F16 or F32
//   - Padding: extra elements around the XY plane that neighbourhood
//     kernels read instead of going out of bounds
//   - ValidRegion: the part of the shape holding meaningful values
//
// Kernels extend the padding of the tensors they are configured with, so a
// tensor should be allocated only after every kernel using it has been
// configured.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/compute/backend/cpu"
//	    "github.com/born-ml/compute/tensor"
//	)
//
//	func main() {
//	    src := tensor.New(tensor.MustInfo(tensor.Shape{640, 480}, tensor.U8))
//	    dst := tensor.New(tensor.MustInfo(tensor.Shape{640, 480}, tensor.U8))
//
//	    conv := cpu.NewConvolution(nil)
//	    if err := conv.Configure(src, dst, gauss3x3, 3, 0, tensor.BorderReplicate, 0); err != nil {
//	        log.Fatal(err)
//	    }
//	    _ = src.Allocate()
//	    _ = dst.Allocate()
//	    tensor.Fill[uint8](src, 128)
//	    conv.Run()
//	}
//
// # Element Access
//
// Elements returns a typed view of the whole allocation, padding included.
// Index a view with Tensor.Index; coordinates may be negative to address
// the padding.
package tensor
