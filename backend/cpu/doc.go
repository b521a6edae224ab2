// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend: image kernels, the
// functions composing them and the worker scheduler running them.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Square, rectangle and separable convolutions
//   - Border filling (constant and replicate)
//   - Min/max with locations, key point extraction, addition
//   - Routines selected per data type and host ISA at configure time
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/compute/backend/cpu"
//	    "github.com/born-ml/compute/tensor"
//	)
//
//	func main() {
//	    img := tensor.New(tensor.MustInfo(tensor.Shape{640, 480}, tensor.F32))
//	    _ = img.Allocate()
//
//	    mm := cpu.NewMinMaxLocation(nil)
//	    if err := mm.Configure(img, nil, nil); err != nil {
//	        log.Fatal(err)
//	    }
//	    result := mm.Run()
//	    fmt.Println(result.Min, result.Max)
//	}
//
// # Threads
//
// Functions created with a nil scheduler share one sized from
// BORN_NUM_THREADS, or one worker per CPU.
package cpu
