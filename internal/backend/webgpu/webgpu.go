// Package webgpu implements the GPU backend on WebGPU.
//
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings,
// which are only built on Windows; elsewhere NewContext reports
// ErrUnavailable. Program sources, build options, the buffer pool and the
// tuner are portable.
//
// GPU kernels follow the same configure contract as CPU kernels: a pure
// Validate over tensor metadata, then Configure, which computes the window,
// extends padding and compiles (or fetches from the cache) the program. A
// Scheduler enqueues configured kernels on the context's single in-order
// queue.
package webgpu

import "errors"

var (
	// ErrUnavailable is returned by NewContext when no WebGPU adapter can be
	// used on this system.
	ErrUnavailable = errors.New("webgpu: not available")

	// ErrCompile wraps program compilation failures.
	ErrCompile = errors.New("webgpu: program compilation failed")
)
