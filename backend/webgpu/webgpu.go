// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend.
//
// The bindings are built on Windows only. On other systems NewContext
// returns ErrUnavailable, so callers can fall back to the CPU backend:
//
//	ctx, err := webgpu.NewContext()
//	if errors.Is(err, webgpu.ErrUnavailable) {
//	    // use backend/cpu
//	}
//	defer ctx.Close()
//
// Programs are tuned on first use according to BORN_TUNER_MODE and the
// results kept in the YAML table at BORN_TUNER_FILE.
package webgpu

import (
	internalwebgpu "github.com/born-ml/compute/internal/backend/webgpu"
	"github.com/born-ml/compute/tensor"
)

// Context owns a GPU device and its queue.
type Context = internalwebgpu.Context

// Compile-time check that Context implements tensor.Backend.
var _ tensor.Backend = (*Context)(nil)

// Tuner picks workgroup sizes per kernel configuration.
type Tuner = internalwebgpu.Tuner

// TunerMode controls how many workgroup sizes the tuner tries.
type TunerMode = internalwebgpu.TunerMode

// Tuner modes.
const (
	TunerNone       = internalwebgpu.TunerNone
	TunerRapid      = internalwebgpu.TunerRapid
	TunerNormal     = internalwebgpu.TunerNormal
	TunerExhaustive = internalwebgpu.TunerExhaustive
)

// WorkgroupSize is the extent of a compute workgroup.
type WorkgroupSize = internalwebgpu.WorkgroupSize

// PoolStats counts buffer pool activity.
type PoolStats = internalwebgpu.PoolStats

// BuildOptions are the -DNAME=VALUE options a program is compiled with.
type BuildOptions = internalwebgpu.BuildOptions

// Errors.
var (
	ErrUnavailable = internalwebgpu.ErrUnavailable
	ErrCompile     = internalwebgpu.ErrCompile
)

// NewContext opens the default GPU.
func NewContext() (*Context, error) {
	return internalwebgpu.NewContext()
}

// NewTuner returns a tuner with an empty table stored at path.
func NewTuner(mode TunerMode, path string) *Tuner {
	return internalwebgpu.NewTuner(mode, path)
}
