//go:build windows

package webgpu

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/compute/internal/tensor"
)

const tensorUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Tensor is a host tensor mirrored in a device buffer.
//
// Kernels are configured against unallocated tensors so that they can still
// extend the padding; Allocate then freezes the layout and acquires the
// device buffer. An allocated tensor is either mapped, when the host copy is
// current and may be read and written, or unmapped, when the device copy is
// current and kernels may use it. Tensors start mapped.
type Tensor struct {
	ctx    *Context
	host   *tensor.Tensor
	buf    *wgpu.Buffer
	class  uint64
	mapped bool
}

// NewTensor returns an unallocated device tensor backed by host.
func (c *Context) NewTensor(host *tensor.Tensor) *Tensor {
	return &Tensor{ctx: c, host: host, mapped: true}
}

// Allocate allocates the host tensor, if needed, and a device buffer of the
// same size.
func (t *Tensor) Allocate() error {
	if t.buf != nil {
		return nil
	}
	if !t.host.IsAllocated() {
		if err := t.host.Allocate(); err != nil {
			return fmt.Errorf("webgpu tensor: %w", err)
		}
	}
	t.buf, t.class = t.ctx.pool.Acquire(deviceSize(t.host.Info().TotalSize()), tensorUsage)
	return nil
}

// IsAllocated reports whether the device buffer exists.
func (t *Tensor) IsAllocated() bool {
	return t.buf != nil
}

// Host returns the host tensor. Its contents are only meaningful while the
// tensor is mapped.
func (t *Tensor) Host() *tensor.Tensor {
	return t.host
}

// Info returns the host tensor's metadata.
func (t *Tensor) Info() *tensor.Info {
	return t.host.Info()
}

// Mapped reports whether the host copy is current.
func (t *Tensor) Mapped() bool {
	return t.mapped
}

// Map copies the device buffer to the host. Every kernel enqueued before
// the call has completed when Map returns.
func (t *Tensor) Map() error {
	t.mustBeAllocated("map")
	if t.mapped {
		return nil
	}
	if err := t.ctx.download(t.buf, t.host.Buffer()); err != nil {
		return err
	}
	t.mapped = true
	return nil
}

// Unmap copies the host tensor to the device buffer.
func (t *Tensor) Unmap() {
	t.mustBeAllocated("unmap")
	if !t.mapped {
		return
	}
	t.ctx.upload(t.buf, t.host.Buffer())
	t.mapped = false
}

// Release returns the device buffer to the pool. The host tensor is left
// untouched.
func (t *Tensor) Release() {
	if t.buf == nil {
		return
	}
	t.ctx.pool.Release(t.buf, t.class, tensorUsage)
	t.buf, t.mapped = nil, true
}

func (t *Tensor) mustBeAllocated(op string) {
	if t.buf == nil {
		panic(fmt.Sprintf("webgpu tensor %s: not allocated", op))
	}
}

func (t *Tensor) binding(n uint32) wgpu.BindGroupEntry {
	return wgpu.BufferBindingEntry(n, t.buf, 0, t.class)
}
