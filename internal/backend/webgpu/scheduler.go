//go:build windows

package webgpu

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/compute/internal/envconfig"
	"github.com/born-ml/compute/internal/logutil"
)

// Scheduler enqueues GPU kernels on its context's in-order queue. There is
// no host-side partitioning: each Enqueue records one dispatch over the
// kernel's whole window.
type Scheduler struct {
	ctx  *Context
	sync bool
}

// NewScheduler returns a scheduler on c. With BORN_GPU_SYNC set, every
// Enqueue waits for its kernel to complete.
func (c *Context) NewScheduler() *Scheduler {
	return &Scheduler{ctx: c, sync: envconfig.GPUSync()}
}

// Enqueue records one dispatch of k. When flush is true the recorded work is
// submitted to the device. The first Enqueue of a kernel tunes it, which may
// run it several times.
//
// Enqueue panics if k is not configured, or if one of its tensors is not
// allocated or is still mapped.
func (s *Scheduler) Enqueue(k Kernel, flush bool) error {
	if !k.Window().Configured() {
		panic(fmt.Sprintf("%s: kernel not configured", k.Name()))
	}
	for _, t := range k.operands() {
		t.mustBeAllocated(k.Name())
		if t.Mapped() {
			panic(fmt.Sprintf("%s: tensor %v is mapped", k.Name(), t.Info()))
		}
	}
	if err := k.prepare(); err != nil {
		return fmt.Errorf("%s: %w", k.Name(), err)
	}

	encoder := s.ctx.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	k.encode(pass)
	pass.End()
	s.ctx.queueCommand(encoder.Finish(nil))
	logutil.Trace("gpu kernel enqueued", "kernel", k.Name(), "window", k.Window())

	if flush || s.sync {
		s.Flush()
	}
	if s.sync {
		return s.Sync()
	}
	return nil
}

// Flush submits the recorded work without waiting for it.
func (s *Scheduler) Flush() {
	s.ctx.submit()
}

// Sync submits the recorded work and waits for it to complete.
func (s *Scheduler) Sync() error {
	if err := s.ctx.finish(); err != nil {
		slog.Error("gpu sync failed", "error", err)
		return err
	}
	return nil
}
