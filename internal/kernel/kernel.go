// Package kernel defines the contract every compute kernel follows.
//
// A kernel goes through three states. It is created unconfigured, becomes
// configured once Configure has bound its tensors and computed its maximum
// window, and may then be run any number of times on sub-windows of that
// window, concurrently from several workers when it is parallelisable.
//
// Validation is split from configuration: each kernel offers a pure Validate
// function over tensor metadata that returns an error, and a Configure method
// that re-runs the same checks and panics on failure, since configuring with
// arguments that do not validate is a programming error.
package kernel

import (
	"fmt"

	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// ThreadInfo identifies the worker executing a Run call.
type ThreadInfo struct {
	ThreadID   int
	NumThreads int
}

// SingleThread is the ThreadInfo of a kernel run on one worker.
var SingleThread = ThreadInfo{ThreadID: 0, NumThreads: 1}

// Kernel is a configured unit of work over a window.
type Kernel interface {
	// Name identifies the kernel in logs and errors.
	Name() string
	// Window returns the maximum window computed at configure time. The zero
	// window means the kernel is not configured.
	Window() window.Window
	// BorderSize returns how far outside the window the kernel reads.
	BorderSize() tensor.BorderSize
	// IsParallelisable reports whether disjoint sub-windows may run
	// concurrently.
	IsParallelisable() bool
	// Run executes the kernel on w, a sub-window of Window(). It must not
	// allocate and must only touch memory inside w extended by BorderSize().
	Run(w window.Window, info ThreadInfo)
}

// Base carries the state common to every kernel. Kernels embed it and call
// Configure once their window is known.
type Base struct {
	window window.Window
}

// Configure records the maximum window of the kernel. It panics if w is not
// a valid window.
func (b *Base) Configure(w window.Window) {
	if err := w.Validate(); err != nil {
		panic(fmt.Sprintf("kernel configure: %v", err))
	}
	b.window = w
}

// Window returns the configured maximum window.
func (b *Base) Window() window.Window {
	return b.window
}

// IsConfigured reports whether Configure has been called.
func (b *Base) IsConfigured() bool {
	return b.window.Configured()
}

// BorderSize returns an empty border. Kernels reading a neighbourhood
// override it.
func (b *Base) BorderSize() tensor.BorderSize {
	return tensor.BorderSize{}
}

// IsParallelisable returns true. Kernels that must see the whole window at
// once override it.
func (b *Base) IsParallelisable() bool {
	return true
}

// CheckRun panics unless the kernel is configured and w is a valid
// sub-window of its maximum window. Every Run implementation starts with it.
func (b *Base) CheckRun(name string, w window.Window) {
	if !b.IsConfigured() {
		panic(fmt.Sprintf("%s: kernel not configured", name))
	}
	if err := w.Validate(); err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if !w.IsSubWindowOf(b.window) {
		panic(fmt.Sprintf("%s: window %v is not a sub-window of %v", name, w, b.window))
	}
}

// MustBeConfigured panics if k has not been configured.
func MustBeConfigured(k Kernel) {
	if !k.Window().Configured() {
		panic(fmt.Sprintf("%s: kernel not configured", k.Name()))
	}
}
