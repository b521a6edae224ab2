//go:build !windows

package webgpu

// Context is a WebGPU device. The go-webgpu bindings are only built on
// Windows; on other systems NewContext always fails.
type Context struct{}

// NewContext returns ErrUnavailable.
func NewContext() (*Context, error) {
	return nil, ErrUnavailable
}

// Name returns "WebGPU".
func (c *Context) Name() string {
	return "WebGPU"
}

// AdapterName returns an empty string.
func (c *Context) AdapterName() string {
	return ""
}

// Tuner returns nil.
func (c *Context) Tuner() *Tuner {
	return nil
}

// PoolStats returns zero counters.
func (c *Context) PoolStats() PoolStats {
	return PoolStats{}
}

// TuneConvolution returns ErrUnavailable.
func (c *Context) TuneConvolution(_, _, _ int) (WorkgroupSize, error) {
	return WorkgroupSize{}, ErrUnavailable
}

// TuneAddition returns ErrUnavailable.
func (c *Context) TuneAddition(_, _ int) (WorkgroupSize, error) {
	return WorkgroupSize{}, ErrUnavailable
}

// Close does nothing.
func (c *Context) Close() error {
	return nil
}
