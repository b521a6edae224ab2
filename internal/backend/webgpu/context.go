//go:build windows

package webgpu

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Context owns a WebGPU device, its queue, the compiled program cache, the
// buffer pool and the tuner. Kernels and schedulers are created against one
// context and must not be mixed across contexts.
type Context struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     wgpu.AdapterInfo

	mu       sync.Mutex
	shaders  map[string]*wgpu.ShaderModule
	programs map[string]*wgpu.ComputePipeline

	pool  *BufferPool[*wgpu.Buffer, wgpu.BufferUsage]
	tuner *Tuner
	fence *wgpu.Buffer

	// Command buffers recorded but not yet submitted. Everything reaching
	// the queue goes through submit so the order is kept.
	pendingMu sync.Mutex
	pending   []*wgpu.CommandBuffer
}

// NewContext opens the default high performance adapter. The tuner is
// configured from the environment and its table loaded.
func NewContext() (ctx *Context, err error) {
	// wgpu_native panics when the library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			ctx = nil
			err = fmt.Errorf("%w: %v", ErrUnavailable, r)
		}
	}()

	tuner, err := NewTunerFromEnv()
	if err != nil {
		return nil, err
	}

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: request adapter: %w", ErrUnavailable, err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: request device: %w", ErrUnavailable, err)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: no queue", ErrUnavailable)
	}

	c := &Context{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		info:     adapter.GetInfo(),
		shaders:  make(map[string]*wgpu.ShaderModule),
		programs: make(map[string]*wgpu.ComputePipeline),
		tuner:    tuner,
	}
	c.pool = NewBufferPool(func(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
		return device.CreateBuffer(&wgpu.BufferDescriptor{Usage: usage, Size: size})
	})
	c.fence = device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:  4,
	})
	slog.Debug("webgpu context created", "adapter", c.AdapterName(), "tuner", tuner.Mode())
	return c, nil
}

// Name returns "WebGPU".
func (c *Context) Name() string {
	return "WebGPU"
}

// AdapterName describes the GPU in use.
func (c *Context) AdapterName() string {
	return fmt.Sprintf("%s %s", c.info.Name, c.info.VendorName)
}

// Tuner returns the context's tuner.
func (c *Context) Tuner() *Tuner {
	return c.tuner
}

// PoolStats returns the buffer pool counters.
func (c *Context) PoolStats() PoolStats {
	return c.pool.Stats()
}

// queueCommand records cmd for the next submission.
func (c *Context) queueCommand(cmd *wgpu.CommandBuffer) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending = append(c.pending, cmd)
}

// submit sends the pending command buffers, then cmds, to the queue.
func (c *Context) submit(cmds ...*wgpu.CommandBuffer) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	all := append(c.pending, cmds...)
	if len(all) > 0 {
		c.queue.Submit(all...)
	}
	c.pending = c.pending[:0]
}

// Close saves newly tuned entries and releases every device resource.
func (c *Context) Close() error {
	c.submit()
	err := c.tuner.Save()

	c.pool.Clear()
	c.fence.Release()
	c.mu.Lock()
	for key, p := range c.programs {
		p.Release()
		delete(c.programs, key)
	}
	for key, s := range c.shaders {
		s.Release()
		delete(c.shaders, key)
	}
	c.mu.Unlock()

	c.queue.Release()
	c.device.Release()
	c.adapter.Release()
	c.instance.Release()
	return err
}

// program returns the pipeline for name compiled with opts, compiling and
// caching it on first use.
func (c *Context) program(name, src string, opts BuildOptions) (pipeline *wgpu.ComputePipeline, err error) {
	key := opts.Key(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[key]; ok {
		return p, nil
	}

	defer func() {
		if r := recover(); r != nil {
			pipeline = nil
			err = fmt.Errorf("%w: %s: %v", ErrCompile, key, r)
		}
	}()
	shader := c.device.CreateShaderModuleWGSL(opts.Source(src))
	if shader == nil {
		return nil, fmt.Errorf("%w: %s", ErrCompile, key)
	}
	pipeline = c.device.CreateComputePipelineSimple(nil, shader, "main")
	if pipeline == nil {
		shader.Release()
		return nil, fmt.Errorf("%w: %s: no pipeline", ErrCompile, key)
	}
	c.shaders[key] = shader
	c.programs[key] = pipeline
	slog.Debug("webgpu program compiled", "key", key)
	return pipeline, nil
}

// upload writes data to the start of dst through a staging buffer.
func (c *Context) upload(dst *wgpu.Buffer, data []byte) {
	size := deviceSize(len(data))
	if size == 0 {
		return
	}
	staging := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	copy(mapped, data)
	staging.Unmap()

	encoder := c.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, dst, 0, size)
	c.submit(encoder.Finish(nil))
}

// download reads len(dst) bytes from the start of src. Work already
// submitted to the queue completes first.
func (c *Context) download(src *wgpu.Buffer, dst []byte) error {
	size := deviceSize(len(dst))
	if size == 0 {
		return nil
	}
	staging := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := c.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	c.submit(encoder.Finish(nil))

	if err := staging.MapAsync(c.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size))
	staging.Unmap()
	return nil
}

// finish blocks until all work submitted to the queue has completed. The
// queue is in order, so reading back a buffer after it is enough.
func (c *Context) finish() error {
	var word [4]byte
	return c.download(c.fence, word[:])
}

// uniform creates a uniform buffer holding params.
func (c *Context) uniform(params []byte) *wgpu.Buffer {
	size := uint64(len(params))
	buf := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), params)
	buf.Unmap()
	return buf
}

// storage creates a read-only storage buffer holding data.
func (c *Context) storage(data []byte) *wgpu.Buffer {
	size := deviceSize(len(data))
	buf := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	copy(unsafe.Slice((*byte)(buf.GetMappedRange(0, size)), size), data)
	buf.Unmap()
	return buf
}
