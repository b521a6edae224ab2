//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// Kernel is a configured GPU kernel.
type Kernel interface {
	// Name identifies the kernel in logs and errors.
	Name() string
	// Window returns the window computed at configure time.
	Window() window.Window

	prepare() error
	operands() []*Tensor
	encode(pass *wgpu.ComputePassEncoder)
}

// program is the state shared by GPU kernels: the program source and build
// options, the tensors it binds and, once prepared, the tuned pipeline and
// its bind group.
type program struct {
	kernel.Base

	ctx       *Context
	name      string
	id        string
	src       string
	opts      BuildOptions
	def       WorkgroupSize
	dims      int
	tensors   []*Tensor
	resources func() []resource
	grid      func() [3]uint32

	wg        WorkgroupSize
	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup
	buffers   []resource
}

// resource is a buffer a kernel owns, bound after its tensors.
type resource struct {
	buf  *wgpu.Buffer
	size uint64
}

func (p *program) operands() []*Tensor {
	return p.tensors
}

// compile builds the program with wg, caching it in the context.
func (p *program) compile(wg WorkgroupSize) (*wgpu.ComputePipeline, error) {
	opts := BuildOptions{opts: p.opts.Options()}
	opts.Define("WG_X", wg[0])
	opts.Define("WG_Y", wg[1])
	return p.ctx.program(p.name, p.src, opts)
}

// prepare runs once every operand is allocated: it creates the uniform and
// constant buffers, picks the workgroup size and binds the operands.
func (p *program) prepare() error {
	if p.bindGroup != nil {
		return nil
	}
	for _, t := range p.tensors {
		t.mustBeAllocated(p.name)
	}
	p.buffers = p.resources()

	measure := func(wg WorkgroupSize) (time.Duration, error) {
		pipeline, err := p.compile(wg)
		if err != nil {
			return 0, err
		}
		bg := p.bind(pipeline)
		defer bg.Release()

		start := time.Now()
		p.submit(pipeline, bg, wg)
		if err := p.ctx.finish(); err != nil {
			return 0, err
		}
		return time.Since(start), nil
	}
	wg, err := p.ctx.tuner.Workgroup(p.id, p.def, p.dims, measure)
	if err != nil {
		return err
	}

	pipeline, err := p.compile(wg)
	if err != nil {
		return err
	}
	p.wg, p.pipeline, p.bindGroup = wg, pipeline, p.bind(pipeline)
	return nil
}

func (p *program) bind(pipeline *wgpu.ComputePipeline) *wgpu.BindGroup {
	entries := make([]wgpu.BindGroupEntry, 0, len(p.tensors)+len(p.buffers))
	for _, t := range p.tensors {
		//nolint:gosec // G115: binding indices are small
		entries = append(entries, t.binding(uint32(len(entries))))
	}
	for _, r := range p.buffers {
		//nolint:gosec // G115: binding indices are small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(len(entries)), r.buf, 0, r.size))
	}
	return p.ctx.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
}

func (p *program) submit(pipeline *wgpu.ComputePipeline, bg *wgpu.BindGroup, wg WorkgroupSize) {
	encoder := p.ctx.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	p.dispatch(pass, pipeline, bg, wg)
	pass.End()
	p.ctx.submit(encoder.Finish(nil))
}

func (p *program) encode(pass *wgpu.ComputePassEncoder) {
	p.dispatch(pass, p.pipeline, p.bindGroup, p.wg)
}

func (p *program) dispatch(pass *wgpu.ComputePassEncoder, pipeline *wgpu.ComputePipeline, bg *wgpu.BindGroup, wg WorkgroupSize) {
	grid := p.grid()
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(
		(grid[0]+wg[0]-1)/wg[0],
		(grid[1]+wg[1]-1)/wg[1],
		(grid[2]+wg[2]-1)/wg[2],
	)
}

// Release frees the kernel's bind group and constant buffers. The cached
// program stays in the context.
func (p *program) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for _, r := range p.buffers {
		r.buf.Release()
	}
	p.buffers = nil
}

// AdditionKernel adds two F32 tensors on the GPU.
type AdditionKernel struct {
	program
}

// NewAdditionKernel returns an unconfigured kernel.
func NewAdditionKernel() *AdditionKernel {
	return &AdditionKernel{}
}

// Name implements Kernel.
func (k *AdditionKernel) Name() string {
	return "GPUArithmeticAddition"
}

// Configure binds the operands and compiles the default program. It panics
// if ValidateAddition fails and returns compilation errors.
func (k *AdditionKernel) Configure(a, b, out *Tensor) error {
	kernel.MustValidate(ValidateAddition(a.Info(), b.Info(), out.Info()))
	win := additionWindow(a.Info(), b.Info(), out.Info())

	k.program = program{
		ctx:     a.ctx,
		name:    "add_f32",
		id:      ConfigID("add", out.Info()),
		src:     additionSource,
		def:     WorkgroupSize{16, 16, 1},
		dims:    2,
		tensors: []*Tensor{a, b, out},
	}
	k.resources = func() []resource {
		params := additionParams(win, a.Info(), b.Info(), out.Info())
		return []resource{{k.ctx.uniform(params), uint64(len(params))}}
	}
	k.grid = func() [3]uint32 {
		//nolint:gosec // G115: window extents are non-negative
		return [3]uint32{uint32(win.X().Extent()), uint32(win.Y().Extent()), uint32(planes(win))}
	}
	if _, err := k.compile(k.def); err != nil {
		return err
	}
	k.Base.Configure(win)
	return nil
}

// ConvolutionKernel convolves a U8 image into a U8 image on the GPU with a
// square matrix of size 3, 5, 7 or 9. The input border must be filled before
// the kernel runs, see Convolution.
type ConvolutionKernel struct {
	program
	size  int
	scale uint32
}

// NewConvolutionKernel returns an unconfigured kernel for a size x size
// matrix.
func NewConvolutionKernel(size int) *ConvolutionKernel {
	return &ConvolutionKernel{size: size}
}

// Name implements Kernel.
func (k *ConvolutionKernel) Name() string {
	return fmt.Sprintf("GPUConvolution%dx%d", k.size, k.size)
}

// BorderSize returns the neighbourhood radius on each side.
func (k *ConvolutionKernel) BorderSize() tensor.BorderSize {
	return tensor.UniformBorder(k.size / 2)
}

// Scale returns the divisor applied to every accumulated sum.
func (k *ConvolutionKernel) Scale() uint32 {
	return k.scale
}

// Configure binds the operands and compiles the default program. A zero
// scale is derived from the coefficients. It panics if ValidateConvolution
// fails and returns compilation errors.
func (k *ConvolutionKernel) Configure(in, out *Tensor, coeffs []int16, scale uint32, borderUndefined bool) error {
	kernel.MustValidate(ValidateConvolution(in.Info(), out.Info(), coeffs, k.size, scale, borderUndefined))
	if scale == 0 {
		scale = cpu.CalculateMatrixScale(coeffs)
	}
	k.scale = scale
	win := convolutionWindow(in.Info(), out.Info(), k.size, borderUndefined)

	matrix := make([]byte, 4*len(coeffs))
	for i, c := range coeffs {
		//nolint:gosec // G115: sign extension is intended
		binary.LittleEndian.PutUint32(matrix[4*i:], uint32(int32(c)))
	}

	k.program = program{
		ctx:     in.ctx,
		name:    "convolution_u8",
		id:      ConfigID(fmt.Sprintf("convolution%dx%d", k.size, k.size), in.Info()),
		src:     convolutionSource,
		def:     WorkgroupSize{64, 1, 1},
		dims:    1,
		tensors: []*Tensor{in, out},
	}
	k.opts.Define("MATRIX_ROWS", k.size)
	k.opts.Define("MATRIX_COLS", k.size)
	k.opts.Define("SCALE", scale)
	k.resources = func() []resource {
		params := convolutionParams(win, in.Info(), out.Info())
		return []resource{
			{k.ctx.storage(matrix), deviceSize(len(matrix))},
			{k.ctx.uniform(params), uint64(len(params))},
		}
	}
	k.grid = func() [3]uint32 {
		//nolint:gosec // G115: sizes are non-negative
		return [3]uint32{uint32(deviceSize(out.Info().TotalSize()) / 4), 1, 1}
	}
	if _, err := k.compile(k.def); err != nil {
		return err
	}
	k.Base.Configure(win)
	return nil
}
