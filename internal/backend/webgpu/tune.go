//go:build windows

package webgpu

import (
	"math/rand/v2"

	"github.com/born-ml/compute/internal/tensor"
)

// TuneConvolution runs a size x size U8 convolution over a random
// width x height image and returns the workgroup size it was run with. With
// a tuning mode other than none the size is measured and recorded in the
// tuner table.
func (c *Context) TuneConvolution(width, height, size int) (WorkgroupSize, error) {
	in := c.NewTensor(tensor.New(tensor.MustInfo(tensor.Shape{width, height}, tensor.U8)))
	out := c.NewTensor(tensor.New(tensor.MustInfo(tensor.Shape{width, height}, tensor.U8)))
	coeffs := make([]int16, size*size)
	for i := range coeffs {
		coeffs[i] = 1
	}

	conv := NewConvolution(c.NewScheduler())
	if err := conv.Configure(in, out, coeffs, size, 0, tensor.BorderReplicate, 0); err != nil {
		return WorkgroupSize{}, err
	}
	defer conv.Close()
	if err := allocate(in, out); err != nil {
		return WorkgroupSize{}, err
	}
	defer in.Release()
	defer out.Release()

	data := tensor.Elements[uint8](in.Host())
	tensor.ForEachValid(in.Host(), func(idx int, _ tensor.Coordinates) {
		data[idx] = uint8(rand.IntN(256))
	})
	if err := conv.Run(); err != nil {
		return WorkgroupSize{}, err
	}
	if err := out.Map(); err != nil {
		return WorkgroupSize{}, err
	}
	return conv.Kernel().wg, nil
}

// TuneAddition runs an F32 addition of two width x height tensors and
// returns the workgroup size it was run with.
func (c *Context) TuneAddition(width, height int) (WorkgroupSize, error) {
	shape := tensor.Shape{width, height}
	a := c.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))
	b := c.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))
	out := c.NewTensor(tensor.New(tensor.MustInfo(shape, tensor.F32)))

	k := NewAdditionKernel()
	if err := k.Configure(a, b, out); err != nil {
		return WorkgroupSize{}, err
	}
	defer k.Release()
	if err := allocate(a, b, out); err != nil {
		return WorkgroupSize{}, err
	}
	for _, t := range []*Tensor{a, b, out} {
		defer t.Release()
		tensor.Fill(t.Host(), rand.Float32())
		t.Unmap()
	}

	sched := c.NewScheduler()
	if err := sched.Enqueue(k, true); err != nil {
		return WorkgroupSize{}, err
	}
	if err := sched.Sync(); err != nil {
		return WorkgroupSize{}, err
	}
	return k.wg, nil
}

func allocate(ts ...*Tensor) error {
	for _, t := range ts {
		if err := t.Allocate(); err != nil {
			return err
		}
	}
	return nil
}
