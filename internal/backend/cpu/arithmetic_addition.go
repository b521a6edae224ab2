package cpu

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/dispatch"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

const additionStep = 16

// ConvertPolicy selects what happens when an integer result does not fit
// the output type.
type ConvertPolicy int

// Supported convert policies.
const (
	ConvertWrap ConvertPolicy = iota
	ConvertSaturate
)

func (p ConvertPolicy) String() string {
	if p == ConvertSaturate {
		return "saturate"
	}
	return "wrap"
}

// ParseConvertPolicy parses the names returned by ConvertPolicy.String.
func ParseConvertPolicy(s string) (ConvertPolicy, error) {
	switch s {
	case "wrap":
		return ConvertWrap, nil
	case "saturate":
		return ConvertSaturate, nil
	default:
		return ConvertWrap, fmt.Errorf("unknown convert policy %q", s)
	}
}

type addKey struct {
	A, B, Out tensor.DataType
	Policy    ConvertPolicy
}

type addParams struct {
	a, b, out *tensor.Tensor
}

type addFunc func(p *addParams, w window.Window)

var additionTable = newAdditionTable()

func newAdditionTable() *dispatch.Table[addKey, addFunc] {
	var entries []dispatch.Entry[addKey, addFunc]
	addInt := func(a, b, out tensor.DataType, wrap, sat addFunc) {
		name := fmt.Sprintf("add_%s_%s_%s", a, b, out)
		entries = append(entries,
			dispatch.Entry[addKey, addFunc]{Name: name + "_wrap", Key: addKey{a, b, out, ConvertWrap}, Fn: wrap},
			dispatch.Entry[addKey, addFunc]{Name: name + "_saturate", Key: addKey{a, b, out, ConvertSaturate}, Fn: sat},
		)
	}
	addInt(tensor.U8, tensor.U8, tensor.U8, addWrap[uint8, uint8, uint8], addSaturate[uint8, uint8, uint8])
	addInt(tensor.U8, tensor.U8, tensor.S16, addWrap[uint8, uint8, int16], addSaturate[uint8, uint8, int16])
	addInt(tensor.U8, tensor.S16, tensor.S16, addWrap[uint8, int16, int16], addSaturate[uint8, int16, int16])
	addInt(tensor.S16, tensor.U8, tensor.S16, addWrap[int16, uint8, int16], addSaturate[int16, uint8, int16])
	addInt(tensor.S16, tensor.S16, tensor.S16, addWrap[int16, int16, int16], addSaturate[int16, int16, int16])

	// Floating point ignores the policy.
	for _, policy := range []ConvertPolicy{ConvertWrap, ConvertSaturate} {
		entries = append(entries,
			dispatch.Entry[addKey, addFunc]{
				Name:     "add_f16_fp16",
				Key:      addKey{tensor.F16, tensor.F16, tensor.F16, policy},
				Requires: cpuinfo.FP16,
				Priority: 1,
				Fn:       addF16Vector,
			},
			dispatch.Entry[addKey, addFunc]{
				Name: "add_f16_via_f32",
				Key:  addKey{tensor.F16, tensor.F16, tensor.F16, policy},
				Fn:   addF16,
			},
			dispatch.Entry[addKey, addFunc]{
				Name: "add_f32",
				Key:  addKey{tensor.F32, tensor.F32, tensor.F32, policy},
				Fn:   addF32,
			},
		)
	}
	return dispatch.NewTable("arithmetic addition", entries...)
}

// forEachRow calls fn with the three element slices of every window step.
func forEachRow[A, B, O tensor.Element](p *addParams, w window.Window, fn func(a []A, b []B, out []O)) {
	a, b, out := tensor.Elements[A](p.a), tensor.Elements[B](p.b), tensor.Elements[O](p.out)
	endX, step := w.X().End, w.X().Step

	ia := window.NewIterator(p.a.Info(), w)
	ib := window.NewIterator(p.b.Info(), w)
	io := window.NewIterator(p.out.Info(), w)
	window.ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		n := min(step, endX-id.X())
		fn(a[ia.Index():ia.Index()+n], b[ib.Index():ib.Index()+n], out[io.Index():io.Index()+n])
	}, ia, ib, io)
}

func addWrap[A, B, O integer](p *addParams, w window.Window) {
	forEachRow(p, w, func(a []A, b []B, out []O) {
		for i := range out {
			out[i] = O(int64(a[i]) + int64(b[i]))
		}
	})
}

func addSaturate[A, B, O integer](p *addParams, w window.Window) {
	lo, hi := limits[O]()
	forEachRow(p, w, func(a []A, b []B, out []O) {
		for i := range out {
			out[i] = saturate[O](int64(a[i])+int64(b[i]), lo, hi)
		}
	})
}

func addF32(p *addParams, w window.Window) {
	forEachRow(p, w, func(a, b, out []float32) {
		for i := range out {
			out[i] = a[i] + b[i]
		}
	})
}

func addF16(p *addParams, w window.Window) {
	forEachRow(p, w, func(a, b, out []float16.Float16) {
		for i := range out {
			out[i] = float16.Fromfloat32(a[i].Float32() + b[i].Float32())
		}
	})
}

// addF16Vector mirrors the vector FP16 routine: eight lanes are widened,
// added and narrowed together. A half precision sum rounded once is the same
// value whichever way it is computed, so its results are bit-identical to
// addF16. The entry exists so that routine selection and the BORN_NO_FP16
// alias to addF16 behave as they do for ISA-specific code.
func addF16Vector(p *addParams, w window.Window) {
	const lanes = 8
	forEachRow(p, w, func(a, b, out []float16.Float16) {
		var sum [lanes]float32
		for i := 0; i < len(out); i += lanes {
			n := min(lanes, len(out)-i)
			for j := range n {
				sum[j] = a[i+j].Float32() + b[i+j].Float32()
			}
			for j := range n {
				out[i+j] = float16.Fromfloat32(sum[j])
			}
		}
	})
}

// ArithmeticAdditionKernel adds two images element-wise.
//
// Supported combinations:
//
//	U8  + U8  -> U8 or S16
//	U8  + S16 -> S16
//	S16 + U8  -> S16
//	S16 + S16 -> S16
//	F16 + F16 -> F16
//	F32 + F32 -> F32
type ArithmeticAdditionKernel struct {
	kernel.Base
	params  addParams
	policy  ConvertPolicy
	fn      addFunc
	routine string
}

// NewArithmeticAdditionKernel returns an unconfigured kernel.
func NewArithmeticAdditionKernel() *ArithmeticAdditionKernel {
	return &ArithmeticAdditionKernel{}
}

// ValidateArithmeticAddition checks whether a, b and out can be added with
// policy.
func ValidateArithmeticAddition(a, b, out *tensor.Info, policy ConvertPolicy) error {
	const op = "arithmetic addition"
	if err := kernel.CheckNotNil(op, a, b, out); err != nil {
		return err
	}
	if err := kernel.CheckSameShape(op, a, b, out); err != nil {
		return err
	}
	key := addKey{a.DataType(), b.DataType(), out.DataType(), policy}
	if !additionTable.Supports(key, cpuinfo.Detect()) {
		return fmt.Errorf("%s: %w: %s + %s -> %s", op, kernel.ErrUnsupportedDataType, a.DataType(), b.DataType(), out.DataType())
	}
	valid := a.ValidRegion().Intersect(b.ValidRegion())
	if _, err := window.CalculateMaxWindowForRegion(valid, window.Steps{additionStep}, true, tensor.BorderSize{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Configure binds the operands. It panics if ValidateArithmeticAddition
// fails. out may alias a or b.
func (k *ArithmeticAdditionKernel) Configure(a, b, out *tensor.Tensor, policy ConvertPolicy) {
	kernel.MustValidate(ValidateArithmeticAddition(a.Info(), b.Info(), out.Info(), policy))
	k.params = addParams{a: a, b: b, out: out}
	k.policy = policy

	valid := a.Info().ValidRegion().Intersect(b.Info().ValidRegion())
	win, err := window.CalculateMaxWindowForRegion(valid, window.Steps{additionStep}, true, tensor.BorderSize{})
	if err != nil {
		panic(fmt.Sprintf("arithmetic addition: %v", err))
	}
	window.SetValidRegion(out.Info(), valid, false, tensor.BorderSize{})

	// Planes are not padded, so dense operands let Z and above run as one
	// dimension.
	full, err := window.CalculateMaxWindowForRegion(tensor.ValidRegion{Shape: out.Info().Shape()}, window.Steps{additionStep}, true, tensor.BorderSize{})
	if err == nil {
		if collapsed, ok := window.CollapseForTensor(win, full, tensor.DimZ, a.Info(), b.Info(), out.Info()); ok {
			win = collapsed
		}
	}

	key := addKey{a.Info().DataType(), b.Info().DataType(), out.Info().DataType(), policy}
	entry, err := additionTable.Select(key, cpuinfo.Detect())
	if err != nil {
		panic(fmt.Sprintf("arithmetic addition: %v", err))
	}
	k.fn, k.routine = entry.Fn, entry.Name
	k.Base.Configure(win)
}

// Name implements kernel.Kernel.
func (k *ArithmeticAdditionKernel) Name() string {
	return "ArithmeticAddition"
}

// Routine returns the name of the routine selected at configure time.
func (k *ArithmeticAdditionKernel) Routine() string {
	return k.routine
}

// Run implements kernel.Kernel.
func (k *ArithmeticAdditionKernel) Run(w window.Window, _ kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	k.fn(&k.params, w)
}
