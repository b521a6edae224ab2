package kernel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

// Validation errors. Validate functions wrap them with context; callers test
// with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrMismatchingShapes   = errors.New("mismatching shapes")
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrInvalidWindow       = window.ErrInvalidWindow
)

// CheckNotNil returns ErrInvalidArgument if any info is nil.
func CheckNotNil(op string, infos ...*tensor.Info) error {
	for i, info := range infos {
		if info == nil {
			return fmt.Errorf("%s: %w: tensor %d is nil", op, ErrInvalidArgument, i)
		}
	}
	return nil
}

// CheckDataType returns ErrUnsupportedDataType unless info has one of the
// allowed types. what names the tensor in the message, e.g. "input".
func CheckDataType(op, what string, info *tensor.Info, allowed ...tensor.DataType) error {
	for _, dt := range allowed {
		if info.DataType() == dt {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, dt := range allowed {
		names[i] = dt.String()
	}
	return fmt.Errorf("%s: %w: %s must be %s, got %s",
		op, ErrUnsupportedDataType, what, strings.Join(names, " or "), info.DataType())
}

// CheckSameDataType returns ErrUnsupportedDataType unless every info shares
// the data type of the first.
func CheckSameDataType(op string, infos ...*tensor.Info) error {
	for _, info := range infos[1:] {
		if info.DataType() != infos[0].DataType() {
			return fmt.Errorf("%s: %w: %s and %s differ", op, ErrUnsupportedDataType, infos[0].DataType(), info.DataType())
		}
	}
	return nil
}

// CheckSameShape returns ErrMismatchingShapes unless every info has the
// shape of the first.
func CheckSameShape(op string, infos ...*tensor.Info) error {
	for _, info := range infos[1:] {
		if !info.Shape().Equal(infos[0].Shape()) {
			return fmt.Errorf("%s: %w: %v and %v", op, ErrMismatchingShapes, []int(infos[0].Shape()), []int(info.Shape()))
		}
	}
	return nil
}

// CheckMatrixSize returns ErrInvalidArgument unless size is one of the
// supported neighbourhood sizes 3, 5, 7 or 9.
func CheckMatrixSize(op string, size int) error {
	switch size {
	case 3, 5, 7, 9:
		return nil
	default:
		return fmt.Errorf("%s: %w: matrix size %d not in {3,5,7,9}", op, ErrInvalidArgument, size)
	}
}

// MustValidate panics with err if it is not nil. Configure methods call it
// with the result of their Validate counterpart.
func MustValidate(err error) {
	if err != nil {
		panic(err.Error())
	}
}

// CheckPadding returns ErrInvalidArgument when running w would need more
// padding than a tensor that can no longer be resized has.
func CheckPadding(op string, w window.Window, accesses ...window.AccessWindowRectangle) error {
	for _, a := range accesses {
		if a.Info == nil || a.Info.IsResizable() {
			continue
		}
		if need := a.RequiredPadding(w); !a.Info.Padding().Covers(need) {
			return fmt.Errorf("%s: %w: tensor %v needs padding %v", op, ErrInvalidArgument, a.Info, need)
		}
	}
	return nil
}
