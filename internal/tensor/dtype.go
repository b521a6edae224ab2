// Package tensor provides the tensor metadata and storage consumed by the
// kernel execution core: shapes, data types, coordinates, valid regions,
// border descriptions and padded, strided byte buffers.
package tensor

// Element is a constraint for the Go types that back a tensor element.
type Element interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~float32
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Unknown DataType = iota
	U8
	S8
	U16
	S16
	U32
	S32
	F16
	F32
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case U8, S8:
		return 1
	case U16, S16, F16:
		return 2
	case U32, S32, F32:
		return 4
	default:
		panic("unknown data type")
	}
}

// IsFloat reports whether the data type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt == F16 || dt == F32
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case U8:
		return "U8"
	case S8:
		return "S8"
	case U16:
		return "U16"
	case S16:
		return "S16"
	case U32:
		return "U32"
	case S32:
		return "S32"
	case F16:
		return "F16"
	case F32:
		return "F32"
	default:
		return "UNKNOWN"
	}
}

// ParseDataType is the inverse of DataType.String. It returns Unknown for
// names it does not recognise.
func ParseDataType(s string) DataType {
	for dt := U8; dt <= F32; dt++ {
		if dt.String() == s {
			return dt
		}
	}
	return Unknown
}

// Range returns the representable [lowest, highest] range of an integer or
// float data type as float64 values.
func (dt DataType) Range() (lowest, highest float64) {
	switch dt {
	case U8:
		return 0, 255
	case S8:
		return -128, 127
	case U16:
		return 0, 65535
	case S16:
		return -32768, 32767
	case U32:
		return 0, 4294967295
	case S32:
		return -2147483648, 2147483647
	case F16:
		return -65504, 65504
	case F32:
		return -3.4028234663852886e+38, 3.4028234663852886e+38
	default:
		panic("unknown data type")
	}
}
