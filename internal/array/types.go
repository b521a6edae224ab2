package array

import "fmt"

// Coordinates2D is a pixel position.
type Coordinates2D struct {
	X int32
	Y int32
}

func (c Coordinates2D) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// KeyPoint is a detected feature.
type KeyPoint struct {
	X              int32
	Y              int32
	Strength       float32
	Scale          float32
	Orientation    float32
	TrackingStatus int32
	Error          float32
}

// DetectionWindow is a rectangle reported by a detector together with its
// class and score.
type DetectionWindow struct {
	X       uint16
	Y       uint16
	Width   uint16
	Height  uint16
	ClassID uint16
	Score   float32
}

// Common array instantiations.
type (
	KeyPointArray        = Array[KeyPoint]
	Coordinates2DArray   = Array[Coordinates2D]
	DetectionWindowArray = Array[DetectionWindow]
	Uint32Array          = Array[uint32]
	Int16Array           = Array[int16]
	Float32Array         = Array[float32]
)
