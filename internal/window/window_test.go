package window

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/tensor"
)

func TestWindowDefaults(t *testing.T) {
	var zero Window
	assert.False(t, zero.Configured())
	assert.Error(t, zero.Validate())

	w := New()
	assert.True(t, w.Configured())
	require.NoError(t, w.Validate())
	assert.Equal(t, 1, w.TotalIterations())
}

func TestWindowShiftAndStep(t *testing.T) {
	w := FromShape(tensor.Shape{10, 4})
	w = w.Shift(tensor.DimX, 2).SetDimensionStep(tensor.DimX, 4)

	assert.Equal(t, Dimension{Start: 2, End: 12, Step: 4}, w.X())
	assert.Equal(t, 3, w.NumIterations(tensor.DimX))
	assert.Panics(t, func() { w.SetDimensionStep(tensor.DimY, 0) })
}

func TestSplitWindowCoverage(t *testing.T) {
	cases := []struct {
		start, end, step int
	}{
		{0, 10, 1},
		{0, 10, 4},
		{3, 17, 2},
		{0, 1, 1},
		{5, 5, 1},
		{0, 100, 16},
	}
	for _, tc := range cases {
		for total := 1; total <= 12; total++ {
			t.Run(fmt.Sprintf("%d-%d-%d/%d", tc.start, tc.end, tc.step, total), func(t *testing.T) {
				w := New()
				w.Set(tensor.DimY, Dimension{Start: tc.start, End: tc.end, Step: tc.step})

				iterations := w.NumIterations(tensor.DimY)
				next := tc.start
				nonEmpty := 0
				for id := 0; id < total; id++ {
					part := w.SplitWindow(tensor.DimY, id, total)
					d := part.Y()

					assert.True(t, part.IsSubWindowOf(w))
					assert.Equal(t, tc.step, d.Step)
					if d.Start < d.End {
						assert.Equal(t, next, d.Start, "partitions must be contiguous")
						next = d.End
						nonEmpty++
					}
				}
				if iterations > 0 {
					assert.Equal(t, tc.end, next, "partitions must cover the window")
				}
				assert.Equal(t, min(iterations, total), nonEmpty)
			})
		}
	}
}

func TestSplitWindowRaggedTail(t *testing.T) {
	w := New()
	w.Set(tensor.DimX, Dimension{Start: 0, End: 10, Step: 4})

	first := w.SplitWindow(tensor.DimX, 0, 2)
	second := w.SplitWindow(tensor.DimX, 1, 2)
	assert.Equal(t, Dimension{Start: 0, End: 8, Step: 4}, first.X())
	assert.Equal(t, Dimension{Start: 8, End: 10, Step: 4}, second.X())
}

func TestCalculateMaxWindow(t *testing.T) {
	info := tensor.MustInfo(tensor.Shape{10, 8}, tensor.U8)
	border := tensor.UniformBorder(1)

	w, err := CalculateMaxWindow(info, Steps{4}, true, border)
	require.NoError(t, err)
	assert.Equal(t, Dimension{Start: 1, End: 9, Step: 4}, w.X())
	assert.Equal(t, Dimension{Start: 1, End: 7, Step: 1}, w.Y())
	assert.Equal(t, Dimension{Start: 0, End: 1, Step: 1}, w.Z())

	w, err = CalculateMaxWindow(info, Steps{4}, false, border)
	require.NoError(t, err)
	assert.Equal(t, Dimension{Start: 0, End: 10, Step: 4}, w.X())
	assert.Equal(t, Dimension{Start: 0, End: 8, Step: 1}, w.Y())

	w, err = CalculateMaxWindowHorizontal(info, nil, true, border)
	require.NoError(t, err)
	assert.Equal(t, Dimension{Start: 1, End: 9, Step: 1}, w.X())
	assert.Equal(t, Dimension{Start: 0, End: 8, Step: 1}, w.Y())
}

func TestCalculateMaxWindowEmpty(t *testing.T) {
	info := tensor.MustInfo(tensor.Shape{2, 2}, tensor.U8)

	_, err := CalculateMaxWindow(info, nil, true, tensor.UniformBorder(1))
	require.ErrorIs(t, err, ErrInvalidWindow)

	_, err = CalculateMaxWindow(info, nil, false, tensor.UniformBorder(1))
	require.NoError(t, err)
}

func TestCollapseIfPossible(t *testing.T) {
	full := FromShape(tensor.Shape{4, 3, 2})

	collapsed, ok := full.CollapseIfPossible(full, tensor.DimX)
	require.True(t, ok)
	want := New()
	want.Set(tensor.DimX, NewDimension(0, 24))
	if diff := cmp.Diff(want, collapsed, cmp.AllowUnexported(Window{})); diff != "" {
		t.Errorf("collapsed window mismatch (-want +got):\n%s", diff)
	}

	partial := full.SplitWindow(tensor.DimY, 0, 2)
	_, ok = partial.CollapseIfPossible(full, tensor.DimX)
	assert.False(t, ok)

	collapsedY, ok := full.CollapseIfPossible(full, tensor.DimY)
	require.True(t, ok)
	assert.Equal(t, NewDimension(0, 6), collapsedY.Y())
	assert.Equal(t, NewDimension(0, 4), collapsedY.X())
}

func TestCollapseForTensor(t *testing.T) {
	dense := tensor.MustInfo(tensor.Shape{4, 3}, tensor.F32)
	padded := tensor.MustInfo(tensor.Shape{4, 3}, tensor.F32)
	padded.ExtendPadding(tensor.UniformBorder(1))
	full := FromShape(tensor.Shape{4, 3})

	_, ok := CollapseForTensor(full, full, tensor.DimX, dense)
	assert.True(t, ok)
	_, ok = CollapseForTensor(full, full, tensor.DimX, dense, padded)
	assert.False(t, ok)
}

func TestSlideWindowSlices(t *testing.T) {
	w := FromShape(tensor.Shape{2, 2, 3, 2})

	count := 0
	slice := w.FirstSliceWindow2D()
	var seen [][2]int
	for {
		count++
		seen = append(seen, [2]int{slice.Z().Start, slice.Dim(tensor.DimW).Start})
		assert.Equal(t, NewDimension(0, 2), slice.X())
		assert.Equal(t, 1, slice.Z().Extent())
		if !w.SlideWindowSlice2D(&slice) {
			break
		}
	}
	assert.Equal(t, 6, count)
	assert.Equal(t, [][2]int{{0, 0}, {1, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}}, seen)

	count = 0
	slice = w.FirstSliceWindow3D()
	for {
		count++
		assert.Equal(t, NewDimension(0, 3), slice.Z())
		if !w.SlideWindowSlice3D(&slice) {
			break
		}
	}
	assert.Equal(t, 2, count)

	slice = w.FirstSliceWindow4D()
	assert.False(t, w.SlideWindowSlice4D(&slice))
}

func TestExecuteWindowLoop(t *testing.T) {
	in := tensor.MustInfo(tensor.Shape{5, 3}, tensor.S16)
	in.ExtendPadding(tensor.UniformBorder(1))
	out := tensor.MustInfo(tensor.Shape{5, 3}, tensor.S16)

	w := FromShape(tensor.Shape{5, 3}).SetDimensionStep(tensor.DimX, 2)
	inIt := NewIterator(in, w)
	outIt := NewIterator(out, w)

	var visited []string
	ExecuteWindowLoop(w, func(id tensor.Coordinates) {
		assert.Equal(t, in.OffsetElementInBytes(id), inIt.Offset())
		assert.Equal(t, out.OffsetElementInBytes(id), outIt.Offset())
		assert.Equal(t, outIt.Offset()/2, outIt.Index())
		visited = append(visited, fmt.Sprintf("%d,%d", id.X(), id.Y()))
	}, inIt, outIt)

	assert.Equal(t, []string{"0,0", "2,0", "4,0", "0,1", "2,1", "4,1", "0,2", "2,2", "4,2"}, visited)
}

func TestUpdateWindowAndPadding(t *testing.T) {
	in := tensor.MustInfo(tensor.Shape{10, 10}, tensor.U8)
	out := tensor.MustInfo(tensor.Shape{10, 10}, tensor.U8)
	w := FromShape(tensor.Shape{10, 10}).SetDimensionStep(tensor.DimX, 8)

	changed := UpdateWindowAndPadding(w,
		NewAccessWindowRectangle(in, -2, -1, 5, 3),
		NewAccessWindowHorizontal(out, 0, 1),
	)
	require.True(t, changed)
	assert.Equal(t, tensor.BorderSize{Top: 1, Right: 2, Bottom: 1, Left: 2}, in.Padding())
	assert.False(t, out.HasPadding())

	assert.False(t, UpdateWindowAndPadding(w, NewAccessWindowRectangle(in, -1, -1, 3, 3)))
}

func TestUpdateWindowAndPaddingAllocatedPanics(t *testing.T) {
	tt, err := tensor.NewAllocated(tensor.Shape{4, 4}, tensor.F32)
	require.NoError(t, err)
	w := FromShape(tensor.Shape{4, 4})

	assert.Panics(t, func() {
		UpdateWindowAndPadding(w, NewAccessWindowRectangle(tt.Info(), -1, -1, 3, 3))
	})
	assert.NotPanics(t, func() {
		UpdateWindowAndPadding(w, NewAccessWindowHorizontal(tt.Info(), 0, 1))
	})
}

func TestSetValidRegion(t *testing.T) {
	in := tensor.MustInfo(tensor.Shape{10, 8}, tensor.U8)
	out := tensor.MustInfo(tensor.Shape{10, 8}, tensor.S16)

	SetValidRegion(out, in.ValidRegion(), true, tensor.NewBorderSize(1, 2))
	r := out.ValidRegion()
	assert.Equal(t, 2, r.Start(tensor.DimX))
	assert.Equal(t, 8, r.End(tensor.DimX))
	assert.Equal(t, 1, r.Start(tensor.DimY))
	assert.Equal(t, 7, r.End(tensor.DimY))

	SetValidRegion(out, in.ValidRegion(), false, tensor.NewBorderSize(1, 2))
	assert.Equal(t, 0, out.ValidRegion().Start(tensor.DimX))
	assert.Equal(t, 10, out.ValidRegion().End(tensor.DimX))
}
