package draw

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkOrdersByZThenInsertion(t *testing.T) {
	var l List
	l.AddRect(Rect{Brush: Solid(RGB(1, 0, 0)), Z: 1})
	l.AddText(Text{String: "under", Z: 0})
	l.AddText(Text{String: "over", Z: 1})
	l.AddRect(Rect{Brush: Solid(RGB(0, 2, 0)), Z: 0})

	var order []string
	l.Walk(func(r *Rect, tx *Text) {
		if r != nil {
			order = append(order, "rect")
		} else {
			order = append(order, tx.String)
		}
	})
	require.Equal(t, []string{"under", "rect", "rect", "over"}, order)

	l.Reset()
	require.Zero(t, l.Len())
}

func TestBoxContains(t *testing.T) {
	b := Box{X: 10, Y: 10, W: 5, H: 5}
	require.True(t, b.Contains(10, 10))
	require.True(t, b.Contains(14.9, 14.9))
	require.False(t, b.Contains(15, 12))
	require.False(t, b.Contains(9.9, 12))
}
