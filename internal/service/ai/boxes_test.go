package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"visiondash/internal/model"
)

func TestRescale_RoundTrip(t *testing.T) {
	box := BoxF{X1: 0.2, Y1: 0.3, X2: 0.75, Y2: 0.7}
	px := Rescale(box, 1, 1, 400, 300)
	require.InDelta(t, 80, px.X1, 1e-9)
	require.InDelta(t, 90, px.Y1, 1e-9)
	require.InDelta(t, 300, px.X2, 1e-9)
	require.InDelta(t, 210, px.Y2, 1e-9)

	back := Rescale(px, 400, 300, 1, 1)
	require.InDelta(t, box.X1, back.X1, 1e-9)
	require.InDelta(t, box.Y2, back.Y2, 1e-9)
}

func TestPixels_ClampsToBitmap(t *testing.T) {
	box, ok := BoxF{X1: -12.4, Y1: 5.6, X2: 450, Y2: 299.6}.Pixels(400, 300)
	require.True(t, ok)
	require.Equal(t, model.Box{XMin: 0, YMin: 6, XMax: 400, YMax: 300}, box)

	_, ok = BoxF{X1: 410, Y1: 10, X2: 500, Y2: 50}.Pixels(400, 300)
	require.False(t, ok)
}

func TestIoU(t *testing.T) {
	a := BoxF{X1: 0, Y1: 0, X2: 10, Y2: 10}
	require.InDelta(t, 1, IoU(a, a), 1e-9)
	require.InDelta(t, 0, IoU(a, BoxF{X1: 20, Y1: 20, X2: 30, Y2: 30}), 1e-9)
	require.InDelta(t, 25.0/175.0, IoU(a, BoxF{X1: 5, Y1: 5, X2: 15, Y2: 15}), 1e-9)
}
