package ai

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPreprocess_LayoutAndScale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{B: 255, A: 255})

	tensor := Preprocess(img, 2, 1)
	require.Equal(t, []int{1, 3, 1, 2}, tensor.Shape)
	require.NoError(t, tensor.Validate())
	require.Equal(t, []float32{1, 0, 0, 0, 0, 1}, tensor.Data)
}

func TestPreprocess_Resizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	tensor := Preprocess(img, 224, 224)
	require.Equal(t, []int{1, 3, 224, 224}, tensor.Shape)
	require.Len(t, tensor.Data, 3*224*224)
	for _, v := range tensor.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestTensor_NHWC(t *testing.T) {
	in := Tensor{Shape: []int{1, 3, 1, 2}, Data: []float32{1, 2, 3, 4, 5, 6}}
	out := in.NHWC()
	require.Equal(t, []int{1, 1, 2, 3}, out.Shape)
	require.Equal(t, []float32{1, 3, 5, 2, 4, 6}, out.Data)
}

func TestTensor_Validate(t *testing.T) {
	require.Error(t, Tensor{}.Validate())
	require.Error(t, Tensor{Shape: []int{1, 0}}.Validate())
	require.Error(t, Tensor{Shape: []int{2, 2}, Data: []float32{1}}.Validate())
	require.NoError(t, Tensor{Shape: []int{1, 2}, Data: []float32{1, 2}}.Validate())
}
