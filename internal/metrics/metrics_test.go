package metrics

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// halves is black on the left half and white on the right.
func halves(w, h int) *image.RGBA {
	img := uniform(w, h, color.RGBA{A: 255})
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func TestComputeHistogram_CountsEveryPixel(t *testing.T) {
	h, err := ComputeHistogram(halves(20, 10))
	require.NoError(t, err)

	assert.Equal(t, 200, h.Pixels)
	require.Len(t, h.Channels, 3)
	assert.Equal(t, "R", h.Channels[0].Name)

	for _, ch := range h.Channels {
		total := 0.0
		for _, n := range ch.Counts {
			total += n
		}
		assert.Equal(t, 200.0, total, ch.Name)
		assert.Equal(t, 100.0, ch.Counts[0], ch.Name)
		assert.Equal(t, 100.0, ch.Counts[255], ch.Name)
		assert.Equal(t, 100.0, ch.Peak(), ch.Name)
		assert.InDelta(t, 127.5, ch.Mean, 1e-9, ch.Name)
		assert.InDelta(t, 127.5, ch.StdDev, 1e-9, ch.Name)
	}
}

func TestComputeHistogram_UniformImage(t *testing.T) {
	h, err := ComputeHistogram(uniform(8, 8, color.RGBA{R: 90, G: 90, B: 90, A: 255}))
	require.NoError(t, err)

	for _, ch := range h.Channels {
		assert.InDelta(t, 90, ch.Mean, 1e-9)
		assert.InDelta(t, 0, ch.StdDev, 1e-9)
	}
}

func TestComputeHistogram_Empty(t *testing.T) {
	_, err := ComputeHistogram(nil)
	require.ErrorIs(t, err, ErrEmptyImage)

	_, err = ComputeHistogram(image.NewRGBA(image.Rectangle{}))
	require.ErrorIs(t, err, ErrEmptyImage)
}

func TestEvaluator_IdenticalImages(t *testing.T) {
	e := NewEvaluator()
	img := halves(16, 16)

	results, err := e.Compare(img, img)
	require.NoError(t, err)

	assert.True(t, math.IsInf(results["psnr"], 1))
	assert.Equal(t, 0.0, results["mse"])
	assert.InDelta(t, 1.0, results["contrast_ratio"], 1e-9)
	assert.InDelta(t, 1.0, results["sharpness"], 1e-9)
}

func TestEvaluator_FlattenedImageLosesContrast(t *testing.T) {
	e := NewEvaluator()
	gray := uniform(16, 16, color.RGBA{R: 128, G: 128, B: 128, A: 255})

	results, err := e.Compare(halves(16, 16), gray)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, results["contrast_ratio"], 1e-9)
	assert.Greater(t, results["mse"], 0.0)
	assert.Less(t, results["psnr"], 20.0)
}

func TestEvaluator_SizeMismatch(t *testing.T) {
	e := NewEvaluator()

	_, err := e.Compare(halves(16, 16), halves(8, 8))
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestEvaluator_Names(t *testing.T) {
	e := NewEvaluator()
	assert.Equal(t, []string{"contrast_ratio", "mse", "psnr", "sharpness"}, e.Names())
}

func TestEvaluator_ResultsCarryMetricDetails(t *testing.T) {
	e := NewEvaluator()

	results := e.Results(map[string]float64{"mse": 2, "contrast_ratio": 0.9, "bogus": 1})
	require.Len(t, results, 2)

	assert.Equal(t, "contrast_ratio", results[0].Key)
	assert.Equal(t, "Contrast Ratio", results[0].Name)
	assert.True(t, results[0].HigherIsBetter)

	assert.Equal(t, "mse", results[1].Key)
	assert.Equal(t, "Mean Squared Error", results[1].Description)
	assert.False(t, results[1].HigherIsBetter)
	assert.Equal(t, 2.0, results[1].Value)
}
