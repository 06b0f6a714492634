// Concrete implementations of quality metrics
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrSizeMismatch = errors.New("image dimensions mismatch")

func checkPair(reference, processed gocv.Mat) error {
	if reference.Empty() || processed.Empty() {
		return ErrEmptyImage
	}
	if reference.Rows() != processed.Rows() || reference.Cols() != processed.Cols() {
		return ErrSizeMismatch
	}
	return nil
}

// grayPixels returns the luminance of every pixel.
func grayPixels(input gocv.Mat) ([]float64, error) {
	gray, release, err := luminance(input)
	if err != nil {
		return nil, err
	}
	defer release()

	raw := gray.ToBytes()
	out := make([]float64, len(raw))
	for i, b := range raw {
		out[i] = float64(b)
	}
	return out, nil
}

// luminance returns input as a single channel Mat and a func releasing it.
func luminance(input gocv.Mat) (gocv.Mat, func(), error) {
	if input.Channels() == 1 {
		return input, func() {}, nil
	}
	gray := gocv.NewMat()
	if err := gocv.CvtColor(input, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return gocv.Mat{}, nil, fmt.Errorf("convert to gray: %w", err)
	}
	return gray, func() { gray.Close() }, nil
}

func meanSquaredError(reference, processed gocv.Mat) (float64, error) {
	a, err := grayPixels(reference)
	if err != nil {
		return 0, err
	}
	b, err := grayPixels(processed)
	if err != nil {
		return 0, err
	}
	d := floats.Distance(a, b, 2)
	return d * d / float64(len(a)), nil
}

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

func NewPSNR() *PSNR { return &PSNR{} }

func (p *PSNR) Calculate(reference, processed gocv.Mat) (float64, error) {
	if err := checkPair(reference, processed); err != nil {
		return 0, err
	}

	mse, err := meanSquaredError(reference, processed)
	if err != nil {
		return 0, err
	}
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 10 * math.Log10(255*255/mse), nil
}

func (p *PSNR) GetName() string        { return "PSNR" }
func (p *PSNR) GetDescription() string { return "Peak Signal-to-Noise Ratio" }
func (p *PSNR) IsHigherBetter() bool   { return true }

// MSE implements Mean Squared Error metric
type MSE struct{}

func NewMSE() *MSE { return &MSE{} }

func (m *MSE) Calculate(reference, processed gocv.Mat) (float64, error) {
	if err := checkPair(reference, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(reference, processed)
}

func (m *MSE) GetName() string        { return "MSE" }
func (m *MSE) GetDescription() string { return "Mean Squared Error" }
func (m *MSE) IsHigherBetter() bool   { return false }

// ContrastRatio compares the luminance standard deviation of both images.
type ContrastRatio struct{}

func NewContrastRatio() *ContrastRatio { return &ContrastRatio{} }

func (c *ContrastRatio) Calculate(reference, processed gocv.Mat) (float64, error) {
	if err := checkPair(reference, processed); err != nil {
		return 0, err
	}

	a, err := grayPixels(reference)
	if err != nil {
		return 0, err
	}
	b, err := grayPixels(processed)
	if err != nil {
		return 0, err
	}

	_, before := stat.PopMeanStdDev(a, nil)
	_, after := stat.PopMeanStdDev(b, nil)
	if before == 0 {
		return 1.0, nil
	}
	return after / before, nil
}

func (c *ContrastRatio) GetName() string        { return "Contrast Ratio" }
func (c *ContrastRatio) GetDescription() string { return "Ratio of contrast preservation" }
func (c *ContrastRatio) IsHigherBetter() bool   { return true }

// Sharpness compares the variance of the Laplacian of both images.
type Sharpness struct{}

func NewSharpness() *Sharpness { return &Sharpness{} }

func (s *Sharpness) Calculate(reference, processed gocv.Mat) (float64, error) {
	if err := checkPair(reference, processed); err != nil {
		return 0, err
	}

	before, err := laplacianVariance(reference)
	if err != nil {
		return 0, err
	}
	after, err := laplacianVariance(processed)
	if err != nil {
		return 0, err
	}
	if before == 0 {
		return 1.0, nil
	}
	return after / before, nil
}

func laplacianVariance(input gocv.Mat) (float64, error) {
	gray, release, err := luminance(input)
	if err != nil {
		return 0, err
	}
	defer release()

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	if laplacian.Empty() {
		return 0, fmt.Errorf("laplacian of %dx%d image is empty", gray.Cols(), gray.Rows())
	}

	values, err := laplacian.DataPtrFloat64()
	if err != nil {
		return 0, fmt.Errorf("read laplacian: %w", err)
	}
	_, std := stat.PopMeanStdDev(values, nil)
	return std * std, nil
}

func (s *Sharpness) GetName() string        { return "Sharpness" }
func (s *Sharpness) GetDescription() string { return "Edge preservation measure" }
func (s *Sharpness) IsHigherBetter() bool   { return true }
