// Blur filters for noise reduction and smoothing
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func imageInput() Input {
	return Input{Key: ImageKey, Kind: KindImage, Description: "Image to filter"}
}

func bounded(key string, min, max, def float64, description string) Input {
	return Input{
		Key:         key,
		Kind:        KindScalar,
		Min:         min,
		Max:         max,
		Bounded:     true,
		Default:     ScalarValue(def),
		Description: description,
	}
}

// oddKernel rounds size to the nearest odd kernel size of at least min.
func oddKernel(size float64, min int) int {
	k := int(size + 0.5)
	if k < min {
		k = min
	}
	if k%2 == 0 {
		k++
	}
	return k
}

func gaussianBlur() Definition {
	return Definition{
		Name:        "gaussian_blur",
		Category:    "Blur",
		Description: "Gaussian blur; the radius is the standard deviation",
		Inputs: []Input{
			imageInput(),
			bounded("radius", 0, 100, 10, "Standard deviation of the kernel in pixels"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			radius := args.Scalar("radius")
			if radius <= 0 {
				return input.Clone(), nil
			}

			output := gocv.NewMat()
			if err := gocv.GaussianBlur(input, &output, image.Pt(0, 0), radius, radius, gocv.BorderDefault); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("gaussian blur: %w", err)
			}
			return output, nil
		},
	}
}

func medianBlur() Definition {
	return Definition{
		Name:        "median_blur",
		Category:    "Blur",
		Description: "Median filter to remove salt-and-pepper noise",
		Inputs: []Input{
			imageInput(),
			bounded("kernel_size", 3, 15, 5, "Size of the median kernel (rounded to odd)"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			output := gocv.NewMat()
			if err := gocv.MedianBlur(input, &output, oddKernel(args.Scalar("kernel_size"), 3)); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("median blur: %w", err)
			}
			return output, nil
		},
	}
}

func bilateral() Definition {
	return Definition{
		Name:        "bilateral",
		Category:    "Blur",
		Description: "Bilateral filter for edge-preserving smoothing",
		Inputs: []Input{
			imageInput(),
			bounded("diameter", 3, 15, 9, "Diameter of each pixel neighborhood"),
			bounded("sigma_color", 10, 200, 75, "Filter sigma in the color space"),
			bounded("sigma_space", 10, 200, 75, "Filter sigma in the coordinate space"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			src, err := toBGR(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer src.Close()

			output := gocv.NewMat()
			if err := gocv.BilateralFilter(src, &output, int(args.Scalar("diameter")),
				args.Scalar("sigma_color"), args.Scalar("sigma_space")); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("bilateral filter: %w", err)
			}
			return output, nil
		},
	}
}

// toBGR returns a 3-channel copy of m. The caller closes it.
func toBGR(m gocv.Mat) (gocv.Mat, error) {
	output := gocv.NewMat()
	var err error
	switch m.Channels() {
	case 3:
		err = m.CopyTo(&output)
	case 1:
		err = gocv.CvtColor(m, &output, gocv.ColorGrayToBGR)
	case 4:
		err = gocv.CvtColor(m, &output, gocv.ColorBGRAToBGR)
	default:
		err = fmt.Errorf("unsupported channel count: %d", m.Channels())
	}
	if err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("convert to BGR: %w", err)
	}
	return output, nil
}

// convertColor returns src converted with code. The caller closes it.
func convertColor(src gocv.Mat, code gocv.ColorConversionCode) (gocv.Mat, error) {
	output := gocv.NewMat()
	if err := gocv.CvtColor(src, &output, code); err != nil {
		output.Close()
		return gocv.NewMat(), fmt.Errorf("convert color: %w", err)
	}
	return output, nil
}
