// Global and local binarization filters
package algorithms

import (
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

var adaptiveMethods = map[string]gocv.AdaptiveThresholdType{
	"mean":     gocv.AdaptiveThresholdMean,
	"gaussian": gocv.AdaptiveThresholdGaussian,
}

// grayOf returns a single channel copy of m. The caller closes it.
func grayOf(m gocv.Mat) (gocv.Mat, error) {
	switch m.Channels() {
	case 1:
		output := gocv.NewMat()
		if err := m.CopyTo(&output); err != nil {
			output.Close()
			return gocv.NewMat(), fmt.Errorf("copy gray image: %w", err)
		}
		return output, nil
	case 3:
		return convertColor(m, gocv.ColorBGRToGray)
	case 4:
		return convertColor(m, gocv.ColorBGRAToGray)
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", m.Channels())
	}
}

func otsuThreshold() Definition {
	return Definition{
		Name:        "otsu_threshold",
		Category:    "Binarization",
		Description: "Global binarization at the level maximizing between-class variance",
		Inputs: []Input{
			imageInput(),
			bounded("bias", -64, 64, 0, "Offset added to the computed Otsu level"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			gray, err := grayOf(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer gray.Close()

			mask := gocv.NewMat()
			defer mask.Close()
			level := otsuLevel(gray, &mask)
			if bias := args.Scalar("bias"); bias != 0 {
				gocv.Threshold(gray, &mask, float32(level+bias), 255, gocv.ThresholdBinary)
			}
			return convertColor(mask, gocv.ColorGrayToBGR)
		},
	}
}

// otsuLevel binarizes gray into mask at the Otsu level and returns the level.
func otsuLevel(gray gocv.Mat, mask *gocv.Mat) float64 {
	return float64(gocv.Threshold(gray, mask, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu))
}

func adaptiveThreshold() Definition {
	return Definition{
		Name:        "adaptive_threshold",
		Category:    "Binarization",
		Description: "Local binarization against the neighborhood mean",
		Inputs: []Input{
			imageInput(),
			bounded("block_size", 3, 51, 11, "Neighborhood size (rounded to odd)"),
			bounded("offset", -20, 20, 2, "Constant subtracted from the neighborhood mean"),
			{
				Key:         "method",
				Kind:        KindString,
				Default:     StringValue("mean"),
				Description: "mean or gaussian",
			},
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			method, ok := adaptiveMethods[args.Text("method")]
			if !ok {
				return gocv.NewMat(), fmt.Errorf("unknown adaptive method %q", args.Text("method"))
			}

			gray, err := grayOf(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer gray.Close()

			mask := gocv.NewMat()
			defer mask.Close()
			if err := gocv.AdaptiveThreshold(gray, &mask, 255, method, gocv.ThresholdBinary,
				oddKernel(args.Scalar("block_size"), 3), float32(args.Scalar("offset"))); err != nil {
				return gocv.NewMat(), fmt.Errorf("adaptive threshold: %w", err)
			}
			return convertColor(mask, gocv.ColorGrayToBGR)
		},
	}
}

func niblack() Definition {
	return Definition{
		Name:        "niblack",
		Category:    "Binarization",
		Description: "Local binarization at mean + k * standard deviation of each window",
		Inputs: []Input{
			imageInput(),
			bounded("window_size", 3, 101, 25, "Side of the square window (rounded to odd)"),
			bounded("k", -1, 1, -0.2, "Weight of the local standard deviation"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			gray, err := grayOf(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer gray.Close()

			sum, sumSq, err := integralTables(gray)
			if err != nil {
				return gocv.NewMat(), err
			}

			rows, cols := gray.Rows(), gray.Cols()
			out := niblackMask(gray.ToBytes(), sum, sumSq, cols, rows,
				oddKernel(args.Scalar("window_size"), 3), args.Scalar("k"))

			mask, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8U, out)
			if err != nil {
				return gocv.NewMat(), fmt.Errorf("build mask: %w", err)
			}
			defer mask.Close()
			return convertColor(mask, gocv.ColorGrayToBGR)
		},
	}
}

// integralTables returns the (rows+1)x(cols+1) integral images of gray and
// of its squares, row-major.
func integralTables(gray gocv.Mat) ([]float64, []float64, error) {
	sum, sqsum, tilted := gocv.NewMat(), gocv.NewMat(), gocv.NewMat()
	defer sum.Close()
	defer sqsum.Close()
	defer tilted.Close()

	gocv.Integral(gray, &sum, &sqsum, &tilted)
	if sum.Empty() || sqsum.Empty() {
		return nil, nil, fmt.Errorf("integral image of %dx%d input is empty", gray.Cols(), gray.Rows())
	}

	sums, err := float64Table(sum)
	if err != nil {
		return nil, nil, fmt.Errorf("integral sum: %w", err)
	}
	squares, err := float64Table(sqsum)
	if err != nil {
		return nil, nil, fmt.Errorf("integral squared sum: %w", err)
	}
	return sums, squares, nil
}

// float64Table copies m out as float64 values.
func float64Table(m gocv.Mat) ([]float64, error) {
	wide := gocv.NewMat()
	defer wide.Close()
	if err := m.ConvertTo(&wide, gocv.MatTypeCV64F); err != nil {
		return nil, err
	}

	data, err := wide.DataPtrFloat64()
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), data...), nil
}

// niblackMask thresholds every pixel against the mean + k * stddev of its
// clipped window, read from the integral images sum and sumSq.
func niblackMask(pixels []byte, sum, sumSq []float64, width, height, window int, k float64) []byte {
	stride := width + 1
	rect := func(table []float64, x1, y1, x2, y2 int) float64 {
		return table[y2*stride+x2] - table[y1*stride+x2] - table[y2*stride+x1] + table[y1*stride+x1]
	}

	half := window / 2
	out := make([]byte, len(pixels))
	for y := 0; y < height; y++ {
		y1, y2 := max(0, y-half), min(height, y+half+1)
		for x := 0; x < width; x++ {
			x1, x2 := max(0, x-half), min(width, x+half+1)
			n := float64((x2 - x1) * (y2 - y1))

			mean := rect(sum, x1, y1, x2, y2) / n
			variance := rect(sumSq, x1, y1, x2, y2)/n - mean*mean
			threshold := mean + k*math.Sqrt(max(variance, 0))

			if float64(pixels[y*width+x]) > threshold {
				out[y*width+x] = 255
			}
		}
	}
	return out
}
