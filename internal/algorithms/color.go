// Color and tone filters
package algorithms

import (
	"fmt"
	"image/color"

	"gocv.io/x/gocv"
)

var thresholdModes = map[string]gocv.ThresholdType{
	"binary":      gocv.ThresholdBinary,
	"binary_inv":  gocv.ThresholdBinaryInv,
	"truncate":    gocv.ThresholdTrunc,
	"to_zero":     gocv.ThresholdToZero,
	"to_zero_inv": gocv.ThresholdToZeroInv,
}

func threshold() Definition {
	return Definition{
		Name:        "threshold",
		Category:    "Tone",
		Description: "Per-channel fixed-level threshold",
		Inputs: []Input{
			imageInput(),
			bounded("level", 0, 255, 127, "Threshold level"),
			{
				Key:         "mode",
				Kind:        KindString,
				Default:     StringValue("binary"),
				Description: "binary, binary_inv, truncate, to_zero or to_zero_inv",
			},
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			mode, ok := thresholdModes[args.Text("mode")]
			if !ok {
				return gocv.NewMat(), fmt.Errorf("unknown threshold mode %q", args.Text("mode"))
			}

			output := gocv.NewMat()
			gocv.Threshold(input, &output, float32(args.Scalar("level")), 255, mode)
			return output, nil
		},
	}
}

func exposure() Definition {
	return Definition{
		Name:        "exposure",
		Category:    "Tone",
		Description: "Linear contrast and brightness adjustment",
		Inputs: []Input{
			imageInput(),
			bounded("contrast", 0, 3, 1, "Gain applied to every pixel"),
			bounded("brightness", -100, 100, 0, "Offset added after the gain"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			output := gocv.NewMat()
			if err := input.ConvertToWithParams(&output, input.Type(),
				float32(args.Scalar("contrast")), float32(args.Scalar("brightness"))); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("exposure: %w", err)
			}
			return output, nil
		},
	}
}

func grayscale() Definition {
	return Definition{
		Name:        "grayscale",
		Category:    "Color",
		Description: "Luma conversion, kept as three channels",
		Inputs:      []Input{imageInput()},
		Apply: func(input gocv.Mat, _ Args) (gocv.Mat, error) {
			src, err := toBGR(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer src.Close()

			gray, err := convertColor(src, gocv.ColorBGRToGray)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer gray.Close()

			return convertColor(gray, gocv.ColorGrayToBGR)
		},
	}
}

func invert() Definition {
	return Definition{
		Name:        "invert",
		Category:    "Color",
		Description: "Photographic negative",
		Inputs:      []Input{imageInput()},
		Apply: func(input gocv.Mat, _ Args) (gocv.Mat, error) {
			output := gocv.NewMat()
			gocv.BitwiseNot(input, &output)
			return output, nil
		},
	}
}

func colorOverlay() Definition {
	return Definition{
		Name:        "color_overlay",
		Category:    "Color",
		Description: "Mixes a solid color over the image",
		Inputs: []Input{
			imageInput(),
			{
				Key:         "color",
				Kind:        KindColor,
				Default:     ColorValue(color.RGBA{R: 255, G: 128, A: 255}),
				Description: "Overlay color",
			},
			bounded("intensity", 0, 1, 0.3, "Weight of the overlay color"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			src, err := toBGR(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer src.Close()

			c := args["color"].RGBA()
			solid := gocv.NewMatWithSizeFromScalar(
				gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
				src.Rows(), src.Cols(), src.Type())
			defer solid.Close()

			intensity := args.Scalar("intensity")
			output := gocv.NewMat()
			if err := gocv.AddWeighted(src, 1-intensity, solid, intensity, 0, &output); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("overlay color: %w", err)
			}
			return output, nil
		},
	}
}

func blend() Definition {
	return Definition{
		Name:        "blend",
		Category:    "Composite",
		Description: "Cross-fades the image with a background image",
		Inputs: []Input{
			imageInput(),
			{
				Key:         "background_image",
				Kind:        KindImage,
				Description: "Image mixed in, resized to the input extent",
			},
			bounded("mix", 0, 1, 0.5, "Weight of the background image"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			src, err := toBGR(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer src.Close()

			background, err := gocv.ImageToMatRGB(args["background_image"].Image())
			if err != nil {
				return gocv.NewMat(), fmt.Errorf("convert background image: %w", err)
			}
			defer background.Close()

			resized := gocv.NewMat()
			defer resized.Close()
			if err := gocv.Resize(background, &resized, sizeOf(src), 0, 0, gocv.InterpolationLinear); err != nil {
				return gocv.NewMat(), fmt.Errorf("resize background image: %w", err)
			}

			mix := args.Scalar("mix")
			output := gocv.NewMat()
			if err := gocv.AddWeighted(src, 1-mix, resized, mix, 0, &output); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("blend: %w", err)
			}
			return output, nil
		},
	}
}

func edges() Definition {
	return Definition{
		Name:        "edges",
		Category:    "Stylize",
		Description: "Canny edge map",
		Inputs: []Input{
			imageInput(),
			bounded("low", 0, 255, 50, "Lower hysteresis threshold"),
			bounded("high", 0, 255, 150, "Upper hysteresis threshold"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			src, err := toBGR(input)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer src.Close()

			gray, err := convertColor(src, gocv.ColorBGRToGray)
			if err != nil {
				return gocv.NewMat(), err
			}
			defer gray.Close()

			edgeMap := gocv.NewMat()
			defer edgeMap.Close()
			if err := gocv.Canny(gray, &edgeMap, float32(args.Scalar("low")), float32(args.Scalar("high"))); err != nil {
				return gocv.NewMat(), fmt.Errorf("canny: %w", err)
			}

			return convertColor(edgeMap, gocv.ColorGrayToBGR)
		},
	}
}
