// Morphological filters
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

type morphFunc func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat) error

func morphology(name, description string, op morphFunc) Definition {
	return Definition{
		Name:        name,
		Category:    "Morphology",
		Description: description,
		Inputs: []Input{
			imageInput(),
			bounded("radius", 1, 20, 2, "Radius of the rectangular structuring element"),
			bounded("iterations", 1, 10, 1, "Number of times the operation is applied"),
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			size := 2*int(args.Scalar("radius")) + 1
			kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
			defer kernel.Close()

			output := gocv.NewMat()
			if err := op(input, &output, kernel); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
			}

			iterations := int(args.Scalar("iterations"))
			for i := 1; i < iterations; i++ {
				temp := gocv.NewMat()
				err := op(output, &temp, kernel)
				output.Close()
				if err != nil {
					temp.Close()
					return gocv.NewMat(), fmt.Errorf("%s iteration %d: %w", name, i+1, err)
				}
				output = temp
			}
			return output, nil
		},
	}
}

// morphEx adapts a morphological operation type to a morphFunc.
func morphEx(op gocv.MorphType) morphFunc {
	return func(src gocv.Mat, dst *gocv.Mat, kernel gocv.Mat) error {
		return gocv.MorphologyEx(src, dst, op, kernel)
	}
}

func erode() Definition {
	return morphology("erode", "Morphological erosion; shrinks bright regions", morphEx(gocv.MorphErode))
}

func dilate() Definition {
	return morphology("dilate", "Morphological dilation; grows bright regions", morphEx(gocv.MorphDilate))
}

func opening() Definition {
	return morphology("open", "Erosion followed by dilation; removes small bright specks", morphEx(gocv.MorphOpen))
}

func closing() Definition {
	return morphology("close", "Dilation followed by erosion; fills small dark holes", morphEx(gocv.MorphClose))
}
