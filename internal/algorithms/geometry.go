// Filters that change the image extent
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func sizeOf(m gocv.Mat) image.Point {
	return image.Pt(m.Cols(), m.Rows())
}

func crop() Definition {
	return Definition{
		Name:        "crop",
		Category:    "Geometry",
		Description: "Keeps the rectangle [x y width height], clipped to the image",
		Inputs: []Input{
			imageInput(),
			{
				Key:         "rectangle",
				Kind:        KindVector,
				Default:     VectorValue(0, 0, 300, 300),
				Description: "Crop rectangle as x, y, width, height",
			},
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			v := args.Vector("rectangle")
			if len(v) != 4 {
				return gocv.NewMat(), fmt.Errorf("rectangle needs 4 components, got %d", len(v))
			}

			rect := image.Rect(int(v[0]), int(v[1]), int(v[0]+v[2]), int(v[1]+v[3]))
			rect = rect.Intersect(image.Rect(0, 0, input.Cols(), input.Rows()))
			if rect.Empty() {
				return gocv.NewMat(), fmt.Errorf("rectangle %v lies outside the image", v)
			}

			region := input.Region(rect)
			defer region.Close()
			return region.Clone(), nil
		},
	}
}

var interpolations = map[string]gocv.InterpolationFlags{
	"area":     gocv.InterpolationArea,
	"linear":   gocv.InterpolationLinear,
	"cubic":    gocv.InterpolationCubic,
	"lanczos4": gocv.InterpolationLanczos4,
}

func scale() Definition {
	return Definition{
		Name:        "scale",
		Category:    "Geometry",
		Description: "Uniform resize by a factor",
		Inputs: []Input{
			imageInput(),
			bounded("factor", 0.05, 4, 0.5, "Scale factor applied to both axes"),
			{
				Key:         "interpolation",
				Kind:        KindString,
				Default:     StringValue("area"),
				Description: "area, linear, cubic or lanczos4",
			},
		},
		Apply: func(input gocv.Mat, args Args) (gocv.Mat, error) {
			factor := args.Scalar("factor")
			if factor <= 0 {
				return gocv.NewMat(), fmt.Errorf("scale factor must be positive, got %g", factor)
			}

			interpolation, ok := interpolations[args.Text("interpolation")]
			if !ok {
				return gocv.NewMat(), fmt.Errorf("unknown interpolation %q", args.Text("interpolation"))
			}

			width := max(1, int(float64(input.Cols())*factor+0.5))
			height := max(1, int(float64(input.Rows())*factor+0.5))

			output := gocv.NewMat()
			if err := gocv.Resize(input, &output, image.Pt(width, height), 0, 0, interpolation); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("resize to %dx%d: %w", width, height, err)
			}
			return output, nil
		},
	}
}

// reduction collapses one axis to a single pixel by averaging. dim 0 yields
// a single row, dim 1 a single column.
func reduction(name, description string, dim int) Definition {
	return Definition{
		Name:        name,
		Category:    "Reduction",
		Description: description,
		Inputs:      []Input{imageInput()},
		Apply: func(input gocv.Mat, _ Args) (gocv.Mat, error) {
			sum := gocv.NewMat()
			defer sum.Close()
			if err := gocv.Reduce(input, &sum, dim, gocv.ReduceAvg, gocv.MatTypeCV32F); err != nil {
				return gocv.NewMat(), fmt.Errorf("reduce: %w", err)
			}

			output := gocv.NewMat()
			if err := sum.ConvertTo(&output, gocv.MatTypeCV8U); err != nil {
				output.Close()
				return gocv.NewMat(), fmt.Errorf("convert average: %w", err)
			}
			return output, nil
		},
	}
}

func rowAverage() Definition {
	return reduction("row_average", "Averages every column into a one pixel high row", 0)
}

func columnAverage() Definition {
	return reduction("column_average", "Averages every row into a one pixel wide column", 1)
}
