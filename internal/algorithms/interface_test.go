package algorithms

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testMat(t *testing.T, width, height int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), height, width, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func evaluate(t *testing.T, r *Registry, name string, values map[string]Value, input gocv.Mat) gocv.Mat {
	t.Helper()
	op, err := r.Instantiate(name, values, input)
	require.NoError(t, err)

	out, err := op.Evaluate()
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	require.False(t, out.Empty())
	return out
}

func TestSchemaFor_KnownFilter(t *testing.T) {
	r := NewRegistry()

	schema, err := r.SchemaFor("gaussian_blur")
	require.NoError(t, err)
	assert.Equal(t, "gaussian_blur", schema.Name())
	assert.Equal(t, []string{ImageKey, "radius"}, schema.Keys())

	radius, ok := schema.Input("radius")
	require.True(t, ok)
	assert.Equal(t, KindScalar, radius.Kind)
	assert.True(t, radius.Bounded)
	assert.Equal(t, 10.0, radius.Default.Float())
}

func TestSchemaFor_UnknownFilter(t *testing.T) {
	r := NewRegistry()

	_, err := r.SchemaFor("no_such_filter")
	require.ErrorIs(t, err, ErrUnknownFilter)

	_, err = r.Instantiate("no_such_filter", nil, gocv.NewMat())
	require.ErrorIs(t, err, ErrUnknownFilter)
}

func TestSchema_InputsAreCopies(t *testing.T) {
	r := NewRegistry()
	schema, err := r.SchemaFor("exposure")
	require.NoError(t, err)

	inputs := schema.Inputs()
	inputs[1].Key = "mutated"

	again, err := r.SchemaFor("exposure")
	require.NoError(t, err)
	assert.Equal(t, "contrast", again.Inputs()[1].Key)
}

func TestRegister_RejectsInvalidDefinitions(t *testing.T) {
	r := NewRegistry()
	apply := func(input gocv.Mat, _ Args) (gocv.Mat, error) { return input.Clone(), nil }

	tests := []struct {
		name string
		def  Definition
	}{
		{"empty name", Definition{Apply: apply}},
		{"no apply", Definition{Name: "x"}},
		{"duplicate key", Definition{Name: "x", Apply: apply, Inputs: []Input{
			{Key: "a", Kind: KindScalar}, {Key: "a", Kind: KindScalar},
		}}},
		{"image key not image", Definition{Name: "x", Apply: apply, Inputs: []Input{
			{Key: ImageKey, Kind: KindScalar},
		}}},
		{"default kind mismatch", Definition{Name: "x", Apply: apply, Inputs: []Input{
			{Key: "a", Kind: KindScalar, Default: StringValue("nope")},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.def))
		})
	}
}

func TestNames_SortedAndComplete(t *testing.T) {
	r := NewRegistry()
	names := r.Names()

	assert.IsIncreasing(t, names)
	assert.Len(t, names, len(builtins()))
	assert.Contains(t, r.Categories()["Reduction"], "row_average")
}

func TestInstantiate_KindMismatch(t *testing.T) {
	r := NewRegistry()

	_, err := r.Instantiate("gaussian_blur", map[string]Value{"radius": StringValue("10")}, testMat(t, 8, 8))
	require.ErrorIs(t, err, ErrInstantiation)
}

func TestInstantiate_UndeclaredKey(t *testing.T) {
	r := NewRegistry()

	_, err := r.Instantiate("invert", map[string]Value{"radius": ScalarValue(1)}, testMat(t, 8, 8))
	require.ErrorIs(t, err, ErrInstantiation)
}

func TestInstantiate_UnboundImageInput(t *testing.T) {
	r := NewRegistry()

	_, err := r.Instantiate("blend", nil, testMat(t, 8, 8))
	require.ErrorIs(t, err, ErrInstantiation)
}

func TestInstantiate_PrimaryImageKeyIgnored(t *testing.T) {
	r := NewRegistry()
	stray := image.NewRGBA(image.Rect(0, 0, 2, 2))

	out := evaluate(t, r, "invert", map[string]Value{ImageKey: ImageValue(stray)}, testMat(t, 16, 12))
	assert.Equal(t, 16, out.Cols())
	assert.Equal(t, 12, out.Rows())
}

func TestInstantiate_IsLazy(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register(Definition{
		Name:   "counting",
		Inputs: []Input{imageInput()},
		Apply: func(input gocv.Mat, _ Args) (gocv.Mat, error) {
			calls++
			return input.Clone(), nil
		},
	}))

	op, err := r.Instantiate("counting", nil, testMat(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	out, err := op.Evaluate()
	require.NoError(t, err)
	defer out.Close()
	assert.Equal(t, 1, calls)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	r := NewRegistry()
	empty := gocv.NewMat()
	defer empty.Close()

	op, err := r.Instantiate("invert", nil, empty)
	require.NoError(t, err)

	_, err = op.Evaluate()
	assert.Error(t, err)
}

func TestReductions_CollapseOneAxis(t *testing.T) {
	r := NewRegistry()
	input := testMat(t, 30, 20)

	row := evaluate(t, r, "row_average", nil, input)
	assert.Equal(t, 1, row.Rows())
	assert.Equal(t, 30, row.Cols())
	assert.Equal(t, 3, row.Channels())

	column := evaluate(t, r, "column_average", nil, input)
	assert.Equal(t, 20, column.Rows())
	assert.Equal(t, 1, column.Cols())
}

func TestGeometryFilters_Extent(t *testing.T) {
	r := NewRegistry()
	input := testMat(t, 400, 200)

	scaled := evaluate(t, r, "scale", map[string]Value{"factor": ScalarValue(0.5)}, input)
	assert.Equal(t, 200, scaled.Cols())
	assert.Equal(t, 100, scaled.Rows())

	upscaled := evaluate(t, r, "scale", map[string]Value{
		"factor":        ScalarValue(1.5),
		"interpolation": StringValue("lanczos4"),
	}, input)
	assert.Equal(t, 600, upscaled.Cols())
	assert.Equal(t, 300, upscaled.Rows())

	cropped := evaluate(t, r, "crop", map[string]Value{"rectangle": VectorValue(350, 10, 300, 50)}, input)
	assert.Equal(t, 50, cropped.Cols())
	assert.Equal(t, 50, cropped.Rows())
}

func TestCrop_OutsideImage(t *testing.T) {
	r := NewRegistry()
	op, err := r.Instantiate("crop", map[string]Value{"rectangle": VectorValue(500, 500, 10, 10)}, testMat(t, 40, 40))
	require.NoError(t, err)

	_, err = op.Evaluate()
	assert.Error(t, err)
}

func TestThreshold_UnknownMode(t *testing.T) {
	r := NewRegistry()
	op, err := r.Instantiate("threshold", map[string]Value{"mode": StringValue("sideways")}, testMat(t, 8, 8))
	require.NoError(t, err)

	_, err = op.Evaluate()
	assert.Error(t, err)
}

func TestBuiltins_PreserveExtent(t *testing.T) {
	r := NewRegistry()
	input := testMat(t, 64, 48)
	background := image.NewRGBA(image.Rect(0, 0, 10, 10))

	for _, name := range []string{
		"gaussian_blur", "median_blur", "bilateral", "erode", "dilate",
		"threshold", "exposure", "grayscale", "invert", "color_overlay", "edges",
		"open", "close", "otsu_threshold", "adaptive_threshold", "niblack",
	} {
		t.Run(name, func(t *testing.T) {
			out := evaluate(t, r, name, nil, input)
			assert.Equal(t, 64, out.Cols())
			assert.Equal(t, 48, out.Rows())
		})
	}

	t.Run("blend", func(t *testing.T) {
		out := evaluate(t, r, "blend", map[string]Value{"background_image": ImageValue(background)}, input)
		assert.Equal(t, 64, out.Cols())
		assert.Equal(t, 48, out.Rows())
	})
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "10", ScalarValue(10).String())
	assert.Equal(t, "0.25", ScalarValue(0.25).String())
	assert.Equal(t, "[0 0 300 300]", VectorValue(0, 0, 300, 300).String())
	assert.Equal(t, "#ff8000ff", ColorValue(color.RGBA{R: 255, G: 128, A: 255}).String())
	assert.Equal(t, `"binary"`, StringValue("binary").String())
	assert.Equal(t, "<image 3x2>", ImageValue(image.NewRGBA(image.Rect(0, 0, 3, 2))).String())
	assert.Equal(t, "<unbound>", Value{}.String())
	assert.True(t, ImageValue(nil).IsZero())
}

func TestValue_CloneDetachesVector(t *testing.T) {
	v := VectorValue(1, 2, 3)
	c := v.Clone()

	floats := c.Floats()
	floats[0] = 99

	assert.Equal(t, []float64{1, 2, 3}, v.Floats())
	assert.Equal(t, []float64{1, 2, 3}, c.Floats())
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, A: 255}, c)

	c, err = ParseColor("10203040")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}, c)

	_, err = ParseColor("#fff")
	assert.Error(t, err)
	_, err = ParseColor("#gggggg")
	assert.Error(t, err)
}

func TestParseVector(t *testing.T) {
	v, err := ParseVector("[1, 2.5 3]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, v)

	_, err = ParseVector("1, x")
	assert.Error(t, err)
}

func TestMedianBlur_ReportsOpenCVFailure(t *testing.T) {
	r := NewRegistry()
	input := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0.5, 0.5, 0.5, 0), 16, 16, gocv.MatTypeCV32FC3)
	defer input.Close()

	// Kernels above 5 only accept 8-bit input.
	op, err := r.Instantiate("median_blur", map[string]Value{"kernel_size": ScalarValue(7)}, input)
	require.NoError(t, err)

	out, err := op.Evaluate()
	defer out.Close()
	require.Error(t, err)
	assert.True(t, out.Empty())
}
