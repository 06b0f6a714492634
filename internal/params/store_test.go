package params

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"image-filter-chain/internal/algorithms"
)

func passthrough(input gocv.Mat, _ algorithms.Args) (gocv.Mat, error) {
	return input.Clone(), nil
}

func schemaFor(t *testing.T, def algorithms.Definition) algorithms.Schema {
	t.Helper()
	r := algorithms.NewRegistry()
	def.Apply = passthrough
	require.NoError(t, r.Register(def))

	schema, err := r.SchemaFor(def.Name)
	require.NoError(t, err)
	return schema
}

func radiusSchema(t *testing.T) algorithms.Schema {
	return schemaFor(t, algorithms.Definition{
		Name: "radius_only",
		Inputs: []algorithms.Input{
			{Key: "radius", Kind: algorithms.KindScalar, Default: algorithms.ScalarValue(10)},
			{Key: algorithms.ImageKey, Kind: algorithms.KindImage},
		},
	})
}

func TestReset_SeedsDefaultsAndDefaultImage(t *testing.T) {
	defaultImage := image.NewRGBA(image.Rect(0, 0, 4, 4))
	other := schemaFor(t, algorithms.Definition{
		Name: "other",
		Inputs: []algorithms.Input{
			{Key: "angle", Kind: algorithms.KindScalar, Default: algorithms.ScalarValue(1)},
			{Key: "radius", Kind: algorithms.KindString, Default: algorithms.StringValue("wide")},
		},
	})

	s := NewStore()
	s.SetDefaultImage(defaultImage)
	s.Reset(other)
	require.True(t, s.Set("angle", algorithms.ScalarValue(3)))

	s.Reset(radiusSchema(t))

	assert.Equal(t, map[string]algorithms.Value{
		"radius":            algorithms.ScalarValue(10),
		algorithms.ImageKey: algorithms.ImageValue(defaultImage),
	}, s.Values())
}

func TestReset_WithoutDefaultImageLeavesImageUnbound(t *testing.T) {
	s := NewStore()
	s.Reset(radiusSchema(t))

	_, ok := s.Get(algorithms.ImageKey)
	assert.False(t, ok)

	radius, ok := s.Get("radius")
	require.True(t, ok)
	assert.Equal(t, 10.0, radius.Float())
}

func TestSet_IgnoresUndeclaredKeys(t *testing.T) {
	s := NewStore()
	s.Reset(radiusSchema(t))
	before := s.Values()

	assert.False(t, s.Set("intensity", algorithms.ScalarValue(0.5)))
	assert.Equal(t, before, s.Values())

	assert.True(t, s.Set("radius", algorithms.ScalarValue(25)))
	radius, _ := s.Get("radius")
	assert.Equal(t, 25.0, radius.Float())
}

func TestSet_BeforeResetOnlyAcceptsImageKey(t *testing.T) {
	s := NewStore()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))

	assert.False(t, s.Set("radius", algorithms.ScalarValue(1)))
	assert.True(t, s.Set(algorithms.ImageKey, algorithms.ImageValue(img)))

	_, active := s.Schema()
	assert.False(t, active)
}

func TestValuesExcludingImageKey(t *testing.T) {
	s := NewStore()
	s.SetDefaultImage(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	s.Reset(radiusSchema(t))

	assert.Equal(t, map[string]algorithms.Value{
		"radius": algorithms.ScalarValue(10),
	}, s.ValuesExcludingImageKey())
}

func TestValuesExcludingImageKey_KeepsSecondaryImages(t *testing.T) {
	background := image.NewRGBA(image.Rect(0, 0, 2, 2))
	s := NewStore()
	s.SetDefaultImage(background)
	s.Reset(schemaFor(t, algorithms.Definition{
		Name: "two_images",
		Inputs: []algorithms.Input{
			{Key: algorithms.ImageKey, Kind: algorithms.KindImage},
			{Key: "background_image", Kind: algorithms.KindImage},
		},
	}))

	values := s.ValuesExcludingImageKey()
	assert.Len(t, values, 1)
	assert.Equal(t, algorithms.ImageValue(background), values["background_image"])
}

func TestOverlay_OnlyDeclaredKeysOfMatchingKind(t *testing.T) {
	s := NewStore()
	s.Reset(radiusSchema(t))

	s.Overlay(map[string]algorithms.Value{
		"radius": algorithms.ScalarValue(42),
		"angle":  algorithms.ScalarValue(1),
	})
	radius, _ := s.Get("radius")
	assert.Equal(t, 42.0, radius.Float())
	_, ok := s.Get("angle")
	assert.False(t, ok)

	s.Overlay(map[string]algorithms.Value{"radius": algorithms.StringValue("big")})
	radius, _ = s.Get("radius")
	assert.Equal(t, 42.0, radius.Float())
}

func TestValues_ReturnsCopies(t *testing.T) {
	s := NewStore()
	s.Reset(schemaFor(t, algorithms.Definition{
		Name: "vec",
		Inputs: []algorithms.Input{
			{Key: "center", Kind: algorithms.KindVector, Default: algorithms.VectorValue(1, 2)},
		},
	}))

	values := s.Values()
	delete(values, "center")

	center, ok := s.Get("center")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2}, center.Floats())
}
