package chain

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-filter-chain/internal/algorithms"
)

func radius(r float64) map[string]algorithms.Value {
	return map[string]algorithms.Value{"radius": algorithms.ScalarValue(r)}
}

func names(c *Chain) []string {
	var out []string
	for _, step := range c.Steps() {
		out = append(out, step.Name)
	}
	return out
}

func TestSelect_SameNameNeverGrows(t *testing.T) {
	for _, prefix := range [][]string{nil, {"invert"}, {"invert", "scale"}} {
		c := New()
		for _, name := range prefix {
			c.Select(name, nil)
		}

		c.Select("gaussian_blur", radius(10))
		n := c.Len()

		_, appended := c.Select("gaussian_blur", radius(99))
		assert.False(t, appended)
		assert.Equal(t, n, c.Len())

		last, ok := c.Last()
		require.True(t, ok)
		assert.Equal(t, 10.0, last.Values["radius"].Float(), "continuing a step keeps its values")
	}
}

func TestSelect_DifferentNameGrowsByOne(t *testing.T) {
	c := New()

	_, appended := c.Select("invert", nil)
	assert.True(t, appended)
	assert.Equal(t, 1, c.Len())

	_, appended = c.Select("scale", nil)
	assert.True(t, appended)
	assert.Equal(t, 2, c.Len())

	_, appended = c.Select("invert", nil)
	assert.True(t, appended)
	assert.Equal(t, []string{"invert", "scale", "invert"}, names(c))
}

func TestRemoveLast_RemovesMostRecent(t *testing.T) {
	c := New()
	c.Select("invert", nil)
	c.Select("scale", nil)
	c.Select("crop", nil)

	require.True(t, c.RemoveLast())
	assert.Equal(t, []string{"invert", "scale"}, names(c))

	require.True(t, c.RemoveLast())
	require.True(t, c.RemoveLast())
	assert.Equal(t, 0, c.Len())
}

func TestRemoveLast_EmptyIsIdempotent(t *testing.T) {
	c := New()

	assert.False(t, c.RemoveLast())
	assert.False(t, c.RemoveLast())
	assert.Equal(t, 0, c.Len())

	_, ok := c.Last()
	assert.False(t, ok)
}

func TestReplaceLastValues(t *testing.T) {
	c := New()
	assert.False(t, c.ReplaceLastValues(radius(1)))

	c.Select("gaussian_blur", radius(10))
	values := radius(20)
	values[algorithms.ImageKey] = algorithms.ImageValue(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.True(t, c.ReplaceLastValues(values))

	last, _ := c.Last()
	assert.Equal(t, 20.0, last.Values["radius"].Float())
	assert.NotContains(t, last.Values, algorithms.ImageKey)
}

func TestNewStep_DropsPrimaryImageKey(t *testing.T) {
	step := NewStep("blend", map[string]algorithms.Value{
		algorithms.ImageKey: algorithms.ImageValue(image.NewRGBA(image.Rect(0, 0, 1, 1))),
		"mix":               algorithms.ScalarValue(0.5),
	})

	assert.NotEmpty(t, step.ID)
	assert.Equal(t, []string{"mix"}, keys(step.Values))
}

func keys(values map[string]algorithms.Value) []string {
	var out []string
	for key := range values {
		out = append(out, key)
	}
	return out
}

func TestSteps_SnapshotIsDetached(t *testing.T) {
	c := New()
	c.Select("gaussian_blur", radius(10))

	snapshot := c.Steps()
	snapshot[0].Values["radius"] = algorithms.ScalarValue(50)
	snapshot[0].Name = "changed"

	last, _ := c.Last()
	assert.Equal(t, "gaussian_blur", last.Name)
	assert.Equal(t, 10.0, last.Values["radius"].Float())
}

func TestDescribe(t *testing.T) {
	c := New()
	assert.Empty(t, c.Describe())

	c.Select("gaussian_blur", radius(10))
	c.Select("exposure", map[string]algorithms.Value{
		"contrast":   algorithms.ScalarValue(1.5),
		"brightness": algorithms.ScalarValue(-10),
	})
	c.Select("invert", nil)

	want := []string{
		"gaussian_blur(radius: 10)",
		"exposure(brightness: -10, contrast: 1.5)",
		"invert()",
	}
	assert.Equal(t, want, c.Describe())
	assert.Equal(t, want, c.Describe(), "describe has no side effects")
}
