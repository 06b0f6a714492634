package algorithms

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// Kind is the value type an input key accepts.
type Kind int

const (
	KindInvalid Kind = iota
	KindScalar
	KindVector
	KindColor
	KindImage
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindVector:
		return "vector"
	case KindColor:
		return "color"
	case KindImage:
		return "image"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is a tagged variant holding one filter parameter. The zero Value is
// invalid and means "unbound".
type Value struct {
	kind   Kind
	scalar float64
	vector []float64
	color  color.RGBA
	image  image.Image
	text   string
}

func ScalarValue(v float64) Value {
	return Value{kind: KindScalar, scalar: v}
}

func VectorValue(components ...float64) Value {
	vec := make([]float64, len(components))
	copy(vec, components)
	return Value{kind: KindVector, vector: vec}
}

func ColorValue(c color.RGBA) Value {
	return Value{kind: KindColor, color: c}
}

// ImageValue wraps an image. A nil image yields the unbound Value.
func ImageValue(img image.Image) Value {
	if img == nil {
		return Value{}
	}
	return Value{kind: KindImage, image: img}
}

func StringValue(s string) Value {
	return Value{kind: KindString, text: s}
}

func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether the value is unbound.
func (v Value) IsZero() bool { return v.kind == KindInvalid }

func (v Value) Float() float64 { return v.scalar }

// Floats returns a copy of the vector components.
func (v Value) Floats() []float64 {
	out := make([]float64, len(v.vector))
	copy(out, v.vector)
	return out
}

func (v Value) RGBA() color.RGBA { return v.color }

func (v Value) Image() image.Image { return v.image }

func (v Value) Text() string { return v.text }

// Clone returns a copy that shares no mutable state with v. Images are
// treated as immutable and shared.
func (v Value) Clone() Value {
	if v.kind == KindVector {
		return VectorValue(v.vector...)
	}
	return v
}

func (v Value) String() string {
	switch v.kind {
	case KindScalar:
		return formatFloat(v.scalar)
	case KindVector:
		parts := make([]string, len(v.vector))
		for i, c := range v.vector {
			parts[i] = formatFloat(c)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindColor:
		return fmt.Sprintf("#%02x%02x%02x%02x", v.color.R, v.color.G, v.color.B, v.color.A)
	case KindImage:
		size := v.image.Bounds().Size()
		return fmt.Sprintf("<image %dx%d>", size.X, size.Y)
	case KindString:
		return strconv.Quote(v.text)
	default:
		return "<unbound>"
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// ParseColor reads "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(s) == 6 {
		s += "ff"
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// ParseVector reads whitespace or comma separated components.
func ParseVector(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '[' || r == ']'
	})
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		c, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", f, err)
		}
		out = append(out, c)
	}
	return out, nil
}
