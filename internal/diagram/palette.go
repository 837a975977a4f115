package diagram

import (
	"fmt"
	"strings"
)

// ShapeKind is the closed set of story-map shapes a cell can represent.
type ShapeKind int

const (
	KindUnknown ShapeKind = iota
	KindEpic
	KindFeature
	KindStory
	KindUser
	KindIncrement
)

// String returns the lowercase name of the kind.
func (k ShapeKind) String() string {
	switch k {
	case KindEpic:
		return "epic"
	case KindFeature:
		return "feature"
	case KindStory:
		return "story"
	case KindUser:
		return "user"
	case KindIncrement:
		return "increment"
	}
	return "unknown"
}

// IsContainer reports whether shapes of this kind are shrink-wrapped around children.
func (k ShapeKind) IsContainer() bool {
	return k == KindEpic || k == KindFeature
}

// Story variants carried by fill color.
const (
	VariantSystem    = "system"
	VariantTechnical = "technical"
)

// incrementStroke marks increment lane headers regardless of their fill.
const incrementStroke = "#f8f7f7"

// swatch is one palette row: the colors that identify a kind (and variant).
type swatch struct {
	kind    ShapeKind
	variant string
	fill    string
	stroke  string
	font    string
	base    string
}

var palette = []swatch{
	{kind: KindEpic, fill: "#e1d5e7", stroke: "#9673a6", font: "#000000", base: "rounded=1;whiteSpace=wrap;html=1;"},
	{kind: KindFeature, fill: "#d5e8d4", stroke: "#82b366", font: "#000000", base: "rounded=1;whiteSpace=wrap;html=1;"},
	{kind: KindStory, fill: "#fff2cc", stroke: "#d6b656", font: "#000000", base: "whiteSpace=wrap;html=1;aspect=fixed;fontSize=8;"},
	{kind: KindStory, variant: VariantSystem, fill: "#1a237e", stroke: "#0d47a1", font: "#ffffff", base: "whiteSpace=wrap;html=1;aspect=fixed;fontSize=8;"},
	{kind: KindStory, variant: VariantTechnical, fill: "#000000", stroke: "#333333", font: "#ffffff", base: "whiteSpace=wrap;html=1;aspect=fixed;fontSize=8;"},
	{kind: KindUser, fill: "#dae8fc", stroke: "#6c8ebf", font: "#000000", base: "whiteSpace=wrap;html=1;aspect=fixed;fontSize=8;"},
	{kind: KindIncrement, fill: "#f5f5f5", stroke: incrementStroke, font: "#333333", base: "rounded=0;whiteSpace=wrap;html=1;fontStyle=1;align=left;spacingLeft=8;"},
}

// Classify resolves a cell style to a shape kind and variant. The increment
// stroke wins over any fill; otherwise the fill color decides.
func Classify(style string) (ShapeKind, string) {
	attrs := ParseStyle(style)
	if strings.EqualFold(attrs["strokecolor"], incrementStroke) {
		return KindIncrement, ""
	}
	fill := strings.ToLower(attrs["fillcolor"])
	if fill == "" {
		return KindUnknown, ""
	}
	for _, sw := range palette {
		if sw.fill == fill {
			return sw.kind, sw.variant
		}
	}
	return KindUnknown, ""
}

// Style returns the style string emitted for kind and variant. Unknown
// variants fall back to the kind's default swatch.
func Style(kind ShapeKind, variant string) string {
	var fallback *swatch
	for i := range palette {
		sw := &palette[i]
		if sw.kind != kind {
			continue
		}
		if sw.variant == variant {
			return sw.style()
		}
		if sw.variant == "" && fallback == nil {
			fallback = sw
		}
	}
	if fallback == nil {
		return ""
	}
	return fallback.style()
}

func (sw swatch) style() string {
	return fmt.Sprintf("%sfillColor=%s;strokeColor=%s;fontColor=%s;", sw.base, sw.fill, sw.stroke, sw.font)
}

// ParseStyle splits a draw.io style string into lowercase keys. Bare tokens
// (e.g. "ellipse") map to the empty string.
func ParseStyle(style string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		attrs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return attrs
}
