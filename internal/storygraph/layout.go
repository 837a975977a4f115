package storygraph

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Position is a saved shape position. Width and Height are set for epic and
// feature entries only.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// Layout maps "Epic", "Epic|Feature" and "Epic|Feature|Story" keys to the
// positions recorded by the last extraction.
type Layout map[string]Position

// EpicKey returns the layout key for an epic.
func EpicKey(epic string) string { return epic }

// FeatureKey returns the layout key for a feature.
func FeatureKey(epic, feature string) string { return epic + "|" + feature }

// StoryKey returns the layout key for a story.
func StoryKey(epic, feature, story string) string {
	return epic + "|" + feature + "|" + story
}

// Lookup returns the position for key when l is non-nil and has it.
func (l Layout) Lookup(key string) (Position, bool) {
	if l == nil {
		return Position{}, false
	}
	p, ok := l[key]
	return p, ok
}

// LayoutPath returns the sidecar path for a story graph file:
// "maps/shop.json" becomes "maps/shop-layout.json".
func LayoutPath(graphPath string) string {
	return SidecarPath(graphPath, "layout")
}

// SidecarPath returns "<dir>/<stem>-<suffix>.json" for graphPath.
func SidecarPath(graphPath, suffix string) string {
	dir, base := filepath.Split(graphPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"-"+suffix+".json")
}

// DecodeLayout reads a layout sidecar.
func DecodeLayout(r io.Reader) (Layout, error) {
	l := Layout{}
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return l, nil
}

// EncodeLayout writes l as indented JSON with keys in sorted order.
func EncodeLayout(w io.Writer, l Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if l == nil {
		l = Layout{}
	}
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return nil
}
