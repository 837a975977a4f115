package diagram

import (
	"fmt"
	"regexp"
	"strconv"
)

// StructuredID is the hierarchy position encoded in a rendered cell id.
// Unused levels are zero.
type StructuredID struct {
	Epic, Feature, Story int
}

var (
	reEpicID    = regexp.MustCompile(`^epic(\d+)$`)
	reFeatureID = regexp.MustCompile(`^e(\d+)f(\d+)$`)
	reStoryID   = regexp.MustCompile(`^e(\d+)f(\d+)s(\d+)$`)
)

// EpicID formats the id of the n-th epic (1-based).
func EpicID(e int) string { return fmt.Sprintf("epic%d", e) }

// FeatureID formats the id of feature f in epic e.
func FeatureID(e, f int) string { return fmt.Sprintf("e%df%d", e, f) }

// StoryID formats the id of story s in feature f of epic e.
func StoryID(e, f, s int) string { return fmt.Sprintf("e%df%ds%d", e, f, s) }

// ParseID decodes a structured id. ok is false for ids that follow none of
// the epic, feature or story forms.
func ParseID(id string) (sid StructuredID, kind ShapeKind, ok bool) {
	if m := reStoryID.FindStringSubmatch(id); m != nil {
		return StructuredID{Epic: atoi(m[1]), Feature: atoi(m[2]), Story: atoi(m[3])}, KindStory, true
	}
	if m := reFeatureID.FindStringSubmatch(id); m != nil {
		return StructuredID{Epic: atoi(m[1]), Feature: atoi(m[2])}, KindFeature, true
	}
	if m := reEpicID.FindStringSubmatch(id); m != nil {
		return StructuredID{Epic: atoi(m[1])}, KindEpic, true
	}
	return StructuredID{}, KindUnknown, false
}

// EpicCellID returns the id of the epic this id belongs to.
func (s StructuredID) EpicCellID() string { return EpicID(s.Epic) }

// FeatureCellID returns the id of the feature this id belongs to.
func (s StructuredID) FeatureCellID() string { return FeatureID(s.Epic, s.Feature) }

// Number returns the innermost index, used to break position ties.
func (s StructuredID) Number() int {
	switch {
	case s.Story > 0:
		return s.Story
	case s.Feature > 0:
		return s.Feature
	}
	return s.Epic
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
