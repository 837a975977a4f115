package merge

import "github.com/alfredjeanlab/storymap/internal/storygraph"

// MissingEpic is an original epic absent from the extracted graph.
type MissingEpic struct {
	Name         string `json:"name"`
	StoryCount   int    `json:"story_count"`
	FeatureCount int    `json:"feature_count"`
}

// MissingFeature is an original feature absent from an epic that survived.
type MissingFeature struct {
	Epic       string `json:"epic"`
	Name       string `json:"name"`
	StoryCount int    `json:"story_count"`
}

// StoryLoss is a surviving container that lost a large share of its stories.
type StoryLoss struct {
	Epic           string  `json:"epic,omitempty"`
	Name           string  `json:"name"`
	OriginalCount  int     `json:"original_count"`
	ExtractedCount int     `json:"extracted_count"`
	MissingCount   int     `json:"missing_count"`
	MissingRatio   float64 `json:"missing_ratio"`
}

// Deletions lists structural losses between an original graph and an
// extracted one.
type Deletions struct {
	MissingEpics                   []MissingEpic    `json:"missing_epics"`
	MissingFeatures                []MissingFeature `json:"missing_features"`
	EpicsWithManyMissingStories    []StoryLoss      `json:"epics_with_many_missing_stories"`
	FeaturesWithManyMissingStories []StoryLoss      `json:"features_with_many_missing_stories"`
}

// Empty reports whether nothing was flagged. A nil Deletions is empty.
func (d *Deletions) Empty() bool {
	return d.Count() == 0
}

// Count is the number of flagged containers.
func (d *Deletions) Count() int {
	if d == nil {
		return 0
	}
	return len(d.MissingEpics) + len(d.MissingFeatures) +
		len(d.EpicsWithManyMissingStories) + len(d.FeaturesWithManyMissingStories)
}

// DetectLargeDeletions compares original and extracted with the default
// deletion ratio.
func DetectLargeDeletions(original, extracted *storygraph.Graph) *Deletions {
	return NewMatcher().DetectLargeDeletions(original, extracted)
}

// DetectLargeDeletions flags original epics and features that are gone from
// extracted, and surviving ones whose missing share of stories exceeds the
// matcher's DeletionRatio.
func (m *Matcher) DetectLargeDeletions(original, extracted *storygraph.Graph) *Deletions {
	ratio := m.DeletionRatio
	if ratio <= 0 {
		ratio = DefaultDeletionRatio
	}
	d := &Deletions{
		MissingEpics:                   make([]MissingEpic, 0),
		MissingFeatures:                make([]MissingFeature, 0),
		EpicsWithManyMissingStories:    make([]StoryLoss, 0),
		FeaturesWithManyMissingStories: make([]StoryLoss, 0),
	}
	if original == nil {
		return d
	}
	if extracted == nil {
		extracted = &storygraph.Graph{}
	}

	for _, oe := range original.OrderedEpics() {
		ee := extracted.Epic(oe.Name)
		if ee == nil {
			d.MissingEpics = append(d.MissingEpics, MissingEpic{
				Name: oe.Name, StoryCount: oe.StoryCount(), FeatureCount: len(oe.Features),
			})
			continue
		}
		if loss, ok := storyLoss("", oe.Name, oe.StoryCount(), ee.StoryCount(), ratio); ok {
			d.EpicsWithManyMissingStories = append(d.EpicsWithManyMissingStories, loss)
		}

		for _, of := range oe.OrderedFeatures() {
			ef := ee.Feature(of.Name)
			if ef == nil {
				d.MissingFeatures = append(d.MissingFeatures, MissingFeature{
					Epic: oe.Name, Name: of.Name, StoryCount: len(of.Stories),
				})
				continue
			}
			if loss, ok := storyLoss(oe.Name, of.Name, len(of.Stories), len(ef.Stories), ratio); ok {
				d.FeaturesWithManyMissingStories = append(d.FeaturesWithManyMissingStories, loss)
			}
		}
	}
	return d
}

func storyLoss(epic, name string, orig, ext int, ratio float64) (StoryLoss, bool) {
	if orig == 0 || ext >= orig {
		return StoryLoss{}, false
	}
	missing := orig - ext
	r := float64(missing) / float64(orig)
	if r <= ratio {
		return StoryLoss{}, false
	}
	return StoryLoss{
		Epic: epic, Name: name,
		OriginalCount: orig, ExtractedCount: ext,
		MissingCount: missing, MissingRatio: r,
	}, true
}
