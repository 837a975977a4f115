package merge

import (
	"strings"
	"time"

	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// Defaults for a Matcher.
const (
	DefaultFuzzyThreshold = 0.7
	DefaultDeletionRatio  = 0.5
)

// Matcher pairs the stories of an extracted graph with those of the
// original graph.
type Matcher struct {
	// Threshold is the lowest confidence accepted as a fuzzy match.
	Threshold float64
	// DeletionRatio is the share of missing stories above which a
	// container is flagged as a large deletion.
	DeletionRatio float64
	// Now stamps reports. Defaults to time.Now.
	Now func() time.Time
}

// NewMatcher returns a Matcher with the default thresholds.
func NewMatcher() *Matcher {
	return &Matcher{Threshold: DefaultFuzzyThreshold, DeletionRatio: DefaultDeletionRatio}
}

func (m *Matcher) threshold() float64 {
	if m.Threshold <= 0 {
		return DefaultFuzzyThreshold
	}
	return m.Threshold
}

func (m *Matcher) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// Compare builds a merge report. Exact name matches (ignoring case) are
// paired first, each with the first unclaimed original of that name. The
// remaining extracted stories then take their best-scoring unclaimed
// original when its score reaches the threshold, and are new otherwise.
// Originals left unclaimed are reported as removed.
func (m *Matcher) Compare(extracted, original *storygraph.Graph) *Report {
	ext, orig := Flatten(extracted), Flatten(original)
	r := newReport()
	r.Timestamp = m.now()
	r.Summary.TotalExtractedStories = len(ext)
	r.Summary.TotalOriginalStories = len(orig)

	claimed := make([]bool, len(orig))
	byName := make(map[string][]int, len(orig))
	for i := range orig {
		k := strings.ToLower(orig[i].Name)
		byName[k] = append(byName[k], i)
	}

	pending := make([]int, 0, len(ext))
	for i := range ext {
		j := firstUnclaimed(byName[strings.ToLower(ext[i].Name)], claimed)
		if j < 0 {
			pending = append(pending, i)
			continue
		}
		claimed[j] = true
		r.ExactMatches = append(r.ExactMatches, Match{
			Extracted: ext[i], Original: orig[j], MatchType: MatchExact, Confidence: 1,
		})
	}

	threshold := m.threshold()
	for _, i := range pending {
		j, conf := bestCandidate(&ext[i], orig, claimed, threshold)
		if j < 0 {
			r.NewStories = append(r.NewStories, ext[i])
			continue
		}
		claimed[j] = true
		r.FuzzyMatches = append(r.FuzzyMatches, Match{
			Extracted: ext[i], Original: orig[j], MatchType: MatchFuzzy, Confidence: conf,
		})
	}

	for j := range orig {
		if !claimed[j] {
			r.RemovedStories = append(r.RemovedStories, orig[j])
		}
	}
	r.summarize()

	if d := m.DetectLargeDeletions(original, extracted); !d.Empty() {
		r.LargeDeletions = d
	}
	return r
}

func firstUnclaimed(idx []int, claimed []bool) int {
	for _, j := range idx {
		if !claimed[j] {
			return j
		}
	}
	return -1
}

// bestCandidate scores the unclaimed originals against rec, visiting the
// same feature first, then the same epic, then the rest, and skipping any
// candidate whose upper bound cannot beat the best so far. Ties go to the
// candidate visited first.
func bestCandidate(rec *StoryRecord, orig []StoryRecord, claimed []bool, threshold float64) (int, float64) {
	var sameFeature, sameEpic, rest []int
	for j := range orig {
		if claimed[j] {
			continue
		}
		switch {
		case orig[j].EpicName == rec.EpicName && orig[j].FeatureName == rec.FeatureName:
			sameFeature = append(sameFeature, j)
		case orig[j].EpicName == rec.EpicName:
			sameEpic = append(sameEpic, j)
		default:
			rest = append(rest, j)
		}
	}

	best, bestScore := -1, 0.0
	for _, bucket := range [][]int{sameFeature, sameEpic, rest} {
		for _, j := range bucket {
			cand := &orig[j]
			bound := min(1, quickRatio(rec.Name, cand.Name)+bonus(rec, cand))
			if bound < threshold || (best >= 0 && bound <= bestScore) {
				continue
			}
			s := score(rec, cand)
			if s < threshold {
				continue
			}
			if best < 0 || s > bestScore {
				best, bestScore = j, s
			}
		}
	}
	return best, bestScore
}
