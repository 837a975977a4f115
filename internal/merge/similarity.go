package merge

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Ratio returns the similarity of two names in [0, 1], compared without
// regard to case: twice the number of matching characters over the total
// length of both, with matches taken from a character diff.
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	if a == b {
		return 1
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	matched := 0
	for _, d := range dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(matched) / float64(total)
}

// quickRatio is an upper bound on Ratio that only looks at the lengths of
// the lower-cased names.
func quickRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(strings.ToLower(a)), utf8.RuneCountInString(strings.ToLower(b))
	if la+lb == 0 {
		return 1
	}
	return 2 * float64(min(la, lb)) / float64(la+lb)
}

// userOverlap is the Jaccard index of two user sets. Two empty sets share
// nothing.
func userOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, u := range a {
		set[u] = true
	}
	union := len(set)
	shared := 0
	seen := make(map[string]bool, len(b))
	for _, u := range b {
		if seen[u] {
			continue
		}
		seen[u] = true
		if set[u] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}

// Context bonuses added to the name ratio.
const (
	SameEpicBonus    = 0.1
	SameFeatureBonus = 0.1
	UserBonus        = 0.1
)

// score is the match confidence of an extracted story against an original
// candidate, capped at 1.
func score(ext, orig *StoryRecord) float64 {
	return min(1, Ratio(ext.Name, orig.Name)+bonus(ext, orig))
}

func bonus(ext, orig *StoryRecord) float64 {
	var b float64
	if ext.EpicName == orig.EpicName {
		b += SameEpicBonus
	}
	if ext.FeatureName == orig.FeatureName {
		b += SameFeatureBonus
	}
	return b + UserBonus*userOverlap(ext.Users, orig.Users)
}
