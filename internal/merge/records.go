package merge

import (
	"encoding/json"

	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// StoryRecord is a story flattened out of its hierarchy, as compared and as
// written into merge reports.
type StoryRecord struct {
	Name            string                     `json:"name"`
	Users           []string                   `json:"users"`
	EpicName        string                     `json:"epic_name"`
	FeatureName     string                     `json:"feature_name"`
	SequentialOrder storygraph.Order           `json:"sequential_order"`
	StoryType       storygraph.StoryType       `json:"story_type,omitempty"`
	Fields          map[string]json.RawMessage `json:"fields,omitempty"`
}

// Key identifies the record's story in a graph.
func (r *StoryRecord) Key() string {
	return storygraph.StoryKey(r.EpicName, r.FeatureName, r.Name)
}

// HasField reports whether the story carries the passthrough key.
func (r *StoryRecord) HasField(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

// Flatten lists the stories of g's main hierarchy in story order.
func Flatten(g *storygraph.Graph) []StoryRecord {
	out := make([]StoryRecord, 0)
	if g == nil {
		return out
	}
	g.WalkStories(func(e *storygraph.Epic, f *storygraph.Feature, s *storygraph.Story) {
		c := s.Clone()
		out = append(out, StoryRecord{
			Name:            c.Name,
			Users:           storygraph.DedupeUsers(c.Users),
			EpicName:        e.Name,
			FeatureName:     f.Name,
			SequentialOrder: c.Order,
			StoryType:       c.Type,
			Fields:          c.Fields,
		})
	})
	return out
}
