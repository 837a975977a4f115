package merge

import (
	"encoding/json"

	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// Merge returns a copy of extracted enriched from original according to r.
// The extracted structure, names and orders win. A matched story keeps any
// passthrough fields the original had and it lacks, and its users become
// the union of both, extracted first. Epics, features and increments pick
// up missing passthrough fields from originals of the same name. When the
// diagram carried no increments the original ones are kept, with stories
// renamed through the matches and removed stories dropped.
func Merge(extracted, original *storygraph.Graph, r *Report) *storygraph.Graph {
	if extracted == nil {
		extracted = &storygraph.Graph{}
	}
	out := extracted.Clone()
	if original == nil || r == nil {
		return out
	}

	// extracted key -> original story, and original key -> extracted record
	forward := make(map[string]*storygraph.Story)
	backward := make(map[string]StoryRecord)
	for _, m := range r.Matches() {
		if s := lookupStory(original, m.Original.EpicName, m.Original.FeatureName, m.Original.Name); s != nil {
			forward[m.Extracted.Key()] = s
		} else {
			forward[m.Extracted.Key()] = recordStory(m.Original)
		}
		backward[m.Original.Key()] = m.Extracted
	}

	mergeFields(&out.Fields, original.Fields)
	enrich(out.Epics, original.Epics, forward)

	if len(out.Increments) > 0 {
		for _, inc := range out.Increments {
			if oi := findIncrement(original, inc.Name); oi != nil {
				mergeFields(&inc.Fields, oi.Fields)
				enrich(inc.Epics, oi.Epics, forward)
			} else {
				enrich(inc.Epics, original.Epics, forward)
			}
		}
		return out
	}

	for _, oi := range original.OrderedIncrements() {
		inc := &storygraph.Increment{Name: oi.Name, Priority: oi.Priority}
		mergeFields(&inc.Fields, oi.Fields)
		for _, e := range oi.Epics {
			for _, f := range e.Features {
				for _, s := range f.Stories {
					rec, ok := backward[storygraph.StoryKey(e.Name, f.Name, s.Name)]
					if !ok {
						continue
					}
					inc.MirrorStory(out, rec.EpicName, rec.FeatureName, rec.Name)
				}
			}
		}
		out.Increments = append(out.Increments, inc)
	}
	return out
}

func enrich(epics, origEpics []*storygraph.Epic, forward map[string]*storygraph.Story) {
	for _, e := range epics {
		oe := findEpic(origEpics, e.Name)
		if oe != nil {
			mergeFields(&e.Fields, oe.Fields)
		}
		for _, f := range e.Features {
			if oe != nil {
				if of := oe.Feature(f.Name); of != nil {
					mergeFields(&f.Fields, of.Fields)
				}
			}
			for _, s := range f.Stories {
				if src, ok := forward[storygraph.StoryKey(e.Name, f.Name, s.Name)]; ok {
					mergeStory(s, src)
				}
			}
		}
	}
}

func mergeStory(s, orig *storygraph.Story) {
	mergeFields(&s.Fields, orig.Fields)
	s.Users = storygraph.DedupeUsers(append(s.Users, orig.Users...))
	if s.Type == "" && orig.Type == storygraph.StoryTypeUser {
		s.Type = orig.Type
	}
}

func mergeFields(dst *map[string]json.RawMessage, src map[string]json.RawMessage) {
	for k, v := range src {
		if _, ok := (*dst)[k]; ok {
			continue
		}
		if *dst == nil {
			*dst = make(map[string]json.RawMessage, len(src))
		}
		(*dst)[k] = append(json.RawMessage(nil), v...)
	}
}

func findEpic(epics []*storygraph.Epic, name string) *storygraph.Epic {
	for _, e := range epics {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func findIncrement(g *storygraph.Graph, name string) *storygraph.Increment {
	for _, inc := range g.Increments {
		if inc.Name == name {
			return inc
		}
	}
	return nil
}

func lookupStory(g *storygraph.Graph, epic, feature, story string) *storygraph.Story {
	e := g.Epic(epic)
	if e == nil {
		return nil
	}
	f := e.Feature(feature)
	if f == nil {
		return nil
	}
	return f.Story(story)
}

func recordStory(r StoryRecord) *storygraph.Story {
	return &storygraph.Story{Name: r.Name, Users: r.Users, Order: r.SequentialOrder, Type: r.StoryType, Fields: r.Fields}
}
