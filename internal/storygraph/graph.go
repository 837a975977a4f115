// Package storygraph is the story map domain model: epics, features and
// stories with their users, ordering and release increments.
package storygraph

import (
	"encoding/json"
	"sort"
)

// StoryType distinguishes who a story serves. The zero value means "user".
type StoryType string

const (
	StoryTypeUser      StoryType = "user"
	StoryTypeSystem    StoryType = "system"
	StoryTypeTechnical StoryType = "technical"
)

// String returns the string representation of the story type.
func (t StoryType) String() string {
	if t == "" {
		return string(StoryTypeUser)
	}
	return string(t)
}

// IsValid checks whether the story type is a known value.
func (t StoryType) IsValid() bool {
	switch t {
	case "", StoryTypeUser, StoryTypeSystem, StoryTypeTechnical:
		return true
	}
	return false
}

// Graph is a whole story map.
type Graph struct {
	Epics      []*Epic
	Increments []*Increment

	// Fields holds top-level keys this package does not interpret.
	Fields map[string]json.RawMessage
}

// Epic is the top level of the hierarchy.
type Epic struct {
	Name             string
	Users            []string
	Order            int
	EstimatedStories *int
	Features         []*Feature
	Fields           map[string]json.RawMessage
}

// Feature groups stories inside an epic. StoryCount, when set, is an estimate
// and may exceed the enumerated stories.
type Feature struct {
	Name       string
	Users      []string
	Order      int
	StoryCount *int
	Stories    []*Story
	Fields     map[string]json.RawMessage
}

// Story is a leaf. Fields carries data the diagram cannot show, such as
// acceptance-criteria steps.
type Story struct {
	Name   string
	Users  []string
	Order  Order
	Type   StoryType
	Fields map[string]json.RawMessage
}

// Increment is a prioritized release slice mirroring the epic hierarchy.
type Increment struct {
	Name     string
	Priority int
	Epics    []*Epic
	Fields   map[string]json.RawMessage
}

// --- Lookup ---

// Epic returns the epic with the given name, or nil.
func (g *Graph) Epic(name string) *Epic {
	for _, e := range g.Epics {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Feature returns the feature with the given name, or nil.
func (e *Epic) Feature(name string) *Feature {
	for _, f := range e.Features {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Story returns the story with the given name, or nil.
func (f *Feature) Story(name string) *Story {
	for _, s := range f.Stories {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// StoryCount returns the number of enumerated stories under the epic.
func (e *Epic) StoryCount() int {
	n := 0
	for _, f := range e.Features {
		n += len(f.Stories)
	}
	return n
}

// HasUser reports whether name is among the story's users.
func (s *Story) HasUser(name string) bool {
	for _, u := range s.Users {
		if u == name {
			return true
		}
	}
	return false
}

// --- Ordering ---

// OrderedEpics returns the epics sorted by sequential order; ties keep list order.
func (g *Graph) OrderedEpics() []*Epic {
	out := append([]*Epic(nil), g.Epics...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OrderedFeatures returns the features sorted by sequential order.
func (e *Epic) OrderedFeatures() []*Feature {
	out := append([]*Feature(nil), e.Features...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// OrderedStories returns the stories sorted by sequential order.
func (f *Feature) OrderedStories() []*Story {
	out := append([]*Story(nil), f.Stories...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order.Less(out[j].Order) })
	return out
}

// OrderedIncrements returns increments by ascending priority, then name.
func (g *Graph) OrderedIncrements() []*Increment {
	out := append([]*Increment(nil), g.Increments...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// WalkStories calls fn for every story in epic, feature, story order.
func (g *Graph) WalkStories(fn func(e *Epic, f *Feature, s *Story)) {
	for _, e := range g.OrderedEpics() {
		for _, f := range e.OrderedFeatures() {
			for _, s := range f.OrderedStories() {
				fn(e, f, s)
			}
		}
	}
}

// Normalize fills unset sequential orders from list position, after any
// explicitly ordered siblings.
func (g *Graph) Normalize() {
	normalizeEpics(g.Epics)
	for _, inc := range g.Increments {
		normalizeEpics(inc.Epics)
	}
}

func normalizeEpics(epics []*Epic) {
	next := 0
	for _, e := range epics {
		next = max(next, e.Order)
	}
	for _, e := range epics {
		if e.Order == 0 {
			next++
			e.Order = next
		}
		normalizeFeatures(e.Features)
	}
}

func normalizeFeatures(features []*Feature) {
	next := 0
	for _, f := range features {
		next = max(next, f.Order)
	}
	for _, f := range features {
		if f.Order == 0 {
			next++
			f.Order = next
		}
		next := 0
		for _, s := range f.Stories {
			next = max(next, s.Order.Base)
		}
		for _, s := range f.Stories {
			if s.Order.IsZero() {
				next++
				s.Order = Order{Base: next}
			}
		}
	}
}

// --- Copying ---

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{Fields: cloneFields(g.Fields)}
	for _, e := range g.Epics {
		out.Epics = append(out.Epics, e.Clone())
	}
	for _, inc := range g.Increments {
		c := &Increment{Name: inc.Name, Priority: inc.Priority, Fields: cloneFields(inc.Fields)}
		for _, e := range inc.Epics {
			c.Epics = append(c.Epics, e.Clone())
		}
		out.Increments = append(out.Increments, c)
	}
	return out
}

// Clone returns a deep copy of the epic.
func (e *Epic) Clone() *Epic {
	out := &Epic{
		Name:             e.Name,
		Users:            cloneStrings(e.Users),
		Order:            e.Order,
		EstimatedStories: cloneInt(e.EstimatedStories),
		Fields:           cloneFields(e.Fields),
	}
	for _, f := range e.Features {
		out.Features = append(out.Features, f.Clone())
	}
	return out
}

// Clone returns a deep copy of the feature.
func (f *Feature) Clone() *Feature {
	out := &Feature{
		Name:       f.Name,
		Users:      cloneStrings(f.Users),
		Order:      f.Order,
		StoryCount: cloneInt(f.StoryCount),
		Fields:     cloneFields(f.Fields),
	}
	for _, s := range f.Stories {
		out.Stories = append(out.Stories, s.Clone())
	}
	return out
}

// Clone returns a deep copy of the story.
func (s *Story) Clone() *Story {
	return &Story{
		Name:   s.Name,
		Users:  cloneStrings(s.Users),
		Order:  s.Order,
		Type:   s.Type,
		Fields: cloneFields(s.Fields),
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFields(in map[string]json.RawMessage) map[string]json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// DedupeUsers returns users with repeats removed, keeping first occurrences.
func DedupeUsers(users []string) []string {
	seen := make(map[string]bool, len(users))
	out := make([]string, 0, len(users))
	for _, u := range users {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// MirrorStory copies a story of g into inc under the same epic and feature,
// creating the epic and feature copies on first use. It reports false when g
// has no such story.
func (inc *Increment) MirrorStory(g *Graph, epic, feature, story string) bool {
	srcEpic := g.Epic(epic)
	if srcEpic == nil {
		return false
	}
	srcFeature := srcEpic.Feature(feature)
	if srcFeature == nil {
		return false
	}
	srcStory := srcFeature.Story(story)
	if srcStory == nil {
		return false
	}

	e := inc.Epic(epic)
	if e == nil {
		e = &Epic{Name: srcEpic.Name, Users: cloneStrings(srcEpic.Users), Order: srcEpic.Order}
		inc.Epics = append(inc.Epics, e)
	}
	f := e.Feature(feature)
	if f == nil {
		f = &Feature{Name: srcFeature.Name, Users: cloneStrings(srcFeature.Users), Order: srcFeature.Order}
		e.Features = append(e.Features, f)
	}
	if f.Story(story) == nil {
		f.Stories = append(f.Stories, srcStory.Clone())
	}
	return true
}
