package storygraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Keys each level interprets. Anything else is kept in Fields.
var (
	graphKeys     = []string{"epics", "increments"}
	epicKeys      = []string{"name", "users", "sequential_order", "estimated_stories", "features"}
	featureKeys   = []string{"name", "users", "sequential_order", "story_count", "stories"}
	storyKeys     = []string{"name", "users", "sequential_order", "story_type"}
	incrementKeys = []string{"name", "priority", "epics"}
)

// Decode reads a story graph document and fills unset orders.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode story graph: %w", err)
	}
	g.Normalize()
	return &g, nil
}

// Encode writes g as indented JSON without HTML escaping.
func Encode(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode story graph: %w", err)
	}
	return nil
}

// --- Graph ---

type graphJSON struct {
	Epics      []*Epic      `json:"epics"`
	Increments []*Increment `json:"increments,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := graphJSON{Epics: g.Epics, Increments: g.Increments}
	if w.Epics == nil {
		w.Epics = []*Epic{}
	}
	return marshalWithFields(w, g.Fields, graphKeys)
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w graphJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fields, err := splitFields(data, graphKeys)
	if err != nil {
		return err
	}
	*g = Graph{Epics: compact(w.Epics), Increments: compact(w.Increments), Fields: fields}
	return nil
}

// --- Epic ---

type epicJSON struct {
	Name             string     `json:"name"`
	Users            []string   `json:"users"`
	Order            Order      `json:"sequential_order"`
	EstimatedStories *int       `json:"estimated_stories,omitempty"`
	Features         []*Feature `json:"features"`
}

// MarshalJSON implements json.Marshaler.
func (e *Epic) MarshalJSON() ([]byte, error) {
	w := epicJSON{
		Name:             e.Name,
		Users:            nonNil(e.Users),
		Order:            Order{Base: e.Order},
		EstimatedStories: e.EstimatedStories,
		Features:         e.Features,
	}
	if w.Features == nil {
		w.Features = []*Feature{}
	}
	return marshalWithFields(w, e.Fields, epicKeys)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Epic) UnmarshalJSON(data []byte) error {
	var w epicJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fields, err := splitFields(data, epicKeys)
	if err != nil {
		return err
	}
	*e = Epic{
		Name:             w.Name,
		Users:            nonNil(w.Users),
		Order:            w.Order.Base,
		EstimatedStories: w.EstimatedStories,
		Features:         compact(w.Features),
		Fields:           fields,
	}
	return nil
}

// --- Feature ---

type featureJSON struct {
	Name       string   `json:"name"`
	Users      []string `json:"users"`
	Order      Order    `json:"sequential_order"`
	StoryCount *int     `json:"story_count,omitempty"`
	Stories    []*Story `json:"stories"`
}

// MarshalJSON implements json.Marshaler.
func (f *Feature) MarshalJSON() ([]byte, error) {
	w := featureJSON{
		Name:       f.Name,
		Users:      nonNil(f.Users),
		Order:      Order{Base: f.Order},
		StoryCount: f.StoryCount,
		Stories:    f.Stories,
	}
	if w.Stories == nil {
		w.Stories = []*Story{}
	}
	return marshalWithFields(w, f.Fields, featureKeys)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var w featureJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fields, err := splitFields(data, featureKeys)
	if err != nil {
		return err
	}
	*f = Feature{
		Name:       w.Name,
		Users:      nonNil(w.Users),
		Order:      w.Order.Base,
		StoryCount: w.StoryCount,
		Stories:    compact(w.Stories),
		Fields:     fields,
	}
	return nil
}

// --- Story ---

type storyJSON struct {
	Name  string    `json:"name"`
	Users []string  `json:"users"`
	Order Order     `json:"sequential_order"`
	Type  StoryType `json:"story_type,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s *Story) MarshalJSON() ([]byte, error) {
	w := storyJSON{Name: s.Name, Users: nonNil(s.Users), Order: s.Order, Type: s.Type}
	return marshalWithFields(w, s.Fields, storyKeys)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Story) UnmarshalJSON(data []byte) error {
	var w storyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fields, err := splitFields(data, storyKeys)
	if err != nil {
		return err
	}
	*s = Story{Name: w.Name, Users: nonNil(w.Users), Order: w.Order, Type: w.Type, Fields: fields}
	return nil
}

// --- Increment ---

type incrementJSON struct {
	Name     string  `json:"name"`
	Priority int     `json:"priority"`
	Epics    []*Epic `json:"epics"`
}

// MarshalJSON implements json.Marshaler.
func (inc *Increment) MarshalJSON() ([]byte, error) {
	w := incrementJSON{Name: inc.Name, Priority: inc.Priority, Epics: inc.Epics}
	if w.Epics == nil {
		w.Epics = []*Epic{}
	}
	return marshalWithFields(w, inc.Fields, incrementKeys)
}

// UnmarshalJSON implements json.Unmarshaler.
func (inc *Increment) UnmarshalJSON(data []byte) error {
	var w incrementJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fields, err := splitFields(data, incrementKeys)
	if err != nil {
		return err
	}
	*inc = Increment{Name: w.Name, Priority: w.Priority, Epics: compact(w.Epics), Fields: fields}
	return nil
}

// --- Helpers ---

// splitFields returns the members of a JSON object that are not in known.
func splitFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalWithFields encodes v, a struct, and appends passthrough fields in
// key order after the known members.
func marshalWithFields(v any, fields map[string]json.RawMessage, known []string) ([]byte, error) {
	obj, err := marshalRaw(v)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(known))
	for _, k := range known {
		skip[k] = true
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return obj, nil
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(obj[:len(obj)-1])
	empty := bytes.Equal(bytes.TrimSpace(obj), []byte("{}"))
	for i, k := range keys {
		if i > 0 || !empty {
			buf.WriteByte(',')
		}
		name, err := marshalRaw(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		raw := fields[k]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalRaw is json.Marshal without HTML escaping.
func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func nonNil(users []string) []string {
	if users == nil {
		return []string{}
	}
	return users
}

func compact[T any](in []*T) []*T {
	out := in[:0]
	for _, v := range in {
		if v != nil {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
