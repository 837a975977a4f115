package storygraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Sentinel errors wrapped by EditError.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidName     = errors.New("invalid name")
)

// EditError describes a failed structural edit.
type EditError struct {
	Op   string // "create", "update", "remove", "reorder", "add user", "remove user"
	Kind string // "epic", "feature", "story", "user"
	Name string
	Err  error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s: %s %q: %v", e.Op, e.Kind, e.Name, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

func editErr(op, kind, name string, err error) error {
	return &EditError{Op: op, Kind: kind, Name: name, Err: err}
}

// EpicPatch lists epic changes; nil fields are left alone.
type EpicPatch struct {
	Name             *string
	Users            []string
	EstimatedStories *int
	ClearEstimate    bool
}

// FeaturePatch lists feature changes; nil fields are left alone.
type FeaturePatch struct {
	Name            *string
	Users           []string
	StoryCount      *int
	ClearStoryCount bool
}

// StoryPatch lists story changes; nil fields are left alone.
type StoryPatch struct {
	Name  *string
	Users []string
	Type  *StoryType
}

func checkNewName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "|") {
		return ErrInvalidName
	}
	return nil
}

// --- Epics ---

// CreateEpic appends an epic after the existing ones.
func (g *Graph) CreateEpic(name string, users []string) (*Epic, error) {
	if err := checkNewName(name); err != nil {
		return nil, editErr("create", "epic", name, err)
	}
	if g.Epic(name) != nil {
		return nil, editErr("create", "epic", name, ErrDuplicate)
	}
	e := &Epic{Name: name, Users: DedupeUsers(users), Order: nextEpicOrder(g.Epics)}
	g.Epics = append(g.Epics, e)
	return e, nil
}

// UpdateEpic applies p to the named epic and to its increment copies.
func (g *Graph) UpdateEpic(name string, p EpicPatch) error {
	e := g.Epic(name)
	if e == nil {
		return editErr("update", "epic", name, ErrNotFound)
	}
	if p.Name != nil && *p.Name != name {
		if err := checkNewName(*p.Name); err != nil {
			return editErr("update", "epic", *p.Name, err)
		}
		if g.Epic(*p.Name) != nil {
			return editErr("update", "epic", *p.Name, ErrDuplicate)
		}
	}
	if p.EstimatedStories != nil && *p.EstimatedStories < 0 {
		return editErr("update", "epic", name, fmt.Errorf("%w: negative estimate", ErrInvalidPosition))
	}
	apply := func(e *Epic) {
		if p.Name != nil {
			e.Name = *p.Name
		}
		if p.Users != nil {
			e.Users = DedupeUsers(p.Users)
		}
		if p.ClearEstimate {
			e.EstimatedStories = nil
		} else if p.EstimatedStories != nil {
			e.EstimatedStories = cloneInt(p.EstimatedStories)
		}
	}
	apply(e)
	for _, inc := range g.Increments {
		if ie := inc.Epic(name); ie != nil {
			apply(ie)
		}
	}
	return nil
}

// RemoveEpic deletes the named epic everywhere, including increments.
func (g *Graph) RemoveEpic(name string) error {
	i := slices.IndexFunc(g.Epics, func(e *Epic) bool { return e.Name == name })
	if i < 0 {
		return editErr("remove", "epic", name, ErrNotFound)
	}
	g.Epics = slices.Delete(g.Epics, i, i+1)
	for _, inc := range g.Increments {
		inc.Epics = slices.DeleteFunc(inc.Epics, func(e *Epic) bool { return e.Name == name })
	}
	return nil
}

// ReorderEpic moves the named epic to the 1-based position and renumbers
// every epic's order to 1..n.
func (g *Graph) ReorderEpic(name string, position int) error {
	ordered := g.OrderedEpics()
	from := slices.IndexFunc(ordered, func(e *Epic) bool { return e.Name == name })
	if from < 0 {
		return editErr("reorder", "epic", name, ErrNotFound)
	}
	if position < 1 || position > len(ordered) {
		return editErr("reorder", "epic", name, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPosition, position, len(ordered)))
	}
	ordered = move(ordered, from, position-1)
	orders := make(map[string]int, len(ordered))
	for i, e := range ordered {
		e.Order = i + 1
		orders[e.Name] = e.Order
	}
	for _, inc := range g.Increments {
		for _, e := range inc.Epics {
			if o, ok := orders[e.Name]; ok {
				e.Order = o
			}
		}
	}
	return nil
}

// --- Features ---

// CreateFeature appends a feature to the named epic.
func (g *Graph) CreateFeature(epic, name string, users []string, storyCount *int) (*Feature, error) {
	e := g.Epic(epic)
	if e == nil {
		return nil, editErr("create", "epic", epic, ErrNotFound)
	}
	if err := checkNewName(name); err != nil {
		return nil, editErr("create", "feature", name, err)
	}
	if e.Feature(name) != nil {
		return nil, editErr("create", "feature", name, ErrDuplicate)
	}
	if storyCount != nil && *storyCount < 0 {
		return nil, editErr("create", "feature", name, fmt.Errorf("%w: negative story count", ErrInvalidPosition))
	}
	next := 0
	for _, f := range e.Features {
		next = max(next, f.Order)
	}
	f := &Feature{Name: name, Users: DedupeUsers(users), Order: next + 1, StoryCount: cloneInt(storyCount)}
	e.Features = append(e.Features, f)
	return f, nil
}

// UpdateFeature applies p to the feature and to its increment copies.
func (g *Graph) UpdateFeature(epic, name string, p FeaturePatch) error {
	f, err := g.findFeature("update", epic, name)
	if err != nil {
		return err
	}
	e := g.Epic(epic)
	if p.Name != nil && *p.Name != name {
		if err := checkNewName(*p.Name); err != nil {
			return editErr("update", "feature", *p.Name, err)
		}
		if e.Feature(*p.Name) != nil {
			return editErr("update", "feature", *p.Name, ErrDuplicate)
		}
	}
	if p.StoryCount != nil && *p.StoryCount < 0 {
		return editErr("update", "feature", name, fmt.Errorf("%w: negative story count", ErrInvalidPosition))
	}
	apply := func(f *Feature) {
		if p.Name != nil {
			f.Name = *p.Name
		}
		if p.Users != nil {
			f.Users = DedupeUsers(p.Users)
		}
		if p.ClearStoryCount {
			f.StoryCount = nil
		} else if p.StoryCount != nil {
			f.StoryCount = cloneInt(p.StoryCount)
		}
	}
	apply(f)
	for _, inc := range g.Increments {
		if ie := inc.Epic(epic); ie != nil {
			if f := ie.Feature(name); f != nil {
				apply(f)
			}
		}
	}
	return nil
}

// RemoveFeature deletes the feature everywhere, including increments.
func (g *Graph) RemoveFeature(epic, name string) error {
	if _, err := g.findFeature("remove", epic, name); err != nil {
		return err
	}
	drop := func(f *Feature) bool { return f.Name == name }
	e := g.Epic(epic)
	e.Features = slices.DeleteFunc(e.Features, drop)
	for _, inc := range g.Increments {
		if ie := inc.Epic(epic); ie != nil {
			ie.Features = slices.DeleteFunc(ie.Features, drop)
		}
	}
	return nil
}

// ReorderFeature moves the feature to the 1-based position within its epic.
func (g *Graph) ReorderFeature(epic, name string, position int) error {
	if _, err := g.findFeature("reorder", epic, name); err != nil {
		return err
	}
	ordered := g.Epic(epic).OrderedFeatures()
	if position < 1 || position > len(ordered) {
		return editErr("reorder", "feature", name, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidPosition, position, len(ordered)))
	}
	from := slices.IndexFunc(ordered, func(f *Feature) bool { return f.Name == name })
	ordered = move(ordered, from, position-1)
	orders := make(map[string]int, len(ordered))
	for i, f := range ordered {
		f.Order = i + 1
		orders[f.Name] = f.Order
	}
	for _, inc := range g.Increments {
		if ie := inc.Epic(epic); ie != nil {
			for _, f := range ie.Features {
				if o, ok := orders[f.Name]; ok {
					f.Order = o
				}
			}
		}
	}
	return nil
}

// --- Stories ---

// CreateStory adds a story to a feature. A zero order appends a new base
// step; a taken order is rejected.
func (g *Graph) CreateStory(epic, feature, name string, users []string, typ StoryType, order Order) (*Story, error) {
	f, err := g.findFeature("create", epic, feature)
	if err != nil {
		return nil, err
	}
	if err := checkNewName(name); err != nil {
		return nil, editErr("create", "story", name, err)
	}
	if f.Story(name) != nil {
		return nil, editErr("create", "story", name, ErrDuplicate)
	}
	if !typ.IsValid() {
		return nil, editErr("create", "story", name, fmt.Errorf("unknown story type %q", typ))
	}
	if order.IsZero() {
		next := 0
		for _, s := range f.Stories {
			next = max(next, s.Order.Base)
		}
		order = Order{Base: next + 1}
	} else if order.Base == 0 || storyAt(f, order) != nil {
		return nil, editErr("create", "story", name, fmt.Errorf("%w: order %s", ErrInvalidPosition, order))
	}
	s := &Story{Name: name, Users: DedupeUsers(users), Order: order, Type: typ}
	f.Stories = append(f.Stories, s)
	return s, nil
}

// UpdateStory applies p to the story and to its increment copies.
func (g *Graph) UpdateStory(epic, feature, name string, p StoryPatch) error {
	s, err := g.findStory("update", epic, feature, name)
	if err != nil {
		return err
	}
	if p.Name != nil && *p.Name != name {
		if err := checkNewName(*p.Name); err != nil {
			return editErr("update", "story", *p.Name, err)
		}
		if g.Epic(epic).Feature(feature).Story(*p.Name) != nil {
			return editErr("update", "story", *p.Name, ErrDuplicate)
		}
	}
	if p.Type != nil && !p.Type.IsValid() {
		return editErr("update", "story", name, fmt.Errorf("unknown story type %q", *p.Type))
	}
	apply := func(s *Story) {
		if p.Name != nil {
			s.Name = *p.Name
		}
		if p.Users != nil {
			s.Users = DedupeUsers(p.Users)
		}
		if p.Type != nil {
			s.Type = *p.Type
		}
	}
	apply(s)
	g.eachIncrementStory(epic, feature, name, apply)
	return nil
}

// RemoveStory deletes the story everywhere, including increments.
func (g *Graph) RemoveStory(epic, feature, name string) error {
	if _, err := g.findStory("remove", epic, feature, name); err != nil {
		return err
	}
	drop := func(s *Story) bool { return s.Name == name }
	f := g.Epic(epic).Feature(feature)
	f.Stories = slices.DeleteFunc(f.Stories, drop)
	for _, inc := range g.Increments {
		if ie := inc.Epic(epic); ie != nil {
			if f := ie.Feature(feature); f != nil {
				f.Stories = slices.DeleteFunc(f.Stories, drop)
			}
		}
	}
	return nil
}

// ReorderStory moves a story to order. When the slot is taken, the siblings
// at or after it shift by one: later base steps for a base order, later
// refinements of the same base for a refinement.
func (g *Graph) ReorderStory(epic, feature, name string, order Order) error {
	s, err := g.findStory("reorder", epic, feature, name)
	if err != nil {
		return err
	}
	if order.Base < 1 {
		return editErr("reorder", "story", name, fmt.Errorf("%w: order %s", ErrInvalidPosition, order))
	}
	f := g.Epic(epic).Feature(feature)
	renumbered := make(map[string]Order)
	if other := storyAt(f, order); other != nil && other != s {
		for _, sib := range f.Stories {
			if sib == s {
				continue
			}
			switch {
			case order.Sub == 0 && sib.Order.Base >= order.Base:
				sib.Order.Base++
			case order.Sub > 0 && sib.Order.Base == order.Base && sib.Order.Sub >= order.Sub:
				sib.Order.Sub++
			default:
				continue
			}
			renumbered[sib.Name] = sib.Order
		}
	}
	s.Order = order
	renumbered[name] = order
	for sibling, o := range renumbered {
		g.eachIncrementStory(epic, feature, sibling, func(s *Story) { s.Order = o })
	}
	return nil
}

// --- Users ---

// AddUserToStory appends user to the story's users if it is not already there.
func (g *Graph) AddUserToStory(epic, feature, story, user string) error {
	s, err := g.findStory("add user", epic, feature, story)
	if err != nil {
		return err
	}
	if strings.TrimSpace(user) == "" {
		return editErr("add user", "user", user, ErrInvalidName)
	}
	add := func(s *Story) {
		if !s.HasUser(user) {
			s.Users = append(s.Users, user)
		}
	}
	add(s)
	g.eachIncrementStory(epic, feature, story, add)
	return nil
}

// RemoveUserFromStory drops user from the story's users.
func (g *Graph) RemoveUserFromStory(epic, feature, story, user string) error {
	s, err := g.findStory("remove user", epic, feature, story)
	if err != nil {
		return err
	}
	if !s.HasUser(user) {
		return editErr("remove user", "user", user, ErrNotFound)
	}
	drop := func(s *Story) {
		s.Users = slices.DeleteFunc(s.Users, func(u string) bool { return u == user })
	}
	drop(s)
	g.eachIncrementStory(epic, feature, story, drop)
	return nil
}

// --- Helpers ---

func (g *Graph) findFeature(op, epic, name string) (*Feature, error) {
	e := g.Epic(epic)
	if e == nil {
		return nil, editErr(op, "epic", epic, ErrNotFound)
	}
	f := e.Feature(name)
	if f == nil {
		return nil, editErr(op, "feature", name, ErrNotFound)
	}
	return f, nil
}

func (g *Graph) findStory(op, epic, feature, name string) (*Story, error) {
	f, err := g.findFeature(op, epic, feature)
	if err != nil {
		return nil, err
	}
	s := f.Story(name)
	if s == nil {
		return nil, editErr(op, "story", name, ErrNotFound)
	}
	return s, nil
}

func (g *Graph) eachIncrementStory(epic, feature, story string, fn func(*Story)) {
	for _, inc := range g.Increments {
		e := inc.Epic(epic)
		if e == nil {
			continue
		}
		f := e.Feature(feature)
		if f == nil {
			continue
		}
		if s := f.Story(story); s != nil {
			fn(s)
		}
	}
}

// Epic returns the increment's copy of the named epic, or nil.
func (inc *Increment) Epic(name string) *Epic {
	for _, e := range inc.Epics {
		if e.Name == name {
			return e
		}
	}
	return nil
}

func storyAt(f *Feature, o Order) *Story {
	for _, s := range f.Stories {
		if s.Order == o {
			return s
		}
	}
	return nil
}

func nextEpicOrder(epics []*Epic) int {
	next := 0
	for _, e := range epics {
		next = max(next, e.Order)
	}
	return next + 1
}

func move[T any](list []T, from, to int) []T {
	item := list[from]
	list = slices.Delete(list, from, from+1)
	return slices.Insert(list, to, item)
}
