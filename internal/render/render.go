// Package render lays out a story graph as a draw.io story map.
//
// Epics form the top row and features the row beneath them. Each feature's
// stories are arranged in columns, one per distinct base order, with
// refinements stacked under their base. User labels sit above the first
// element that lists them. Containers are shrink-wrapped around whatever they
// hold, so a layout saved from an extraction renders back to the same
// coordinates.
package render

import (
	"errors"
	"fmt"
	"html"
	"math"
	"sort"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/geometry"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// Placement constants, in diagram pixels.
const (
	EpicStartX      = 20.0
	EpicY           = 130.0
	FeatureOffsetY  = 140.0 // feature row below the epic row
	StoryOffsetY    = diagram.StoryRowOffset
	ContainerHeight = 60.0
	StorySize       = 50.0
	UserSize        = 50.0
	ColumnWidth     = 60.0 // one story column, or one extra user label
	SubSpacingY     = 55.0
	UserOffsetY     = 60.0 // labels sit this far above their anchor
	Padding         = 10.0
	EmptyWidth      = 70.0
	FeatureGapX     = 10.0
	EpicGapX        = 20.0

	MarkerX      = -200.0
	MarkerWidth  = 160.0
	BacklogGap   = 150.0 // backlog bottom to first increment lane
	LaneGap      = 30.0
	LaneRowY     = diagram.LaneRowOffset
	LaneMinDepth = 120.0
	LanePadding  = 20.0
)

// Render draws g in the given mode. Saved layout positions override computed
// ones; layout may be nil. g is not modified.
func Render(g *storygraph.Graph, layout storygraph.Layout, mode diagram.Mode) (*diagram.Diagram, error) {
	if g == nil {
		return nil, errors.New("render: nil story graph")
	}
	if mode == "" {
		mode = diagram.ModeOutline
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("render: unknown mode %q", mode)
	}

	g = g.Clone()
	g.Normalize()

	r := &renderer{
		layout: layout,
		d:      &diagram.Diagram{Name: "Story Map"},
		users:  NewUserAccumulator(),
	}
	if mode == diagram.ModeIncrements {
		r.lanes = g.OrderedIncrements()
		r.laneOf = laneMembership(r.lanes)
		r.deferred = make([][]*laneStory, len(r.lanes))
	}

	cursor := EpicStartX
	for i, e := range g.OrderedEpics() {
		rect := r.placeEpic(i+1, e, cursor)
		cursor = rect.Right() + EpicGapX
	}
	if mode == diagram.ModeIncrements {
		r.placeLanes()
	}
	return r.d, nil
}

type renderer struct {
	layout storygraph.Layout
	d      *diagram.Diagram
	users  *UserAccumulator
	nextID int

	// Increments mode only.
	lanes    []*storygraph.Increment
	laneOf   map[string]int
	deferred [][]*laneStory
	backlog  float64 // lowest bottom edge outside the lanes
}

// laneStory is a story drawn in an increment lane. Its y is relative to the
// lane's story row until the lanes are placed, unless a saved layout fixed it.
// rel is the story's depth in its whole stack, not just the part in this
// lane, so a base and its refinements keep their order across lanes.
type laneStory struct {
	cell   *diagram.Cell
	labels []*diagram.Cell
	rel    float64
	fixed  bool
}

func (r *renderer) placeEpic(idx int, e *storygraph.Epic, x float64) geometry.Rect {
	y := EpicY
	if p, ok := r.layout.Lookup(storygraph.EpicKey(e.Name)); ok {
		x, y = p.X, p.Y
	}
	cell := r.d.AddShape(diagram.EpicID(idx), diagram.KindEpic, "", diagram.Label(e.Name, e.EstimatedStories), geometry.Rect{})
	r.noteBottom(y + ContainerHeight)

	var ext geometry.Extent
	for _, rect := range r.emitUsers(r.users.Claim(e.Users), x+Padding, y) {
		ext.Add(rect)
	}

	// Claims follow global order: epic, then each feature and its stories.
	features := e.OrderedFeatures()
	emitted := make(map[*storygraph.Story][]string)
	featureUsers := make([][]string, len(features))
	for i, f := range features {
		featureUsers[i] = r.users.Claim(f.Users)
		for _, s := range f.OrderedStories() {
			emitted[s] = r.users.Claim(s.Users)
		}
	}

	fx := x + Padding
	for i, f := range features {
		fy := y + FeatureOffsetY
		at := fx
		if p, ok := r.layout.Lookup(storygraph.FeatureKey(e.Name, f.Name)); ok {
			at, fy = p.X, p.Y
		}
		rect := r.placeFeature(idx, i+1, e, f, at, fy, featureUsers[i], emitted)
		ext.Add(rect)
		fx = rect.Right() + FeatureGapX
	}

	rect := ext.Wrap(y, ContainerHeight, Padding, x, EmptyWidth)
	cell.Geometry = &rect
	return rect
}

func (r *renderer) placeFeature(ei, fi int, e *storygraph.Epic, f *storygraph.Feature, x, y float64,
	ownUsers []string, emitted map[*storygraph.Story][]string) geometry.Rect {
	cell := r.d.AddShape(diagram.FeatureID(ei, fi), diagram.KindFeature, "", diagram.Label(f.Name, f.StoryCount), geometry.Rect{})
	r.noteBottom(y + ContainerHeight)

	var ext geometry.Extent
	for _, rect := range r.emitUsers(ownUsers, x+Padding, y) {
		ext.Add(rect)
	}

	stories := f.OrderedStories()
	columns := columnOffsets(stories, emitted)

	stacks := make(map[int]float64) // base order -> depth of its last story
	rowY := y + StoryOffsetY

	for k, s := range stories {
		lane := -1
		if r.laneOf != nil {
			if l, ok := r.laneOf[storygraph.StoryKey(e.Name, f.Name, s.Name)]; ok {
				lane = l
			}
		}
		labels := emitted[s]

		off, stacked := stacks[s.Order.Base]
		if stacked {
			off += SubSpacingY
			if len(labels) > 0 {
				off += UserOffsetY
			}
		}
		stacks[s.Order.Base] = off

		sx := x + Padding + columns[s.Order.Base]
		sy := rowY + off
		saved, fixed := r.layout.Lookup(storygraph.StoryKey(e.Name, f.Name, s.Name))
		if fixed {
			sx, sy = saved.X, saved.Y
		}

		rect := geometry.Rect{X: sx, Y: sy, W: StorySize, H: StorySize}
		sc := r.d.AddShape(diagram.StoryID(ei, fi, k+1), diagram.KindStory, variantOf(s.Type), html.EscapeString(s.Name), rect)
		ext.Add(rect)

		var labelCells []*diagram.Cell
		for j, u := range labels {
			lr := geometry.Rect{X: sx + float64(j)*ColumnWidth, Y: sy - UserOffsetY, W: UserSize, H: UserSize}
			labelCells = append(labelCells, r.addUser(u, lr))
			ext.Add(lr)
		}

		if lane < 0 {
			r.noteBottom(rect.Bottom())
			continue
		}
		r.deferred[lane] = append(r.deferred[lane], &laneStory{cell: sc, labels: labelCells, rel: off, fixed: fixed})
	}

	rect := ext.Wrap(y, ContainerHeight, Padding, x, EmptyWidth)
	cell.Geometry = &rect
	return rect
}

// columnOffsets maps each distinct base order to its x offset within the
// feature. A column is one unit wide, plus one unit per extra user label
// any story in it emits.
func columnOffsets(stories []*storygraph.Story, emitted map[*storygraph.Story][]string) map[int]float64 {
	units := make(map[int]int)
	var bases []int
	for _, s := range stories {
		if _, ok := units[s.Order.Base]; !ok {
			bases = append(bases, s.Order.Base)
			units[s.Order.Base] = 1
		}
		units[s.Order.Base] = max(units[s.Order.Base], len(emitted[s]))
	}
	sort.Ints(bases)

	offsets := make(map[int]float64, len(bases))
	at := 0.0
	for _, b := range bases {
		offsets[b] = at
		at += float64(units[b]) * ColumnWidth
	}
	return offsets
}

// emitUsers draws container labels left to right above the container row.
func (r *renderer) emitUsers(users []string, x, anchorY float64) []geometry.Rect {
	rects := make([]geometry.Rect, 0, len(users))
	for j, u := range users {
		rect := geometry.Rect{X: x + float64(j)*ColumnWidth, Y: anchorY - UserOffsetY, W: UserSize, H: UserSize}
		r.addUser(u, rect)
		rects = append(rects, rect)
	}
	return rects
}

func (r *renderer) addUser(name string, rect geometry.Rect) *diagram.Cell {
	r.nextID++
	return r.d.AddShape(fmt.Sprintf("u%d", r.nextID), diagram.KindUser, "", html.EscapeString(name), rect)
}

func (r *renderer) noteBottom(y float64) {
	r.backlog = math.Max(r.backlog, y)
}

// placeLanes fixes the y of every lane story and draws one marker per
// increment spanning its lane.
func (r *renderer) placeLanes() {
	top := r.backlog + BacklogGap
	for i, inc := range r.lanes {
		bandTop, bandBottom := top, top+LaneMinDepth
		for _, ls := range r.deferred[i] {
			if !ls.fixed {
				ls.cell.Geometry.Y = top + LaneRowY + ls.rel
				for _, lc := range ls.labels {
					lc.Geometry.Y = ls.cell.Geometry.Y - UserOffsetY
				}
			}
			bandTop = math.Min(bandTop, ls.cell.Geometry.Y-LaneRowY)
			bandBottom = math.Max(bandBottom, ls.cell.Geometry.Bottom()+LanePadding)
		}
		r.d.AddShape(MarkerID(i+1), diagram.KindIncrement, "", html.EscapeString(inc.Name),
			geometry.Rect{X: MarkerX, Y: bandTop, W: MarkerWidth, H: bandBottom - bandTop})
		top = bandBottom + LaneGap
	}
}

// MarkerID formats the id of the n-th increment marker by priority.
func MarkerID(n int) string { return fmt.Sprintf("inc%d", n) }

// laneMembership maps story keys to the index of the first increment, by
// priority, that lists them.
func laneMembership(lanes []*storygraph.Increment) map[string]int {
	out := make(map[string]int)
	for i, inc := range lanes {
		for _, e := range inc.Epics {
			for _, f := range e.Features {
				for _, s := range f.Stories {
					key := storygraph.StoryKey(e.Name, f.Name, s.Name)
					if _, ok := out[key]; !ok {
						out[key] = i
					}
				}
			}
		}
	}
	return out
}

func variantOf(t storygraph.StoryType) string {
	switch t {
	case storygraph.StoryTypeSystem:
		return diagram.VariantSystem
	case storygraph.StoryTypeTechnical:
		return diagram.VariantTechnical
	}
	return ""
}
