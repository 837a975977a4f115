// Package extract reads a story graph back out of a draw.io story map.
//
// Shapes are classified by palette color. Cells that still carry the ids the
// renderer wrote are attached to their parents by id; anything else (copied
// or hand-drawn shapes) is attached by position through LocateByX. Story
// order comes from the Sequencer, and users are re-attached from the labels
// above the shapes and then inherited forward in story order.
package extract

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/alfredjeanlab/storymap/internal/diagram"
	"github.com/alfredjeanlab/storymap/internal/geometry"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// Options holds the extraction tolerances.
type Options struct {
	UserTolerance      float64
	SequenceTolerance  float64
	IncrementTolerance float64
}

// DefaultOptions returns the standard tolerances.
func DefaultOptions() Options {
	return Options{
		UserTolerance:      DefaultUserTolerance,
		SequenceTolerance:  DefaultSequenceTolerance,
		IncrementTolerance: DefaultIncrementTolerance,
	}
}

// Result is the outcome of one extraction.
type Result struct {
	Graph  *storygraph.Graph
	Layout storygraph.Layout

	// Warnings lists shapes that could not be placed in the hierarchy.
	Warnings []string
}

// Extractor reads diagrams with a fixed set of tolerances.
type Extractor struct {
	opts Options
}

// New returns an Extractor. Zero tolerances fall back to the defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.UserTolerance <= 0 {
		opts.UserTolerance = def.UserTolerance
	}
	if opts.SequenceTolerance <= 0 {
		opts.SequenceTolerance = def.SequenceTolerance
	}
	if opts.IncrementTolerance <= 0 {
		opts.IncrementTolerance = def.IncrementTolerance
	}
	return &Extractor{opts: opts}
}

// Sync extracts d with the default tolerances.
func Sync(d *diagram.Diagram, mode diagram.Mode) (*Result, error) {
	return New(DefaultOptions()).Sync(d, mode)
}

// --- Working nodes ---

type epicNode struct {
	cell     *diagram.Cell
	name     string
	estimate *int
	tie      int
	features []*featureNode
	anchored []string
}

func (n *epicNode) Bounds() geometry.Rect { return *n.cell.Geometry }

type featureNode struct {
	cell     *diagram.Cell
	name     string
	count    *int
	tie      int
	epic     *epicNode
	stories  []*storyNode
	anchored []string
}

func (n *featureNode) Bounds() geometry.Rect { return *n.cell.Geometry }

type storyNode struct {
	cell    *diagram.Cell
	name    string
	feature *featureNode
	placed  *Placed
	lane    int // index into the sorted increment markers, or -1
	direct  []userLabel
	inherit []string // users handed down from a container
	users   []string
}

func (n *storyNode) Bounds() geometry.Rect { return *n.cell.Geometry }

type userLabel struct {
	name string
	rect geometry.Rect
}

type extraction struct {
	opts     Options
	epics    []*epicNode
	features []*featureNode // all features, sorted by x
	stories  []*storyNode
	warnings []string
}

func (x *extraction) warnf(format string, args ...any) {
	x.warnings = append(x.warnings, fmt.Sprintf(format, args...))
}

// Sync converts d into a story graph and the layout that reproduces its
// positions.
func (e *Extractor) Sync(d *diagram.Diagram, mode diagram.Mode) (*Result, error) {
	if d == nil {
		return nil, errors.New("extract: nil diagram")
	}
	if mode == "" {
		mode = diagram.ModeOutline
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("extract: unknown mode %q", mode)
	}

	x := &extraction{opts: e.opts}
	x.collectEpics(d)
	x.collectFeatures(d)
	x.collectStories(d)

	var markers []*diagram.Cell
	if mode == diagram.ModeIncrements {
		markers = sortedMarkers(d)
	}
	x.assignLanes(markers)
	x.sequence()
	x.anchorUsers(d)
	x.inheritUsers()

	g := x.graph()
	if mode == diagram.ModeIncrements {
		x.bucketIncrements(markers, g)
	}
	return &Result{Graph: g, Layout: x.layout(), Warnings: x.warnings}, nil
}

func (x *extraction) collectEpics(d *diagram.Diagram) {
	for _, c := range d.Shapes(diagram.KindEpic) {
		name, est := diagram.ParseLabel(c.Value)
		if name == "" {
			x.warnf("epic cell %q has no name; skipped", c.ID)
			continue
		}
		n := &epicNode{cell: c, name: name, estimate: est}
		if sid, kind, ok := diagram.ParseID(c.ID); ok && kind == diagram.KindEpic {
			n.tie = sid.Number()
		}
		x.epics = append(x.epics, n)
	}
	sortByX(x.epics, func(n *epicNode) int { return n.tie })
}

func (x *extraction) collectFeatures(d *diagram.Diagram) {
	byID := make(map[string]*epicNode, len(x.epics))
	for _, e := range x.epics {
		byID[e.cell.ID] = e
	}
	for _, c := range d.Shapes(diagram.KindFeature) {
		name, count := diagram.ParseLabel(c.Value)
		if name == "" {
			x.warnf("feature cell %q has no name; skipped", c.ID)
			continue
		}
		n := &featureNode{cell: c, name: name, count: count}
		if sid, kind, ok := diagram.ParseID(c.ID); ok && kind == diagram.KindFeature {
			n.tie = sid.Number()
			n.epic = byID[sid.EpicCellID()]
		}
		if n.epic == nil {
			e, ok := LocateByX(x.epics, c.Geometry.X)
			if !ok {
				x.warnf("feature %q has no epic; skipped", name)
				continue
			}
			n.epic = e
		}
		x.features = append(x.features, n)
	}
	sortByX(x.features, func(n *featureNode) int { return n.tie })
	for _, f := range x.features {
		f.epic.features = append(f.epic.features, f)
	}
}

func (x *extraction) collectStories(d *diagram.Diagram) {
	byID := make(map[string]*featureNode, len(x.features))
	for _, f := range x.features {
		byID[f.cell.ID] = f
	}
	for _, c := range d.Shapes(diagram.KindStory) {
		name, _ := diagram.ParseLabel(c.Value)
		if name == "" {
			x.warnf("story cell %q has no name; skipped", c.ID)
			continue
		}
		n := &storyNode{cell: c, name: name, lane: -1, placed: &Placed{X: c.Geometry.X, Y: c.Geometry.Y}}
		if sid, kind, ok := diagram.ParseID(c.ID); ok && kind == diagram.KindStory {
			n.feature = byID[sid.FeatureCellID()]
		}
		if n.feature == nil {
			f, ok := LocateByX(x.features, c.Geometry.X)
			if !ok {
				x.warnf("story %q has no feature; skipped", name)
				continue
			}
			n.feature = f
		}
		x.stories = append(x.stories, n)
	}
}

// assignLanes files each story under the increment marker whose lane is
// nearest. A story in a lane is sequenced by its depth below the lane's story
// row and a story outside every lane by its depth below its feature's story
// row, so a stack split across lanes keeps its order. Without markers the
// page y is used as is.
func (x *extraction) assignLanes(markers []*diagram.Cell) {
	if len(markers) == 0 {
		return
	}
	for _, s := range x.stories {
		y := s.Bounds().Y
		row := s.feature.Bounds().Y + diagram.StoryRowOffset
		if l := nearestLane(markers, y, x.opts.IncrementTolerance); l >= 0 {
			s.lane = l
			row = markers[l].Geometry.Y + diagram.LaneRowOffset
		}
		s.placed.Y = y - row
	}
}

// sequence orders all stories at once, then files them under their features.
func (x *extraction) sequence() {
	placed := make([]*Placed, len(x.stories))
	for i, s := range x.stories {
		placed[i] = s.placed
	}
	Sequencer{Tolerance: x.opts.SequenceTolerance}.Assign(placed)

	ordered := append([]*storyNode(nil), x.stories...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].placed.Order.Less(ordered[j].placed.Order) })
	for _, s := range ordered {
		f := s.feature
		if f.hasStory(s.name) {
			x.warnf("duplicate story %q in feature %q", s.name, f.name)
		}
		f.stories = append(f.stories, s)
	}
}

func (f *featureNode) hasStory(name string) bool {
	for _, s := range f.stories {
		if s.name == name {
			return true
		}
	}
	return false
}

// anchorUsers attaches each user label to an epic, a feature or a story.
// Labels above an epic row belong to the epic, labels between the epic and
// feature rows to the feature, and anything lower to the story beneath it.
func (x *extraction) anchorUsers(d *diagram.Diagram) {
	labels := make([]userLabel, 0)
	for _, c := range d.Shapes(diagram.KindUser) {
		name, _ := diagram.ParseLabel(c.Value)
		if name == "" {
			continue
		}
		labels = append(labels, userLabel{name: name, rect: *c.Geometry})
	}
	sort.SliceStable(labels, func(i, j int) bool {
		if labels[i].rect.X != labels[j].rect.X {
			return labels[i].rect.X < labels[j].rect.X
		}
		return labels[i].rect.Y < labels[j].rect.Y
	})

	for _, u := range labels {
		if e, ok := LocateByX(x.epics, u.rect.X); ok && u.rect.Y < e.Bounds().Y {
			e.anchored = append(e.anchored, u.name)
			continue
		}
		if f, ok := LocateByX(x.features, u.rect.X); ok && u.rect.Y < f.Bounds().Y {
			f.anchored = append(f.anchored, u.name)
			continue
		}
		if s := x.storyBelow(u.rect); s != nil {
			s.direct = append(s.direct, u)
			continue
		}
		x.warnf("user %q is not above any epic, feature or story; skipped", u.name)
	}

	// Container users belong to the container's first story.
	for _, e := range x.epics {
		if first := e.firstStory(); first != nil {
			first.inherit = append(first.inherit, e.anchored...)
		}
		for _, f := range e.features {
			if len(f.stories) > 0 {
				f.stories[0].inherit = append(f.stories[0].inherit, f.anchored...)
			}
		}
	}
}

// storyBelow picks the one story a label names: the nearest story under it
// aligned within the user tolerance, or failing that the nearest story under
// it in the column the label sits in.
func (x *extraction) storyBelow(label geometry.Rect) *storyNode {
	var best *storyNode
	bestDY := math.Inf(1)
	for _, s := range x.stories {
		r := s.Bounds()
		dy := r.Y - label.Y
		if dy <= 0 || !geometry.Within(r.X, label.X, x.opts.UserTolerance) {
			continue
		}
		if dy < bestDY || (dy == bestDY && math.Abs(r.X-label.X) < math.Abs(best.Bounds().X-label.X)) {
			best, bestDY = s, dy
		}
	}
	if best != nil {
		return best
	}
	return x.columnBelow(label)
}

// columnBelow resolves labels set beside their story, as the second and later
// users of one story are. The search stays inside the label's feature: the
// label's column is the rightmost one starting at or left of it.
func (x *extraction) columnBelow(label geometry.Rect) *storyNode {
	f, ok := LocateByX(x.features, label.X)
	if !ok {
		return nil
	}
	col, found := 0.0, false
	for _, s := range f.stories {
		r := s.Bounds()
		if r.X <= label.X && r.Y > label.Y && (!found || r.X > col) {
			col, found = r.X, true
		}
	}
	if !found {
		return nil
	}

	var best *storyNode
	bestDY := math.Inf(1)
	for _, s := range f.stories {
		r := s.Bounds()
		dy := r.Y - label.Y
		if dy > 0 && geometry.Within(r.X, col, x.opts.SequenceTolerance) && dy < bestDY {
			best, bestDY = s, dy
		}
	}
	return best
}

func (e *epicNode) firstStory() *storyNode {
	for _, f := range e.features {
		if len(f.stories) > 0 {
			return f.stories[0]
		}
	}
	return nil
}

// inheritUsers walks stories in global order. A story with no users of its
// own takes the previous story's users.
func (x *extraction) inheritUsers() {
	var prev []string
	for _, e := range x.epics {
		for _, f := range e.features {
			for _, s := range f.stories {
				own := make([]string, 0, len(s.inherit)+len(s.direct))
				own = append(own, s.inherit...)
				for _, u := range s.direct {
					own = append(own, u.name)
				}
				own = storygraph.DedupeUsers(own)
				if len(own) == 0 {
					own = append([]string{}, prev...)
				}
				s.users = own
				prev = own
			}
		}
	}
}

func (x *extraction) graph() *storygraph.Graph {
	g := &storygraph.Graph{}
	for i, e := range x.epics {
		epic := &storygraph.Epic{
			Name:             e.name,
			Order:            i + 1,
			EstimatedStories: e.estimate,
			Users:            storygraph.DedupeUsers(e.anchored),
		}
		if first := e.firstStory(); first != nil {
			epic.Users = append([]string{}, first.users...)
		}
		if g.Epic(e.name) != nil {
			x.warnf("duplicate epic %q", e.name)
		}
		for j, f := range e.features {
			feature := &storygraph.Feature{
				Name:       f.name,
				Order:      j + 1,
				StoryCount: f.count,
				Users:      storygraph.DedupeUsers(f.anchored),
			}
			if len(f.stories) > 0 {
				feature.Users = append([]string{}, f.stories[0].users...)
			}
			if epic.Feature(f.name) != nil {
				x.warnf("duplicate feature %q in epic %q", f.name, e.name)
			}
			for _, s := range f.stories {
				feature.Stories = append(feature.Stories, &storygraph.Story{
					Name:  s.name,
					Users: append([]string{}, s.users...),
					Order: s.placed.Order,
					Type:  storyType(s.cell.Variant),
				})
			}
			epic.Features = append(epic.Features, feature)
		}
		g.Epics = append(g.Epics, epic)
	}
	return g
}

func (x *extraction) layout() storygraph.Layout {
	l := storygraph.Layout{}
	for _, e := range x.epics {
		r := e.Bounds()
		l[storygraph.EpicKey(e.name)] = storygraph.Position{X: r.X, Y: r.Y, Width: r.W, Height: r.H}
		for _, f := range e.features {
			r := f.Bounds()
			l[storygraph.FeatureKey(e.name, f.name)] = storygraph.Position{X: r.X, Y: r.Y, Width: r.W, Height: r.H}
			for _, s := range f.stories {
				r := s.Bounds()
				l[storygraph.StoryKey(e.name, f.name, s.name)] = storygraph.Position{X: r.X, Y: r.Y}
			}
		}
	}
	return l
}

func sortedMarkers(d *diagram.Diagram) []*diagram.Cell {
	markers := d.Shapes(diagram.KindIncrement)
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].Geometry.Y < markers[j].Geometry.Y
	})
	return markers
}

// bucketIncrements turns increment markers into increments, ranked top to
// bottom, and mirrors each story into the increment of its lane.
func (x *extraction) bucketIncrements(markers []*diagram.Cell, g *storygraph.Graph) {
	if len(markers) == 0 {
		return
	}
	for i, m := range markers {
		name, _ := diagram.ParseLabel(m.Value)
		if name == "" {
			name = fmt.Sprintf("Increment %d", i+1)
		}
		g.Increments = append(g.Increments, &storygraph.Increment{Name: name, Priority: i + 1})
	}

	for _, e := range x.epics {
		for _, f := range e.features {
			for _, s := range f.stories {
				if s.lane >= 0 {
					g.Increments[s.lane].MirrorStory(g, e.name, f.name, s.name)
				}
			}
		}
	}
}

func nearestLane(markers []*diagram.Cell, y, tol float64) int {
	best, bestGap := -1, math.Inf(1)
	for i, m := range markers {
		gap := geometry.VerticalGap(y, m.Geometry.Y, m.Geometry.Bottom())
		if gap <= tol && gap < bestGap {
			best, bestGap = i, gap
		}
	}
	return best
}

func storyType(variant string) storygraph.StoryType {
	switch variant {
	case diagram.VariantSystem:
		return storygraph.StoryTypeSystem
	case diagram.VariantTechnical:
		return storygraph.StoryTypeTechnical
	}
	return ""
}

// sortByX orders containers left to right, breaking ties by the number in
// their structured id.
func sortByX[T Box](items []T, tie func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Bounds().X, items[j].Bounds().X
		if a != b {
			return a < b
		}
		return tie(items[i]) < tie(items[j])
	})
}
