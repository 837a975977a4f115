package extract

import (
	"sort"

	"github.com/alfredjeanlab/storymap/internal/geometry"
	"github.com/alfredjeanlab/storymap/internal/storygraph"
)

// Placed is a story position awaiting a sequential order.
type Placed struct {
	X, Y  float64
	Order storygraph.Order
}

// AssignSequentialOrder orders stories with the default sequence tolerance.
func AssignSequentialOrder(items []*Placed) {
	Sequencer{Tolerance: DefaultSequenceTolerance}.Assign(items)
}

// Sequencer turns story positions into sequential orders. Stories whose x
// lies within Tolerance of a group's first member form one workflow step:
// the topmost gets the step number k and the rest become k.1, k.2, ...
type Sequencer struct {
	Tolerance float64
}

// Assign sets Order on every item.
func (s Sequencer) Assign(items []*Placed) {
	var groups [][]*Placed
	for _, it := range items {
		joined := false
		for i, g := range groups {
			if geometry.Within(g[0].X, it.X, s.Tolerance) {
				groups[i] = append(g, it)
				joined = true
				break
			}
		}
		if !joined {
			groups = append(groups, []*Placed{it})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i][0].X < groups[j][0].X })
	for k, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Y < g[j].Y })
		for i, it := range g {
			it.Order = storygraph.Order{Base: k + 1, Sub: i}
		}
	}
}
