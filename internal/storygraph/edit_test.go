package storygraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// shopGraph returns a small graph with one increment mirroring part of it.
func shopGraph() *Graph {
	return &Graph{
		Epics: []*Epic{
			{Name: "Shop", Users: []string{"Customer"}, Order: 1, Features: []*Feature{
				{Name: "Browse", Users: []string{"Customer"}, Order: 1, Stories: []*Story{
					{Name: "Search", Users: []string{"Customer"}, Order: Order{Base: 1}},
					{Name: "Filter", Order: Order{Base: 1, Sub: 1}},
					{Name: "Compare", Order: Order{Base: 2}},
				}},
				{Name: "Checkout", Order: 2},
			}},
			{Name: "Billing", Order: 2},
		},
		Increments: []*Increment{
			{Name: "MVP", Priority: 1, Epics: []*Epic{
				{Name: "Shop", Order: 1, Features: []*Feature{
					{Name: "Browse", Order: 1, Stories: []*Story{
						{Name: "Search", Users: []string{"Customer"}, Order: Order{Base: 1}},
					}},
				}},
			}},
		},
	}
}

func storyNames(f *Feature) []string {
	var out []string
	for _, s := range f.OrderedStories() {
		out = append(out, s.Name+"@"+s.Order.String())
	}
	return out
}

func TestCreateEpic(t *testing.T) {
	g := shopGraph()
	e, err := g.CreateEpic("Support", []string{"Agent", "Agent"})
	if err != nil {
		t.Fatalf("CreateEpic: %v", err)
	}
	if e.Order != 3 {
		t.Errorf("order = %d, want 3", e.Order)
	}
	if diff := cmp.Diff([]string{"Agent"}, e.Users); diff != "" {
		t.Errorf("users (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		name string
		want error
	}{
		{"Shop", ErrDuplicate},
		{"", ErrInvalidName},
		{"a|b", ErrInvalidName},
	} {
		_, err := g.CreateEpic(tc.name, nil)
		if !errors.Is(err, tc.want) {
			t.Errorf("CreateEpic(%q) error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestUpdateEpicRenamesIncrementCopy(t *testing.T) {
	g := shopGraph()
	name := "Storefront"
	est := 12
	if err := g.UpdateEpic("Shop", EpicPatch{Name: &name, EstimatedStories: &est}); err != nil {
		t.Fatalf("UpdateEpic: %v", err)
	}
	if g.Epic("Storefront") == nil || g.Epic("Shop") != nil {
		t.Fatal("epic not renamed")
	}
	if g.Increments[0].Epic("Storefront") == nil {
		t.Error("increment copy not renamed")
	}
	if got := *g.Epic("Storefront").EstimatedStories; got != 12 {
		t.Errorf("estimated_stories = %d, want 12", got)
	}

	billing := "Billing"
	err := g.UpdateEpic("Storefront", EpicPatch{Name: &billing})
	var ee *EditError
	if !errors.As(err, &ee) || !errors.Is(err, ErrDuplicate) {
		t.Fatalf("rename onto existing epic: got %v", err)
	}
	if ee.Op != "update" || ee.Kind != "epic" || ee.Name != "Billing" {
		t.Errorf("EditError = %+v", ee)
	}
}

func TestRemoveEpic(t *testing.T) {
	g := shopGraph()
	if err := g.RemoveEpic("Shop"); err != nil {
		t.Fatalf("RemoveEpic: %v", err)
	}
	if len(g.Epics) != 1 || len(g.Increments[0].Epics) != 0 {
		t.Errorf("epic not removed everywhere: %d epics, %d increment epics", len(g.Epics), len(g.Increments[0].Epics))
	}
	if err := g.RemoveEpic("Shop"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove error = %v, want ErrNotFound", err)
	}
}

func TestReorderEpic(t *testing.T) {
	g := shopGraph()
	if err := g.ReorderEpic("Billing", 1); err != nil {
		t.Fatalf("ReorderEpic: %v", err)
	}
	if g.Epic("Billing").Order != 1 || g.Epic("Shop").Order != 2 {
		t.Errorf("orders = Billing %d, Shop %d", g.Epic("Billing").Order, g.Epic("Shop").Order)
	}
	if got := g.Increments[0].Epic("Shop").Order; got != 2 {
		t.Errorf("increment copy order = %d, want 2", got)
	}
	for _, pos := range []int{0, 3} {
		if err := g.ReorderEpic("Shop", pos); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("position %d: error = %v, want ErrInvalidPosition", pos, err)
		}
	}
}

func TestFeatureEdits(t *testing.T) {
	g := shopGraph()
	count := 4
	f, err := g.CreateFeature("Shop", "Returns", nil, &count)
	if err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}
	if f.Order != 3 || *f.StoryCount != 4 {
		t.Errorf("feature = order %d, story_count %d", f.Order, *f.StoryCount)
	}
	if _, err := g.CreateFeature("Nope", "X", nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateFeature on missing epic: %v", err)
	}

	if err := g.UpdateFeature("Shop", "Returns", FeaturePatch{ClearStoryCount: true}); err != nil {
		t.Fatalf("UpdateFeature: %v", err)
	}
	if f.StoryCount != nil {
		t.Error("story_count not cleared")
	}

	if err := g.ReorderFeature("Shop", "Returns", 1); err != nil {
		t.Fatalf("ReorderFeature: %v", err)
	}
	var got []string
	for _, f := range g.Epic("Shop").OrderedFeatures() {
		got = append(got, f.Name)
	}
	if diff := cmp.Diff([]string{"Returns", "Browse", "Checkout"}, got); diff != "" {
		t.Errorf("feature order (-want +got):\n%s", diff)
	}

	if err := g.RemoveFeature("Shop", "Browse"); err != nil {
		t.Fatalf("RemoveFeature: %v", err)
	}
	if g.Increments[0].Epic("Shop").Feature("Browse") != nil {
		t.Error("increment copy of feature not removed")
	}
}

func TestCreateStory(t *testing.T) {
	g := shopGraph()
	s, err := g.CreateStory("Shop", "Browse", "Wishlist", nil, StoryTypeUser, Order{})
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if s.Order != (Order{Base: 3}) {
		t.Errorf("order = %v, want 3", s.Order)
	}
	if _, err := g.CreateStory("Shop", "Browse", "Sort", nil, "", Order{Base: 1, Sub: 1}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("taken order: error = %v", err)
	}
	if _, err := g.CreateStory("Shop", "Browse", "Odd", nil, "epic", Order{}); err == nil {
		t.Error("unknown story type accepted")
	}
	if _, err := g.CreateStory("Shop", "Browse", "Search", nil, "", Order{}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate story: error = %v", err)
	}
}

func TestReorderStory(t *testing.T) {
	for _, tc := range []struct {
		name  string
		story string
		to    Order
		want  []string
	}{
		{
			name:  "into taken base shifts later bases",
			story: "Compare",
			to:    Order{Base: 1},
			want:  []string{"Compare@1", "Search@2", "Filter@2.1"},
		},
		{
			name:  "into free slot",
			story: "Search",
			to:    Order{Base: 5},
			want:  []string{"Filter@1.1", "Compare@2", "Search@5"},
		},
		{
			name:  "into taken refinement shifts later refinements",
			story: "Compare",
			to:    Order{Base: 1, Sub: 1},
			want:  []string{"Search@1", "Compare@1.1", "Filter@1.2"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := shopGraph()
			if err := g.ReorderStory("Shop", "Browse", tc.story, tc.to); err != nil {
				t.Fatalf("ReorderStory: %v", err)
			}
			if diff := cmp.Diff(tc.want, storyNames(g.Epic("Shop").Feature("Browse"))); diff != "" {
				t.Errorf("stories (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReorderStoryMirrorsIncrement(t *testing.T) {
	g := shopGraph()
	if err := g.ReorderStory("Shop", "Browse", "Compare", Order{Base: 1}); err != nil {
		t.Fatalf("ReorderStory: %v", err)
	}
	inc := g.Increments[0].Epic("Shop").Feature("Browse").Story("Search")
	if inc.Order != (Order{Base: 2}) {
		t.Errorf("increment copy order = %v, want 2", inc.Order)
	}
}

func TestUpdateAndRemoveStory(t *testing.T) {
	g := shopGraph()
	name := "Find products"
	typ := StoryTypeTechnical
	if err := g.UpdateStory("Shop", "Browse", "Search", StoryPatch{Name: &name, Type: &typ}); err != nil {
		t.Fatalf("UpdateStory: %v", err)
	}
	inc := g.Increments[0].Epic("Shop").Feature("Browse")
	if s := inc.Story("Find products"); s == nil || s.Type != StoryTypeTechnical {
		t.Errorf("increment copy not updated: %+v", inc.Stories)
	}
	if err := g.RemoveStory("Shop", "Browse", "Find products"); err != nil {
		t.Fatalf("RemoveStory: %v", err)
	}
	if len(inc.Stories) != 0 {
		t.Errorf("increment copy still has %d stories", len(inc.Stories))
	}
	if err := g.RemoveStory("Shop", "Browse", "Find products"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove: %v", err)
	}
}

func TestStoryUsers(t *testing.T) {
	g := shopGraph()
	if err := g.AddUserToStory("Shop", "Browse", "Search", "Admin"); err != nil {
		t.Fatalf("AddUserToStory: %v", err)
	}
	if err := g.AddUserToStory("Shop", "Browse", "Search", "Admin"); err != nil {
		t.Fatalf("AddUserToStory repeat: %v", err)
	}
	s := g.Epic("Shop").Feature("Browse").Story("Search")
	if diff := cmp.Diff([]string{"Customer", "Admin"}, s.Users); diff != "" {
		t.Errorf("users (-want +got):\n%s", diff)
	}
	inc := g.Increments[0].Epic("Shop").Feature("Browse").Story("Search")
	if !inc.HasUser("Admin") {
		t.Error("increment copy missing added user")
	}

	if err := g.RemoveUserFromStory("Shop", "Browse", "Search", "Customer"); err != nil {
		t.Fatalf("RemoveUserFromStory: %v", err)
	}
	if s.HasUser("Customer") || inc.HasUser("Customer") {
		t.Error("user not removed everywhere")
	}
	err := g.RemoveUserFromStory("Shop", "Browse", "Search", "Nobody")
	var ee *EditError
	if !errors.As(err, &ee) || ee.Kind != "user" || !errors.Is(err, ErrNotFound) {
		t.Errorf("remove missing user: %v", err)
	}
	if got := err.Error(); got != `remove user: user "Nobody": not found` {
		t.Errorf("error text = %q", got)
	}
}
