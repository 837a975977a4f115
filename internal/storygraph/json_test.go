package storygraph

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleGraph = `{
  "epics": [
    {
      "name": "Shop",
      "users": ["Customer"],
      "sequential_order": 1,
      "features": [
        {
          "name": "Browse",
          "users": ["Customer"],
          "sequential_order": 1,
          "story_count": 5,
          "stories": [
            {"name": "Search <products>", "users": ["Customer"], "sequential_order": 1, "Steps": ["Given a catalog", "When I search"]},
            {"name": "Filter results", "users": [], "sequential_order": 1.10},
            {"name": "Index catalog", "users": ["Indexer"], "sequential_order": "2", "story_type": "system"}
          ]
        }
      ]
    }
  ],
  "increments": [
    {"name": "MVP", "priority": 1, "epics": [{"name": "Shop", "users": [], "sequential_order": 1, "features": [
      {"name": "Browse", "users": [], "sequential_order": 1, "stories": [{"name": "Search <products>", "users": ["Customer"], "sequential_order": 1}]}
    ]}]}
  ],
  "solution": {"name": "Storefront"}
}`

func TestDecode(t *testing.T) {
	g, err := Decode(strings.NewReader(sampleGraph))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(g.Epics) != 1 || len(g.Increments) != 1 {
		t.Fatalf("got %d epics, %d increments", len(g.Epics), len(g.Increments))
	}
	f := g.Epics[0].Feature("Browse")
	if f == nil {
		t.Fatal("feature Browse missing")
	}
	if f.StoryCount == nil || *f.StoryCount != 5 {
		t.Errorf("story_count = %v, want 5", f.StoryCount)
	}

	for _, tc := range []struct {
		story string
		order Order
		typ   StoryType
	}{
		{"Search <products>", Order{Base: 1}, ""},
		{"Filter results", Order{Base: 1, Sub: 10}, ""},
		{"Index catalog", Order{Base: 2}, StoryTypeSystem},
	} {
		s := f.Story(tc.story)
		if s == nil {
			t.Errorf("story %q missing", tc.story)
			continue
		}
		if s.Order != tc.order {
			t.Errorf("%s: order = %v, want %v", tc.story, s.Order, tc.order)
		}
		if s.Type != tc.typ {
			t.Errorf("%s: type = %q, want %q", tc.story, s.Type, tc.typ)
		}
	}

	steps := f.Story("Search <products>").Fields["Steps"]
	if !json.Valid(steps) || !strings.Contains(string(steps), "Given a catalog") {
		t.Errorf("Steps passthrough = %s", steps)
	}
	if _, ok := g.Fields["solution"]; !ok {
		t.Error("top-level passthrough key lost")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	g, err := Decode(strings.NewReader(sampleGraph))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`"sequential_order": 1.10`,
		`"Search <products>"`,
		`"story_type": "system"`,
		`"Steps": [`,
		`"solution": {`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("encoded graph missing %s\n%s", want, out)
		}
	}

	again, err := Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Decode again: %v", err)
	}
	if diff := cmp.Diff(normalizeRaw(g), normalizeRaw(again)); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestEncodeEmptyUsers(t *testing.T) {
	g := &Graph{Epics: []*Epic{{Name: "E", Order: 1, Features: []*Feature{{Name: "F", Order: 1}}}}}
	var buf bytes.Buffer
	if err := Encode(&buf, g); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(buf.String(), "null") {
		t.Errorf("encoded graph contains null:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "increments") {
		t.Errorf("empty increments should be omitted:\n%s", buf.String())
	}
}

func TestDecodeFillsMissingOrders(t *testing.T) {
	g, err := Decode(strings.NewReader(`{"epics":[
		{"name":"A","features":[{"name":"F","stories":[{"name":"s1"},{"name":"s2","sequential_order":4},{"name":"s3"}]}]},
		{"name":"B","sequential_order":3}
	]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := g.Epic("A").Order; got != 4 {
		t.Errorf("epic A order = %d, want 4", got)
	}
	var got []string
	for _, s := range g.Epic("A").Feature("F").OrderedStories() {
		got = append(got, s.Name+"="+s.Order.String())
	}
	want := []string{"s2=4", "s1=5", "s3=6"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("orders (-want +got):\n%s", diff)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"not json", `epics:`},
		{"bad order", `{"epics":[{"name":"A","sequential_order":"x"}]}`},
		{"wrong type", `{"epics":{"name":"A"}}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), "decode story graph:") {
				t.Errorf("error = %q", err)
			}
		})
	}
}

// normalizeRaw compacts passthrough values so whitespace differences from
// re-indentation do not show up in comparisons.
func normalizeRaw(g *Graph) *Graph {
	c := g.Clone()
	fix := func(m map[string]json.RawMessage) {
		for k, v := range m {
			var buf bytes.Buffer
			if err := json.Compact(&buf, v); err == nil {
				m[k] = buf.Bytes()
			}
		}
	}
	fix(c.Fields)
	walk := func(epics []*Epic) {
		for _, e := range epics {
			fix(e.Fields)
			for _, f := range e.Features {
				fix(f.Fields)
				for _, s := range f.Stories {
					fix(s.Fields)
				}
			}
		}
	}
	walk(c.Epics)
	for _, inc := range c.Increments {
		fix(inc.Fields)
		walk(inc.Epics)
	}
	return c
}
