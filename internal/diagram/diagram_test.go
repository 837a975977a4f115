package diagram

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/alfredjeanlab/storymap/internal/geometry"
)

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name        string
		style       string
		wantKind    ShapeKind
		wantVariant string
	}{
		{"Epic", "rounded=1;whiteSpace=wrap;html=1;fillColor=#e1d5e7;strokeColor=#9673a6;", KindEpic, ""},
		{"Feature", "fillColor=#D5E8D4;", KindFeature, ""},
		{"Story", "whiteSpace=wrap;fillColor=#fff2cc;strokeColor=#d6b656;", KindStory, ""},
		{"SystemStory", "fillColor=#1a237e;strokeColor=#0d47a1;", KindStory, VariantSystem},
		{"TechnicalStory", "fillColor=#000000;", KindStory, VariantTechnical},
		{"User", "fillColor=#dae8fc;strokeColor=#6c8ebf;", KindUser, ""},
		{"IncrementByStroke", "fillColor=#ffffff;strokeColor=#F8F7F7;", KindIncrement, ""},
		{"UnknownFill", "fillColor=#123456;", KindUnknown, ""},
		{"NoFill", "text;html=1;", KindUnknown, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			kind, variant := Classify(tc.style)
			if kind != tc.wantKind || variant != tc.wantVariant {
				t.Errorf("Classify(%q) = (%s, %q), want (%s, %q)", tc.style, kind, variant, tc.wantKind, tc.wantVariant)
			}
		})
	}
}

func TestStyle_RoundTripsThroughClassify(t *testing.T) {
	for _, tc := range []struct {
		kind    ShapeKind
		variant string
	}{
		{KindEpic, ""}, {KindFeature, ""}, {KindStory, ""}, {KindStory, VariantSystem},
		{KindStory, VariantTechnical}, {KindUser, ""}, {KindIncrement, ""},
	} {
		kind, variant := Classify(Style(tc.kind, tc.variant))
		if kind != tc.kind || variant != tc.variant {
			t.Errorf("Classify(Style(%s, %q)) = (%s, %q)", tc.kind, tc.variant, kind, variant)
		}
	}
	if got, want := Style(KindStory, "bogus"), Style(KindStory, ""); got != want {
		t.Errorf("Style with unknown variant = %q, want default %q", got, want)
	}
}

func TestParseID(t *testing.T) {
	for _, tc := range []struct {
		id       string
		wantKind ShapeKind
		wantID   StructuredID
		wantOK   bool
	}{
		{"epic3", KindEpic, StructuredID{Epic: 3}, true},
		{"e2f4", KindFeature, StructuredID{Epic: 2, Feature: 4}, true},
		{"e1f2s10", KindStory, StructuredID{Epic: 1, Feature: 2, Story: 10}, true},
		{"u7", KindUnknown, StructuredID{}, false},
		{"epic", KindUnknown, StructuredID{}, false},
		{"Xk3_Zf-12", KindUnknown, StructuredID{}, false},
	} {
		sid, kind, ok := ParseID(tc.id)
		if sid != tc.wantID || kind != tc.wantKind || ok != tc.wantOK {
			t.Errorf("ParseID(%q) = (%+v, %s, %v), want (%+v, %s, %v)", tc.id, sid, kind, ok, tc.wantID, tc.wantKind, tc.wantOK)
		}
	}
	sid, _, _ := ParseID(StoryID(1, 2, 3))
	if sid.FeatureCellID() != "e1f2" || sid.EpicCellID() != "epic1" || sid.Number() != 3 {
		t.Errorf("unexpected parents for %+v", sid)
	}
}

func TestLabel(t *testing.T) {
	five := 5
	for _, tc := range []struct {
		name      string
		value     string
		wantName  string
		wantCount int // -1 = no count
	}{
		{"Plain", "Place Order", "Place Order", -1},
		{"Rendered", Label("Checkout & Pay", &five), "Checkout & Pay", 5},
		{"SingleStory", "Refunds<br><i>1 story</i>", "Refunds", 1},
		{"DivWrapped", `<div style="x">Manage&nbsp;Cart</div><div>12 stories</div>`, "Manage Cart", 12},
		{"CountOnlyLineIsName", "5 stories", "5 stories", -1},
		{"WrappedName", "Long<br>Name", "Long Name", -1},
		{"Escaped", Label("a <b> c", nil), "a <b> c", -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			name, count := ParseLabel(tc.value)
			if name != tc.wantName {
				t.Errorf("name = %q, want %q", name, tc.wantName)
			}
			switch {
			case tc.wantCount < 0 && count != nil:
				t.Errorf("count = %d, want none", *count)
			case tc.wantCount >= 0 && (count == nil || *count != tc.wantCount):
				t.Errorf("count = %v, want %d", count, tc.wantCount)
			}
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	d := &Diagram{Name: "Map"}
	d.AddShape(EpicID(1), KindEpic, "", Label("Orders & Billing", nil), geometry.Rect{X: 20, Y: 130, W: 180.5, H: 60})
	d.AddShape(StoryID(1, 1, 1), KindStory, VariantSystem, "Sync", geometry.Rect{X: 40, Y: 420, W: 50, H: 50})

	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `width="180.5"`) {
		t.Errorf("encoded output missing fractional width:\n%s", buf.String())
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != "Map" {
		t.Errorf("Name = %q, want %q", got.Name, "Map")
	}
	epics := got.Shapes(KindEpic)
	if len(epics) != 1 {
		t.Fatalf("got %d epics, want 1", len(epics))
	}
	if name, _ := ParseLabel(epics[0].Value); name != "Orders & Billing" {
		t.Errorf("epic label = %q", name)
	}
	if *epics[0].Geometry != (geometry.Rect{X: 20, Y: 130, W: 180.5, H: 60}) {
		t.Errorf("epic geometry = %+v", *epics[0].Geometry)
	}
	stories := got.Shapes(KindStory)
	if len(stories) != 1 || stories[0].Variant != VariantSystem {
		t.Fatalf("stories = %+v", stories)
	}
	if got.Cell(RootCellID) == nil || got.Cell(LayerCellID) == nil {
		t.Error("root cells missing after round trip")
	}
}

func TestDecode_BareModelAndObjects(t *testing.T) {
	src := `<mxGraphModel><root>
  <mxCell id="0"/>
  <mxCell id="1" parent="0"/>
  <object label="Browse" id="abc"><mxCell style="fillColor=#fff2cc;" vertex="1" parent="1"><mxGeometry y="300" width="50" height="50" as="geometry"/></mxCell></object>
</root></mxGraphModel>`
	d, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	stories := d.Shapes(KindStory)
	if len(stories) != 1 {
		t.Fatalf("got %d stories, want 1", len(stories))
	}
	s := stories[0]
	if s.ID != "abc" || s.Value != "Browse" || s.Geometry.X != 0 || s.Geometry.Y != 300 {
		t.Errorf("unexpected story cell %+v geometry %+v", s, *s.Geometry)
	}
}

func TestDecode_Compressed(t *testing.T) {
	model := `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/>` +
		`<mxCell id="epic1" value="Shop" style="fillColor=#e1d5e7;" vertex="1" parent="1"><mxGeometry x="20" y="130" width="100" height="60" as="geometry"/></mxCell>` +
		`</root></mxGraphModel>`
	var deflated bytes.Buffer
	fw, err := flate.NewWriter(&deflated, flate.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(url.PathEscape(model))); err != nil {
		t.Fatal(err)
	}
	fw.Close()
	doc := `<mxfile><diagram name="Page-1">` + base64.StdEncoding.EncodeToString(deflated.Bytes()) + `</diagram></mxfile>`

	d, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if epics := d.Shapes(KindEpic); len(epics) != 1 || epics[0].Value != "Shop" {
		t.Fatalf("epics = %+v", epics)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		src      string
		wantNoGM bool
	}{
		{"EmptyFile", `<mxfile></mxfile>`, true},
		{"EmptyPage", `<mxfile><diagram name="x"></diagram></mxfile>`, true},
		{"WrongRoot", `<svg></svg>`, true},
		{"NoElements", ``, true},
		{"Malformed", `<mxfile><diagram>`, false},
		{"BadGeometry", `<mxGraphModel><root><mxCell id="2" vertex="1"><mxGeometry x="abc" as="geometry"/></mxCell></root></mxGraphModel>`, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.src))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := errors.Is(err, ErrNoGraphModel); got != tc.wantNoGM {
				t.Errorf("errors.Is(err, ErrNoGraphModel) = %v, want %v (err=%v)", got, tc.wantNoGM, err)
			}
		})
	}
}
