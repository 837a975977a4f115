// Package diagram reads and writes draw.io story-map diagrams.
//
// A decoded Diagram is a flat list of cells. Each vertex cell carries its
// geometry and a ShapeKind resolved once from the palette, so callers never
// compare color strings themselves.
package diagram

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/storymap/internal/geometry"
)

// ErrNoGraphModel is returned when a document has no mxGraphModel to read.
var ErrNoGraphModel = errors.New("diagram has no graph model")

// Root cell ids every draw.io model starts with.
const (
	RootCellID  = "0"
	LayerCellID = "1"
)

// Cell is one mxCell. Geometry is nil for cells without an mxGeometry.
type Cell struct {
	ID       string
	Value    string
	Style    string
	Parent   string
	Vertex   bool
	Edge     bool
	Geometry *geometry.Rect

	Kind    ShapeKind
	Variant string
}

// Diagram is a single draw.io page.
type Diagram struct {
	Name  string
	Cells []*Cell
}

// AddShape appends a vertex cell on the default layer.
func (d *Diagram) AddShape(id string, kind ShapeKind, variant, value string, r geometry.Rect) *Cell {
	c := &Cell{
		ID:       id,
		Value:    value,
		Style:    Style(kind, variant),
		Parent:   LayerCellID,
		Vertex:   true,
		Geometry: &r,
		Kind:     kind,
		Variant:  variant,
	}
	d.Cells = append(d.Cells, c)
	return c
}

// Shapes returns the vertex cells of the given kind in document order.
func (d *Diagram) Shapes(kind ShapeKind) []*Cell {
	var out []*Cell
	for _, c := range d.Cells {
		if c.Vertex && c.Geometry != nil && c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Cell returns the cell with the given id, or nil.
func (d *Diagram) Cell(id string) *Cell {
	for _, c := range d.Cells {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// --- Wire format ---

type xmlFile struct {
	XMLName xml.Name  `xml:"mxfile"`
	Host    string    `xml:"host,attr,omitempty"`
	Pages   []xmlPage `xml:"diagram"`
}

type xmlPage struct {
	ID    string    `xml:"id,attr,omitempty"`
	Name  string    `xml:"name,attr,omitempty"`
	Model *xmlModel `xml:"mxGraphModel"`
	Data  string    `xml:",chardata"`
}

type xmlModel struct {
	XMLName    xml.Name `xml:"mxGraphModel"`
	Grid       string   `xml:"grid,attr,omitempty"`
	GridSize   string   `xml:"gridSize,attr,omitempty"`
	Guides     string   `xml:"guides,attr,omitempty"`
	Tooltips   string   `xml:"tooltips,attr,omitempty"`
	Connect    string   `xml:"connect,attr,omitempty"`
	Arrows     string   `xml:"arrows,attr,omitempty"`
	Fold       string   `xml:"fold,attr,omitempty"`
	Page       string   `xml:"page,attr,omitempty"`
	PageScale  string   `xml:"pageScale,attr,omitempty"`
	PageWidth  string   `xml:"pageWidth,attr,omitempty"`
	PageHeight string   `xml:"pageHeight,attr,omitempty"`
	Root       xmlRoot  `xml:"root"`
}

type xmlRoot struct {
	Cells []xmlCell `xml:"mxCell"`
}

type xmlCell struct {
	ID       string       `xml:"id,attr"`
	Value    string       `xml:"value,attr,omitempty"`
	Style    string       `xml:"style,attr,omitempty"`
	Parent   string       `xml:"parent,attr,omitempty"`
	Vertex   string       `xml:"vertex,attr,omitempty"`
	Edge     string       `xml:"edge,attr,omitempty"`
	Geometry *xmlGeometry `xml:"mxGeometry"`
}

type xmlGeometry struct {
	X      string `xml:"x,attr,omitempty"`
	Y      string `xml:"y,attr,omitempty"`
	Width  string `xml:"width,attr,omitempty"`
	Height string `xml:"height,attr,omitempty"`
	As     string `xml:"as,attr,omitempty"`
}

// xmlObject is draw.io's wrapper for cells with custom properties; the label
// lives on the wrapper instead of the inner mxCell.
type xmlObject struct {
	ID    string  `xml:"id,attr"`
	Label string  `xml:"label,attr"`
	Cell  xmlCell `xml:"mxCell"`
}

// UnmarshalXML accepts plain mxCell children as well as object/UserObject wrappers.
func (r *xmlRoot) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "mxCell":
				var c xmlCell
				if err := d.DecodeElement(&c, &t); err != nil {
					return err
				}
				r.Cells = append(r.Cells, c)
			case "object", "UserObject":
				var o xmlObject
				if err := d.DecodeElement(&o, &t); err != nil {
					return err
				}
				c := o.Cell
				c.ID = o.ID
				if o.Label != "" {
					c.Value = o.Label
				}
				r.Cells = append(r.Cells, c)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// --- Decode ---

// Decode parses a draw.io document. The root may be an mxfile (plain or
// compressed first page) or a bare mxGraphModel.
func Decode(r io.Reader) (*Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, ErrNoGraphModel
		}
		if err != nil {
			return nil, fmt.Errorf("parse diagram: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "mxfile":
			var f xmlFile
			if err := dec.DecodeElement(&f, &start); err != nil {
				return nil, fmt.Errorf("parse diagram: %w", err)
			}
			return fromFile(&f)
		case "mxGraphModel":
			var m xmlModel
			if err := dec.DecodeElement(&m, &start); err != nil {
				return nil, fmt.Errorf("parse diagram: %w", err)
			}
			return fromModel("", &m)
		default:
			return nil, fmt.Errorf("%w: unexpected root element <%s>", ErrNoGraphModel, start.Name.Local)
		}
	}
}

func fromFile(f *xmlFile) (*Diagram, error) {
	if len(f.Pages) == 0 {
		return nil, ErrNoGraphModel
	}
	page := f.Pages[0]
	if page.Model != nil {
		return fromModel(page.Name, page.Model)
	}
	payload := strings.TrimSpace(page.Data)
	if payload == "" {
		return nil, ErrNoGraphModel
	}
	m, err := inflate(payload)
	if err != nil {
		return nil, fmt.Errorf("decompress page %q: %w", page.Name, err)
	}
	return fromModel(page.Name, m)
}

// inflate decodes draw.io's compressed page form: base64 of raw DEFLATE of
// the URI-encoded model XML.
func inflate(payload string) (*xmlModel, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64: %w", err)
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	inflated, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	text, err := url.PathUnescape(string(inflated))
	if err != nil {
		return nil, fmt.Errorf("unescape: %w", err)
	}
	var m xmlModel
	if err := xml.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	return &m, nil
}

func fromModel(name string, m *xmlModel) (*Diagram, error) {
	d := &Diagram{Name: name}
	for _, xc := range m.Root.Cells {
		c := &Cell{
			ID:     xc.ID,
			Value:  xc.Value,
			Style:  xc.Style,
			Parent: xc.Parent,
			Vertex: xc.Vertex == "1",
			Edge:   xc.Edge == "1",
		}
		if xc.Geometry != nil {
			r, err := xc.Geometry.rect()
			if err != nil {
				return nil, fmt.Errorf("cell %q: %w", xc.ID, err)
			}
			c.Geometry = &r
		}
		if c.Vertex {
			c.Kind, c.Variant = Classify(c.Style)
		}
		d.Cells = append(d.Cells, c)
	}
	return d, nil
}

func (g *xmlGeometry) rect() (geometry.Rect, error) {
	var r geometry.Rect
	for _, f := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"x", g.X, &r.X},
		{"y", g.Y, &r.Y},
		{"width", g.Width, &r.W},
		{"height", g.Height, &r.H},
	} {
		if f.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return r, fmt.Errorf("invalid geometry %s %q", f.name, f.raw)
		}
		*f.dst = v
	}
	return r, nil
}

// --- Encode ---

// Encode writes d as an uncompressed single-page mxfile.
func Encode(w io.Writer, d *Diagram) error {
	name := d.Name
	if name == "" {
		name = "Story Map"
	}
	model := &xmlModel{
		Grid: "1", GridSize: "10", Guides: "1", Tooltips: "1", Connect: "1", Arrows: "1",
		Fold: "1", Page: "1", PageScale: "1", PageWidth: "1169", PageHeight: "827",
	}
	if d.Cell(RootCellID) == nil {
		model.Root.Cells = append(model.Root.Cells,
			xmlCell{ID: RootCellID},
			xmlCell{ID: LayerCellID, Parent: RootCellID},
		)
	}
	for _, c := range d.Cells {
		model.Root.Cells = append(model.Root.Cells, toXMLCell(c))
	}
	f := xmlFile{
		Host:  "storymap",
		Pages: []xmlPage{{ID: "storymap", Name: name, Model: model}},
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode diagram: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	return nil
}

func toXMLCell(c *Cell) xmlCell {
	xc := xmlCell{ID: c.ID, Value: c.Value, Style: c.Style, Parent: c.Parent}
	if c.Vertex {
		xc.Vertex = "1"
	}
	if c.Edge {
		xc.Edge = "1"
	}
	if c.Geometry != nil {
		xc.Geometry = &xmlGeometry{
			X:      formatFloat(c.Geometry.X),
			Y:      formatFloat(c.Geometry.Y),
			Width:  formatFloat(c.Geometry.W),
			Height: formatFloat(c.Geometry.H),
			As:     "geometry",
		}
	}
	return xc
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
