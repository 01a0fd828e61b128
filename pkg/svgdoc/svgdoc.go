package svgdoc

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

const (
	// GroupModeLayer is the inkscape:groupmode value that turns a <g> into a layer.
	GroupModeLayer = "layer"

	attrGroupMode = "inkscape:groupmode"
	attrLabel     = "inkscape:label"
	attrID        = "id"
	attrStyle     = "style"
	attrDisplay   = "display"
)

// Document is a parsed SVG drawing. It is safe to read concurrently; writers
// must work on a [Document.Clone].
type Document struct {
	tree *etree.Document
	path string
}

// Parse reads an SVG document from r.
// Syntax errors are reported as MALFORMED_DOCUMENT.
func Parse(r io.Reader) (*Document, error) {
	tree := etree.NewDocument()
	if _, err := tree.ReadFrom(r); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeMalformedDocument, err, "parse svg")
	}
	if tree.Root() == nil {
		return nil, ferrors.New(ferrors.ErrCodeMalformedDocument, "document has no root element")
	}
	return &Document{tree: tree}, nil
}

// ParseBytes is [Parse] over an in-memory document.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// ReadFile parses the SVG file at path.
func ReadFile(path string) (*Document, error) {
	if err := ferrors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ferrors.Wrap(ferrors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeMalformedDocument, err, "read %s", path)
	}
	doc.path = path
	return doc, nil
}

// Path returns the file the document was read from, or "" for in-memory documents.
func (d *Document) Path() string { return d.path }

// Root returns the document's root element.
func (d *Document) Root() *etree.Element { return d.tree.Root() }

// Clone returns a deep copy that can be modified without affecting d.
func (d *Document) Clone() *Document {
	return &Document{tree: d.tree.Copy(), path: d.path}
}

// WriteTo serializes the document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.tree.WriteTo(w)
}

// Bytes serializes the document.
func (d *Document) Bytes() ([]byte, error) {
	return d.tree.WriteToBytes()
}

// SetPageSize overrides the width and height attributes of the root element.
// Empty values leave the corresponding attribute untouched.
func (d *Document) SetPageSize(width, height string) {
	root := d.Root()
	if width != "" {
		root.CreateAttr("width", width)
	}
	if height != "" {
		root.CreateAttr("height", height)
	}
}

// ElementByID returns the first element in document order whose id attribute
// equals id, or nil.
func (d *Document) ElementByID(id string) *etree.Element {
	var found *etree.Element
	Walk(d.Root(), func(e *etree.Element) bool {
		if found != nil {
			return false
		}
		if e.SelectAttrValue(attrID, "") == id {
			found = e
			return false
		}
		return true
	})
	return found
}

// Layers returns every layer group in document (pre-)order.
func (d *Document) Layers() []*etree.Element {
	var out []*etree.Element
	Walk(d.Root(), func(e *etree.Element) bool {
		if IsLayer(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

// Walk visits e and its descendants in document order. Returning false from
// fn skips the children of the visited element.
func Walk(e *etree.Element, fn func(*etree.Element) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, child := range e.ChildElements() {
		Walk(child, fn)
	}
}

// IsLayer reports whether e is an Inkscape layer.
func IsLayer(e *etree.Element) bool {
	return e.Tag == "g" && e.SelectAttrValue(attrGroupMode, "") == GroupModeLayer
}

// IsRoot reports whether e is an <svg> element.
func IsRoot(e *etree.Element) bool {
	return e != nil && e.Tag == "svg"
}

// Label returns the inkscape:label of e.
func Label(e *etree.Element) string {
	return strings.TrimSpace(e.SelectAttrValue(attrLabel, ""))
}

// ID returns the id attribute of e.
func ID(e *etree.Element) string {
	return strings.TrimSpace(e.SelectAttrValue(attrID, ""))
}

// LayerID returns the identifier configurations use for a layer: its label,
// or its id when the label is missing.
func LayerID(e *etree.Element) string {
	if label := Label(e); label != "" {
		return label
	}
	return ID(e)
}

// IsHidden reports whether e carries display:none, either in its style or as
// a presentation attribute.
func IsHidden(e *etree.Element) bool {
	if v, ok := StyleValue(e.SelectAttrValue(attrStyle, ""), attrDisplay); ok {
		return v == "none"
	}
	return strings.TrimSpace(e.SelectAttrValue(attrDisplay, "")) == "none"
}

// SetVisible writes display:inline or display:none into the style of e.
func SetVisible(e *etree.Element, visible bool) {
	value := "none"
	if visible {
		value = "inline"
	}
	e.CreateAttr(attrStyle, SetStyleValue(e.SelectAttrValue(attrStyle, ""), attrDisplay, value))
	e.RemoveAttr(attrDisplay)
}

// SetOpacity writes an opacity property into the style of e.
func SetOpacity(e *etree.Element, opacity float64) {
	v := strconv.FormatFloat(opacity, 'g', -1, 64)
	e.CreateAttr(attrStyle, SetStyleValue(e.SelectAttrValue(attrStyle, ""), "opacity", v))
}

// Href returns the fragment a <use> element points to, without the leading '#'.
func Href(e *etree.Element) string {
	href := e.SelectAttrValue("xlink:href", "")
	if href == "" {
		href = e.SelectAttrValue("href", "")
	}
	return strings.TrimPrefix(strings.TrimSpace(href), "#")
}

// Class returns the class attribute of e.
func Class(e *etree.Element) string {
	return strings.TrimSpace(e.SelectAttrValue("class", ""))
}

// TextContent concatenates all character data below e. Text split over
// several tspan lines is joined with a single space.
func TextContent(e *etree.Element) string {
	var parts []string
	var collect func(*etree.Element)
	collect = func(el *etree.Element) {
		for _, tok := range el.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				if s := strings.TrimSpace(t.Data); s != "" {
					parts = append(parts, s)
				}
			case *etree.Element:
				collect(t)
			}
		}
	}
	collect(e)
	return strings.Join(parts, " ")
}

// SetText replaces the text of e. When e holds tspan lines, the first line
// receives the text and the others are left as they are, matching how title
// blocks are laid out in Inkscape.
func SetText(e *etree.Element, text string) {
	for _, child := range e.ChildElements() {
		if child.Tag == "tspan" {
			child.SetText(text)
			return
		}
	}
	e.SetText(text)
}
