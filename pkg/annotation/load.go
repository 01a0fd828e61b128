package annotation

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
	"github.com/matzehuels/floorplan/pkg/svgdoc"
)

// Load builds the annotation model of a parsed drawing.
//
// Load fails with MALFORMED_DOCUMENT when the root element is not <svg>,
// when the drawing contains no layer, when a layer has neither a label nor an
// id, or when two layers resolve to the same identifier. Elements outside
// every layer are ignored.
func Load(doc *svgdoc.Document, vocab Vocabulary) (*Model, error) {
	vocab = vocab.WithDefaults()
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	root := doc.Root()
	if !svgdoc.IsRoot(root) {
		return nil, ferrors.New(ferrors.ErrCodeMalformedDocument, "root element is <%s>, want <svg>", root.Tag)
	}

	l := &loader{
		vocab:     vocab,
		model:     &Model{vocab: vocab, source: doc.Path(), byID: make(map[string]*Layer)},
		synthetic: make(map[string]int),
	}
	if err := l.visit(root, nil); err != nil {
		return nil, err
	}
	if len(l.model.layers) == 0 {
		return nil, ferrors.New(ferrors.ErrCodeMalformedDocument, "document has no layers")
	}
	return l.model, nil
}

// Parse reads a drawing from r and loads its model.
func Parse(r io.Reader, vocab Vocabulary) (*Model, error) {
	doc, err := svgdoc.Parse(r)
	if err != nil {
		return nil, err
	}
	return Load(doc, vocab)
}

// LoadFile reads the drawing at path and loads its model.
func LoadFile(path string, vocab Vocabulary) (*Model, error) {
	doc, err := svgdoc.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(doc, vocab)
}

type loader struct {
	vocab     Vocabulary
	model     *Model
	synthetic map[string]int // layer ID -> synthesized IDs handed out
}

// visit walks the children of e. layer is the nearest enclosing layer, nil
// outside every layer.
func (l *loader) visit(e *etree.Element, layer *Layer) error {
	for _, child := range e.ChildElements() {
		if err := l.node(child, layer); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) node(e *etree.Element, layer *Layer) error {
	if svgdoc.IsLayer(e) {
		sub, err := l.addLayer(e, layer)
		if err != nil {
			return err
		}
		return l.visit(e, sub)
	}

	var consumed map[*etree.Element]bool
	if layer != nil {
		consumed = l.addElement(e, layer)
	}
	for _, child := range e.ChildElements() {
		if consumed[child] {
			continue
		}
		if err := l.node(child, layer); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) addLayer(e *etree.Element, parent *Layer) (*Layer, error) {
	id := svgdoc.LayerID(e)
	if id == "" {
		return nil, ferrors.New(ferrors.ErrCodeMalformedDocument,
			"layer %d has neither inkscape:label nor id", len(l.model.layers)+1)
	}
	if _, dup := l.model.byID[id]; dup {
		return nil, ferrors.New(ferrors.ErrCodeMalformedDocument, "duplicate layer %q", id)
	}
	layer := &Layer{
		ID:     id,
		Name:   svgdoc.Label(e),
		XMLID:  svgdoc.ID(e),
		Hidden: svgdoc.IsHidden(e),
		Index:  len(l.model.layers),
	}
	if layer.Name == "" {
		layer.Name = id
	}
	if parent != nil {
		layer.Parent = parent.ID
		layer.Depth = parent.Depth + 1
		parent.Children = append(parent.Children, id)
	}
	l.model.layers = append(l.model.layers, layer)
	l.model.byID[id] = layer
	return layer, nil
}

// addElement records e as an annotation of layer when it carries annotation
// attributes. It returns the text children whose content was folded into the
// element's attributes; those are not visited again.
func (l *loader) addElement(e *etree.Element, layer *Layer) map[*etree.Element]bool {
	attrs := make(map[string]string)
	for _, a := range e.Attr {
		if key := a.FullKey(); strings.HasPrefix(key, l.vocab.AttrPrefix) {
			attrs[key] = a.Value
		}
	}
	consumed := l.textAttributes(e, attrs)
	if len(attrs) == 0 {
		return nil
	}

	el := Element{
		ID:         svgdoc.ID(e),
		Kind:       l.vocab.Classify(attrs),
		Attributes: attrs,
		Layer:      layer.ID,
		Tag:        e.Tag,
		Index:      len(l.model.elements),
	}
	if el.ID == "" {
		l.synthetic[layer.ID]++
		el.ID = fmt.Sprintf("%s#%d", layer.ID, l.synthetic[layer.ID])
		el.Synthetic = true
	}
	switch e.Tag {
	case "use":
		el.Symbol = svgdoc.Href(e)
	case "text":
		el.Text = svgdoc.TextContent(e)
	}

	layer.elements = append(layer.elements, el.Index)
	l.model.elements = append(l.model.elements, el)
	return consumed
}

// textAttributes folds <text> children of a group whose class appears in the
// vocabulary's TextClasses into attrs. Attributes set directly on the group
// take precedence.
func (l *loader) textAttributes(e *etree.Element, attrs map[string]string) map[*etree.Element]bool {
	if e.Tag != "g" || len(l.vocab.TextClasses) == 0 {
		return nil
	}
	var consumed map[*etree.Element]bool
	for _, child := range e.ChildElements() {
		if child.Tag != "text" {
			continue
		}
		for _, class := range strings.Fields(svgdoc.Class(child)) {
			key, ok := l.vocab.TextClasses[class]
			if !ok {
				continue
			}
			if _, set := attrs[key]; !set {
				attrs[key] = svgdoc.TextContent(child)
			}
			if consumed == nil {
				consumed = make(map[*etree.Element]bool)
			}
			consumed[child] = true
		}
	}
	return consumed
}
