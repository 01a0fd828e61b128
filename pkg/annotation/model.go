package annotation

import (
	"iter"
	"maps"
	"slices"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// Layer is a named, nestable visibility group of the drawing.
//
// Parent and Children hold layer IDs rather than references, so the layer
// tree can be walked without the markup tree it was read from.
type Layer struct {
	ID       string   // Unique identifier: inkscape:label, else the id attribute
	Name     string   // Display name
	XMLID    string   // id attribute, may be empty
	Parent   string   // Parent layer ID, "" for top-level layers
	Hidden   bool     // Stored flag: display:none on the layer itself
	Depth    int      // 0 for top-level layers
	Index    int      // Position in document order among all layers
	Children []string // Child layer IDs in document order

	elements []int
}

// Element is a typed annotation fact attached to a shape within a layer.
type Element struct {
	ID         string            // id attribute, or a synthesized "<layer>#<n>"
	Kind       Kind              // Classification by vocabulary marker keys
	Attributes map[string]string // Annotation attributes, keys case-sensitive
	Layer      string            // Owning (nearest enclosing) layer ID
	Tag        string            // Element name, e.g. "use", "g", "rect"
	Symbol     string            // For <use> clones: referenced symbol id
	Text       string            // Text content of <text> elements
	Index      int               // Position in document order among all elements
	Synthetic  bool              // ID was synthesized because the element has none
}

// Attr returns the value of an annotation attribute.
func (e Element) Attr(key string) string { return e.Attributes[key] }

// HasAttr reports whether the element carries key, even with an empty value.
func (e Element) HasAttr(key string) bool {
	_, ok := e.Attributes[key]
	return ok
}

func (e Element) clone() Element {
	e.Attributes = maps.Clone(e.Attributes)
	return e
}

// Model is the read-only view of one drawing's layers and annotations.
// It is safe for concurrent use: nothing mutates it after [Load] returns.
type Model struct {
	vocab    Vocabulary
	source   string
	layers   []*Layer
	byID     map[string]*Layer
	elements []Element
}

// Vocabulary returns the vocabulary the model was loaded with.
func (m *Model) Vocabulary() Vocabulary { return m.vocab }

// Source returns the path of the loaded drawing, or "" when it was parsed
// from memory.
func (m *Model) Source() string { return m.source }

// Layers returns every layer in document (pre-)order.
func (m *Model) Layers() []Layer {
	out := make([]Layer, len(m.layers))
	for i, l := range m.layers {
		out[i] = l.copy()
	}
	return out
}

// LayerIDs returns every layer ID in document order.
func (m *Model) LayerIDs() []string {
	ids := make([]string, len(m.layers))
	for i, l := range m.layers {
		ids[i] = l.ID
	}
	return ids
}

// Layer looks up a layer by ID.
func (m *Model) Layer(id string) (Layer, bool) {
	l, ok := m.byID[id]
	if !ok {
		return Layer{}, false
	}
	return l.copy(), true
}

// HasLayer reports whether id names a layer of the drawing.
func (m *Model) HasLayer(id string) bool {
	_, ok := m.byID[id]
	return ok
}

// ElementsOf returns the annotation elements owned directly by a layer, in
// document order. Elements of child layers are not included.
func (m *Model) ElementsOf(layerID string) ([]Element, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return nil, ferrors.New(ferrors.ErrCodeUnknownLayer, "unknown layer %q", layerID)
	}
	out := make([]Element, len(l.elements))
	for i, idx := range l.elements {
		out[i] = m.elements[idx].clone()
	}
	return out, nil
}

// All yields the elements of the given kind in document order, or every
// element for [KindAny]. Each call starts a fresh scan.
func (m *Model) All(kind Kind) iter.Seq[Element] {
	return func(yield func(Element) bool) {
		for _, e := range m.elements {
			if kind != KindAny && e.Kind != kind {
				continue
			}
			if !yield(e.clone()) {
				return
			}
		}
	}
}

// Count returns the number of elements of kind, or of all elements for [KindAny].
func (m *Model) Count(kind Kind) int {
	n := 0
	for range m.All(kind) {
		n++
	}
	return n
}

// Element returns the first element in document order with the given ID.
func (m *Model) Element(id string) (Element, bool) {
	for _, e := range m.elements {
		if e.ID == id {
			return e.clone(), true
		}
	}
	return Element{}, false
}

// Ancestors returns the IDs of a layer's ancestors, nearest first.
func (m *Model) Ancestors(layerID string) ([]string, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return nil, ferrors.New(ferrors.ErrCodeUnknownLayer, "unknown layer %q", layerID)
	}
	var out []string
	for p := l.Parent; p != ""; p = m.byID[p].Parent {
		out = append(out, p)
	}
	return out, nil
}

// EffectivelyVisible reports whether a layer shows in the drawing as
// stored: its own flag and those of all its ancestors must be visible.
func (m *Model) EffectivelyVisible(layerID string) (bool, error) {
	l, ok := m.byID[layerID]
	if !ok {
		return false, ferrors.New(ferrors.ErrCodeUnknownLayer, "unknown layer %q", layerID)
	}
	for ; l != nil; l = m.byID[l.Parent] {
		if l.Hidden {
			return false, nil
		}
	}
	return true, nil
}

func (l *Layer) copy() Layer {
	c := *l
	c.Children = slices.Clone(l.Children)
	c.elements = nil
	return c
}
