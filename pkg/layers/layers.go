package layers

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/floorplan/pkg/annotation"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// Selection is the set of layers one output page shows.
type Selection struct {
	Name   string   // Output the page belongs to, used in error messages
	Page   int      // Page order index within the output (0-based)
	Layers []string // Layer IDs to show
}

// Mask is the resolved visibility of every layer of a drawing for one page.
// The zero Mask hides nothing because it knows no layers; use [Resolve].
type Mask struct {
	order   []string
	visible map[string]bool
}

// Visible reports whether layer id is shown. Unknown IDs are not visible.
func (m Mask) Visible(id string) bool { return m.visible[id] }

// Known reports whether the mask covers layer id.
func (m Mask) Known(id string) bool {
	_, ok := m.visible[id]
	return ok
}

// LayerIDs returns every layer the mask covers, in document order.
func (m Mask) LayerIDs() []string { return slices.Clone(m.order) }

// VisibleIDs returns the visible layers sorted by ID.
func (m Mask) VisibleIDs() []string {
	var out []string
	for id, v := range m.visible {
		if v {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Count returns the number of visible layers.
func (m Mask) Count() int {
	n := 0
	for _, v := range m.visible {
		if v {
			n++
		}
	}
	return n
}

// All yields every layer ID with its visibility, in document order.
func (m Mask) All() iter.Seq2[string, bool] {
	return func(yield func(string, bool) bool) {
		for _, id := range m.order {
			if !yield(id, m.visible[id]) {
				return
			}
		}
	}
}

// Map returns a copy of the mask as a plain map.
func (m Mask) Map() map[string]bool { return maps.Clone(m.visible) }

// Equal reports whether two masks cover the same layers with the same
// visibility.
func (m Mask) Equal(other Mask) bool {
	return slices.Equal(m.order, other.order) && maps.Equal(m.visible, other.visible)
}

// UnknownLayerReferenceError reports layer IDs a selection names but the
// drawing does not have.
type UnknownLayerReferenceError struct {
	Output string
	Page   int
	Layers []string // Every unknown ID, in selection order
}

func (e *UnknownLayerReferenceError) Error() string {
	msg := fmt.Sprintf("unknown layer reference %q", e.Layers[0])
	if n := len(e.Layers) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more: %s)", n, strings.Join(e.Layers[1:], ", "))
	}
	return msg
}

// Resolve computes the visibility mask of one page.
//
// Every layer starts hidden. Layers named by the selection become visible,
// and so does every ancestor of a visible layer, whatever its stored flag: a
// hidden group suppresses its descendants, so a requested child needs its
// parents shown. An empty selection yields a mask with no visible layer.
//
// Every referenced ID is checked before anything is computed. Unknown IDs
// fail with UNKNOWN_LAYER_REFERENCE wrapping an
// [*UnknownLayerReferenceError] that lists all of them.
func Resolve(sel Selection, m *annotation.Model) (Mask, error) {
	var unknown []string
	for _, id := range sel.Layers {
		if !m.HasLayer(id) && !slices.Contains(unknown, id) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		cause := &UnknownLayerReferenceError{Output: sel.Name, Page: sel.Page, Layers: unknown}
		return Mask{}, ferrors.Wrap(ferrors.ErrCodeUnknownLayerReference, cause,
			"%s page %d", describe(sel.Name), sel.Page+1)
	}

	ids := m.LayerIDs()
	mask := Mask{order: ids, visible: make(map[string]bool, len(ids))}
	for _, id := range ids {
		mask.visible[id] = false
	}
	for _, id := range sel.Layers {
		if mask.visible[id] {
			continue
		}
		mask.visible[id] = true
		ancestors, err := m.Ancestors(id)
		if err != nil {
			return Mask{}, err
		}
		for _, a := range ancestors {
			mask.visible[a] = true
		}
	}
	return mask, nil
}

// ResolveAll resolves every page of one output, in page order. The first
// unknown reference aborts the output as a whole.
func ResolveAll(pages []Selection, m *annotation.Model) ([]Mask, error) {
	masks := make([]Mask, len(pages))
	for i, sel := range pages {
		mask, err := Resolve(sel, m)
		if err != nil {
			return nil, err
		}
		masks[i] = mask
	}
	return masks, nil
}

// Stored returns the mask of the drawing as saved: each layer's own flag,
// without ancestor rules.
func Stored(m *annotation.Model) Mask {
	all := m.Layers()
	mask := Mask{order: make([]string, len(all)), visible: make(map[string]bool, len(all))}
	for i, l := range all {
		mask.order[i] = l.ID
		mask.visible[l.ID] = !l.Hidden
	}
	return mask
}

func describe(name string) string {
	if name == "" {
		return "selection"
	}
	return fmt.Sprintf("output %q", name)
}
