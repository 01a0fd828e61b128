// Package annotation provides the typed model of an annotated floorplan.
//
// # Overview
//
// A floorplan drawing is the single source of building information: rooms,
// outlets, switches, distribution boards and circuit assignments all live on
// named Inkscape layers of one SVG file. This package turns the markup tree
// into a [Model] that the layer selector and the circuit builder can query
// without knowing anything about the markup parser.
//
// Layers are stored in an identifier-indexed map with explicit parent IDs, so
// ancestor lookups never follow handles into the original document. The model
// is built once per run by [Load] and is read-only afterwards.
//
// # Annotations
//
// An element inside a layer is an annotation when it carries at least one
// attribute in the vocabulary's namespace (data-* by default):
//
//	<use xlink:href="#wcd" id="D1" data-device="outlet" data-circuit="12" data-room="1.02"/>
//	<rect id="B12" data-supply="B16" data-circuit="12"/>
//	<path data-circuit-link="D7" data-circuit="7A"/>
//
// Its [Kind] is decided by the first marker key present, in the order
// circuit-link, supply, device, room, label. Anything else is [KindOther].
//
// Drawings produced with symbol libraries often keep the circuit number as a
// visible text inside the symbol group. [Vocabulary.TextClasses] maps such a
// text's CSS class to an attribute key:
//
//	vocab.TextClasses = map[string]string{"elektra-groep": "data-circuit"}
//
// Elements without an id receive a synthesized one of the form "<layer>#<n>"
// so every error can name the element it is about.
//
// # Usage
//
//	m, err := annotation.LoadFile("plan.svg", annotation.DefaultVocabulary())
//	if err != nil {
//	    return err
//	}
//	for dev := range m.All(annotation.KindDevice) {
//	    fmt.Println(dev.ID, dev.Attr("data-circuit"))
//	}
package annotation
