// Package svgdoc reads and writes Inkscape SVG drawings.
//
// It is the thin adapter between the markup parser (github.com/beevik/etree)
// and the rest of floorplan. Layer detection follows Inkscape's conventions:
// a layer is a <g> element with inkscape:groupmode="layer", identified by its
// inkscape:label (falling back to its id), and hidden when its style carries
// display:none.
//
// Nothing outside this package and the page composer in pkg/render touches
// etree types; the annotation model copies what it needs into its own
// identifier-indexed structures.
//
//	doc, err := svgdoc.ReadFile("plan.svg")
//	for _, layer := range doc.Layers() {
//	    fmt.Println(svgdoc.LayerID(layer), svgdoc.IsHidden(layer))
//	}
package svgdoc
