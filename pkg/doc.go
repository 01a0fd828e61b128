// Package pkg provides the core libraries of floorplan.
//
// # Overview
//
// Floorplan treats one annotated Inkscape drawing as the source of building
// information. Layers group what a sheet shows (base drawing, rooms, the
// electrical installation per floor); data-* attributes on shapes say what
// they are (a device on circuit 12 in room 1.02, the breaker feeding it).
// From that drawing the libraries derive:
//
//  1. Composed documents: page sets where each page shows a chosen
//     combination of layers, exported as PDF, SVG or PNG
//  2. Reports: the bill of electrical circuits, listing the devices wired
//     to each circuit, as a table, CSV, JSON, YAML, CBOR or graph
//
// # Architecture
//
// The data flow:
//
//	SVG file
//	   ↓
//	[svgdoc] (read the markup tree)
//	   ↓
//	[annotation] (typed model of layers and annotated elements)
//	   ↓                          ↓
//	[layers] (visibility masks)   [circuit] (grouping, validation, natural order)
//	   ↓                          ↓
//	[export] (render + assemble)  [report] (manifest formats)
//
// [config] describes which pages to export and how annotations are named.
// [render] applies a mask to a copy of the drawing and converts it with an
// external tool. [server] serves all of it over HTTP.
//
// # Quick Start
//
//	doc, _ := svgdoc.ReadFile("plan.svg")
//	m, _ := annotation.Load(doc, annotation.DefaultVocabulary())
//
//	// Which layers does a page showing the kitchen outlets need?
//	mask, _ := layers.Resolve(layers.Selection{Layers: []string{"V0_Elektra"}}, m)
//	fmt.Println(mask.VisibleIDs())
//
//	// The circuits, naturally ordered.
//	manifest, err := circuit.Build(m, circuit.Options{})
//	if err != nil {
//	    // *circuit.ValidationErrors lists every violation; manifest is
//	    // still the best-effort result.
//	}
//	report.Write(os.Stdout, manifest, report.FormatText)
//
// # Main Packages
//
// [annotation] - The read-only model: layers (IDs, parents, stored
// visibility) and annotation elements (kind, attributes, owning layer),
// classified by a configurable [annotation.Vocabulary].
//
// [layers] - Resolves a page's layer selection into a visibility mask.
// Ancestors of shown layers are shown; unknown names fail before rendering.
//
// [circuit] - Builds circuits from devices, circuit links and supplies,
// reports every validation error at once and orders circuits naturally
// (1, 2, 10, 10a).
//
// [export] - Renders the pages of many outputs concurrently and assembles
// them in page order.
//
// [report] - Writes a circuit manifest in every supported format.
//
// ## Infrastructure
//
// [config] - TOML/YAML configuration with ${var} layer templates.
//
// [errors] - Code-based structured errors shared by all packages.
//
// [observability] - Optional hooks for loads, builds and page renders.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/circuit/...            # Specific package
//	go test -run Example ./pkg/...       # Examples only
//
// [svgdoc]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/svgdoc
// [annotation]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/annotation
// [annotation.Vocabulary]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/annotation#Vocabulary
// [layers]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/layers
// [circuit]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/circuit
// [export]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/export
// [report]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/report
// [render]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/render
// [server]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/server
// [config]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/floorplan/pkg/observability
package pkg
