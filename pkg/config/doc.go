// Package config loads the output configuration of a floorplan.
//
// A configuration file (floorplan.toml, or floorplan.yaml) declares the
// annotation vocabulary, the circuit rules and named sets of outputs. Each
// output is a file made of pages; each page lists the layers it shows:
//
//	[vars]
//	floor = ["V0", "V1"]
//
//	[[sets.Basis]]
//	filename = "Plattegrond.pdf"
//	title = "Plattegrond"
//	each = "floor"
//	  [[sets.Basis.pages]]
//	  subtitle = "Verdieping ${floor}"
//	  layers = ["Titelblok", "${floor}_basistekening"]
//
// Layer names may contain ${name} templates. They are expanded over every
// combination of the bound values and the results are shown together on the
// page, so vars = { floor = ["V0", "V00"] } puts both mezzanine levels on one
// sheet. Page variables override output variables, which override the
// top-level [vars]. An output with each = "floor" repeats its pages once per
// value of that top-level variable.
//
// [Load] returns a fully expanded [Config]: templates are gone, formats and
// page sizes are resolved, and layer references are plain identifiers ready
// for the layer selector. Whether those layers exist is checked against the
// drawing at export time.
package config
