// Package report renders circuit manifests.
//
// [Write] supports these formats:
//
//   - text: a terminal table (lipgloss) with one row per circuit and a
//     description grouping its devices by kind and room, "outlet: 1.02 (2×)"
//   - csv: one row per circuit member
//   - json, yaml: the manifest structure
//   - cbor: the manifest in deterministic (canonical) CBOR
//   - dot, svg: a supply → circuit → device graph, rendered with Graphviz
//
// Supply columns are left out when the drawing has no supplies at all.
package report
