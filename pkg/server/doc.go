// Package server exposes a drawing over a small read-only HTTP API.
//
// Routes:
//
//	GET /healthz
//	GET /api/layers                                    layer tree with stored and effective visibility
//	GET /api/circuits?format=json|yaml|csv|text|cbor|dot|svg
//	GET /api/sets                                      configured sets and their outputs
//	GET /api/sets/{set}/{output}/pages/{page}/mask     resolved visibility of one page
//	GET /api/sets/{set}/{output}/pages/{page}.svg      the composed page
//
// Pages are numbered from 1. The drawing is read again on every request;
// the configuration is fixed at startup. Errors are JSON objects with an
// error message and code. Circuit validation failures answer 422 with every
// issue and the best-effort manifest.
package server
