// Package layers decides which layers of a drawing are visible on a page.
//
// An output page is described by a [Selection]: the IDs of the layers it
// shows. [Resolve] turns it into a [Mask] covering every layer of the
// drawing. Requested layers are shown together with all their ancestors,
// because in the SVG a hidden group hides everything inside it regardless of
// the children's own flags. Everything else is hidden.
//
// References are validated before any mask is produced: a selection naming a
// layer the drawing does not have fails with UNKNOWN_LAYER_REFERENCE, so no
// page of that output is ever rendered with a silently missing layer.
//
//	mask, err := layers.Resolve(layers.Selection{Layers: []string{"Electrical"}}, model)
//	if err != nil {
//	    var ref *layers.UnknownLayerReferenceError
//	    if errors.As(err, &ref) {
//	        fmt.Println("missing:", ref.Layers)
//	    }
//	}
//
// Resolution is a pure function of the model and the selection; masks are
// recomputed for every page and never cached.
package layers
