// Package circuit derives the bill of electrical circuits from a floorplan.
//
// # Overview
//
// Devices (outlets, lamps, switches, appliances) are annotated with the
// circuit that feeds them. [Build] groups them into a [Manifest]: one
// [Circuit] per identifier with its supply and its members in document
// order, circuits sorted naturally ("2" < "12" < "12A" < "13").
//
// # Direct attributes and links
//
// A device names its circuit either directly,
//
//	<use id="D1" data-device="outlet" data-circuit="12"/>
//
// or through a separate link element, convenient when the symbol is a shared
// clone that should not carry per-instance data:
//
//	<path data-circuit-link="D1" data-circuit="12"/>
//
// Both forms are read by independent passes that feed one accumulation step.
// When a device has both, the direct attribute is authoritative and a
// conflicting link is reported as a LinkOverridden warning.
//
// # Distribution boards
//
// Circuit numbers restart on every distribution board. The board of a
// device, link or supply is the explicit prefix of its circuit identifier
// ("L01.2"), else the board named by its layer ("V0_Elektra_L01", or a
// sublayer of it). Both conventions are set by [BoardRule]. Circuits are
// ordered by board, then by number; [Manifest.Board] selects one board.
//
// # Validation
//
// Every check runs on every build, so one run reports all annotation
// defects:
//
//   - DuplicateDeviceAssignment: a device claimed by two circuits at the
//     same precedence (two links, or two elements sharing an id)
//   - MissingSupply: the drawing has supplies, but a circuit with devices
//     has none
//   - DuplicateSupply: a circuit has more than one supply on its board
//   - OrphanCircuitLink: a link points at an id that does not exist
//   - InvalidLinkTarget: a link points at something that is not a device
//   - EmptyCircuitLink, UnassignedSupply: incomplete annotations
//
// Devices without any circuit produce an UnassignedDevice warning, or an
// error with [Options.StrictUnassigned]. Circuits matched by the ignore rule
// ("NC", "4?") are left out with an IgnoredCircuit warning.
//
// On failure Build still returns the best-effort manifest next to an error
// wrapping [*ValidationErrors]:
//
//	manifest, err := circuit.Build(model, circuit.Options{})
//	var verr *circuit.ValidationErrors
//	if errors.As(err, &verr) {
//	    for _, v := range verr.Errors {
//	        fmt.Println(v.Reason, v.Circuit, v.Element)
//	    }
//	}
//
// Build is a pure function of the model. Nothing is cached between calls,
// since the drawing may be edited between runs.
package circuit
