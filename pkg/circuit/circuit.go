package circuit

import (
	"fmt"
	"slices"
	"strings"
)

// Source tells how a device was assigned to its circuit.
type Source string

const (
	SourceDirect Source = "direct" // circuit attribute on the device itself
	SourceLink   Source = "link"   // separate circuit-link element
)

// Member is a device wired to a circuit.
type Member struct {
	ID     string `json:"id" yaml:"id" cbor:"id"`
	Layer  string `json:"layer" yaml:"layer" cbor:"layer"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	Room   string `json:"room,omitempty" yaml:"room,omitempty" cbor:"room,omitempty"`
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty" cbor:"symbol,omitempty"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty" cbor:"label,omitempty"`
	Source Source `json:"source" yaml:"source" cbor:"source"`

	index int
}

// Supply is the breaker or distribution-board output feeding a circuit.
type Supply struct {
	ID     string `json:"id" yaml:"id" cbor:"id"`
	Layer  string `json:"layer" yaml:"layer" cbor:"layer"`
	Rating string `json:"rating,omitempty" yaml:"rating,omitempty" cbor:"rating,omitempty"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty" cbor:"label,omitempty"`
}

// Circuit is one electrical circuit with its members in document order.
// Board is empty for drawings without distribution boards.
type Circuit struct {
	ID      string   `json:"id" yaml:"id" cbor:"id"`
	Board   string   `json:"board,omitempty" yaml:"board,omitempty" cbor:"board,omitempty"`
	Supply  *Supply  `json:"supply,omitempty" yaml:"supply,omitempty" cbor:"supply,omitempty"`
	Members []Member `json:"members" yaml:"members" cbor:"members"`
}

// Manifest is the ordered list of circuits of a drawing.
type Manifest struct {
	Source      string    `json:"source,omitempty" yaml:"source,omitempty" cbor:"source,omitempty"`
	HasSupplies bool      `json:"has_supplies" yaml:"has_supplies" cbor:"has_supplies"`
	Circuits    []Circuit `json:"circuits" yaml:"circuits" cbor:"circuits"`
	Warnings    []Issue   `json:"warnings,omitempty" yaml:"warnings,omitempty" cbor:"warnings,omitempty"`
}

// Name returns the circuit's ID qualified with its board, e.g. "L01.2".
func (c Circuit) Name() string { return qualified(c.Board, c.ID) }

// Circuit looks up a circuit by [Circuit.Name].
func (m *Manifest) Circuit(name string) (Circuit, bool) {
	for _, c := range m.Circuits {
		if c.Name() == name {
			return c, true
		}
	}
	return Circuit{}, false
}

// Boards returns the distinct boards in circuit order. A drawing without
// boards has none.
func (m *Manifest) Boards() []string {
	var out []string
	for _, c := range m.Circuits {
		if c.Board != "" && !slices.Contains(out, c.Board) {
			out = append(out, c.Board)
		}
	}
	return out
}

// Board returns the part of the manifest on one board: its circuits and
// the warnings raised for them. Board("") selects circuits without board.
func (m *Manifest) Board(board string) *Manifest {
	sub := &Manifest{Source: m.Source, HasSupplies: m.HasSupplies, Circuits: []Circuit{}}
	for _, c := range m.Circuits {
		if c.Board == board {
			sub.Circuits = append(sub.Circuits, c)
		}
	}
	for _, w := range m.Warnings {
		if w.Board == board {
			sub.Warnings = append(sub.Warnings, w)
		}
	}
	return sub
}

// DeviceCount returns the number of devices over all circuits.
func (m *Manifest) DeviceCount() int {
	n := 0
	for _, c := range m.Circuits {
		n += len(c.Members)
	}
	return n
}

// Reason identifies the kind of an [Issue].
type Reason string

const (
	// Validation errors.
	ReasonDuplicateDeviceAssignment Reason = "DuplicateDeviceAssignment"
	ReasonMissingSupply             Reason = "MissingSupply"
	ReasonOrphanCircuitLink         Reason = "OrphanCircuitLink"
	ReasonDuplicateSupply           Reason = "DuplicateSupply"
	ReasonInvalidLinkTarget         Reason = "InvalidLinkTarget"
	ReasonEmptyCircuitLink          Reason = "EmptyCircuitLink"
	ReasonUnassignedSupply          Reason = "UnassignedSupply"

	// Warnings, or an error under Options.StrictUnassigned.
	ReasonUnassignedDevice Reason = "UnassignedDevice"

	// Warnings.
	ReasonLinkOverridden Reason = "LinkOverridden"
	ReasonIgnoredCircuit Reason = "IgnoredCircuit"
	ReasonBoardMismatch  Reason = "BoardMismatch"
)

// Issue is a defect found while building circuits, keyed by the offending
// identifiers.
type Issue struct {
	Reason  Reason `json:"reason" yaml:"reason" cbor:"reason"`
	Circuit string `json:"circuit,omitempty" yaml:"circuit,omitempty" cbor:"circuit,omitempty"`
	Board   string `json:"board,omitempty" yaml:"board,omitempty" cbor:"board,omitempty"`
	Element string `json:"element,omitempty" yaml:"element,omitempty" cbor:"element,omitempty"`
	Layer   string `json:"layer,omitempty" yaml:"layer,omitempty" cbor:"layer,omitempty"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty" cbor:"detail,omitempty"`
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Reason))
	if i.Circuit != "" {
		fmt.Fprintf(&b, " circuit %q", i.Circuit)
	}
	if i.Board != "" {
		fmt.Fprintf(&b, " board %q", i.Board)
	}
	if i.Element != "" {
		fmt.Fprintf(&b, " element %q", i.Element)
	}
	if i.Layer != "" {
		fmt.Fprintf(&b, " (layer %s)", i.Layer)
	}
	if i.Detail != "" {
		b.WriteString(": ")
		b.WriteString(i.Detail)
	}
	return b.String()
}

// ValidationError is one violation that makes a manifest invalid.
type ValidationError struct {
	Issue
}

func (e *ValidationError) Error() string { return e.Issue.String() }

// ValidationErrors carries every violation found in one build.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d violations: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes each violation to errors.As.
func (e *ValidationErrors) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, v := range e.Errors {
		out[i] = v
	}
	return out
}

// ByReason returns the violations with the given reason.
func (e *ValidationErrors) ByReason(r Reason) []*ValidationError {
	var out []*ValidationError
	for _, v := range e.Errors {
		if v.Reason == r {
			out = append(out, v)
		}
	}
	return out
}
