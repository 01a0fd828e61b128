package circuit

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/floorplan/pkg/annotation"
	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// IgnoreRule rejects circuit identifiers that mark devices as deliberately
// not connected, such as "NC" or numbers still under discussion ("4?").
type IgnoreRule struct {
	Exact      []string `toml:"exact" yaml:"exact" json:"exact"`
	Containing []string `toml:"containing" yaml:"containing" json:"containing"`
}

// DefaultIgnoreRule ignores "NC" and every identifier containing "?".
func DefaultIgnoreRule() IgnoreRule {
	return IgnoreRule{Exact: []string{"NC"}, Containing: []string{"?"}}
}

// Match reports whether id is ignored.
func (r IgnoreRule) Match(id string) bool {
	if slices.Contains(r.Exact, id) {
		return true
	}
	for _, s := range r.Containing {
		if s != "" && strings.Contains(id, s) {
			return true
		}
	}
	return false
}

// Options configures [Build].
type Options struct {
	// StrictUnassigned reports devices without a circuit as validation
	// errors instead of warnings.
	StrictUnassigned bool

	// Ignore selects circuit identifiers to leave out of the manifest.
	// Nil uses [DefaultIgnoreRule]; an empty rule ignores nothing.
	Ignore *IgnoreRule

	// StripPrefix is removed from identifiers before natural comparison.
	StripPrefix string

	// Boards tells which distribution board each circuit is on. Nil uses
	// [DefaultBoardRule]; an empty rule puts every circuit on one board.
	Boards *BoardRule

	// Layers limits the build to elements on these layers and their
	// descendants. Empty means the whole drawing.
	Layers []string
}

func (o Options) ignore() IgnoreRule {
	if o.Ignore == nil {
		return DefaultIgnoreRule()
	}
	return *o.Ignore
}

func (o Options) boards() BoardRule {
	if o.Boards == nil {
		return DefaultBoardRule()
	}
	return *o.Boards
}

// assignment is one extracted "device belongs to circuit" fact.
type assignment struct {
	device  string
	circuit key
	source  Source
	element string // element that made the claim
	layer   string
}

// builder holds the state of one Build call.
type builder struct {
	model   *annotation.Model
	vocab   annotation.Vocabulary
	opts    Options
	ignore  IgnoreRule
	boards  BoardRule
	board   *regexp.Regexp    // nil: no boards by layer
	scope   map[string]bool   // nil: every layer
	onBoard map[string]string // layer -> board

	devices  []annotation.Element
	byDevice map[string]annotation.Element // first device element per ID

	errs     []*ValidationError
	warnings []Issue
}

// Build groups the devices of a drawing into circuits.
//
// Circuit membership is read in two independent passes: the circuit
// attribute on the device itself, and circuit-link elements pointing at a
// device. Both feed one accumulation step where the direct attribute wins.
// Circuits are numbered per distribution board (see [BoardRule]), so the
// same number on two boards names two circuits.
//
// Every violation is collected; when any is found Build returns the
// best-effort manifest together with a CIRCUIT_VALIDATION error wrapping
// [*ValidationErrors]. In either case no device appears in more than one
// circuit, and circuits are in natural order by board, then by number.
func Build(m *annotation.Model, opts Options) (*Manifest, error) {
	b := &builder{
		model:    m,
		vocab:    m.Vocabulary(),
		opts:     opts,
		ignore:   opts.ignore(),
		boards:   opts.boards(),
		onBoard:  make(map[string]string),
		byDevice: make(map[string]annotation.Element),
	}
	re, err := b.boards.compile()
	if err != nil {
		return nil, err
	}
	b.board = re
	if err := b.setScope(); err != nil {
		return nil, err
	}

	for dev := range m.All(annotation.KindDevice) {
		if !b.inScope(dev.Layer) {
			continue
		}
		b.devices = append(b.devices, dev)
		if _, seen := b.byDevice[dev.ID]; !seen {
			b.byDevice[dev.ID] = dev
		}
	}

	direct := b.directPass()
	linked := b.linkPass()
	members := b.accumulate(direct, linked)
	supplies, hasSupplies := b.supplyPass()

	manifest := &Manifest{
		Source:      m.Source(),
		HasSupplies: hasSupplies,
	}
	keys := slices.Collect(maps.Keys(members))
	for k := range supplies {
		if _, ok := members[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortStableFunc(keys, compareKeys(opts.StripPrefix))

	for _, k := range keys {
		c := Circuit{ID: k.id, Board: k.board, Members: members[k]}
		slices.SortStableFunc(c.Members, func(a, b Member) int { return a.index - b.index })
		if c.Members == nil {
			c.Members = []Member{}
		}
		if s := supplies[k]; len(s) > 0 {
			c.Supply = &s[0]
		}
		if hasSupplies && len(c.Members) > 0 && c.Supply == nil {
			b.fail(Issue{
				Reason:  ReasonMissingSupply,
				Circuit: k.id,
				Board:   k.board,
				Detail:  fmt.Sprintf("%d device(s) but no supply", len(c.Members)),
			})
		}
		manifest.Circuits = append(manifest.Circuits, c)
	}
	manifest.Warnings = b.warnings

	if len(b.errs) > 0 {
		return manifest, ferrors.Wrap(ferrors.ErrCodeCircuitValidation,
			&ValidationErrors{Errors: b.errs}, "circuit validation")
	}
	return manifest, nil
}

// directPass reads the circuit attribute of every device.
func (b *builder) directPass() []assignment {
	var out []assignment
	for _, dev := range b.devices {
		id := strings.TrimSpace(dev.Attr(b.vocab.CircuitIDKey))
		if id == "" {
			continue
		}
		out = append(out, assignment{
			device:  dev.ID,
			circuit: b.qualify(dev, id),
			source:  SourceDirect,
			element: dev.ID,
			layer:   dev.Layer,
		})
	}
	return out
}

// linkPass reads every circuit-link element and checks its target.
func (b *builder) linkPass() []assignment {
	var out []assignment
	for link := range b.model.All(annotation.KindCircuitLink) {
		if !b.inScope(link.Layer) {
			continue
		}
		target := strings.TrimSpace(link.Attr(b.vocab.LinkKey))
		id := strings.TrimSpace(link.Attr(b.vocab.CircuitIDKey))
		if target == "" || id == "" {
			b.fail(Issue{
				Reason:  ReasonEmptyCircuitLink,
				Circuit: id,
				Element: link.ID,
				Layer:   link.Layer,
				Detail:  "link needs both a target device and a circuit",
			})
			continue
		}
		if _, ok := b.byDevice[target]; !ok {
			el, exists := b.model.Element(target)
			switch {
			case !exists:
				b.fail(Issue{
					Reason:  ReasonOrphanCircuitLink,
					Circuit: id,
					Element: target,
					Layer:   link.Layer,
					Detail:  fmt.Sprintf("link %s points at a device that does not exist", link.ID),
				})
				continue
			case el.Kind != annotation.KindDevice:
				b.fail(Issue{
					Reason:  ReasonInvalidLinkTarget,
					Circuit: id,
					Element: target,
					Layer:   link.Layer,
					Detail:  fmt.Sprintf("link %s points at a %s, not a device", link.ID, el.Kind),
				})
				continue
			default:
				// A device outside the build's layers, pulled in by the link.
				b.byDevice[target] = el
			}
		}
		out = append(out, assignment{
			device:  target,
			circuit: b.qualify(link, id),
			source:  SourceLink,
			element: link.ID,
			layer:   link.Layer,
		})
	}
	return out
}

// accumulate merges both passes into circuit -> members. The direct
// attribute wins over links; conflicting claims of the same precedence are
// reported and the first one is kept.
func (b *builder) accumulate(direct, linked []assignment) map[key][]Member {
	chosen := make(map[string]assignment)
	var order []string

	for _, a := range direct {
		prev, ok := chosen[a.device]
		if !ok {
			chosen[a.device] = a
			order = append(order, a.device)
			continue
		}
		if prev.circuit != a.circuit {
			b.fail(Issue{
				Reason:  ReasonDuplicateDeviceAssignment,
				Circuit: a.circuit.id,
				Board:   a.circuit.board,
				Element: a.device,
				Layer:   a.layer,
				Detail:  fmt.Sprintf("already on circuit %q", prev.circuit),
			})
		}
	}

	for _, a := range linked {
		prev, ok := chosen[a.device]
		switch {
		case !ok:
			chosen[a.device] = a
			order = append(order, a.device)
		case prev.circuit == a.circuit:
		case prev.source == SourceDirect:
			b.warn(Issue{
				Reason:  ReasonLinkOverridden,
				Circuit: prev.circuit.id,
				Board:   prev.circuit.board,
				Element: a.device,
				Layer:   a.layer,
				Detail:  fmt.Sprintf("link %s to circuit %q ignored, device carries %q", a.element, a.circuit, prev.circuit),
			})
		default:
			b.fail(Issue{
				Reason:  ReasonDuplicateDeviceAssignment,
				Circuit: a.circuit.id,
				Board:   a.circuit.board,
				Element: a.device,
				Layer:   a.layer,
				Detail:  fmt.Sprintf("links %s and %s assign circuits %q and %q", prev.element, a.element, prev.circuit, a.circuit),
			})
		}
	}

	members := make(map[key][]Member)
	ignored := make(map[key]int)
	var ignoredOrder []key
	for _, device := range order {
		a := chosen[device]
		if b.ignore.Match(a.circuit.id) {
			if ignored[a.circuit] == 0 {
				ignoredOrder = append(ignoredOrder, a.circuit)
			}
			ignored[a.circuit]++
			continue
		}
		members[a.circuit] = append(members[a.circuit], b.member(b.byDevice[device], a.source))
	}
	for _, k := range ignoredOrder {
		b.warn(Issue{
			Reason:  ReasonIgnoredCircuit,
			Circuit: k.id,
			Board:   k.board,
			Detail:  fmt.Sprintf("%d device(s) left out", ignored[k]),
		})
	}

	for _, dev := range b.devices {
		if _, ok := chosen[dev.ID]; ok {
			continue
		}
		issue := Issue{
			Reason:  ReasonUnassignedDevice,
			Element: dev.ID,
			Layer:   dev.Layer,
			Detail:  "device has no circuit",
		}
		if b.opts.StrictUnassigned {
			b.fail(issue)
		} else {
			b.warn(issue)
		}
	}
	return members
}

// supplyPass groups supply elements by circuit. The second return value
// reports whether the build's scope supplies any circuit at all; supplies
// without circuit or on ignored circuits do not count.
func (b *builder) supplyPass() (map[key][]Supply, bool) {
	supplies := make(map[key][]Supply)
	found := false
	for el := range b.model.All(annotation.KindSupply) {
		if !b.inScope(el.Layer) {
			continue
		}
		id := strings.TrimSpace(el.Attr(b.vocab.CircuitIDKey))
		if id == "" {
			b.fail(Issue{
				Reason:  ReasonUnassignedSupply,
				Element: el.ID,
				Layer:   el.Layer,
				Detail:  "supply has no circuit",
			})
			continue
		}
		k := b.qualify(el, id)
		if b.ignore.Match(k.id) {
			continue
		}
		found = true
		if prev := supplies[k]; len(prev) > 0 {
			b.fail(Issue{
				Reason:  ReasonDuplicateSupply,
				Circuit: k.id,
				Board:   k.board,
				Element: el.ID,
				Layer:   el.Layer,
				Detail:  fmt.Sprintf("circuit already supplied by %s", prev[0].ID),
			})
		}
		supplies[k] = append(supplies[k], Supply{
			ID:     el.ID,
			Layer:  el.Layer,
			Rating: strings.TrimSpace(el.Attr(b.vocab.SupplyKey)),
			Label:  b.label(el),
		})
	}
	return supplies, found
}

// qualify resolves the circuit identifier id found on el to a circuit of a
// board. An explicit board in id wins over the board of el's layer; a
// conflict between the two is reported as a warning.
func (b *builder) qualify(el annotation.Element, id string) key {
	layerBoard := b.layerBoard(el.Layer)
	board, circuit := b.boards.Split(id)
	if board == "" {
		return key{board: layerBoard, id: id}
	}
	if layerBoard != "" && board != layerBoard {
		b.warn(Issue{
			Reason:  ReasonBoardMismatch,
			Circuit: circuit,
			Board:   board,
			Element: el.ID,
			Layer:   el.Layer,
			Detail:  fmt.Sprintf("layer belongs to board %q", layerBoard),
		})
	}
	return key{board: board, id: circuit}
}

// layerBoard returns the board named by layer or its nearest matching
// ancestor, "" when none matches.
func (b *builder) layerBoard(layer string) string {
	if b.board == nil {
		return ""
	}
	if board, ok := b.onBoard[layer]; ok {
		return board
	}
	ancestors, _ := b.model.Ancestors(layer)
	board := ""
	for _, l := range append([]string{layer}, ancestors...) {
		if m := b.board.FindStringSubmatch(l); m != nil && m[1] != "" {
			board = m[1]
			break
		}
	}
	b.onBoard[layer] = board
	return board
}

func (b *builder) member(dev annotation.Element, src Source) Member {
	return Member{
		ID:     dev.ID,
		Layer:  dev.Layer,
		Type:   strings.TrimSpace(dev.Attr(b.vocab.DeviceKey)),
		Room:   strings.TrimSpace(dev.Attr(b.vocab.RoomKey)),
		Symbol: dev.Symbol,
		Label:  b.label(dev),
		Source: src,
		index:  dev.Index,
	}
}

func (b *builder) label(el annotation.Element) string {
	if l := strings.TrimSpace(el.Attr(b.vocab.LabelKey)); l != "" {
		return l
	}
	return el.Text
}

func (b *builder) setScope() error {
	if len(b.opts.Layers) == 0 {
		return nil
	}
	b.scope = make(map[string]bool, len(b.opts.Layers))
	var unknown []string
	for _, id := range b.opts.Layers {
		if !b.model.HasLayer(id) {
			unknown = append(unknown, id)
			continue
		}
		b.scope[id] = true
	}
	if len(unknown) > 0 {
		return ferrors.New(ferrors.ErrCodeUnknownLayerReference,
			"circuit layers: unknown layer %q", strings.Join(unknown, `", "`))
	}
	return nil
}

// inScope reports whether layer or one of its ancestors was selected.
func (b *builder) inScope(layer string) bool {
	if b.scope == nil || b.scope[layer] {
		return true
	}
	ancestors, _ := b.model.Ancestors(layer)
	for _, a := range ancestors {
		if b.scope[a] {
			return true
		}
	}
	return false
}

func (b *builder) fail(i Issue) { b.errs = append(b.errs, &ValidationError{Issue: i}) }

func (b *builder) warn(i Issue) { b.warnings = append(b.warnings, i) }
