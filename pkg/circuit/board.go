package circuit

import (
	"regexp"
	"strings"

	ferrors "github.com/matzehuels/floorplan/pkg/errors"
)

// DefaultBoardPattern finds the board in layer names like "V0_Elektra_L01"
// and their sublayers ("V0_Elektra_L01_outlets").
const DefaultBoardPattern = `_Elektra_([^_]+)`

// DefaultBoardSeparator splits "L01.2" into board L01 and circuit 2.
const DefaultBoardSeparator = "."

// BoardRule tells which distribution board a circuit belongs to. Circuits
// on different boards may share a number: circuit 1 of board L01 and
// circuit 1 of board L02 are separate circuits.
type BoardRule struct {
	// LayerPattern is matched against the layer of an annotation, then its
	// ancestors, nearest first. The first capture group names the board.
	// Empty disables boards by layer.
	LayerPattern string `toml:"layer_pattern" yaml:"layer_pattern" json:"layer_pattern"`

	// Separator splits a circuit identifier into board and circuit. An
	// explicit board wins over the layer's. Empty disables the split.
	Separator string `toml:"separator" yaml:"separator" json:"separator"`
}

// DefaultBoardRule takes boards from "<floor>_Elektra_<board>" layers and
// "<board>.<circuit>" identifiers.
func DefaultBoardRule() BoardRule {
	return BoardRule{LayerPattern: DefaultBoardPattern, Separator: DefaultBoardSeparator}
}

// Validate returns INVALID_CONFIG when the layer pattern does not compile
// or has no capture group.
func (r BoardRule) Validate() error {
	_, err := r.compile()
	return err
}

func (r BoardRule) compile() (*regexp.Regexp, error) {
	if r.LayerPattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(r.LayerPattern)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "board layer pattern %q", r.LayerPattern)
	}
	if re.NumSubexp() < 1 {
		return nil, ferrors.New(ferrors.ErrCodeInvalidConfig,
			"board layer pattern %q needs a capture group for the board", r.LayerPattern)
	}
	return re, nil
}

// Split separates an explicit board from a circuit identifier. The board is
// everything before the last separator; identifiers without one, or with
// an empty part on either side, have no explicit board.
func (r BoardRule) Split(id string) (board, circuit string) {
	if r.Separator == "" {
		return "", id
	}
	i := strings.LastIndex(id, r.Separator)
	if i <= 0 || i+len(r.Separator) >= len(id) {
		return "", id
	}
	return id[:i], id[i+len(r.Separator):]
}

// key identifies a circuit: its number on its board.
type key struct {
	board string
	id    string
}

func (k key) String() string { return qualified(k.board, k.id) }

func qualified(board, id string) string {
	if board == "" {
		return id
	}
	return board + DefaultBoardSeparator + id
}

// compareKeys orders by board, then by circuit.
func compareKeys(stripPrefix string) func(a, b key) int {
	ids := CompareStripped(stripPrefix)
	return func(a, b key) int {
		if c := Compare(a.board, b.board); c != 0 {
			return c
		}
		return ids(a.id, b.id)
	}
}
