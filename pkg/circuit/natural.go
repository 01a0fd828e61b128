package circuit

import (
	"slices"
	"strings"
)

// Compare orders circuit identifiers naturally: runs of digits compare by
// numeric value and everything else compares as text, so "2" < "12" <
// "12A" < "13". Digit runs sort before text. Identifiers that differ only in
// leading zeros are ordered by their raw digits so Compare returns 0 only for
// equal strings.
func Compare(a, b string) int {
	tie := 0
	for a != "" || b != "" {
		ad, arest := splitRun(a, true)
		bd, brest := splitRun(b, true)
		switch {
		case ad != "" && bd != "":
			if c := compareDigits(ad, bd); c != 0 {
				return c
			}
			if tie == 0 {
				tie = strings.Compare(ad, bd)
			}
			a, b = arest, brest
		case ad != "":
			return -1
		case bd != "":
			return 1
		default:
			at, arest := splitRun(a, false)
			bt, brest := splitRun(b, false)
			if c := strings.Compare(at, bt); c != 0 {
				return c
			}
			a, b = arest, brest
		}
	}
	return tie
}

// CompareStripped is [Compare] on identifiers with prefix removed, falling
// back to the full identifiers on ties. With prefix "K", three-phase circuit
// "K3" sorts next to "3".
func CompareStripped(prefix string) func(a, b string) int {
	return func(a, b string) int {
		if prefix != "" {
			if c := Compare(strings.TrimPrefix(a, prefix), strings.TrimPrefix(b, prefix)); c != 0 {
				return c
			}
		}
		return Compare(a, b)
	}
}

// Sort sorts circuit identifiers in place, see [CompareStripped].
func Sort(ids []string, stripPrefix string) {
	slices.SortStableFunc(ids, CompareStripped(stripPrefix))
}

func splitRun(s string, digits bool) (run, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
