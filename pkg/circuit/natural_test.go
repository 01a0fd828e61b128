package circuit

import (
	"slices"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"12", "12", 0},
		{"2", "12", -1},
		{"12", "12A", -1},
		{"12A", "13", -1},
		{"12A", "12B", -1},
		{"12B", "12A", 1},
		{"9", "10", -1},
		{"1.2", "1.10", -1},
		{"12", "K1", -1},
		{"A", "B", -1},
		{"", "1", 1},
		{"007", "7", -1},
		{"7", "007", 1},
		{"12345678901234567890", "9", 1},
	}
	for _, tt := range tests {
		if got := Compare(tt.a, tt.b); sign(got) != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSort(t *testing.T) {
	ids := []string{"13", "K2", "12A", "2", "12", "K10", "1"}

	natural := slices.Clone(ids)
	Sort(natural, "")
	if want := []string{"1", "2", "12", "12A", "13", "K2", "K10"}; !slices.Equal(natural, want) {
		t.Errorf("Sort() = %v, want %v", natural, want)
	}

	stripped := slices.Clone(ids)
	Sort(stripped, "K")
	if want := []string{"1", "2", "K2", "K10", "12", "12A", "13"}; !slices.Equal(stripped, want) {
		t.Errorf("Sort(strip K) = %v, want %v", stripped, want)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
