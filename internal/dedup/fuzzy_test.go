package dedup

import "testing"

func TestTextSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "Ocean Pearl", "Ocean Pearl", 1, 1},
		{"case and spacing", "  OCEAN  PEARL ", "ocean pearl", 1, 1},
		{"reordered tokens", "Pearl Ocean", "Ocean Pearl", 0.9, 1},
		{"small typo", "Ocean Paerl", "Ocean Pearl", 0.7, 1},
		{"unrelated", "Golden Arrow", "Stellar Voyager", 0, 0.4},
		{"one empty", "", "Ocean Pearl", 0, 0},
		{"both empty", "", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("textSimilarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if back := textSimilarity(tt.b, tt.a); back != got {
				t.Errorf("not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
