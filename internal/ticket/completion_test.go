package ticket

import "testing"

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"0.85", 0.85},
		{" 0.3 ", 0.3},
		{"1", 1},
		{"0", 0},
		{"1.5", 0.5},
		{"-0.1", 0.5},
		{"high", 0.5},
		{"", 0.5},
	}
	for _, tt := range tests {
		if got := parseConfidence(tt.raw); got != tt.want {
			t.Errorf("parseConfidence(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
