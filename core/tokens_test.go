package core

import (
	"strings"
	"testing"
)

func TestRatioEstimator(t *testing.T) {
	est := NewRatioEstimator()

	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 1},
		{text: "abcd", want: 1},
		{text: "abcde", want: 2},
		{text: strings.Repeat("x", 400), want: 100},
	}

	for _, tt := range tests {
		if got := est.Estimate(tt.text); got != tt.want {
			t.Errorf("Estimate(%q len=%d) = %d, want %d", tt.text, len(tt.text), got, tt.want)
		}
	}
}

func TestRatioEstimatorZeroRatio(t *testing.T) {
	// A misconfigured ratio falls back to the default rather than dividing by zero.
	est := &RatioEstimator{CharsPerToken: 0}
	if got := est.Estimate("abcdefgh"); got != 2 {
		t.Errorf("Estimate() = %d, want 2", got)
	}
}
