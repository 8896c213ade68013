package utils

import "testing"

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{1234.5, "$1,234.50"},
		{-1234.5, "-$1,234.50"},
		{1000000, "$1,000,000.00"},
		{999.999, "$1,000.00"},
		{-0.004, "-$0.00"},
	}

	for _, tt := range tests {
		if got := FormatUSD(tt.amount); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		fraction float64
		want     string
	}{
		{0, "0.00%"},
		{0.153, "15.30%"},
		{1, "100.00%"},
		{-0.05, "-5.00%"},
	}

	for _, tt := range tests {
		if got := FormatPercent(tt.fraction); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.fraction, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer market question", 10, "a longe..."},
		{"abc", 2, "ab"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
