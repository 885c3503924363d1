package date

import (
	"testing"
	"time"
)

func TestParseRelative(t *testing.T) {
	today := New(2025, time.August, 15)

	tests := []struct {
		input    string
		expected Date
		err      bool
	}{
		{"2025-01-15", New(2025, time.January, 15), false},
		{"2025-7-1", New(2025, time.July, 1), false},
		{"invalid-date", Date{}, true},

		{"0d", today, false},
		{"-1d", New(2025, time.August, 14), false},
		{"+1d", New(2025, time.August, 16), false},
		{"1d", Date{}, true},
		{"-0d", today, false},
		{"-2w", New(2025, time.August, 1), false},
		{"+1m", New(2025, time.September, 15), false},
		{"-3q", New(2024, time.November, 15), false},
		{"-1y", New(2024, time.August, 15), false},

		{"27", New(2025, time.August, 27), false},
		{"8-27", New(2025, time.August, 27), false},
		{"0", New(2025, time.July, 31), false},
		{"1-15", New(2025, time.January, 15), false},
		{"0-15", New(2024, time.December, 15), false},
		{"1-0", New(2024, time.December, 31), false},
		{"0-0", New(2024, time.November, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelative(tt.input, today)
			if (err != nil) != tt.err {
				t.Errorf("ParseRelative(%q) error = %v, wantErr %v", tt.input, err, tt.err)
				return
			}
			if !tt.err && got != tt.expected {
				t.Errorf("ParseRelative(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
