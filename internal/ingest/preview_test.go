package ingest

import (
	"testing"
	"unicode/utf8"
)

func TestPreview(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short text unchanged", input: "hello", maxLen: 10, want: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, want: "hello"},
		{name: "ascii truncated", input: "hello world", maxLen: 5, want: "hello"},
		{name: "cyrillic truncated on rune boundary", input: "привет мир", maxLen: 6, want: "привет"},
		{name: "cyrillic within limit by runes", input: "привет", maxLen: 6, want: "привет"},
		{name: "empty input", input: "", maxLen: 5, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := preview(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("preview(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("preview(%q, %d) produced invalid UTF-8: %q", tt.input, tt.maxLen, got)
			}
		})
	}
}
