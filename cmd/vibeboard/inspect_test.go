package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncatePrompt(t *testing.T) {
	if got := truncatePrompt("short prompt", 40); got != "short prompt" {
		t.Errorf("short prompt changed: %q", got)
	}

	long := strings.Repeat("a", 50)
	got := truncatePrompt(long, 40)
	if utf8.RuneCountInString(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncated = %q, want 40 runes ending in ...", got)
	}

	// Multi-byte characters must not be split mid-sequence.
	wide := strings.Repeat("日本語の夕焼け", 10)
	got = truncatePrompt(wide, 40)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) != 40 {
		t.Errorf("rune count = %d, want 40", utf8.RuneCountInString(got))
	}
}
