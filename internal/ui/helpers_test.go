package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   int64 // seconds
		want string
	}{
		{"negative", -5, "now"},
		{"subsecond", 0, "now"},
		{"seconds", 12, "12s"},
		{"minutes", 61, "1m"},
		{"hours_only", 2*60*60 + 10, "2h"},
		{"hours_minutes", 2*60*60 + 3*60, "2h 3m"},
		{"days", 24 * 60 * 60, "1d"},
		{"days_hours", 26 * 60 * 60, "1d 2h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := humanizeDuration(timeSeconds(tc.in))
			if got != tc.want {
				t.Fatalf("humanizeDuration(%d) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=5 = %q, want ab", got)
	}
	got := truncateMiddle("/home/user/.local/state/muezzin/muezzin.log", 20)
	if len([]rune(got)) != 20 {
		t.Fatalf("got %q (%d runes), want 20", got, len([]rune(got)))
	}
	if got[len(got)-len("muezzin.log"):] != "muezzin.log" {
		t.Fatalf("got %q, want the file name kept", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := truncate("الأحد", 5); got != "الأحد" {
		t.Fatalf("truncate should not cut a 5-rune string at 5, got %q", got)
	}
	if got := truncate("Jumada al-Akhirah", 8); got != "Jumad..." {
		t.Fatalf("truncate = %q, want Jumad...", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Fatalf("truncate to zero = %q", got)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{0, 0, 0},
		{-1, 3, 0},
		{5, 3, 2},
		{1, 3, 1},
	}
	for _, tc := range cases {
		if got := clamp(tc.i, tc.n); got != tc.want {
			t.Fatalf("clamp(%d, %d) = %d, want %d", tc.i, tc.n, got, tc.want)
		}
	}
}

func timeSeconds(sec int64) time.Duration {
	return time.Duration(sec) * time.Second
}
