package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "muezzin.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("entry %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"unbounded", 0, expectedAll},
		{"negative is unbounded", -1, expectedAll},
		{"tail of three", 3, expectedAll[7:]},
		{"exact size", 10, expectedAll},
		{"larger than file", 25, expectedAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read(missing) = %v, %v; want nil, nil", lines, err)
	}
}

func TestParse(t *testing.T) {
	e := Parse(`2025-10-27 14:32:15 WRN fetch failed error="timeout" source=devices`)
	if e.Level != LevelWarn || e.Time != "2025-10-27 14:32:15" {
		t.Fatalf("Parse() = %#v", e)
	}
	if e.Text != `fetch failed error="timeout" source=devices` {
		t.Fatalf("Text = %q", e.Text)
	}

	cont := Parse("  goroutine 1 [running]:")
	if cont.Level != LevelUnknown || cont.Text != "  goroutine 1 [running]:" {
		t.Fatalf("continuation = %#v", cont)
	}

	bare := Parse("2025-10-27 14:32:15 INF")
	if bare.Level != LevelInfo || bare.Text != "" {
		t.Fatalf("bare = %#v", bare)
	}
}

func TestFilter(t *testing.T) {
	lines := []string{
		"2025-10-27 14:32:15 DBG api request path=/devices",
		"2025-10-27 14:32:16 ERR settings creation failed",
		"  detail",
		"2025-10-27 14:32:17 DBG api request path=/settings/",
		"  debug detail",
		"2025-10-27 14:32:18 INF poller started",
	}
	got := Filter(lines, LevelInfo)
	var texts []string
	for _, e := range got {
		texts = append(texts, e.Text)
	}
	want := []string{"settings creation failed", "  detail", "poller started"}
	if !reflect.DeepEqual(texts, want) {
		t.Fatalf("Filter() = %q, want %q", texts, want)
	}
}
