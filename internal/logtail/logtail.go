package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns the last maxLines lines of the file at path, or every line
// when maxLines is not positive. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var all []string
		for scanner.Scan() {
			all = append(all, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return all, nil
	}

	ring := make([]string, maxLines)
	seen := 0
	for scanner.Scan() {
		ring[seen%maxLines] = scanner.Text()
		seen++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if seen <= maxLines {
		return append([]string(nil), ring[:seen]...), nil
	}
	start := seen % maxLines
	return append(append([]string(nil), ring[start:]...), ring[:start]...), nil
}

// Level is the severity column of a log line.
type Level int

const (
	LevelUnknown Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelTokens = map[string]Level{
	"TRC": LevelDebug,
	"DBG": LevelDebug,
	"INF": LevelInfo,
	"WRN": LevelWarn,
	"ERR": LevelError,
	"FTL": LevelError,
	"PNC": LevelError,
}

// Entry is one parsed line of the console log format:
//
//	2025-10-27 14:32:15 INF fetch failed error="timeout" source=devices
type Entry struct {
	Time  string
	Level Level
	Text  string
	// Raw is the unparsed line, kept for continuation lines.
	Raw string
}

// Parse splits a log line into its columns. Lines that do not start with a
// timestamp and level are returned with LevelUnknown and the raw text.
func Parse(line string) Entry {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) < 3 || len(fields[0]) != len("2006-01-02") {
		return Entry{Text: line, Raw: line}
	}
	lvl, ok := levelTokens[fields[2]]
	if !ok {
		return Entry{Text: line, Raw: line}
	}
	e := Entry{Time: fields[0] + " " + fields[1], Level: lvl, Raw: line}
	if len(fields) == 4 {
		e.Text = fields[3]
	}
	return e
}

// Filter keeps lines at or above min. Unparsed lines follow the entry they
// continue.
func Filter(lines []string, min Level) []Entry {
	out := make([]Entry, 0, len(lines))
	keep := true
	for _, line := range lines {
		e := Parse(line)
		if e.Level != LevelUnknown {
			keep = e.Level >= min
		}
		if keep {
			out = append(out, e)
		}
	}
	return out
}
