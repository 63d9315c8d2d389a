package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     zerolog.Level
	Component string
	Message   string
	Error     string
	Fields    map[string]any
	Raw       string
}

// Read returns at most maxLines entries from the end of the file at path.
// A non-positive maxLines returns the whole file.
func Read(path string, maxLines int) ([]Entry, error) {
	lines, err := readLines(path, maxLines)
	if err != nil {
		return nil, err
	}
	if lines == nil {
		return nil, nil
	}
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries, nil
}

func readLines(path string, maxLines int) ([]string, error) {
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
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Parse decodes one zerolog JSON line. Lines that are not JSON objects come
// back as an entry with only Message and Raw set.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: zerolog.NoLevel}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		entry.Message = line
		return entry
	}

	if s, ok := fields[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Time = ts
		}
		delete(fields, zerolog.TimestampFieldName)
	}
	if s, ok := fields[zerolog.LevelFieldName].(string); ok {
		if lvl, err := zerolog.ParseLevel(s); err == nil {
			entry.Level = lvl
		}
		delete(fields, zerolog.LevelFieldName)
	}
	if s, ok := fields[zerolog.MessageFieldName].(string); ok {
		entry.Message = s
		delete(fields, zerolog.MessageFieldName)
	}
	if s, ok := fields[zerolog.ErrorFieldName].(string); ok {
		entry.Error = s
		delete(fields, zerolog.ErrorFieldName)
	}
	if s, ok := fields["component"].(string); ok {
		entry.Component = s
		delete(fields, "component")
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}

// Format renders an entry as a single human-readable line:
//
//	14:32:15 WARN [queue] persist pending queue err=disk full pending=3
func Format(e Entry) string {
	if e.Time.IsZero() && e.Level == zerolog.NoLevel && e.Component == "" && e.Fields == nil && e.Error == "" {
		return e.Message
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != zerolog.NoLevel {
		b.WriteString(strings.ToUpper(e.Level.String()))
		b.WriteByte(' ')
	}
	if e.Component != "" {
		b.WriteString("[" + e.Component + "] ")
	}
	b.WriteString(e.Message)
	if e.Error != "" {
		b.WriteString(" err=" + e.Error)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}
