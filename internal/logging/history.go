package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Attribute keys shared between the hunt loop and the history reader.
const (
	AttrRunID      = "run_id"
	AttrStage      = "stage"
	AttrResetCount = "reset_count"
	AttrOutcome    = "outcome"
	AttrConfidence = "confidence"
)

// LogEntry represents a parsed log line.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	RunID     string         `json:"run_id,omitempty"`
	Stage     string         `json:"stage,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects entries. Empty fields do not filter; set fields are ANDed.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level string
	// Since keeps entries at or after this time.
	Since time.Time
	// RunID keeps entries from one run.
	RunID string
	// Stage keeps entries from one stage.
	Stage string
	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ReadHistory parses every JSON line of the log file at path.
// Unparseable lines are skipped. Entries are sorted by timestamp.
func ReadHistory(path string) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file at %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	for k, v := range raw {
		s, _ := v.(string)
		switch k {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				entry.Timestamp = t
			}
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		case AttrRunID:
			entry.RunID = s
		case AttrStage:
			entry.Stage = s
		default:
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every criterion in filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	var filtered []LogEntry
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	if filter.Level != "" {
		want, okWant := levelOrder[strings.ToUpper(filter.Level)]
		got, okGot := levelOrder[entry.Level]
		if okWant && okGot && got < want {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if filter.RunID != "" && entry.RunID != filter.RunID {
		return false
	}
	if filter.Stage != "" && entry.Stage != filter.Stage {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// RunSummary condenses one run's log entries.
type RunSummary struct {
	RunID   string
	Started time.Time
	Ended   time.Time
	Resets  int
	// Outcome is the last outcome logged for the run, if any.
	Outcome string
	Errors  int
}

// Summarize groups entries by run ID, in order of first appearance.
// Entries without a run ID are ignored.
func Summarize(entries []LogEntry) []RunSummary {
	var order []string
	byRun := make(map[string]*RunSummary)

	for _, e := range entries {
		if e.RunID == "" {
			continue
		}
		s, ok := byRun[e.RunID]
		if !ok {
			s = &RunSummary{RunID: e.RunID, Started: e.Timestamp}
			byRun[e.RunID] = s
			order = append(order, e.RunID)
		}
		s.Ended = e.Timestamp

		// encoding/json decodes numbers as float64.
		if n, ok := e.Attrs[AttrResetCount].(float64); ok && int(n) > s.Resets {
			s.Resets = int(n)
		}
		if o, ok := e.Attrs[AttrOutcome].(string); ok && o != "" {
			s.Outcome = o
		}
		if e.Level == LevelError {
			s.Errors++
		}
	}

	out := make([]RunSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byRun[id])
	}
	return out
}
