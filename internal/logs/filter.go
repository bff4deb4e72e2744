package logs

import (
	"encoding/json"
	"strings"

	"dotsocr/internal/logging"
)

// Filter selects log lines. Zero values match everything.
type Filter struct {
	TaskID    string
	Component string
	// MinLevel is one of debug, info, warn, error.
	MinLevel string
}

func (f Filter) empty() bool {
	return f.TaskID == "" && f.Component == "" && f.MinLevel == ""
}

// Match reports whether line passes the filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record map[string]any
		if json.Unmarshal([]byte(trimmed), &record) == nil {
			return f.matchRecord(record)
		}
	}
	return f.matchConsole(trimmed)
}

func (f Filter) matchRecord(record map[string]any) bool {
	if f.TaskID != "" && stringField(record, logging.FieldTaskID) != f.TaskID {
		return false
	}
	if f.Component != "" && !strings.EqualFold(stringField(record, logging.FieldComponent), f.Component) {
		return false
	}
	if f.MinLevel != "" && levelRank(stringField(record, "level")) < levelRank(f.MinLevel) {
		return false
	}
	return true
}

// matchConsole works on "TIME LEVEL component: [task] message" lines, where
// task ids are shortened to 8 characters.
func (f Filter) matchConsole(line string) bool {
	fields := strings.Fields(line)
	if f.MinLevel != "" {
		if len(fields) < 2 || levelRank(fields[1]) < levelRank(f.MinLevel) {
			return false
		}
	}
	if f.Component != "" && !strings.Contains(line, " "+f.Component+": ") {
		return false
	}
	if f.TaskID != "" {
		id := f.TaskID
		if len(id) > 8 {
			id = id[:8]
		}
		if !strings.Contains(line, "["+id) {
			return false
		}
	}
	return true
}

func stringField(record map[string]any, key string) string {
	value, _ := record[key].(string)
	return value
}

func levelRank(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return 0
	case "info":
		return 1
	case "warn", "warning":
		return 2
	case "error":
		return 3
	default:
		return -1
	}
}
