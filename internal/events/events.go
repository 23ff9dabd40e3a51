// Package events records pipeline lifecycle events to an append-only JSONL
// audit log. Every significant transition (start, clean, complete, skip,
// fail, notification outcome) is captured with the acting user, so a run can
// be reconstructed after the fact.
package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the pipeline.
const (
	TypePipelineStarted   = "PIPELINE_STARTED"
	TypeDataCleaned       = "DATA_CLEANED"
	TypePipelineCompleted = "PIPELINE_COMPLETED"
	TypePipelineSkipped   = "PIPELINE_SKIPPED"
	TypePipelineFailed    = "PIPELINE_FAILED"
	TypeEmailSent         = "EMAIL_SENT"
	TypeEmailFailed       = "EMAIL_FAILED"
)

// Level indicates event severity.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Event is a single audit record. Events are immutable once emitted.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	UserID    string                 `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Payload   map[string]interface{} `json:"payload"`
}

// Log is an append-only event sink backed by a JSONL file. It also retains
// emitted events in memory for inspection at the end of a run.
type Log struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	events []Event
}

// NewLog opens (creating if necessary) the JSONL file at path and returns a
// sink writing to it. The parent directory is created when missing.
func NewLog(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create event log directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}

	return &Log{
		path:   path,
		logger: logger,
		file:   file,
	}, nil
}

// Path returns the JSONL file location.
func (l *Log) Path() string {
	return l.path
}

// Emit records an event with a generated ID and a UTC timestamp, appending
// one JSON line to the log file.
func (l *Log) Emit(eventType, userID string, level Level, payload map[string]interface{}) (Event, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Level:     level,
		Payload:   payload,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)

	if err := json.NewEncoder(l.file).Encode(event); err != nil {
		return event, fmt.Errorf("failed to append event %s: %w", eventType, err)
	}

	l.logger.Debug("event recorded",
		slog.String("type", eventType),
		slog.String("user_id", userID),
		slog.String("level", string(level)))

	return event, nil
}

// Events returns a copy of all events emitted through this sink.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Last returns the most recently emitted event, if any.
func (l *Log) Last() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Load reads events back from a JSONL file. A missing file yields an empty
// slice. Blank lines are skipped.
func Load(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}
	defer file.Close()

	var out []Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse event log line: %w", err)
		}
		out = append(out, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log %s: %w", path, err)
	}

	return out, nil
}
