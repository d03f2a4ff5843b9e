package durability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// EntryKind discriminates the nondeterministic-event variants spec.md
// §4.13 names.
type EntryKind string

const (
	EntryCheckpoint    EntryKind = "checkpoint"
	EntryToolCall      EntryKind = "tool_call"
	EntryExternalInput EntryKind = "external_input"
	EntryTimestamp     EntryKind = "timestamp"
	EntryRandom        EntryKind = "random"
)

// LogEntry is one recorded nondeterministic event. Only the fields
// relevant to Kind are populated; this mirrors the original's Rust enum
// with named-field variants as a single JSON-tagged struct, the
// idiomatic Go rendering of a closed sum type over encoding/json.
type LogEntry struct {
	Kind EntryKind `json:"kind"`

	SnapshotID uuid.UUID `json:"snapshot_id,omitempty"`

	ToolName   string `json:"tool_name,omitempty"`
	ToolArgs   string `json:"tool_args,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`

	Source string `json:"source,omitempty"`
	Data   []byte `json:"data,omitempty"`

	Timestamp int64  `json:"timestamp,omitempty"`
	Random    uint64 `json:"random,omitempty"`
}

func Checkpoint(id uuid.UUID) LogEntry {
	return LogEntry{Kind: EntryCheckpoint, SnapshotID: id}
}

func ToolCallEntry(name, args, result string) LogEntry {
	return LogEntry{Kind: EntryToolCall, ToolName: name, ToolArgs: args, ToolResult: result}
}

func ExternalInputEntry(source string, data []byte) LogEntry {
	return LogEntry{Kind: EntryExternalInput, Source: source, Data: data}
}

func TimestampEntry(ts int64) LogEntry { return LogEntry{Kind: EntryTimestamp, Timestamp: ts} }

func RandomEntry(r uint64) LogEntry { return LogEntry{Kind: EntryRandom, Random: r} }

// ErrDivergence is returned by Next when replay encounters a different
// kind of entry than the caller expected — spec.md §4.13: "Mismatched
// replay... is a fatal divergence error."
type ErrDivergence struct {
	Expected, Got EntryKind
}

func (e *ErrDivergence) Error() string {
	return fmt.Sprintf("durability: replay divergence: expected %s, got %s", e.Expected, e.Got)
}

// DurableLog is an append-only record of nondeterministic events,
// optionally backed by a JSON-lines file flushed on every append so a
// crash never loses a committed entry.
type DurableLog struct {
	mu      sync.Mutex
	entries []LogEntry
	file    *os.File
	replay  int // read cursor into entries, used only in replay mode
}

// New creates an in-memory-only durable log.
func New() *DurableLog { return &DurableLog{} }

// WithFile creates a durable log backed by path; entries already in
// the file are not read (use LoadFromFile for that) — this opens in
// append mode for a fresh recording session.
func WithFile(path string) (*DurableLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("durability: open log file: %w", err)
	}
	return &DurableLog{file: f}, nil
}

// Append records entry, flushing to the backing file before returning
// if one is attached, so committed entries survive a crash.
func (l *DurableLog) Append(entry LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("durability: marshal log entry: %w", err)
		}
		if _, err := l.file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("durability: write log entry: %w", err)
		}
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("durability: flush log entry: %w", err)
		}
	}
	l.entries = append(l.entries, entry)
	return nil
}

// Entries returns every recorded entry, in append order.
func (l *DurableLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *DurableLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *DurableLog) IsEmpty() bool { return l.Len() == 0 }

// ReplayFrom constructs a read-only log pre-populated with entries,
// for feeding a prior run's log back into a fresh execution.
func ReplayFrom(entries []LogEntry) *DurableLog {
	return &DurableLog{entries: entries}
}

// Next consumes and returns the next entry expected to be of kind
// want, advancing the replay cursor. A mismatched kind is a fatal
// divergence (spec.md §4.13); running off the end returns a nil entry
// and a nil error so the caller can distinguish "log exhausted, fall
// back to live execution" from "log says something different."
func (l *DurableLog) Next(want EntryKind) (*LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.replay >= len(l.entries) {
		return nil, nil
	}
	entry := l.entries[l.replay]
	if entry.Kind != want {
		return nil, &ErrDivergence{Expected: want, Got: entry.Kind}
	}
	l.replay++
	return &entry, nil
}

// LoadFromFile reads a JSON-lines durable log. A truncated final line
// (no trailing newline, incomplete JSON) is silently dropped rather
// than failing the whole load, matching spec.md §6's "truncated last
// lines are tolerated"; any malformed *complete* line is a hard error,
// since the loader must not silently skip past real corruption.
func LoadFromFile(path string) (*DurableLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("durability: open log file: %w", err)
	}
	defer f.Close()

	var rawLines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		rawLines = append(rawLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("durability: read log file: %w", err)
	}
	// The final line is only truncated if the file does not end in '\n'.
	terminated := false
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil {
			terminated = last[0] == '\n'
		}
	}

	var entries []LogEntry
	for i, line := range rawLines {
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			if i == len(rawLines)-1 && !terminated {
				// Only the truncated final line is tolerated, per
				// spec.md §6 — anything earlier is real corruption.
				break
			}
			return nil, fmt.Errorf("durability: malformed log entry at line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return &DurableLog{entries: entries}, nil
}

func bytesTrimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

// Close flushes and releases the backing file, if any.
func (l *DurableLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
