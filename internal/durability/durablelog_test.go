package durability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestAppendAndReadEntries(t *testing.T) {
	log := New()
	if err := log.Append(TimestampEntry(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := log.Append(RandomEntry(7)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", log.Len())
	}
	entries := log.Entries()
	if entries[0].Kind != EntryTimestamp || entries[0].Timestamp != 100 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Kind != EntryRandom || entries[1].Random != 7 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestReplayFromMatchesExpectedSequence(t *testing.T) {
	entries := []LogEntry{TimestampEntry(1), ToolCallEntry("search", "{}", "ok")}
	log := ReplayFrom(entries)

	got, err := log.Next(EntryTimestamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Timestamp != 1 {
		t.Fatalf("got %+v, want timestamp 1", got)
	}

	got, err = log.Next(EntryToolCall)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ToolName != "search" {
		t.Fatalf("got %+v, want tool search", got)
	}

	got, err = log.Next(EntryTimestamp)
	if got != nil || err != nil {
		t.Fatalf("expected exhausted log to return nil, nil; got %+v, %v", got, err)
	}
}

func TestReplayDivergenceOnMismatchedKind(t *testing.T) {
	log := ReplayFrom([]LogEntry{TimestampEntry(1)})
	_, err := log.Next(EntryRandom)
	if err == nil {
		t.Fatalf("expected a divergence error")
	}
	div, ok := err.(*ErrDivergence)
	if !ok {
		t.Fatalf("expected *ErrDivergence, got %T", err)
	}
	if div.Expected != EntryRandom || div.Got != EntryTimestamp {
		t.Fatalf("unexpected divergence fields: %+v", div)
	}
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	log, err := WithFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := uuid.New()
	if err := log.Append(Checkpoint(id)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := log.Append(ExternalInputEntry("sensor", []byte("payload"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("unexpected error closing log: %v", err)
	}

	reloaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error loading log: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 reloaded entries, got %d", reloaded.Len())
	}
	entries := reloaded.Entries()
	if entries[0].Kind != EntryCheckpoint || entries[0].SnapshotID != id {
		t.Fatalf("unexpected reloaded checkpoint: %+v", entries[0])
	}
	if entries[1].Kind != EntryExternalInput || entries[1].Source != "sensor" {
		t.Fatalf("unexpected reloaded external input: %+v", entries[1])
	}
}

func TestLoadFromFileToleratesTruncatedFinalLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	complete := `{"kind":"timestamp","timestamp":42}` + "\n"
	truncated := `{"kind":"random","rand`
	if err := os.WriteFile(path, []byte(complete+truncated), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture: %v", err)
	}

	log, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("expected truncated final line to be tolerated, got error: %v", err)
	}
	if log.Len() != 1 {
		t.Fatalf("expected only the complete line to load, got %d entries", log.Len())
	}
	if log.Entries()[0].Timestamp != 42 {
		t.Fatalf("unexpected loaded entry: %+v", log.Entries()[0])
	}
}

func TestLoadFromFileFailsOnEarlierCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")

	corrupt := `{"kind": not json}` + "\n"
	complete := `{"kind":"timestamp","timestamp":1}` + "\n"
	if err := os.WriteFile(path, []byte(corrupt+complete), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture: %v", err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatalf("expected an error for corruption in a non-final line")
	}
}
