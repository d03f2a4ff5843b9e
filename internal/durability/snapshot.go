package durability

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"

	"lumen/internal/diag"
)

// SnapshotVersion is the current on-disk snapshot format version
// (spec.md §4.13: "Restore validates version == SNAPSHOT_VERSION or
// fails VersionMismatch").
const SnapshotVersion = 1

// SerializedValue is a fully-owned mirror of a VM Value with no
// pointer-identity-sharing variants; closures and futures cannot
// survive a process boundary and are intentionally excluded, per
// spec.md §3.
type SerializedValue struct {
	Kind SerializedKind

	Bool   bool
	Int    int64
	Float  float64
	String string
	Bytes  []byte

	List []SerializedValue // also used for Tuple and Set

	MapKeys   []string // sorted, matching the original's BTreeMap ordering
	MapValues []SerializedValue

	RecordType   string
	RecordFields map[string]SerializedValue

	UnionTag     string
	UnionPayload *SerializedValue
}

type SerializedKind uint8

const (
	SvNull SerializedKind = iota
	SvBool
	SvInt
	SvFloat
	SvString
	SvBytes
	SvList
	SvTuple
	SvSet
	SvMap
	SvRecord
	SvUnion
)

// InstructionPointer identifies an exact resumption point: which cell,
// and the program counter within it.
type InstructionPointer struct {
	CellIndex int
	PC        int
}

// StackFrame is one saved call frame.
type StackFrame struct {
	CellIndex     int
	PC            int
	Registers     []SerializedValue
	ReturnAddress *InstructionPointer
}

// HeapObject is one heap-allocated object captured during snapshotting,
// keyed by a snapshot-local logical id so StackFrame registers and
// other heap objects can reference it without sharing a live pointer.
type HeapObject struct {
	ID      uint64
	Data    []byte // gob-encoded SerializedValue
	TypeTag string
}

// Metadata is process-level context attached to every snapshot.
type Metadata struct {
	ProcessID       uuid.UUID
	ProcessName     string
	SourceFile      string
	CheckpointLabel string
}

// ErrVersionMismatch is returned by Deserialize when a snapshot's
// stored version does not match SnapshotVersion.
type ErrVersionMismatch struct {
	Expected, Found int
}

func (e *ErrVersionMismatch) Error() string {
	return fmt.Sprintf("durability: version mismatch: snapshot v%d, runtime v%d", e.Found, e.Expected)
}

// Snapshot captures enough VM state to resume a suspended process.
type Snapshot struct {
	Version   int
	ID        uuid.UUID
	Timestamp int64 // unix epoch seconds
	Frames    []StackFrame
	Heap      []HeapObject
	IP        InstructionPointer
	Metadata  Metadata
}

// NewSnapshot stamps a fresh, process-independent SnapshotID (§4.17)
// and the current version onto a freshly captured state.
func NewSnapshot(frames []StackFrame, heap []HeapObject, ip InstructionPointer, meta Metadata, timestamp int64) Snapshot {
	return Snapshot{
		Version:   SnapshotVersion,
		ID:        uuid.New(),
		Timestamp: timestamp,
		Frames:    frames,
		Heap:      heap,
		IP:        ip,
		Metadata:  meta,
	}
}

// Serialize encodes the snapshot to bytes. encoding/gob stands in for
// the original's bincode — both are schema-free binary codecs keyed off
// the concrete Go/Rust type rather than a wire IDL, the closest
// available match in the example pack (documented in DESIGN.md).
func (s Snapshot) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("durability: serialize snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a snapshot from bytes, failing with
// ErrVersionMismatch if its stored version disagrees with the running
// SnapshotVersion.
func Deserialize(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("durability: deserialize snapshot: %w", err)
	}
	if s.Version != SnapshotVersion {
		return Snapshot{}, &ErrVersionMismatch{Expected: SnapshotVersion, Found: s.Version}
	}
	return s, nil
}

// Describe renders a one-line human-readable summary of the snapshot
// for logs and diagnostics: its id, the serialized size (§4.13's "size
// reported as the serialised length"), and a strftime-formatted
// timestamp. The stored Timestamp field itself stays a plain int64.
func (s Snapshot) Describe() (string, error) {
	data, err := s.Serialize()
	if err != nil {
		return "", err
	}
	when := diag.Timestamp(s.Timestamp, "%Y-%m-%d %H:%M:%S")
	size := diag.ByteSize(uint64(len(data)))
	return fmt.Sprintf("snapshot %s at %s (%s)", s.ID, when, size), nil
}
