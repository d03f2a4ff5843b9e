package durability

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSnapshotSerializeDeserializeRoundTrip(t *testing.T) {
	meta := Metadata{
		ProcessID:       uuid.New(),
		ProcessName:     "worker-1",
		SourceFile:      "doc.md",
		CheckpointLabel: "before-retry",
	}
	frames := []StackFrame{
		{
			CellIndex: 2,
			PC:        17,
			Registers: []SerializedValue{
				{Kind: SvInt, Int: 42},
				{Kind: SvString, String: "hello"},
			},
			ReturnAddress: &InstructionPointer{CellIndex: 1, PC: 4},
		},
	}
	heap := []HeapObject{
		{ID: 1, Data: []byte{1, 2, 3}, TypeTag: "record"},
	}

	snap := NewSnapshot(frames, heap, InstructionPointer{CellIndex: 2, PC: 17}, meta, 1_700_000_000)
	if snap.Version != SnapshotVersion {
		t.Fatalf("expected stamped version %d, got %d", SnapshotVersion, snap.Version)
	}
	if snap.ID == uuid.Nil {
		t.Fatalf("expected a stamped non-nil snapshot id")
	}

	encoded, err := snap.Serialize()
	if err != nil {
		t.Fatalf("unexpected serialize error: %v", err)
	}

	decoded, err := Deserialize(encoded)
	if err != nil {
		t.Fatalf("unexpected deserialize error: %v", err)
	}
	if decoded.ID != snap.ID {
		t.Fatalf("expected id %v, got %v", snap.ID, decoded.ID)
	}
	if decoded.Metadata.ProcessName != "worker-1" {
		t.Fatalf("unexpected metadata after round trip: %+v", decoded.Metadata)
	}
	if len(decoded.Frames) != 1 || decoded.Frames[0].Registers[0].Int != 42 {
		t.Fatalf("unexpected frames after round trip: %+v", decoded.Frames)
	}
	if decoded.Frames[0].ReturnAddress == nil || decoded.Frames[0].ReturnAddress.PC != 4 {
		t.Fatalf("unexpected return address after round trip: %+v", decoded.Frames[0].ReturnAddress)
	}
	if len(decoded.Heap) != 1 || decoded.Heap[0].TypeTag != "record" {
		t.Fatalf("unexpected heap after round trip: %+v", decoded.Heap)
	}
}

func TestDeserializeRejectsVersionMismatch(t *testing.T) {
	meta := Metadata{ProcessID: uuid.New()}
	snap := NewSnapshot(nil, nil, InstructionPointer{}, meta, 0)
	snap.Version = SnapshotVersion + 1

	encoded, err := snap.Serialize()
	if err != nil {
		t.Fatalf("unexpected serialize error: %v", err)
	}

	_, err = Deserialize(encoded)
	if err == nil {
		t.Fatalf("expected a version mismatch error")
	}
	mismatch, ok := err.(*ErrVersionMismatch)
	if !ok {
		t.Fatalf("expected *ErrVersionMismatch, got %T", err)
	}
	if mismatch.Found != SnapshotVersion+1 || mismatch.Expected != SnapshotVersion {
		t.Fatalf("unexpected mismatch fields: %+v", mismatch)
	}
}

func TestDeserializeRejectsGarbageBytes(t *testing.T) {
	_, err := Deserialize([]byte("not a gob stream"))
	if err == nil {
		t.Fatalf("expected a decode error for garbage input")
	}
}

func TestDescribeIncludesIDTimestampAndSize(t *testing.T) {
	meta := Metadata{ProcessID: uuid.New(), ProcessName: "worker-1"}
	snap := NewSnapshot(nil, nil, InstructionPointer{}, meta, 1_700_000_000)

	out, err := snap.Describe()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, snap.ID.String()) {
		t.Fatalf("expected id in description, got %q", out)
	}
	if !strings.Contains(out, "2023-11-14") {
		t.Fatalf("expected formatted timestamp in description, got %q", out)
	}
}
