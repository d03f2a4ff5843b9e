package gc

// Traceable is implemented by every heap-allocated runtime value the
// collector needs to walk: its own GcHeader for color/mark bookkeeping,
// and the set of other Traceables it directly references (spec.md §4.9's
// "root set = active stack frames' register slices plus reachable
// payload pointers").
//
// internal/gc cannot import internal/vm (vm already imports gc for
// GcHeader), so vm.Object implements this interface itself rather than
// gc knowing anything about vm.ObjKind or vm.Value.
type Traceable interface {
	GCHeader() *GcHeader
	References() []Traceable
}

// defaultChunkSize mirrors the original arena's 64 KiB default chunk,
// reinterpreted as a slot count rather than a byte count: Go's GC, not
// manual pointer bumping, owns the actual memory behind each Traceable,
// so an Arena here is a registry of live handles grouped for bulk
// reset, not a raw byte-bump allocator (documented in DESIGN.md).
const defaultChunkSize = 1024

// Arena is a per-process registry of every Traceable allocated during
// that process's lifetime. It bump-appends into growable chunks the
// way the original Rust arena bump-allocates into growable byte chunks,
// and Reset drops every registered handle at once — the Go-safe analog
// of freeing every chunk when the arena is dropped — keeping only the
// first chunk's backing array for reuse, matching the original's
// "truncate to one chunk" behavior.
type Arena struct {
	chunks         [][]Traceable
	chunkSize      int
	totalAllocated uint64
}

// NewArena creates an arena with the default chunk size.
func NewArena() *Arena { return NewArenaSize(defaultChunkSize) }

// NewArenaSize creates an arena whose chunks grow chunkSize slots at a
// time.
func NewArenaSize(chunkSize int) *Arena {
	if chunkSize <= 0 {
		panic("gc: chunk size must be > 0")
	}
	return &Arena{chunkSize: chunkSize}
}

// Alloc registers obj with the arena and returns it unchanged, so
// callers can write `v := arena.Alloc(NewObject(...))`.
func (a *Arena) Alloc(obj Traceable) Traceable {
	if len(a.chunks) == 0 || len(a.chunks[len(a.chunks)-1]) == cap(a.chunks[len(a.chunks)-1]) {
		a.addChunk()
	}
	last := len(a.chunks) - 1
	a.chunks[last] = append(a.chunks[last], obj)
	a.totalAllocated += uint64(obj.GCHeader().ObjectSize()) + HeaderSize
	return obj
}

func (a *Arena) addChunk() {
	a.chunks = append(a.chunks, make([]Traceable, 0, a.chunkSize))
}

// Reset reclaims every registration in the arena, keeping only the
// first chunk's backing array (truncated to length 0) for reuse. Once
// no other Traceable still references the dropped objects, Go's own
// collector reclaims them; that is the Go-safe equivalent of the
// original arena freeing its backing chunks outright.
func (a *Arena) Reset() {
	a.totalAllocated = 0
	if len(a.chunks) == 0 {
		return
	}
	first := a.chunks[0][:0]
	a.chunks = a.chunks[:1]
	a.chunks[0] = first
}

// Live returns every object currently registered with the arena, across
// all chunks. Used as the collector's sweep set.
func (a *Arena) Live() []Traceable {
	all := make([]Traceable, 0, a.totalSlots())
	for _, c := range a.chunks {
		all = append(all, c...)
	}
	return all
}

func (a *Arena) totalSlots() int {
	n := 0
	for _, c := range a.chunks {
		n += len(c)
	}
	return n
}

// BytesAllocated reports bytes registered since the last Reset,
// mirroring the original's total_allocated.
func (a *Arena) BytesAllocated() uint64 { return a.totalAllocated }

// ChunkCount reports how many backing chunks the arena has grown to.
func (a *Arena) ChunkCount() int { return len(a.chunks) }

// retain replaces the arena's contents with exactly the given survivors,
// preserving the chunking scheme. Used by Collector.Sweep after a mark
// phase to drop unreachable (white) objects from the registry.
func (a *Arena) retain(survivors []Traceable) {
	a.chunks = a.chunks[:0]
	a.totalAllocated = 0
	for _, obj := range survivors {
		a.Alloc(obj)
	}
}
