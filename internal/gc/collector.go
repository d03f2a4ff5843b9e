package gc

// Collector runs tri-color mark-and-sweep over a single process's Arena
// (spec.md §4.9). Collection only ever runs at a safepoint the
// scheduler hands control to between reduction-budget checks (C12), so
// the collector itself does not need to worry about concurrent mutation
// mid-trace.
type Collector struct {
	arena *Arena
}

// NewCollector binds a collector to the arena it will sweep.
func NewCollector(arena *Arena) *Collector { return &Collector{arena: arena} }

// Collect runs one full mark-sweep cycle: every object reachable from
// roots (register slices, mailbox contents — whatever the caller's
// process representation considers live right now) is marked black;
// everything else is dropped from the arena's registry. It returns the
// number of objects reclaimed.
func (c *Collector) Collect(roots []Traceable) int {
	c.markAll(roots)
	reclaimed := c.sweep()
	c.resetColors()
	return reclaimed
}

// markAll walks from roots, coloring every reachable object black via a
// gray worklist — the classic tri-color invariant (no black object
// points directly at a white one once the worklist drains).
func (c *Collector) markAll(roots []Traceable) {
	var gray []Traceable
	for _, r := range roots {
		if r == nil {
			continue
		}
		h := r.GCHeader()
		if h.Color() == White {
			h.SetColor(Gray)
			gray = append(gray, r)
		}
	}

	for len(gray) > 0 {
		obj := gray[len(gray)-1]
		gray = gray[:len(gray)-1]

		for _, child := range obj.References() {
			if child == nil {
				continue
			}
			ch := child.GCHeader()
			if ch.Color() == White {
				ch.SetColor(Gray)
				gray = append(gray, child)
			}
		}
		obj.GCHeader().SetColor(Black)
	}
}

// sweep drops every still-white object from the arena's registry,
// returning the reclaimed count.
func (c *Collector) sweep() int {
	live := c.arena.Live()
	survivors := make([]Traceable, 0, len(live))
	reclaimed := 0
	for _, obj := range live {
		h := obj.GCHeader()
		if h.IsPinned() || h.Color() != White {
			survivors = append(survivors, obj)
			continue
		}
		reclaimed++
	}
	c.arena.retain(survivors)
	return reclaimed
}

// resetColors flips every surviving object back to white, readying the
// arena for the next cycle (objects default to white on allocation, so
// only post-sweep survivors need resetting).
func (c *Collector) resetColors() {
	for _, obj := range c.arena.Live() {
		obj.GCHeader().SetColor(White)
	}
}
