package canvassync

// history is a bounded linear undo history over serialized scene snapshots.
// base holds the snapshot that precedes the oldest retained entry, so the
// number of possible undo steps equals the number of retained entries even
// after truncation.
type history struct {
	limit   int
	base    []byte
	entries [][]byte
	step    int // number of applied entries
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = 50
	}
	return &history{limit: limit}
}

// reset starts a fresh history with base as the initial scene.
func (h *history) reset(base []byte) {
	h.base = base
	h.entries = nil
	h.step = 0
}

// push records a post-modification snapshot, truncating any redo future.
// When the history overflows, the oldest entry becomes the new base.
func (h *history) push(snapshot []byte) {
	h.entries = append(h.entries[:h.step], snapshot)
	if len(h.entries) > h.limit {
		h.base = h.entries[0]
		h.entries = h.entries[1:]
	}
	h.step = len(h.entries)
}

// undo returns the snapshot to restore, or false when at the beginning.
func (h *history) undo() ([]byte, bool) {
	switch {
	case h.step > 1:
		h.step--
		return h.entries[h.step-1], true
	case h.step == 1 && h.base != nil:
		h.step = 0
		return h.base, true
	}
	return nil, false
}

// redo returns the snapshot to restore, or false when at the end.
func (h *history) redo() ([]byte, bool) {
	if h.step >= len(h.entries) {
		return nil, false
	}
	h.step++
	return h.entries[h.step-1], true
}

func (h *history) canUndo() bool {
	return h.step > 1 || (h.step == 1 && h.base != nil)
}

func (h *history) canRedo() bool {
	return h.step < len(h.entries)
}
