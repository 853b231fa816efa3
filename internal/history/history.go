package history

// History is a linear undo/redo stack of generated code snapshots with a
// single cursor. The cursor is -1 exactly when the stack is empty; the
// snapshot at the cursor is the one currently displayed.
type History struct {
	snapshots []string
	cursor    int
}

func New() *History {
	return &History{cursor: -1}
}

// Push appends a snapshot and moves the cursor to it. If the cursor is not
// at the tail, every snapshot after the cursor is discarded first, so an
// edit after an undo prunes the redo branch.
func (h *History) Push(code string) {
	if h.cursor < len(h.snapshots)-1 {
		h.snapshots = h.snapshots[:h.cursor+1]
	}
	h.snapshots = append(h.snapshots, code)
	h.cursor = len(h.snapshots) - 1
}

// Undo moves the cursor one step back and returns the snapshot there.
// At cursor 0 (or on an empty history) it returns false and leaves the
// cursor unchanged: index 0 is the oldest reachable state.
func (h *History) Undo() (string, bool) {
	if h.cursor <= 0 {
		return "", false
	}
	h.cursor--
	return h.snapshots[h.cursor], true
}

// Redo moves the cursor one step forward and returns the snapshot there.
// At the tail it returns false and leaves the cursor unchanged.
func (h *History) Redo() (string, bool) {
	if h.cursor >= len(h.snapshots)-1 {
		return "", false
	}
	h.cursor++
	return h.snapshots[h.cursor], true
}

// Reset discards all snapshots.
func (h *History) Reset() {
	h.snapshots = nil
	h.cursor = -1
}

// CanUndo reports whether an undo control should be enabled.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether a redo control should be enabled.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.snapshots)-1
}

func (h *History) Len() int {
	return len(h.snapshots)
}

func (h *History) Cursor() int {
	return h.cursor
}

// Snapshots returns a copy of the stored snapshots, oldest first.
func (h *History) Snapshots() []string {
	out := make([]string, len(h.snapshots))
	copy(out, h.snapshots)
	return out
}

// Restore replaces the history contents, clamping the cursor into range.
// Used when reloading a persisted session.
func (h *History) Restore(snapshots []string, cursor int) {
	h.snapshots = make([]string, len(snapshots))
	copy(h.snapshots, snapshots)
	if len(h.snapshots) == 0 {
		h.cursor = -1
		return
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(h.snapshots)-1 {
		cursor = len(h.snapshots) - 1
	}
	h.cursor = cursor
}
