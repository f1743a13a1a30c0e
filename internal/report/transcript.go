package report

import "sync"

// Transcript collects output lines up to a byte budget. Lines past the
// budget are counted but dropped. Its Listen method has the shape of
// executor.Listener.
type Transcript struct {
	mu        sync.Mutex
	limit     int
	size      int
	lines     []string
	dropped   int
	truncated bool
}

// NewTranscript returns a Transcript keeping at most limit bytes of output,
// counting one byte per line for the newline. limit <= 0 keeps everything.
func NewTranscript(limit int) *Transcript {
	return &Transcript{limit: limit}
}

// Listen records line.
func (t *Transcript) Listen(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.truncated {
		t.dropped++
		return
	}
	n := len(line) + 1
	if t.limit > 0 && t.size+n > t.limit {
		t.truncated = true
		t.dropped++
		return
	}
	t.size += n
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the kept lines.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return nil
	}
	return append([]string(nil), t.lines...)
}

// Truncated reports whether any line was dropped.
func (t *Transcript) Truncated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.truncated
}

// Dropped returns the number of lines past the budget.
func (t *Transcript) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
