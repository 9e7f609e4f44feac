package subprocess

import (
	"strings"
	"sync"
)

// LineBuffer keeps the most recent stderr lines in a fixed-size ring so a
// long-running server cannot grow it without bound.
type LineBuffer struct {
	mu    sync.Mutex
	lines []string
	start int
	size  int
}

// NewLineBuffer creates a buffer holding at most capacity lines.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity < 1 {
		capacity = 1
	}

	return &LineBuffer{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest one when full.
func (b *LineBuffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	end := (b.start + b.size) % len(b.lines)
	b.lines[end] = line

	if b.size < len(b.lines) {
		b.size++

		return
	}

	b.start = (b.start + 1) % len(b.lines)
}

// Lines returns every buffered line, oldest first.
func (b *LineBuffer) Lines() []string {
	return b.Last(-1)
}

// Last returns up to n of the newest lines, oldest first. A negative n
// returns everything.
func (b *LineBuffer) Last(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n < 0 || n > b.size {
		n = b.size
	}

	out := make([]string, n)
	first := b.start + b.size - n

	for i := range n {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}

	return out
}

// Len returns the number of buffered lines.
func (b *LineBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.size
}

// Contains reports whether any buffered line contains substr.
func (b *LineBuffer) Contains(substr string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.size {
		if strings.Contains(b.lines[(b.start+i)%len(b.lines)], substr) {
			return true
		}
	}

	return false
}
