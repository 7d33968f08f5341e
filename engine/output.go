package engine

import "strings"

// boundedBuffer accumulates captured program output up to a fixed byte
// budget. Writes beyond the budget are discarded; the buffer records that
// they happened so the final output can carry a truncation marker.
type boundedBuffer struct {
	sb       strings.Builder
	capBytes int
	overflow bool
}

// newBoundedBuffer returns a buffer that keeps at most capBytes bytes.
func newBoundedBuffer(capBytes int) *boundedBuffer {
	return &boundedBuffer{capBytes: capBytes}
}

// WriteString appends s, keeping at most capBytes bytes in total.
func (b *boundedBuffer) WriteString(s string) {
	remain := b.capBytes - b.sb.Len()
	if remain <= 0 {
		if len(s) > 0 {
			b.overflow = true
		}
		return
	}
	if len(s) > remain {
		b.sb.WriteString(s[:remain])
		b.overflow = true
		return
	}
	b.sb.WriteString(s)
}

// String returns the captured output, truncated to the byte budget.
func (b *boundedBuffer) String() string {
	return b.sb.String()
}

// Truncated reports whether any output was discarded.
func (b *boundedBuffer) Truncated() bool {
	return b.overflow
}
