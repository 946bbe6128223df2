// Package buffer provides the decoder's character buffer and the
// bounded object pools the parser reuses across a single-threaded
// parse (spec.md section 4.6 "Support structures" and section 5
// "Concurrency & resource model").
package buffer

// Window is a non-owning reference into a CharacterBuffer: a start
// offset and a length. Tokens carry a Window rather than a copy; the
// consumer must copy out before the buffer is mutated again.
type Window struct {
	Start int
	Len   int
}

// Slice returns the code units the window designates, still backed by
// buf's storage. Callers that need to retain the result must copy it.
func (w Window) Slice(buf []uint16) []uint16 {
	return buf[w.Start : w.Start+w.Len]
}

// CharacterBuffer is a random-access view over a contiguous region of
// UTF-16 code units with position/limit/mark, as described in spec.md
// section 3. The decoder appends to it; the tokenizer advances
// Position as it classifies; marks bound the Window of an
// in-progress token.
type CharacterBuffer struct {
	data     []uint16
	limit    int
	position int
	mark     int
}

// NewCharacterBuffer returns an empty buffer with cap hinting the
// expected chunk size.
func NewCharacterBuffer(cap int) *CharacterBuffer {
	return &CharacterBuffer{data: make([]uint16, 0, cap)}
}

// Append adds code units at the end of the buffer, extending Limit.
func (b *CharacterBuffer) Append(units []uint16) {
	b.data = append(b.data, units...)
	b.limit = len(b.data)
}

// Compact discards everything before Mark or Position, whichever is
// earlier, sliding the remaining data, Mark and Position to the front,
// so the marked region of an in-progress token survives. Windows into
// the discarded prefix are no longer valid afterwards.
func (b *CharacterBuffer) Compact() {
	start := b.position
	if b.mark < start {
		start = b.mark
	}
	if start == 0 {
		return
	}
	n := copy(b.data, b.data[start:b.limit])
	b.data = b.data[:n]
	b.limit = n
	b.mark -= start
	b.position -= start
}

// Position returns the current read cursor.
func (b *CharacterBuffer) Position() int { return b.position }

// Limit returns the end of valid data.
func (b *CharacterBuffer) Limit() int { return b.limit }

// SetPosition moves the read cursor.
func (b *CharacterBuffer) SetPosition(p int) { b.position = p }

// Mark records the current position as the start of an in-progress
// token accumulation.
func (b *CharacterBuffer) Mark() { b.mark = b.position }

// MarkedWindow returns the Window from the last Mark to the current
// Position.
func (b *CharacterBuffer) MarkedWindow() Window {
	return Window{Start: b.mark, Len: b.position - b.mark}
}

// HasMore reports whether unread data remains.
func (b *CharacterBuffer) HasMore() bool { return b.position < b.limit }

// Peek returns the code unit at Position without advancing, and false
// if at Limit.
func (b *CharacterBuffer) Peek() (uint16, bool) {
	if b.position >= b.limit {
		return 0, false
	}
	return b.data[b.position], true
}

// Advance moves Position forward by n code units.
func (b *CharacterBuffer) Advance(n int) { b.position += n }

// PeekAt returns the code unit n units past Position without
// advancing, and false if that position is at or past Limit. Used by
// lookahead that needs to confirm a multi-unit sequence (a surrogate
// pair, or a delimiter like "--" / "]]") before committing to consume it.
func (b *CharacterBuffer) PeekAt(n int) (uint16, bool) {
	p := b.position + n
	if p >= b.limit {
		return 0, false
	}
	return b.data[p], true
}

// Data exposes the underlying storage for Window.Slice and for the
// decoder's append target; callers must not retain slices across a
// Compact.
func (b *CharacterBuffer) Data() []uint16 { return b.data }

// Slice returns the raw code units for a Window (convenience over
// Window.Slice(b.Data())).
func (b *CharacterBuffer) Slice(w Window) []uint16 { return w.Slice(b.data) }
