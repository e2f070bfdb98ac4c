/*
 * Copyright (c) 2007 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

// Package iobuf implements the input and output buffers the connection
// state machine drives: a growable input window with lazy gap-flushing and
// controlled growth (§4.3), and a scatter/gather output vector with an
// owned staging area for short copied-in responses (§4.4).
package iobuf

// MinBufSize is the magic constant lower limit for input-buffer backing
// store sizes.
const MinBufSize = 1024

// Input is a contiguous window [begin, end) over an owned backing store.
// It tracks a front gap (already-consumed bytes still occupying space at
// the front) and back space (writable tail capacity).
type Input struct {
	buf        []byte
	begin, end int
}

// NewInput returns an empty Input with the given initial capacity.
func NewInput(capacity int) *Input {
	return &Input{buf: make([]byte, capacity)}
}

// Len returns the number of live bytes in the window.
func (b *Input) Len() int { return b.end - b.begin }

// Bytes returns the live window. The slice is only valid until the next
// mutating call (Append, Consume, FlushGap, Realloc, Flush).
func (b *Input) Bytes() []byte { return b.buf[b.begin:b.end] }

// FrontGap is the unused space at the buffer's front.
func (b *Input) FrontGap() int { return b.begin }

// BackSpace is the writable tail capacity.
func (b *Input) BackSpace() int { return len(b.buf) - b.end }

// Tail returns the writable tail the caller should read into.
func (b *Input) Tail() []byte { return b.buf[b.end:] }

// Append advances end by n: the caller has just written n bytes into Tail().
func (b *Input) Append(n int) {
	b.end += n
}

// Consume drops the first n bytes of the live window.
func (b *Input) Consume(n int) {
	b.begin += n
	if b.begin == b.end {
		// nothing live; reclaim the whole backing store as gap-free space
		// instead of waiting for the next Flush to notice.
		b.begin, b.end = 0, 0
	}
}

// FlushGap memmoves the live window to offset 0, eliminating the front
// gap, and returns the gap size that was eliminated.
func (b *Input) FlushGap() int {
	gap := b.FrontGap()
	if gap == 0 {
		return 0
	}
	n := copy(b.buf, b.buf[b.begin:b.end])
	b.begin, b.end = 0, n
	return gap
}

// Realloc grows the backing store to at least n bytes, preserving the live
// window at offset 0.
func (b *Input) Realloc(n int) {
	live := b.Len()
	newBuf := make([]byte, n)
	copy(newBuf, b.buf[b.begin:b.end])
	b.buf = newBuf
	b.begin, b.end = 0, live
}

// Flush implements the §4.3 growth policy, invoked by the driver to obtain
// writable tail space before each read. It returns the back space
// available after whatever gap-flush or reallocation it performed.
func (b *Input) Flush() int {
	size := b.Len()
	space := b.BackSpace()
	switch {
	case b.FrontGap() > max(size, space):
		b.FlushGap()
	case space*2 <= min(size, MinBufSize):
		cap := max(MinBufSize, len(b.buf)*2)
		b.Realloc(cap)
	}
	return b.BackSpace()
}
