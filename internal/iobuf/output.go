/*
 * Copyright (c) 2007 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

package iobuf

// entry is one scatter-vector range. A borrowed entry references external
// memory directly; a staged entry references [start, start+length) of
// Output's own staging buffer by index, so growing that buffer never
// invalidates an entry the way a raw pointer into a reallocated C++
// vector would (§9's replacement for the iovec-rebase trick).
type entry struct {
	borrowed []byte
	start    int // valid only when borrowed == nil
	length   int
}

// Output is a scatter/gather vector of byte ranges plus an owned staging
// area for short inline data (§4.4).
type Output struct {
	entries []entry
	staging []byte

	// appended and consumed count entries ever pushed and ever fully
	// drained, across the whole lifetime of the buffer. Mark/TruncateTo
	// use them to locate a past append position even after Consume has
	// shifted entries out of the front (see Mark's doc comment).
	appended int
	consumed int
}

// Append pushes a borrowed range directly into the scatter vector,
// zero-copy; the caller guarantees b's lifetime until the range is fully
// consumed.
func (o *Output) Append(b []byte) {
	if len(b) == 0 {
		return
	}
	o.entries = append(o.entries, entry{borrowed: b})
	o.appended++
}

// PushBack copies b into the staging area and pushes an entry referring to
// that region.
func (o *Output) PushBack(b []byte) {
	if len(b) == 0 {
		return
	}
	start := len(o.staging)
	o.staging = append(o.staging, b...)
	o.entries = append(o.entries, entry{start: start, length: len(b)})
	o.appended++
}

// Empty reports whether the scatter vector is empty. Consume clears the
// staging area whenever the vector becomes empty; the converse does not
// hold, since borrowed entries (Append) occupy no staging space.
func (o *Output) Empty() bool { return len(o.entries) == 0 }

// View returns the current scatter vector, dereferencing staged entries
// against the current staging-buffer address. The returned slices are
// valid until the next mutating call (PushBack, Consume, Reset).
func (o *Output) View() [][]byte {
	out := make([][]byte, len(o.entries))
	for i, e := range o.entries {
		if e.borrowed != nil {
			out[i] = e.borrowed
		} else {
			out[i] = o.staging[e.start : e.start+e.length]
		}
	}
	return out
}

// Len returns the total number of bytes across all entries.
func (o *Output) Len() int {
	n := 0
	for _, e := range o.entries {
		if e.borrowed != nil {
			n += len(e.borrowed)
		} else {
			n += e.length
		}
	}
	return n
}

// Consume drains the first n bytes across the scatter vector, trimming or
// removing entries. When the vector becomes fully empty, the staging area
// is cleared too.
func (o *Output) Consume(n int) {
	for n > 0 && len(o.entries) > 0 {
		e := &o.entries[0]
		elen := entryLen(*e)
		if n < elen {
			if e.borrowed != nil {
				e.borrowed = e.borrowed[n:]
			} else {
				e.start += n
				e.length -= n
			}
			n = 0
			break
		}
		n -= elen
		o.entries = o.entries[1:]
		o.consumed++
	}
	if len(o.entries) == 0 {
		o.staging = o.staging[:0]
	}
}

// Reset clears the buffer entirely, discarding any staged or borrowed
// ranges. Only safe when nothing a driver hasn't yet seen could be lost —
// i.e. when the buffer holds only the current, not-yet-stepped-past
// transaction's data. Error paths that may run after a prior transaction
// has already queued its (undrained) response must use TruncateTo a mark
// taken before their own transaction began, not Reset.
func (o *Output) Reset() {
	o.entries = o.entries[:0]
	o.staging = o.staging[:0]
	o.appended = 0
	o.consumed = 0
}

// Mark captures the buffer's current append position. A later TruncateTo
// discards everything appended after the mark while leaving anything
// appended before it — including an earlier, already-queued-but-undrained
// transaction's response — untouched. This is what lets restart() avoid
// draining the output buffer (§5, and DESIGN.md's "restart must not clear
// the output buffer") while still letting a later transaction's error
// response cleanly discard only its own, possibly partial, success-path
// bytes instead of Reset's whole-buffer wipe.
type Mark struct {
	appended int
	staging  int
}

// Mark returns a Mark for the buffer's current state.
func (o *Output) Mark() Mark {
	return Mark{appended: o.appended, staging: len(o.staging)}
}

// TruncateTo discards every entry pushed since m was taken. Entries
// consumed by the driver in the meantime are accounted for: only the
// still-present entries that were pushed after m remain subject to
// truncation, and everything pushed before m — drained or not — is left
// alone.
func (o *Output) TruncateTo(m Mark) {
	keep := m.appended - o.consumed
	switch {
	case keep <= 0:
		o.entries = o.entries[:0]
		o.staging = o.staging[:0]
	case keep >= len(o.entries):
		// Nothing was appended after m; nothing to discard.
	default:
		o.entries = o.entries[:keep]
		o.staging = o.staging[:m.staging]
	}
	o.appended = m.appended
}

func entryLen(e entry) int {
	if e.borrowed != nil {
		return len(e.borrowed)
	}
	return e.length
}
