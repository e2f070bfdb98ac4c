/*
 * Copyright (c) 2007 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

package iobuf

import (
	"bytes"
	"testing"
)

func TestInputAppendConsume(t *testing.T) {
	in := NewInput(16)
	copy(in.Tail(), "hello, ")
	in.Append(7)
	if got := string(in.Bytes()); got != "hello, " {
		t.Fatalf("got %q", got)
	}
	in.Consume(7)
	if in.Len() != 0 {
		t.Fatalf("expected empty buffer, got len=%d", in.Len())
	}
	copy(in.Tail(), "world")
	in.Append(5)
	if got := string(in.Bytes()); got != "world" {
		t.Fatalf("got %q", got)
	}
}

func TestInputGrowthPolicy(t *testing.T) {
	in := NewInput(4)
	copy(in.Tail(), "abcd")
	in.Append(4) // size = 4, back_space = 0: 0*2 <= min(4, MinBufSize) triggers growth
	space := in.Flush()
	if space == 0 {
		t.Fatal("Flush must always leave writable space")
	}
	if len(in.buf) < MinBufSize {
		t.Fatalf("expected growth to at least MinBufSize, got %d", len(in.buf))
	}
}

func TestInputFlushGapWhenGapDominates(t *testing.T) {
	in := NewInput(64)
	copy(in.Tail(), bytes.Repeat([]byte{'x'}, 40))
	in.Append(40)
	in.Consume(35) // front_gap = 35, size = 5, back_space = 24
	before := string(in.Bytes())
	in.Flush()
	if got := string(in.Bytes()); got != before {
		t.Fatalf("flush must preserve live bytes, got %q want %q", got, before)
	}
	if in.FrontGap() != 0 {
		t.Fatalf("expected the gap to be flushed, got FrontGap=%d", in.FrontGap())
	}
}

func TestOutputRoundTrip(t *testing.T) {
	var out Output
	ext := []byte("borrowed-data")
	out.Append(ext)
	out.PushBack([]byte("copied-data"))

	total := out.Len()
	view := out.View()
	var joined []byte
	for _, v := range view {
		joined = append(joined, v...)
	}
	if string(joined) != "borrowed-data"+"copied-data" {
		t.Fatalf("unexpected concatenation: %q", joined)
	}

	out.Consume(total)
	if !out.Empty() {
		t.Fatalf("expected buffer empty after full consume")
	}
}

func TestOutputPartialConsume(t *testing.T) {
	var out Output
	out.PushBack([]byte("HTTP/1.1 200 OK\r\n"))
	out.Append([]byte("body-bytes"))

	full := concatView(out.View())
	out.Consume(5)
	remaining := concatView(out.View())
	if string(remaining) != string(full[5:]) {
		t.Fatalf("partial consume mismatch: got %q want %q", remaining, full[5:])
	}
}

func TestOutputInvariantEntriesEmptyIffStagingEmpty(t *testing.T) {
	var out Output
	out.PushBack([]byte("x"))
	out.Consume(1)
	if !out.Empty() {
		t.Fatal("expected empty after full consume")
	}
	if len(out.staging) != 0 {
		t.Fatal("staging should be cleared once entries are empty")
	}
}

func TestOutputTruncateToDiscardsOnlyEntriesAfterMark(t *testing.T) {
	var out Output
	out.PushBack([]byte("first-response"))
	mark := out.Mark()
	out.PushBack([]byte("second-response-half-built"))

	out.TruncateTo(mark)

	if got := string(concatView(out.View())); got != "first-response" {
		t.Fatalf("expected only the pre-mark entry to survive, got %q", got)
	}
}

func TestOutputTruncateToAfterPartialDrainOfPreMarkEntries(t *testing.T) {
	var out Output
	out.PushBack([]byte("first-response"))
	out.Consume(5) // driver drained part of the first response before the mark
	mark := out.Mark()
	out.PushBack([]byte("second-response-half-built"))

	out.TruncateTo(mark)

	if got := string(concatView(out.View())); got != "-response" {
		t.Fatalf("expected the undrained remainder of the pre-mark entry to survive, got %q", got)
	}
}

func TestOutputTruncateToWhenEverythingPreMarkAlreadyDrained(t *testing.T) {
	var out Output
	out.PushBack([]byte("first-response"))
	mark := out.Mark()
	out.Consume(len("first-response")) // driver fully drains before the error is composed
	out.PushBack([]byte("second-response-half-built"))

	out.TruncateTo(mark)

	if !out.Empty() {
		t.Fatalf("expected nothing left once the pre-mark entry was already fully drained, got %q", concatView(out.View()))
	}
}

func concatView(view [][]byte) []byte {
	var out []byte
	for _, v := range view {
		out = append(out, v...)
	}
	return out
}
