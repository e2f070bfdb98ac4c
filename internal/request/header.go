/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package request

import "github.com/minihttpd-go/server/internal/rfc2616"

// FindNextLine scans b for the CRLF that ends a logical header line,
// honoring continuation (a folded line begins with SP or HT). It returns
// the position of the byte just past that CRLF, or len(b) to mean
// "incomplete — need more bytes."
func FindNextLine(b []byte) int {
	i := 0
	for {
		nl := indexCRLF(b[i:])
		if nl < 0 {
			return len(b)
		}
		lineEnd := i + nl + 2
		if lineEnd >= len(b) {
			return len(b) // can't yet tell whether the next line continues
		}
		if b[lineEnd] == ' ' || b[lineEnd] == '\t' {
			i = lineEnd
			continue
		}
		return lineEnd
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// ParseHeader recognizes "field-name *LWS \":\" *LWS [field-value] CRLF",
// where field-value may span folded continuation lines. It returns the
// number of bytes consumed through the terminating CRLF of the last
// unfolded line, the field name, and the concatenated value. It returns
// 0 when b does not yet contain a complete (possibly folded) line, or when
// the line is syntactically invalid.
func ParseHeader(b []byte) (consumed int, name string, value []byte) {
	end := FindNextLine(b)
	if end >= len(b) {
		return 0, "", nil
	}

	nameLen := rfc2616.Token(b)
	if nameLen == 0 {
		return 0, "", nil
	}
	i := nameLen
	i += rfc2616.SkipSP(b[i:])
	if i >= len(b) || b[i] != ':' {
		return 0, "", nil
	}
	i++

	var val []byte
	for i < end {
		if rfc2616.CRLF(b[i:]) {
			// end of this physical line; if folded, skip the CRLF and the
			// leading whitespace of the continuation and keep going.
			i += 2
			if i < end {
				i += rfc2616.SkipSP(b[i:])
				if len(val) > 0 {
					val = append(val, ' ')
				}
			}
			continue
		}
		val = append(val, b[i])
		i++
	}
	// trim trailing LWS already folded into val by construction; trim any
	// leading SP/HT left over from the first *LWS before the value.
	val = trimSP(val)
	return end, string(b[:nameLen]), val
}

func trimSP(b []byte) []byte {
	start := 0
	for start < len(b) && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	end := len(b)
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return b[start:end]
}
