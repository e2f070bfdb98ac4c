/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package rfc2616

// isUnreserved reports whether b is an RFC 2616 "unreserved" character:
// alphanumeric or one of -_.!~*'()
func isUnreserved(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// isReserved reports whether b is an RFC 2616 "reserved" character:
// ;/?:@&=+$,
func isReserved(b byte) bool {
	switch b {
	case ';', '/', '?', ':', '@', '&', '=', '+', '$', ',':
		return true
	}
	return false
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// Escaped consumes a "%HH" escape and returns its length (always 3) or 0.
func Escaped(b []byte) int {
	if len(b) >= 3 && b[0] == '%' && isHexDigit(b[1]) && isHexDigit(b[2]) {
		return 3
	}
	return 0
}

// pcharLen returns the length of the pchar at the start of b (3 for an
// escape, else 1), or 0 if there is none. A pchar is unreserved, escaped,
// or one of :@&=+$,
func pcharLen(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	if n := Escaped(b); n > 0 {
		return n
	}
	if isUnreserved(b[0]) {
		return 1
	}
	switch b[0] {
	case ':', '@', '&', '=', '+', '$', ',':
		return 1
	}
	return 0
}

// AbsPath consumes an abs_path ("/" segment ("/" segment)*), where a segment
// is a run of pchars and ";"-prefixed params. Returns the number of bytes
// consumed, 0 if b does not begin with "/".
func AbsPath(b []byte) int {
	if len(b) == 0 || b[0] != '/' {
		return 0
	}
	i := 1
	for {
		for {
			if n := pcharLen(b[i:]); n > 0 {
				i += n
				continue
			}
			if i < len(b) && b[i] == ';' {
				i++
				continue
			}
			break
		}
		if i < len(b) && b[i] == '/' {
			i++
			continue
		}
		break
	}
	return i
}

// Query consumes the query component: a run of uric (reserved | unreserved |
// escaped) characters. It never fails; zero-length queries are legal, so
// the caller checks for the leading "?" itself.
func Query(b []byte) int {
	i := 0
	for i < len(b) {
		if n := Escaped(b[i:]); n > 0 {
			i += n
			continue
		}
		if isUnreserved(b[i]) || isReserved(b[i]) {
			i++
			continue
		}
		break
	}
	return i
}

// isDomainLabelChar reports whether b may appear inside a domain label
// (alphanumeric or '-', the '-' never at the edges — checked by the caller).
func isDomainLabelChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-'
}

// Hostname consumes a dotted sequence of LDH domain labels, i.e. the
// "hostname" production of RFC 2616 (RFC 952/1123 labels). Returns 0 if b
// does not begin with a valid label.
func Hostname(b []byte) int {
	i := 0
	for {
		start := i
		if i >= len(b) || !isAlnum(b[i]) {
			break
		}
		i++
		for i < len(b) && isDomainLabelChar(b[i]) {
			i++
		}
		if b[i-1] == '-' {
			// a label may not end in '-'; back off to the longest valid prefix
			for i > start && b[i-1] == '-' {
				i--
			}
		}
		if i < len(b) && b[i] == '.' {
			i++
			continue
		}
		break
	}
	return i
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// IPv4Address consumes a dotted-quad of decimal digit runs and returns its
// length, or 0 if b does not begin with one. No range checking is performed
// here (it accepts e.g. "999.1.1.1" syntactically) — SETUP_REPLY never
// depends on IPv4Address validity, only Hostname's LDH rules matter for
// virtual-host lookup.
func IPv4Address(b []byte) int {
	i := 0
	for part := 0; part < 4; part++ {
		start := i
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
		}
		if i == start {
			return 0
		}
		if part < 3 {
			if i >= len(b) || b[i] != '.' {
				return 0
			}
			i++
		}
	}
	return i
}
