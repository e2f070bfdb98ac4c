/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package request

import (
	"strconv"
	"strings"

	"github.com/minihttpd-go/server/internal/rfc2616"
)

// ParseRequestLine recognizes "METHOD SP URI SP HTTP/DIGITS.DIGITS CRLF" and
// populates req's Method, URL, MajorVersion and MinorVersion. It returns
// the number of bytes consumed through the terminating CRLF, or 0 on
// syntactic failure or if no CRLF is present yet.
//
// URI is either an absolute URL ("http://host[:port][abs_path[?query]]",
// matched case-insensitively) or an abs_path[?query]. Preserved source
// quirk (see design notes, §9): when the URI begins with "http://", the
// source overwrites Method with the literal "HTTP" rather than keeping the
// method token it already parsed. That is reproduced here as-is.
func ParseRequestLine(b []byte, req *Request) int {
	methodLen := rfc2616.Token(b)
	if methodLen == 0 {
		return 0
	}
	method := string(b[:methodLen])
	i := methodLen
	if i >= len(b) || b[i] != ' ' {
		return 0
	}
	i++

	uriStart := i
	uriEnd := bytesIndexSP(b[i:])
	if uriEnd < 0 {
		return 0
	}
	uri := b[uriStart : uriStart+uriEnd]
	i += uriEnd
	if i >= len(b) || b[i] != ' ' {
		return 0
	}
	i++

	major, minor, n := parseHTTPVersion(b[i:])
	if n == 0 {
		return 0
	}
	i += n
	if !rfc2616.CRLF(b[i:]) {
		return 0
	}
	i += 2

	var u URL
	isAbsolute := false
	if hasSchemePrefix(uri, "http://") {
		isAbsolute = true
		u = parseAbsoluteURI(uri[len("http://"):])
	} else {
		var ok bool
		u, ok = parseOriginForm(uri)
		if !ok {
			return 0
		}
	}

	req.URL = u
	req.MajorVersion = major
	req.MinorVersion = minor
	if isAbsolute {
		// deliberate quirk: the method field is overwritten with the
		// literal string "HTTP", not the parsed method token.
		req.Method = "HTTP"
	} else {
		req.Method = method
	}
	return i
}

func bytesIndexSP(b []byte) int {
	for i, c := range b {
		if c == ' ' {
			return i
		}
	}
	return -1
}

func hasSchemePrefix(uri []byte, scheme string) bool {
	if len(uri) < len(scheme) {
		return false
	}
	return strings.EqualFold(string(uri[:len(scheme)]), scheme)
}

// parseOriginForm parses abs_path["?"query].
func parseOriginForm(uri []byte) (URL, bool) {
	n := rfc2616.AbsPath(uri)
	if n == 0 {
		return URL{}, false
	}
	u := URL{Path: string(uri[:n])}
	rest := uri[n:]
	if len(rest) > 0 && rest[0] == '?' {
		qn := rfc2616.Query(rest[1:])
		u.Query = string(rest[1 : 1+qn])
		rest = rest[1+qn:]
	}
	if len(rest) != 0 {
		return URL{}, false
	}
	return u, true
}

// parseAbsoluteURI parses "host[:port][abs_path[?query]]" — the tail of an
// absolute "http://" request-URI. It is deliberately lenient: a malformed
// tail simply yields a URL with only the pieces it could recognize, since
// the method-overwrite quirk means downstream processing treats this
// request as unsupported ("HTTP" is not GET/HEAD) regardless.
func parseAbsoluteURI(b []byte) URL {
	var u URL
	hn := rfc2616.Hostname(b)
	if hn == 0 {
		hn = rfc2616.IPv4Address(b)
	}
	u.Host = strings.ToLower(string(b[:hn]))
	rest := b[hn:]
	if len(rest) > 0 && rest[0] == ':' {
		pn := 0
		for pn < len(rest)-1 && rest[1+pn] >= '0' && rest[1+pn] <= '9' {
			pn++
		}
		u.Port = string(rest[1 : 1+pn])
		rest = rest[1+pn:]
	}
	if pn := rfc2616.AbsPath(rest); pn > 0 {
		u.Path = string(rest[:pn])
		rest = rest[pn:]
	} else {
		u.Path = "/"
	}
	if len(rest) > 0 && rest[0] == '?' {
		qn := rfc2616.Query(rest[1:])
		u.Query = string(rest[1 : 1+qn])
	}
	return u
}

// parseHTTPVersion recognizes "HTTP/DIGITS.DIGITS" and returns
// major, minor, and the number of bytes consumed (0 on failure).
func parseHTTPVersion(b []byte) (major, minor uint, n int) {
	const prefix = "HTTP/"
	if len(b) < len(prefix) || string(b[:len(prefix)]) != prefix {
		return 0, 0, 0
	}
	i := len(prefix)
	majStart := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == majStart {
		return 0, 0, 0
	}
	majVal, err := strconv.ParseUint(string(b[majStart:i]), 10, 32)
	if err != nil {
		return 0, 0, 0
	}
	if i >= len(b) || b[i] != '.' {
		return 0, 0, 0
	}
	i++
	minStart := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i == minStart {
		return 0, 0, 0
	}
	minVal, err := strconv.ParseUint(string(b[minStart:i]), 10, 32)
	if err != nil {
		return 0, 0, 0
	}
	return uint(majVal), uint(minVal), i
}
