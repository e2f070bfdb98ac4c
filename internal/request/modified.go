/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package request

import "github.com/minihttpd-go/server/internal/rfc2616"

// ParseIfModifiedSinceHeader attempts RFC-1123, then RFC-850, then asctime,
// in that order. After a syntactic match it performs the §4.2 calendar-
// sanity validation; on success it sets req.IfModifiedSince (seconds since
// epoch, UTC) and returns the number of bytes consumed. On any failure it
// returns 0 and leaves req unchanged.
func ParseIfModifiedSinceHeader(b []byte, req *Request) int {
	parsers := []func([]byte) (int, rfc2616.BrokenDownTime){
		rfc2616.ParseRFC1123Date,
		rfc2616.ParseRFC850Date,
		rfc2616.ParseAsctimeDate,
	}
	for _, parse := range parsers {
		n, d := parse(b)
		if n == 0 {
			continue
		}
		if !d.Valid() {
			return 0
		}
		req.IfModifiedSince = d.Unix()
		req.HasIfModifiedSince = true
		return n
	}
	return 0
}
