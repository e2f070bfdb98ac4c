/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package request

import (
	"strings"

	"github.com/minihttpd-go/server/internal/rfc2616"
)

// ParseHostHeader recognizes "host[:port]" and writes req.Host (lowercased)
// and req.Port. It returns the number of bytes consumed, or 0 on failure.
func ParseHostHeader(b []byte, req *Request) int {
	hn := rfc2616.Hostname(b)
	if hn == 0 {
		hn = rfc2616.IPv4Address(b)
	}
	if hn == 0 {
		return 0
	}
	i := hn
	var port string
	if i < len(b) && b[i] == ':' {
		start := i + 1
		j := start
		for j < len(b) && b[j] >= '0' && b[j] <= '9' {
			j++
		}
		port = string(b[start:j])
		i = j
	}
	if i != len(b) {
		return 0
	}
	req.Host = strings.ToLower(string(b[:hn]))
	req.Port = port
	return len(b)
}
