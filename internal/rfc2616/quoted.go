/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package rfc2616

// QuotedString consumes a quoted-string ('"' (qdtext | quoted-pair)* '"')
// prefix of b. It returns the number of bytes consumed and the unescaped
// value, or (0, nil) if b does not begin with a well-formed quoted-string.
func QuotedString(b []byte) (consumed int, value []byte) {
	if len(b) == 0 || b[0] != '"' {
		return 0, nil
	}
	i := 1
	var out []byte
	for i < len(b) {
		switch {
		case b[i] == '"':
			return i + 1, out
		case b[i] == '\\':
			// quoted-pair: backslash CHAR
			if i+1 >= len(b) || !IsChar(b[i+1]) {
				return 0, nil
			}
			out = append(out, b[i+1])
			i += 2
		case IsText(b[i]):
			out = append(out, b[i])
			i++
		default:
			return 0, nil
		}
	}
	return 0, nil // no closing quote yet
}
