/*
 * Copyright (c) 2001-2013 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

package vhost

import (
	"fmt"
	"html"
	"os"
	"strconv"
	"time"
)

// rfc1123 is the wire date format §6 calls for: "Sun, 06 Nov 1994 08:49:37 GMT".
const rfc1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

// FormatRFC1123 formats t (interpreted as UTC) per §6.
func FormatRFC1123(t time.Time) string {
	return t.UTC().Format(rfc1123)
}

// ReplyOptions carries the pieces of Configuration and Request that
// response composition needs, without importing the request/config
// packages here (kept dependency-light; conn wires the fields through).
type ReplyOptions struct {
	ServerString  string // empty disables the Server header
	UsePersistent bool
	KeepAliveSecs int
	Now           time.Time
}

// headerBlock builds the common status-line-and-headers prefix shared by
// every response variant, returning the header block (CRLF-terminated,
// including the blank line) without a body.
func headerBlock(statusLine string, opts ReplyOptions, extra ...string) []byte {
	var buf []byte
	buf = append(buf, statusLine...)
	buf = append(buf, "\r\n"...)
	if opts.ServerString != "" {
		buf = append(buf, "Server: "...)
		buf = append(buf, opts.ServerString...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "Date: "...)
	buf = append(buf, FormatRFC1123(opts.Now)...)
	buf = append(buf, "\r\n"...)
	for _, line := range extra {
		buf = append(buf, line...)
		buf = append(buf, "\r\n"...)
	}
	if opts.UsePersistent {
		buf = append(buf, "Connection: keep-alive\r\n"...)
		buf = append(buf, fmt.Sprintf("Keep-Alive: timeout=%d, max=100\r\n", opts.KeepAliveSecs)...)
	} else {
		buf = append(buf, "Connection: close\r\n"...)
	}
	buf = append(buf, "\r\n"...)
	return buf
}

// ComposeSuccess builds the "200 OK" response header block for a resolved
// file (§4.5). The body is not included; the caller streams it separately.
func ComposeSuccess(info os.FileInfo, contentType string, opts ReplyOptions) []byte {
	return headerBlock("HTTP/1.1 200 OK", opts,
		"Content-Type: "+contentType,
		"Content-Length: "+strconv.FormatInt(info.Size(), 10),
		"Last-Modified: "+FormatRFC1123(info.ModTime()),
	)
}

// ComposeNotModified builds the "304 Not Modified" response (§4.5). Unlike
// the other error-shaped responses, persistence is preserved.
func ComposeNotModified(opts ReplyOptions) []byte {
	return headerBlock("HTTP/1.1 304 Not Modified", opts)
}

// ComposeMovedPermanently builds the "301 Moved Permanently" response
// (§4.6), with Location built from host[:port] + redirectPath.
func ComposeMovedPermanently(host, port, redirectPath string, opts ReplyOptions) []byte {
	location := "http://" + host
	if port != "" && port != "80" {
		location += ":" + port
	}
	location += redirectPath

	buf := headerBlock("HTTP/1.1 301 Moved Permanently", opts,
		"Content-Type: text/html",
		"Location: "+location,
	)
	body := "<html>\r\n" +
		"<head>\r\n" +
		"  <title>Document Has Moved</title>\r\n" +
		"</head>\r\n" +
		"<body>\r\n" +
		"<h1>Document Has Moved</h1>\r\n" +
		"<p>The document has moved <a href=\"" + html.EscapeString(location) + "\">here</a>.</p>\r\n" +
		"</body>\r\n" +
		"</html>\r\n"
	return append(buf, body...)
}

// ComposeProtocolError builds a "400 Bad Request" response (§4.5/§7).
// message is inserted into the body verbatim, as HTML; it is not escaped
// here (UnsupportedMethodMessage escapes the method it echoes).
func ComposeProtocolError(message string, opts ReplyOptions) []byte {
	opts.UsePersistent = false
	buf := headerBlock("HTTP/1.1 400 Bad Request", opts, "Content-Type: text/html")
	body := "<html>\r\n" +
		"<head>\r\n" +
		"  <title>Bad HTTP Request</title>\r\n" +
		"</head>\r\n" +
		"<body>\r\n" +
		"<h1>Bad HTTP Request</h1>\r\n" +
		"<p>The HTTP request received by this server was incorrect:</p>\r\n" +
		"<blockquote>" + message + "</blockquote>\r\n" +
		"</body>\r\n" +
		"</html>\r\n"
	return append(buf, body...)
}

// UnsupportedMethodMessage renders the §4.5 SETUP_REPLY rejection message
// for a method other than GET/HEAD, HTML-escaping the echoed method.
func UnsupportedMethodMessage(method string) string {
	return "<p>This server does not support an HTTP request called <tt>" + html.EscapeString(method) + "</tt>.</p>\r\n"
}

// ComposeFileNotFound builds a "404 Not Found" response (§4.5/§7).
func ComposeFileNotFound(urlPath string, opts ReplyOptions) []byte {
	opts.UsePersistent = false
	buf := headerBlock("HTTP/1.1 404 Not Found", opts, "Content-Type: text/html")
	body := "<html>\r\n" +
		"<head>\r\n" +
		"  <title>Page Not Found</title>\r\n" +
		"</head>\r\n" +
		"<body>\r\n" +
		"<h1>Page Not Found</h1>\r\n" +
		"<p>The requested page <tt>" + html.EscapeString(urlPath) + "</tt> does not exist on this server.</p>\r\n" +
		"</body>\r\n" +
		"</html>\r\n"
	return append(buf, body...)
}
