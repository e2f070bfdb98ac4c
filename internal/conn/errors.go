/*
 * Copyright (c) 2001 by Peter Simons <simons@ieee.org>.
 * Adapted for this project's Go reimplementation.
 */

package conn

import "github.com/minihttpd-go/server/internal/vhost"

// protocolError implements §4.5/§7: malformed request line, malformed
// header, an unsupported method, or a header block that overflowed the
// configured maximum without ever completing a line. It discards whatever
// this transaction had already queued in the output buffer (a half-composed
// success reply, discarded in favor of the error — see rh-errors.cc, which
// overwrites write_buffer wholesale rather than appending) by truncating
// back to outMark, the mark taken when this transaction began — leaving a
// prior, still-undrained pipelined response untouched. It marks the
// connection non-persistent, logs the access record, and terminates.
func (c *Connection) protocolError(message string) State {
	c.usePersistent = false
	c.out.TruncateTo(c.outMark)
	c.out.PushBack(vhost.ComposeProtocolError(message, c.replyOptions()))
	c.req.StatusCode = 400
	c.req.HasStatusCode = true
	c.req.ObjectSize = 0
	c.logAccess()
	return StateTerminate
}

// fileNotFound implements the 404 path of §4.5/§7: hierarchy check failure
// or a stat() failure (ENOENT or otherwise, the latter already logged by
// the caller).
func (c *Connection) fileNotFound() State {
	c.usePersistent = false
	c.out.TruncateTo(c.outMark)
	c.out.PushBack(vhost.ComposeFileNotFound(c.req.URL.Path, c.replyOptions()))
	c.req.StatusCode = 404
	c.req.HasStatusCode = true
	c.req.ObjectSize = 0
	c.logAccess()
	return StateTerminate
}

// movedPermanently implements the 301 path of §4.5/§7: a directory URL
// without a trailing slash. redirectPath is the original URL path with a
// trailing slash appended, per §4.6.
func (c *Connection) movedPermanently(redirectPath string) State {
	c.usePersistent = false
	c.out.TruncateTo(c.outMark)
	c.out.PushBack(vhost.ComposeMovedPermanently(c.req.Host, c.req.Port, redirectPath, c.replyOptions()))
	c.req.StatusCode = 301
	c.req.HasStatusCode = true
	c.req.ObjectSize = 0
	c.logAccess()
	return StateTerminate
}

// notModified implements the 304 path of §4.5/§7. Unlike the other
// error-shaped responses, persistence is preserved and the connection
// proceeds through restart() rather than straight to TERMINATE.
func (c *Connection) notModified() State {
	c.out.TruncateTo(c.outMark)
	c.out.PushBack(vhost.ComposeNotModified(c.replyOptions()))
	c.req.StatusCode = 304
	c.req.HasStatusCode = true
	c.req.ObjectSize = 0
	c.logAccess()
	return c.restart()
}
