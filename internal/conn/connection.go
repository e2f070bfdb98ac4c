/*
 * Copyright (c) 2001-2013 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

// Package conn implements §4.5, the non-blocking connection state machine:
// READ_REQUEST_LINE → READ_REQUEST_HEADER → READ_REQUEST_BODY →
// SETUP_REPLY → WRITE_RESPONSE → (restart | TERMINATE). It is re-entrant at
// every byte boundary — a Connection never blocks and never retains a
// goroutine of its own; an external driver feeds it bytes and drains its
// output through the four-method contract below (InputWindow, AppendInput,
// OutputView, DropOutput).
package conn

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"

	"github.com/minihttpd-go/server/internal/accesslog"
	"github.com/minihttpd-go/server/internal/config"
	"github.com/minihttpd-go/server/internal/iobuf"
	"github.com/minihttpd-go/server/internal/metrics"
	"github.com/minihttpd-go/server/internal/request"
	"github.com/minihttpd-go/server/internal/rfc2616"
	"github.com/minihttpd-go/server/internal/vhost"
)

// Connection owns one Request, the input buffer, the output buffer, an
// optional open file handle for the payload body, a persistence flag and
// the current state (§3). It is created by the driver on accept and
// destroyed once TERMINATE is reached and the output buffer has drained.
type Connection struct {
	cfg          *config.Configuration
	contentTypes *vhost.ContentTypeTable
	accessLog    *accesslog.Writer
	log          *logrus.Entry

	peer string

	req *request.Request
	in  *iobuf.Input
	out *iobuf.Output

	file          *os.File
	usePersistent bool
	state         State

	// outMark is the output buffer's append position at the start of the
	// current transaction. Error helpers truncate back to it instead of
	// calling Output.Reset, so they never discard a prior, already-queued
	// transaction's response that the driver hasn't drained yet (see
	// restart's doc comment and DESIGN.md).
	outMark iobuf.Mark

	// Metrics is optional; when set, completed transactions are counted by
	// status code (§11). Left nil in tests.
	Metrics *metrics.Metrics

	// nowFunc is injected by tests; production code leaves it nil and gets
	// time.Now.
	nowFunc func() time.Time
}

// New constructs a Connection in its initial READ_REQUEST_LINE state.
// logger may be nil, in which case logrus's standard logger is used.
func New(cfg *config.Configuration, contentTypes *vhost.ContentTypeTable, accessLog *accesslog.Writer, peer string, logger *logrus.Logger) *Connection {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Connection{
		cfg:          cfg,
		contentTypes: contentTypes,
		accessLog:    accessLog,
		peer:         peer,
		req:          &request.Request{},
		in:           iobuf.NewInput(iobuf.MinBufSize),
		out:          &iobuf.Output{},
		state:        StateReadRequestLine,
	}
	c.req.Reset(c.now().Unix())
	c.outMark = c.out.Mark()
	c.log = logger.WithFields(logrus.Fields{"peer": peer})
	return c
}

func (c *Connection) now() time.Time {
	if c.nowFunc != nil {
		return c.nowFunc()
	}
	return time.Now()
}

// State returns the connection's current state, chiefly for tests and
// diagnostics.
func (c *Connection) State() State { return c.state }

// InputWindow returns the writable tail of the input buffer the driver
// should read into; it is empty iff state == TERMINATE (§5).
func (c *Connection) InputWindow() []byte {
	if c.state == StateTerminate {
		return nil
	}
	c.in.Flush()
	return c.in.Tail()
}

// AppendInput tells the core the driver wrote n bytes into the window
// returned by the most recent InputWindow call, and drives the state
// machine forward.
func (c *Connection) AppendInput(n int) {
	if n == 0 {
		return
	}
	c.in.Append(n)
	c.Step()
}

// OutputView returns the borrowed byte ranges the driver should write, in
// strict emission order. Valid until the next core call.
func (c *Connection) OutputView() [][]byte {
	return c.out.View()
}

// DropOutput tells the core the driver wrote n bytes from the head of the
// scatter vector, and drives the state machine forward (§5). In
// WRITE_RESPONSE every such step reads and queues the next file block,
// whether or not the earlier output has fully drained.
func (c *Connection) DropOutput(n int) {
	if n == 0 {
		return
	}
	c.out.Consume(n)
	c.Step()
}

// Done reports whether the connection has reached TERMINATE and fully
// drained its output buffer; the driver may close the socket once this is
// true.
func (c *Connection) Done() bool {
	return c.state == StateTerminate && c.out.Empty()
}

// PeerEOF handles end-of-stream from the peer (§5): a silent close if no
// request has begun accumulating, otherwise treated as an abrupt
// termination with whatever response, if any, is already queued.
func (c *Connection) PeerEOF() {
	if c.state == StateReadRequestLine && c.in.Len() == 0 {
		c.out.Reset()
	}
	c.state = StateTerminate
}

// Step runs the tight per-state loop described in §4.5: a handler for the
// current state runs and returns the next state; the loop continues until
// the handler signals "need more bytes / need to drain" by returning the
// same state, or TERMINATE is reached.
func (c *Connection) Step() {
	for {
		if c.state == StateTerminate {
			return
		}
		next := c.dispatch(c.state)
		if next == c.state {
			return
		}
		c.state = next
	}
}

func (c *Connection) dispatch(s State) State {
	switch s {
	case StateReadRequestLine:
		return c.handleReadRequestLine()
	case StateReadRequestHeader:
		return c.handleReadRequestHeader()
	case StateReadRequestBody:
		return c.handleReadRequestBody()
	case StateSetupReply:
		return c.handleSetupReply()
	case StateWriteResponse:
		return c.handleWriteResponse()
	default:
		return s
	}
}

func (c *Connection) headerBlockOverflowed(data []byte) bool {
	return len(data) >= c.cfg.MaxHeaderBytesOrDefault()
}

func (c *Connection) handleReadRequestLine() State {
	data := c.in.Bytes()
	if !bytes.Contains(data, []byte("\r\n")) {
		if c.headerBlockOverflowed(data) {
			return c.protocolError("excessively long header lines")
		}
		return StateReadRequestLine
	}
	n := request.ParseRequestLine(data, c.req)
	if n == 0 {
		return c.protocolError("malformed request line")
	}
	c.in.Consume(n)
	return StateReadRequestHeader
}

func (c *Connection) handleReadRequestHeader() State {
	data := c.in.Bytes()
	if rfc2616.CRLF(data) {
		c.in.Consume(2)
		return StateReadRequestBody
	}

	end := request.FindNextLine(data)
	if end >= len(data) {
		if c.headerBlockOverflowed(data) {
			return c.protocolError("excessively long header lines")
		}
		return StateReadRequestHeader
	}

	consumed, name, value := request.ParseHeader(data)
	if consumed == 0 {
		return c.protocolError("malformed header line")
	}

	switch strings.ToLower(name) {
	case "host":
		if request.ParseHostHeader(value, c.req) == 0 {
			return c.protocolError("malformed Host header")
		}
	case "if-modified-since":
		if request.ParseIfModifiedSinceHeader(value, c.req) == 0 {
			c.log.WithField("value", string(value)).Debug("ignoring unparseable If-Modified-Since header")
		}
	case "connection":
		c.req.Connection = string(value)
	case "keep-alive":
		c.req.KeepAlive = string(value)
	case "user-agent":
		c.req.UserAgent = string(value)
	case "referer":
		c.req.Referer = string(value)
	}

	c.in.Consume(consumed)
	return StateReadRequestHeader
}

func (c *Connection) handleReadRequestBody() State {
	return StateSetupReply
}

func (c *Connection) handleSetupReply() State {
	method := c.req.Method
	if method != "GET" && method != "HEAD" {
		return c.protocolError(vhost.UnsupportedMethodMessage(method))
	}

	host := c.resolveHost()
	if host == "" {
		return c.protocolError("<p>Your HTTP request did not contain a <tt>Host</tt> header.</p>")
	}
	c.req.Host = normalizeHostname(host)
	if c.req.Port == "" && c.req.URL.Port != "" {
		c.req.Port = c.req.URL.Port
	}

	decodedPath, err := request.URLDecode(c.req.URL.Path)
	if err != nil {
		return c.protocolError("illegal URL escape in request path")
	}

	c.usePersistent = c.decidePersistence()

	resolved := vhost.Resolve(c.cfg.DocumentRoot, c.req.Host, decodedPath, c.req.URL.Path, c.cfg.DefaultPage)
	switch resolved.Outcome {
	case vhost.OutcomeNotFound:
		if resolved.LoggableError != nil {
			c.log.WithError(resolved.LoggableError).Info("stat failed resolving request")
		}
		return c.fileNotFound()
	case vhost.OutcomeRedirect:
		return c.movedPermanently(resolved.RedirectPath)
	}

	info := resolved.Info
	if c.req.HasIfModifiedSince && info.ModTime().Unix() <= c.req.IfModifiedSince {
		return c.notModified()
	}

	contentType := c.contentTypes.Lookup(resolved.Filename)
	c.out.PushBack(vhost.ComposeSuccess(info, contentType, c.replyOptions()))
	c.req.StatusCode = 200
	c.req.HasStatusCode = true
	c.req.ObjectSize = info.Size()

	if method == "HEAD" {
		c.logAccess()
		return c.restart()
	}

	f, err := os.Open(resolved.Filename)
	if err != nil {
		c.log.WithError(err).Error("cannot open requested file")
		return c.fileNotFound()
	}
	c.file = f
	return StateWriteResponse
}

func (c *Connection) handleWriteResponse() State {
	scratch := make([]byte, c.cfg.IOBlockSizeOrDefault())
	n, err := c.file.Read(scratch)
	if n > 0 {
		c.out.PushBack(scratch[:n])
	}
	if err != nil {
		c.file.Close()
		c.file = nil
		c.logAccess()
		return c.restart()
	}
	return StateWriteResponse
}

// resolveHost implements the §4.5 host-resolution order: Host header, then
// url.host from an absolute URI, then a configured default for pre-1.1
// requests, else failure.
func (c *Connection) resolveHost() string {
	if c.req.Host != "" {
		return c.req.Host
	}
	if c.req.URL.Host != "" {
		return c.req.URL.Host
	}
	if c.cfg.DefaultHostname != "" && !c.req.ProtoAtLeast(1, 1) {
		return c.cfg.DefaultHostname
	}
	return ""
}

// normalizeHostname lowercases host and, when it carries a raw UTF-8 or
// xn-- label, folds it to its ASCII (punycode) form so that
// document_root + "/" + host is stable regardless of how the client
// encoded an internationalized name. Falls back to a plain lowercase on
// any idna error (e.g. a bare IP literal), matching the teacher's
// utils_request.go note on why x/net/idna belongs in host resolution.
func normalizeHostname(host string) string {
	lower := strings.ToLower(host)
	ascii, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		return lower
	}
	return ascii
}

// decidePersistence implements §4.5: persistent iff Connection: close is
// absent and either Connection: keep-alive is present or the request is
// HTTP/1.1 or newer.
func (c *Connection) decidePersistence() bool {
	if strings.EqualFold(c.req.Connection, "close") {
		return false
	}
	if strings.EqualFold(c.req.Connection, "keep-alive") {
		return true
	}
	return c.req.ProtoAtLeast(1, 1)
}

func (c *Connection) replyOptions() vhost.ReplyOptions {
	return vhost.ReplyOptions{
		ServerString:  c.cfg.ServerString,
		UsePersistent: c.usePersistent,
		KeepAliveSecs: c.cfg.KeepAliveTimeoutSeconds(),
		Now:           c.now(),
	}
}

// restart implements §4.5's restart(): a persistent connection reinitializes
// and goes back to READ_REQUEST_LINE, otherwise TERMINATE.
//
// Unlike the source, this does not clear the output buffer: the response
// just queued for this transaction (or a pipelined predecessor's, still
// draining) lives in the same scatter vector the next transaction's
// SETUP_REPLY will append to, and DropOutput always drains strictly in
// FIFO order, so nothing queued is ever lost or reordered.
func (c *Connection) restart() State {
	if c.usePersistent {
		c.resetForNextRequest()
		return StateReadRequestLine
	}
	return StateTerminate
}

func (c *Connection) resetForNextRequest() {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.req.Reset(c.now().Unix())
	c.usePersistent = false
	c.in.FlushGap()
	// The prior transaction's response (if any) stays queued — restart
	// deliberately doesn't drain it (see restart's doc comment) — so the
	// next transaction's error helpers must only be able to discard what
	// they themselves queue, not what's already sitting here.
	c.outMark = c.out.Mark()
}

func (c *Connection) logAccess() {
	if c.accessLog != nil {
		rec := accesslog.Record{
			Peer:         c.peer,
			Time:         c.now(),
			Method:       c.req.Method,
			Path:         c.req.URL.Path,
			MajorVersion: c.req.MajorVersion,
			MinorVersion: c.req.MinorVersion,
			StatusCode:   c.req.StatusCode,
			ObjectSize:   c.req.ObjectSize,
			Referer:      c.req.Referer,
			UserAgent:    c.req.UserAgent,
		}
		if err := c.accessLog.Write(c.req.Host, rec); err != nil {
			c.log.WithError(err).Warn("failed to write access log record")
		}
	}
	c.countTransaction()
}

func (c *Connection) countTransaction() {
	if c.Metrics == nil {
		return
	}
	c.Metrics.TransactionsTotal.WithLabelValues(strconv.Itoa(c.req.StatusCode)).Inc()
}
