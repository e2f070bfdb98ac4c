/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package conn

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minihttpd-go/server/internal/config"
	"github.com/minihttpd-go/server/internal/vhost"
)

func newTestConnection(t *testing.T, docRoot string) *Connection {
	t.Helper()
	cfg := &config.Configuration{
		DocumentRoot: docRoot,
		DefaultPage:  "index.html",
	}
	return New(cfg, vhost.NewContentTypeTable(nil), nil, "127.0.0.1", nil)
}

func writeVhostFile(t *testing.T, docRoot, host, relPath string, content []byte, mtime time.Time) {
	t.Helper()
	full := filepath.Join(docRoot, host, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, content, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(full, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

// drive feeds req into c byte-at-a-time-friendly chunks (here: as much as
// fits per InputWindow call) and drains whatever the output buffer
// accumulates, returning the concatenated response bytes. It stops once the
// input is fully delivered and either TERMINATE is reached or the state
// machine suspends waiting for more bytes.
func drive(c *Connection, req []byte) []byte {
	remaining := req
	for len(remaining) > 0 {
		window := c.InputWindow()
		if len(window) == 0 {
			break
		}
		n := copy(window, remaining)
		c.AppendInput(n)
		remaining = remaining[n:]
	}
	var out bytes.Buffer
	for {
		view := c.OutputView()
		total := 0
		for _, v := range view {
			out.Write(v)
			total += len(v)
		}
		if total == 0 {
			break
		}
		c.DropOutput(total)
	}
	return out.Bytes()
}

func TestScenarioS1HTTP10Close(t *testing.T) {
	docRoot := t.TempDir()
	body := bytes.Repeat([]byte("x"), 100)
	writeVhostFile(t, docRoot, "example.org", "index.html", body, time.Unix(1000, 0))

	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("GET / HTTP/1.0\r\nHost: example.org\r\n\r\n"))

	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 200 OK\r\n")) {
		t.Fatalf("response does not start with 200 OK: %q", resp)
	}
	for _, want := range []string{"Content-Type: text/html\r\n", "Content-Length: 100\r\n", "Connection: close\r\n"} {
		if !bytes.Contains(resp, []byte(want)) {
			t.Errorf("response missing %q:\n%s", want, resp)
		}
	}
	if !bytes.HasSuffix(resp, body) {
		t.Errorf("response body mismatch")
	}
	if c.State() != StateTerminate || !c.Done() {
		t.Errorf("expected TERMINATE+drained, got state=%v done=%v", c.State(), c.Done())
	}
}

func TestScenarioS2HTTP11KeepAliveRestarts(t *testing.T) {
	docRoot := t.TempDir()
	body := bytes.Repeat([]byte("y"), 100)
	writeVhostFile(t, docRoot, "example.org", "index.html", body, time.Unix(1000, 0))

	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("GET / HTTP/1.1\r\nHost: example.org\r\n\r\n"))

	if !bytes.Contains(resp, []byte("Connection: keep-alive\r\n")) {
		t.Errorf("expected keep-alive header:\n%s", resp)
	}
	if c.State() != StateReadRequestLine {
		t.Errorf("expected state to return to READ_REQUEST_LINE after draining, got %v", c.State())
	}
}

func TestScenarioS3DirectoryRedirect(t *testing.T) {
	docRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(docRoot, "example.org", "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("GET /sub HTTP/1.1\r\nHost: example.org\r\n\r\n"))

	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 301 Moved Permanently\r\n")) {
		t.Fatalf("expected 301, got:\n%s", resp)
	}
	if !bytes.Contains(resp, []byte("Location: http://example.org/sub/\r\n")) {
		t.Errorf("missing Location header:\n%s", resp)
	}
}

func TestScenarioS4NotModified(t *testing.T) {
	docRoot := t.TempDir()
	writeVhostFile(t, docRoot, "example.org", "foo.txt", []byte("hi"), time.Unix(784111776, 0))

	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("GET /foo.txt HTTP/1.1\r\nHost: example.org\r\nIf-Modified-Since: Sun, 06 Nov 1994 08:49:37 GMT\r\n\r\n"))

	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 304 Not Modified\r\n")) {
		t.Fatalf("expected 304, got:\n%s", resp)
	}
	if bytes.Contains(resp, []byte("hi")) {
		t.Errorf("304 response must not carry a body:\n%s", resp)
	}
}

func TestScenarioS5UnsupportedMethod(t *testing.T) {
	docRoot := t.TempDir()
	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("POST / HTTP/1.1\r\nHost: example.org\r\n\r\n"))

	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 400 Bad Request\r\n")) {
		t.Fatalf("expected 400, got:\n%s", resp)
	}
	if !bytes.Contains(resp, []byte("<tt>POST</tt>")) {
		t.Errorf("expected method echoed in body:\n%s", resp)
	}
}

func TestScenarioS6HierarchyEscapeIsNotFound(t *testing.T) {
	docRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(docRoot, "example.org"), 0755); err != nil {
		t.Fatal(err)
	}

	c := newTestConnection(t, docRoot)
	resp := drive(c, []byte("GET /../etc/passwd HTTP/1.1\r\nHost: example.org\r\n\r\n"))

	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 404 Not Found\r\n")) {
		t.Fatalf("expected 404, got:\n%s", resp)
	}
}

// TestPipeliningPreservesBytesPastRequestBoundary pins invariant 4: bytes
// belonging to a second, pipelined request delivered in the same
// AppendInput call as the first must survive the persistent-connection
// restart and be parsed as the next transaction.
func TestPipeliningPreservesBytesPastRequestBoundary(t *testing.T) {
	docRoot := t.TempDir()
	writeVhostFile(t, docRoot, "example.org", "a.html", []byte("AAA"), time.Unix(1000, 0))
	writeVhostFile(t, docRoot, "example.org", "b.html", []byte("BB"), time.Unix(1000, 0))

	c := newTestConnection(t, docRoot)
	both := []byte("GET /a.html HTTP/1.1\r\nHost: example.org\r\n\r\n" +
		"GET /b.html HTTP/1.1\r\nHost: example.org\r\nConnection: close\r\n\r\n")
	resp := drive(c, both)

	if !bytes.HasSuffix(resp, []byte("BB")) {
		t.Fatalf("expected second response's body to be drained, got:\n%s", resp)
	}
	if !bytes.Contains(resp, []byte("AAA")) {
		t.Fatalf("expected first response's body to be drained, got:\n%s", resp)
	}
	firstIdx := bytes.Index(resp, []byte("AAA"))
	secondStatusIdx := bytes.Index(resp, []byte("HTTP/1.1 200 OK"))
	secondStatusIdx2 := bytes.LastIndex(resp, []byte("HTTP/1.1 200 OK"))
	if secondStatusIdx == secondStatusIdx2 {
		t.Fatalf("expected two distinct 200 OK status lines, got:\n%s", resp)
	}
	if firstIdx < 0 {
		t.Fatalf("first body not found")
	}
	if c.State() != StateTerminate {
		t.Errorf("expected TERMINATE after the second, non-persistent request, got %v", c.State())
	}
}

// TestSuccessThenErrorInSamePipelinedReadPreservesFirstResponse pins the
// scoped-truncation fix: a HEAD request restarts inside the same Step()
// call that queued its response (no suspension back to the driver), so a
// second, malformed pipelined request's protocolError must not wipe the
// HEAD response sitting undrained in the same output buffer.
func TestSuccessThenErrorInSamePipelinedReadPreservesFirstResponse(t *testing.T) {
	docRoot := t.TempDir()
	writeVhostFile(t, docRoot, "example.org", "ok.html", []byte("OKBODY"), time.Unix(1000, 0))

	c := newTestConnection(t, docRoot)
	both := []byte("HEAD /ok.html HTTP/1.1\r\nHost: example.org\r\n\r\n" +
		"POST /bad HTTP/1.1\r\nHost: example.org\r\n\r\n")
	resp := drive(c, both)

	okIdx := bytes.Index(resp, []byte("HTTP/1.1 200 OK"))
	badIdx := bytes.Index(resp, []byte("HTTP/1.1 400 Bad Request"))
	if okIdx < 0 {
		t.Fatalf("expected the HEAD response to survive the pipelined error, got:\n%s", resp)
	}
	if badIdx < 0 {
		t.Fatalf("expected the POST to still get its own 400, got:\n%s", resp)
	}
	if okIdx > badIdx {
		t.Fatalf("expected 200 OK to precede 400 Bad Request, got:\n%s", resp)
	}
	if c.State() != StateTerminate {
		t.Errorf("expected TERMINATE after the non-persistent error response, got %v", c.State())
	}
}

// TestSuccessThenErrorAfterZeroByteFileInSamePipelinedRead covers the other
// same-Step() restart path: a GET against a zero-byte file, whose first
// file.Read already returns (0, io.EOF), so handleWriteResponse restarts
// without ever suspending to the driver either.
func TestSuccessThenErrorAfterZeroByteFileInSamePipelinedRead(t *testing.T) {
	docRoot := t.TempDir()
	writeVhostFile(t, docRoot, "example.org", "empty.html", []byte{}, time.Unix(1000, 0))

	c := newTestConnection(t, docRoot)
	both := []byte("GET /empty.html HTTP/1.1\r\nHost: example.org\r\n\r\n" +
		"POST /bad HTTP/1.1\r\nHost: example.org\r\n\r\n")
	resp := drive(c, both)

	okIdx := bytes.Index(resp, []byte("HTTP/1.1 200 OK"))
	badIdx := bytes.Index(resp, []byte("HTTP/1.1 400 Bad Request"))
	if okIdx < 0 {
		t.Fatalf("expected the zero-byte GET's response to survive the pipelined error, got:\n%s", resp)
	}
	if badIdx < 0 || okIdx > badIdx {
		t.Fatalf("expected 200 OK to precede 400 Bad Request, got:\n%s", resp)
	}
}

func TestByteAtATimeDeliveryMatchesWholeChunkDelivery(t *testing.T) {
	docRoot := t.TempDir()
	writeVhostFile(t, docRoot, "example.org", "index.html", []byte("hello"), time.Unix(1000, 0))
	req := []byte("GET / HTTP/1.1\r\nHost: example.org\r\nConnection: close\r\n\r\n")

	whole := newTestConnection(t, docRoot)
	wholeResp := drive(whole, req)

	bytewise := newTestConnection(t, docRoot)
	var got bytes.Buffer
	for _, b := range req {
		window := bytewise.InputWindow()
		window[0] = b
		bytewise.AppendInput(1)
	}
	for {
		view := bytewise.OutputView()
		total := 0
		for _, v := range view {
			got.Write(v)
			total += len(v)
		}
		if total == 0 {
			break
		}
		bytewise.DropOutput(total)
	}

	if !bytes.Equal(wholeResp, got.Bytes()) {
		t.Errorf("byte-at-a-time delivery diverged:\nwhole: %q\nbytewise: %q", wholeResp, got.Bytes())
	}
}
