/*
 * Copyright (c) 2001-2013 Peter Simons <simons@cryp.to>
 * Adapted for this project's Go reimplementation.
 */

// Package netdriver is the reference I/O driver for the core connection
// state machine in internal/conn: one goroutine per accepted TCP
// connection, feeding bytes in via a blocking net.Conn.Read and draining
// the scatter vector out via net.Buffers, exactly the input_window /
// append_input / output_view / drop_output contract §5 describes. The
// acceptor and event-loop multiplexer are explicitly out of scope for the
// core (§1); this package is the out-of-core collaborator that fulfils it,
// grounded in the teacher's tcpKeepAliveListener and in
// original_source/io-driver.cpp's read/write-ready callbacks.
package netdriver

import (
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minihttpd-go/server/internal/accesslog"
	"github.com/minihttpd-go/server/internal/conn"
	"github.com/minihttpd-go/server/internal/config"
	"github.com/minihttpd-go/server/internal/metrics"
	"github.com/minihttpd-go/server/internal/vhost"
)

// Server binds the core to a listening socket.
type Server struct {
	Config       *config.Configuration
	ContentTypes *vhost.ContentTypeTable
	AccessLog    *accesslog.Writer
	Metrics      *metrics.Metrics
	Logger       *logrus.Logger
}

// ListenAndServe listens on addr and serves connections until Accept fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(tcpKeepAliveListener{TCPListener: ln.(*net.TCPListener), period: s.Config.IdleTimeout})
}

// Serve accepts connections from ln and spawns one goroutine per connection
// until Accept returns an error.
func (s *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serve(nc)
	}
}

func (s *Server) serve(nc net.Conn) {
	defer nc.Close()

	c := conn.New(s.Config, s.ContentTypes, s.AccessLog, peerAddr(nc), s.Logger)
	c.Metrics = s.Metrics
	if s.Metrics != nil {
		s.Metrics.ConnectionsAccepted.Inc()
		s.Metrics.ConnectionsActive.Inc()
		defer s.Metrics.ConnectionsActive.Dec()
	}

	for {
		if err := s.drainAll(nc, c); err != nil {
			return
		}
		if c.Done() {
			return
		}

		window := c.InputWindow()
		if len(window) == 0 {
			// state == TERMINATE with nothing left to drain.
			return
		}
		if s.Config.ReadTimeout > 0 {
			nc.SetReadDeadline(time.Now().Add(s.Config.ReadTimeout))
		}
		n, err := nc.Read(window)
		if n > 0 {
			c.AppendInput(n)
		}
		if err != nil {
			if err == io.EOF {
				c.PeerEOF()
				s.drainAll(nc, c)
			}
			return
		}
	}
}

// drainAll writes the scatter vector to nc until it is empty or a write
// fails, driving the state machine forward after every write per §5's
// "drop_output(n) ... triggers a state-machine step."
func (s *Server) drainAll(nc net.Conn, c *conn.Connection) error {
	for {
		view := c.OutputView()
		if len(view) == 0 {
			return nil
		}
		if s.Config.WriteTimeout > 0 {
			nc.SetWriteDeadline(time.Now().Add(s.Config.WriteTimeout))
		}
		bufs := net.Buffers(view)
		n, err := bufs.WriteTo(nc)
		if s.Metrics != nil {
			s.Metrics.BytesWritten.Add(float64(n))
		}
		c.DropOutput(int(n))
		if err != nil {
			return err
		}
	}
}

func peerAddr(nc net.Conn) string {
	host, _, err := net.SplitHostPort(nc.RemoteAddr().String())
	if err != nil {
		return nc.RemoteAddr().String()
	}
	return host
}
