/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package netdriver

import (
	"net"
	"time"
)

// tcpKeepAliveListener wraps a *net.TCPListener to enable TCP keep-alives on
// every accepted connection, the way the teacher's own listener wrapper
// does. Unlike the teacher's fixed 3-minute period, period is the
// configured idle-connection timeout (§3's idle_timeout): a persistent
// connection sitting between requests is exactly what the keep-alive probe
// is meant to reap, so the two timeouts are the same knob here.
type tcpKeepAliveListener struct {
	*net.TCPListener
	period time.Duration
}

func (l tcpKeepAliveListener) Accept() (net.Conn, error) {
	c, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	c.SetKeepAlive(true)
	period := l.period
	if period <= 0 {
		period = 3 * time.Minute
	}
	c.SetKeepAlivePeriod(period)
	return c, nil
}
