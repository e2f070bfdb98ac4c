// Package config holds the process-wide, read-only-after-startup
// Configuration value (§3) and its viper-backed loader (§10.3).
package config

import "time"

// Configuration is the §3 process-wide configuration. It is built once at
// startup and handed to every Connection by reference; nothing in this
// repository mutates it afterward (§9: "global configuration singleton ...
// becomes an immutable configuration value").
type Configuration struct {
	// Listen is the set of "host:port" addresses to accept connections on.
	Listen []string

	// DocumentRoot is the base directory; per-vhost trees live at
	// DocumentRoot/<host>.
	DocumentRoot string

	// DefaultPage is appended to a directory URL, e.g. "index.html".
	DefaultPage string

	// DefaultHostname is used for pre-HTTP/1.1 requests with no Host
	// header; empty disables the fallback.
	DefaultHostname string

	// ServerString is the Server header value; empty disables the header.
	ServerString string

	// LogfileRoot is the access-log directory; empty disables access
	// logging.
	LogfileRoot string

	// IOBlockSize is the payload read chunk size for WRITE_RESPONSE.
	IOBlockSize int

	// MaxHeaderBytes is §4.3's "configurable maximum line length": the
	// state machine answers 400 once this many unparsed bytes are buffered
	// without a complete request line or header line. Lines are consumed
	// as they are parsed, so the header block as a whole is not bounded.
	MaxHeaderBytes int

	// ReadTimeout and WriteTimeout bound each read and write the driver
	// makes (§5: "the external driver enforces read and write timeouts").
	// IdleTimeout is the TCP keep-alive probe period set on accepted
	// sockets.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MimeTypeOverrides layers extension->content-type overrides on top
	// of the standard library's table (§10.3 mime-types).
	MimeTypeOverrides map[string]string

	// Chroot, User, Group are accepted for CLI compatibility with the
	// §6 surface but are not enforced by this implementation; see
	// DESIGN.md.
	Chroot string
	User   string
	Group  string

	// MetricsAddr, if non-empty, serves Prometheus metrics on a second
	// listener (§11 domain stack).
	MetricsAddr string

	// Detach is read from configuration but not acted on; the process
	// does not daemonize.
	Detach bool
}

// DefaultMaxLineLength is the §4.3 default maximum line length used when
// MaxHeaderBytes is unset.
const DefaultMaxLineLength = 4096

// DefaultIOBlockSize is a reasonable default WRITE_RESPONSE read-chunk size.
const DefaultIOBlockSize = 64 * 1024

// KeepAliveTimeoutSeconds returns the value advertised in the
// "Keep-Alive: timeout=N, max=100" header (§4.5), tied to ReadTimeout.
func (c *Configuration) KeepAliveTimeoutSeconds() int {
	if c.ReadTimeout <= 0 {
		return 15
	}
	return int(c.ReadTimeout / time.Second)
}

// maxHeaderBytesOrDefault returns MaxHeaderBytes or the default.
func (c *Configuration) maxHeaderBytesOrDefault() int {
	if c.MaxHeaderBytes > 0 {
		return c.MaxHeaderBytes
	}
	return DefaultMaxLineLength
}

// MaxHeaderBytesOrDefault is the exported form used by the connection
// state machine to decide when the input buffer is "full" per §4.3.
func (c *Configuration) MaxHeaderBytesOrDefault() int {
	return c.maxHeaderBytesOrDefault()
}

// IOBlockSizeOrDefault is the exported form used by WRITE_RESPONSE.
func (c *Configuration) IOBlockSizeOrDefault() int {
	if c.IOBlockSize > 0 {
		return c.IOBlockSize
	}
	return DefaultIOBlockSize
}
