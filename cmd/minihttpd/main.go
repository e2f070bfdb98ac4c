package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/minihttpd-go/server/internal/accesslog"
	"github.com/minihttpd-go/server/internal/config"
	"github.com/minihttpd-go/server/internal/metrics"
	"github.com/minihttpd-go/server/internal/netdriver"
	"github.com/minihttpd-go/server/internal/vhost"
)

var vpr = viper.New()

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minihttpd",
		Short: "A small, non-blocking, virtual-hosting static file server.",
		RunE:  run,
	}

	flags := cmd.Flags()
	flags.StringSlice("listen", []string{":8080"}, "address(es) to listen on")
	flags.String("document-root", "", "base directory; per-vhost trees live at document-root/<host>")
	flags.String("default-page", "index.html", "index file appended to a directory URL")
	flags.String("default-hostname", "", "fallback virtual host for pre-HTTP/1.1 requests without a Host header")
	flags.String("server-string", "", "value of the Server response header; empty disables it")
	flags.String("logfile-root", "", "per-virtual-host access log directory; empty disables access logging")
	flags.Int("io-block-size", config.DefaultIOBlockSize, "payload read chunk size for the WRITE_RESPONSE state")
	flags.Int("max-header-bytes", config.DefaultMaxLineLength, "maximum number of bytes buffered without a complete request or header line")
	flags.Duration("read-timeout", 0, "per-connection read timeout (0 selects the 60s default)")
	flags.Duration("write-timeout", 0, "per-connection write timeout (0 disables)")
	flags.Duration("idle-timeout", 0, "TCP keep-alive probe period for accepted connections")
	flags.Int("worker-count", 0, "accepted for CLI compatibility; this driver spawns one goroutine per connection regardless")
	flags.String("chroot", "", "not implemented on this platform; accepted for CLI compatibility")
	flags.String("user", "", "not implemented on this platform; accepted for CLI compatibility")
	flags.String("group", "", "not implemented on this platform; accepted for CLI compatibility")
	flags.Bool("detach", false, "accepted for CLI compatibility; the process does not daemonize")
	flags.String("metrics-addr", "", "address to serve Prometheus metrics on; empty disables it")
	flags.String("config", "", "path to a configuration file (any format viper supports)")

	for _, name := range []string{
		"listen", "document-root", "default-page", "default-hostname", "server-string",
		"logfile-root", "io-block-size", "max-header-bytes", "read-timeout", "write-timeout",
		"idle-timeout", "worker-count", "chroot", "user", "group", "detach", "metrics-addr",
	} {
		if err := vpr.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		vpr.SetConfigFile(path)
	}

	cfg, err := config.Load(vpr)
	if err != nil {
		return err
	}
	if cfg.Chroot != "" || cfg.User != "" || cfg.Group != "" {
		logrus.Warn("chroot/setuid/setgid were requested but are not implemented on this platform; ignoring")
	}
	if len(cfg.Listen) == 0 {
		return fmt.Errorf("minihttpd: no listen addresses configured")
	}

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var accessLog *accesslog.Writer
	if cfg.LogfileRoot != "" {
		accessLog = accesslog.NewWriter(cfg.LogfileRoot)
		defer accessLog.Close()
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New(prometheus.DefaultRegisterer)
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	srv := &netdriver.Server{
		Config:       cfg,
		ContentTypes: vhost.NewContentTypeTable(cfg.MimeTypeOverrides),
		AccessLog:    accessLog,
		Metrics:      m,
		Logger:       logger,
	}

	errs := make(chan error, len(cfg.Listen))
	for _, addr := range cfg.Listen {
		addr := addr
		go func() {
			logger.WithField("addr", addr).Info("listening")
			errs <- srv.ListenAndServe(addr)
		}()
	}
	return <-errs
}

func serveMetrics(addr string, logger *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Error("metrics listener failed")
	}
}
