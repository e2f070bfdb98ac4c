package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load builds a Configuration by layering defaults, an optional config
// file, environment variables (MINIHTTPD_*) and already-bound pflag values
// in v, the way nabbar-golib/config loads its component configuration
// through viper. The caller (cmd/minihttpd) is responsible for calling
// v.BindPFlags before Load so CLI flags take precedence.
func Load(v *viper.Viper) (*Configuration, error) {
	v.SetEnvPrefix("MINIHTTPD")
	v.AutomaticEnv()

	v.SetDefault("listen", []string{":8080"})
	v.SetDefault("default-page", "index.html")
	v.SetDefault("io-block-size", DefaultIOBlockSize)
	v.SetDefault("max-header-bytes", DefaultMaxLineLength)
	v.SetDefault("read-timeout", "60s")
	v.SetDefault("write-timeout", "60s")
	v.SetDefault("idle-timeout", "15s")

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	documentRoot := v.GetString("document-root")
	if documentRoot == "" {
		return nil, fmt.Errorf("config: document-root is required")
	}

	cfg := &Configuration{
		Listen:            v.GetStringSlice("listen"),
		DocumentRoot:      documentRoot,
		DefaultPage:       v.GetString("default-page"),
		DefaultHostname:   v.GetString("default-hostname"),
		ServerString:      v.GetString("server-string"),
		LogfileRoot:       v.GetString("logfile-root"),
		IOBlockSize:       v.GetInt("io-block-size"),
		MaxHeaderBytes:    v.GetInt("max-header-bytes"),
		ReadTimeout:       v.GetDuration("read-timeout"),
		WriteTimeout:      v.GetDuration("write-timeout"),
		IdleTimeout:       v.GetDuration("idle-timeout"),
		MimeTypeOverrides: v.GetStringMapString("mime-types"),
		Chroot:            v.GetString("chroot"),
		User:              v.GetString("user"),
		Group:             v.GetString("group"),
		MetricsAddr:       v.GetString("metrics-addr"),
		Detach:            v.GetBool("detach"),
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	return cfg, nil
}
