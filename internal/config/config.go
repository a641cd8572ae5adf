package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every runtime parameter the coordinator accepts.
// PARTITIONS and OSSGlobalPassword are retained only for compatibility
// with clients that still send them; the coordinator always computes
// partitioning from the live topology and never uses a global password.
type Config struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	Timeout    time.Duration `mapstructure:"timeout"`

	SearchThreads             int           `mapstructure:"search_threads"`
	ConnPerShard              int           `mapstructure:"conn_per_shard"`
	CursorReplyThreshold      int           `mapstructure:"cursor_reply_threshold"`
	TopologyValidationTimeout time.Duration `mapstructure:"topology_validation_timeout"`

	Partitions        string `mapstructure:"partitions"`
	OSSGlobalPassword string `mapstructure:"oss_global_password"`

	// TopologySourceURL, when set, is the HTTP/JSON endpoint CLUSTERREFRESH
	// fetches a topology descriptor from. Empty leaves CLUSTERREFRESH a
	// no-op, for deployments that only ever push topology via CLUSTERSET.
	TopologySourceURL string `mapstructure:"topology_source_url"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`
}

// defaults holds every parameter's default value; ConnPerShard's default
// tracks SearchThreads+1 and is resolved after Load, not baked into the
// flag default.
func defaults() Config {
	return Config{
		ListenAddr:                ":6379",
		Timeout:                   500 * time.Millisecond,
		SearchThreads:             4,
		CursorReplyThreshold:      50,
		TopologyValidationTimeout: 30 * time.Second,
		Partitions:                "AUTO",
		MetricsAddr:               ":9121",
		LogLevel:                  "info",
	}
}

// BindFlags registers every config parameter onto fs so a cobra command
// can expose them as flags, with OSS_COORD_-prefixed environment
// variables, resolved in viper's usual order (flag > env > default). No
// config file is read.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	d := defaults()

	fs.String("listen-addr", d.ListenAddr, "address the RESP front-end listens on")
	fs.Duration("timeout", d.Timeout, "default request deadline")
	fs.Int("search-threads", d.SearchThreads, "worker-pool size for reducers")
	fs.Int("conn-per-shard", 0, "connection-pool size per shard (0 = search-threads+1)")
	fs.Int("cursor-reply-threshold", d.CursorReplyThreshold, "channel threshold for MaybeTriggerNext")
	fs.Duration("topology-validation-timeout", d.TopologyValidationTimeout, "failure timer for readiness gating; 0 = unlimited")
	fs.String("partitions", d.Partitions, "deprecated; always AUTO")
	fs.String("oss-global-password", "", "deprecated")
	fs.String("topology-source-url", d.TopologySourceURL, "HTTP/JSON endpoint CLUSTERREFRESH fetches a topology descriptor from; empty disables it")
	fs.String("metrics-addr", d.MetricsAddr, "address the Prometheus /metrics endpoint listens on")
	fs.String("log-level", d.LogLevel, "zap log level")

	v.SetEnvPrefix("OSS_COORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	// Flag names use dashes (CLI convention); Config's mapstructure tags
	// use underscores (Go convention). Alias each tag to its flag so
	// Unmarshal resolves the same value BindPFlags and AutomaticEnv set.
	aliases := map[string]string{
		"listen_addr":                 "listen-addr",
		"search_threads":              "search-threads",
		"conn_per_shard":              "conn-per-shard",
		"cursor_reply_threshold":      "cursor-reply-threshold",
		"topology_validation_timeout": "topology-validation-timeout",
		"oss_global_password":         "oss-global-password",
		"topology_source_url":         "topology-source-url",
		"metrics_addr":                "metrics-addr",
		"log_level":                   "log-level",
	}
	for tag, flag := range aliases {
		v.RegisterAlias(tag, flag)
	}
	return nil
}

// Load reads bound flags/env into a Config, resolving
// ConnPerShard's derived default.
func Load(v *viper.Viper) (Config, error) {
	cfg := defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.ConnPerShard <= 0 {
		cfg.ConnPerShard = cfg.SearchThreads + 1
	}
	return cfg, nil
}
