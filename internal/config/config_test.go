package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timeout != 500*time.Millisecond {
		t.Errorf("Timeout = %v, want 500ms", cfg.Timeout)
	}
	if cfg.SearchThreads != 4 {
		t.Errorf("SearchThreads = %d, want 4", cfg.SearchThreads)
	}
	if cfg.ConnPerShard != cfg.SearchThreads+1 {
		t.Errorf("ConnPerShard = %d, want %d (search_threads+1)", cfg.ConnPerShard, cfg.SearchThreads+1)
	}
	if cfg.Partitions != "AUTO" {
		t.Errorf("Partitions = %q, want AUTO", cfg.Partitions)
	}
}

func TestLoadConnPerShardOverride(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--conn-per-shard=16", "--search-threads=8"}); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConnPerShard != 16 {
		t.Errorf("ConnPerShard = %d, want explicit 16 (not derived)", cfg.ConnPerShard)
	}
}

func TestBindFlagsEnvPrefix(t *testing.T) {
	t.Setenv("OSS_COORD_SEARCH_THREADS", "12")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(v, fs); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("fs.Parse: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchThreads != 12 {
		t.Errorf("SearchThreads = %d, want 12 from OSS_COORD_SEARCH_THREADS", cfg.SearchThreads)
	}
}
