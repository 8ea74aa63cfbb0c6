package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Enum.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Enum.Concurrency)
	}
	if cfg.Enum.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.Enum.ConnectTimeout)
	}
	if cfg.Enum.OpTimeout != 5*time.Second {
		t.Errorf("OpTimeout = %v", cfg.Enum.OpTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadOverridesAndBackfill(t *testing.T) {
	v := viper.New()
	v.Set("enum.concurrency", 50)
	v.Set("enum.connect_timeout", "1s")
	v.Set("enum.op_timeout", -1) // 非法值回填默认
	v.Set("log.level", "debug")
	v.Set("enum.credentials", []map[string]any{
		{"username": "svc", "password": "svc123"},
	})
	v.Set("enum.communities", []string{"lab-ro"})

	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Enum.Concurrency != 50 {
		t.Errorf("Concurrency = %d", cfg.Enum.Concurrency)
	}
	if cfg.Enum.ConnectTimeout != time.Second {
		t.Errorf("ConnectTimeout = %v", cfg.Enum.ConnectTimeout)
	}
	if cfg.Enum.OpTimeout != 5*time.Second {
		t.Errorf("OpTimeout = %v, want backfilled 5s", cfg.Enum.OpTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if len(cfg.Enum.Credentials) != 1 || cfg.Enum.Credentials[0].Username != "svc" {
		t.Errorf("Credentials = %+v", cfg.Enum.Credentials)
	}
	if len(cfg.Enum.Communities) != 1 || cfg.Enum.Communities[0] != "lab-ro" {
		t.Errorf("Communities = %v", cfg.Enum.Communities)
	}
}
