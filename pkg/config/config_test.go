package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	c := &Config{Environment: "test"}
	c.Trading.Symbols = []string{"BTCUSDT"}
	c.Trading.ShortTimeframe = "5m"
	c.Trading.TrendTimeframe = "1h"
	c.Binance.APIKey = "key"
	c.Binance.APISecret = "secret"
	return c
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing environment", func(c *Config) { c.Environment = "" }, "environment"},
		{"no symbols", func(c *Config) { c.Trading.Symbols = nil }, "symbols"},
		{"missing api key", func(c *Config) { c.Binance.APIKey = "" }, "binance"},
		{"missing api secret", func(c *Config) { c.Binance.APISecret = "" }, "binance"},
		{"equal timeframes", func(c *Config) { c.Trading.TrendTimeframe = "5m" }, "must differ"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
environment: test
binance:
  api_key: k
  api_secret: s
trading:
  symbols: [BTCUSDT, ETHUSDT]
  short_timeframe: 5m
  trend_timeframe: 1h
  monitor_period: 5s
kafka:
  brokers: [localhost:9092]
  signal_topic: signals
redis:
  host: localhost
  port: 6379
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Trading.Symbols) != 2 || c.Trading.Symbols[1] != "ETHUSDT" {
		t.Fatalf("symbols = %v", c.Trading.Symbols)
	}
	if c.Trading.MonitorPeriod.Seconds() != 5 {
		t.Fatalf("monitor_period = %s", c.Trading.MonitorPeriod)
	}
	if c.Kafka.SignalTopic != "signals" {
		t.Fatalf("signal_topic = %s", c.Kafka.SignalTopic)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithEnvSuppliesCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
environment: production
binance:
  api_key: ""
  api_secret: ""
trading:
  symbols: [BTCUSDT]
  short_timeframe: 5m
  trend_timeframe: 1h
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("env credentials should satisfy validation: %v", err)
	}
	if c.Binance.APIKey != "env-key" || c.Binance.APISecret != "env-secret" {
		t.Fatalf("credentials = %q/%q", c.Binance.APIKey, c.Binance.APISecret)
	}
}

func TestLoadWithEnvValidatesMergedResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
environment: production
binance:
  api_key: ""
  api_secret: ""
trading:
  symbols: [BTCUSDT]
  short_timeframe: 5m
  trend_timeframe: 1h
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BINANCE_API_KEY", "")
	t.Setenv("BINANCE_API_SECRET", "")

	if _, err := LoadWithEnv(path); err == nil {
		t.Fatal("expected validation error when credentials are missing everywhere")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
environment: test
binance:
  api_key: k
  api_secret: s
trading:
  symbols: [BTCUSDT]
  short_timeframe: 5m
  trend_timeframe: 1h
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("SYMBOLS", "SOLUSDT,XRPUSDT")
	t.Setenv("REDIS_HOST", "redis.internal")

	c, err := LoadWithEnv(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Binance.APIKey != "env-key" {
		t.Fatalf("api key = %s", c.Binance.APIKey)
	}
	if len(c.Trading.Symbols) != 2 || c.Trading.Symbols[0] != "SOLUSDT" {
		t.Fatalf("symbols = %v", c.Trading.Symbols)
	}
	if c.Redis.Host != "redis.internal" {
		t.Fatalf("redis host = %s", c.Redis.Host)
	}
}
