package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tradelab/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
		"DATA_DIR", "SQLITE_PATH", "LOG_LEVEL",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/tradelab/data"
  sqlite_path: "/tmp/tradelab/tradelab.db"
server:
  host: "0.0.0.0"
  port: 9000
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
logging:
  level: "debug"
  format: "json"
gather:
  symbols: ["AAPL", "MSFT"]
  start_date: "2020-01-01"
  batch_size: 500
  rate_limit_per_min: 200
backtest:
  market: "us"
  initial_capital: 50000
  commission_rate: 0.002
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/tradelab/data" {
		t.Errorf("Storage.DataDir = %q, want /tmp/tradelab/data", cfg.Storage.DataDir)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("Server = %+v, want 0.0.0.0:9000", cfg.Server)
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want test-key", cfg.Alpaca.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Gather.Symbols) != 2 || cfg.Gather.Symbols[0] != "AAPL" {
		t.Errorf("Gather.Symbols = %v, want [AAPL MSFT]", cfg.Gather.Symbols)
	}
	if cfg.Backtest.InitialCapital != 50000 {
		t.Errorf("Backtest.InitialCapital = %v, want 50000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.CommissionRate != 0.002 {
		t.Errorf("Backtest.CommissionRate = %v, want 0.002", cfg.Backtest.CommissionRate)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	// A minimal file inherits everything else from the defaults.
	cfg, err := Load(writeConfig(t, `
storage:
  data_dir: "/custom/data"
`))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/custom/data" {
		t.Errorf("Storage.DataDir = %q, want /custom/data", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("Backtest.InitialCapital = %v, want default 100000", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.Market != "us" {
		t.Errorf("Backtest.Market = %q, want default us", cfg.Backtest.Market)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env-key (env override)", cfg.Alpaca.APIKey)
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want yaml-secret (from YAML)", cfg.Alpaca.APISecret)
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want /env/data (env override)", cfg.Storage.DataDir)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, `
backtest:
  initial_capital: -5
`))
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("negative capital: err = %v, want ErrConfig", err)
	}

	_, err = Load(writeConfig(t, `
backtest:
  commission_rate: 1.5
`))
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("commission >= 1: err = %v, want ErrConfig", err)
	}

	_, err = Load(writeConfig(t, `
server:
  port: 999999
`))
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("bad port: err = %v, want ErrConfig", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("missing file: err = %v, want ErrConfig", err)
	}
}
