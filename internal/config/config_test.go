package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
server:
  host: "127.0.0.1"
  port: 9090

store:
  driver: "postgres"
  dsn: "postgres://u:p@localhost:5432/civ"
  auto_migrate: true

persistence:
  debounce: "500ms"
  document: "slot_a"

game:
  contribution_hand_size: 4
  myth_hand_size: 2

log:
  level: "debug"
  format: "text"
`

func TestLoad_YAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr: got %q", cfg.Server.Addr())
	}
	if !cfg.Store.AutoMigrate || cfg.Store.IsMemory() {
		t.Fatalf("store: got %+v", cfg.Store)
	}
	if cfg.Persistence.Debounce != 500*time.Millisecond || cfg.Persistence.Document != "slot_a" {
		t.Fatalf("persistence: got %+v", cfg.Persistence)
	}
	if cfg.Game.ContributionHandSize != 4 || cfg.Game.MythHandSize != 2 {
		t.Fatalf("game: got %+v", cfg.Game)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected default shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("PERSISTENCE_DEBOUNCE", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("port: got %d", cfg.Server.Port)
	}
	if cfg.Persistence.Debounce != 3*time.Second {
		t.Fatalf("debounce: got %s", cfg.Persistence.Debounce)
	}
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Store.IsMemory() {
		t.Fatalf("driver: got %q", cfg.Store.Driver)
	}
	if cfg.Persistence.Debounce != 2*time.Second {
		t.Fatalf("debounce default: got %s", cfg.Persistence.Debounce)
	}
	if cfg.Persistence.Document != "current_game" {
		t.Fatalf("document default: got %q", cfg.Persistence.Document)
	}
	if cfg.Game.ContributionHandSize != 3 || cfg.Game.MythHandSize != 1 {
		t.Fatalf("hand size defaults: got %+v", cfg.Game)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Fatalf("log defaults: got %+v", cfg.Log)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:      ServerConfig{Port: 8080},
			Store:       StoreConfig{Driver: "memory"},
			Persistence: PersistenceConfig{Debounce: 2 * time.Second, Document: "current_game"},
			Game:        GameConfig{ContributionHandSize: 3, MythHandSize: 1},
			Log:         LogConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "store.dsn"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "store.driver"},
		{name: "zero debounce", mutate: func(c *Config) { c.Persistence.Debounce = 0 }, wantErr: "persistence.debounce"},
		{name: "empty document", mutate: func(c *Config) { c.Persistence.Document = " " }, wantErr: "persistence.document"},
		{name: "zero hand", mutate: func(c *Config) { c.Game.ContributionHandSize = 0 }, wantErr: "contribution_hand_size"},
		{name: "zero myth hand", mutate: func(c *Config) { c.Game.MythHandSize = 0 }, wantErr: "myth_hand_size"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
