package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Game        GameConfig        `yaml:"game"`
	CORS        CORSConfig        `yaml:"cors"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type StoreConfig struct {
	Driver          string        `yaml:"driver"            env:"STORE_DRIVER"            env-default:"postgres"`
	DSN             string        `yaml:"dsn"               env:"CIVBUILDERS_DB_DSN"`
	MigrationsDir   string        `yaml:"migrations_dir"    env:"STORE_MIGRATIONS_DIR"`
	AutoMigrate     bool          `yaml:"auto_migrate"      env:"STORE_AUTO_MIGRATE"      env-default:"false"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"STORE_MAX_OPEN_CONNS"    env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"STORE_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"STORE_CONN_MAX_LIFETIME" env-default:"1h"`
}

// PersistenceConfig tunes the debounced save of game records.
type PersistenceConfig struct {
	Debounce time.Duration `yaml:"debounce" env:"PERSISTENCE_DEBOUNCE" env-default:"2s"`
	Document string        `yaml:"document" env:"PERSISTENCE_DOCUMENT" env-default:"current_game"`
}

type GameConfig struct {
	ContributionHandSize int `yaml:"contribution_hand_size" env:"GAME_CONTRIBUTION_HAND_SIZE" env-default:"3"`
	MythHandSize         int `yaml:"myth_hand_size"         env:"GAME_MYTH_HAND_SIZE"         env-default:"1"`
	// CatalogPath points at a YAML catalog; empty uses the built-in one.
	CatalogPath string `yaml:"catalog_path" env:"GAME_CATALOG_PATH"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	MaxAge         int    `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"600"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

func (s StoreConfig) IsMemory() bool {
	return strings.EqualFold(s.Driver, DriverMemory)
}
