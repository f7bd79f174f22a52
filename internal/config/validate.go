package config

import (
	"fmt"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q (got %q)", DriverPostgres, DriverMemory, c.Store.Driver)
	}

	if c.Persistence.Debounce <= 0 {
		return fmt.Errorf("persistence.debounce must be > 0 (got %s)", c.Persistence.Debounce)
	}
	if strings.TrimSpace(c.Persistence.Document) == "" {
		return fmt.Errorf("persistence.document must not be empty")
	}

	if c.Game.ContributionHandSize <= 0 {
		return fmt.Errorf("game.contribution_hand_size must be > 0 (got %d)", c.Game.ContributionHandSize)
	}
	if c.Game.MythHandSize <= 0 {
		return fmt.Errorf("game.myth_hand_size must be > 0 (got %d)", c.Game.MythHandSize)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	return nil
}
