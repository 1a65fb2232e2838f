package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueues(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// validateQueues enforces that every queue has a root and no two queues
// share one. A shared root would merge two queues into one.
func (c *Config) validateQueues() error {
	roots := map[string]string{
		"queues.captions_dir": c.Queues.CaptionsDir,
		"queues.info_dir":     c.Queues.InfoDir,
		"queues.resting_dir":  c.Queues.RestingDir,
	}
	seen := map[string]string{}
	for key, root := range roots {
		if root == "" {
			return fmt.Errorf("%s must be set", key)
		}
		if other, dup := seen[root]; dup {
			return fmt.Errorf("%s and %s share the same root %q", key, other, root)
		}
		seen[root] = key
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
		return nil
	default:
		return errors.New("logging.format must be console or json")
	}
}
