package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.Kind {
	case EngineSandbox:
	case EngineProcess:
		if len(c.Engine.Command) == 0 {
			return errors.New("engine.command must be set when engine.kind is \"process\"")
		}
	default:
		return fmt.Errorf("engine.kind: unsupported value %q (want %q or %q)", c.Engine.Kind, EngineSandbox, EngineProcess)
	}
	if c.Engine.Origin == "" {
		return errors.New("engine.origin must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.RequestTimeout <= 0 {
		return errors.New("fetch.request_timeout must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		return errors.New("fetch.max_bytes must be positive")
	}
	return nil
}
