package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeFetch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.Kind = strings.ToLower(strings.TrimSpace(c.Engine.Kind))
	if c.Engine.Kind == "" {
		c.Engine.Kind = defaultEngineKind
	}
	command := c.Engine.Command[:0]
	for _, arg := range c.Engine.Command {
		if strings.TrimSpace(arg) == "" {
			continue
		}
		command = append(command, arg)
	}
	c.Engine.Command = command
	c.Engine.Origin = strings.TrimSpace(c.Engine.Origin)
	if c.Engine.Origin == "" {
		c.Engine.Origin = defaultEngineOrigin
		if c.Engine.Kind == EngineProcess {
			c.Engine.Origin = defaultProcessOrigin
		}
	}
}

func (c *Config) normalizeFetch() {
	c.Fetch.AuthToken = strings.TrimSpace(c.Fetch.AuthToken)
	if c.Fetch.AuthToken == "" {
		if value, ok := os.LookupEnv(authTokenEnv); ok {
			c.Fetch.AuthToken = strings.TrimSpace(value)
		}
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
