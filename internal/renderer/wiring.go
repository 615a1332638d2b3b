package renderer

import (
	"fmt"
	"log/slog"

	"layersmith/internal/bridge"
	"layersmith/internal/config"
	"layersmith/internal/engine"
	"layersmith/internal/engine/process"
	"layersmith/internal/engine/sandbox"
	"layersmith/internal/imageio"
)

// NewSurface returns the engine surface selected by cfg.
func NewSurface(cfg *config.Config, logger *slog.Logger) (engine.Surface, error) {
	switch cfg.Engine.Kind {
	case config.EngineSandbox:
		return sandbox.NewSurface(sandbox.Options{Origin: cfg.Engine.Origin, Logger: logger}), nil
	case config.EngineProcess:
		return process.NewSurface(process.Options{
			Command: cfg.Engine.Command,
			Origin:  cfg.Engine.Origin,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind)
	}
}

// NewFromConfig wires a renderer and its bridge from cfg. Callers must Close
// the returned bridge.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Renderer, *bridge.Bridge, error) {
	surface, err := NewSurface(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	b := bridge.New(surface, bridge.WithLogger(logger))
	r := New(
		imageio.NewConfiguredFetcher(cfg, logger),
		b,
		cfg.Paths.OutputDir,
		WithAuthToken(cfg.Fetch.AuthToken),
		WithLogger(logger),
	)
	return r, b, nil
}
