package preflight

import (
	"context"

	"layersmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the static checks for cfg: directories and, for the
// process engine, the engine binary. Booting the engine is left to
// CheckEngine because it is slow and has side effects.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Engine.Kind == config.EngineProcess {
		results = append(results, CheckEngineCommand(cfg.Engine.Command))
	}
	if ctx.Err() != nil {
		results = append(results, Result{Name: "Preflight", Detail: ctx.Err().Error()})
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
