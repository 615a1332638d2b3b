package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"layersmith/internal/bridge"
	"layersmith/internal/preflight"
	"layersmith/internal/renderer"
)

func newEngineCommand(ctx *commandContext) *cobra.Command {
	engineCmd := &cobra.Command{
		Use:   "engine",
		Short: "Engine diagnostics",
	}
	engineCmd.AddCommand(newEngineCheckCommand(ctx))
	return engineCmd
}

func newEngineCheckCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check directories and boot the configured engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Config", statusInfo, configDetail(ctx), colorize))
			fmt.Fprintln(out, renderStatusLine("Engine kind", statusInfo, cfg.Engine.Kind+" ("+cfg.Engine.Origin+")", colorize))
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, line := range preflightLines(results, colorize) {
				fmt.Fprintln(out, line)
			}
			if preflight.Failed(results) {
				return fmt.Errorf("preflight checks failed")
			}

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Engine", colorize) {
				fmt.Fprintln(out, line)
			}
			return ctx.withRenderer(func(_ *renderer.Renderer, b *bridge.Bridge) error {
				boot := preflight.CheckEngine(cmd.Context(), b, timeout)
				lines := preflightLines([]preflight.Result{boot}, colorize)
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				if !boot.Passed {
					return fmt.Errorf("engine did not become ready")
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "How long to wait for the engine to become ready")
	return cmd
}

func configDetail(ctx *commandContext) string {
	if !ctx.configSeen {
		return "defaults (no config file)"
	}
	return ctx.configPath
}
