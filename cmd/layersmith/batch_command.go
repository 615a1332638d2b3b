package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"layersmith/internal/bridge"
	"layersmith/internal/config"
	"layersmith/internal/renderer"
	"layersmith/internal/services"
)

// manifest is the TOML document read by the batch command:
//
//	parallel = 4
//
//	[[job]]
//	source_url = "https://images.example/cover.png"
//	title = "Corsair One"
//	output = "cover"
type manifest struct {
	Parallel int            `toml:"parallel"`
	Jobs     []renderer.Job `toml:"job"`
}

func loadManifest(path string) (manifest, error) {
	var m manifest
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return m, fmt.Errorf("resolve manifest path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return m, fmt.Errorf("manifest %s defines no [[job]] entries", expanded)
	}
	for i, job := range m.Jobs {
		if strings.TrimSpace(job.SourceURL) == "" {
			return m, fmt.Errorf("manifest job %d: source_url is required", i+1)
		}
	}
	return m, nil
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var parallel int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Render every job in a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("parallel") {
				m.Parallel = parallel
			}

			return ctx.withRenderer(func(r *renderer.Renderer, b *bridge.Bridge) error {
				results := r.RenderBatch(cmd.Context(), m.Jobs, m.Parallel)
				failed := 0
				for _, res := range results {
					if res.Err != nil {
						failed++
					}
				}

				if asJSON {
					outputs := make([]renderOutput, 0, len(results))
					for _, res := range results {
						outputs = append(outputs, toRenderOutput(res.Job, res.Result, res.Err))
					}
					if err := writeJSON(cmd, outputs); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, renderBatchTable(results))
					stats := b.Stats()
					fmt.Fprintf(out, "%d rendered, %d failed, %d engine resets\n", len(results)-failed, failed, stats.Resets)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d jobs failed", failed, len(results))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 0, "Jobs fetching or waiting on the engine at once (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func renderBatchTable(results []renderer.BatchResult) string {
	headers := []string{"#", "Source", "Status", "Output", "Time"}
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		status := "Saved"
		output := res.Result.Path
		if res.Err != nil {
			status = failureLabel(res.Err)
			output = res.Err.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			res.Job.SourceURL,
			status,
			output,
			formatElapsed(res.Result.Elapsed),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight})
}

var titleCaser = cases.Title(language.English)

// failureLabel turns a failure class such as "not_found" into "Not Found".
func failureLabel(err error) string {
	class := services.FailureClass(err)
	if errors.Is(err, bridge.ErrEngineScript) {
		var scriptErr *bridge.EngineScriptError
		if errors.As(err, &scriptErr) && scriptErr.Stage != "" {
			class = scriptErr.Stage + " failed"
		}
	}
	return titleCaser.String(strings.ReplaceAll(class, "_", " "))
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func toRenderOutput(job renderer.Job, result renderer.Result, err error) renderOutput {
	out := renderOutput{
		RequestID: result.RequestID,
		Source:    job.SourceURL,
		Path:      result.Path,
		Width:     result.Width,
		Height:    result.Height,
		Layers:    result.Layers,
		ElapsedMS: result.Elapsed.Milliseconds(),
	}
	if err != nil {
		out.Error = err.Error()
		out.Class = services.FailureClass(err)
	}
	return out
}
