package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"layersmith/internal/bridge"
	"layersmith/internal/renderer"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var job renderer.Job
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render one image into a layered document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if strings.TrimSpace(job.SourceURL) != "" {
					return errors.New("pass the source url either as an argument or with --url, not both")
				}
				job.SourceURL = args[0]
			}
			if strings.TrimSpace(job.SourceURL) == "" {
				return errors.New("a source url is required")
			}

			return ctx.withRenderer(func(r *renderer.Renderer, _ *bridge.Bridge) error {
				result, err := r.Render(cmd.Context(), job)
				if asJSON {
					if jsonErr := writeJSON(cmd, toRenderOutput(job, result, err)); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Saved %s\n", result.Path)
				fmt.Fprintf(out, "  %dx%d, %s, %s\n", result.Width, result.Height, layerSummary(result.Layers), formatElapsed(result.Elapsed))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&job.SourceURL, "url", "u", "", "Source image URL")
	cmd.Flags().StringVarP(&job.Title, "title", "t", "", "Title text layer")
	cmd.Flags().StringVarP(&job.Subtitle, "subtitle", "s", "", "Subtitle text layer")
	cmd.Flags().StringVarP(&job.OutputFilename, "output", "o", "", "Output filename (.psd is appended when missing)")
	cmd.Flags().StringVar(&job.AuthToken, "token", "", "Bearer token for the source download (overrides config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func layerSummary(layers []string) string {
	switch len(layers) {
	case 0:
		return "no layer summary"
	case 1:
		return "1 layer"
	default:
		return fmt.Sprintf("%d layers (%s)", len(layers), strings.Join(layers, ", "))
	}
}
