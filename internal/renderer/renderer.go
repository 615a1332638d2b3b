package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"layersmith/internal/bridge"
	"layersmith/internal/imageio"
	"layersmith/internal/logging"
	"layersmith/internal/psd"
	"layersmith/internal/services"
)

// Stage names stamped on the context and used in wrapped errors.
const (
	StageFetch   = "fetch"
	StageRender  = "render"
	StageDeliver = "deliver"
)

// Spec holds the text placed on the image.
type Spec struct {
	Title    string `toml:"title"`
	Subtitle string `toml:"subtitle"`
}

// Job is one render request.
type Job struct {
	SourceURL string `toml:"source_url"`
	Spec
	// OutputFilename names the delivered file; ".psd" is appended when
	// missing. Empty derives a name from the source URL.
	OutputFilename string `toml:"output"`
	// AuthToken overrides the configured fetch token for this job.
	AuthToken string `toml:"auth_token"`
}

// Result describes a delivered render.
type Result struct {
	RequestID string
	Path      string
	Artifact  imageio.Artifact
	Width     int
	Height    int
	Layers    []string
	Elapsed   time.Duration
}

// Fetcher downloads and validates source images.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, token string) (imageio.Source, error)
}

// Engine renders one request; *bridge.Bridge implements it.
type Engine interface {
	Render(ctx context.Context, req bridge.Request) ([]byte, error)
}

// Renderer runs jobs end to end.
type Renderer struct {
	fetcher   Fetcher
	engine    Engine
	outputDir string
	authToken string
	logger    *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithAuthToken sets the token used for jobs that carry none.
func WithAuthToken(token string) Option {
	return func(r *Renderer) { r.authToken = strings.TrimSpace(token) }
}

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// New constructs a Renderer delivering into outputDir.
func New(fetcher Fetcher, engine Engine, outputDir string, opts ...Option) *Renderer {
	r := &Renderer{fetcher: fetcher, engine: engine, outputDir: outputDir}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "renderer")
	return r
}

// Render fetches the source image, renders it through the engine and saves
// the resulting document. A fetch failure returns before any engine
// interaction.
func (r *Renderer) Render(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	result := Result{RequestID: uuid.NewString()}
	ctx = services.WithRequestID(ctx, result.RequestID)
	logger := logging.WithContext(ctx, r.logger)

	sourceURL := strings.TrimSpace(job.SourceURL)
	if sourceURL == "" {
		return result, services.Wrap(services.ErrValidation, StageFetch, "validate job", "source url is required", nil)
	}
	logger.Info("render started",
		logging.String(logging.FieldEventType, "render_start"),
		logging.String("title", job.Title),
	)

	token := strings.TrimSpace(job.AuthToken)
	if token == "" {
		token = r.authToken
	}
	src, err := r.fetcher.Fetch(logging.WithStage(ctx, StageFetch), sourceURL, token)
	if err != nil {
		return result, fmt.Errorf("fetch source: %w", err)
	}
	result.Width, result.Height = src.Width, src.Height

	data, err := r.engine.Render(logging.WithStage(ctx, StageRender), bridge.Request{
		ImageData: src.DataURL(),
		Title:     job.Title,
		Subtitle:  job.Subtitle,
	})
	if err != nil {
		return result, fmt.Errorf("render: %w", err)
	}

	if info, err := psd.Inspect(data); err != nil {
		logging.WarnWithContext(logger, "engine output is not a readable document", "render_output_unreadable",
			logging.Error(err),
			logging.Int("bytes", len(data)),
			logging.String(logging.FieldImpact, "document delivered without layer summary"),
		)
	} else {
		result.Layers = info.Layers
	}

	result.Artifact = imageio.PackageResult(data, outputName(job, result.RequestID))
	result.Path, err = imageio.Deliver(logging.WithStage(ctx, StageDeliver), result.Artifact, r.outputDir)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, StageDeliver, "save artifact", result.Artifact.Name, err)
	}

	result.Elapsed = time.Since(start)
	logger.Info("render delivered",
		logging.String(logging.FieldEventType, "render_delivered"),
		logging.String("path", result.Path),
		logging.Int("bytes", len(data)),
		logging.Int("layers", len(result.Layers)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// outputName picks the delivered filename: the job's own, the source URL's
// base name, or the request id.
func outputName(job Job, requestID string) string {
	if name := strings.TrimSpace(job.OutputFilename); name != "" {
		return name
	}
	if u, err := url.Parse(strings.TrimSpace(job.SourceURL)); err == nil {
		base := path.Base(u.Path)
		base = strings.TrimSuffix(base, path.Ext(base))
		if base != "" && base != "." && base != "/" {
			return base
		}
	}
	return requestID
}

// IsFetchFailure reports whether err came from downloading the source.
func IsFetchFailure(err error) bool {
	return errors.Is(err, imageio.ErrFetch) || errors.Is(err, imageio.ErrUnsupportedImage) || errors.Is(err, imageio.ErrTooLarge)
}
