package imageio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"layersmith/internal/config"
	"layersmith/internal/logging"
)

const (
	defaultUserAgent = "layersmith/dev"
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 64 << 20
)

// HTTPDoer describes the HTTP client used to fetch source images.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FetcherConfig configures a Fetcher. Zero values select defaults.
type FetcherConfig struct {
	Client    HTTPDoer
	UserAgent string
	MaxBytes  int64
	Logger    *slog.Logger
}

// Fetcher downloads source images.
type Fetcher struct {
	client    HTTPDoer
	userAgent string
	maxBytes  int64
	logger    *slog.Logger
}

// Source is a fetched and validated image.
type Source struct {
	URL  string
	Data []byte
	ImageInfo
}

// DataURL encodes the source for the engine.
func (s Source) DataURL() string {
	return EncodeDataURL(s.MediaType, s.Data)
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
		logger:    logging.NewComponentLogger(cfg.Logger, "imageio"),
	}
}

// NewConfiguredFetcher builds a Fetcher from the fetch section of cfg.
func NewConfiguredFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if cfg == nil {
		return NewFetcher(FetcherConfig{Logger: logger})
	}
	return NewFetcher(FetcherConfig{
		Client:    &http.Client{Timeout: cfg.FetchTimeout()},
		UserAgent: cfg.Fetch.UserAgent,
		MaxBytes:  cfg.Fetch.MaxBytes,
		Logger:    logger,
	})
}

// FetchAsTransferable downloads sourceURL and returns it as a data URL.
func (f *Fetcher) FetchAsTransferable(ctx context.Context, sourceURL, token string) (string, error) {
	src, err := f.Fetch(ctx, sourceURL, token)
	if err != nil {
		return "", err
	}
	return src.DataURL(), nil
}

// Fetch downloads sourceURL, sending token as a bearer credential when set,
// and validates that the body is a supported image.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, token string) (Source, error) {
	display := redact(sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return Source{}, &FetchError{URL: display, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*")
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return Source{}, &FetchError{URL: display, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Source{}, &FetchError{URL: display, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Source{}, &FetchError{URL: display, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return Source{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrTooLarge, display, f.maxBytes)
	}

	info, err := Inspect(data)
	if err != nil {
		if errors.Is(err, ErrUnsupportedImage) {
			return Source{}, fmt.Errorf("%s: %w", display, err)
		}
		return Source{}, err
	}

	logging.WithContext(ctx, f.logger).Debug("source image fetched",
		logging.String("url", display),
		logging.String("format", info.Format),
		logging.Int("width", info.Width),
		logging.Int("height", info.Height),
		logging.Int("bytes", len(data)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return Source{URL: sourceURL, Data: data, ImageInfo: info}, nil
}

// redact hides credentials and query strings in URLs that end up in errors
// and logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.RawQuery != "" {
		u.RawQuery = "redacted"
	}
	return u.Redacted()
}
