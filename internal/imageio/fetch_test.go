package imageio_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"layersmith/internal/imageio"
	"layersmith/internal/services"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestFetchSendsBearerTokenAndEncodesDataURL(t *testing.T) {
	payload := pngBytes(t, 16, 8)
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := imageio.NewFetcher(imageio.FetcherConfig{Client: server.Client(), UserAgent: "layersmith/test"})
	dataURL, err := f.FetchAsTransferable(context.Background(), server.URL+"/hero.png", "secret-token")
	if err != nil {
		t.Fatalf("FetchAsTransferable: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
	if gotAgent != "layersmith/test" {
		t.Fatalf("unexpected User-Agent %q", gotAgent)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Fatalf("unexpected data url prefix %q", dataURL[:32])
	}

	decoded, mediaType, err := imageio.DecodeDataURL(dataURL)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mediaType != "image/png" || !bytes.Equal(decoded, payload) {
		t.Fatalf("data url does not carry the fetched bytes (type %q)", mediaType)
	}
}

func TestFetchOmitsAuthorizationWithoutToken(t *testing.T) {
	payload := pngBytes(t, 2, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("unexpected Authorization header")
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := imageio.NewFetcher(imageio.FetcherConfig{Client: server.Client()})
	src, err := f.Fetch(context.Background(), server.URL, "  ")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.Width != 2 || src.Height != 2 || src.Format != "png" {
		t.Fatalf("unexpected source info %+v", src.ImageInfo)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusBadGateway, services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			f := imageio.NewFetcher(imageio.FetcherConfig{Client: server.Client()})
			_, err := f.FetchAsTransferable(context.Background(), server.URL+"/missing.png?sig=abc", "tok")

			var fetchErr *imageio.FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fetchErr.StatusCode != tt.status {
				t.Fatalf("unexpected status %d", fetchErr.StatusCode)
			}
			if !errors.Is(err, imageio.ErrFetch) || !errors.Is(err, tt.marker) {
				t.Fatalf("missing markers on %v", err)
			}
			if strings.Contains(err.Error(), "sig=abc") {
				t.Fatalf("query string leaked into error: %v", err)
			}
		})
	}
}

func TestFetchRejectsNonImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>login</html>"))
	}))
	defer server.Close()

	f := imageio.NewFetcher(imageio.FetcherConfig{Client: server.Client()})
	_, err := f.Fetch(context.Background(), server.URL, "")
	if !errors.Is(err, imageio.ErrUnsupportedImage) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected unsupported image error, got %v", err)
	}
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	payload := pngBytes(t, 64, 64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := imageio.NewFetcher(imageio.FetcherConfig{Client: server.Client(), MaxBytes: 16})
	if _, err := f.Fetch(context.Background(), server.URL, ""); !errors.Is(err, imageio.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	f := imageio.NewFetcher(imageio.FetcherConfig{Client: &http.Client{}})
	_, err := f.Fetch(context.Background(), url, "")
	var fetchErr *imageio.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != 0 {
		t.Fatalf("expected transport FetchError, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestDecodeDataURLRejectsMalformed(t *testing.T) {
	for _, value := range []string{
		"http://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		if _, _, err := imageio.DecodeDataURL(value); !errors.Is(err, imageio.ErrInvalidDataURL) {
			t.Errorf("DecodeDataURL(%q): expected ErrInvalidDataURL, got %v", value, err)
		}
	}
}
