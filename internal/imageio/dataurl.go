package imageio

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURLPrefix = "data:"

// EncodeDataURL returns data as a base64 data URL of the given media type.
func EncodeDataURL(mediaType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(dataURLPrefix) + len(mediaType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataURLPrefix)
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DecodeDataURL parses a base64 data URL and returns its payload and media
// type.
func DecodeDataURL(value string) ([]byte, string, error) {
	if !strings.HasPrefix(value, dataURLPrefix) {
		return nil, "", fmt.Errorf("%w: missing %q prefix", ErrInvalidDataURL, dataURLPrefix)
	}
	header, payload, ok := strings.Cut(value[len(dataURLPrefix):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return nil, "", fmt.Errorf("%w: unsupported encoding %q", ErrInvalidDataURL, encoding)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, mediaType, nil
}
