package imageio

import (
	"fmt"
	"net/http"

	"layersmith/internal/services"
)

var (
	// ErrFetch matches every *FetchError.
	ErrFetch = fmt.Errorf("%w: image fetch failed", services.ErrExternalTool)
	// ErrUnsupportedImage is returned when fetched bytes are not a decodable
	// image.
	ErrUnsupportedImage = fmt.Errorf("%w: unsupported image", services.ErrValidation)
	// ErrTooLarge is returned when a source exceeds the configured size cap.
	ErrTooLarge = fmt.Errorf("%w: image exceeds size limit", services.ErrValidation)
	// ErrInvalidDataURL is returned for malformed data URLs.
	ErrInvalidDataURL = fmt.Errorf("%w: invalid data url", services.ErrValidation)
)

// FetchError describes a failed source download. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() []error {
	errs := []error{ErrFetch, e.marker()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *FetchError) marker() error {
	switch {
	case e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone:
		return services.ErrNotFound
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return services.ErrConfiguration
	default:
		return services.ErrTransient
	}
}
