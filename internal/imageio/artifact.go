package imageio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"layersmith/internal/fileutil"
	"layersmith/internal/textutil"
)

// ContentTypePSD is the media type of every packaged result.
const ContentTypePSD = "image/vnd.adobe.photoshop"

const (
	psdExtension = ".psd"
	defaultName  = "render"
	lockSuffix   = ".lock"
)

// Artifact is a named, typed engine result ready for delivery.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// PackageResult wraps engine output as a PSD artifact. The filename is
// reduced to a sanitized base name and gets a .psd extension unless it
// already has one.
func PackageResult(buf []byte, filename string) Artifact {
	name := textutil.SanitizeFileName(filepath.Base(strings.TrimSpace(filename)))
	if name == "" {
		name = defaultName
	}
	if !strings.EqualFold(filepath.Ext(name), psdExtension) {
		name += psdExtension
	}
	return Artifact{Name: name, ContentType: ContentTypePSD, Data: buf}
}

// Deliver saves artifact into dir and returns the written path. The write
// happens under an exclusive lock on a hidden file beside the target, so
// concurrent processes never interleave writes to one name. Lock files are
// left in place; removing them would race with other lock holders.
func Deliver(ctx context.Context, artifact Artifact, dir string) (string, error) {
	if strings.TrimSpace(artifact.Name) == "" {
		return "", fmt.Errorf("deliver artifact: empty name")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(artifact.Name))

	lock := flock.New(filepath.Join(dir, "."+filepath.Base(target)+lockSuffix))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", target, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", target)
	}
	defer func() { _ = lock.Unlock() }()

	if err := fileutil.WriteFileAtomic(target, artifact.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

var lockRetryDelay = 50 * time.Millisecond
