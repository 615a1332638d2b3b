package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file beside dst, verifies the
// written bytes by size and SHA256, then renames it over dst. dst is never
// observed half-written.
func WriteFileAtomic(dst string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := verifyFile(tmpPath, written, hasher.Sum(nil), data); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}

// verifyFile re-reads path and checks it against the expected size and hash.
func verifyFile(path string, written int64, sum []byte, data []byte) error {
	if written != int64(len(data)) {
		return fmt.Errorf("write size mismatch: expected %d bytes, wrote %d bytes", len(data), written)
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	onDisk := sha256.New()
	if _, err := io.Copy(onDisk, in); err != nil {
		return fmt.Errorf("re-read temp file: %w", err)
	}
	if !bytes.Equal(onDisk.Sum(nil), sum) {
		return fmt.Errorf("write hash mismatch: file corrupted during write")
	}
	return nil
}
