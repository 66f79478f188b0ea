package media

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// LocalUploader stores meal snapshots on the local filesystem (typically
// /tmp) when no bucket is configured.
type LocalUploader struct {
	BaseDir string
}

// NewLocalUploader constructs an uploader that writes to the provided
// directory. If baseDir is empty, os.TempDir() is used.
func NewLocalUploader(baseDir string) (*LocalUploader, error) {
	dir := baseDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local media dir: %w", err)
	}
	return &LocalUploader{BaseDir: dir}, nil
}

// Upload writes the snapshot to a temp file and returns its absolute path as
// the key. Local files have no serving URL.
func (l *LocalUploader) Upload(_ context.Context, jpegData []byte) (UploadResult, error) {
	if len(jpegData) == 0 {
		return UploadResult{}, errors.New("empty snapshot")
	}

	tmpFile, err := os.CreateTemp(l.BaseDir, "meal-*.jpg")
	if err != nil {
		return UploadResult{}, fmt.Errorf("create temp file: %w", err)
	}
	defer tmpFile.Close()

	if _, err := tmpFile.Write(jpegData); err != nil {
		os.Remove(tmpFile.Name())
		return UploadResult{}, fmt.Errorf("write temp file: %w", err)
	}

	return UploadResult{Key: tmpFile.Name()}, nil
}
