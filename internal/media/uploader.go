package media

import (
	"context"
	"errors"
)

// ErrUploaderDisabled indicates that the photo archive is not enabled.
var ErrUploaderDisabled = errors.New("photo archive disabled")

// UploadResult captures the stored object key and, when the backend serves
// public reads, its URL.
type UploadResult struct {
	Key string
	URL string
}

// Uploader archives a normalized meal snapshot. The pipeline only ever
// produces JPEG bytes, so that is the whole contract.
type Uploader interface {
	Upload(ctx context.Context, jpegData []byte) (UploadResult, error)
}

type disabledUploader struct{}

func (disabledUploader) Upload(_ context.Context, _ []byte) (UploadResult, error) {
	return UploadResult{}, ErrUploaderDisabled
}

// Disabled returns an uploader that always signals disabled uploads.
func Disabled() Uploader {
	return disabledUploader{}
}
