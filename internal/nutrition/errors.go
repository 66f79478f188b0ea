package nutrition

import (
	"errors"
	"strings"
)

// ErrNotConfigured indicates that no vision credential is set; it is returned
// before any network call is attempted.
var ErrNotConfigured = errors.New("nutrition: vision api key not configured")

// ErrBadImage indicates that the submitted bytes could not be decoded as an
// image.
var ErrBadImage = errors.New("nutrition: could not decode image")

// ErrMalformedReply indicates that the model answered with text that is not
// valid JSON. This is never retried against another model.
var ErrMalformedReply = errors.New("nutrition: model reply was not valid JSON")

// ErrModelAccess indicates that every candidate model rejected the request
// with an access problem.
var ErrModelAccess = errors.New("nutrition: model access denied")

// accessDenied reports whether a remote error looks like a model-access
// problem rather than a hard fault. All callers go through this single
// classifier.
func accessDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "model") ||
		strings.Contains(msg, "access") ||
		strings.Contains(msg, "403")
}
