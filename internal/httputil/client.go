package httputil

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout covers API-style requests (OpenAI narrative calls).
	DefaultTimeout = 30 * time.Second

	// DownloadTimeout covers the full-dataset CSV download, which is tens of
	// megabytes on a cold cache.
	DownloadTimeout = 10 * time.Minute
)

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

// NewDownloadClient returns an HTTP client sized for large file downloads.
func NewDownloadClient() *http.Client {
	return &http.Client{
		Timeout: DownloadTimeout,
	}
}
