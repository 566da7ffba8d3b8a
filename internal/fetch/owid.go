// Package fetch downloads the OWID COVID-19 dataset over HTTPS.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"covidash/internal/httputil"
	"covidash/internal/metrics"
)

// DefaultURL is the canonical OWID dataset export.
const DefaultURL = "https://covid.ourworldindata.org/data/owid-covid-data.csv"

type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:    url,
		client: httputil.NewDownloadClient(),
	}
}

// Download fetches the dataset and writes it to destPath. The write goes
// through a temp file and rename so a failed download never clobbers an
// existing dataset. Server errors and rate limits are retried with exponential
// backoff; other HTTP failures are permanent.
func (c *Client) Download(ctx context.Context, destPath string) error {
	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".owid-download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	start := time.Now()
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch dataset: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch dataset: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch dataset: status %d", resp.StatusCode))
		}

		f, err := os.Create(tmpPath)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("open temp file: %w", err))
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			f.Close()
			return fmt.Errorf("read body: %w", err)
		}
		return f.Close()
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.DatasetFetchesTotal.WithLabelValues("error").Inc()
		return err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		metrics.DatasetFetchesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("move dataset into place: %w", err)
	}

	metrics.DatasetFetchesTotal.WithLabelValues("ok").Inc()
	metrics.DatasetFetchLatency.Observe(time.Since(start).Seconds())
	return nil
}
