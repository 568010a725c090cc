// Package ingest downloads the OpenPowerlifting archive and decodes its csv
// into competition records.
package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	userAgent      = "liftprogress/1.0"
	defaultTimeout = 5 * time.Minute
)

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds a whole download.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// Fetcher downloads archives over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with configuration options.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download streams url into the file at dst and returns the bytes written.
func (f *Fetcher) Download(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("%w: %s: %s (%s)", ErrDownload, url, resp.Status, strings.TrimSpace(string(b)))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create download dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("%w: write %s: %v", ErrDownload, dst, err)
	}
	return n, nil
}

// Archive is an opened zip archive.
type Archive struct {
	zr *zip.ReadCloser
}

// OpenArchive opens the zip file at path.
func OpenArchive(path string) (*Archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Archive{zr: zr}, nil
}

// ExtractCSV opens the first .csv entry of the archive, in archive order.
func (a *Archive) ExtractCSV() (string, io.ReadCloser, error) {
	for _, f := range a.zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		return f.Name, rc, nil
	}
	return "", nil, ErrNoCSV
}

// Close releases the archive.
func (a *Archive) Close() error {
	return a.zr.Close()
}
