package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	qterrors "github.com/akshaybabloo/actions-setup-qt/internal/errors"
)

// ProgressCallback is called during download to report progress.
// total is -1 if Content-Length is unknown.
type ProgressCallback func(downloaded, total int64)

// Downloader fetches a URL into a local file.
type Downloader interface {
	// Download fetches url into the downloader's directory under a random
	// name and returns the local path. The file name carries no extension.
	Download(ctx context.Context, url string) (string, error)
}

// httpDownloader implements Downloader using HTTP.
type httpDownloader struct {
	client  *http.Client
	destDir string
}

// Option configures the HTTP downloader.
type Option func(*httpDownloader)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(d *httpDownloader) {
		if client != nil {
			d.client = client
		}
	}
}

// NewDownloader creates a Downloader that writes into destDir.
func NewDownloader(destDir string, opts ...Option) Downloader {
	d := &httpDownloader{
		client:  http.DefaultClient,
		destDir: destDir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download downloads url to a fresh file in the destination directory.
// A ProgressCallback attached with WithProgress is invoked as bytes arrive.
func (d *httpDownloader) Download(ctx context.Context, url string) (string, error) {
	destPath := filepath.Join(d.destDir, uuid.NewString())
	slog.Debug("downloading file", "url", url, "dest", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", qterrors.NewNetworkError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", qterrors.NewHTTPError(url, resp.StatusCode)
	}

	if err := os.MkdirAll(d.destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // Clean up on error
	}()

	var reader io.Reader = resp.Body
	if callback := ProgressFromContext(ctx); callback != nil {
		reader = &progressReader{
			reader:   resp.Body,
			total:    resp.ContentLength,
			callback: callback,
		}
	}

	if _, err := io.Copy(f, reader); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	slog.Debug("download completed", "path", destPath)
	return destPath, nil
}

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressCallback
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.callback(r.downloaded, r.total)
	}
	return n, err
}
