// Package storage downloads documents, templates and reports to local files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/auditportal/auditportal/internal/http"
	"github.com/auditportal/auditportal/internal/logging"
	"github.com/auditportal/auditportal/internal/progress"
	"github.com/auditportal/auditportal/internal/validation"
)

// URLResolver returns a download URL. It is called again after the
// previous URL was rejected, so short-lived signed URLs can be renewed.
type URLResolver func(ctx context.Context) (string, error)

// StaticURL resolves to a fixed URL.
func StaticURL(u string) URLResolver {
	return func(context.Context) (string, error) {
		return u, nil
	}
}

// StatusError is a non-2xx response from the storage endpoint.
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download failed: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download failed: status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// HTTPStatus lets the retry classifier see the status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Downloader fetches URLs into files with classified retries. Azure blob
// SAS URLs go through azblob; anything else is a plain GET.
type Downloader struct {
	httpClient *nethttp.Client
	logger     *logging.Logger
	retry      http.Config
}

// NewDownloader creates a downloader using httpClient for every request.
func NewDownloader(httpClient *nethttp.Client, logger *logging.Logger) *Downloader {
	if httpClient == nil {
		httpClient = nethttp.DefaultClient
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Downloader{
		httpClient: httpClient,
		logger:     logger.Named("storage"),
		retry:      http.DefaultConfig(),
	}
}

// SetRetryConfig replaces the retry parameters. CredentialRefresh is
// always supplied by Download.
func (d *Downloader) SetRetryConfig(cfg http.Config) {
	d.retry = cfg
}

// Download writes the content behind resolve to destPath and returns the
// number of bytes written. The file is written under a temporary name and
// renamed on success, so a failed download leaves nothing behind.
func (d *Downloader) Download(ctx context.Context, resolve URLResolver, destPath string, reporter progress.Reporter) (int64, error) {
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	if err := validation.ValidateFilename(filepath.Base(destPath)); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	current, err := resolve(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve download URL: %w", err)
	}

	cfg := d.retry
	cfg.CredentialRefresh = func(ctx context.Context) error {
		u, err := resolve(ctx)
		if err != nil {
			return err
		}
		current = u
		return nil
	}
	cfg.OnRetry = func(attempt int, err error, errType http.ErrorType) {
		d.logger.Warn().Err(err).Int("attempt", attempt).Str("type", http.ErrorTypeName(errType)).
			Str("file", filepath.Base(destPath)).Msg("retrying download")
	}

	var written int64
	err = http.ExecuteWithRetry(ctx, cfg, func() error {
		n, err := d.downloadOnce(ctx, current, destPath, reporter)
		written = n
		return err
	})
	if err != nil {
		reporter.Error(err)
		return 0, err
	}
	reporter.Finish()
	d.logger.Debug().Str("file", destPath).Int64("bytes", written).Msg("downloaded")
	return written, nil
}

func (d *Downloader) downloadOnce(ctx context.Context, rawURL, destPath string, reporter progress.Reporter) (int64, error) {
	body, size, err := d.open(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp := destPath + ".part"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	reporter.Start(size, filepath.Base(destPath))
	n, err := io.Copy(f, progress.NewProgressReader(body, size, reporter))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size > 0 && n != size {
		err = fmt.Errorf("short download: got %d of %d bytes: %w", n, size, io.ErrUnexpectedEOF)
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write %s: %w", filepath.Base(destPath), err)
	}
	if err := os.Rename(tmp, destPath); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}

// open starts the transfer and returns the body and its size, or -1.
func (d *Downloader) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	if IsAzureBlobURL(rawURL) {
		return d.openBlob(ctx, rawURL)
	}

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid download URL: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, 0, &StatusError{URL: redact(rawURL), StatusCode: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

func (d *Downloader) openBlob(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	parts, err := azblob.ParseURL(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid blob URL: %w", err)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid blob URL: %w", err)
	}
	// The SAS query stays on the service URL; container and blob are
	// addressed per call.
	u.Path = "/"

	client, err := azblob.NewClientWithNoCredential(u.String(), &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: d.httpClient,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create blob client: %w", err)
	}

	resp, err := client.DownloadStream(ctx, parts.ContainerName, parts.BlobName, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			return nil, 0, &StatusError{URL: redact(rawURL), StatusCode: respErr.StatusCode, Err: err}
		}
		return nil, 0, err
	}
	size := int64(-1)
	if resp.ContentLength != nil {
		size = *resp.ContentLength
	}
	return resp.Body, size, nil
}

// IsAzureBlobURL reports whether rawURL addresses Azure blob storage.
func IsAzureBlobURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".blob.core.windows.net")
}

// redact drops the query string, which carries the signature.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
