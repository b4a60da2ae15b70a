package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"election_dashboard/pkg/utils"
)

// Body is a downloaded payload spooled to a temporary file so that large
// parquet files can be read at random offsets.
type Body struct {
	file *os.File
	size int64
}

// ReadAt implements io.ReaderAt
func (b *Body) ReadAt(p []byte, off int64) (int, error) {
	return b.file.ReadAt(p, off)
}

// Reader returns a fresh sequential reader over the payload
func (b *Body) Reader() io.Reader {
	return io.NewSectionReader(b.file, 0, b.size)
}

// Size returns the payload length in bytes
func (b *Body) Size() int64 {
	return b.size
}

// Close removes the temporary file
func (b *Body) Close() error {
	name := b.file.Name()
	closeErr := b.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}

// Fetcher downloads the resource at a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Body, error)
}

// HTTPFetcher downloads over HTTP with retries on network errors and 5xx
type HTTPFetcher struct {
	client    *http.Client
	retry     *utils.RetryConfig
	userAgent string
	tempDir   string
	logger    *zap.Logger
}

// FetcherOptions tunes an HTTPFetcher
type FetcherOptions struct {
	Timeout      time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	UserAgent    string
	TempDir      string
}

// NewHTTPFetcher creates a fetcher. Zero options fall back to defaults.
func NewHTTPFetcher(opts FetcherOptions, logger *zap.Logger) *HTTPFetcher {
	retry := utils.DefaultRetryConfig()
	if opts.MaxAttempts > 0 {
		retry.MaxAttempts = opts.MaxAttempts
	}
	if opts.InitialDelay > 0 {
		retry.InitialDelay = opts.InitialDelay
	}
	if opts.MaxDelay > 0 {
		retry.MaxDelay = opts.MaxDelay
	}
	retry.RetryableErrors = []error{errTransient}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		retry:     retry,
		userAgent: opts.UserAgent,
		tempDir:   opts.TempDir,
		logger:    logger,
	}
}

// Fetch downloads url into a temporary file
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Body, error) {
	var body *Body
	attempt := 0

	err := utils.RetryWithBackoff(ctx, func() error {
		attempt++
		b, err := f.fetchOnce(ctx, url)
		if err != nil {
			f.logger.Warn("Download attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		body = b
		return nil
	}, f.retry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}

	f.logger.Debug("Downloaded resource",
		zap.String("url", url),
		zap.String("size", humanize.Bytes(uint64(body.size))),
		zap.Int("attempts", attempt))

	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*Body, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	file, err := os.CreateTemp(f.tempDir, "dataset-*")
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}
	body := &Body{file: file}

	n, err := io.Copy(file, resp.Body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("%w: reading body: %v", errTransient, err)
	}
	body.size = n

	return body, nil
}
