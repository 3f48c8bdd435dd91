// Package downloader fetches a single planned media file over HTTP and
// hands the byte stream to the store.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Psycoguana/SubredditMediaDownloader/internal/domain"
)

// BlobWriter persists one media stream under its final name.
type BlobWriter interface {
	Write(kind domain.MediaKind, name string, r io.Reader) (int64, error)
}

// Config holds downloader configuration.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Downloader struct {
	httpClient     *http.Client
	writer         BlobWriter
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, writer BlobWriter, logger *slog.Logger) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		writer:         writer,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "downloader"),
	}
}

// Download fetches the task's URL and writes it verbatim under the task's
// name. Connection errors and 5xx responses are retried with exponential
// backoff; 403 and 404 mean the media was deleted at the origin and return
// domain.ErrMediaDeleted without retrying.
func (d *Downloader) Download(ctx context.Context, task domain.DownloadTask) (int64, error) {
	var n int64
	var err error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		var retryable bool
		n, retryable, err = d.tryDownload(ctx, task)
		if err == nil || !retryable {
			return n, err
		}

		if attempt == d.maxAttempts {
			break
		}

		backoff := d.calculateBackoff(attempt)
		d.logger.Debug("download failed, retrying",
			"submission_id", task.SubmissionID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return 0, fmt.Errorf("after %d attempts: %w", d.maxAttempts, err)
}

func (d *Downloader) tryDownload(ctx context.Context, task domain.DownloadTask) (int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.URL, nil)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Proceed to write.
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
		// Reddit answers 403 for its own deleted hosted videos.
		return 0, false, domain.ErrMediaDeleted
	case resp.StatusCode >= 500:
		return 0, true, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	default:
		return 0, false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	n, err := d.writer.Write(task.Kind, task.Name, resp.Body)
	if err != nil {
		return n, false, fmt.Errorf("store %s: %w", task.Name, err)
	}
	return n, false, nil
}

func (d *Downloader) calculateBackoff(attempt int) time.Duration {
	backoff := d.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > d.maxBackoff {
		backoff = d.maxBackoff
	}
	return backoff
}
