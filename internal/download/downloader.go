// Package download fetches every image of a homework record, one at a time.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/homework-board/internal/models"
	appErrors "github.com/noah-isme/homework-board/pkg/errors"
)

// DefaultItemDelay spaces consecutive downloads.
const DefaultItemDelay = 400 * time.Millisecond

// Sink receives each downloaded image under its file name.
type Sink interface {
	Put(name string, r io.Reader) error
}

// Failure records one skipped image.
type Failure struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Err   error  `json:"-"`
}

// Result summarises a bulk download.
type Result struct {
	Saved  []string  `json:"saved"`
	Failed []Failure `json:"failed"`
}

// Downloader fetches record images sequentially over HTTP.
type Downloader struct {
	client *http.Client
	delay  time.Duration
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option customises a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithDelay sets the pause between items. Zero disables it.
func WithDelay(delay time.Duration) Option {
	return func(d *Downloader) {
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// WithLogger sets the logger for skipped items.
func WithLogger(l *zap.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// New constructs a Downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client: &http.Client{Timeout: 20 * time.Second},
		delay:  DefaultItemDelay,
		logger: zap.NewNop(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FileName is the name image n (zero based) of a record is saved under.
func FileName(recordID string, n int) string {
	return fmt.Sprintf("homework-%s-%d.jpg", recordID, n+1)
}

// DownloadAll fetches every image of rec in order and hands it to sink. An
// image that fails to fetch is logged and skipped. A sink error or context
// cancellation stops the run and is returned with the partial result.
func (d *Downloader) DownloadAll(ctx context.Context, rec *models.Homework, sink Sink) (*Result, error) {
	result := &Result{Saved: []string{}, Failed: []Failure{}}
	if rec == nil {
		return result, nil
	}

	for i, url := range rec.Images {
		if i > 0 && d.delay > 0 {
			if err := d.sleep(ctx, d.delay); err != nil {
				return result, err
			}
		}

		name := FileName(rec.ID, i)
		body, err := d.fetch(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			wrapped := appErrors.WrapAs(err, appErrors.ErrDownload, "failed to download image")
			d.logger.Warn("image download skipped",
				zap.String("homework_id", rec.ID),
				zap.Int("index", i),
				zap.String("url", url),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, Failure{Index: i, URL: url, Err: wrapped})
			continue
		}

		err = sink.Put(name, body)
		_ = body.Close()
		if err != nil {
			return result, fmt.Errorf("write %s: %w", name, err)
		}
		result.Saved = append(result.Saved, name)
	}

	return result, nil
}

func (d *Downloader) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
