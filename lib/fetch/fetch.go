// Package fetch wraps the HTTP layer used by every crawler: a resty client
// with a fixed-backoff retry policy for connection failures and an advisory
// rate limiter toward the source site.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/nkessler2000/sentiment-analysis/lib/restyutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("lib/fetch")

// ErrRetriesExhausted wraps the last connection failure once the retry
// budget for a single page is spent.
var ErrRetriesExhausted = errors.New("fetch: retries exhausted")

type Options struct {
	UserAgent string
	// Timeout bounds each individual request. Zero means 30s.
	Timeout time.Duration
	// Retries is the number of re-attempts after the initial request
	// fails with a connection error. Zero means 3.
	Retries int
	// Backoff is the fixed sleep before each retry. Zero means 5s.
	Backoff time.Duration
	// RequestsPerSecond paces all requests through a shared token bucket.
	// Zero disables pacing.
	RequestsPerSecond float64
	// DebugDir, when set, dumps every HTTP exchange into the directory.
	DebugDir string
}

type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	retries int
	backoff time.Duration
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Backoff == 0 {
		opts.Backoff = 5 * time.Second
	}

	httpClient := resty.New().SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		httpClient.SetHeader("User-Agent", opts.UserAgent)
	}
	var dump restyutil.ExchangeDump
	if opts.DebugDir != "" {
		d, err := restyutil.NewDirDump(opts.DebugDir)
		if err != nil {
			slog.Warn("failed to create debug dump directory",
				"dir", opts.DebugDir, "err", err)
		} else {
			dump = d
		}
	}
	restyutil.Instrument(httpClient, tracer, dump)

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		http:    httpClient,
		limiter: limiter,
		retries: opts.Retries,
		backoff: opts.Backoff,
	}
}

// Get fetches a page and parses it into a goquery document. Connection
// failures are retried with a fixed backoff; an unexpected status code or a
// parse failure is returned immediately.
func (c *Client) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Get", trace.WithAttributes(
		attribute.String("url", pageURL),
	))
	defer span.End()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			slog.WarnContext(ctx, "retrying fetch",
				"url", pageURL, "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := c.http.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			// transport-level failure, eligible for retry
			lastErr = err
			continue
		}
		if res.StatusCode() != http.StatusOK {
			err := fmt.Errorf("fetch: unexpected status %d for %s", res.StatusCode(), pageURL)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return doc, nil
	}

	err := fmt.Errorf("%w: %d attempts for %s: %v", ErrRetriesExhausted, c.retries+1, pageURL, lastErr)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}
