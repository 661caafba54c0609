package ghl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/botpilote/ghlbridge/internal/apperr"
)

// attempt is one entry in an ordered endpoint fallback chain: a name for
// logging, a request builder, and a parser for the raw response body.
// Keeping the chain declarative makes each endpoint shape independently
// testable.
type attempt[T any] struct {
	name  string
	build func(ctx context.Context) (*http.Request, error)
	parse func(body []byte) (T, error)
}

// tryInOrder runs each attempt until one returns an HTTP success with a
// parseable body. Failures are isolated: a network error, bad status, or
// shape mismatch on one attempt is logged and the next shape is tried.
// Hard credential rejections (401/403) abort the chain immediately, since
// no alternative endpoint shape can recover from them. When every attempt
// fails, the last observed status and body are returned for diagnostics.
func tryInOrder[T any](ctx context.Context, c *Client, attempts []attempt[T]) (T, error) {
	var zero T
	var last *apperr.UpstreamError

	for _, a := range attempts {
		body, status, err := c.do(ctx, a.build)
		if err != nil {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			c.logger.Warn("endpoint attempt failed",
				slog.String("endpoint", a.name),
				slog.Int("status", status),
				slog.String("error", err.Error()))
			var ue *apperr.UpstreamError
			if errors.As(err, &ue) {
				last = ue
				if ue.Status == http.StatusUnauthorized || ue.Status == http.StatusForbidden {
					return zero, ue
				}
			} else {
				last = &apperr.UpstreamError{Status: status, Err: err}
			}
			continue
		}

		parsed, perr := a.parse(body)
		if perr != nil {
			c.logger.Warn("endpoint response not parseable",
				slog.String("endpoint", a.name),
				slog.String("error", perr.Error()))
			last = &apperr.UpstreamError{Status: status, Body: string(body), Err: perr}
			continue
		}

		c.logger.Debug("endpoint attempt succeeded", slog.String("endpoint", a.name))
		return parsed, nil
	}

	if last == nil {
		last = &apperr.UpstreamError{Err: fmt.Errorf("no endpoint attempts configured")}
	}
	return zero, last
}

// do executes a single attempt with retry-with-backoff for transient
// failures (network errors, 5xx, 429). Non-transient HTTP failures are
// permanent so the chain moves on to the next shape instead of retrying
// a status that will not change.
func (c *Client) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, int, error) {
	var body []byte
	var status int

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()

		req, err := build(attemptCtx)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure: transient, retry.
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return err
		}

		status = resp.StatusCode
		if status == http.StatusTooManyRequests || status >= 500 {
			return apperr.FromStatus(status, string(data))
		}
		if status < 200 || status >= 300 {
			return backoff.Permanent(apperr.FromStatus(status, string(data)))
		}

		body = data
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, status, err
	}
	return body, status, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return bo
}
