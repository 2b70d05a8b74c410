package crawler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/config"
	"cartilla/internal/observability"
)

// Kind classifies a fetch outcome.
type Kind int

const (
	KindOK Kind = iota
	// KindEmpty is a 200 whose payload carries no data.
	KindEmpty
	// KindTransient is a timeout or connection failure that survived every retry.
	KindTransient
	// KindPermanent is a non-200 status or a body that is not JSON. Never retried.
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindEmpty:
		return "empty"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	}
	return "unknown"
}

// Result is the outcome of Client.Get. Payload is set only for KindOK.
type Result struct {
	Kind     Kind
	Payload  json.RawMessage
	Status   int
	Attempts int
	Err      error
}

// Client performs GETs against the directory API with a fixed per-request
// timeout and a bounded retry on transport failures.
type Client struct {
	http        *http.Client
	userAgent   string
	maxAttempts int
	retryDelay  time.Duration
}

func NewClient(cfg *config.Config) *Client {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.RequestTimeout},
		userAgent:   cfg.UserAgent,
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// Get fetches rawURL with params appended to its query. endpoint only
// labels logs and metrics.
func (c *Client) Get(ctx context.Context, endpoint, rawURL string, params url.Values) Result {
	logger := zerolog.Ctx(ctx).With().Str("endpoint", endpoint).Logger()

	target, err := withParams(rawURL, params)
	if err != nil {
		logger.Error().Err(err).Str("url", rawURL).Msg("invalid url")
		return c.finish(endpoint, Result{Kind: KindPermanent, Err: err})
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.retryDelay); err != nil {
				return c.finish(endpoint, Result{Kind: KindTransient, Attempts: attempt - 1, Err: err})
			}
		}

		observability.FetchAttemptsTotal.WithLabelValues(endpoint).Inc()
		status, body, err := c.do(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return c.finish(endpoint, Result{Kind: KindTransient, Attempts: attempt, Err: ctx.Err()})
			}
			lastErr = err
			logger.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", c.maxAttempts).Bool("timeout", isTimeout(err)).Msg("request failed")
			continue
		}

		if status != http.StatusOK {
			logger.Warn().Int("status", status).Str("url", target).Msg("unexpected status code")
			return c.finish(endpoint, Result{Kind: KindPermanent, Status: status, Attempts: attempt, Err: errors.Errorf("status %d", status)})
		}

		payload, err := decodePayload(body)
		if err != nil {
			logger.Error().Err(err).Str("body", string(body)).Msg("could not decode response")
			return c.finish(endpoint, Result{Kind: KindPermanent, Status: status, Attempts: attempt, Err: err})
		}
		if isEmptyPayload(payload) {
			return c.finish(endpoint, Result{Kind: KindEmpty, Status: status, Attempts: attempt})
		}
		return c.finish(endpoint, Result{Kind: KindOK, Payload: payload, Status: status, Attempts: attempt})
	}

	logger.Error().Err(lastErr).Int("attempts", c.maxAttempts).Str("url", target).Msg("giving up after retries")
	return c.finish(endpoint, Result{Kind: KindTransient, Attempts: c.maxAttempts, Err: lastErr})
}

func (c *Client) finish(endpoint string, r Result) Result {
	observability.FetchResultsTotal.WithLabelValues(endpoint, r.Kind.String()).Inc()
	return r
}

// do performs one attempt. A failure to read the body counts as a
// transport failure.
func (c *Client) do(ctx context.Context, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Errorf("reading body of %s: %w", target, err)
	}
	return resp.StatusCode, body, nil
}

func withParams(rawURL string, params url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Errorf("parsing url: %w", err)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
