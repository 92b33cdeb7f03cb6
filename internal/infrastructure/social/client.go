// Package social holds read-only HTTP clients for the supported social
// platforms. Each client implements ports.SocialReader; requests are rate
// limited, bounded by a timeout and retried on transient failures.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/chainsocial/social-api/internal/core/domain"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	defaultRate       = 5
	retryBackoff      = 300 * time.Millisecond
	maxBodyBytes      = 1 << 20

	// postsLimit is how many recent posts are searched for a proof.
	postsLimit = 20
)

// Options configures the transport shared by all platform clients.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	RatePerSecond float64
	HTTPClient    *http.Client
}

// errStatus is a non-2xx response.
type errStatus struct {
	code int
}

func (e *errStatus) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

func (e *errStatus) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// transport performs GET requests decoding JSON bodies.
type transport struct {
	http       *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	log        zerolog.Logger
}

func newTransport(opts Options, log zerolog.Logger) *transport {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaultRate
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &transport{
		http:       opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSecond), int(opts.RatePerSecond)+1),
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		log:        log,
	}
}

// getJSON fetches endpoint into out. A 404 yields domain.ErrPeopleNotFound;
// other failures are wrapped in domain.ErrExternalService. Neither logs nor
// errors carry the query string, which may hold an access token.
func (t *transport) getJSON(ctx context.Context, endpoint string, header http.Header, out interface{}) error {
	var err error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrExternalService, ctx.Err())
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		err = t.do(ctx, endpoint, header, out)
		if err == nil {
			return nil
		}

		var se *errStatus
		if errors.As(err, &se) {
			if se.code == http.StatusNotFound {
				return domain.ErrPeopleNotFound
			}
			if !se.retryable() {
				break
			}
		}
		t.log.Debug().Err(err).Str("url", redactURL(endpoint)).Int("attempt", attempt+1).Msg("social request failed")
	}
	return fmt.Errorf("%w: %v", domain.ErrExternalService, err)
}

func (t *transport) do(ctx context.Context, endpoint string, header http.Header, out interface{}) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: invalid url", redactURL(endpoint))
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redactURL(ue.URL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &errStatus{code: resp.StatusCode}
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out)
}

// redactURL drops the query and fragment of rawURL.
func redactURL(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
