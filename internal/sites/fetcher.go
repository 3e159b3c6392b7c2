package sites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/soyeahso/cpbot/internal/logging"
	"github.com/soyeahso/cpbot/internal/metrics"
)

// Default fetcher settings.
const (
	defaultFetchTimeout    = 30 * time.Second
	defaultBreakerFailures = 3
	defaultBreakerCooldown = 2 * time.Minute
	maxBodySize            = 8 << 20
)

// Fetch kinds recorded in metrics.
const (
	kindContests = "contests"
	kindProfile  = "profile"
)

// StatusError is returned for a non-2xx response. Body holds the response
// body so callers can inspect API error payloads.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	UserAgent       string
	// FollowRedirects is false for sites where a redirect means "not found".
	FollowRedirects bool
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Fetcher performs GET requests for one site behind a circuit breaker.
// Transport failures and 5xx responses count against the breaker; 4xx and
// 3xx responses mean the site is up and do not.
type Fetcher struct {
	site      string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	userAgent string
	log       *logging.Logger
	metrics   *metrics.Metrics
}

// NewFetcher creates a Fetcher for the site with the given tag.
func NewFetcher(site string, cfg FetcherConfig, log *logging.Logger, m *metrics.Metrics) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown == 0 {
		cooldown = defaultBreakerCooldown
	}

	client := &http.Client{Timeout: timeout, Transport: cfg.Transport}
	if !cfg.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	log = log.Sub("fetch").With("site", site)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "site:" + site,
		MaxRequests: 1, // one probe while half-open
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := statusCode(err)
			return code != 0 && code < http.StatusInternalServerError
		},
	})

	return &Fetcher{
		site:      site,
		client:    client,
		breaker:   cb,
		userAgent: cfg.UserAgent,
		log:       log,
		metrics:   m,
	}
}

// Get fetches url and returns the body of a 2xx response. Any other status
// yields a *StatusError.
func (f *Fetcher) Get(ctx context.Context, kind, url string) ([]byte, error) {
	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.get(ctx, url)
	})
	f.metrics.RecordSiteFetch(f.site, kind, fetchResult(err))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("site %q circuit open: %w", f.site, err)
		}
		return nil, err
	}
	return body, nil
}

// State returns the breaker state for status output.
func (f *Fetcher) State() gobreaker.State {
	return f.breaker.State()
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	f.log.Debug().Str("url", url).Msg("GET")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "open"
	case statusCode(err) == http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}
