package fetcher

import (
	"context"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher using net/http with retry and per-host
// rate limiting. Registry hosts are small government or RFMO servers;
// hammering them gets the scraper blocked.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns conservative per-host rate limiters for the
// registry hosts the loader is pointed at most often.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www.iotc.org":      rate.NewLimiter(2, 2),
		"www.iccat.int":     rate.NewLimiter(2, 2),
		"www.wcpfc.int":     rate.NewLimiter(2, 2),
		"www.npfc.int":      rate.NewLimiter(2, 2),
		"vessels.ccsbt.org": rate.NewLimiter(2, 2),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ebisu/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	if len(limiters) == 0 {
		limiters = DefaultRateLimiters()
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiters: limiters,
	}
}

func (f *HTTPFetcher) wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	if limiter, ok := f.limiters[u.Hostname()]; ok {
		return limiter.Wait(ctx)
	}
	return nil
}

// Download fetches the URL, retrying transient failures (5xx, 429, network
// errors) with exponential backoff.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			zap.L().Debug("fetcher: retrying download",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := f.wait(ctx, rawURL); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: build request %s", rawURL)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "fetcher: GET %s", rawURL)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = eris.Errorf("fetcher: GET %s: status %d", rawURL, resp.StatusCode)
		default:
			resp.Body.Close()
			return nil, eris.Errorf("fetcher: GET %s: status %d", rawURL, resp.StatusCode)
		}
	}

	return nil, lastErr
}

// DownloadToFile fetches the URL and writes the body to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: create %s", path)
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, body)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: write %s", path)
	}
	return n, nil
}
