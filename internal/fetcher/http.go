package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/types"
)

const (
	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = 2 * time.Minute
	errorSnippetSize  = 512
)

// HTTPFetcher downloads listing pages and feeds with net/http. It asks for
// compressed bodies and decodes gzip, deflate and brotli itself.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
	agents  []string
	next    atomic.Int64
	logger  *slog.Logger
}

func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	fc := cfg.Fetcher
	client := &http.Client{
		Transport: newTransport(fc),
		Jar:       jar,
		Timeout:   fc.RequestTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if !fc.FollowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= fc.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", fc.MaxRedirects)
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:  client,
		maxBody: fc.MaxBodySize,
		agents:  cfg.Scrape.UserAgents,
		logger:  logger.With("component", "http_fetcher"),
	}, nil
}

func newTransport(fc config.FetcherConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        fc.MaxIdleConns,
		MaxIdleConnsPerHost: max(fc.MaxIdleConns/2, 1),
		IdleConnTimeout:     fc.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: fc.TLSInsecure},
		DisableCompression:  true,
	}
}

// Fetch downloads one page. Non-2xx replies come back as a Response, except
// 429 and 5xx which are retryable FetchErrors.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	target := req.URLString()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, nil)
	if err != nil {
		return nil, &types.FetchError{URL: target, Err: err}
	}
	f.setHeaders(httpReq, req.Headers)

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &types.FetchError{URL: target, Err: err, Retryable: isRetryableError(err)}
	}
	defer httpResp.Body.Close()

	if err := statusError(target, httpResp); err != nil {
		return nil, err
	}

	body, err := f.readBody(httpResp)
	if err != nil {
		return nil, &types.FetchError{URL: target, StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}
	elapsed := time.Since(start)

	f.logger.Debug("page fetched",
		"url", target,
		"status", httpResp.StatusCode,
		"bytes", len(body),
		"elapsed", elapsed,
	)
	return types.NewResponse(req, httpResp, body, elapsed), nil
}

func (f *HTTPFetcher) setHeaders(r *http.Request, extra http.Header) {
	r.Header.Set("User-Agent", f.userAgent())
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, vs := range extra {
		for _, v := range vs {
			r.Header.Set(k, v)
		}
	}
}

// readBody decodes the body and caps the decoded size at MaxBodySize.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	r, err := decompressReader(resp, resp.Body)
	if err != nil {
		return nil, err
	}
	if f.maxBody > 0 {
		r = io.LimitReader(r, f.maxBody)
	}
	return io.ReadAll(r)
}

// statusError turns throttling and server failures into retryable errors.
func statusError(target string, resp *http.Response) error {
	code := resp.StatusCode
	if code != http.StatusTooManyRequests && code < 500 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetSize))
	fe := &types.FetchError{
		URL:        target,
		StatusCode: code,
		Retryable:  true,
		Err:        fmt.Errorf("HTTP %d: %s", code, strings.TrimSpace(string(snippet))),
	}
	if code == http.StatusTooManyRequests {
		fe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return fe
}

// Client exposes the underlying client so robots.txt lookups share its
// transport and cookies.
func (f *HTTPFetcher) Client() *http.Client { return f.client }

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) Type() string { return "http" }

func (f *HTTPFetcher) userAgent() string { return rotate(f.agents, &f.next) }

// rotate cycles through agents starting at the first one.
func rotate(agents []string, next *atomic.Int64) string {
	if len(agents) == 0 {
		return "NewsSort/" + config.Version
	}
	i := (next.Add(1) - 1) % int64(len(agents))
	return agents[i]
}

func decompressReader(resp *http.Response, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return brotli.NewReader(r), nil
	}
	return r, nil
}

func isRetryableError(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return true
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter reads delta-seconds or an HTTP date, capped at two minutes.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}

	var d time.Duration
	if secs, err := strconv.Atoi(header); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(header); err == nil {
		d = max(time.Until(t), time.Second)
	} else {
		return defaultRetryAfter
	}
	return min(d, maxRetryAfter)
}
