package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// RobotsChecker fetches and caches robots.txt per host.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that evaluates rules for userAgent.
func NewRobotsChecker(client *http.Client, userAgent string, logger *slog.Logger) *RobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		logger:    logger.With("component", "robots"),
		hosts:     make(map[string]*robotstxt.RobotsData),
	}
}

// Check returns ErrBlocked when robots.txt disallows u. A robots.txt that
// cannot be fetched allows everything.
func (rc *RobotsChecker) Check(ctx context.Context, u *url.URL) error {
	data := rc.rules(ctx, u)
	if data == nil {
		return nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !data.TestAgent(path, rc.userAgent) {
		return fmt.Errorf("%w: %s", types.ErrBlocked, u)
	}
	return nil
}

func (rc *RobotsChecker) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host

	rc.mu.Lock()
	data, ok := rc.hosts[key]
	rc.mu.Unlock()
	if ok {
		return data
	}

	data, err := rc.fetch(ctx, key+"/robots.txt")
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		rc.logger.Warn("robots.txt unavailable, allowing all", "host", u.Host, "error", err)
	}

	rc.mu.Lock()
	rc.hosts[key] = data
	rc.mu.Unlock()
	return data
}

func (rc *RobotsChecker) fetch(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
