package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It also implements PageExpander for "Load More" listings.
type BrowserFetcher struct {
	browser    *rod.Browser
	cfg        *config.Config
	logger     *slog.Logger
	stealth    bool
	userAgents []string
	uaIndex    atomic.Int64

	// ClickWait is how long to let the page settle after each click.
	ClickWait time.Duration
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:        cfg,
		logger:     logger.With("component", "browser_fetcher"),
		stealth:    cfg.Scrape.Stealth,
		userAgents: cfg.Scrape.UserAgents,
		ClickWait:  3 * time.Second,
	}

	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "stealth", bf.stealth)
	return bf, nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	return bf.FetchPages(ctx, req, "", 0)
}

// FetchPages navigates to req and clicks selector up to clicks times,
// waiting ClickWait after each. It stops early once the control is gone.
func (bf *BrowserFetcher) FetchPages(ctx context.Context, req *types.Request, selector string, clicks int) (*types.Response, error) {
	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: rotate(bf.userAgents, &bf.uaIndex),
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	timeout := bf.cfg.Fetcher.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	for i := 0; selector != "" && i < clicks; i++ {
		has, el, err := page.Has(selector)
		if err != nil || !has {
			bf.logger.Debug("load more control gone", "url", req.URLString(), "clicks", i)
			break
		}
		if err := el.ScrollIntoView(); err != nil {
			bf.logger.Debug("scroll into view failed", "error", err)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			bf.logger.Warn("load more click failed", "url", req.URLString(), "clicks", i, "error", err)
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bf.ClickWait):
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return types.NewBrowserResponse(req, []byte(html), finalURL, duration), nil
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.stealth {
		page, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
