// Package scraper walks the configured news sections and turns their
// listing pages into unlabeled or pre-labeled records.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/parser"
	"github.com/IshaanNene/NewsSort/internal/pipeline"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// Pagination modes.
const (
	PaginationNone     = "none"
	PaginationNextLink = "next_link"
	PaginationLoadMore = "load_more"
	PaginationFeed     = "feed"
)

// maxRetries bounds how often a retryable page fetch is attempted again.
const maxRetries = 2

// SectionResult reports what one section produced.
type SectionResult struct {
	Name    string
	Pages   int
	Records int
	Dropped int
	Err     error
}

// Result is the outcome of a scrape run.
type Result struct {
	Records  []types.Record
	Sections []SectionResult
}

// Failed returns the number of sections that ended in an error.
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Sections {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Scraper fetches listing pages section by section.
type Scraper struct {
	cfg     *config.ScrapeConfig
	fetcher fetcher.Fetcher
	robots  *fetcher.RobotsChecker
	limiter *rate.Limiter
	feeds   *gofeed.Parser
	metrics *observability.Metrics
	logger  *slog.Logger

	// MinWords drops scraped titles shorter than this many words.
	MinWords int

	// OnPage is called after every fetched page.
	OnPage func(section string, page int, records int)
}

// New creates a Scraper. metrics may be nil.
func New(cfg *config.Config, f fetcher.Fetcher, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}

	limit := rate.Inf
	if cfg.Scrape.Delay > 0 {
		limit = rate.Every(cfg.Scrape.Delay)
	}

	s := &Scraper{
		cfg:      &cfg.Scrape,
		fetcher:  f,
		limiter:  rate.NewLimiter(limit, 1),
		feeds:    gofeed.NewParser(),
		metrics:  metrics,
		logger:   logger.With("component", "scraper"),
		MinWords: 1,
	}

	if cfg.Scrape.RespectRobotsTxt {
		client := &http.Client{Timeout: cfg.Fetcher.RequestTimeout}
		if hf, ok := f.(*fetcher.HTTPFetcher); ok {
			client = hf.Client()
		}
		s.robots = fetcher.NewRobotsChecker(client, robotsAgent(cfg.Scrape.UserAgents), logger)
	}
	return s
}

// Run scrapes every configured section. A failing section is logged and
// recorded in the result; only context cancellation aborts the run.
func (s *Scraper) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	for _, sec := range s.cfg.Sections {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		records, sr := s.ScrapeSection(ctx, sec)
		res.Sections = append(res.Sections, sr)
		res.Records = append(res.Records, records...)

		if sr.Err != nil {
			if isContextErr(sr.Err) {
				return res, sr.Err
			}
			s.logger.Error("section failed", "section", sec.Name, "error", sr.Err)
			continue
		}
		s.logger.Info("section scraped", "section", sec.Name, "pages", sr.Pages, "records", sr.Records)
	}
	return res, nil
}

// ScrapeSection scrapes one section. Records gathered before a failure on a
// later page are kept.
func (s *Scraper) ScrapeSection(ctx context.Context, sec config.SectionConfig) ([]types.Record, SectionResult) {
	sr := SectionResult{Name: sec.Name}

	ingest, err := pipeline.NewIngestPipeline(s.logger, sec.Label, s.MinWords)
	if err != nil {
		sr.Err = err
		return nil, sr
	}

	var raw []types.Record
	switch sec.Pagination {
	case "", PaginationNone:
		raw, sr.Pages, sr.Err = s.scrapePages(ctx, sec, 1)
	case PaginationNextLink:
		raw, sr.Pages, sr.Err = s.scrapePages(ctx, sec, s.maxPages(sec))
	case PaginationLoadMore:
		raw, sr.Pages, sr.Err = s.scrapeLoadMore(ctx, sec)
	case PaginationFeed:
		raw, sr.Pages, sr.Err = s.scrapeFeed(ctx, sec)
	default:
		sr.Err = fmt.Errorf("section %s: unknown pagination %q", sec.Name, sec.Pagination)
	}

	records, dropped, err := ingest.Run(raw)
	if err != nil && sr.Err == nil {
		sr.Err = err
	}
	sr.Records = len(records)
	sr.Dropped = dropped

	s.metrics.RecordsScraped.Add(int64(len(records)))
	s.metrics.RecordsDropped.Add(int64(dropped))
	return records, sr
}

// scrapePages fetches the section URL and follows next links for up to
// maxPages pages.
func (s *Scraper) scrapePages(ctx context.Context, sec config.SectionConfig, maxPages int) ([]types.Record, int, error) {
	p, err := parser.New(sec.SelectorType, s.logger)
	if err != nil {
		return nil, 0, err
	}
	rule := parser.RuleFor(sec)

	var records []types.Record
	pageURL := sec.URL
	pages := 0
	for page := 1; page <= maxPages; page++ {
		resp, err := s.fetchPage(ctx, sec.Name, pageURL, page)
		if err != nil {
			if pages > 0 && !isContextErr(err) {
				s.logger.Warn("pagination stopped", "section", sec.Name, "page", page, "error", err)
				return records, pages, nil
			}
			return records, pages, err
		}
		pages++

		listing, err := p.Parse(resp, rule)
		if err != nil {
			return records, pages, err
		}
		records = append(records, listing.Records...)
		s.pageDone(sec.Name, page, len(listing.Records))

		if page == maxPages || sec.NextSelector == "" {
			break
		}
		next, ok := p.NextLink(resp, nextSelector(sec.NextSelector, page+1))
		if !ok {
			s.logger.Debug("no next link", "section", sec.Name, "page", page)
			break
		}
		pageURL = next
	}
	return records, pages, nil
}

// scrapeLoadMore renders the section in a browser and clicks its
// "Load More" control once per extra page.
func (s *Scraper) scrapeLoadMore(ctx context.Context, sec config.SectionConfig) ([]types.Record, int, error) {
	expander, ok := s.fetcher.(fetcher.PageExpander)
	if !ok {
		s.logger.Warn("load_more needs the browser fetcher, scraping first page only",
			"section", sec.Name, "fetcher", s.fetcher.Type())
		return s.scrapePages(ctx, sec, 1)
	}

	p, err := parser.New(sec.SelectorType, s.logger)
	if err != nil {
		return nil, 0, err
	}

	req, err := s.prepare(ctx, sec.Name, sec.URL, 1)
	if err != nil {
		return nil, 0, err
	}
	pages := s.maxPages(sec)
	resp, err := expander.FetchPages(ctx, req, sec.LoadMoreSelector, pages-1)
	if err != nil {
		s.metrics.PagesFailed.Add(1)
		return nil, 0, err
	}
	s.observe(resp)

	listing, err := p.Parse(resp, parser.RuleFor(sec))
	if err != nil {
		return nil, 1, err
	}
	s.pageDone(sec.Name, pages, len(listing.Records))
	return listing.Records, 1, nil
}

// scrapeFeed reads an RSS or Atom feed; each item becomes a record.
func (s *Scraper) scrapeFeed(ctx context.Context, sec config.SectionConfig) ([]types.Record, int, error) {
	resp, err := s.fetchPage(ctx, sec.Name, sec.URL, 1)
	if err != nil {
		return nil, 0, err
	}

	feed, err := s.feeds.ParseString(string(resp.Body))
	if err != nil {
		return nil, 1, &types.ParseError{URL: resp.BaseURL(), Err: err}
	}

	records := make([]types.Record, 0, len(feed.Items))
	for _, item := range feed.Items {
		records = append(records, types.Record{
			Title: strings.Join(strings.Fields(item.Title), " "),
			Link:  strings.TrimSpace(item.Link),
		})
	}
	s.pageDone(sec.Name, 1, len(records))
	return records, 1, nil
}

// fetchPage checks robots.txt, waits for the rate limiter and fetches the
// page, retrying retryable failures.
func (s *Scraper) fetchPage(ctx context.Context, section, pageURL string, page int) (*types.Response, error) {
	req, err := s.prepare(ctx, section, pageURL, page)
	if err != nil {
		return nil, err
	}

	var resp *types.Response
	for attempt := 0; ; attempt++ {
		resp, err = s.fetcher.Fetch(ctx, req)
		if err == nil {
			break
		}

		var fe *types.FetchError
		if attempt >= maxRetries || !errors.As(err, &fe) || !fe.IsRetryable() {
			s.metrics.PagesFailed.Add(1)
			return nil, err
		}

		wait := max(fe.RetryAfter, s.cfg.Delay)
		s.logger.Warn("retrying page", "url", pageURL, "attempt", attempt+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	if !resp.IsSuccess() {
		s.metrics.PagesFailed.Add(1)
		return nil, &types.FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	s.observe(resp)
	return resp, nil
}

// prepare builds the request and applies robots.txt and the rate limit.
func (s *Scraper) prepare(ctx context.Context, section, pageURL string, page int) (*types.Request, error) {
	req, err := types.NewRequest(pageURL)
	if err != nil {
		return nil, err
	}
	req.Section = section
	req.Page = page

	if s.robots != nil {
		if err := s.robots.Check(ctx, req.URL); err != nil {
			return nil, err
		}
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Scraper) observe(resp *types.Response) {
	s.metrics.PagesFetched.Add(1)
	s.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
}

func (s *Scraper) pageDone(section string, page, records int) {
	s.logger.Debug("page scraped", "section", section, "page", page, "records", records)
	if s.OnPage != nil {
		s.OnPage(section, page, records)
	}
}

func (s *Scraper) maxPages(sec config.SectionConfig) int {
	if sec.MaxPages > 0 {
		return sec.MaxPages
	}
	return max(s.cfg.MaxPages, 1)
}

// nextSelector fills the page number into a selector template.
func nextSelector(tmpl string, page int) string {
	if strings.Contains(tmpl, "%d") {
		return fmt.Sprintf(tmpl, page)
	}
	return tmpl
}

func robotsAgent(agents []string) string {
	if len(agents) > 0 {
		return agents[0]
	}
	return "NewsSort/" + config.Version
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
