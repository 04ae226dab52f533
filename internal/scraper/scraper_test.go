package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/fetcher"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const storySelector = `a[data-list-type="Paged Stories"]`

func listingPage(page int, titles ...string) string {
	body := "<html><body>"
	for i, t := range titles {
		body += fmt.Sprintf(`<a data-list-type="Paged Stories" href="/story/%d-%d">%s</a>`, page, i, t)
	}
	if page < 2 {
		body += fmt.Sprintf(`<a data-content-title="Page %d" href="/news/latest?pgno=%d">next</a>`, page+1, page+1)
	}
	return body + "</body></html>"
}

const rssFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Tech</title>
<item><title>Chipmaker unveils new  processor</title><link>https://example.com/chip</link></item>
<item><title>Startup raises funding</title><link>https://example.com/startup</link></item>
<item><title>No link here</title></item>
</channel></rss>`

func newNewsServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
		case "/news/latest":
			if r.URL.Query().Get("pgno") == "2" {
				w.Write([]byte(listingPage(2, "Second page story one", "Second page story two")))
				return
			}
			w.Write([]byte(listingPage(1, "Flood warning issued", "Ringgit strengthens", "More")))
		case "/tag/technology":
			w.Write([]byte(listingPage(5, "Phone makers cut prices")))
		case "/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(rssFeed))
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(t *testing.T, sections []config.SectionConfig, wrap func(fetcher.Fetcher) fetcher.Fetcher) (*Scraper, *observability.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scrape.Delay = 0
	cfg.Scrape.MaxPages = 5
	cfg.Scrape.Sections = sections

	hf, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { hf.Close() })

	var f fetcher.Fetcher = hf
	if wrap != nil {
		f = wrap(hf)
	}
	m := observability.NewMetrics(testLogger)
	s := New(cfg, f, m, testLogger)
	s.MinWords = 2
	return s, m
}

func TestScrapeNextLinkPagination(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:         "latest",
		URL:          srv.URL + "/news/latest",
		Selector:     storySelector,
		Pagination:   PaginationNextLink,
		NextSelector: `a[data-content-title="Page %d"]`,
	}
	s, m := newTestScraper(t, []config.SectionConfig{sec}, nil)

	var pages []int
	s.OnPage = func(_ string, page, _ int) { pages = append(pages, page) }

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	assert.Equal(t, 2, sr.Pages)
	assert.Equal(t, []int{1, 2}, pages)

	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
		assert.Empty(t, r.Label)
		assert.Contains(t, r.Link, srv.URL+"/story/")
	}
	assert.Equal(t, []string{
		"Flood warning issued",
		"Ringgit strengthens",
		"Second page story one",
		"Second page story two",
	}, titles)

	// "More" is a one-word navigation link.
	assert.Equal(t, 1, sr.Dropped)
	assert.EqualValues(t, 2, m.PagesFetched.Load())
	assert.EqualValues(t, 4, m.RecordsScraped.Load())
	assert.EqualValues(t, 1, m.RecordsDropped.Load())
}

func TestScrapeSectionMaxPages(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:         "latest",
		URL:          srv.URL + "/news/latest",
		Selector:     storySelector,
		Pagination:   PaginationNextLink,
		NextSelector: `a[data-content-title="Page %d"]`,
		MaxPages:     1,
	}
	s, _ := newTestScraper(t, nil, nil)

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	assert.Equal(t, 1, sr.Pages)
	assert.Len(t, records, 2)
}

func TestScrapeFixedLabel(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:       "technology",
		URL:        srv.URL + "/tag/technology",
		Label:      "Technology",
		Selector:   storySelector,
		Pagination: PaginationNone,
	}
	s, _ := newTestScraper(t, nil, nil)

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	require.Len(t, records, 1)
	assert.Equal(t, "Technology", records[0].Label)
}

func TestScrapeFeed(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:       "tech-feed",
		URL:        srv.URL + "/feed.xml",
		Label:      "Technology",
		Pagination: PaginationFeed,
	}
	s, _ := newTestScraper(t, nil, nil)

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	assert.Equal(t, []types.Record{
		{Title: "Chipmaker unveils new processor", Link: "https://example.com/chip", Label: "Technology"},
		{Title: "Startup raises funding", Link: "https://example.com/startup", Label: "Technology"},
	}, records)
	assert.Equal(t, 1, sr.Dropped)
}

type fakeExpander struct {
	fetcher.Fetcher
	selector string
	clicks   int
}

func (f *fakeExpander) FetchPages(ctx context.Context, req *types.Request, selector string, clicks int) (*types.Response, error) {
	f.selector = selector
	f.clicks = clicks
	return f.Fetch(ctx, req)
}

func TestScrapeLoadMore(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:             "technology",
		URL:              srv.URL + "/tag/technology",
		Label:            "Technology",
		Selector:         storySelector,
		Pagination:       PaginationLoadMore,
		LoadMoreSelector: "#loadMorestories",
		MaxPages:         4,
	}

	var exp *fakeExpander
	s, _ := newTestScraper(t, nil, func(f fetcher.Fetcher) fetcher.Fetcher {
		exp = &fakeExpander{Fetcher: f}
		return exp
	})

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	assert.Len(t, records, 1)
	assert.Equal(t, "#loadMorestories", exp.selector)
	assert.Equal(t, 3, exp.clicks)
}

func TestScrapeLoadMoreWithoutBrowserFallsBack(t *testing.T) {
	srv := newNewsServer(t)
	sec := config.SectionConfig{
		Name:             "technology",
		URL:              srv.URL + "/tag/technology",
		Selector:         storySelector,
		Pagination:       PaginationLoadMore,
		LoadMoreSelector: "#loadMorestories",
	}
	s, _ := newTestScraper(t, nil, nil)

	records, sr := s.ScrapeSection(context.Background(), sec)
	require.NoError(t, sr.Err)
	assert.Equal(t, 1, sr.Pages)
	assert.Len(t, records, 1)
}

func TestRunIsBestEffort(t *testing.T) {
	srv := newNewsServer(t)
	sections := []config.SectionConfig{
		{Name: "broken", URL: srv.URL + "/broken", Selector: storySelector},
		{Name: "private", URL: srv.URL + "/private/news", Selector: storySelector},
		{Name: "technology", URL: srv.URL + "/tag/technology", Label: "Technology", Selector: storySelector},
	}
	s, m := newTestScraper(t, sections, nil)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sections, 3)
	assert.Equal(t, 2, res.Failed())

	var fe *types.FetchError
	require.True(t, errors.As(res.Sections[0].Err, &fe))
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.ErrorIs(t, res.Sections[1].Err, types.ErrBlocked)
	assert.NoError(t, res.Sections[2].Err)

	assert.Len(t, res.Records, 1)
	// retries of /broken count as one failed page
	assert.EqualValues(t, 1, m.PagesFailed.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := newNewsServer(t)
	s, _ := newTestScraper(t, []config.SectionConfig{
		{Name: "technology", URL: srv.URL + "/tag/technology", Selector: storySelector},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownPagination(t *testing.T) {
	s, _ := newTestScraper(t, nil, nil)
	_, sr := s.ScrapeSection(context.Background(), config.SectionConfig{
		Name: "x", URL: "https://example.com", Pagination: "infinite_scroll",
	})
	assert.Error(t, sr.Err)
}

func TestNextSelector(t *testing.T) {
	assert.Equal(t, `a[data-content-title="Page 3"]`, nextSelector(`a[data-content-title="Page %d"]`, 3))
	assert.Equal(t, "a.next", nextSelector("a.next", 3))
}
