package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// PageExpander is a Fetcher that can reveal more of a listing by clicking
// a "Load More" control in place.
type PageExpander interface {
	Fetcher

	// FetchPages loads req and clicks selector up to clicks times, returning
	// the rendered document after the last click.
	FetchPages(ctx context.Context, req *types.Request, selector string, clicks int) (*types.Response, error)
}

// New returns the fetcher selected by scrape.fetcher.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Scrape.Fetcher {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Scrape.Fetcher)
	}
}
