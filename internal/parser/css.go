package parser

import (
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// CSSParser extracts headlines using CSS selectors via goquery.
type CSSParser struct {
	logger *slog.Logger
}

// NewCSSParser creates a new CSS selector parser.
func NewCSSParser(logger *slog.Logger) *CSSParser {
	return &CSSParser{
		logger: logger.With("component", "css_parser"),
	}
}

// Parse implements Parser.
func (p *CSSParser) Parse(resp *types.Response, rule Rule) (*Listing, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Selector: rule.Selector, Err: err}
	}

	c, err := newCollector(resp)
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Selector: rule.Selector, Err: err}
	}

	doc.Find(rule.Selector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		c.add(selectionTitle(sel, rule.TitleAttr), href)
	})

	p.logger.Debug("parsed listing",
		"url", resp.BaseURL(),
		"records", len(c.listing.Records),
		"skipped", c.listing.Skipped,
	)
	return &c.listing, nil
}

// NextLink implements Parser.
func (p *CSSParser) NextLink(resp *types.Response, selector string) (string, bool) {
	doc, err := resp.Document()
	if err != nil {
		return "", false
	}
	base, err := url.Parse(resp.BaseURL())
	if err != nil {
		return "", false
	}
	href, ok := doc.Find(selector).First().Attr("href")
	if !ok {
		return "", false
	}
	return resolveLink(base, href)
}

// selectionTitle reads attr, falling back to the element text when the
// attribute is missing or blank.
func selectionTitle(sel *goquery.Selection, attr string) string {
	if attr != "" {
		if v, ok := sel.Attr(attr); ok && cleanTitle(v) != "" {
			return v
		}
	}
	return sel.Text()
}
