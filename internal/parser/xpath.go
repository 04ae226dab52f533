package parser

import (
	"bytes"
	"log/slog"
	"net/url"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/NewsSort/internal/types"
)

// XPathParser extracts headlines using XPath expressions.
type XPathParser struct {
	logger *slog.Logger
}

// NewXPathParser creates a new XPath parser.
func NewXPathParser(logger *slog.Logger) *XPathParser {
	return &XPathParser{
		logger: logger.With("component", "xpath_parser"),
	}
}

// Parse implements Parser for XPath selectors.
func (p *XPathParser) Parse(resp *types.Response, rule Rule) (*Listing, error) {
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Selector: rule.Selector, Err: err}
	}

	nodes, err := htmlquery.QueryAll(doc, rule.Selector)
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Selector: rule.Selector, Err: err}
	}

	c, err := newCollector(resp)
	if err != nil {
		return nil, &types.ParseError{URL: resp.BaseURL(), Selector: rule.Selector, Err: err}
	}

	for _, node := range nodes {
		c.add(nodeTitle(node, rule.TitleAttr), htmlquery.SelectAttr(node, "href"))
	}

	p.logger.Debug("parsed listing",
		"url", resp.BaseURL(),
		"records", len(c.listing.Records),
		"skipped", c.listing.Skipped,
	)
	return &c.listing, nil
}

// NextLink implements Parser.
func (p *XPathParser) NextLink(resp *types.Response, selector string) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return "", false
	}
	node, err := htmlquery.Query(doc, selector)
	if err != nil || node == nil {
		if err != nil {
			p.logger.Warn("invalid xpath", "selector", selector, "error", err)
		}
		return "", false
	}
	base, err := url.Parse(resp.BaseURL())
	if err != nil {
		return "", false
	}
	return resolveLink(base, htmlquery.SelectAttr(node, "href"))
}

func nodeTitle(node *html.Node, attr string) string {
	if attr != "" {
		if v := htmlquery.SelectAttr(node, attr); cleanTitle(v) != "" {
			return v
		}
	}
	return htmlquery.InnerText(node)
}
