// Package parser extracts headline records from news listing pages.
package parser

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/types"
)

// Rule describes where headlines sit on a listing page.
type Rule struct {
	// Selector matches one anchor element per headline.
	Selector string

	// TitleAttr names the attribute holding the headline. Empty means the
	// element's text.
	TitleAttr string
}

// RuleFor builds the Rule for a configured section.
func RuleFor(sec config.SectionConfig) Rule {
	return Rule{Selector: sec.Selector, TitleAttr: sec.TitleAttr}
}

// Listing is what a parser found on one page.
type Listing struct {
	Records []types.Record

	// Skipped counts matches without a usable title or link.
	Skipped int
}

// Parser extracts headline records and pagination links from a response.
type Parser interface {
	// Parse returns one record per matched headline. Labels are left empty.
	Parse(resp *types.Response, rule Rule) (*Listing, error)

	// NextLink returns the absolute URL of the first element matching
	// selector, or false when there is none.
	NextLink(resp *types.Response, selector string) (string, bool)
}

// New returns the parser for a section's selector_type.
func New(selectorType string, logger *slog.Logger) (Parser, error) {
	switch selectorType {
	case "", "css":
		return NewCSSParser(logger), nil
	case "xpath":
		return NewXPathParser(logger), nil
	default:
		return nil, fmt.Errorf("unknown selector type %q", selectorType)
	}
}

// collector accumulates records for one page, dropping repeats of a link.
type collector struct {
	base    *url.URL
	seen    map[string]bool
	listing Listing
}

func newCollector(resp *types.Response) (*collector, error) {
	base, err := url.Parse(resp.BaseURL())
	if err != nil {
		return nil, err
	}
	return &collector{base: base, seen: make(map[string]bool)}, nil
}

func (c *collector) add(title, href string) {
	title = cleanTitle(title)
	link, ok := resolveLink(c.base, href)
	if title == "" || !ok {
		c.listing.Skipped++
		return
	}
	if c.seen[link] {
		return
	}
	c.seen[link] = true
	c.listing.Records = append(c.listing.Records, types.Record{Title: title, Link: link})
}

// cleanTitle collapses runs of whitespace.
func cleanTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink resolves href against base and keeps only http(s) URLs,
// without fragments.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	return canonicalLink(resolved), true
}

// canonicalLink normalizes u so the same article reached through
// cosmetically different hrefs yields one link: lowercase host, no
// fragment, no default port, no tracking parameters, sorted query and
// no trailing slash outside the root.
func canonicalLink(u *url.URL) string {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		for k := range params {
			if strings.HasPrefix(strings.ToLower(k), "utm_") {
				params.Del(k)
			}
		}
		u.RawQuery = params.Encode() // Encode sorts by key
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
