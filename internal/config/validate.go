package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.Fetcher != "http" && cfg.Scrape.Fetcher != "browser" {
		return fmt.Errorf("scrape.fetcher must be 'http' or 'browser', got %q", cfg.Scrape.Fetcher)
	}
	if cfg.Scrape.MaxPages < 1 {
		return fmt.Errorf("scrape.max_pages must be >= 1, got %d", cfg.Scrape.MaxPages)
	}
	if cfg.Scrape.Delay < 0 {
		return fmt.Errorf("scrape.delay must be >= 0")
	}
	for i, s := range cfg.Scrape.Sections {
		if err := validateSection(s); err != nil {
			return fmt.Errorf("scrape.sections[%d]: %w", i, err)
		}
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	for _, k := range cfg.Store.DedupKeys {
		switch k {
		case "title", "link", "label":
		default:
			return fmt.Errorf("store.dedup_keys: unknown field %q", k)
		}
	}

	seen := make(map[string]bool, len(cfg.Labeler.Categories))
	for _, c := range cfg.Labeler.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("labeler.categories: category name must not be empty")
		}
		if seen[c.Name] {
			return fmt.Errorf("labeler.categories: duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}

	if cfg.Balance.Strategy != "oversample" && cfg.Balance.Strategy != "augment" {
		return fmt.Errorf("balance.strategy must be 'oversample' or 'augment', got %q", cfg.Balance.Strategy)
	}
	if cfg.Balance.DeletionProb < 0 || cfg.Balance.DeletionProb > 1 {
		return fmt.Errorf("balance.deletion_prob must be in [0, 1], got %g", cfg.Balance.DeletionProb)
	}

	if cfg.Split.TestFraction <= 0 || cfg.Split.TestFraction >= 1 {
		return fmt.Errorf("split.test_fraction must be in (0, 1), got %g", cfg.Split.TestFraction)
	}

	if cfg.Classifier.Kind != "naive_bayes" && cfg.Classifier.Kind != "llm" {
		return fmt.Errorf("classifier.kind must be 'naive_bayes' or 'llm', got %q", cfg.Classifier.Kind)
	}
	if cfg.Classifier.Kind == "llm" {
		if cfg.Classifier.Provider != "openai" && cfg.Classifier.Provider != "ollama" {
			return fmt.Errorf("classifier.provider must be 'openai' or 'ollama', got %q", cfg.Classifier.Provider)
		}
		if cfg.Classifier.Provider == "openai" && cfg.Classifier.APIKey == "" {
			return fmt.Errorf("classifier.api_key is required for provider openai")
		}
	}
	if cfg.Classifier.FewShot < 0 {
		return fmt.Errorf("classifier.few_shot must be >= 0, got %d", cfg.Classifier.FewShot)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

func validateSection(s SectionConfig) error {
	if s.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if err := ValidateURL(s.URL); err != nil {
		return err
	}
	switch s.SelectorType {
	case "", "css", "xpath":
	default:
		return fmt.Errorf("selector_type must be 'css' or 'xpath', got %q", s.SelectorType)
	}
	switch s.Pagination {
	case "", "none", "feed":
	case "next_link":
		if s.NextSelector == "" {
			return fmt.Errorf("next_selector is required for next_link pagination")
		}
	case "load_more":
		if s.LoadMoreSelector == "" {
			return fmt.Errorf("load_more_selector is required for load_more pagination")
		}
	default:
		return fmt.Errorf("pagination %q is not supported (valid: none, next_link, load_more, feed)", s.Pagination)
	}
	if s.Pagination != "feed" && s.Selector == "" {
		return fmt.Errorf("selector must not be empty")
	}
	return nil
}

// ValidateURL checks if a URL string is valid for fetching.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
