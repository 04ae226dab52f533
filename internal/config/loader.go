package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	// NEWSSORT_BALANCE_STRATEGY=oversample overrides balance.strategy
	v.SetEnvPrefix("NEWSSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newssort")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newssort"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The OpenAI SDK convention is honored when no explicit key is configured.
	if cfg.Classifier.APIKey == "" {
		cfg.Classifier.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.fetcher", cfg.Scrape.Fetcher)
	v.SetDefault("scrape.max_pages", cfg.Scrape.MaxPages)
	v.SetDefault("scrape.delay", cfg.Scrape.Delay)
	v.SetDefault("scrape.respect_robots_txt", cfg.Scrape.RespectRobotsTxt)
	v.SetDefault("scrape.stealth", cfg.Scrape.Stealth)
	v.SetDefault("scrape.user_agents", cfg.Scrape.UserAgents)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("store.dedup_keys", cfg.Store.DedupKeys)
	v.SetDefault("store.database", cfg.Store.Database)
	v.SetDefault("store.collection", cfg.Store.Collection)
	v.SetDefault("store.mirrors", cfg.Store.Mirrors)

	v.SetDefault("labeler.overwrite", cfg.Labeler.Overwrite)

	v.SetDefault("balance.strategy", cfg.Balance.Strategy)
	v.SetDefault("balance.seed", cfg.Balance.Seed)
	v.SetDefault("balance.deletion_prob", cfg.Balance.DeletionProb)
	v.SetDefault("balance.shuffle", cfg.Balance.Shuffle)
	v.SetDefault("balance.thesaurus.path", cfg.Balance.Thesaurus.Path)
	v.SetDefault("balance.thesaurus.llm", cfg.Balance.Thesaurus.LLM)
	v.SetDefault("balance.thesaurus.cache_ttl", cfg.Balance.Thesaurus.CacheTTL)

	v.SetDefault("split.test_fraction", cfg.Split.TestFraction)
	v.SetDefault("split.seed", cfg.Split.Seed)
	v.SetDefault("split.output_dir", cfg.Split.OutputDir)
	v.SetDefault("split.encode_labels", cfg.Split.EncodeLabels)
	v.SetDefault("split.disjoint_titles", cfg.Split.DisjointTitles)

	v.SetDefault("classifier.kind", cfg.Classifier.Kind)
	v.SetDefault("classifier.model_dir", cfg.Classifier.ModelDir)
	v.SetDefault("classifier.provider", cfg.Classifier.Provider)
	v.SetDefault("classifier.model", cfg.Classifier.Model)
	v.SetDefault("classifier.endpoint", cfg.Classifier.Endpoint)
	v.SetDefault("classifier.api_key", cfg.Classifier.APIKey)
	v.SetDefault("classifier.timeout", cfg.Classifier.Timeout)
	v.SetDefault("classifier.few_shot", cfg.Classifier.FewShot)

	v.SetDefault("server.port", cfg.Server.Port)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
