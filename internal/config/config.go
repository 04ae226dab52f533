package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsSort.
type Config struct {
	Scrape     ScrapeConfig     `mapstructure:"scrape"     yaml:"scrape"`
	Fetcher    FetcherConfig    `mapstructure:"fetcher"    yaml:"fetcher"`
	Store      StoreConfig      `mapstructure:"store"      yaml:"store"`
	Labeler    LabelerConfig    `mapstructure:"labeler"    yaml:"labeler"`
	Balance    BalanceConfig    `mapstructure:"balance"    yaml:"balance"`
	Split      SplitConfig      `mapstructure:"split"      yaml:"split"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Server     ServerConfig     `mapstructure:"server"     yaml:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    yaml:"metrics"`
}

// ScrapeConfig controls the news section scraper.
type ScrapeConfig struct {
	Fetcher          string          `mapstructure:"fetcher"            yaml:"fetcher"` // http, browser
	MaxPages         int             `mapstructure:"max_pages"          yaml:"max_pages"`
	Delay            time.Duration   `mapstructure:"delay"              yaml:"delay"`
	RespectRobotsTxt bool            `mapstructure:"respect_robots_txt" yaml:"respect_robots_txt"`
	Stealth          bool            `mapstructure:"stealth"            yaml:"stealth"`
	UserAgents       []string        `mapstructure:"user_agents"        yaml:"user_agents"`
	Sections         []SectionConfig `mapstructure:"sections"           yaml:"sections"`
}

// SectionConfig describes one listing page to scrape.
type SectionConfig struct {
	Name             string `mapstructure:"name"               yaml:"name"`
	URL              string `mapstructure:"url"                yaml:"url"`
	Label            string `mapstructure:"label"              yaml:"label"`
	Selector         string `mapstructure:"selector"           yaml:"selector"`
	SelectorType     string `mapstructure:"selector_type"      yaml:"selector_type"` // css, xpath
	TitleAttr        string `mapstructure:"title_attr"         yaml:"title_attr"`
	Pagination       string `mapstructure:"pagination"         yaml:"pagination"` // none, next_link, load_more, feed
	NextSelector     string `mapstructure:"next_selector"      yaml:"next_selector"`
	LoadMoreSelector string `mapstructure:"load_more_selector" yaml:"load_more_selector"`
	MaxPages         int    `mapstructure:"max_pages"          yaml:"max_pages"`
}

// FetcherConfig controls the page fetchers.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// StoreConfig controls the record store.
type StoreConfig struct {
	Path       string   `mapstructure:"path"       yaml:"path"`
	DedupKeys  []string `mapstructure:"dedup_keys" yaml:"dedup_keys"`
	Database   string   `mapstructure:"database"   yaml:"database"`
	Collection string   `mapstructure:"collection" yaml:"collection"`
	Mirrors    []string `mapstructure:"mirrors"    yaml:"mirrors"`
}

// CategoryConfig is one entry of the ordered category table.
type CategoryConfig struct {
	Name     string   `mapstructure:"name"     yaml:"name"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// LabelerConfig controls keyword labeling.
type LabelerConfig struct {
	Categories     []CategoryConfig `mapstructure:"categories"      yaml:"categories"`
	CategoriesFile string           `mapstructure:"categories_file" yaml:"categories_file"`
	Overwrite      bool             `mapstructure:"overwrite"       yaml:"overwrite"`
}

// ThesaurusConfig controls the synonym source used by augmentation.
type ThesaurusConfig struct {
	Path     string        `mapstructure:"path"      yaml:"path"`
	LLM      bool          `mapstructure:"llm"       yaml:"llm"`
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// BalanceConfig controls class balancing.
type BalanceConfig struct {
	Strategy     string          `mapstructure:"strategy"      yaml:"strategy"` // oversample, augment
	Seed         int64           `mapstructure:"seed"          yaml:"seed"`
	DeletionProb float64         `mapstructure:"deletion_prob" yaml:"deletion_prob"`
	Shuffle      bool            `mapstructure:"shuffle"       yaml:"shuffle"`
	Thesaurus    ThesaurusConfig `mapstructure:"thesaurus"     yaml:"thesaurus"`
}

// SplitConfig controls the stratified train/test split.
type SplitConfig struct {
	TestFraction   float64 `mapstructure:"test_fraction"   yaml:"test_fraction"`
	Seed           int64   `mapstructure:"seed"            yaml:"seed"`
	OutputDir      string  `mapstructure:"output_dir"      yaml:"output_dir"`
	EncodeLabels   bool    `mapstructure:"encode_labels"   yaml:"encode_labels"`
	DisjointTitles bool    `mapstructure:"disjoint_titles" yaml:"disjoint_titles"`
}

// ClassifierConfig controls model training and serving.
type ClassifierConfig struct {
	Kind     string        `mapstructure:"kind"      yaml:"kind"` // naive_bayes, llm
	ModelDir string        `mapstructure:"model_dir" yaml:"model_dir"`
	Provider string        `mapstructure:"provider"  yaml:"provider"` // openai, ollama
	Model    string        `mapstructure:"model"     yaml:"model"`
	Endpoint string        `mapstructure:"endpoint"  yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key"   yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"   yaml:"timeout"`
	FewShot  int           `mapstructure:"few_shot"  yaml:"few_shot"`
}

// ServerConfig controls the prediction form server.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			Fetcher:          "http",
			MaxPages:         11,
			Delay:            3 * time.Second,
			RespectRobotsTxt: true,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			Sections: DefaultSections(),
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  30 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Store: StoreConfig{
			Path:       "./data/labeled_news.csv",
			DedupKeys:  []string{"title", "link"},
			Database:   "newssort",
			Collection: "records",
		},
		Labeler: LabelerConfig{
			Categories: DefaultCategories(),
		},
		Balance: BalanceConfig{
			Strategy:     "augment",
			Seed:         42,
			DeletionProb: 0.2,
			Shuffle:      true,
			Thesaurus: ThesaurusConfig{
				CacheTTL: 24 * time.Hour,
			},
		},
		Split: SplitConfig{
			TestFraction: 0.2,
			Seed:         42,
			OutputDir:    "./data/split",
			EncodeLabels: true,
		},
		Classifier: ClassifierConfig{
			Kind:     "naive_bayes",
			ModelDir: "./model",
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  30 * time.Second,
			FewShot:  3,
		},
		Server: ServerConfig{
			Port: 8501,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// DefaultSections returns the listing pages the scraper visits by default.
func DefaultSections() []SectionConfig {
	return []SectionConfig{
		{
			Name:         "latest",
			URL:          "https://www.thestar.com.my/news/latest",
			Selector:     `a[data-list-type="Paged Stories"]`,
			Pagination:   "next_link",
			NextSelector: `a[data-content-title="Page %d"]`,
		},
		{
			Name:             "technology",
			URL:              "https://www.thestar.com.my/tag/technology",
			Label:            "Technology",
			Selector:         `a[data-list-type="Paged Stories"]`,
			Pagination:       "load_more",
			LoadMoreSelector: "#loadMorestories",
		},
		{
			Name:             "sport",
			URL:              "https://www.thestar.com.my/sport/football",
			Label:            "Sports",
			Selector:         `a[data-list-type="Paged Stories"]`,
			TitleAttr:        "data-content-title",
			Pagination:       "load_more",
			LoadMoreSelector: "#loadMorestories",
		},
		{
			Name:       "people-and-living",
			URL:        "https://www.thestar.com.my/lifestyle/people-and-living",
			Label:      "People and Living",
			Selector:   `a[data-list-type="Featured Stories"]`,
			TitleAttr:  "data-content-title",
			Pagination: "none",
		},
	}
}

// DefaultCategories returns the built-in ordered category table.
// Earlier entries win when a title matches several categories.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "Politics", Keywords: []string{
			"election", "government", "minister", "policy", "parliament",
			"senate", "president", "cabinet", "campaign", "bill", "legislation",
		}},
		{Name: "Sports", Keywords: []string{
			"football", "soccer", "Olympics", "match", "team", "tournament",
			"league", "cricket", "badminton", "athletics", "game", "championship",
		}},
		{Name: "Technology", Keywords: []string{
			"tech", "AI", "gadget", "software", "innovation", "robot",
			"blockchain", "cybersecurity", "internet", "mobile", "startup",
			"data", "cloud", "digital", "machine learning", "coding", "algorithm",
		}},
		{Name: "Health", Keywords: []string{
			"covid", "vaccine", "hospital", "health", "disease", "pandemic",
			"virus", "medicine", "surgery", "therapy", "treatment", "mental health",
			"diet", "fitness", "doctor", "nurse",
		}},
		{Name: "Business", Keywords: []string{
			"economy", "market", "business", "stock", "finance", "investment",
			"revenue", "startup", "trade", "profit", "loss", "industry", "tax",
			"inflation", "bank", "loan", "real estate",
		}},
		{Name: "Entertainment", Keywords: []string{
			"movie", "film", "celebrity", "music", "concert", "festival",
			"actor", "actress", "award", "song", "album", "show", "performance",
			"series", "drama", "comedy",
		}},
		{Name: "Education", Keywords: []string{
			"school", "university", "exam", "student", "teacher", "education",
			"curriculum", "college", "scholarship", "learning", "study", "degree",
			"class", "course", "tuition",
		}},
		{Name: "Environment", Keywords: []string{
			"climate", "pollution", "wildlife", "forest", "nature", "renewable",
			"recycling", "conservation", "biodiversity", "green", "energy",
			"global warming", "sustainability", "carbon", "fossil fuels",
		}},
		{Name: "Crime", Keywords: []string{
			"crime", "murder", "arrest", "police", "court", "theft", "fraud",
			"prison", "trial", "robbery", "assault", "drug", "gang", "shooting",
		}},
		{Name: "World", Keywords: []string{
			"war", "international", "diplomacy", "foreign", "global", "country",
			"conflict", "UN", "NATO", "peace", "summit", "relations", "treaty",
		}},
		{Name: "Science", Keywords: []string{
			"research", "space", "experiment", "discovery", "biology", "physics",
			"chemistry", "genetics", "astronomy", "nasa", "scientist", "technology",
			"innovation", "breakthrough",
		}},
		{Name: "Lifestyle", Keywords: []string{
			"fashion", "travel", "food", "recipe", "luxury", "hobby", "home",
			"design", "décor", "style", "trend", "lifestyle", "culture", "art",
		}},
	}
}
