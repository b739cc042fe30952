package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen    string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
		ScanToken string        `yaml:"scan_token" json:"scan_token" jsonschema:"description=Bearer token required by scan trigger endpoints"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:trendwatch.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Schedule struct {
		ScanInterval       time.Duration `yaml:"scan_interval" json:"scan_interval" jsonschema:"default=15m,description=Interval between source scans"`
		MarketSyncInterval time.Duration `yaml:"market_sync_interval" json:"market_sync_interval" jsonschema:"default=30m,description=Interval between market mirror syncs"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval" json:"cleanup_interval" jsonschema:"default=24h,description=Interval between cleanup runs"`
		ItemDelay          time.Duration `yaml:"item_delay" json:"item_delay" jsonschema:"default=200ms,description=Delay between items within a scan"`
		MaxWorkers         int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=3,description=Maximum concurrent fetches"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for trend analysis"`

	Sources SourcesConfig `yaml:"sources" json:"sources" jsonschema:"description=Content source configuration"`

	Thresholds ThresholdsConfig `yaml:"thresholds" json:"thresholds" jsonschema:"description=Per-source engagement thresholds"`

	Notify struct {
		SlackWebhookURL string `yaml:"slack_webhook_url" json:"slack_webhook_url" jsonschema:"description=Slack incoming webhook for alerts (optional)"`
	} `yaml:"notify" json:"notify" jsonschema:"description=Notification configuration"`

	Cleanup struct {
		MaxTrendAge time.Duration `yaml:"max_trend_age" json:"max_trend_age" jsonschema:"default=720h,description=Age after which analyzed/dismissed trends are purged"`
	} `yaml:"cleanup" json:"cleanup" jsonschema:"description=Cleanup job configuration"`
}

// LLMConfig holds LLM configuration for trend analysis
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable LLM analysis of inserted trends"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=800,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt override (optional)"`
}

// ForumSourceConfig holds the forum (Reddit-style) source settings
type ForumSourceConfig struct {
	BaseURL      string   `yaml:"base_url" json:"base_url" jsonschema:"default=https://www.reddit.com,description=Forum API base URL"`
	Subreddits   []string `yaml:"subreddits" json:"subreddits" jsonschema:"description=Subreddits to scan"`
	PostsPerScan int      `yaml:"posts_per_scan" json:"posts_per_scan" jsonschema:"default=5,description=Posts fetched per subreddit per scan"`
	MaxBoards    int      `yaml:"max_boards" json:"max_boards" jsonschema:"default=5,description=Subreddits scanned per run"`
}

// MicroblogSourceConfig holds the microblog scraper settings
type MicroblogSourceConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url" jsonschema:"default=https://api.apify.com,description=Scraper API base URL"`
	APIToken  string        `yaml:"api_token" json:"api_token" jsonschema:"description=Scraper API token (can use environment variable)"`
	ActorID   string        `yaml:"actor_id" json:"actor_id" jsonschema:"default=apidojo~twitter-scraper-lite,description=Scraper actor identifier"`
	Accounts  []string      `yaml:"accounts" json:"accounts" jsonschema:"description=Accounts to monitor"`
	PerScan   int           `yaml:"per_scan" json:"per_scan" jsonschema:"default=5,description=Posts fetched per account per scan"`
	MaxPolls  int           `yaml:"max_polls" json:"max_polls" jsonschema:"default=60,description=Maximum status polls per scraper run"`
	PollDelay time.Duration `yaml:"poll_delay" json:"poll_delay" jsonschema:"default=1s,description=Delay between scraper status polls"`
}

// WebSourceConfig holds the web-search source settings
type WebSourceConfig struct {
	BaseURL    string   `yaml:"base_url" json:"base_url" jsonschema:"default=https://api.exa.ai,description=Search API base URL"`
	APIKey     string   `yaml:"api_key" json:"api_key" jsonschema:"description=Search API key (can use environment variable)"`
	Queries    []string `yaml:"queries" json:"queries" jsonschema:"description=Topic queries issued each scan"`
	MaxQueries int      `yaml:"max_queries" json:"max_queries" jsonschema:"default=3,description=Topic queries issued per run"`
	MaxItems   int      `yaml:"max_items" json:"max_items" jsonschema:"default=10,description=Items processed per run"`
}

// MarketsSourceConfig holds the prediction-market API settings
type MarketsSourceConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url" jsonschema:"default=https://gamma-api.polymarket.com,description=Prediction-market API base URL"`
	SyncLimit int    `yaml:"sync_limit" json:"sync_limit" jsonschema:"default=100,description=Markets fetched per sync"`
	KeepTop   int    `yaml:"keep_top" json:"keep_top" jsonschema:"default=50,description=Top markets by volume retained per sync"`
}

// SourcesConfig groups all content source settings
type SourcesConfig struct {
	Forum     ForumSourceConfig     `yaml:"forum" json:"forum"`
	Microblog MicroblogSourceConfig `yaml:"microblog" json:"microblog"`
	Web       WebSourceConfig       `yaml:"web" json:"web"`
	Markets   MarketsSourceConfig   `yaml:"markets" json:"markets"`
}

// ThresholdsConfig holds per-source engagement minimums
type ThresholdsConfig struct {
	Forum struct {
		MinUpvotes  int     `yaml:"min_upvotes" json:"min_upvotes" jsonschema:"default=50"`
		MinComments int     `yaml:"min_comments" json:"min_comments" jsonschema:"default=5"`
		MinRatio    float64 `yaml:"min_ratio" json:"min_ratio" jsonschema:"default=0.6"`
	} `yaml:"forum" json:"forum"`
	Microblog struct {
		MinLikes    int `yaml:"min_likes" json:"min_likes" jsonschema:"default=500"`
		MinRetweets int `yaml:"min_retweets" json:"min_retweets" jsonschema:"default=50"`
	} `yaml:"microblog" json:"microblog"`
	Web struct {
		MinScore float64 `yaml:"min_score" json:"min_score" jsonschema:"default=0.5"`
	} `yaml:"web" json:"web"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// setDefaults fills zero values with the compiled-in defaults
func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}

	if c.Database.DSN == "" {
		c.Database.DSN = "file:trendwatch.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	if c.Schedule.ScanInterval == 0 {
		c.Schedule.ScanInterval = 15 * time.Minute
	}
	if c.Schedule.MarketSyncInterval == 0 {
		c.Schedule.MarketSyncInterval = 30 * time.Minute
	}
	if c.Schedule.CleanupInterval == 0 {
		c.Schedule.CleanupInterval = 24 * time.Hour
	}
	if c.Schedule.ItemDelay == 0 {
		c.Schedule.ItemDelay = 200 * time.Millisecond
	}
	if c.Schedule.MaxWorkers == 0 {
		c.Schedule.MaxWorkers = 3
	}

	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 800
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}

	if c.Sources.Forum.BaseURL == "" {
		c.Sources.Forum.BaseURL = "https://www.reddit.com"
	}
	if len(c.Sources.Forum.Subreddits) == 0 {
		c.Sources.Forum.Subreddits = []string{
			"wallstreetbets", "politics", "worldnews", "technology", "cryptocurrency",
			"sports", "nba", "nfl", "stocks", "investing", "futurology",
		}
	}
	if c.Sources.Forum.PostsPerScan == 0 {
		c.Sources.Forum.PostsPerScan = 5
	}
	if c.Sources.Forum.MaxBoards == 0 {
		c.Sources.Forum.MaxBoards = 5
	}

	if c.Sources.Microblog.BaseURL == "" {
		c.Sources.Microblog.BaseURL = "https://api.apify.com"
	}
	if c.Sources.Microblog.ActorID == "" {
		c.Sources.Microblog.ActorID = "apidojo~twitter-scraper-lite"
	}
	if len(c.Sources.Microblog.Accounts) == 0 {
		c.Sources.Microblog.Accounts = []string{"breakingnews", "CNNBreaking", "Reuters", "AP", "BBCBreaking"}
	}
	if c.Sources.Microblog.PerScan == 0 {
		c.Sources.Microblog.PerScan = 5
	}
	if c.Sources.Microblog.MaxPolls == 0 {
		c.Sources.Microblog.MaxPolls = 60
	}
	if c.Sources.Microblog.PollDelay == 0 {
		c.Sources.Microblog.PollDelay = time.Second
	}

	if c.Sources.Web.BaseURL == "" {
		c.Sources.Web.BaseURL = "https://api.exa.ai"
	}
	if len(c.Sources.Web.Queries) == 0 {
		c.Sources.Web.Queries = []string{
			"breaking news events",
			"upcoming political elections",
			"major tech product launches",
			"sports championships predictions",
			"cryptocurrency developments",
			"economic indicators forecast",
			"climate policy changes",
			"entertainment awards predictions",
		}
	}
	if c.Sources.Web.MaxQueries == 0 {
		c.Sources.Web.MaxQueries = 3
	}
	if c.Sources.Web.MaxItems == 0 {
		c.Sources.Web.MaxItems = 10
	}

	if c.Sources.Markets.BaseURL == "" {
		c.Sources.Markets.BaseURL = "https://gamma-api.polymarket.com"
	}
	if c.Sources.Markets.SyncLimit == 0 {
		c.Sources.Markets.SyncLimit = 100
	}
	if c.Sources.Markets.KeepTop == 0 {
		c.Sources.Markets.KeepTop = 50
	}

	if c.Thresholds.Forum.MinUpvotes == 0 {
		c.Thresholds.Forum.MinUpvotes = 50
	}
	if c.Thresholds.Forum.MinComments == 0 {
		c.Thresholds.Forum.MinComments = 5
	}
	if c.Thresholds.Forum.MinRatio == 0 {
		c.Thresholds.Forum.MinRatio = 0.6
	}
	if c.Thresholds.Microblog.MinLikes == 0 {
		c.Thresholds.Microblog.MinLikes = 500
	}
	if c.Thresholds.Microblog.MinRetweets == 0 {
		c.Thresholds.Microblog.MinRetweets = 50
	}
	if c.Thresholds.Web.MinScore == 0 {
		c.Thresholds.Web.MinScore = 0.5
	}

	if c.Cleanup.MaxTrendAge == 0 {
		c.Cleanup.MaxTrendAge = 30 * 24 * time.Hour
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.Enabled {
		if cfg.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required when llm is enabled")
		}
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm is enabled")
		}
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
			return fmt.Errorf("llm.temperature must be between 0 and 2")
		}
	}

	if cfg.Thresholds.Forum.MinRatio < 0 || cfg.Thresholds.Forum.MinRatio > 1 {
		return fmt.Errorf("thresholds.forum.min_ratio must be between 0 and 1")
	}
	if cfg.Thresholds.Web.MinScore < 0 || cfg.Thresholds.Web.MinScore > 1 {
		return fmt.Errorf("thresholds.web.min_score must be between 0 and 1")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Schedule.ItemDelay < 0 {
		return fmt.Errorf("schedule.item_delay must be non-negative")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetScanToken returns the bearer token guarding manual scan endpoints
func (c *Config) GetScanToken() string {
	return c.Server.ScanToken
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// GetSourcesConfig returns content source configuration
func (c *Config) GetSourcesConfig() SourcesConfig {
	return c.Sources
}
