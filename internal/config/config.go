package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"DeclineWatch/internal/calculator"
	"DeclineWatch/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Analysis struct {
		Market         string    `yaml:"market"`
		PeriodDays     int       `yaml:"period_days"`
		SampleSize     int       `yaml:"sample_size"`
		Workers        int       `yaml:"workers"`
		TopN           int       `yaml:"top_n"`
		TimeoutMinutes int       `yaml:"timeout_minutes"`
		BucketEdges    []float64 `yaml:"bucket_edges"`
		BucketLabels   []string  `yaml:"bucket_labels"`
	} `yaml:"analysis"`
	DataSource struct {
		BaseURL           string `yaml:"base_url"`
		APIKey            string `yaml:"api_key"`
		ListingFile       string `yaml:"listing_file"`
		TimeoutSeconds    int    `yaml:"timeout_seconds"`
		MaxRetries        int    `yaml:"max_retries"`
		RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
		TTLMinutes    int    `yaml:"ttl_minutes"`
	} `yaml:"cache"`
	Output struct {
		Dir       string `yaml:"dir"`
		HTMLFile  string `yaml:"html_file"`
		ExcelFile string `yaml:"excel_file"`
		ChartFile string `yaml:"chart_file"`
	} `yaml:"output"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Language string `yaml:"language"`
	} `yaml:"telegram"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
		RunOnStart   bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	State struct {
		SnapshotFile string `yaml:"snapshot_file"`
	} `yaml:"state"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("ANALYSIS_MARKET"); v != "" {
		cfg.Analysis.Market = v
	}
	if n, ok := envInt("ANALYSIS_PERIOD_DAYS"); ok {
		cfg.Analysis.PeriodDays = n
	}
	if n, ok := envInt("ANALYSIS_SAMPLE_SIZE"); ok {
		cfg.Analysis.SampleSize = n
	}
	if v := os.Getenv("CRON_ANALYSIS"); v != "" {
		cfg.Schedule.AnalysisCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func applyDefaults(cfg *Config) {
	if cfg.Analysis.Market == "" {
		cfg.Analysis.Market = string(model.SelectBoth)
	}
	cfg.Analysis.Market = strings.ToLower(cfg.Analysis.Market)
	if cfg.Analysis.PeriodDays == 0 {
		cfg.Analysis.PeriodDays = 30
	}
	if cfg.Analysis.SampleSize == 0 {
		cfg.Analysis.SampleSize = 100
	}
	if cfg.Analysis.Workers == 0 {
		cfg.Analysis.Workers = 8
	}
	if cfg.Analysis.TopN == 0 {
		cfg.Analysis.TopN = 20
	}
	if cfg.Analysis.TimeoutMinutes == 0 {
		cfg.Analysis.TimeoutMinutes = 30
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 30
	}
	if cfg.DataSource.MaxRetries == 0 {
		cfg.DataSource.MaxRetries = 3
	}
	if cfg.DataSource.RetryDelaySeconds == 0 {
		cfg.DataSource.RetryDelaySeconds = 1
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 360
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "reports"
	}
	if cfg.Output.HTMLFile == "" {
		cfg.Output.HTMLFile = "korean_stock_decline_report.html"
	}
	if cfg.Output.ExcelFile == "" {
		cfg.Output.ExcelFile = "korean_stock_decline_analysis.xlsx"
	}
	if cfg.Output.ChartFile == "" {
		cfg.Output.ChartFile = "korean_stock_decline_visualization.html"
	}
	if cfg.Telegram.Language == "" {
		cfg.Telegram.Language = "ko"
	}
	if cfg.Schedule.AnalysisCron == "" {
		cfg.Schedule.AnalysisCron = "0 0 16 * * 1-5"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/decline_watch.db"
	}
	if cfg.State.SnapshotFile == "" {
		cfg.State.SnapshotFile = "data/latest_result.json"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

// Validate checks that all fields hold usable values. Telegram is optional:
// without a token the notifier is disabled.
func (c *Config) Validate() error {
	switch model.MarketSelection(c.Analysis.Market) {
	case model.SelectKOSPI, model.SelectKOSDAQ, model.SelectBoth:
	default:
		return fmt.Errorf("analysis.market must be kospi, kosdaq or both, got %q", c.Analysis.Market)
	}
	if c.Analysis.PeriodDays < 2 {
		return fmt.Errorf("analysis.period_days must be at least 2")
	}
	if c.Analysis.SampleSize <= 0 {
		return fmt.Errorf("analysis.sample_size must be positive")
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	if c.Analysis.TopN <= 0 {
		return fmt.Errorf("analysis.top_n must be positive")
	}
	if c.DataSource.MaxRetries < 0 {
		return fmt.Errorf("data_source.max_retries must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	if c.Telegram.Language != "ko" && c.Telegram.Language != "en" {
		return fmt.Errorf("telegram.language must be ko or en")
	}
	if _, err := c.Buckets(); err != nil {
		return fmt.Errorf("analysis buckets: %w", err)
	}
	return nil
}

// Buckets returns the configured drawdown buckets, or the default table when
// neither edges nor labels are set.
func (c *Config) Buckets() (calculator.Buckets, error) {
	if len(c.Analysis.BucketEdges) == 0 && len(c.Analysis.BucketLabels) == 0 {
		return calculator.DefaultBuckets, nil
	}
	return calculator.NewBuckets(c.Analysis.BucketEdges, c.Analysis.BucketLabels)
}

// Selection returns the configured market selection.
func (c *Config) Selection() model.MarketSelection {
	return model.MarketSelection(c.Analysis.Market)
}

// FetchTimeout is the per-request HTTP timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// RetryDelay is the base backoff between fetch attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.DataSource.RetryDelaySeconds) * time.Second
}

// RunTimeout bounds one whole analysis run.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutMinutes) * time.Minute
}

// CacheTTL is how long fetched bars stay in Redis.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
