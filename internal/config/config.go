package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"pricewatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Extractor   ExtractorConfig   `mapstructure:"extractor"`
	Scraper     ScraperConfig     `mapstructure:"scraper"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Export      ExportConfig      `mapstructure:"export"`
	Sources     []SourceConfig    `mapstructure:"sources"`
	Commodities []CommodityConfig `mapstructure:"commodities"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// BrowserConfig governs the headless rendering sessions.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox"`
	UserAgent         string        `mapstructure:"user_agent"`
	PoolSize          int           `mapstructure:"pool_size"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// ExtractorConfig covers the extraction model endpoint.
type ExtractorConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxPageChars int           `mapstructure:"max_page_chars"`
}

// ScraperConfig tunes the scrape fan-out pacing.
type ScraperConfig struct {
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
	InterSourceDelay time.Duration `mapstructure:"inter_source_delay"`
	InterItemDelay   time.Duration `mapstructure:"inter_item_delay"`
	MaxMatches       int           `mapstructure:"max_matches"`
	DefaultCategory  string        `mapstructure:"default_category"`
}

// SchedulerConfig governs the dashboard refresh cadence.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery parameters.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// SourceConfig overrides the built-in retailer catalog.
type SourceConfig struct {
	Name          string `mapstructure:"name"`
	URLTemplate   string `mapstructure:"url_template"`
	SpaceEncoding string `mapstructure:"space_encoding"`
}

// CommodityConfig is one entry of the fixed dashboard watch list.
type CommodityConfig struct {
	Name     string `mapstructure:"name"`
	Category string `mapstructure:"category"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pricewatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.pool_size", 1)
	v.SetDefault("browser.navigation_timeout", "45s")

	v.SetDefault("extractor.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("extractor.model", "gemini-2.5-flash")
	v.SetDefault("extractor.timeout", "30s")
	v.SetDefault("extractor.max_page_chars", 25000)

	v.SetDefault("scraper.settle_delay", "5s")
	v.SetDefault("scraper.inter_source_delay", "2s")
	v.SetDefault("scraper.inter_item_delay", "3s")
	v.SetDefault("scraper.max_matches", 5)
	v.SetDefault("scraper.default_category", "General")

	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 10000)

	v.SetDefault("commodities", []map[string]any{
		{"name": "Fresh Milk 500ml", "category": "Food"},
		{"name": "Sugar 1kg", "category": "Food"},
		{"name": "Maize Meal 2kg", "category": "Food"},
		{"name": "Wheat Flour 2kg", "category": "Food"},
	})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Browser.PoolSize <= 0 {
		return fmt.Errorf("browser.pool_size must be greater than zero")
	}
	if c.Scraper.SettleDelay <= 0 {
		return fmt.Errorf("scraper.settle_delay must be greater than zero")
	}
	if c.Scraper.MaxMatches <= 0 {
		return fmt.Errorf("scraper.max_matches must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for _, commodity := range c.Commodities {
		if strings.TrimSpace(commodity.Name) == "" {
			return fmt.Errorf("commodities entries must have a name")
		}
	}
	for _, src := range c.Sources {
		if !strings.Contains(src.URLTemplate, "{query}") {
			return fmt.Errorf("source %q: url_template must contain {query}", src.Name)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
