package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"campaign-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Source      SourceConfig      `mapstructure:"source"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Redis       RedisConfig       `mapstructure:"redis"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Export      ExportConfig      `mapstructure:"export"`
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

// SchedulerConfig governs evaluation cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// SourceConfig bounds reads from the metric store.
type SourceConfig struct {
	MaxRows      int        `mapstructure:"max_rows"`
	LookbackDays int        `mapstructure:"lookback_days"`
	REST         RESTConfig `mapstructure:"rest"`
}

// RESTConfig points at a reporting API used when no database is configured.
type RESTConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// AggregationConfig tunes rollups.
type AggregationConfig struct {
	ClientAliases map[string]string `mapstructure:"client_aliases"`
	TopCampaigns  int               `mapstructure:"top_campaigns"`
}

// AlertingConfig defines default thresholds and routing.
type AlertingConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	ROASMin   float64        `mapstructure:"roas_min"`
	CPAMax    float64        `mapstructure:"cpa_max"`
	CTRMin    float64        `mapstructure:"ctr_min"`
	AvgCPC    float64        `mapstructure:"avg_cpc"`
	Cooldown  time.Duration  `mapstructure:"cooldown"`
	Retention time.Duration  `mapstructure:"retention"`
	Channels  []string       `mapstructure:"channels"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Webhook   WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WebhookConfig 描述按酒店推送的 webhook 参数。
type WebhookConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig points at the cooldown and resolved-alert cache.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig toggles the Prometheus registry.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CAMPAIGNWATCH")
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
	v.SetDefault("app.name", "campaignwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63616d70))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_on_start", false)

	v.SetDefault("source.max_rows", 10000)
	v.SetDefault("source.lookback_days", 7)
	v.SetDefault("source.rest.timeout", "15s")
	v.SetDefault("source.rest.user_agent", "campaignwatch/1.0")

	v.SetDefault("aggregation.top_campaigns", 10)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.roas_min", 2.0)
	v.SetDefault("alerting.cpa_max", 500.0)
	v.SetDefault("alerting.ctr_min", 1.0)
	v.SetDefault("alerting.avg_cpc", 2.50)
	v.SetDefault("alerting.cooldown", "6h")
	v.SetDefault("alerting.retention", "720h")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")
	v.SetDefault("alerting.webhook.enabled", false)
	v.SetDefault("alerting.webhook.timeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "campaignwatch")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "60s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "campaignwatch")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
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
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Source.MaxRows <= 0 {
		return fmt.Errorf("source.max_rows must be greater than zero")
	}
	if c.Source.LookbackDays <= 0 {
		return fmt.Errorf("source.lookback_days must be greater than zero")
	}
	if c.Alerting.ROASMin < 0 || c.Alerting.CPAMax < 0 || c.Alerting.CTRMin < 0 {
		return fmt.Errorf("alerting thresholds cannot be negative")
	}
	if c.Alerting.AvgCPC < 0 {
		return fmt.Errorf("alerting.avg_cpc cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	if c.Alerting.Webhook.Enabled && c.Alerting.Webhook.URL == "" {
		return fmt.Errorf("alerting.webhook.url 必须配置")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// ChannelEnabled reports whether the named channel is routed.
func (c *Config) ChannelEnabled(name string) bool {
	for _, ch := range c.Alerting.Channels {
		if strings.EqualFold(strings.TrimSpace(ch), name) {
			return true
		}
	}
	return false
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
