// Package config loads and validates the application configuration from
// config.yaml and TD_* environment variables, with sane defaults for
// everything that is optional.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Bot        BotConfig        `mapstructure:"bot"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Web        WebConfig        `mapstructure:"web"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig configures the MTProto client and the ingestion pipeline.
type TelegramConfig struct {
	APIID       int    `mapstructure:"api_id"       validate:"required,gt=0"`
	APIHash     string `mapstructure:"api_hash"     validate:"required"`
	Phone       string `mapstructure:"phone"`
	SessionFile string `mapstructure:"session_file" validate:"required"`

	// Timezone is the IANA name messages are localized to before storage.
	// Empty means the system local timezone.
	Timezone string `mapstructure:"timezone"`

	IgnoredSenders []string `mapstructure:"ignored_senders"`

	BackfillChats []int64       `mapstructure:"backfill_chats"`
	BackfillLimit int           `mapstructure:"backfill_limit" validate:"min=0,max=10000"`
	BackfillDelay time.Duration `mapstructure:"backfill_delay" validate:"min=0"`

	UpdateBuffer int `mapstructure:"update_buffer" validate:"min=1,max=10000"`
}

// BotConfig configures the Bot API command surface used to trigger and
// deliver summaries.
type BotConfig struct {
	Token   string `mapstructure:"token"`
	AdminID int64  `mapstructure:"admin_id"`

	// ChunkSize caps outgoing message length, with margin under the
	// Telegram limit of 4096.
	ChunkSize    int `mapstructure:"chunk_size"    validate:"min=1,max=4096"`
	DefaultLimit int `mapstructure:"default_limit" validate:"min=1,max=200"`
	MaxLimit     int `mapstructure:"max_limit"     validate:"min=1,max=200"`
}

// SummarizerConfig selects and configures the summarization backend.
type SummarizerConfig struct {
	Provider string         `mapstructure:"provider" validate:"oneof=gigachat gemini"`
	GigaChat GigaChatConfig `mapstructure:"gigachat"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
}

// GigaChatConfig configures the GigaChat REST backend.
type GigaChatConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	OAuthURL     string        `mapstructure:"oauth_url" validate:"url"`
	APIURL       string        `mapstructure:"api_url"   validate:"url"`
	Scope        string        `mapstructure:"scope"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`

	// InsecureSkipVerify disables TLS verification. The GigaChat endpoints
	// use a certificate chain that is not in common root stores.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxRetries  int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// SchedulerConfig holds the cron task table.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
	Limit    int    `mapstructure:"limit"`
}

// WebConfig configures the read-only dashboard.
type WebConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load reads configuration from the given file (or ./config.yaml when path is
// empty), applies TD_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints and the cross-field rules that
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch c.Summarizer.Provider {
	case "gigachat":
		if c.Summarizer.GigaChat.ClientID == "" || c.Summarizer.GigaChat.ClientSecret == "" {
			return fmt.Errorf("config validation failed: summarizer.gigachat.client_id and client_secret are required for the gigachat provider")
		}
	case "gemini":
		if c.Summarizer.Gemini.APIKey == "" {
			return fmt.Errorf("config validation failed: summarizer.gemini.api_key is required for the gemini provider")
		}
	}

	if c.Bot.DefaultLimit > c.Bot.MaxLimit {
		return fmt.Errorf("config validation failed: bot.default_limit (%d) exceeds bot.max_limit (%d)", c.Bot.DefaultLimit, c.Bot.MaxLimit)
	}

	if c.Web.Enabled && c.Web.ListenAddr == "" {
		return fmt.Errorf("config validation failed: web.listen_addr is required when the dashboard is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.path", "telegram_messages.db")

	v.SetDefault("telegram.session_file", "session.json")
	v.SetDefault("telegram.backfill_limit", 100)
	v.SetDefault("telegram.backfill_delay", 100*time.Millisecond)
	v.SetDefault("telegram.update_buffer", 256)

	v.SetDefault("bot.chunk_size", 3500)
	v.SetDefault("bot.default_limit", 50)
	v.SetDefault("bot.max_limit", 200)

	v.SetDefault("summarizer.provider", "gigachat")
	v.SetDefault("summarizer.gigachat.oauth_url", "https://ngw.devices.sberbank.ru:9443/api/v2/oauth")
	v.SetDefault("summarizer.gigachat.api_url", "https://gigachat.devices.sberbank.ru/api/v1/chat/completions")
	v.SetDefault("summarizer.gigachat.scope", "GIGACHAT_API_PERS")
	v.SetDefault("summarizer.gigachat.model", "GigaChat")
	v.SetDefault("summarizer.gigachat.timeout", 30*time.Second)
	v.SetDefault("summarizer.gemini.model", "gemini-2.0-flash")
	v.SetDefault("summarizer.gemini.temperature", 1.0)
	v.SetDefault("summarizer.gemini.max_retries", 2)
	v.SetDefault("summarizer.gemini.retry_delay", 5*time.Second)

	v.SetDefault("web.enabled", false)
	v.SetDefault("web.listen_addr", ":8080")
}
