package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "CRAWLPIPE_CONFIG"
	databasePathEnv   = "CRAWLPIPE_DB"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	DataDir       string             `yaml:"dataDir"`
	SourcesFile   string             `yaml:"sourcesFile"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Summarize     SummarizeConfig    `yaml:"summarize"`
	Tagging       TaggingConfig      `yaml:"tagging"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	ML            MLConfig           `yaml:"ml"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig locates the single-file sqlite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// FetchConfig tunes the bounded-concurrency fetch dispatcher. Delay values
// are seconds; the limiter picks a random delay in [BaseDelayLow,
// BaseDelayHigh] before each request and doubles it (capped at MaxDelay)
// when a 429/503 forces a retry.
type FetchConfig struct {
	MaxSessions    int     `yaml:"maxSessions"`
	MemoryBudgetMB int     `yaml:"memoryBudgetMB"`
	MemoryPercent  float64 `yaml:"memoryPercent"`
	CheckInterval  float64 `yaml:"checkInterval"`
	BaseDelayLow   float64 `yaml:"baseDelayLow"`
	BaseDelayHigh  float64 `yaml:"baseDelayHigh"`
	MaxDelay       float64 `yaml:"maxDelay"`
	MaxRetries     int     `yaml:"maxRetries"`
	RequestTimeout float64 `yaml:"requestTimeout"`
}

// CheckIntervalDuration converts the poll interval to a time.Duration.
func (f FetchConfig) CheckIntervalDuration() time.Duration {
	return secondsToDuration(f.CheckInterval, time.Second)
}

// RequestTimeoutDuration converts the per-request timeout to a time.Duration.
func (f FetchConfig) RequestTimeoutDuration() time.Duration {
	return secondsToDuration(f.RequestTimeout, 20*time.Second)
}

// SummarizeConfig tunes the summarize stage.
type SummarizeConfig struct {
	PromptPath  string `yaml:"promptPath"`
	Concurrency int    `yaml:"concurrency"`
}

// TaggingConfig locates the taxonomy and sets the semantic match threshold.
type TaggingConfig struct {
	TagsPath          string  `yaml:"tagsPath"`
	SemanticThreshold float64 `yaml:"semanticThreshold"`
}

// ChatGPTConfig defines how to contact the summarization LLM.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// MLConfig describes the embedding-service integration.
type MLConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.SourcesFile != "" {
		base.SourcesFile = override.SourcesFile
	}
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Fetch.MaxSessions > 0 {
		base.Fetch.MaxSessions = override.Fetch.MaxSessions
	}
	if override.Fetch.MemoryBudgetMB > 0 {
		base.Fetch.MemoryBudgetMB = override.Fetch.MemoryBudgetMB
	}
	if override.Fetch.MemoryPercent > 0 {
		base.Fetch.MemoryPercent = override.Fetch.MemoryPercent
	}
	if override.Fetch.CheckInterval > 0 {
		base.Fetch.CheckInterval = override.Fetch.CheckInterval
	}
	if override.Fetch.BaseDelayLow > 0 {
		base.Fetch.BaseDelayLow = override.Fetch.BaseDelayLow
	}
	if override.Fetch.BaseDelayHigh > 0 {
		base.Fetch.BaseDelayHigh = override.Fetch.BaseDelayHigh
	}
	if override.Fetch.MaxDelay > 0 {
		base.Fetch.MaxDelay = override.Fetch.MaxDelay
	}
	if override.Fetch.MaxRetries > 0 {
		base.Fetch.MaxRetries = override.Fetch.MaxRetries
	}
	if override.Fetch.RequestTimeout > 0 {
		base.Fetch.RequestTimeout = override.Fetch.RequestTimeout
	}

	if override.Summarize.PromptPath != "" {
		base.Summarize.PromptPath = override.Summarize.PromptPath
	}
	if override.Summarize.Concurrency > 0 {
		base.Summarize.Concurrency = override.Summarize.Concurrency
	}

	if override.Tagging.TagsPath != "" {
		base.Tagging.TagsPath = override.Tagging.TagsPath
	}
	if override.Tagging.SemanticThreshold > 0 {
		base.Tagging.SemanticThreshold = override.Tagging.SemanticThreshold
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func secondsToDuration(seconds float64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		DataDir:     "data",
		SourcesFile: "config/sources.json",
		Database:    DatabaseConfig{Path: "news.db"},
		Scheduler:   SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Fetch: FetchConfig{
			MaxSessions:    5,
			MemoryBudgetMB: 512,
			MemoryPercent:  80.0,
			CheckInterval:  1.0,
			BaseDelayLow:   2.0,
			BaseDelayHigh:  4.0,
			MaxDelay:       30.0,
			MaxRetries:     5,
			RequestTimeout: 20.0,
		},
		Summarize: SummarizeConfig{
			PromptPath:  "config/summarization_prompt.txt",
			Concurrency: 5,
		},
		Tagging: TaggingConfig{
			TagsPath:          "config/tags.json",
			SemanticThreshold: 0.3,
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You summarize news articles into structured JSON.",
		},
		ML:      MLConfig{InferenceURL: "https://ml.example.org/infer", APIKey: ""},
		Logging: LoggingConfig{Level: "info"},
	}
}
