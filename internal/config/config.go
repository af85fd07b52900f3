package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultConcurrency     = 4
	DefaultDelayMs         = 500
	DefaultCheckpointEvery = 50
	DefaultEmbeddingBatch  = 16
	DefaultTimeoutMs       = 30000
	DefaultSimilarTopK     = 10
)

// DefaultWatchFiles is the fixed watch list of bot workspace files whose
// writes are always tracked in the summary, even at zero.
var DefaultWatchFiles = []string{
	"SOUL.md",
	"AGENTS.md",
	"MEMORY.md",
	"HEARTBEAT.md",
	"TOOLS.md",
	"USER.md",
	"IDENTITY.md",
}

type Config struct {
	Extract ExtractConfig `json:"extract"`
	Enrich  EnrichConfig  `json:"enrich"`
	Watch   WatchConfig   `json:"watch"`
	Notify  NotifyConfig  `json:"notify"`
}

type ExtractConfig struct {
	LogsDir    string   `json:"logsDir"`
	DataDir    string   `json:"dataDir"`
	WatchFiles []string `json:"watchFiles,omitempty"`
}

type EnrichConfig struct {
	APIKey          string          `json:"apiKey,omitempty"`
	BaseURL         string          `json:"baseUrl,omitempty"`
	Model           string          `json:"model,omitempty"`
	Embedding       EmbeddingConfig `json:"embedding"`
	Concurrency     int             `json:"concurrency,omitempty"`
	DelayMs         int             `json:"delayMs,omitempty"`
	CheckpointEvery int             `json:"checkpointEvery,omitempty"`
}

type EmbeddingConfig struct {
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
	TimeoutMs int    `json:"timeoutMs,omitempty"`
}

type WatchConfig struct {
	Schedule string `json:"schedule,omitempty"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chatId,omitempty"`
}

func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Extract: ExtractConfig{
			LogsDir:    filepath.Join(home, ".clawscope", "logs"),
			DataDir:    filepath.Join(home, ".clawscope", "data"),
			WatchFiles: append([]string(nil), DefaultWatchFiles...),
		},
		Enrich: EnrichConfig{
			Concurrency:     DefaultConcurrency,
			DelayMs:         DefaultDelayMs,
			CheckpointEvery: DefaultCheckpointEvery,
			Embedding: EmbeddingConfig{
				BatchSize: DefaultEmbeddingBatch,
				TimeoutMs: DefaultTimeoutMs,
			},
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".clawscope")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.Extract.LogsDir == "" {
		cfg.Extract.LogsDir = DefaultConfig().Extract.LogsDir
	}
	if cfg.Extract.DataDir == "" {
		cfg.Extract.DataDir = DefaultConfig().Extract.DataDir
	}
	if len(cfg.Extract.WatchFiles) == 0 {
		cfg.Extract.WatchFiles = append([]string(nil), DefaultWatchFiles...)
	}
	if cfg.Enrich.Concurrency <= 0 {
		cfg.Enrich.Concurrency = DefaultConcurrency
	}
	if cfg.Enrich.DelayMs < 0 {
		cfg.Enrich.DelayMs = DefaultDelayMs
	}
	if cfg.Enrich.CheckpointEvery <= 0 {
		cfg.Enrich.CheckpointEvery = DefaultCheckpointEvery
	}
	if cfg.Enrich.Embedding.BatchSize <= 0 {
		cfg.Enrich.Embedding.BatchSize = DefaultEmbeddingBatch
	}
	if cfg.Enrich.Embedding.TimeoutMs <= 0 {
		cfg.Enrich.Embedding.TimeoutMs = DefaultTimeoutMs
	}

	return cfg, nil
}

// applyEnv layers environment variable overrides on top of the file.
func applyEnv(cfg *Config) {
	if dir := os.Getenv("CLAWSCOPE_LOGS_DIR"); dir != "" {
		cfg.Extract.LogsDir = dir
	}
	if dir := os.Getenv("CLAWSCOPE_DATA_DIR"); dir != "" {
		cfg.Extract.DataDir = dir
	}
	if key := os.Getenv("CLAWSCOPE_API_KEY"); key != "" {
		cfg.Enrich.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Enrich.APIKey == "" {
		cfg.Enrich.APIKey = key
	}
	if url := os.Getenv("CLAWSCOPE_BASE_URL"); url != "" {
		cfg.Enrich.BaseURL = url
	}
	if model := os.Getenv("CLAWSCOPE_MODEL"); model != "" {
		cfg.Enrich.Model = model
	}
	if key := os.Getenv("CLAWSCOPE_EMBEDDING_API_KEY"); key != "" {
		cfg.Enrich.Embedding.APIKey = key
	}
	if url := os.Getenv("CLAWSCOPE_EMBEDDING_BASE_URL"); url != "" {
		cfg.Enrich.Embedding.BaseURL = url
	}
	if model := os.Getenv("CLAWSCOPE_EMBEDDING_MODEL"); model != "" {
		cfg.Enrich.Embedding.Model = model
	}
	if dim := os.Getenv("CLAWSCOPE_EMBEDDING_DIMENSION"); dim != "" {
		if parsed, err := strconv.Atoi(dim); err == nil {
			cfg.Enrich.Embedding.Dimension = parsed
		}
	}
	if token := os.Getenv("CLAWSCOPE_TELEGRAM_TOKEN"); token != "" {
		cfg.Notify.Telegram.Token = token
		cfg.Notify.Telegram.Enabled = true
	}
	if chat := os.Getenv("CLAWSCOPE_TELEGRAM_CHAT_ID"); chat != "" {
		if parsed, err := strconv.ParseInt(chat, 10, 64); err == nil {
			cfg.Notify.Telegram.ChatID = parsed
		}
	}
	if spec := os.Getenv("CLAWSCOPE_WATCH_SCHEDULE"); spec != "" {
		cfg.Watch.Schedule = spec
	}
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}

// EmbeddingAPIKey resolves the embedding credential, falling back to the
// general enrichment key.
func (c *Config) EmbeddingAPIKey() string {
	if c.Enrich.Embedding.APIKey != "" {
		return c.Enrich.Embedding.APIKey
	}
	return c.Enrich.APIKey
}

// EmbeddingBaseURL resolves the embedding endpoint, falling back to the
// general enrichment endpoint.
func (c *Config) EmbeddingBaseURL() string {
	if c.Enrich.Embedding.BaseURL != "" {
		return c.Enrich.Embedding.BaseURL
	}
	return c.Enrich.BaseURL
}
