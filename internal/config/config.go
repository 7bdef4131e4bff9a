package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// пусто — история в памяти
	DatabaseURL string `env:"DATABASE_URL"`

	// LLM
	LLMProvider        string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	OpenAIModel        string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`
	GeminiAPIKey       string `env:"GEMINI_API_KEY"`
	GeminiModel        string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	YandexOAuthToken   string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID     string `env:"YANDEX_FOLDER_ID"`
	HTTPBackendURL     string `env:"HTTP_BACKEND_URL"`
	HTTPBackendToken   string `env:"HTTP_BACKEND_TOKEN"`

	// Dispatcher
	RateLimit          int           `env:"RATE_LIMIT" envDefault:"10"`
	RateWindow         time.Duration `env:"RATE_WINDOW" envDefault:"60s"`
	RateSpacing        time.Duration `env:"RATE_SPACING" envDefault:"2s"`
	BackendTimeout     time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
	HistoryPromptTurns int           `env:"HISTORY_PROMPT_TURNS" envDefault:"20"`
	HistoryRetention   time.Duration `env:"HISTORY_RETENTION" envDefault:"0s"`

	KnowledgePath   string `env:"KNOWLEDGE_PATH"`
	UsageLogPath    string `env:"USAGE_LOG_PATH" envDefault:"logs/usage.jsonl"`
	UsageReportSpec string `env:"USAGE_REPORT_SPEC" envDefault:"0 21 * * *"`
	PruneSpec       string `env:"HISTORY_PRUNE_SPEC" envDefault:"@hourly"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is not set")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is not set")
		}
	case "yandex":
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return errors.New("YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required")
		}
	case "http":
		if c.HTTPBackendURL == "" {
			return errors.New("HTTP_BACKEND_URL is not set")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.RateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("RATE_WINDOW must be positive, got %s", c.RateWindow)
	}
	if c.RateSpacing < 0 || c.BackendTimeout < 0 || c.HistoryRetention < 0 {
		return errors.New("durations must not be negative")
	}
	if c.HistoryPromptTurns < 0 {
		return errors.New("HISTORY_PROMPT_TURNS must not be negative")
	}
	return nil
}
