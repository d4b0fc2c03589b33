// Package config provides application-wide configuration loaded from an
// optional .env file and environment variables.
// All fields have safe defaults so the binary runs locally without any env
// setup; only provider credentials are required, and only when used.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration for promptlab.
type Config struct {
	// LLM
	LLMProvider    string `mapstructure:"llm_provider"`     // LLM_PROVIDER: default "groq"
	Model          string `mapstructure:"model_name"`       // MODEL_NAME: default per provider
	LLMBaseURL     string `mapstructure:"llm_base_url"`     // LLM_BASE_URL: overrides vendor endpoint
	OllamaBaseURL  string `mapstructure:"ollama_base_url"`  // OLLAMA_BASE_URL
	LLMMaxRetries  int    `mapstructure:"llm_max_retries"`  // LLM_MAX_RETRIES: default 3
	LLMTimeoutSecs int    `mapstructure:"llm_timeout_secs"` // LLM_TIMEOUT_SECS: default 120

	GroqAPIKey       string `mapstructure:"groq_api_key"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
	MistralAPIKey    string `mapstructure:"mistral_api_key"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`

	// Embeddings
	EmbedProvider string `mapstructure:"embed_provider"` // EMBED_PROVIDER: default "mistral"
	EmbedModel    string `mapstructure:"embed_model"`    // EMBED_MODEL: default "mistral-embed"

	// Profile context
	ProfileSource  string `mapstructure:"profile_source"` // PROFILE_SOURCE: mongo|sqlite|postgres|none
	MongoURL       string `mapstructure:"mongodb_url"`
	DBName         string `mapstructure:"db_name"`
	CollectionName string `mapstructure:"collection_name"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	DatabaseURL    string `mapstructure:"database_url"`

	// Sessions and documents
	HistoryMode string `mapstructure:"history_mode"` // HISTORY_MODE: full|context
	PDFPath     string `mapstructure:"pdf_path"`

	// Ambient
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	HTTPPort  int    `mapstructure:"http_port"`
	JWTSecret string `mapstructure:"jwt_secret"`
	NATSURL   string `mapstructure:"nats_url"`
}

// DefaultModels maps a provider to the chat model used when MODEL_NAME is unset.
var DefaultModels = map[string]string{
	"groq":       "llama-3.3-70b-versatile",
	"openrouter": "deepseek/deepseek-r1:free",
	"mistral":    "mistral-large-latest",
	"openai":     "gpt-4o-mini",
	"ollama":     "llama3.2:3b",
}

// providerKeyVars names the environment variable carrying each provider's key.
var providerKeyVars = map[string]string{
	"groq":       "GROQ_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"openai":     "OPENAI_API_KEY",
}

var defaults = map[string]any{
	"llm_provider":       "groq",
	"model_name":         "",
	"llm_base_url":       "",
	"ollama_base_url":    "http://localhost:11434",
	"llm_max_retries":    3,
	"llm_timeout_secs":   120,
	"groq_api_key":       "",
	"openrouter_api_key": "",
	"mistral_api_key":    "",
	"openai_api_key":     "",
	"embed_provider":     "mistral",
	"embed_model":        "mistral-embed",
	"profile_source":     "mongo",
	"mongodb_url":        "",
	"db_name":            "",
	"collection_name":    "profiles",
	"sqlite_path":        "promptlab.db",
	"database_url":       "",
	"history_mode":       "full",
	"pdf_path":           "",
	"log_level":          "info",
	"log_format":         "text",
	"http_port":          8080,
	"jwt_secret":         "",
	"nats_url":           "",
}

// ConfigError reports a missing or invalid setting. It is fatal: callers
// report it and exit before any session starts.
type ConfigError struct {
	Var string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Var, e.Msg)
}

// Load reads envFile (a dotenv file, skipped when empty or absent) and then
// environment variables, which take precedence.
func Load(envFile string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: stat %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.EmbedProvider = strings.ToLower(strings.TrimSpace(cfg.EmbedProvider))
	cfg.ProfileSource = strings.ToLower(strings.TrimSpace(cfg.ProfileSource))
	cfg.HistoryMode = strings.ToLower(strings.TrimSpace(cfg.HistoryMode))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings. Credentials are checked lazily by
// RequireProviderKey so that commands not talking to a provider still run.
func (c Config) Validate() error {
	if _, ok := DefaultModels[c.LLMProvider]; !ok {
		return &ConfigError{Var: "LLM_PROVIDER", Msg: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
	}
	if _, ok := DefaultModels[c.EmbedProvider]; !ok {
		return &ConfigError{Var: "EMBED_PROVIDER", Msg: fmt.Sprintf("unknown provider %q", c.EmbedProvider)}
	}
	switch c.ProfileSource {
	case "mongo", "sqlite", "postgres", "none":
	default:
		return &ConfigError{Var: "PROFILE_SOURCE", Msg: fmt.Sprintf("must be mongo, sqlite, postgres or none, got %q", c.ProfileSource)}
	}
	if c.HistoryMode != "full" && c.HistoryMode != "context" {
		return &ConfigError{Var: "HISTORY_MODE", Msg: fmt.Sprintf("must be full or context, got %q", c.HistoryMode)}
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return &ConfigError{Var: "LOG_FORMAT", Msg: fmt.Sprintf("must be text or json, got %q", c.LogFormat)}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return &ConfigError{Var: "HTTP_PORT", Msg: fmt.Sprintf("invalid port %d", c.HTTPPort)}
	}
	return nil
}

// ChatModel returns MODEL_NAME, or the provider's default model.
func (c Config) ChatModel(provider string) string {
	if c.Model != "" && provider == c.LLMProvider {
		return c.Model
	}
	return DefaultModels[provider]
}

// Timeout returns the per-request provider timeout.
func (c Config) Timeout() time.Duration {
	if c.LLMTimeoutSecs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.LLMTimeoutSecs) * time.Second
}

// ProviderKey returns the API key configured for provider ("" for ollama).
func (c Config) ProviderKey(provider string) string {
	switch provider {
	case "groq":
		return c.GroqAPIKey
	case "openrouter":
		return c.OpenRouterAPIKey
	case "mistral":
		return c.MistralAPIKey
	case "openai":
		return c.OpenAIAPIKey
	}
	return ""
}

// KeyVar returns the environment variable holding provider's key, or "".
func KeyVar(provider string) string { return providerKeyVars[provider] }

// RequireProviderKey returns the key for provider, or a *ConfigError naming
// the missing variable. Providers without credentials (ollama) always pass.
func (c Config) RequireProviderKey(provider string) (string, error) {
	name, needsKey := providerKeyVars[provider]
	if !needsKey {
		return "", nil
	}
	key := c.ProviderKey(provider)
	if key == "" {
		return "", &ConfigError{Var: name, Msg: "not set (add it to the environment or .env)"}
	}
	return key, nil
}

// WithProviderKey returns a copy of c with provider's key set. Used when the
// key is entered interactively.
func (c Config) WithProviderKey(provider, key string) Config {
	switch provider {
	case "groq":
		c.GroqAPIKey = key
	case "openrouter":
		c.OpenRouterAPIKey = key
	case "mistral":
		c.MistralAPIKey = key
	case "openai":
		c.OpenAIAPIKey = key
	}
	return c
}
