// No t.Parallel(): env vars are process-global.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"LLM_PROVIDER", "MODEL_NAME", "LLM_BASE_URL", "OLLAMA_BASE_URL", "LLM_MAX_RETRIES", "LLM_TIMEOUT_SECS",
	"GROQ_API_KEY", "OPENROUTER_API_KEY", "MISTRAL_API_KEY", "OPENAI_API_KEY",
	"EMBED_PROVIDER", "EMBED_MODEL", "PROFILE_SOURCE", "MONGODB_URL", "DB_NAME", "COLLECTION_NAME",
	"SQLITE_PATH", "DATABASE_URL", "HISTORY_MODE", "PDF_PATH", "LOG_LEVEL", "LOG_FORMAT",
	"HTTP_PORT", "JWT_SECRET", "NATS_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLMProvider != "groq" {
		t.Errorf("expected LLMProvider 'groq', got %q", cfg.LLMProvider)
	}
	if cfg.OllamaBaseURL != "http://localhost:11434" {
		t.Errorf("expected default Ollama URL, got %q", cfg.OllamaBaseURL)
	}
	if cfg.HistoryMode != "full" || cfg.ProfileSource != "mongo" || cfg.CollectionName != "profiles" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LLMMaxRetries != 3 || cfg.Timeout() != 120*time.Second || cfg.HTTPPort != 8080 {
		t.Errorf("unexpected numeric defaults: %+v", cfg)
	}
	if cfg.ChatModel("groq") != "llama-3.3-70b-versatile" {
		t.Errorf("unexpected default model %q", cfg.ChatModel("groq"))
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Mistral")
	t.Setenv("MODEL_NAME", "open-mistral-nemo")
	t.Setenv("LLM_TIMEOUT_SECS", "30")
	t.Setenv("HISTORY_MODE", "context")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLMProvider != "mistral" {
		t.Errorf("expected normalised provider 'mistral', got %q", cfg.LLMProvider)
	}
	if cfg.ChatModel("mistral") != "open-mistral-nemo" {
		t.Errorf("MODEL_NAME must apply to the selected provider, got %q", cfg.ChatModel("mistral"))
	}
	if cfg.ChatModel("groq") != "llama-3.3-70b-versatile" {
		t.Errorf("MODEL_NAME must not leak to other providers, got %q", cfg.ChatModel("groq"))
	}
	if cfg.Timeout() != 30*time.Second || cfg.HistoryMode != "context" {
		t.Errorf("unexpected overrides: %+v", cfg)
	}
}

func TestLoad_DotEnvFile_EnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "GROQ_API_KEY=from-file\nDB_NAME=people\nLLM_PROVIDER=openrouter\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LLM_PROVIDER", "groq")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GroqAPIKey != "from-file" || cfg.DBName != "people" {
		t.Errorf("expected values from .env, got %+v", cfg)
	}
	if cfg.LLMProvider != "groq" {
		t.Errorf("environment must override .env, got %q", cfg.LLMProvider)
	}
}

func TestLoad_MissingDotEnvIsNotAnError(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value, wantVar string
	}{
		{"LLM_PROVIDER", "watson", "LLM_PROVIDER"},
		{"PROFILE_SOURCE", "excel", "PROFILE_SOURCE"},
		{"HISTORY_MODE", "some", "HISTORY_MODE"},
		{"LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"HTTP_PORT", "70000", "HTTP_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Var != tt.wantVar {
				t.Errorf("expected Var %s, got %s", tt.wantVar, ce.Var)
			}
		})
	}
}

func TestRequireProviderKey(t *testing.T) {
	cfg := Config{MistralAPIKey: "m-key"}

	if key, err := cfg.RequireProviderKey("mistral"); err != nil || key != "m-key" {
		t.Errorf("expected m-key, got %q, %v", key, err)
	}
	if _, err := cfg.RequireProviderKey("ollama"); err != nil {
		t.Errorf("ollama needs no key, got %v", err)
	}

	_, err := cfg.RequireProviderKey("groq")
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Var != "GROQ_API_KEY" {
		t.Fatalf("expected ConfigError naming GROQ_API_KEY, got %v", err)
	}

	cfg = cfg.WithProviderKey("groq", "typed-in")
	if key, err := cfg.RequireProviderKey("groq"); err != nil || key != "typed-in" {
		t.Errorf("expected typed-in key, got %q, %v", key, err)
	}
}
