package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teledigest/teledigest/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const validConfig = `
telegram:
  api_id: 12345
  api_hash: "abcdef"
summarizer:
  provider: gigachat
  gigachat:
    client_id: "rq-uid"
    client_secret: "secret"
`

func TestLoad(t *testing.T) {
	t.Run("valid config with defaults", func(t *testing.T) {
		cfg, err := config.Load(writeConfig(t, validConfig))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.Telegram.APIID != 12345 {
			t.Errorf("api_id = %d, want 12345", cfg.Telegram.APIID)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("default log level = %q, want info", cfg.Log.Level)
		}
		if cfg.Bot.ChunkSize != 3500 {
			t.Errorf("default chunk size = %d, want 3500", cfg.Bot.ChunkSize)
		}
		if cfg.Bot.DefaultLimit != 50 || cfg.Bot.MaxLimit != 200 {
			t.Errorf("default limits = %d/%d, want 50/200", cfg.Bot.DefaultLimit, cfg.Bot.MaxLimit)
		}
		if cfg.Summarizer.GigaChat.Timeout != 30*time.Second {
			t.Errorf("default gigachat timeout = %v, want 30s", cfg.Summarizer.GigaChat.Timeout)
		}
		if cfg.Telegram.BackfillDelay != 100*time.Millisecond {
			t.Errorf("default backfill delay = %v, want 100ms", cfg.Telegram.BackfillDelay)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("TD_LOG_LEVEL", "debug")

		cfg, err := config.Load(writeConfig(t, validConfig))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("log level = %q, want debug from environment", cfg.Log.Level)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing explicit config file")
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "missing api credentials",
			config: `
summarizer:
  provider: gigachat
  gigachat:
    client_id: "rq-uid"
    client_secret: "secret"
`,
			wantErr: "validation failed",
		},
		{
			name: "gigachat without credentials",
			config: `
telegram:
  api_id: 12345
  api_hash: "abcdef"
summarizer:
  provider: gigachat
`,
			wantErr: "client_id and client_secret",
		},
		{
			name: "gemini without api key",
			config: `
telegram:
  api_id: 12345
  api_hash: "abcdef"
summarizer:
  provider: gemini
`,
			wantErr: "api_key",
		},
		{
			name: "unknown provider",
			config: `
telegram:
  api_id: 12345
  api_hash: "abcdef"
summarizer:
  provider: chatgpt
`,
			wantErr: "validation failed",
		},
		{
			name: "default limit above max limit",
			config: validConfig + `
bot:
  default_limit: 100
  max_limit: 50
`,
			wantErr: "exceeds bot.max_limit",
		},
		{
			name: "dashboard without listen address",
			config: validConfig + `
web:
  enabled: true
  listen_addr: ""
`,
			wantErr: "web.listen_addr",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.config))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tc.wantErr)
			}
		})
	}
}
