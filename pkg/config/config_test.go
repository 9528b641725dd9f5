package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "SQA_OPENAI_API_KEY", "SQA_GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ranker.Mode != "sentence" || cfg.Ranker.KeywordThreshold != 3 || cfg.Ranker.MaxOutputLength != 2000 {
		t.Errorf("ranker defaults = %+v", cfg.Ranker)
	}
	if cfg.Chunker.Size != 1000 || cfg.Chunker.Overlap != 200 {
		t.Errorf("chunker defaults = %+v", cfg.Chunker)
	}
	if cfg.Generation.Provider != "openai" || cfg.Generation.Fallback != "offline" {
		t.Errorf("generation defaults = %+v", cfg.Generation)
	}
	if cfg.Retrieval.Strategy != "keyword" {
		t.Errorf("strategy = %q", cfg.Retrieval.Strategy)
	}
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `
server:
  port: 9000
  corsOrigins: ["https://app.example"]
ranker:
  mode: line
  maxOutputLength: 500
generation:
  provider: gemini
  timeout: 10s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 || len(cfg.Server.CORSOrigins) != 1 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Ranker.Mode != "line" || cfg.Ranker.MaxOutputLength != 500 || cfg.Ranker.MinLineLength != 20 {
		t.Errorf("ranker = %+v", cfg.Ranker)
	}
	if cfg.Generation.Provider != "gemini" || cfg.Generation.Timeout != 10*time.Second {
		t.Errorf("generation = %+v", cfg.Generation)
	}
	if cfg.Generation.Gemini.Model == "" {
		t.Error("gemini model default lost")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearKeys(t)
	t.Setenv("SQA_SERVER_PORT", "7000")
	t.Setenv("SQA_RANKER_MODE", "line")
	t.Setenv("SQA_KAFKA_ENABLED", "true")
	t.Setenv("SQA_KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("OPENAI_API_KEY", "from-conventional")
	t.Setenv("SQA_GEMINI_API_KEY", "from-prefixed")
	t.Setenv("GEMINI_API_KEY", "ignored")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Ranker.Mode != "line" {
		t.Errorf("overrides not applied: port %d mode %q", cfg.Server.Port, cfg.Ranker.Mode)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if cfg.Generation.OpenAI.APIKey != "from-conventional" || cfg.Generation.Gemini.APIKey != "from-prefixed" {
		t.Errorf("keys = %q / %q", cfg.Generation.OpenAI.APIKey, cfg.Generation.Gemini.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Ranker.Mode = "paragraph" }, "ranker.mode"},
		{"negative threshold", func(c *Config) { c.Ranker.KeywordThreshold = -1 }, "keywordThreshold"},
		{"zero output", func(c *Config) { c.Ranker.MaxOutputLength = 0 }, "maxOutputLength"},
		{"overlap too big", func(c *Config) { c.Chunker.Overlap = c.Chunker.Size }, "chunker"},
		{"bad strategy", func(c *Config) { c.Retrieval.Strategy = "hybrid" }, "retrieval.strategy"},
		{"no provider", func(c *Config) { c.Generation.Provider = "" }, "generation.provider"},
		{"fallback same as primary", func(c *Config) { c.Generation.Fallback = c.Generation.Provider }, "generation.fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}.DSN()
	for _, part := range []string{"host=db", "port=5433", "user=u", "dbname=d", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN %q missing %q", dsn, part)
		}
	}
}
