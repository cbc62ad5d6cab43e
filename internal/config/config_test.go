package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketscout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
embedding:
  provider: cohere
  api_key: test-key
  model: embed-english-v3.0
  batch_size: 32
  rate:
    requests_per_minute: 30
    min_delay_ms: 500
vector:
  host: qdrant.internal
  port: 6334
  collection: markets
match:
  top_n: 5
  min_similarity: 0.4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.Provider != "cohere" {
		t.Fatalf("expected cohere, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Rate.RequestsPerMinute != 30 {
		t.Fatalf("expected 30 rpm, got %d", cfg.Embedding.Rate.RequestsPerMinute)
	}
	if cfg.Embedding.Rate.MinDelay() != 500*time.Millisecond {
		t.Fatalf("expected 500ms min delay, got %v", cfg.Embedding.Rate.MinDelay())
	}
	if cfg.Match.TopN != 5 || cfg.Match.MinSimilarity != 0.4 {
		t.Fatalf("unexpected match config: %+v", cfg.Match)
	}
	// Defaults fill unset sections.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected redis default, got %s", cfg.Redis.Addr)
	}
	if cfg.Match.MaxPromptMarkets != 20 {
		t.Fatalf("expected max_prompt_markets default 20, got %d", cfg.Match.MaxPromptMarkets)
	}
}

func TestLoad_MissingAPIKeyFatal(t *testing.T) {
	path := writeConfig(t, `
match:
  top_n: 5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing embedding.api_key")
	}
}

func TestLoad_InvalidTopNFatal(t *testing.T) {
	path := writeConfig(t, `
embedding:
  api_key: k
match:
  top_n: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-positive top_n")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_Warnings(t *testing.T) {
	cfg := &Config{
		Embedding: EmbeddingConfig{APIKey: "k", BatchSize: 200},
		Match:     MatchConfig{TopN: 5, MinSimilarity: 2.0},
	}
	warnings, err := cfg.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
}
