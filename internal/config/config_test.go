package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Pipeline.ChunkSeconds != 600 {
		t.Fatalf("expected default chunk seconds 600, got %d", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.Concurrency != 4 {
		t.Fatalf("expected default concurrency 4, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Speech.Mode != "mock" {
		t.Fatalf("expected default speech mode mock, got %s", cfg.Speech.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRIBED_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("SCRIBED_BUS_EMBEDDED", "false")
	t.Setenv("SCRIBED_CATALOG_PATH", "./tmp.db")
	t.Setenv("SCRIBED_PIPELINE_CHUNK_SECONDS", "120")
	t.Setenv("SCRIBED_PIPELINE_MAX_CONCURRENCY", "2")
	t.Setenv("SCRIBED_PIPELINE_CHUNK_RETRY_ATTEMPTS", "5")
	t.Setenv("SCRIBED_SPEECH_MODE", "sarvam")
	t.Setenv("SCRIBED_SPEECH_ENDPOINT", "https://api.sarvam.ai")
	t.Setenv("SCRIBED_SPEECH_API_KEY", "secret")
	t.Setenv("SCRIBED_NOTES_MODE", "ollama")
	t.Setenv("SCRIBED_NOTES_MODEL", "qwen2.5:7b")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Embedded {
		t.Fatal("expected embedded override false")
	}
	if cfg.Catalog.Path != "./tmp.db" {
		t.Fatalf("expected catalog path override, got %s", cfg.Catalog.Path)
	}
	if cfg.Pipeline.ChunkSeconds != 120 {
		t.Fatalf("expected chunk seconds override, got %d", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.Concurrency != 2 {
		t.Fatalf("expected concurrency override, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.ChunkRetryAttempts != 5 {
		t.Fatalf("expected chunk retry attempts override, got %d", cfg.Pipeline.ChunkRetryAttempts)
	}
	if cfg.Speech.Mode != "sarvam" || cfg.Speech.APIKey != "secret" {
		t.Fatalf("expected speech overrides, got %+v", cfg.Speech)
	}
	if cfg.Notes.Mode != "ollama" || cfg.Notes.Model != "qwen2.5:7b" {
		t.Fatalf("expected notes overrides, got %+v", cfg.Notes)
	}
}

func TestValidateRejectsBadBounds(t *testing.T) {
	t.Setenv("SCRIBED_PIPELINE_MIN_CHUNK_SECONDS", "900")
	t.Setenv("SCRIBED_PIPELINE_MAX_CHUNK_SECONDS", "5")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for inverted chunk bounds")
	}
}

func TestValidateRequiresSpeechCommand(t *testing.T) {
	t.Setenv("SCRIBED_SPEECH_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for exec mode without command")
	}
}
