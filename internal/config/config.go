package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Catalog     CatalogConfig   `yaml:"catalog"`
	Storage     StorageConfig   `yaml:"storage"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Speech      SpeechConfig    `yaml:"speech"`
	Notes       NotesConfig     `yaml:"notes"`
	Search      SearchConfig    `yaml:"search"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	MaxDeliver     int      `yaml:"max_deliver"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	UploadDir    string   `yaml:"upload_dir"`
	ChunkDir     string   `yaml:"chunk_dir"`
	ContentTypes []string `yaml:"content_types"`
}

type PipelineConfig struct {
	ChunkSeconds        int     `yaml:"chunk_seconds"`
	MinChunkSeconds     int     `yaml:"min_chunk_seconds"`
	MaxChunkSeconds     int     `yaml:"max_chunk_seconds"`
	Concurrency         int     `yaml:"max_concurrency"`
	ChunkRetryAttempts  int     `yaml:"chunk_retry_attempts"`
	ChunkRetryDelayMS   int     `yaml:"chunk_retry_delay_ms"`
	NotesRetryAttempts  int     `yaml:"notes_retry_attempts"`
	NotesRetryDelayMS   int     `yaml:"notes_retry_delay_ms"`
	RetryJitterFraction float64 `yaml:"retry_jitter_fraction"`
	StageTimeoutSeconds int     `yaml:"stage_timeout_seconds"`
}

type SpeechConfig struct {
	Mode        string `yaml:"mode"` // mock, exec, sarvam
	Command     string `yaml:"command"`
	Endpoint    string `yaml:"endpoint"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	NumSpeakers int    `yaml:"num_speakers"`
	Prompt      string `yaml:"prompt"`
}

type NotesConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type SearchConfig struct {
	Enabled           bool   `yaml:"enabled"`
	QdrantURL         string `yaml:"qdrant_url"`
	QdrantAPIKey      string `yaml:"qdrant_api_key"`
	Collection        string `yaml:"collection"`
	EmbeddingEndpoint string `yaml:"embedding_endpoint"`
	EmbeddingModel    string `yaml:"embedding_model"`
}

func Default() Config {
	return Config{
		ServiceName: "scribed",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			MaxDeliver:     4,
		},
		Catalog: CatalogConfig{
			Path: "./data/scribed.db",
		},
		Storage: StorageConfig{
			UploadDir: "./data/uploads",
			ChunkDir:  "./data/chunks",
			ContentTypes: []string{
				"audio/mpeg",
				"audio/mp4",
				"audio/wav",
				"audio/x-wav",
				"audio/flac",
				"audio/aac",
				"audio/ogg",
				"audio/webm",
			},
		},
		Pipeline: PipelineConfig{
			ChunkSeconds:        600,
			MinChunkSeconds:     5,
			MaxChunkSeconds:     900,
			Concurrency:         4,
			ChunkRetryAttempts:  3,
			ChunkRetryDelayMS:   2000,
			NotesRetryAttempts:  3,
			NotesRetryDelayMS:   2000,
			RetryJitterFraction: 0.2,
			StageTimeoutSeconds: 600,
		},
		Speech: SpeechConfig{
			Mode:  "mock",
			Model: "saaras:v2.5",
		},
		Notes: NotesConfig{
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		Search: SearchConfig{
			Enabled:           false,
			QdrantURL:         "http://localhost:6333",
			Collection:        "session_notes",
			EmbeddingEndpoint: "http://localhost:11434",
			EmbeddingModel:    "nomic-embed-text",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "SCRIBED_SERVICE_NAME")
	overrideString(&cfg.Environment, "SCRIBED_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SCRIBED_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SCRIBED_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "SCRIBED_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SCRIBED_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SCRIBED_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Embedded, "SCRIBED_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SCRIBED_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "SCRIBED_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "SCRIBED_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "SCRIBED_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "SCRIBED_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "SCRIBED_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "SCRIBED_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "SCRIBED_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Bus.MaxDeliver, "SCRIBED_BUS_MAX_DELIVER")
	overrideString(&cfg.Catalog.Path, "SCRIBED_CATALOG_PATH")
	overrideString(&cfg.Storage.UploadDir, "SCRIBED_STORAGE_UPLOAD_DIR")
	overrideString(&cfg.Storage.ChunkDir, "SCRIBED_STORAGE_CHUNK_DIR")
	overrideStringSlice(&cfg.Storage.ContentTypes, "SCRIBED_STORAGE_CONTENT_TYPES")
	overrideInt(&cfg.Pipeline.ChunkSeconds, "SCRIBED_PIPELINE_CHUNK_SECONDS")
	overrideInt(&cfg.Pipeline.MinChunkSeconds, "SCRIBED_PIPELINE_MIN_CHUNK_SECONDS")
	overrideInt(&cfg.Pipeline.MaxChunkSeconds, "SCRIBED_PIPELINE_MAX_CHUNK_SECONDS")
	overrideInt(&cfg.Pipeline.Concurrency, "SCRIBED_PIPELINE_MAX_CONCURRENCY")
	overrideInt(&cfg.Pipeline.ChunkRetryAttempts, "SCRIBED_PIPELINE_CHUNK_RETRY_ATTEMPTS")
	overrideInt(&cfg.Pipeline.ChunkRetryDelayMS, "SCRIBED_PIPELINE_CHUNK_RETRY_DELAY_MS")
	overrideInt(&cfg.Pipeline.NotesRetryAttempts, "SCRIBED_PIPELINE_NOTES_RETRY_ATTEMPTS")
	overrideInt(&cfg.Pipeline.NotesRetryDelayMS, "SCRIBED_PIPELINE_NOTES_RETRY_DELAY_MS")
	overrideFloat(&cfg.Pipeline.RetryJitterFraction, "SCRIBED_PIPELINE_RETRY_JITTER_FRACTION")
	overrideInt(&cfg.Pipeline.StageTimeoutSeconds, "SCRIBED_PIPELINE_STAGE_TIMEOUT_SECONDS")
	overrideString(&cfg.Speech.Mode, "SCRIBED_SPEECH_MODE")
	overrideString(&cfg.Speech.Command, "SCRIBED_SPEECH_COMMAND")
	overrideString(&cfg.Speech.Endpoint, "SCRIBED_SPEECH_ENDPOINT")
	overrideString(&cfg.Speech.APIKey, "SCRIBED_SPEECH_API_KEY")
	overrideString(&cfg.Speech.Model, "SCRIBED_SPEECH_MODEL")
	overrideInt(&cfg.Speech.NumSpeakers, "SCRIBED_SPEECH_NUM_SPEAKERS")
	overrideString(&cfg.Speech.Prompt, "SCRIBED_SPEECH_PROMPT")
	overrideString(&cfg.Notes.Mode, "SCRIBED_NOTES_MODE")
	overrideString(&cfg.Notes.Endpoint, "SCRIBED_NOTES_ENDPOINT")
	overrideString(&cfg.Notes.Model, "SCRIBED_NOTES_MODEL")
	overrideInt(&cfg.Notes.MaxTokens, "SCRIBED_NOTES_MAX_TOKENS")
	overrideFloat(&cfg.Notes.Temperature, "SCRIBED_NOTES_TEMPERATURE")
	overrideBool(&cfg.Search.Enabled, "SCRIBED_SEARCH_ENABLED")
	overrideString(&cfg.Search.QdrantURL, "SCRIBED_SEARCH_QDRANT_URL")
	overrideString(&cfg.Search.QdrantAPIKey, "SCRIBED_SEARCH_QDRANT_API_KEY")
	overrideString(&cfg.Search.Collection, "SCRIBED_SEARCH_COLLECTION")
	overrideString(&cfg.Search.EmbeddingEndpoint, "SCRIBED_SEARCH_EMBEDDING_ENDPOINT")
	overrideString(&cfg.Search.EmbeddingModel, "SCRIBED_SEARCH_EMBEDDING_MODEL")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Bus.MaxDeliver <= 0 {
		return errors.New("bus.max_deliver must be >= 1")
	}
	if cfg.Catalog.Path == "" {
		return errors.New("catalog.path must not be empty")
	}
	if cfg.Storage.UploadDir == "" {
		return errors.New("storage.upload_dir must not be empty")
	}
	if cfg.Storage.ChunkDir == "" {
		return errors.New("storage.chunk_dir must not be empty")
	}
	if len(cfg.Storage.ContentTypes) == 0 {
		return errors.New("storage.content_types must not be empty")
	}
	if cfg.Pipeline.ChunkSeconds <= 0 {
		return errors.New("pipeline.chunk_seconds must be positive")
	}
	if cfg.Pipeline.MinChunkSeconds <= 0 || cfg.Pipeline.MaxChunkSeconds < cfg.Pipeline.MinChunkSeconds {
		return errors.New("pipeline chunk duration bounds must satisfy 0 < min <= max")
	}
	if cfg.Pipeline.Concurrency <= 0 {
		return errors.New("pipeline.max_concurrency must be >= 1")
	}
	if cfg.Pipeline.ChunkRetryAttempts < 0 || cfg.Pipeline.NotesRetryAttempts < 0 {
		return errors.New("pipeline retry attempts must be >= 0")
	}
	if cfg.Pipeline.RetryJitterFraction < 0 || cfg.Pipeline.RetryJitterFraction > 1 {
		return errors.New("pipeline.retry_jitter_fraction must be between 0 and 1")
	}
	switch cfg.Speech.Mode {
	case "mock", "exec", "sarvam":
	default:
		return errors.New("speech.mode must be one of mock|exec|sarvam")
	}
	if cfg.Speech.Mode == "exec" && cfg.Speech.Command == "" {
		return errors.New("speech.command must be set when mode=exec")
	}
	if cfg.Speech.Mode == "sarvam" {
		if cfg.Speech.Endpoint == "" {
			return errors.New("speech.endpoint must be set when mode=sarvam")
		}
		if cfg.Speech.APIKey == "" {
			return errors.New("speech.api_key must be set when mode=sarvam")
		}
	}
	switch cfg.Notes.Mode {
	case "mock", "ollama":
	default:
		return errors.New("notes.mode must be one of mock|ollama")
	}
	if cfg.Notes.Mode == "ollama" && cfg.Notes.Endpoint == "" {
		return errors.New("notes.endpoint must be set when mode=ollama")
	}
	if cfg.Notes.MaxTokens < 0 {
		return errors.New("notes.max_tokens must be >= 0")
	}
	if cfg.Search.Enabled {
		if cfg.Search.QdrantURL == "" {
			return errors.New("search.qdrant_url must be set when search is enabled")
		}
		if cfg.Search.Collection == "" {
			return errors.New("search.collection must be set when search is enabled")
		}
		if cfg.Search.EmbeddingEndpoint == "" {
			return errors.New("search.embedding_endpoint must be set when search is enabled")
		}
	}
	return nil
}
