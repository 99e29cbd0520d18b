package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMProvider      string
	LLMBaseURL       string
	LLMModelName     string
	LLMAPIKey        string
	AnthropicAPIKey  string
	AnthropicModel   string
	LLMTimeout       time.Duration
	LLMMaxRetries    int
	LLMRateLimit     float64
	EmbeddingBaseURL string
	EmbeddingModel   string

	DBPath            string
	StoreDir          string
	ExperimentsDir    string
	ExperimentsSchema string
	PdfToTextPath     string
	InboxDir          string
	InboxDebounce     time.Duration

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	ChunkSize     int
	ChunkOverlap  int
	TitleMaxLen   int
	ExcerptChars  int
	IngestWorkers int

	RetrievalK          int
	RetrievalFetchK     int
	RetrievalScoreFloor float32
	RetrievalMMRLambda  float32
	MaxRecords          int

	APIPort        string
	MaxUploadBytes int64
	LogLevel       slog.Level
	LogFormat      string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "http://localhost:8080/v1"),
		LLMModelName:      getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:         getEnv("LLM_API_KEY", "dummy-key"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		EmbeddingBaseURL:  getEnv("EMBEDDING_BASE_URL", "http://localhost:8081/v1"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:            getEnv("DB_PATH", "./data/research-rag.db"),
		StoreDir:          getEnv("STORE_DIR", "./data/documents"),
		ExperimentsDir:    getEnv("EXPERIMENTS_DIR", "./data/experiments"),
		ExperimentsSchema: getEnv("EXPERIMENTS_SCHEMA", ""),
		PdfToTextPath:     getEnv("PDFTOTEXT_PATH", "pdftotext"),
		InboxDir:          getEnv("INBOX_DIR", "./data/inbox"),
		VectorBackend:     strings.ToLower(getEnv("VECTOR_BACKEND", "qdrant")),
		QdrantURL:         getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "passages"),
		APIPort:           getEnv("API_PORT", "9000"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.LLMTimeout, err = getDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLMMaxRetries, err = getInt("LLM_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.LLMRateLimit, err = getFloat("LLM_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.InboxDebounce, err = getDuration("INBOX_DEBOUNCE", 2*time.Second); err != nil {
		return nil, err
	}
	uploadMB, err := getInt("MAX_UPLOAD_MB", 200)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(uploadMB) << 20
	if cfg.ChunkSize, err = getInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.TitleMaxLen, err = getInt("TITLE_MAX_LEN", 100); err != nil {
		return nil, err
	}
	if cfg.ExcerptChars, err = getInt("CLASSIFY_EXCERPT_CHARS", 3000); err != nil {
		return nil, err
	}
	if cfg.IngestWorkers, err = getInt("INGEST_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getInt("RETRIEVAL_K", 6); err != nil {
		return nil, err
	}
	if cfg.RetrievalFetchK, err = getInt("RETRIEVAL_FETCH_K", 20); err != nil {
		return nil, err
	}
	if cfg.MaxRecords, err = getInt("MAX_EXPERIMENT_RECORDS", 5); err != nil {
		return nil, err
	}
	floor, err := getFloat("RETRIEVAL_SCORE_FLOOR", 0.3)
	if err != nil {
		return nil, err
	}
	cfg.RetrievalScoreFloor = float32(floor)
	lambda, err := getFloat("RETRIEVAL_MMR_LAMBDA", 0.5)
	if err != nil {
		return nil, err
	}
	cfg.RetrievalMMRLambda = float32(lambda)

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// QDRANT_VECTOR_SIZE must match the output size of the embeddings model.
	// Changing it requires recreating the collection.
	if cfg.VectorBackend == "qdrant" {
		vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
		if vectorSizeStr == "" {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
		}
		vectorSize, err := strconv.Atoi(vectorSizeStr)
		if err != nil {
			return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
		}
		cfg.QdrantVectorSize = vectorSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.StoreDir, cfg.ExperimentsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}

	switch c.VectorBackend {
	case "qdrant":
		if c.QdrantVectorSize <= 0 {
			return fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
		}
	case "memory":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be qdrant or memory, got %q", c.VectorBackend)
	}

	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be greater than 0")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TitleMaxLen <= 0 {
		return fmt.Errorf("TITLE_MAX_LEN must be greater than 0")
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("INGEST_CONCURRENCY must be greater than 0")
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be greater than 0")
	}
	if c.RetrievalFetchK < c.RetrievalK {
		return fmt.Errorf("RETRIEVAL_FETCH_K (%d) must be >= RETRIEVAL_K (%d)", c.RetrievalFetchK, c.RetrievalK)
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("MAX_EXPERIMENT_RECORDS must not be negative")
	}
	if c.RetrievalMMRLambda < 0 || c.RetrievalMMRLambda > 1 {
		return fmt.Errorf("RETRIEVAL_MMR_LAMBDA must be in [0, 1]")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// loadDotEnv loads .env from the working directory or the nearest parent that has one.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return v, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}
	return level, nil
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
