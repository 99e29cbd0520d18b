package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

// isolateEnv points every path at a temp dir and clears keys the tests touch.
func isolateEnv(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("DB_PATH", filepath.Join(tmp, "db", "test.db"))
	t.Setenv("STORE_DIR", filepath.Join(tmp, "documents"))
	t.Setenv("EXPERIMENTS_DIR", filepath.Join(tmp, "experiments"))
	t.Setenv("INBOX_DIR", filepath.Join(tmp, "inbox"))
	for _, key := range []string{
		"LLM_PROVIDER", "ANTHROPIC_API_KEY", "VECTOR_BACKEND", "QDRANT_VECTOR_SIZE",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_K", "RETRIEVAL_FETCH_K",
		"RETRIEVAL_SCORE_FLOOR", "RETRIEVAL_MMR_LAMBDA", "LLM_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
		"INBOX_DEBOUNCE", "MAX_UPLOAD_MB", "MAX_EXPERIMENT_RECORDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:    "valid qdrant config",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "768"},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.QdrantVectorSize == 768 && cfg.VectorBackend == "qdrant"
			},
		},
		{
			name:    "missing QDRANT_VECTOR_SIZE",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "invalid QDRANT_VECTOR_SIZE",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "invalid"},
			wantErr: true,
		},
		{
			name:    "zero QDRANT_VECTOR_SIZE",
			env:     map[string]string{"QDRANT_VECTOR_SIZE": "0"},
			wantErr: true,
		},
		{
			name:    "memory backend does not need vector size",
			env:     map[string]string{"VECTOR_BACKEND": "memory"},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.VectorBackend == "memory"
			},
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"VECTOR_BACKEND": "faiss"},
			wantErr: true,
		},
		{
			name:    "overlap not smaller than chunk size",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"},
			wantErr: true,
		},
		{
			name:    "fetch_k smaller than k",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "RETRIEVAL_K": "10", "RETRIEVAL_FETCH_K": "5"},
			wantErr: true,
		},
		{
			name:    "anthropic provider without key",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "LLM_PROVIDER": "anthropic"},
			wantErr: true,
		},
		{
			name:    "anthropic provider with key",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "LLM_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "sk-test"},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.LLMProvider == "anthropic" && cfg.AnthropicAPIKey == "sk-test"
			},
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "LLM_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "invalid inbox debounce",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "INBOX_DEBOUNCE": "2"},
			wantErr: true,
		},
		{
			name:    "zero upload limit",
			env:     map[string]string{"VECTOR_BACKEND": "memory", "MAX_UPLOAD_MB": "0"},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			env:  map[string]string{"VECTOR_BACKEND": "memory"},
			checkConfig: func(cfg *Config) bool {
				return cfg.ChunkSize == 1000 &&
					cfg.ChunkOverlap == 200 &&
					cfg.TitleMaxLen == 100 &&
					cfg.RetrievalK == 6 &&
					cfg.RetrievalFetchK == 20 &&
					cfg.RetrievalScoreFloor == float32(0.3) &&
					cfg.LLMTimeout == 60*time.Second &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.InboxDebounce == 2*time.Second &&
					cfg.MaxUploadBytes == 200<<20 &&
					cfg.MaxRecords == 5 &&
					cfg.APIPort == "9000"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RESEARCH_RAG_TEST_KEY", "value")
	if got := getEnv("RESEARCH_RAG_TEST_KEY", "default"); got != "value" {
		t.Errorf("getEnv() = %q, want %q", got, "value")
	}
	if got := getEnv("RESEARCH_RAG_MISSING_KEY", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		cfg := &Config{LogLevel: slog.LevelDebug, LogFormat: format}
		logger := NewLogger(cfg)
		if logger == nil {
			t.Fatalf("NewLogger(%s) returned nil", format)
		}
		if !logger.Enabled(t.Context(), slog.LevelDebug) {
			t.Errorf("NewLogger(%s) should enable debug level", format)
		}
	}
}
