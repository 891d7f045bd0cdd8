// Package config loads configuration from environment variables and .env files.
package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the corpus QA service
type Config struct {
	// Server
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Corpus artifacts, built offline
	EmbeddingsPath string `env:"EMBEDDINGS_PATH" envDefault:"data/vectorstore/embeddings.npy"`
	PassagesPath   string `env:"PASSAGES_PATH" envDefault:"data/vectorstore/passages.jsonl"`

	// Ollama (embedding + generation)
	OllamaURL          string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL" envDefault:"all-minilm"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION" envDefault:"0"`
	EmbedCacheSize     int    `env:"EMBED_CACHE_SIZE" envDefault:"512"`
	LLMModel           string `env:"LLM_MODEL" envDefault:"llama3.2"`

	// Cross-encoder scorer sidecar
	RerankURL   string `env:"RERANK_URL" envDefault:"http://localhost:8500"`
	RerankModel string `env:"RERANK_MODEL" envDefault:"cross-encoder/ms-marco-MiniLM-L-6-v2"`

	// Retrieval policy
	SemanticWeight float64 `env:"SEMANTIC_WEIGHT" envDefault:"0.7"`
	KeywordWeight  float64 `env:"KEYWORD_WEIGHT" envDefault:"0.3"`
	DefaultTopK    int     `env:"DEFAULT_TOP_K" envDefault:"10"`
	ExpansionCount int     `env:"EXPANSION_COUNT" envDefault:"3"`
}

// Load loads configuration from .env file (if present) and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
