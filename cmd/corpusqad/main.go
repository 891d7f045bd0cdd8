package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmaier/corpusqa/internal/config"
	"github.com/dmaier/corpusqa/internal/corpus"
	"github.com/dmaier/corpusqa/internal/embedder"
	"github.com/dmaier/corpusqa/internal/expander"
	"github.com/dmaier/corpusqa/internal/llm"
	"github.com/dmaier/corpusqa/internal/reranker"
	"github.com/dmaier/corpusqa/internal/retrieval"
	"github.com/dmaier/corpusqa/internal/server"
	"github.com/dmaier/corpusqa/internal/service"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting corpus QA service",
		"http_port", cfg.HTTPPort,
		"embeddings", cfg.EmbeddingsPath,
		"passages", cfg.PassagesPath,
	)

	// Load the corpus artifacts built by the offline indexing step.
	c, err := corpus.Load(cfg.EmbeddingsPath, cfg.PassagesPath)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	slog.Info("loaded corpus", "passages", c.Size(), "dimension", c.Dimension())

	// Initialize Ollama embedder with an LRU cache in front of it.
	ollamaEmbed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL:   cfg.OllamaURL,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
	})
	embed, err := embedder.NewCached(ollamaEmbed, cfg.EmbedCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create embedding cache: %w", err)
	}
	slog.Info("initialized Ollama embedder", "model", cfg.EmbeddingModel, "dimension", ollamaEmbed.Dimension())

	// The corpus embeddings and the query embedder must agree on
	// dimensionality, otherwise every cosine score would be garbage.
	if c.Dimension() != embed.Dimension() {
		return fmt.Errorf("embedding dimension mismatch: corpus has %d, model %q produces %d",
			c.Dimension(), cfg.EmbeddingModel, embed.Dimension())
	}

	// Initialize Ollama LLM for expansion and answer generation
	llmClient := llm.NewOllamaClient(
		llm.WithBaseURL(cfg.OllamaURL),
		llm.WithModel(cfg.LLMModel),
	)
	slog.Info("initialized Ollama LLM", "model", cfg.LLMModel)

	// Query expansion degrades to the original query on failure, so the
	// service starts fine even when the LLM is unreachable.
	exp := expander.NewLLMExpander(llmClient,
		expander.WithModel(cfg.LLMModel),
		expander.WithPhrasings(cfg.ExpansionCount),
	)

	// Cross-encoder scoring sidecar
	scorer := reranker.NewHTTPCrossEncoder(cfg.RerankURL,
		reranker.WithModel(cfg.RerankModel),
	)
	slog.Info("initialized cross-encoder client", "url", cfg.RerankURL, "model", cfg.RerankModel)

	retriever := retrieval.New(c, embed,
		retrieval.WithWeights(cfg.SemanticWeight, cfg.KeywordWeight),
		retrieval.WithExpander(exp),
		retrieval.WithCrossEncoder(scorer),
	)

	qa := service.NewQAService(retriever, llmClient,
		service.WithAnswerModel(cfg.LLMModel),
	)

	httpServer := server.NewHTTPServer(qa, server.HTTPServerConfig{
		Port:        cfg.HTTPPort,
		DefaultTopK: cfg.DefaultTopK,
		Logger:      slog.Default(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ embedder.Embedder     = (*embedder.OllamaEmbedder)(nil)
	_ embedder.Embedder     = (*embedder.Cached)(nil)
	_ llm.LLM               = (*llm.OllamaClient)(nil)
	_ expander.Expander     = (*expander.LLMExpander)(nil)
	_ reranker.CrossEncoder = (*reranker.HTTPCrossEncoder)(nil)
)
