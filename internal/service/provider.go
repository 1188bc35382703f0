package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"threadlens/internal/config"
	"threadlens/internal/llm"
	"threadlens/internal/llmclient"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 300 * time.Millisecond
	embedBatchSize = 32
)

// BuildClients constructs the embedding and completion gateways for the
// configured provider, wrapped with retry and logging middleware.
func BuildClients(ctx context.Context, cfg *config.Config, logger *log.Logger) (llm.Embedder, llm.Completer, error) {
	var (
		embedder  llm.Embedder
		completer llm.Completer
	)
	switch cfg.Provider {
	case "", "ollama":
		cli, err := llmclient.NewOllamaClient(cfg.OllamaHost, cfg.ChatModel, cfg.EmbedModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init ollama client: %w", err)
		}
		embedder, completer = cli, cli
	case "gemini":
		cli, err := llmclient.NewGeminiClient(ctx, cfg.GeminiKey, cfg.ChatModel, cfg.EmbedModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init gemini client: %w", err)
		}
		embedder, completer = cli, cli
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}

	embedder = llm.Batch(embedder, embedBatchSize)
	embedder = llm.WrapEmbedder(embedder,
		llm.WithEmbedderLogging(logger),
		llm.RetryEmbedder(retryAttempts, retryBaseDelay),
	)
	completer = llm.WrapCompleter(completer,
		llm.WithCompleterLogging(logger),
		llm.RetryCompleter(retryAttempts, retryBaseDelay),
	)
	return embedder, completer, nil
}
