package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

// EmbeddingConfig contains configuration for the embedding client.
type EmbeddingConfig struct {
	// APIKey is the API key. If empty, uses OPENAI_API_KEY env var.
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a local inference server.
	BaseURL string
	// Model is the embedding model name.
	Model string
}

// EmbeddingClient computes embeddings through an OpenAI-compatible API.
type EmbeddingClient struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewEmbeddingClient creates a new embedding client.
func NewEmbeddingClient(cfg EmbeddingConfig) (*EmbeddingClient, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}

	return &EmbeddingClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	return resp.Data[0].Embedding, nil
}
