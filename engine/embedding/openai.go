package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embedding model dimensions.
const (
	openaiSmallDimensions = 1536
	openaiLargeDimensions = 3072
)

// OpenAIProvider generates embeddings via the OpenAI embeddings API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIProvider creates an OpenAI embedding provider. apiKey must be
// non-empty; an unset key is a configuration error, not a runtime fallback.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("embedding: OpenAI API key not set")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dim := openaiSmallDimensions
	if model == string(openai.LargeEmbedding3) {
		dim = openaiLargeDimensions
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		dim:    dim,
	}, nil
}

// Embed implements Provider.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("embedding: cannot embed empty text")
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding: openai returned no data")
	}
	return resp.Data[0].Embedding, nil
}

// ModelName implements Provider.
func (p *OpenAIProvider) ModelName() string { return p.model }

// Dimensions implements Provider.
func (p *OpenAIProvider) Dimensions() int { return p.dim }
