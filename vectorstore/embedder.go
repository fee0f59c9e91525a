package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const DefaultEmbeddingModel = "gemini-embedding-001"

// Embedder turns query text into a vector comparable with the stored embeddings.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// contentEmbedder is the slice of *genai.Models the embedder needs.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder computes query embeddings with the Gemini embedding API.
type GeminiEmbedder struct {
	model      string
	dimensions int32
	client     contentEmbedder
}

func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dimensions int) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &GeminiEmbedder{model: model, dimensions: int32(dimensions), client: client.Models}, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("text is required")
	}
	config := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_QUERY"}
	if e.dimensions > 0 {
		config.OutputDimensionality = genai.Ptr(e.dimensions)
	}
	resp, err := e.client.EmbedContent(ctx, e.model, []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: text}},
	}}, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini embed: empty response")
	}
	return resp.Embeddings[0].Values, nil
}
