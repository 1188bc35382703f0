package llmclient

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client, for
// running the analysis against a hosted backend instead of a local Ollama.
type GeminiClient struct {
	cli        *genai.Client
	chatModel  string
	embedModel string
}

// NewGeminiClient creates a Gemini client. An empty apiKey falls back to the
// GEMINI_API_KEY environment variable inside the genai client.
func NewGeminiClient(ctx context.Context, apiKey, chatModel, embedModel string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, chatModel: chatModel, embedModel: embedModel}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.chatModel }
func (g *GeminiClient) Close() error { return nil }

// EmbedTexts embeds a batch of texts in one EmbedContent call, preserving
// index correspondence with the input.
func (g *GeminiClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: t}}})
	}
	resp, err := g.cli.Models.EmbedContent(ctx, g.embedModel, contents, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, NewPermanentError(fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrMalformedResponse, got, len(texts)))
	}
	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, NewPermanentError(fmt.Errorf("%w: nil embedding at index %d", ErrMalformedResponse, i))
		}
		out[i] = e.Values
	}
	return out, nil
}

// Complete sends one generation request and returns the raw response text.
func (g *GeminiClient) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.chatModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: user}}}}, cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
