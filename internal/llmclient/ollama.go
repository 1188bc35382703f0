package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient calls a local Ollama server for both embeddings and chat
// completions. It only focuses on the API calls themselves; cross-cutting
// concerns (retries, logging) are applied via middleware in internal/llm.
type OllamaClient struct {
	http       *http.Client
	host       string
	chatModel  string
	embedModel string
}

// NewOllamaClient creates a client against the given host, e.g.
// "http://localhost:11434".
func NewOllamaClient(host, chatModel, embedModel string) (*OllamaClient, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, fmt.Errorf("ollama host is required")
	}
	return &OllamaClient{
		http:       &http.Client{Timeout: 60 * time.Second},
		host:       host,
		chatModel:  chatModel,
		embedModel: embedModel,
	}, nil
}

func (c *OllamaClient) Name() string { return "Ollama:" + c.chatModel }
func (c *OllamaClient) Close() error { return nil }

type ollamaEmbedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResp struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedTexts embeds a batch of texts in one request. The response must hold
// one vector per input text; anything else is a malformed response.
func (c *OllamaClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	var out ollamaEmbedResp
	if err := c.post(ctx, "/api/embed", ollamaEmbedReq{Model: c.embedModel, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, NewPermanentError(fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrMalformedResponse, len(out.Embeddings), len(texts)))
	}
	return out.Embeddings, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatReq struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResp struct {
	Message ollamaMessage `json:"message"`
	// Some OpenAI-compatible proxies answer with choices instead.
	Choices []struct {
		Message ollamaMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a single chat request and returns the raw response text.
func (c *OllamaClient) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	opts := map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	req := ollamaChatReq{
		Model:  c.chatModel,
		Stream: false,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: opts,
	}
	var out ollamaChatResp
	if err := c.post(ctx, "/api/chat", req, &out); err != nil {
		return "", err
	}
	content := out.Message.Content
	if content == "" && len(out.Choices) > 0 {
		content = out.Choices[0].Message.Content
	}
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *OllamaClient) post(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(body) > max {
			body = body[:max]
		}
		err := fmt.Errorf("ollama: unexpected status %s: %s", resp.Status, string(body))
		// 4xx (except 429) will not resolve with retries.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return NewPermanentError(err)
		}
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
