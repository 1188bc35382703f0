package llm

import "context"

// Embedder turns texts into fixed-length vectors. Implementations must
// preserve 1:1 index correspondence with the input and return the same
// dimensionality for every call in a process lifetime.
type Embedder interface {
	Name() string
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Completer sends a prompt to a chat-completion backend and returns the raw
// response text. Callers must treat the result as untrusted, unstructured
// output.
type Completer interface {
	Name() string
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error)
	Close() error
}
