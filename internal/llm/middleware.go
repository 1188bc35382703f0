package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"threadlens/internal/llmclient"
)

// Middleware decorates gateway clients to inject cross-cutting concerns
// (retries, logging). Completer and Embedder get separate decorator types
// because their call shapes differ.
type CompleterMiddleware func(Completer) Completer

type EmbedderMiddleware func(Embedder) Embedder

// WrapCompleter applies middlewares in left-to-right order.
// Example: WrapCompleter(inner, A, B) => A(B(inner))
func WrapCompleter(inner Completer, mws ...CompleterMiddleware) Completer {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

func WrapEmbedder(inner Embedder, mws ...EmbedderMiddleware) Embedder {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Retry with exponential backoff --------

// RetryCompleter retries Complete up to maxAttempts with exponential backoff
// starting at baseDelay. Permanent errors are not retried; exhausting the
// budget surfaces ErrBackendUnavailable wrapping the last error.
func RetryCompleter(maxAttempts int, baseDelay time.Duration) CompleterMiddleware {
	maxAttempts, baseDelay = retryDefaults(maxAttempts, baseDelay)
	return func(next Completer) Completer {
		return &retryingCompleter{next: next, max: maxAttempts, base: baseDelay}
	}
}

// RetryEmbedder is the embedding-side counterpart of RetryCompleter.
func RetryEmbedder(maxAttempts int, baseDelay time.Duration) EmbedderMiddleware {
	maxAttempts, baseDelay = retryDefaults(maxAttempts, baseDelay)
	return func(next Embedder) Embedder {
		return &retryingEmbedder{next: next, max: maxAttempts, base: baseDelay}
	}
}

func retryDefaults(maxAttempts int, baseDelay time.Duration) (int, time.Duration) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return maxAttempts, baseDelay
}

type retryingCompleter struct {
	next Completer
	max  int
	base time.Duration
}

func (r *retryingCompleter) Name() string { return r.next.Name() }
func (r *retryingCompleter) Close() error { return r.next.Close() }

func (r *retryingCompleter) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		resp, err := r.next.Complete(ctx, system, user, maxTokens, temperature)
		if err == nil {
			return resp, nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		if err := sleepBackoff(ctx, r.base*time.Duration(1<<i)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %v", llmclient.ErrBackendUnavailable, last)
}

// sleepBackoff waits out one backoff step, aborting when the context ends.
func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryingEmbedder struct {
	next Embedder
	max  int
	base time.Duration
}

func (r *retryingEmbedder) Name() string { return r.next.Name() }
func (r *retryingEmbedder) Close() error { return r.next.Close() }

func (r *retryingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var last error
	for i := 0; i < r.max; i++ {
		vecs, err := r.next.EmbedTexts(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return nil, err
		}
		last = err
		if i == r.max-1 {
			break
		}
		if err := sleepBackoff(ctx, r.base*time.Duration(1<<i)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", llmclient.ErrBackendUnavailable, last)
}

// -------- Logging --------

// WithCompleterLogging logs request sizes and errors. Provide a custom logger
// or nil to use log.Default().
func WithCompleterLogging(logger *log.Logger) CompleterMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Completer) Completer {
		return &loggingCompleter{next: next, log: logger}
	}
}

type loggingCompleter struct {
	next Completer
	log  *log.Logger
}

func (l *loggingCompleter) Name() string { return l.next.Name() }
func (l *loggingCompleter) Close() error { return l.next.Close() }

func (l *loggingCompleter) Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error) {
	l.log.Printf("completion request (%s): %d bytes", l.next.Name(), len(system)+len(user))
	resp, err := l.next.Complete(ctx, system, user, maxTokens, temperature)
	if err != nil {
		l.log.Printf("completion error (%s): %v", l.next.Name(), err)
	}
	return resp, err
}

// WithEmbedderLogging logs batch sizes and errors.
func WithEmbedderLogging(logger *log.Logger) EmbedderMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Embedder) Embedder {
		return &loggingEmbedder{next: next, log: logger}
	}
}

type loggingEmbedder struct {
	next Embedder
	log  *log.Logger
}

func (l *loggingEmbedder) Name() string { return l.next.Name() }
func (l *loggingEmbedder) Close() error { return l.next.Close() }

func (l *loggingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	l.log.Printf("embedding request (%s): %d texts", l.next.Name(), len(texts))
	vecs, err := l.next.EmbedTexts(ctx, texts)
	if err != nil {
		l.log.Printf("embedding error (%s): %v", l.next.Name(), err)
	}
	return vecs, err
}
