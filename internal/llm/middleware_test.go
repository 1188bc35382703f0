package llm

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"threadlens/internal/llmclient"
)

// flakyCompleter fails the first failN calls, then succeeds.
type flakyCompleter struct {
	failN int
	err   error
	calls int
}

func (f *flakyCompleter) Name() string { return "flaky" }
func (f *flakyCompleter) Close() error { return nil }

func (f *flakyCompleter) Complete(context.Context, string, string, int, float64) (string, error) {
	f.calls++
	if f.calls <= f.failN {
		return "", f.err
	}
	return "ok", nil
}

type flakyEmbedder struct {
	failN int
	err   error
	calls int
}

func (f *flakyEmbedder) Name() string { return "flaky" }
func (f *flakyEmbedder) Close() error { return nil }

func (f *flakyEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestRetryCompleterRecovers(t *testing.T) {
	inner := &flakyCompleter{failN: 2, err: errors.New("transient")}
	c := WrapCompleter(inner, RetryCompleter(3, time.Millisecond))

	out, err := c.Complete(context.Background(), "", "hi", 0, 0)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "ok" || inner.calls != 3 {
		t.Fatalf("out = %q, calls = %d", out, inner.calls)
	}
}

func TestRetryCompleterExhaustion(t *testing.T) {
	inner := &flakyCompleter{failN: 10, err: errors.New("transient")}
	c := WrapCompleter(inner, RetryCompleter(3, time.Millisecond))

	_, err := c.Complete(context.Background(), "", "hi", 0, 0)
	if !errors.Is(err, llmclient.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if inner.calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryCompleterPermanentShortCircuit(t *testing.T) {
	inner := &flakyCompleter{failN: 10, err: &llmclient.PermanentError{Err: errors.New("bad request")}}
	c := WrapCompleter(inner, RetryCompleter(3, time.Millisecond))

	_, err := c.Complete(context.Background(), "", "hi", 0, 0)
	var pErr *llmclient.PermanentError
	if !errors.As(err, &pErr) {
		t.Fatalf("err = %v, want PermanentError", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryCompleterCancelledContext(t *testing.T) {
	inner := &flakyCompleter{failN: 10, err: errors.New("transient")}
	c := WrapCompleter(inner, RetryCompleter(3, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "", "hi", 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryCompleterNoBackoffAfterFinalAttempt(t *testing.T) {
	inner := &flakyCompleter{failN: 10, err: errors.New("transient")}
	c := WrapCompleter(inner, RetryCompleter(1, time.Hour))

	start := time.Now()
	_, err := c.Complete(context.Background(), "", "hi", 0, 0)
	if !errors.Is(err, llmclient.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("final attempt slept %v", elapsed)
	}
}

func TestRetryCompleterCancelDuringBackoff(t *testing.T) {
	inner := &flakyCompleter{failN: 10, err: errors.New("transient")}
	c := WrapCompleter(inner, RetryCompleter(3, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Complete(ctx, "", "hi", 0, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("backoff ignored cancellation for %v", elapsed)
	}
	if inner.calls != 1 {
		t.Fatalf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryEmbedderExhaustion(t *testing.T) {
	inner := &flakyEmbedder{failN: 10, err: errors.New("transient")}
	e := WrapEmbedder(inner, RetryEmbedder(2, time.Millisecond))

	_, err := e.EmbedTexts(context.Background(), []string{"a"})
	if !errors.Is(err, llmclient.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if inner.calls != 2 {
		t.Fatalf("calls = %d, want 2", inner.calls)
	}
}

func TestWrapOrder(t *testing.T) {
	var buf strings.Builder
	logger := log.New(&buf, "", 0)

	// Logging outermost: the request line must appear even when retries
	// happen underneath.
	inner := &flakyCompleter{failN: 1, err: errors.New("transient")}
	c := WrapCompleter(inner,
		WithCompleterLogging(logger),
		RetryCompleter(2, time.Millisecond),
	)
	if _, err := c.Complete(context.Background(), "sys", "user", 0, 0); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(buf.String(), "completion request") {
		t.Fatalf("log = %q", buf.String())
	}
	if strings.Count(buf.String(), "completion request") != 1 {
		t.Fatalf("logging must wrap the retry layer, log = %q", buf.String())
	}
}

func TestBatchSplitsCalls(t *testing.T) {
	inner := &FakeEmbedder{Dim: 4}
	e := Batch(inner, 2)

	vecs, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("vecs = %d", len(vecs))
	}
	if inner.Calls != 3 {
		t.Fatalf("calls = %d, want 3", inner.Calls)
	}
}

func TestBatchZeroFillsEmptyTexts(t *testing.T) {
	inner := &FakeEmbedder{Dim: 4}
	e := Batch(inner, 32)

	vecs, err := e.EmbedTexts(context.Background(), []string{"", "hello", ""})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("vecs = %d", len(vecs))
	}
	for _, i := range []int{0, 2} {
		if len(vecs[i]) != 4 {
			t.Fatalf("vec %d dim = %d", i, len(vecs[i]))
		}
		for _, x := range vecs[i] {
			if x != 0 {
				t.Fatalf("vec %d = %v, want zero vector", i, vecs[i])
			}
		}
	}
}

func TestBatchEmptyInput(t *testing.T) {
	inner := &FakeEmbedder{Dim: 4}
	e := Batch(inner, 32)

	vecs, err := e.EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 0 || inner.Calls != 0 {
		t.Fatalf("vecs = %d, calls = %d", len(vecs), inner.Calls)
	}
}

func TestBatchPropagatesError(t *testing.T) {
	inner := &FakeEmbedder{Err: errors.New("down")}
	e := Batch(inner, 2)

	if _, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Fatalf("expected error")
	}
}
