package llm

import "context"

// Batch splits embedding requests into bounded batches and normalizes the
// result: every input index gets a vector, with empty strings and missing
// vectors replaced by a zero vector of the batch's dimension. Callers rely
// on index alignment.
func Batch(next Embedder, size int) Embedder {
	if size <= 0 {
		size = 32
	}
	return &batched{next: next, size: size}
}

type batched struct {
	next Embedder
	size int
}

func (b *batched) Name() string { return b.next.Name() }
func (b *batched) Close() error { return b.next.Close() }

func (b *batched) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += b.size {
		end := i + b.size
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := b.next.EmbedTexts(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}

	dim := 0
	for _, v := range all {
		if len(v) > 0 {
			dim = len(v)
			break
		}
	}
	for i, v := range all {
		if len(v) == 0 {
			all[i] = make([]float32, dim)
		}
	}
	return all, nil
}
