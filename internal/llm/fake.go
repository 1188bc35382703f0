package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// FakeEmbedder returns deterministic unit vectors derived from the text
// content, for offline/testing. Identical texts always map to identical
// vectors, so similarity-based scoring stays reproducible.
type FakeEmbedder struct {
	Dim int
	// Vectors, when set, overrides derivation: texts are matched by exact
	// content first, then by call order.
	Vectors map[string][]float32
	// Err, when set, makes every call fail (for degradation tests).
	Err error

	Calls int
}

func (f *FakeEmbedder) Name() string { return "FakeEmbedder" }
func (f *FakeEmbedder) Close() error { return nil }

func (f *FakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	dim := f.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.Vectors != nil {
			if v, ok := f.Vectors[t]; ok {
				out[i] = v
				continue
			}
		}
		if t == "" {
			out[i] = make([]float32, dim)
			continue
		}
		out[i] = deriveVector(t, dim)
	}
	return out, nil
}

// deriveVector hashes the text into a stable pseudo-random unit vector.
func deriveVector(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, dim)
	var norm float64
	for i := 0; i < dim; i++ {
		seed := binary.LittleEndian.Uint32(sum[(i*4)%28:])
		x := float64(seed%2000)/1000.0 - 1.0
		v[i] = float32(x)
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// FakeCompleter returns a fixed response, for offline/testing.
type FakeCompleter struct {
	Response string
	Err      error

	Calls      int
	LastSystem string
	LastUser   string
}

func (f *FakeCompleter) Name() string { return "FakeCompleter" }
func (f *FakeCompleter) Close() error { return nil }

func (f *FakeCompleter) Complete(_ context.Context, system, user string, _ int, _ float64) (string, error) {
	f.Calls++
	f.LastSystem = system
	f.LastUser = user
	if f.Err != nil {
		return "", f.Err
	}
	return f.Response, nil
}
