package analysis

import (
	"reflect"
	"testing"

	"threadlens/internal/types"
)

func TestSelectDiverseLength(t *testing.T) {
	comments := []types.Comment{
		{MustReadScore: 0.9, Embedding: []float32{1, 0}},
		{MustReadScore: 0.8, Embedding: []float32{0, 1}},
		{MustReadScore: 0.7, Embedding: []float32{1, 1}},
	}
	order := []int{0, 1, 2}
	if got := selectDiverse(comments, order, 2, 0.75); len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got := selectDiverse(comments, order, 10, 0.75); len(got) != 3 {
		t.Fatalf("k beyond pool: len = %d, want 3", len(got))
	}
	if got := selectDiverse(comments, order, 0, 0.75); got != nil {
		t.Fatalf("k=0: got %v, want nil", got)
	}
}

func TestSelectDiversePenalizesNearDuplicates(t *testing.T) {
	// index 1 nearly duplicates the seed; index 2 is orthogonal with a
	// slightly lower composite score and should win the second slot
	comments := []types.Comment{
		{MustReadScore: 0.90, Embedding: []float32{1, 0}},
		{MustReadScore: 0.85, Embedding: []float32{0.999, 0.04}},
		{MustReadScore: 0.80, Embedding: []float32{0, 1}},
	}
	got := selectDiverse(comments, []int{0, 1, 2}, 2, 0.5)
	want := []int{0, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selection = %v, want %v", got, want)
	}
}

func TestSelectDiverseTieKeepsRankedOrder(t *testing.T) {
	// identical scores, no embeddings: every round ties and the earlier
	// ranked candidate must win
	comments := []types.Comment{
		{MustReadScore: 0.5},
		{MustReadScore: 0.5},
		{MustReadScore: 0.5},
	}
	got := selectDiverse(comments, []int{0, 1, 2}, 3, 0.75)
	want := []int{0, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("selection = %v, want %v", got, want)
	}
}

func TestSelectDiverseDeterministic(t *testing.T) {
	comments := []types.Comment{
		{MustReadScore: 0.9, Embedding: []float32{1, 0, 0}},
		{MustReadScore: 0.8, Embedding: []float32{0.7, 0.7, 0}},
		{MustReadScore: 0.7, Embedding: []float32{0, 1, 0}},
		{MustReadScore: 0.6, Embedding: []float32{0, 0, 1}},
	}
	order := []int{0, 1, 2, 3}
	first := selectDiverse(comments, order, 3, 0.75)
	for i := 0; i < 20; i++ {
		if got := selectDiverse(comments, order, 3, 0.75); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: selection %v != %v", i, got, first)
		}
	}
}
