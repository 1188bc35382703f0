package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"threadlens/internal/llm"
	"threadlens/internal/types"
)

var (
	vecA = []float32{1, 0, 0, 0}
	vecB = []float32{0, 1, 0, 0}
)

func threadFixture() ([]types.Comment, *llm.FakeEmbedder) {
	comments := []types.Comment{
		{ID: "c1", Author: "alice", Text: "I agree, great points all around."},
		{ID: "c2", Author: "bob", Text: "I disagree entirely with this take."},
		{ID: "c3", Author: "carol", Text: "Not sure either way, needs more data."},
	}
	embedder := &llm.FakeEmbedder{
		Dim: 4,
		Vectors: map[string][]float32{
			comments[0].Text: vecA,
			comments[1].Text: vecB,
			comments[2].Text: vecA, // restates c1
		},
	}
	return comments, embedder
}

func TestAnalyzeFullThread(t *testing.T) {
	comments, embedder := threadFixture()
	completer := &llm.FakeCompleter{
		Response: `{"executive_summary":"The thread splits on the core claim.","key_points":["one side agrees","one side disagrees"],"next_steps":["gather more data"]}`,
	}
	cfg := DefaultConfig()
	cfg.TopK = 2
	cfg.IncludeAll = true

	eng := New(llm.Batch(embedder, 0), completer, cfg)
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.Nil(t, res.Diagnostics)

	require.Equal(t, 1, embedder.Calls)
	require.Equal(t, 1, completer.Calls)

	require.Equal(t, "The thread splits on the core claim.", res.Summary.ExecutiveSummary)
	require.Len(t, res.Summary.KeyPoints, 2)
	require.Len(t, res.Summary.NextSteps, 1)

	require.Len(t, res.AllComments, 3)
	all := res.AllComments
	require.Equal(t, types.StanceAgree, all[0].Stance)
	require.Equal(t, types.StanceDisagree, all[1].Stance)
	require.Equal(t, types.StanceNeutral, all[2].Stance)

	require.InDelta(t, 1.0, all[0].Novelty, 1e-9)
	require.InDelta(t, 1.0, all[1].Novelty, 1e-9)
	require.InDelta(t, 0.0, all[2].Novelty, 1e-9)

	// no post to compare against
	for _, c := range all {
		require.InDelta(t, 0.5, c.Relevance, 1e-9)
	}

	require.InDelta(t, 0.75, all[0].MustReadScore, 1e-9)
	require.InDelta(t, 0.75, all[1].MustReadScore, 1e-9)
	require.InDelta(t, 0.275, all[2].MustReadScore, 1e-9)

	// the near-duplicate c3 must not displace the disagreeing c2
	require.Len(t, res.TopComments, 2)
	require.Equal(t, "c1", res.TopComments[0].ID)
	require.Equal(t, "c2", res.TopComments[1].ID)

	require.Equal(t, cfg.TopK, res.ConfigUsed.TopK)
	require.Equal(t, []float64{0.45, 0.45, 0.10}, res.ConfigUsed.Weights)
}

func TestAnalyzeRelevanceAgainstPost(t *testing.T) {
	comments, embedder := threadFixture()
	story := &types.Story{ID: "100", Title: "A bold claim about software"}
	embedder.Vectors[story.Title] = vecA

	eng := New(embedder, &llm.FakeCompleter{Response: `{"executive_summary":"ok"}`}, DefaultConfig())
	eng.Config.IncludeAll = true
	res, err := eng.Analyze(context.Background(), story, comments)
	require.NoError(t, err)

	all := res.AllComments
	require.InDelta(t, 1.0, all[0].Relevance, 1e-9) // aligned with post
	require.InDelta(t, 0.5, all[1].Relevance, 1e-9) // orthogonal
	require.InDelta(t, 1.0, all[2].Relevance, 1e-9)
}

func TestAnalyzeEmbeddingFailureDegrades(t *testing.T) {
	comments := []types.Comment{
		{ID: "c1", Text: "I agree, great point."},
		{ID: "c2", Text: "I disagree entirely."},
	}
	embedder := &llm.FakeEmbedder{Err: errors.New("backend down")}
	completer := &llm.FakeCompleter{Response: `{"executive_summary":"still fine"}`}

	eng := New(embedder, completer, DefaultConfig())
	eng.Config.IncludeAll = true
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)
	require.Equal(t, []string{"embedding"}, res.Diagnostics.DegradedStages)
	require.False(t, res.Diagnostics.SummaryDegraded)

	// controversy-only scoring: both polar stances land at 0.75
	for _, c := range res.AllComments {
		require.Zero(t, c.Novelty)
		require.Zero(t, c.Relevance)
		require.InDelta(t, 0.75, c.MustReadScore, 1e-9)
	}
	require.Equal(t, "still fine", res.Summary.ExecutiveSummary)
}

func TestAnalyzeSummaryFailureFallsBack(t *testing.T) {
	comments, embedder := threadFixture()
	completer := &llm.FakeCompleter{Err: errors.New("model offline")}

	eng := New(embedder, completer, DefaultConfig())
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.NotNil(t, res.Diagnostics)
	require.True(t, res.Diagnostics.SummaryDegraded)
	require.Empty(t, res.Diagnostics.DegradedStages)
	require.Equal(t, fallbackExecutiveSummary, res.Summary.ExecutiveSummary)
	require.NotEmpty(t, res.TopComments)
}

func TestAnalyzeProseSummarySalvaged(t *testing.T) {
	comments, embedder := threadFixture()
	completer := &llm.FakeCompleter{Response: "The thread mostly debates the benchmark method."}

	eng := New(embedder, completer, DefaultConfig())
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.Nil(t, res.Diagnostics)
	require.Equal(t, "The thread mostly debates the benchmark method.", res.Summary.ExecutiveSummary)
	require.Empty(t, res.Summary.KeyPoints)
}

func TestAnalyzeBlankSummaryFallsBack(t *testing.T) {
	comments, embedder := threadFixture()
	completer := &llm.FakeCompleter{Response: "   \n"}

	eng := New(embedder, completer, DefaultConfig())
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.True(t, res.Diagnostics.SummaryDegraded)
	require.Equal(t, fallbackExecutiveSummary, res.Summary.ExecutiveSummary)
}

func TestAnalyzeFencedSummaryResponse(t *testing.T) {
	comments, embedder := threadFixture()
	completer := &llm.FakeCompleter{
		Response: "Here you go:\n```json\n{\"executive_summary\":\"fenced\",\"key_points\":[]}\n```",
	}

	eng := New(embedder, completer, DefaultConfig())
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.Nil(t, res.Diagnostics)
	require.Equal(t, "fenced", res.Summary.ExecutiveSummary)
}

func TestAnalyzeEmptyTextDefaults(t *testing.T) {
	comments := []types.Comment{
		{ID: "c1", Text: "A substantive remark about the topic."},
		{ID: "c2", Text: ""},
	}
	embedder := &llm.FakeEmbedder{Dim: 4}
	eng := New(embedder, &llm.FakeCompleter{Response: `{"executive_summary":"ok"}`}, DefaultConfig())
	eng.Config.IncludeAll = true
	res, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)

	empty := res.AllComments[1]
	require.Equal(t, types.StanceUnknown, empty.Stance)
	require.Zero(t, empty.Novelty)
	require.Zero(t, empty.Controversy)
	require.InDelta(t, 0.5, empty.Relevance, 1e-9)
}

func TestAnalyzeInvalidInput(t *testing.T) {
	eng := New(&llm.FakeEmbedder{}, &llm.FakeCompleter{}, DefaultConfig())
	_, err := eng.Analyze(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{Relevance: 0.5, Novelty: 0.5, Controversy: 0.5}
	eng := New(&llm.FakeEmbedder{}, &llm.FakeCompleter{}, cfg)
	_, err := eng.Analyze(context.Background(), nil, []types.Comment{{ID: "c1", Text: "hi"}})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	eng := New(&llm.FakeEmbedder{}, &llm.FakeCompleter{}, DefaultConfig())
	_, err := eng.Analyze(ctx, nil, []types.Comment{{ID: "c1", Text: "hi"}})
	require.ErrorIs(t, err, ErrCancelled)
}

func TestAnalyzeStageEvents(t *testing.T) {
	comments, embedder := threadFixture()
	eng := New(embedder, &llm.FakeCompleter{Response: `{"executive_summary":"ok"}`}, DefaultConfig())
	var stages []Stage
	eng.StageFunc = func(s Stage) { stages = append(stages, s) }

	_, err := eng.Analyze(context.Background(), nil, comments)
	require.NoError(t, err)
	require.Equal(t, []Stage{
		StageReceived, StageEmbedding, StageScoring,
		StageSelecting, StageSummarizing, StageComplete,
	}, stages)
}

func TestAnalyzeDeterministic(t *testing.T) {
	comments, _ := threadFixture()
	run := func() *types.AnalysisResult {
		_, embedder := threadFixture()
		eng := New(embedder, &llm.FakeCompleter{Response: `{"executive_summary":"ok"}`}, DefaultConfig())
		res, err := eng.Analyze(context.Background(), nil, comments)
		require.NoError(t, err)
		return res
	}
	first := run()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, run())
	}
}
