package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"threadlens/internal/llm"
	"threadlens/internal/types"
)

// Stage identifies a step of the analysis pipeline. Stages are reported
// through the engine's StageFunc so callers can surface progress.
type Stage string

const (
	StageReceived    Stage = "received"
	StageEmbedding   Stage = "embedding"
	StageScoring     Stage = "scoring"
	StageSelecting   Stage = "selecting"
	StageSummarizing Stage = "summarizing"
	StageComplete    Stage = "complete"
	StageDegraded    Stage = "degraded"
)

const (
	summaryMaxTokens   = 1024
	summaryTemperature = 0.2

	// defaultRelevance is the relevance assigned when no post embedding is
	// available to compare against.
	defaultRelevance = 0.5
)

// Engine runs the full scoring, selection and summarization pipeline over one
// comment thread. A zero StageFunc and Logger are both fine.
type Engine struct {
	Embedder  llm.Embedder
	Completer llm.Completer
	Config    Config
	Logger    *log.Logger
	StageFunc func(Stage)
}

// New builds an engine with the given backends and config.
func New(embedder llm.Embedder, completer llm.Completer, cfg Config) *Engine {
	return &Engine{Embedder: embedder, Completer: completer, Config: cfg}
}

func (e *Engine) stage(s Stage) {
	if e.StageFunc != nil {
		e.StageFunc(s)
	}
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

// Analyze scores every comment, selects a diverse shortlist and produces a
// structured summary. Backend faults never fail the call: embedding failure
// drops the embedding-derived signals and summarization failure substitutes
// a fixed fallback, both recorded in Diagnostics. Only invalid input, invalid
// config and cancellation return errors.
func (e *Engine) Analyze(ctx context.Context, story *types.Story, comments []types.Comment) (*types.AnalysisResult, error) {
	e.stage(StageReceived)
	if len(comments) == 0 {
		return nil, fmt.Errorf("%w: no comments", ErrInvalidInput)
	}
	if err := e.Config.Validate(); err != nil {
		return nil, err
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	work := make([]types.Comment, len(comments))
	copy(work, comments)

	var diag types.Diagnostics
	weights := e.Config.Weights

	e.stage(StageEmbedding)
	postVec, degraded := e.embedAll(ctx, story, work)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if degraded {
		e.stage(StageDegraded)
		diag.DegradedStages = append(diag.DegradedStages, "embedding")
		weights = degradeWeights(weights)
	}

	e.stage(StageScoring)
	e.score(work, postVec, degraded, weights)

	e.stage(StageSelecting)
	order := rankByScore(work)
	picked := selectDiverse(work, order, e.Config.TopK, e.Config.MMRLambda)
	top := make([]types.Comment, len(picked))
	for i, idx := range picked {
		top[i] = work[idx]
	}
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	e.stage(StageSummarizing)
	summary, summaryOK := e.summarize(ctx, story, work, order)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	if !summaryOK {
		e.stage(StageDegraded)
		diag.SummaryDegraded = true
	}

	res := &types.AnalysisResult{
		Summary:     summary,
		TopComments: top,
		ConfigUsed:  e.Config.used(),
	}
	if e.Config.IncludeAll {
		res.AllComments = work
	}
	if len(diag.DegradedStages) > 0 || diag.SummaryDegraded {
		res.Diagnostics = &diag
	}
	e.stage(StageComplete)
	return res, nil
}

// embedAll fetches embeddings for the post and every non-empty comment in a
// single gateway call, writing comment vectors in place. It reports whether
// the embedding stage degraded.
func (e *Engine) embedAll(ctx context.Context, story *types.Story, comments []types.Comment) ([]float32, bool) {
	if e.Embedder == nil {
		return nil, true
	}

	texts := make([]string, 0, len(comments)+1)
	postText := ""
	if story != nil {
		postText = strings.TrimSpace(story.Title + "\n\n" + story.Text)
	}
	hasPost := postText != ""
	if hasPost {
		texts = append(texts, postText)
	}
	idxOf := make([]int, 0, len(comments))
	for i := range comments {
		if strings.TrimSpace(comments[i].Text) == "" {
			continue
		}
		texts = append(texts, comments[i].Text)
		idxOf = append(idxOf, i)
	}
	if len(texts) == 0 {
		return nil, false
	}

	vecs, err := e.Embedder.EmbedTexts(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		e.logf("embedding degraded: %v", err)
		return nil, true
	}

	var postVec []float32
	rest := vecs
	if hasPost {
		postVec = vecs[0]
		rest = vecs[1:]
	}
	for n, i := range idxOf {
		comments[i].Embedding = rest[n]
	}
	return postVec, false
}

// degradeWeights keeps only the controversy signal when embeddings are
// unavailable. If the caller gave controversy no weight at all, every
// composite score collapses to zero and ranking falls back to input order.
func degradeWeights(w Weights) Weights {
	if w.Controversy > 0 {
		return Weights{Controversy: 1}
	}
	return Weights{}
}

func (e *Engine) score(comments []types.Comment, postVec []float32, degraded bool, weights Weights) {
	scorable := make([]bool, len(comments))
	embeddings := make([][]float32, len(comments))
	stances := make([]types.Stance, len(comments))
	for i := range comments {
		embeddings[i] = comments[i].Embedding
		scorable[i] = strings.TrimSpace(comments[i].Text) != "" && len(comments[i].Embedding) > 0
		stances[i] = classifyStance(comments[i].Text)
		comments[i].Stance = stances[i]
	}

	novelty := noveltyScores(embeddings, scorable)
	controversy := controversyScores(stances)

	for i := range comments {
		c := &comments[i]
		c.Controversy = controversy[i]
		switch {
		case degraded:
			c.Novelty, c.Relevance = 0, 0
		case !scorable[i]:
			c.Novelty, c.Relevance = 0, defaultRelevance
		case len(postVec) > 0:
			c.Novelty, c.Relevance = novelty[i], sim01(c.Embedding, postVec)
		default:
			c.Novelty, c.Relevance = novelty[i], defaultRelevance
		}
		c.MustReadScore = compositeScore(c, weights)
	}
}

// summarize issues the single completion call and parses its response. The
// bool result reports whether the summary came from the backend.
func (e *Engine) summarize(ctx context.Context, story *types.Story, comments []types.Comment, order []int) (types.Summary, bool) {
	if e.Completer == nil {
		return fallbackSummary(), false
	}
	user := buildSummaryPrompt(story, comments, order, e.Config)
	raw, err := e.Completer.Complete(ctx, summarySystemPrompt, user, summaryMaxTokens, summaryTemperature)
	if err != nil {
		e.logf("summary degraded: %v", err)
		return fallbackSummary(), false
	}
	summary, err := parseSummary(raw)
	if err != nil {
		// Salvage prose responses: the model answered, just not in JSON.
		if text := strings.TrimSpace(raw); text != "" {
			return types.Summary{ExecutiveSummary: text}, true
		}
		e.logf("summary degraded: %v", err)
		return fallbackSummary(), false
	}
	return summary, true
}

func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}
