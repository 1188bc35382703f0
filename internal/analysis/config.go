package analysis

import (
	"fmt"
	"math"

	"threadlens/internal/types"
)

// Weights is the immutable relevance/novelty/controversy triple used for the
// composite must-read score. The three components must sum to 1.
type Weights struct {
	Relevance   float64 `json:"relevance"`
	Novelty     float64 `json:"novelty"`
	Controversy float64 `json:"controversy"`
}

const weightSumTolerance = 1e-6

// DefaultWeights favors relevance and novelty, with controversy as a
// tie-breaker signal.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.45, Novelty: 0.45, Controversy: 0.10}
}

func (w Weights) sum() float64 { return w.Relevance + w.Novelty + w.Controversy }

func (w Weights) slice() []float64 { return []float64{w.Relevance, w.Novelty, w.Controversy} }

// Config is the fully resolved engine configuration. Precedence resolution
// (call-site args over env over constants) happens at the boundary; the
// engine only validates and applies.
type Config struct {
	TopK               int
	MaxSummaryComments int
	MMRLambda          float64
	TokenBudget        int
	CommentCharBudget  int
	Weights            Weights
	IncludeAll         bool

	// Echoed into config_used for auditability.
	ChatModel  string
	EmbedModel string
}

func DefaultConfig() Config {
	return Config{
		TopK:               10,
		MaxSummaryComments: 40,
		MMRLambda:          0.75,
		TokenBudget:        2000,
		CommentCharBudget:  500,
		Weights:            DefaultWeights(),
	}
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: topk must be positive, got %d", ErrInvalidConfig, c.TopK)
	}
	if c.MaxSummaryComments <= 0 {
		return fmt.Errorf("%w: max_summary_comments must be positive, got %d", ErrInvalidConfig, c.MaxSummaryComments)
	}
	if c.MMRLambda < 0 || c.MMRLambda > 1 {
		return fmt.Errorf("%w: mmr_lambda must be in [0,1], got %g", ErrInvalidConfig, c.MMRLambda)
	}
	if w := c.Weights; w.Relevance < 0 || w.Novelty < 0 || w.Controversy < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	if s := c.Weights.sum(); math.Abs(s-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %g", ErrInvalidConfig, s)
	}
	return nil
}

func (c Config) used() types.ConfigUsed {
	return types.ConfigUsed{
		ChatModel:          c.ChatModel,
		EmbedModel:         c.EmbedModel,
		TopK:               c.TopK,
		MaxSummaryComments: c.MaxSummaryComments,
		MMRLambda:          c.MMRLambda,
		TokenBudget:        c.TokenBudget,
		Weights:            c.Weights.slice(),
	}
}
