package types

// Comment is one discussion entry attached to a story. Scraper-owned fields
// come in from the HN item page; the engine fills the derived fields during
// analysis and leaves them zero until then.
type Comment struct {
	ID        string  `json:"id"`
	Author    string  `json:"author,omitempty"`
	Text      string  `json:"text"`
	Depth     int     `json:"depth"`
	ParentID  string  `json:"parent_id,omitempty"`
	Age       string  `json:"age,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Upvotes   float64 `json:"upvotes,omitempty"`

	// Derived, engine-owned. Embedding is dropped from JSON output; the
	// scores are kept so callers can render them.
	Embedding     []float32 `json:"-"`
	Novelty       float64   `json:"novelty"`
	Stance        Stance    `json:"stance"`
	Controversy   float64   `json:"controversy"`
	Relevance     float64   `json:"relevance"`
	MustReadScore float64   `json:"must_read_score"`
}

// Stance is a comment's position relative to the original post.
type Stance string

const (
	StanceAgree    Stance = "agree"
	StanceDisagree Stance = "disagree"
	StanceNeutral  Stance = "neutral"
	StanceUnknown  Stance = "unknown"
)

// Story holds the scraped item-page details for a Hacker News story.
type Story struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	// Text is the self-post body, present on Ask/Show threads.
	Text      string `json:"text,omitempty"`
	Score     int    `json:"score"`
	User      string `json:"user,omitempty"`
	Age       string `json:"age,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Summary is the structured output of the summary generator.
type Summary struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyPoints        []string `json:"key_points"`
	NextSteps        []string `json:"next_steps"`
}

// Diagnostics records which pipeline stages degraded. A degraded analysis is
// still a successful analysis; callers and tests inspect this to tell the
// difference.
type Diagnostics struct {
	DegradedStages  []string `json:"degraded_stages,omitempty"`
	SummaryDegraded bool     `json:"summary_degraded,omitempty"`
}

// ConfigUsed echoes the fully resolved configuration back to the caller for
// auditability.
type ConfigUsed struct {
	ChatModel          string    `json:"chat_model"`
	EmbedModel         string    `json:"embed_model"`
	TopK               int       `json:"topk"`
	MaxSummaryComments int       `json:"max_summary_comments"`
	MMRLambda          float64   `json:"mmr_lambda"`
	TokenBudget        int       `json:"token_budget"`
	Weights            []float64 `json:"weights"`
}

// AnalysisResult is the engine's output record.
type AnalysisResult struct {
	Summary     Summary     `json:"summary"`
	TopComments []Comment   `json:"top_comments"`
	AllComments []Comment   `json:"all_comments,omitempty"`
	ConfigUsed  ConfigUsed  `json:"config_used"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}
