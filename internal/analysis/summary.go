package analysis

import (
	"fmt"
	"strings"

	"threadlens/internal/llmclient"
	"threadlens/internal/types"
	"threadlens/internal/util/jsonutil"
)

const summarySystemPrompt = `You summarize discussion threads. Respond with a single JSON object:
{"executive_summary": "...", "key_points": ["..."], "next_steps": ["..."]}
executive_summary is 2-4 sentences. key_points lists the main claims and
disagreements. next_steps lists concrete follow-ups readers could take.
Output only the JSON object.`

const fallbackExecutiveSummary = "Summary generation was unavailable; the ranked comments below were selected by relevance, novelty and controversy scores."

// buildSummaryPrompt assembles the single completion request from the story
// and the ranked shortlist. Comments are included in rank order until either
// the comment cap or the token budget is exhausted; individual comments are
// truncated to the per-comment character budget first so one long comment
// cannot starve the rest.
func buildSummaryPrompt(story *types.Story, comments []types.Comment, order []int, cfg Config) string {
	var b strings.Builder
	if story != nil && story.Title != "" {
		fmt.Fprintf(&b, "Story: %s\n", story.Title)
		if story.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", story.URL)
		}
	}
	b.WriteString("Top comments, highest ranked first:\n")

	included := 0
	for _, idx := range order {
		if included >= cfg.MaxSummaryComments {
			break
		}
		c := comments[idx]
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if len(text) > cfg.CommentCharBudget {
			text = text[:cfg.CommentCharBudget] + "..."
		}
		line := fmt.Sprintf("[%d] %s (stance=%s, score=%.2f): %s\n",
			included+1, c.Author, c.Stance, c.MustReadScore, text)
		if llmclient.CountTokens(b.String()+line) > cfg.TokenBudget {
			break
		}
		b.WriteString(line)
		included++
	}
	return b.String()
}

// parseSummary extracts the structured summary from a model response,
// tolerating code fences and surrounding prose.
func parseSummary(raw string) (types.Summary, error) {
	var payload struct {
		ExecutiveSummary string   `json:"executive_summary"`
		KeyPoints        []string `json:"key_points"`
		NextSteps        []string `json:"next_steps"`
	}
	if err := jsonutil.UnmarshalLenient(raw, &payload); err != nil {
		return types.Summary{}, fmt.Errorf("parse summary: %w", err)
	}
	if strings.TrimSpace(payload.ExecutiveSummary) == "" {
		return types.Summary{}, fmt.Errorf("parse summary: %w", llmclient.ErrEmptyResponse)
	}
	return types.Summary{
		ExecutiveSummary: strings.TrimSpace(payload.ExecutiveSummary),
		KeyPoints:        payload.KeyPoints,
		NextSteps:        payload.NextSteps,
	}, nil
}

// fallbackSummary stands in when the completion backend fails; the scores and
// the shortlist remain valid without it.
func fallbackSummary() types.Summary {
	return types.Summary{ExecutiveSummary: fallbackExecutiveSummary}
}
