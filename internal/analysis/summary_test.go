package analysis

import (
	"strings"
	"testing"

	"threadlens/internal/types"
)

func TestBuildSummaryPromptOrderAndTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CommentCharBudget = 20
	comments := []types.Comment{
		{Author: "low", Text: "short", MustReadScore: 0.1},
		{Author: "high", Text: strings.Repeat("x", 100), MustReadScore: 0.9},
	}
	prompt := buildSummaryPrompt(&types.Story{Title: "Launch"}, comments, []int{1, 0}, cfg)

	if !strings.Contains(prompt, "Story: Launch") {
		t.Fatalf("missing story line:\n%s", prompt)
	}
	hi := strings.Index(prompt, "high")
	lo := strings.Index(prompt, "low")
	if hi < 0 || lo < 0 || hi > lo {
		t.Fatalf("ranked order not preserved (hi=%d lo=%d):\n%s", hi, lo, prompt)
	}
	if strings.Contains(prompt, strings.Repeat("x", 21)) {
		t.Fatalf("long comment not truncated:\n%s", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("x", 20)+"...") {
		t.Fatalf("truncation marker missing:\n%s", prompt)
	}
}

func TestBuildSummaryPromptCapsComments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSummaryComments = 2
	comments := []types.Comment{
		{Author: "a", Text: "first"},
		{Author: "b", Text: "second"},
		{Author: "c", Text: "third"},
	}
	prompt := buildSummaryPrompt(nil, comments, []int{0, 1, 2}, cfg)
	if strings.Contains(prompt, "third") {
		t.Fatalf("cap not applied:\n%s", prompt)
	}
	if !strings.Contains(prompt, "first") || !strings.Contains(prompt, "second") {
		t.Fatalf("capped prompt dropped ranked comments:\n%s", prompt)
	}
}

func TestBuildSummaryPromptSkipsEmptyText(t *testing.T) {
	prompt := buildSummaryPrompt(nil, []types.Comment{
		{Author: "ghost", Text: "   "},
		{Author: "real", Text: "content"},
	}, []int{0, 1}, DefaultConfig())
	if strings.Contains(prompt, "ghost") {
		t.Fatalf("empty comment included:\n%s", prompt)
	}
}

func TestBuildSummaryPromptTokenBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenBudget = 40
	comments := []types.Comment{
		{Author: "a", Text: strings.Repeat("alpha ", 10)},
		{Author: "b", Text: strings.Repeat("beta ", 10)},
	}
	prompt := buildSummaryPrompt(nil, comments, []int{0, 1}, cfg)
	if !strings.Contains(prompt, "alpha") {
		t.Fatalf("first comment dropped:\n%s", prompt)
	}
	if strings.Contains(prompt, "beta") {
		t.Fatalf("token budget not enforced:\n%s", prompt)
	}
}

func TestParseSummary(t *testing.T) {
	got, err := parseSummary(`{"executive_summary":" trimmed ","key_points":["k"],"next_steps":null}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ExecutiveSummary != "trimmed" {
		t.Fatalf("executive summary = %q", got.ExecutiveSummary)
	}
	if len(got.KeyPoints) != 1 || got.KeyPoints[0] != "k" {
		t.Fatalf("key points = %v", got.KeyPoints)
	}

	if _, err := parseSummary(`{"executive_summary":"   "}`); err == nil {
		t.Fatalf("blank executive summary accepted")
	}
	if _, err := parseSummary("no json here"); err == nil {
		t.Fatalf("prose accepted")
	}
}
