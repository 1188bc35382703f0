package analysis

import (
	"strings"

	"threadlens/internal/types"
)

// Cue phrases for the stance heuristic. The classifier is intentionally
// lexical: the completion backend is reserved for the single summary call,
// so stance must come from the text alone.
var (
	agreeCues = []string{
		"i agree", "agreed", "agree with", "exactly this", "well said",
		"great point", "great points", "good point", "spot on", "this is right",
		"you're right", "you are right", "couldn't agree more", "+1",
	}
	disagreeCues = []string{
		"i disagree", "disagree", "this is wrong", "that's wrong", "not true",
		"incorrect", "nonsense", "no way", "i doubt", "that's false",
		"couldn't disagree more", "hard no",
	}
)

// classifyStance labels a comment's position relative to the original post.
// Empty text is unknown; equal-strength cues in both directions are also
// unknown rather than a coin flip. Text without any cue reads as neutral.
func classifyStance(text string) types.Stance {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return types.StanceUnknown
	}

	agree := cueHits(text, agreeCues)
	disagree := cueHits(text, disagreeCues)
	switch {
	case agree > disagree:
		return types.StanceAgree
	case disagree > agree:
		return types.StanceDisagree
	case agree > 0:
		return types.StanceUnknown
	default:
		return types.StanceNeutral
	}
}

func cueHits(text string, cues []string) int {
	n := 0
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			n++
		}
	}
	return n
}
