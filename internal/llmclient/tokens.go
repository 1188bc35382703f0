package llmclient

import "strings"

// CountTokens estimates the token count of a text. Both backends tokenize at
// roughly four characters per token for English prose; an estimate is enough
// for budget truncation.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
