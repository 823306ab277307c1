package search

import "strings"

// Tokenize splits text into lowercase terms on whitespace.
func Tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}
