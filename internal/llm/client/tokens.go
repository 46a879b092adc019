package llmclient

import "strings"

// CountTokens provides a rough token count for text when a provider does not
// report usage. It counts whitespace-delimited words and falls back to a
// character-based heuristic, taking whichever is larger.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text) / 4
	return max(words, chars)
}

// EstimateUsage fills a Usage from the prompt and completion text.
func EstimateUsage(req Request, completion string) Usage {
	p := CountTokens(req.SystemPrompt) + CountTokens(req.UserPrompt)
	c := CountTokens(completion)
	return Usage{PromptTokens: p, CompletionTokens: c, TotalTokens: p + c}
}
