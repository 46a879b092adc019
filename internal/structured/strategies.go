package structured

import (
	"strings"

	"github.com/ashiqtasdid/pegasus-sub000/internal/util/jsonutil"
)

// Candidate is a decoded JSON object that has not been validated yet.
type Candidate = map[string]any

// StrategyFunc turns raw model text into a candidate object. It reports false
// when it cannot produce one; it never panics and never mutates its input.
type StrategyFunc func(raw string) (Candidate, bool)

// Strategy names, in precedence order.
const (
	StrategyDirect        = "direct"
	StrategyFence         = "fence"
	StrategyGreedyBrace   = "greedy_brace"
	StrategyBalancedBrace = "balanced_brace"
	StrategySyntaxRepair  = "syntax_repair"
	StrategyEscapeRepair  = "escape_repair"
)

// ParseDirect treats the trimmed text as one complete JSON document.
func ParseDirect(raw string) (Candidate, bool) {
	return jsonutil.DecodeObject([]byte(strings.TrimSpace(raw)))
}

// ParseFenced strips a Markdown code fence (```json ... ```) and parses the body.
func ParseFenced(raw string) (Candidate, bool) {
	body, ok := stripFence(raw)
	if !ok {
		return nil, false
	}
	return ParseDirect(body)
}

// ParseGreedyBrace parses the text between the first '{' and the last '}'.
func ParseGreedyBrace(raw string) (Candidate, bool) {
	span, ok := greedySpan(raw)
	if !ok {
		return nil, false
	}
	return ParseDirect(span)
}

// ParseBalancedBrace parses the first complete object starting at the first
// '{', tracking depth and skipping braces inside string literals.
func ParseBalancedBrace(raw string) (Candidate, bool) {
	span, ok := balancedSpan(raw)
	if !ok {
		return nil, false
	}
	return ParseDirect(span)
}

// ParseSyntaxRepair fixes trailing commas, bare keys, single-quoted strings
// and Python-style literals before parsing.
func ParseSyntaxRepair(raw string) (Candidate, bool) {
	text := objectText(raw)
	if text == "" {
		return nil, false
	}
	return ParseDirect(repairSyntax(text))
}

// ParseEscapeRepair re-escapes raw control characters and stray quotes inside
// long-text fields, then parses. When the escaped text is still not valid the
// syntax repairs are applied on top of it.
func ParseEscapeRepair(raw string) (Candidate, bool) {
	text := fenceOrRaw(raw)
	if span, ok := greedySpan(text); ok {
		text = span
	}
	if !strings.Contains(text, "{") {
		return nil, false
	}
	fixed := repairEscapes(text)
	if c, ok := ParseDirect(fixed); ok {
		return c, true
	}
	return ParseDirect(repairSyntax(fixed))
}

func fenceOrRaw(raw string) string {
	if body, ok := stripFence(raw); ok {
		return body
	}
	return strings.TrimSpace(raw)
}

// objectText picks the best object-shaped span for the repair strategies.
func objectText(raw string) string {
	text := fenceOrRaw(raw)
	if span, ok := balancedSpan(text); ok {
		return span
	}
	if span, ok := greedySpan(text); ok {
		return span
	}
	if strings.Contains(text, "{") {
		return text[strings.IndexByte(text, '{'):]
	}
	return ""
}

func stripFence(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	start := strings.Index(t, "```")
	if start < 0 {
		return "", false
	}
	body := t[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(body[:nl]); !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimSpace(body)
	return body, body != ""
}

func greedySpan(raw string) (string, bool) {
	i := strings.IndexByte(raw, '{')
	j := strings.LastIndexByte(raw, '}')
	if i < 0 || j <= i {
		return "", false
	}
	return raw[i : j+1], true
}

func balancedSpan(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}
