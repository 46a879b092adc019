package structured

import (
	"fmt"
	"strings"
)

// longTextFields are the keys whose string values carry free-form text
// (source files, prose) and are most often emitted with raw newlines and
// unescaped quotes.
var longTextFields = map[string]bool{
	"content":           true,
	"description":       true,
	"buildInstructions": true,
	"expectedOutcome":   true,
	"reason":            true,
}

// repairSyntax rewrites the most common non-JSON constructs outside string
// literals: trailing commas, bare identifier keys, single-quoted strings and
// True/False/None.
func repairSyntax(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 32)
	var last byte // last non-space byte written
	write := func(str string) {
		b.WriteString(str)
		if t := strings.TrimRight(str, " \t\r\n"); t != "" {
			last = t[len(t)-1]
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			j := endOfString(s, i)
			write(s[i:j])
			i = j
		case c == '\'':
			lit, j := singleToDouble(s, i)
			write(lit)
			i = j
		case c == ',':
			k := skipSpace(s, i+1)
			if k < len(s) && (s[k] == '}' || s[k] == ']') {
				i++
				continue
			}
			write(",")
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			word := s[i:j]
			k := skipSpace(s, j)
			if k < len(s) && s[k] == ':' && (last == '{' || last == ',') {
				write(`"` + word + `"`)
			} else {
				switch word {
				case "True":
					word = "true"
				case "False":
					word = "false"
				case "None":
					word = "null"
				}
				write(word)
			}
			i = j
		default:
			write(s[i : i+1])
			i++
		}
	}
	return b.String()
}

// repairEscapes escapes raw control characters in every string literal and,
// inside long-text values, escapes interior quotes that cannot be closing
// quotes. Valid escape sequences are kept, so already-valid JSON comes out
// unchanged.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)
	for i := 0; i < len(s); {
		if s[i] != '"' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := endOfString(s, i)
		lit := s[i:j]
		b.WriteString(escapeControls(lit))
		i = j

		if !longTextFields[unquote(lit)] {
			continue
		}
		k := skipSpace(s, i)
		if k >= len(s) || s[k] != ':' {
			continue
		}
		v := skipSpace(s, k+1)
		if v >= len(s) || s[v] != '"' {
			continue
		}
		b.WriteString(s[i:v])
		val, end := reescapeValue(s, v)
		b.WriteString(val)
		i = end
	}
	return b.String()
}

// reescapeValue rewrites the string literal starting at s[start] == '"' and
// returns it with the index just past its closing quote.
func reescapeValue(s string, start int) (string, int) {
	var b strings.Builder
	b.WriteByte('"')
	i := start + 1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 < len(s) && strings.IndexByte(`"\/bfnrt`, s[i+1]) >= 0 {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			if i+5 < len(s) && s[i+1] == 'u' && isHex4(s[i+2:i+6]) {
				b.WriteString(s[i : i+6])
				i += 6
				continue
			}
			b.WriteString(`\\`)
			i++
		case c == '"':
			if closesValue(s, i+1) {
				b.WriteByte('"')
				return b.String(), i + 1
			}
			b.WriteString(`\"`)
			i++
		case c < 0x20:
			b.WriteString(controlEscape(c))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	b.WriteByte('"')
	return b.String(), len(s)
}

// closesValue reports whether a quote followed by s[k:] ends a member value.
func closesValue(s string, k int) bool {
	k = skipSpace(s, k)
	if k >= len(s) {
		return true
	}
	switch s[k] {
	case ',':
		n := skipSpace(s, k+1)
		if n >= len(s) {
			return true
		}
		switch s[n] {
		case '}', ']':
			return true
		case '"':
			m := skipSpace(s, endOfString(s, n))
			return m < len(s) && s[m] == ':'
		}
	case '}', ']':
		n := skipSpace(s, k+1)
		return n >= len(s) || strings.IndexByte(",}]", s[n]) >= 0
	}
	return false
}

// endOfString returns the index just past the closing quote of the literal
// that starts at s[i] == '"', or len(s) when it is unterminated.
func endOfString(s string, i int) int {
	escaped := false
	for j := i + 1; j < len(s); j++ {
		switch {
		case escaped:
			escaped = false
		case s[j] == '\\':
			escaped = true
		case s[j] == '"':
			return j + 1
		}
	}
	return len(s)
}

// singleToDouble converts the single-quoted literal at s[i] into a JSON string.
func singleToDouble(s string, i int) (string, int) {
	var b strings.Builder
	b.WriteByte('"')
	for j := i + 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '\\' && j+1 < len(s) && s[j+1] == '\'':
			b.WriteByte('\'')
			j++
		case c == '\\' && j+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[j+1])
			j++
		case c == '"':
			b.WriteString(`\"`)
		case c == '\'':
			b.WriteByte('"')
			return b.String(), j + 1
		case c < 0x20:
			b.WriteString(controlEscape(c))
		default:
			b.WriteByte(c)
		}
	}
	// unterminated: leave the rest untouched
	return s[i:], len(s)
}

func escapeControls(lit string) string {
	if strings.IndexFunc(lit, func(r rune) bool { return r < 0x20 }) < 0 {
		return lit
	}
	var b strings.Builder
	for i := 0; i < len(lit); i++ {
		if lit[i] < 0x20 {
			b.WriteString(controlEscape(lit[i]))
			continue
		}
		b.WriteByte(lit[i])
	}
	return b.String()
}

func controlEscape(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	default:
		return fmt.Sprintf(`\u%04x`, c)
	}
}

func unquote(lit string) string {
	if len(lit) < 2 {
		return ""
	}
	return lit[1 : len(lit)-1]
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isHex4(s string) bool {
	for i := 0; i < 4; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '-'
}
