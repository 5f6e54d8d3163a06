package minify

import "strings"

// StripTrailingCommas removes every comma that is followed, after optional
// JSON whitespace, by ] or }. Commas inside string literals are left alone.
//
//	[1,2,]      → [1,2]
//	{"a":1, }   → {"a":1 }
//	["x,]"]     → ["x,]"]
//
// It expects comment-free input, i.e. the output of Minify.
func StripTrailingCommas(text string) string {
	return rewriteTrailingCommas(text, "")
}

// BlankTrailingCommas is like StripTrailingCommas but replaces each trailing
// comma with a single space, so byte offsets into the text do not move.
func BlankTrailingCommas(text string) string {
	return rewriteTrailingCommas(text, " ")
}

func rewriteTrailingCommas(text, replacement string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	last := 0 // start of the span not yet copied to b
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			if c == '"' && !isEscaped(text, i) {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			if closesAfter(text, i+1) {
				b.WriteString(text[last:i])
				b.WriteString(replacement)
				last = i + 1
			}
		}
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

// closesAfter reports whether the first non-whitespace byte at or after
// pos is a closing bracket or brace.
func closesAfter(text string, pos int) bool {
	for ; pos < len(text); pos++ {
		switch text[pos] {
		case ' ', '\t', '\n', '\r':
			continue
		case ']', '}':
			return true
		default:
			return false
		}
	}
	return false
}
