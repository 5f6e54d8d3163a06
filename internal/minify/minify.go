// Package minify removes JavaScript-style comments, and optionally
// insignificant whitespace, from JSON-like text so that the result can be
// fed to a strict JSON decoder.
//
// The scanner is a single left-to-right pass over the input with four
// mutually exclusive modes (see scanState). String literal contents are
// never modified, so comment markers or whitespace inside "..." survive.
package minify

import "strings"

// scanState is the mode of the scanner. Exactly one mode is active at a
// time; comment modes can only be entered from stateNormal.
type scanState int

const (
	// stateNormal is plain JSON text outside strings and comments.
	stateNormal scanState = iota

	// stateInString is inside a double-quoted string literal. The cursor
	// sits on the opening quote when this mode is entered.
	stateInString

	// stateInLineComment is inside a // comment. It ends at the next
	// \n or \r, which is not part of the comment.
	stateInLineComment

	// stateInBlockComment is inside a /* */ comment. It ends after the
	// closing */ or at end of input.
	stateInBlockComment
)

// String returns the mode name, used in test failure messages.
func (s scanState) String() string {
	switch s {
	case stateNormal:
		return "normal"
	case stateInString:
		return "string"
	case stateInLineComment:
		return "line-comment"
	case stateInBlockComment:
		return "block-comment"
	default:
		return "unknown"
	}
}

// scanner holds the per-call state. A new scanner is created for every
// Minify call, so concurrent calls never share anything.
type scanner struct {
	src   string
	strip bool

	state  scanState
	cursor int // start of the next unprocessed span in src

	out  strings.Builder
	last byte // last byte written to out
}

// Minify removes // line comments and /* */ block comments from text.
//
// When stripWhitespace is true, spaces, tabs, \n and \r outside string
// literals are dropped as well and comments vanish entirely.
//
// When stripWhitespace is false, every byte of a comment (delimiters
// included) is replaced by a space, except line terminators which are kept.
// The output then has exactly the same length and line layout as the input,
// so offsets reported by a JSON decoder point into the original text.
//
// Minify never fails: an unterminated comment or string simply runs to the
// end of the input. It does not validate the JSON.
func Minify(text string, stripWhitespace bool) string {
	s := &scanner{src: text, strip: stripWhitespace}
	s.out.Grow(len(text))
	s.run()
	return s.out.String()
}

// run drives the state machine until the whole input is consumed.
func (s *scanner) run() {
	for s.cursor < len(s.src) {
		switch s.state {
		case stateNormal:
			s.scanNormal()
		case stateInString:
			s.scanString()
		case stateInLineComment:
			s.scanLineComment()
		case stateInBlockComment:
			s.scanBlockComment()
		}
	}
}

// scanNormal emits text up to the next marker (", // or /*) and switches
// to the mode that marker opens. The marker itself is left for that mode.
func (s *scanner) scanNormal() {
	rest := s.src[s.cursor:]
	for i := 0; i < len(rest); i++ {
		next := stateNormal
		switch rest[i] {
		case '"':
			next = stateInString
		case '/':
			if i+1 < len(rest) {
				switch rest[i+1] {
				case '/':
					next = stateInLineComment
				case '*':
					next = stateInBlockComment
				}
			}
		}
		if next == stateNormal {
			continue
		}
		s.emitCode(rest[:i])
		s.cursor += i
		s.state = next
		return
	}
	s.emitCode(rest)
	s.cursor = len(s.src)
}

// scanString emits a string literal verbatim, from the opening quote to the
// first unescaped closing quote. An unterminated string runs to the end.
func (s *scanner) scanString() {
	start := s.cursor
	for i := start + 1; i < len(s.src); i++ {
		j := strings.IndexByte(s.src[i:], '"')
		if j < 0 {
			break
		}
		i += j
		if !isEscaped(s.src, i) {
			s.write(s.src[start : i+1])
			s.cursor = i + 1
			s.state = stateNormal
			return
		}
	}
	s.write(s.src[start:])
	s.cursor = len(s.src)
}

// scanLineComment consumes a // comment up to, but not including, the next
// line terminator. The terminator is handled by the following normal span.
func (s *scanner) scanLineComment() {
	end := len(s.src)
	if i := strings.IndexAny(s.src[s.cursor:], "\n\r"); i >= 0 {
		end = s.cursor + i
	}
	s.emitComment(s.src[s.cursor:end])
	s.cursor = end
	s.state = stateNormal
}

// scanBlockComment consumes a /* */ comment including both delimiters.
// The search for */ starts after the opening /*, so "/*/" does not close.
func (s *scanner) scanBlockComment() {
	end := len(s.src)
	if i := strings.Index(s.src[s.cursor+2:], "*/"); i >= 0 {
		end = s.cursor + 2 + i + 2
	}
	s.emitComment(s.src[s.cursor:end])
	s.cursor = end
	s.state = stateNormal
}

// emitCode writes a span of normal text, dropping JSON whitespace when
// stripping is enabled.
//
// A '/' and a following '/' or '*' can only meet in the output after the
// whitespace or comment between them was removed. One space is kept there,
// otherwise the joined pair would read as a comment marker on the next pass.
func (s *scanner) emitCode(span string) {
	if !s.strip {
		s.write(span)
		return
	}
	for i := 0; i < len(span); i++ {
		switch c := span[i]; c {
		case ' ', '\t', '\n', '\r':
		default:
			if s.last == '/' && (c == '/' || c == '*') {
				s.out.WriteByte(' ')
			}
			s.out.WriteByte(c)
			s.last = c
		}
	}
}

// write copies text to the output unchanged.
func (s *scanner) write(text string) {
	if text == "" {
		return
	}
	s.out.WriteString(text)
	s.last = text[len(text)-1]
}

// emitComment drops a comment span, or blanks it out byte for byte when
// whitespace is preserved. Line terminators are kept in the latter case.
func (s *scanner) emitComment(span string) {
	if s.strip {
		return
	}
	for i := 0; i < len(span); i++ {
		switch c := span[i]; c {
		case '\n', '\r':
			s.out.WriteByte(c)
		default:
			s.out.WriteByte(' ')
		}
	}
}

// isEscaped reports whether the quote at src[pos] is preceded by an odd
// number of consecutive backslashes.
func isEscaped(src string, pos int) bool {
	n := 0
	for i := pos - 1; i >= 0 && src[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}
